package diplomacy

import (
	"slices"
	"testing"
)

// DATC test cases (Diplomacy Adjudicator Test Cases).
// Reference: http://web.inter.nl.net/users/L.B.Kruijswijk/

func army(p Power, prov string) Unit  { return Unit{Army, p, prov, NoCoast} }
func fleet(p Power, prov string) Unit { return Unit{Fleet, p, prov, NoCoast} }

type datcCase struct {
	name     string
	rules    Rules
	units    []Unit
	orders   string
	want     map[string]string // codes by starting province
	rejected map[string]Note   // notes of rejected orders by province
	check    func(t *testing.T, gs *GameState, res *PhaseResult)
}

func runDATC(t *testing.T, cases []datcCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rules := tc.rules
			if rules == (Rules{}) {
				rules = DefaultRules()
			}
			gs := stateWith(tc.units...)
			res := adjudicate(t, gs, rules, tc.orders)
			expectCodes(t, res, tc.want)
			for prov, note := range tc.rejected {
				found := false
				for _, r := range res.Rejected {
					if r.Order.Unit.Province == prov {
						found = true
						if r.Note != note {
							t.Errorf("rejected %s: got %s, want %s", prov, r.Note, note)
						}
					}
				}
				if !found {
					t.Errorf("expected order for %s to be rejected with %s", prov, note)
				}
			}
			if res.Passes > res.Decisions {
				t.Errorf("resolver took %d passes for %d decisions", res.Passes, res.Decisions)
			}
			if tc.check != nil {
				tc.check(t, gs, res)
			}
		})
	}
}

// === DATC 6.A: BASIC CHECKS ===

func TestDATC_6A_BasicChecks(t *testing.T) {
	runDATC(t, []datcCase{
		{
			name:     "6.A.1 moving to an area that is not a neighbour",
			units:    []Unit{fleet(England, "nth")},
			orders:   "england: F nth - pic",
			want:     map[string]string{"nth": "SUC"},
			rejected: map[string]Note{"nth": FAR},
		},
		{
			name:     "6.A.2 move army to sea",
			units:    []Unit{army(England, "lvp")},
			orders:   "england: A lvp - iri",
			rejected: map[string]Note{"lvp": FAR},
		},
		{
			name:     "6.A.3 move fleet to land",
			units:    []Unit{fleet(Germany, "kie")},
			orders:   "germany: F kie - mun",
			rejected: map[string]Note{"kie": FAR},
		},
		{
			name:     "6.A.4 move to own sector",
			units:    []Unit{fleet(Germany, "kie")},
			orders:   "germany: F kie - kie",
			rejected: map[string]Note{"kie": FAR},
		},
		{
			name:     "6.A.6 ordering a unit of another country",
			units:    []Unit{fleet(England, "lon")},
			orders:   "germany: F lon - nth",
			want:     map[string]string{"lon": "SUC"},
			rejected: map[string]Note{"lon": NYU},
			check: func(t *testing.T, gs *GameState, _ *PhaseResult) {
				expectUnitAt(t, gs, "lon", England)
			},
		},
		{
			name:  "6.A.7 only armies can be convoyed",
			units: []Unit{fleet(England, "lon"), fleet(England, "nth")},
			orders: `england: F lon - bel
england: F nth C A lon - bel`,
			rejected: map[string]Note{"lon": FAR, "nth": NSA},
		},
		{
			name: "6.A.8 support to hold yourself is not possible",
			units: []Unit{
				army(Italy, "ven"), army(Italy, "tyr"), fleet(Austria, "tri"),
			},
			orders: `italy: A ven - tri
italy: A tyr S A ven - tri
austria: F tri S F tri H`,
			want:     map[string]string{"ven": "SUC", "tyr": "SUC", "tri": "RET"},
			rejected: map[string]Note{"tri": FAR},
		},
		{
			name:     "6.A.9 fleets must follow coast if not on sea",
			units:    []Unit{fleet(Italy, "rom")},
			orders:   "italy: F rom - ven",
			rejected: map[string]Note{"rom": FAR},
		},
		{
			name:  "6.A.11 simple bounce",
			units: []Unit{army(Austria, "vie"), army(Italy, "ven")},
			orders: `austria: A vie - tyr
italy: A ven - tyr`,
			want: map[string]string{"vie": "BNC", "ven": "BNC"},
		},
		{
			name:  "6.A.12 bounce of three units",
			units: []Unit{army(Austria, "vie"), army(Germany, "mun"), army(Italy, "ven")},
			orders: `austria: A vie - tyr
germany: A mun - tyr
italy: A ven - tyr`,
			want: map[string]string{"vie": "BNC", "mun": "BNC", "ven": "BNC"},
		},
	})
}

// === DATC 6.B: COASTAL ISSUES ===

func TestDATC_6B_CoastalIssues(t *testing.T) {
	runDATC(t, []datcCase{
		{
			name:     "6.B.1 moving with unspecified coast when coast is necessary",
			units:    []Unit{fleet(France, "por")},
			orders:   "france: F por - spa",
			rejected: map[string]Note{"por": CST},
		},
		{
			name:   "6.B.2 moving with unspecified coast when coast is not necessary",
			units:  []Unit{fleet(France, "gas")},
			orders: "france: F gas - spa",
			want:   map[string]string{"gas": "SUC"},
			check: func(t *testing.T, gs *GameState, _ *PhaseResult) {
				u := gs.UnitAt("spa")
				if u == nil || u.Coast != NorthCoast {
					t.Errorf("expected fleet on spa/nc, got %v", u)
				}
			},
		},
		{
			name:     "6.B.3 moving with wrong coast when coast is not necessary",
			units:    []Unit{fleet(France, "gas")},
			orders:   "france: F gas - spa/sc",
			rejected: map[string]Note{"gas": FAR},
		},
		{
			name:  "6.B.4 support to unreachable coast allowed",
			units: []Unit{fleet(France, "gas"), fleet(France, "mar"), fleet(Italy, "wes")},
			orders: `france: F gas - spa/nc
france: F mar S F gas - spa
italy: F wes - spa/sc`,
			want: map[string]string{"gas": "SUC", "mar": "SUC", "wes": "BNC"},
		},
		{
			name: "6.B.5 support from unreachable coast not allowed",
			units: []Unit{
				fleet(France, "mar"), {Fleet, France, "spa", NorthCoast}, fleet(Italy, "gol"),
			},
			orders: `france: F mar - gol
france: F spa/nc S F mar - gol
italy: F gol H`,
			want:     map[string]string{"mar": "BNC", "gol": "SUC"},
			rejected: map[string]Note{"spa": FAR},
		},
		{
			name: "6.B.6 support can be cut with other coast",
			units: []Unit{
				fleet(England, "iri"), fleet(England, "nao"),
				{Fleet, France, "spa", NorthCoast}, fleet(France, "mao"),
				fleet(Italy, "gol"),
			},
			orders: `england: F iri S F nao - mao
england: F nao - mao
france: F spa/nc S F mao H
france: F mao H
italy: F gol - spa/sc`,
			want: map[string]string{"nao": "SUC", "mao": "RET", "spa": "CUT", "gol": "BNC"},
		},
	})
}

// === DATC 6.C: CIRCULAR MOVEMENT ===

func TestDATC_6C_CircularMovement(t *testing.T) {
	runDATC(t, []datcCase{
		{
			name:  "6.C.1 three army circular movement",
			units: []Unit{fleet(Turkey, "ank"), army(Turkey, "con"), army(Turkey, "smy")},
			orders: `turkey: F ank - con
turkey: A con - smy
turkey: A smy - ank`,
			want: map[string]string{"ank": "SUC", "con": "SUC", "smy": "SUC"},
			check: func(t *testing.T, gs *GameState, _ *PhaseResult) {
				if u := gs.UnitAt("con"); u == nil || u.Type != Fleet {
					t.Errorf("expected the fleet in con, got %v", u)
				}
				if u := gs.UnitAt("ank"); u == nil || u.Type != Army {
					t.Errorf("expected an army in ank, got %v", u)
				}
			},
		},
		{
			name: "6.C.2 three army circular movement with support",
			units: []Unit{
				fleet(Turkey, "ank"), army(Turkey, "con"), army(Turkey, "smy"), army(Turkey, "bul"),
			},
			orders: `turkey: F ank - con
turkey: A con - smy
turkey: A smy - ank
turkey: A bul S F ank - con`,
			want: map[string]string{"ank": "SUC", "con": "SUC", "smy": "SUC", "bul": "SUC"},
		},
		{
			name: "6.C.3 a disrupted three army circular movement",
			units: []Unit{
				fleet(Turkey, "ank"), army(Turkey, "con"), army(Turkey, "smy"), army(Turkey, "bul"),
			},
			orders: `turkey: F ank - con
turkey: A con - smy
turkey: A smy - ank
turkey: A bul - con`,
			want: map[string]string{"ank": "BNC", "con": "BNC", "smy": "BNC", "bul": "BNC"},
		},
		{
			name: "6.C.4 a circular movement with attacked convoy",
			units: []Unit{
				army(Austria, "tri"), army(Austria, "ser"),
				army(Turkey, "bul"), fleet(Turkey, "aeg"), fleet(Turkey, "ion"), fleet(Turkey, "adr"),
				fleet(Italy, "nap"),
			},
			orders: `austria: A tri - ser
austria: A ser - bul
turkey: A bul - tri
turkey: F aeg C A bul - tri
turkey: F ion C A bul - tri
turkey: F adr C A bul - tri
italy: F nap - ion`,
			want: map[string]string{
				"tri": "SUC", "ser": "SUC", "bul": "SUC",
				"aeg": "SUC", "ion": "SUC", "adr": "SUC", "nap": "BNC",
			},
		},
		{
			name: "6.C.6 two armies with two convoys",
			units: []Unit{
				fleet(England, "nth"), army(England, "lon"), fleet(France, "eng"), army(France, "bel"),
			},
			orders: `england: F nth C A lon - bel
england: A lon - bel
france: F eng C A bel - lon
france: A bel - lon`,
			want: map[string]string{"lon": "SUC", "bel": "SUC", "nth": "SUC", "eng": "SUC"},
			check: func(t *testing.T, gs *GameState, _ *PhaseResult) {
				expectUnitAt(t, gs, "bel", England)
				expectUnitAt(t, gs, "lon", France)
			},
		},
	})
}

// === DATC 6.D: SUPPORTS AND DISLODGES ===

func TestDATC_6D_SupportsAndDislodges(t *testing.T) {
	runDATC(t, []datcCase{
		{
			name: "6.D.1 supported hold can prevent dislodgement",
			units: []Unit{
				fleet(Austria, "adr"), army(Austria, "tri"), army(Italy, "ven"), army(Italy, "tyr"),
			},
			orders: `austria: F adr S A tri - ven
austria: A tri - ven
italy: A ven H
italy: A tyr S A ven H`,
			want: map[string]string{"tri": "BNC", "adr": "SUC", "ven": "SUC", "tyr": "SUC"},
		},
		{
			name: "6.D.2 a move cuts support on hold",
			units: []Unit{
				fleet(Austria, "adr"), army(Austria, "tri"), army(Austria, "vie"),
				army(Italy, "ven"), army(Italy, "tyr"),
			},
			orders: `austria: F adr S A tri - ven
austria: A tri - ven
austria: A vie - tyr
italy: A ven H
italy: A tyr S A ven H`,
			want: map[string]string{"tri": "SUC", "ven": "RET", "tyr": "CUT", "vie": "BNC"},
		},
		{
			name: "6.D.3 a move cuts support on move",
			units: []Unit{
				fleet(Austria, "adr"), army(Austria, "tri"), army(Italy, "ven"), fleet(Italy, "ion"),
			},
			orders: `austria: F adr S A tri - ven
austria: A tri - ven
italy: A ven H
italy: F ion - adr`,
			want: map[string]string{"adr": "CUT", "tri": "BNC", "ion": "BNC", "ven": "SUC"},
		},
		{
			name: "6.D.4 support to hold on unit supporting a hold allowed",
			units: []Unit{
				army(Germany, "ber"), fleet(Germany, "kie"), fleet(Russia, "bal"), army(Russia, "pru"),
			},
			orders: `germany: A ber S F kie H
germany: F kie S A ber H
russia: F bal S A pru - ber
russia: A pru - ber`,
			want: map[string]string{"pru": "BNC", "ber": "CUT", "kie": "SUC"},
		},
		{
			name: "6.D.9 support to move on holding unit not allowed",
			units: []Unit{
				army(Italy, "ven"), army(Italy, "tyr"), army(Austria, "alb"), army(Austria, "tri"),
			},
			orders: `italy: A ven - tri
italy: A tyr S A ven - tri
austria: A alb S A tri - ser
austria: A tri H`,
			want: map[string]string{"ven": "SUC", "alb": "NSO", "tri": "RET"},
		},
		{
			name:  "6.D.10 self dislodgment prohibited",
			units: []Unit{army(Germany, "ber"), fleet(Germany, "kie"), army(Germany, "mun")},
			orders: `germany: A ber H
germany: F kie - ber
germany: A mun S F kie - ber`,
			want: map[string]string{"ber": "SUC", "kie": "BNC", "mun": "SUC"},
		},
		{
			name: "6.D.13 supporting a foreign unit to dislodge own unit prohibited",
			units: []Unit{
				fleet(Austria, "tri"), army(Austria, "vie"), army(Italy, "ven"),
			},
			orders: `austria: F tri H
austria: A vie S A ven - tri
italy: A ven - tri`,
			want: map[string]string{"tri": "SUC", "vie": "SUC", "ven": "BNC"},
		},
		{
			name: "6.D.15 defender cannot cut support for attack on itself",
			units: []Unit{
				fleet(Russia, "con"), fleet(Russia, "bla"), fleet(Turkey, "ank"),
			},
			orders: `russia: F con S F bla - ank
russia: F bla - ank
turkey: F ank - con`,
			want: map[string]string{"bla": "SUC", "con": "SUC", "ank": "BNC RET"},
		},
		{
			name: "support cut by an attack from elsewhere",
			units: []Unit{
				army(Germany, "ruh"), army(Germany, "mun"),
				army(France, "bur"), army(France, "mar"), army(Italy, "pie"),
			},
			orders: `germany: A ruh - bur
germany: A mun S A ruh - bur
france: A bur H
france: A mar S A bur H
italy: A pie - mar`,
			want: map[string]string{"ruh": "SUC", "mun": "SUC", "bur": "RET", "mar": "CUT", "pie": "BNC"},
		},
		{
			name: "support into the attacker's province is not cut by it",
			units: []Unit{
				army(Austria, "boh"), army(Austria, "tyr"), army(Germany, "mun"),
			},
			orders: `austria: A boh - mun
austria: A tyr S A boh - mun
germany: A mun - tyr`,
			want: map[string]string{"boh": "SUC", "tyr": "SUC", "mun": "BNC RET"},
			check: func(t *testing.T, gs *GameState, res *PhaseResult) {
				r := resultAt(t, res, "mun")
				want := []UnitPosition{{Province: "ber"}, {Province: "bur"}, {Province: "kie"}, {Province: "ruh"}, {Province: "sil"}}
				if !slices.Equal(r.Retreats, want) {
					t.Errorf("retreats: got %v, want %v", r.Retreats, want)
				}
			},
		},
	})
}

// === DATC 6.E: HEAD-TO-HEAD BATTLES ===

func TestDATC_6E_HeadToHead(t *testing.T) {
	runDATC(t, []datcCase{
		{
			name: "6.E.1 dislodged unit has no effect on attacker's area",
			units: []Unit{
				army(Germany, "ber"), fleet(Germany, "kie"), army(Germany, "sil"), army(Russia, "pru"),
			},
			orders: `germany: A ber - pru
germany: F kie - ber
germany: A sil S A ber - pru
russia: A pru - ber`,
			want: map[string]string{"ber": "SUC", "kie": "SUC", "sil": "SUC", "pru": "BNC RET"},
		},
		{
			name:  "6.E.2 no self dislodgement in head to head battle",
			units: []Unit{army(Germany, "ber"), fleet(Germany, "kie"), army(Germany, "mun")},
			orders: `germany: A ber - kie
germany: F kie - ber
germany: A mun S A ber - kie`,
			want: map[string]string{"ber": "BNC", "kie": "BNC", "mun": "SUC"},
		},
		{
			name:  "no swap without convoy",
			units: []Unit{army(France, "par"), army(Germany, "bur")},
			orders: `france: A par - bur
germany: A bur - par`,
			want: map[string]string{"par": "BNC", "bur": "BNC"},
		},
		{
			name:  "supported head to head",
			units: []Unit{army(Germany, "bur"), army(Germany, "pic"), army(France, "par")},
			orders: `germany: A bur - par
germany: A pic S A bur - par
france: A par - bur`,
			want: map[string]string{"bur": "SUC", "pic": "SUC", "par": "BNC RET"},
			check: func(t *testing.T, gs *GameState, _ *PhaseResult) {
				d := gs.DislodgedAt("par")
				if d == nil {
					t.Fatal("expected par to be dislodged")
				}
				want := []UnitPosition{{Province: "bre"}, {Province: "gas"}}
				if !slices.Equal(d.Retreats, want) {
					t.Errorf("retreats: got %v, want %v", d.Retreats, want)
				}
				if d.AttackerFrom != "bur" || d.ByConvoy {
					t.Errorf("attacker: got %+v", d)
				}
				expectUnitAt(t, gs, "par", Germany)
			},
		},
	})
}

// === DATC 6.F: CONVOYS ===

func TestDATC_6F_Convoys(t *testing.T) {
	runDATC(t, []datcCase{
		{
			name: "6.F.1 no convoy in coastal areas",
			units: []Unit{
				army(Turkey, "gre"), fleet(Turkey, "aeg"), fleet(Turkey, "con"), fleet(Turkey, "bla"),
			},
			orders: `turkey: A gre - sev
turkey: F aeg C A gre - sev
turkey: F con C A gre - sev
turkey: F bla C A gre - sev`,
			rejected: map[string]Note{"gre": FAR, "con": NAS},
		},
		{
			name:  "6.F.2 an army being convoyed can bounce as normal",
			units: []Unit{fleet(England, "eng"), army(England, "lon"), army(France, "par")},
			orders: `england: F eng C A lon - bre
england: A lon - bre
france: A par - bre`,
			want: map[string]string{"lon": "BNC", "par": "BNC", "eng": "BNC"},
		},
		{
			name: "6.F.3 an army being convoyed can receive support",
			units: []Unit{
				fleet(England, "eng"), army(England, "lon"), fleet(England, "mao"), army(France, "par"),
			},
			orders: `england: F eng C A lon - bre
england: A lon - bre
england: F mao S A lon - bre
france: A par - bre`,
			want: map[string]string{"lon": "SUC", "eng": "SUC", "mao": "SUC", "par": "BNC"},
		},
		{
			name:  "6.F.4 an attacked convoy is not disrupted",
			units: []Unit{fleet(England, "nth"), army(England, "lon"), fleet(Germany, "ska")},
			orders: `england: F nth C A lon - hol
england: A lon - hol
germany: F ska - nth`,
			want: map[string]string{"lon": "SUC", "nth": "SUC", "ska": "BNC"},
		},
		{
			name: "6.F.5 a beleaguered convoy is not disrupted",
			units: []Unit{
				fleet(England, "nth"), army(England, "lon"),
				fleet(France, "eng"), fleet(France, "bel"),
				fleet(Germany, "ska"), fleet(Germany, "den"),
			},
			orders: `england: F nth C A lon - hol
england: A lon - hol
france: F eng - nth
france: F bel S F eng - nth
germany: F ska - nth
germany: F den S F ska - nth`,
			want: map[string]string{"lon": "SUC", "eng": "BNC", "ska": "BNC"},
		},
		{
			name: "6.F.6 dislodged convoy does not cut support",
			units: []Unit{
				fleet(England, "nth"), army(England, "lon"),
				army(Germany, "hol"), army(Germany, "bel"), fleet(Germany, "hel"), fleet(Germany, "ska"),
				army(France, "pic"), army(France, "bur"),
			},
			orders: `england: F nth C A lon - hol
england: A lon - hol
germany: A hol S A bel H
germany: A bel S A hol H
germany: F hel S F ska - nth
germany: F ska - nth
france: A pic - bel
france: A bur S A pic - bel`,
			want: map[string]string{
				"lon": "DSR", "nth": "DSR RET", "ska": "SUC",
				"hol": "SUC", "bel": "CUT", "pic": "BNC",
			},
		},
		{
			name: "6.F.9 dislodge of multi-route convoy",
			units: []Unit{
				fleet(England, "eng"), fleet(England, "nth"), army(England, "lon"),
				fleet(France, "bre"), fleet(France, "mao"),
			},
			orders: `england: F eng C A lon - bel
england: F nth C A lon - bel
england: A lon - bel
france: F bre S F mao - eng
france: F mao - eng`,
			want: map[string]string{"lon": "SUC", "nth": "SUC", "eng": "NSO RET", "mao": "SUC"},
			check: func(t *testing.T, gs *GameState, _ *PhaseResult) {
				expectUnitAt(t, gs, "bel", England)
			},
		},
		{
			name:  "rules: any disrupted route fails the convoy",
			rules: DPTGRules(),
			units: []Unit{
				fleet(England, "eng"), fleet(England, "nth"), army(England, "lon"),
				fleet(France, "bre"), fleet(France, "mao"),
			},
			orders: `england: F eng C A lon - bel
england: F nth C A lon - bel
england: A lon - bel
france: F bre S F mao - eng
france: F mao - eng`,
			want: map[string]string{"lon": "DSR", "eng": "DSR RET", "mao": "SUC"},
		},
		{
			name:  "dislodged convoying fleet disrupts the convoy",
			units: []Unit{army(England, "lon"), fleet(England, "nth"), fleet(France, "eng"), fleet(France, "hol")},
			orders: `england: A lon - bel
england: F nth C A lon - bel
france: F eng - nth
france: F hol S F eng - nth`,
			want: map[string]string{"lon": "DSR", "nth": "DSR RET", "eng": "SUC", "hol": "SUC"},
			check: func(t *testing.T, gs *GameState, _ *PhaseResult) {
				d := gs.DislodgedAt("nth")
				if d == nil || slices.Contains(d.Retreats, UnitPosition{Province: "eng"}) {
					t.Errorf("nth must not retreat to the attacker's origin: %+v", d)
				}
			},
		},
	})
}

// === DATC 6.F.14 and friends: convoy paradoxes under each rule ===

func TestConvoyParadoxRules(t *testing.T) {
	units := []Unit{
		fleet(England, "lon"), fleet(England, "wal"), army(France, "bre"), fleet(France, "eng"),
	}
	orders := `england: F lon S F wal - eng
england: F wal - eng
france: A bre - lon
france: F eng C A bre - lon`
	disrupted := map[string]string{"lon": "SUC", "wal": "SUC", "bre": "DSR", "eng": "DSR RET"}

	withParadox := func(p ConvoyParadox) Rules {
		r := DefaultRules()
		r.ConvoyParadox = p
		return r
	}
	runDATC(t, []datcCase{
		{name: "szykman", rules: withParadox(ParadoxSzykman), units: units, orders: orders, want: disrupted},
		{name: "1982", rules: withParadox(Paradox1982), units: units, orders: orders, want: disrupted},
		{name: "dptg unconfused", rules: withParadox(ParadoxDPTG), units: units, orders: orders, want: disrupted},
		{
			name:   "fallback",
			rules:  withParadox(ParadoxFallback),
			units:  units,
			orders: orders,
			want:   map[string]string{"lon": "CUT", "wal": "BNC", "bre": "BNC", "eng": "BNC"},
		},
	})
}

// === DATC 6.F.15-6.F.24: paradoxes under the default (Szykman) rules ===

func expectNoDislodged(t *testing.T, gs *GameState) {
	t.Helper()
	if len(gs.Dislodged) != 0 {
		t.Errorf("expected no dislodged units, got %+v", gs.Dislodged)
	}
}

func TestDATC_6F_ConvoyParadoxes(t *testing.T) {
	disruptAny := DefaultRules()
	disruptAny.ConvoyDisruption = DisruptAny

	runDATC(t, []datcCase{
		{
			name: "6.F.15 simple convoy paradox with additional convoy",
			units: []Unit{
				fleet(England, "lon"), fleet(England, "wal"),
				army(France, "bre"), fleet(France, "eng"),
				fleet(Italy, "iri"), fleet(Italy, "mao"), army(Italy, "naf"),
			},
			orders: `england: F lon S F wal - eng
england: F wal - eng
france: A bre - lon
france: F eng C A bre - lon
italy: F iri C A naf - wal
italy: F mao C A naf - wal
italy: A naf - wal`,
			want: map[string]string{"lon": "SUC", "wal": "SUC", "bre": "DSR", "naf": "SUC"},
			check: func(t *testing.T, gs *GameState, _ *PhaseResult) {
				expectUnitAt(t, gs, "eng", England)
				expectUnitAt(t, gs, "wal", Italy)
				if gs.DislodgedAt("eng") == nil {
					t.Error("the French fleet in eng should be dislodged")
				}
			},
		},
		{
			name: "6.F.16 pandin's paradox",
			units: []Unit{
				fleet(England, "lon"), fleet(England, "wal"),
				army(France, "bre"), fleet(France, "eng"),
				fleet(Germany, "nth"), fleet(Germany, "bel"),
			},
			orders: `england: F lon S F wal - eng
england: F wal - eng
france: A bre - lon
france: F eng C A bre - lon
germany: F nth S F bel - eng
germany: F bel - eng`,
			want: map[string]string{"lon": "SUC", "wal": "BNC", "bel": "BNC", "nth": "SUC"},
			check: func(t *testing.T, gs *GameState, _ *PhaseResult) {
				expectUnitAt(t, gs, "eng", France)
				expectUnitAt(t, gs, "bre", France)
				expectUnitAt(t, gs, "lon", England)
				expectNoDislodged(t, gs)
			},
		},
		{
			name: "6.F.17 pandin's extended paradox",
			units: []Unit{
				fleet(England, "lon"), fleet(England, "wal"),
				army(France, "bre"), fleet(France, "eng"), fleet(France, "yor"),
				fleet(Germany, "nth"), fleet(Germany, "bel"),
			},
			orders: `england: F lon S F wal - eng
england: F wal - eng
france: A bre - lon
france: F eng C A bre - lon
france: F yor S A bre - lon
germany: F nth S F bel - eng
germany: F bel - eng`,
			want: map[string]string{"lon": "SUC", "wal": "BNC", "bel": "BNC"},
			check: func(t *testing.T, gs *GameState, _ *PhaseResult) {
				expectUnitAt(t, gs, "eng", France)
				expectUnitAt(t, gs, "bre", France)
				expectUnitAt(t, gs, "lon", England)
				expectNoDislodged(t, gs)
			},
		},
		{
			name: "6.F.18 betrayal paradox",
			units: []Unit{
				fleet(England, "nth"), army(England, "lon"), fleet(England, "eng"),
				fleet(France, "bel"),
				fleet(Germany, "hel"), fleet(Germany, "ska"),
			},
			orders: `england: F nth C A lon - bel
england: A lon - bel
england: F eng S A lon - bel
france: F bel S F nth
germany: F hel S F ska - nth
germany: F ska - nth`,
			want: map[string]string{"ska": "BNC", "bel": "SUC"},
			check: func(t *testing.T, gs *GameState, _ *PhaseResult) {
				expectUnitAt(t, gs, "nth", England)
				expectUnitAt(t, gs, "lon", England)
				expectUnitAt(t, gs, "bel", France)
				expectNoDislodged(t, gs)
			},
		},
		{
			name: "6.F.19 multi-route convoy disruption paradox",
			units: []Unit{
				fleet(France, "tys"), fleet(France, "ion"), army(France, "tun"),
				fleet(Italy, "nap"), fleet(Italy, "rom"),
			},
			orders: `france: F tys C A tun - nap
france: F ion C A tun - nap
france: A tun - nap
italy: F nap S F rom - tys
italy: F rom - tys`,
			want: map[string]string{"tun": "BNC", "nap": "CUT", "rom": "BNC"},
			check: func(t *testing.T, gs *GameState, _ *PhaseResult) {
				expectNoDislodged(t, gs)
			},
		},
		{
			name:  "6.F.19 when any disrupted route fails the convoy",
			rules: disruptAny,
			units: []Unit{
				fleet(France, "tys"), fleet(France, "ion"), army(France, "tun"),
				fleet(Italy, "nap"), fleet(Italy, "rom"),
			},
			orders: `france: F tys C A tun - nap
france: F ion C A tun - nap
france: A tun - nap
italy: F nap S F rom - tys
italy: F rom - tys`,
			want: map[string]string{"tun": "DSR", "nap": "SUC", "rom": "SUC"},
			check: func(t *testing.T, gs *GameState, _ *PhaseResult) {
				expectUnitAt(t, gs, "tys", Italy)
				expectUnitAt(t, gs, "tun", France)
				if gs.DislodgedAt("tys") == nil {
					t.Error("the French fleet in tys should be dislodged")
				}
			},
		},
		{
			name: "6.F.20 unwanted multi-route convoy paradox",
			units: []Unit{
				fleet(France, "tys"), army(France, "tun"),
				fleet(Italy, "nap"), fleet(Italy, "ion"),
				fleet(Turkey, "aeg"), fleet(Turkey, "eas"),
			},
			orders: `france: F tys C A tun - nap
france: A tun - nap
italy: F nap S F ion
italy: F ion C A tun - nap
turkey: F aeg S F eas - ion
turkey: F eas - ion`,
			want: map[string]string{"tun": "BNC", "nap": "CUT", "eas": "SUC", "aeg": "SUC"},
			check: func(t *testing.T, gs *GameState, _ *PhaseResult) {
				expectUnitAt(t, gs, "ion", Turkey)
				if d := gs.DislodgedAt("ion"); d == nil || d.Unit.Power != Italy {
					t.Errorf("the Italian fleet in ion should be dislodged, got %+v", d)
				}
			},
		},
		{
			name: "6.F.22 second order paradox with two resolutions",
			units: []Unit{
				fleet(England, "edi"), fleet(England, "lon"),
				army(France, "bre"), fleet(France, "eng"),
				fleet(Germany, "bel"), fleet(Germany, "pic"),
				army(Russia, "nwy"), fleet(Russia, "nth"),
			},
			orders: `england: F edi - nth
england: F lon S F edi - nth
france: A bre - lon
france: F eng C A bre - lon
germany: F bel S F pic - eng
germany: F pic - eng
russia: A nwy - bel
russia: F nth C A nwy - bel`,
			want: map[string]string{"edi": "SUC", "lon": "SUC", "pic": "SUC", "bel": "SUC", "bre": "DSR", "nwy": "DSR"},
			check: func(t *testing.T, gs *GameState, _ *PhaseResult) {
				expectUnitAt(t, gs, "nth", England)
				expectUnitAt(t, gs, "eng", Germany)
				if gs.DislodgedAt("nth") == nil || gs.DislodgedAt("eng") == nil {
					t.Errorf("both convoying fleets should be dislodged, got %+v", gs.Dislodged)
				}
			},
		},
		{
			name: "6.F.23 second order paradox with two exclusive convoys",
			units: []Unit{
				fleet(England, "edi"), fleet(England, "yor"),
				army(France, "bre"), fleet(France, "eng"),
				fleet(Germany, "bel"), fleet(Germany, "lon"),
				fleet(Italy, "mao"), fleet(Italy, "iri"),
				army(Russia, "nwy"), fleet(Russia, "nth"),
			},
			orders: `england: F edi - nth
england: F yor S F edi - nth
france: A bre - lon
france: F eng C A bre - lon
germany: F bel S F eng
germany: F lon S F nth
italy: F mao - eng
italy: F iri S F mao - eng
russia: A nwy - bel
russia: F nth C A nwy - bel`,
			want: map[string]string{"edi": "BNC", "mao": "BNC", "bel": "SUC", "lon": "SUC"},
			check: func(t *testing.T, gs *GameState, _ *PhaseResult) {
				expectUnitAt(t, gs, "eng", France)
				expectUnitAt(t, gs, "nth", Russia)
				expectUnitAt(t, gs, "bre", France)
				expectUnitAt(t, gs, "nwy", Russia)
				expectNoDislodged(t, gs)
			},
		},
		{
			name: "6.F.24 second order paradox with no resolution",
			units: []Unit{
				fleet(England, "edi"), fleet(England, "lon"), fleet(England, "iri"), fleet(England, "mao"),
				army(France, "bre"), fleet(France, "eng"), fleet(France, "bel"),
				army(Russia, "nwy"), fleet(Russia, "nth"),
			},
			orders: `england: F edi - nth
england: F lon S F edi - nth
england: F iri - eng
england: F mao S F iri - eng
france: A bre - lon
france: F eng C A bre - lon
france: F bel S F eng
russia: A nwy - bel
russia: F nth C A nwy - bel`,
			want: map[string]string{"edi": "SUC", "lon": "SUC", "iri": "BNC", "bel": "SUC", "nwy": "DSR"},
			check: func(t *testing.T, gs *GameState, _ *PhaseResult) {
				expectUnitAt(t, gs, "nth", England)
				expectUnitAt(t, gs, "eng", France)
				expectUnitAt(t, gs, "bre", France)
				if len(gs.Dislodged) != 1 || gs.DislodgedAt("nth") == nil {
					t.Errorf("only the Russian fleet in nth should be dislodged, got %+v", gs.Dislodged)
				}
			},
		},
	})
}

// === DATC 6.G: CONVOYING TO ADJACENT PLACES ===

func TestDATC_6G_AdjacentConvoys(t *testing.T) {
	units := []Unit{army(England, "nwy"), fleet(England, "ska"), army(Russia, "swe")}
	runDATC(t, []datcCase{
		{
			name:  "6.G.1 two units can swap places by convoy",
			units: units,
			orders: `england: A nwy - swe
england: F ska C A nwy - swe
russia: A swe - nwy`,
			want: map[string]string{"nwy": "SUC", "ska": "SUC", "swe": "SUC"},
			check: func(t *testing.T, gs *GameState, _ *PhaseResult) {
				expectUnitAt(t, gs, "swe", England)
				expectUnitAt(t, gs, "nwy", Russia)
			},
		},
		{
			name:  "explicit rules: unordered convoy is a head to head",
			rules: DPTGRules(),
			units: units,
			orders: `england: A nwy - swe
england: F ska C A nwy - swe
russia: A swe - nwy`,
			want: map[string]string{"nwy": "BNC", "ska": "NSO", "swe": "BNC"},
		},
		{
			name:  "explicit rules: convoy path given",
			rules: DAIDERules(),
			units: units,
			orders: `england: A nwy - swe via ska
england: F ska C A nwy - swe
russia: A swe - nwy`,
			want: map[string]string{"nwy": "SUC", "ska": "SUC", "swe": "SUC"},
		},
	})
}

// === Illegal orders kept under AcceptIllegal ===

func TestAcceptedIllegalOrders(t *testing.T) {
	runDATC(t, []datcCase{
		{
			name:  "illegal move acts as a hold",
			rules: DAIDERules(),
			units: []Unit{army(France, "par"), army(Germany, "bur")},
			orders: `france: A par - lon
germany: A bur - par`,
			want: map[string]string{"par": "FAR", "bur": "BNC"},
			check: func(t *testing.T, gs *GameState, res *PhaseResult) {
				if len(res.Rejected) != 0 {
					t.Errorf("expected no rejected orders, got %v", res.Rejected)
				}
				expectUnitAt(t, gs, "par", France)
			},
		},
	})
}

// === Duplicate orders ===

func TestDuplicateOrders(t *testing.T) {
	orders := `france: A par - bur
france: A par - pic`
	for _, tc := range []struct {
		p    Precedence
		dest string
	}{
		{PrecedenceFirst, "bur"},
		{PrecedenceLast, "pic"},
		{PrecedenceNone, "par"},
	} {
		t.Run(tc.p.String(), func(t *testing.T) {
			rules := DefaultRules()
			rules.DuplicateOrders = tc.p
			gs := stateWith(army(France, "par"))
			res := adjudicate(t, gs, rules, orders)
			expectUnitAt(t, gs, tc.dest, France)
			for _, r := range res.Rejected {
				if r.Result != FLD {
					t.Errorf("rejected duplicate: got %s, want FLD", r.Codes())
				}
			}
		})
	}
}
