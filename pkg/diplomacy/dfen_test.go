package diplomacy

import (
	"slices"
	"strings"
	"testing"
)

// convoyedAttack dislodges the French army in bel with a supported,
// convoyed English army.
var convoyedAttack = scenario{
	name:  "convoyed attack",
	units: []Unit{army(England, "lon"), fleet(England, "nth"), fleet(England, "eng"), army(France, "bel")},
	orders: `england: A lon - bel
england: F nth C A lon - bel
england: F eng S A lon - bel`,
}

// reencode decodes s and checks that encoding the result gives s back.
func reencode(t *testing.T, s string) *GameState {
	t.Helper()
	gs, err := DecodeDFEN(s)
	if err != nil {
		t.Fatalf("DecodeDFEN(%q): %v", s, err)
	}
	if got := EncodeDFEN(gs); got != s {
		t.Fatalf("re-encoded board differs:\n got  %s\n want %s", got, s)
	}
	return gs
}

func TestDFENInitialBoard(t *testing.T) {
	s := EncodeDFEN(NewInitialState())
	if !strings.HasPrefix(s, "1901sm/Aabud,Aftri,Aavie,Efedi,") {
		t.Errorf("unexpected opening: %s", s)
	}
	if !strings.Contains(s, ",Rfstp.sc,") {
		t.Errorf("split coast not encoded with a dot: %s", s)
	}
	if !strings.HasSuffix(s, ",Ntun/-") {
		t.Errorf("neutral centres should come last and dislodged be empty: %s", s)
	}

	gs := reencode(t, s)
	if len(gs.Units) != 22 || len(gs.SupplyCenters) != 34 || gs.Dislodged != nil {
		t.Errorf("got %d units, %d centres, %v dislodged", len(gs.Units), len(gs.SupplyCenters), gs.Dislodged)
	}
	if u := gs.UnitAt("stp"); u == nil || u.Type != Fleet || u.Coast != SouthCoast {
		t.Errorf("stp: got %v", u)
	}
}

func TestDFENRecordsConvoyedDislodgement(t *testing.T) {
	gs := stateWith(convoyedAttack.units...)
	res := adjudicate(t, gs, DefaultRules(), convoyedAttack.orders)
	expectCodes(t, res, map[string]string{"lon": "SUC", "nth": "SUC", "eng": "SUC", "bel": "RET"})

	AdvanceState(gs, StandardMap())
	s := EncodeDFEN(gs)
	if want := "1901sr/Eabel,Efeng,Efnth/-/Fabel<lon*="; !strings.HasPrefix(s, want) {
		t.Errorf("got %s, want prefix %s", s, want)
	}

	decoded := reencode(t, s)
	want := gs.DislodgedAt("bel")
	got := decoded.DislodgedAt("bel")
	if got == nil || want == nil {
		t.Fatalf("dislodged army lost: want %+v, got %+v", want, got)
	}
	if !got.ByConvoy || got.AttackerFrom != "lon" {
		t.Errorf("attacker: got %+v", got)
	}
	if !slices.Equal(got.Retreats, want.Retreats) || len(got.Retreats) != 4 {
		t.Errorf("retreats: got %v, want %v", got.Retreats, want.Retreats)
	}
	if !got.CanRetreatTo(UnitPosition{Province: "pic"}) {
		t.Errorf("pic should be open, retreats %v", got.Retreats)
	}
	if got.CanRetreatTo(UnitPosition{Province: "lon"}) {
		t.Error("lon is not next to bel")
	}
}

func TestDFENRetreatSets(t *testing.T) {
	base := func(d ...DislodgedUnit) *GameState {
		gs := retreatState([]Unit{fleet(England, "eng")}, d...)
		gs.Season = Fall
		return gs
	}
	tests := []struct {
		name      string
		gs        *GameState
		dislodged string
	}{
		{
			name:      "unknown",
			gs:        base(DislodgedUnit{Unit: army(Austria, "ser"), DislodgedFrom: "ser", AttackerFrom: "bul"}),
			dislodged: "Aaser<bul",
		},
		{
			name: "none left",
			gs: base(DislodgedUnit{
				Unit: fleet(France, "bre"), DislodgedFrom: "bre", AttackerFrom: "mao", Retreats: []UnitPosition{},
			}),
			dislodged: "Ffbre<mao=",
		},
		{
			name: "split coasts",
			gs: base(DislodgedUnit{
				Unit: fleet(France, "mao"), DislodgedFrom: "mao", AttackerFrom: "eng",
				Retreats: []UnitPosition{{Province: "spa", Coast: NorthCoast}, {Province: "spa", Coast: SouthCoast}, {Province: "por"}},
			}),
			dislodged: "Ffmao<eng=spa.nc|spa.sc|por",
		},
		{
			name: "sorted by power",
			gs: base(
				DislodgedUnit{Unit: fleet(Russia, "sev"), DislodgedFrom: "sev", AttackerFrom: "bla"},
				DislodgedUnit{Unit: army(Austria, "ser"), DislodgedFrom: "ser", AttackerFrom: "bul", Retreats: positions("alb")},
			),
			dislodged: "Aaser<bul=alb,Rfsev<bla",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := EncodeDFEN(tt.gs)
			want := "1901fr/Efeng/-/" + tt.dislodged
			if s != want {
				t.Fatalf("got %s, want %s", s, want)
			}
			gs := reencode(t, s)
			for _, d := range tt.gs.Dislodged {
				got := gs.DislodgedAt(d.DislodgedFrom)
				if got == nil || (got.Retreats == nil) != (d.Retreats == nil) || !slices.Equal(got.Retreats, d.Retreats) {
					t.Errorf("%s: got %+v, want %+v", d.DislodgedFrom, got, d)
				}
			}
		})
	}
}

// A board that went through the codec must adjudicate exactly like the
// original.
func TestDFENPreservesAdjudication(t *testing.T) {
	for _, sc := range append(slices.Clone(resolverScenarios), convoyedAttack) {
		t.Run(sc.name, func(t *testing.T) {
			direct := stateWith(sc.units...)
			viaCodec := reencode(t, EncodeDFEN(direct))

			first := adjudicate(t, direct, DefaultRules(), sc.orders)
			second := adjudicate(t, viaCodec, DefaultRules(), sc.orders)
			if len(first.Results) != len(second.Results) {
				t.Fatalf("results: %d vs %d", len(first.Results), len(second.Results))
			}
			for _, r := range first.Results {
				prov := r.Order.Unit.Province
				if got := resultAt(t, second, prov).Codes(); got != r.Codes() {
					t.Errorf("%s: %s after the codec, %s before", prov, got, r.Codes())
				}
			}

			AdvanceState(direct, StandardMap())
			AdvanceState(viaCodec, StandardMap())
			if a, b := EncodeDFEN(direct), EncodeDFEN(viaCodec); a != b {
				t.Errorf("next boards differ:\n %s\n %s", a, b)
			}
		})
	}
}

func TestDFENAcrossAYear(t *testing.T) {
	m := StandardMap()
	gs := NewInitialState()
	turns := []string{
		`france: A par - bur
france: A mar - spa
france: F bre - mao
germany: A mun - ruh`,
		`france: F mao - por
france: A spa H`,
		`france: A mar B
france: F bre B`,
	}
	labels := []string{"1901fm/", "1901fb/", "1902sm/"}
	for i, orders := range turns {
		adjudicate(t, gs, DefaultRules(), orders)
		AdvanceState(gs, m)
		s := EncodeDFEN(gs)
		if !strings.HasPrefix(s, labels[i]) {
			t.Fatalf("turn %d: got %s, want prefix %s", i, s, labels[i])
		}
		gs = reencode(t, s)
	}
	if gs.SupplyCenters["por"] != France || gs.SupplyCenters["spa"] != France {
		t.Errorf("centres: por=%q spa=%q", gs.SupplyCenters["por"], gs.SupplyCenters["spa"])
	}
	if gs.UnitCount(France) != 5 {
		t.Errorf("france should have built twice, has %d units", gs.UnitCount(France))
	}
}

func TestDecodeDFENRejects(t *testing.T) {
	bad := map[string]string{
		"three sections":     "1901sm/Aavie/-",
		"five sections":      "1901sm/Aavie/-/-/-",
		"short phase":        "1s/-/-/-",
		"bad year":           "19o1sm/-/-/-",
		"bad season":         "1901wm/-/-/-",
		"bad phase":          "1901sx/-/-/-",
		"neutral unit":       "1901sm/Navie/-/-",
		"unknown power":      "1901sm/Xavie/-/-",
		"bad unit type":      "1901sm/Acvie/-/-",
		"short province":     "1901sm/Aavi/-/-",
		"upper province":     "1901sm/AaVIE/-/-",
		"bad coast":          "1901sm/Rfstp.xc/-/-",
		"empty entry":        "1901sm/Aavie,,Aabud/-/-",
		"bad centre":         "1901sm/-/Qvie/-",
		"long centre":        "1901sm/-/Avien/-",
		"no attacker":        "1901sr/-/-/Aaser",
		"bad attacker":       "1901sr/-/-/Aaser<bu",
		"bad retreat":        "1901sr/-/-/Aaser<bul=al",
		"bad retreat coast":  "1901sr/-/-/Ffmao<eng=spa.qc",
		"dislodged no power": "1901sr/-/-/aser<bul",
	}
	for name, s := range bad {
		if _, err := DecodeDFEN(s); err == nil {
			t.Errorf("%s: DecodeDFEN(%q) should fail", name, s)
		}
	}
}

func FuzzDFEN(f *testing.F) {
	f.Add(EncodeDFEN(NewInitialState()))
	f.Add("1901sr/Eabel,Efeng,Efnth/-/Fabel<lon*=bur|hol|pic|ruh")
	f.Add("1901fr/Efeng/-/Ffmao<eng=spa.nc|spa.sc|por")
	f.Add("1901fb/Fabur,Famar,Faspa,Ffpor/Fbre,Fmar,Fpar,Fpor,Fspa,Nbel/-")

	f.Fuzz(func(t *testing.T, s string) {
		gs, err := DecodeDFEN(s)
		if err != nil {
			return
		}
		once := EncodeDFEN(gs)
		again, err := DecodeDFEN(once)
		if err != nil {
			t.Fatalf("re-decoding %q: %v", once, err)
		}
		if twice := EncodeDFEN(again); twice != once {
			t.Fatalf("encoding not stable:\n %s\n %s", once, twice)
		}
	})
}
