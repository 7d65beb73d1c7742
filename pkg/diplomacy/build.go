package diplomacy

import (
	"sort"

	"github.com/rs/zerolog"
)

// resolveBuilds adjudicates the adjustment phase power by power. Each
// order is checked again against the running surplus (units minus
// centers) and the board as earlier orders left it. Missing removals are
// filled by civil disorder; missing builds are waived.
func resolveBuilds(gs *GameState, m *DiplomacyMap, set *OrderSet, rules Rules, log zerolog.Logger) []ResolvedOrder {
	byPower := make(map[Power][]*Order)
	for _, o := range set.Orders() {
		if o.Kind.Phase() == PhaseBuild {
			byPower[o.Power] = append(byPower[o.Power], o)
		}
	}

	var results []ResolvedOrder
	for _, power := range adjustingPowers(gs, byPower) {
		surplus := gs.UnitCount(power) - gs.SupplyCenterCount(power)
		orders := byPower[power]
		blocked := precedenceNotes(orders, surplus, rules)

		for _, o := range orders {
			note := o.Note
			if note == MBV {
				note = blocked[o]
			}
			if note == MBV {
				note = buildNote(o, gs, m, surplus)
			}
			if note != MBV {
				results = append(results, ResolvedOrder{Order: *o, Result: FLD, Note: note})
				continue
			}
			switch o.Kind {
			case OrderBuild:
				gs.Units = append(gs.Units, o.Unit)
				surplus++
			case OrderWaive:
				surplus++
			case OrderRemove:
				gs.removeUnitAt(o.Unit.Province)
				surplus--
			}
			results = append(results, ResolvedOrder{Order: *o, Result: SUC})
		}

		if surplus > 0 {
			for _, u := range civilDisorder(power, surplus, gs, m) {
				log.Debug().Str("power", string(power)).Str("unit", u.String()).Msg("civil disorder removal")
				gs.removeUnitAt(u.Province)
				results = append(results, ResolvedOrder{
					Order:  Order{Kind: OrderRemove, Power: power, Unit: u},
					Result: SUC,
				})
			}
		}
		for ; surplus < 0; surplus++ {
			results = append(results, ResolvedOrder{
				Order:  Order{Kind: OrderWaive, Power: power},
				Result: SUC,
			})
		}
	}
	return results
}

// adjustingPowers returns, in standard order, every power that gave
// orders or whose unit count differs from its center count.
func adjustingPowers(gs *GameState, byPower map[Power][]*Order) []Power {
	var powers []Power
	for _, p := range AllPowers() {
		if len(byPower[p]) > 0 || gs.UnitCount(p) != gs.SupplyCenterCount(p) {
			powers = append(powers, p)
		}
	}
	return powers
}

// precedenceNotes applies the configured precedence to a power's orders
// when it asked for more builds or removals than allowed, or for several
// builds in one province. Orders it blocks map to the note they fail with;
// with PrecedenceFirst the running checks already favor earlier orders.
func precedenceNotes(orders []*Order, surplus int, rules Rules) map[*Order]Note {
	blocked := make(map[*Order]Note)

	areas := make(map[string][]*Order)
	for _, o := range orders {
		if o.Kind == OrderBuild && o.Note == MBV {
			areas[o.Unit.Province] = append(areas[o.Unit.Province], o)
		}
	}
	for _, list := range areas {
		if len(list) < 2 {
			continue
		}
		switch rules.MultipleBuildsOneArea {
		case PrecedenceLast:
			for _, o := range list[:len(list)-1] {
				blocked[o] = ESC
			}
		case PrecedenceNone:
			for _, o := range list {
				blocked[o] = ESC
			}
		}
	}

	var gains, losses []*Order
	for _, o := range orders {
		if o.Note != MBV || blocked[o] != MBV {
			continue
		}
		switch o.Kind {
		case OrderBuild, OrderWaive:
			gains = append(gains, o)
		case OrderRemove:
			losses = append(losses, o)
		}
	}
	limit := func(list []*Order, allowed int, p Precedence, note Note) {
		if allowed < 0 {
			allowed = 0
		}
		if len(list) <= allowed {
			return
		}
		switch p {
		case PrecedenceLast:
			for _, o := range list[:len(list)-allowed] {
				blocked[o] = note
			}
		case PrecedenceNone:
			for _, o := range list {
				blocked[o] = note
			}
		}
	}
	limit(gains, -surplus, rules.TooManyBuilds, NMB)
	limit(losses, surplus, rules.TooManyRemovals, NMR)
	return blocked
}

// civilDisorder picks count units of power to remove: farthest from any
// home center first, fleets before armies, then by province.
func civilDisorder(power Power, count int, gs *GameState, m *DiplomacyMap) []Unit {
	units := gs.UnitsOf(power)
	homes := m.HomeCenters(power)
	dist := make(map[string]int, len(units))
	for _, u := range units {
		dist[u.Province] = m.Distance(u.Province, homes)
	}
	sort.SliceStable(units, func(i, j int) bool {
		a, b := units[i], units[j]
		if dist[a.Province] != dist[b.Province] {
			return dist[a.Province] > dist[b.Province]
		}
		if a.Type != b.Type {
			return a.Type == Fleet
		}
		return a.Province < b.Province
	})
	if count > len(units) {
		count = len(units)
	}
	return units[:count]
}
