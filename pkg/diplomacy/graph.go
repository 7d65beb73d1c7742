package diplomacy

import (
	"sort"

	"github.com/rs/zerolog"
)

// unitNode is the per-unit bookkeeping of one movement adjudication.
type unitNode struct {
	unit  Unit
	order *Order

	// preset is a result fixed before resolution: NSO for unmatched
	// supports and convoys. note carries the legality code of an accepted
	// illegal order.
	preset Result
	note   Note

	dec       [numDecisionKinds]handle
	supports  []handle
	routes    [][]string // candidate convoy routes seeded into the path
	dislodger int        // unit index of the successful attacker, or -1
}

func (u *unitNode) hasResult() bool {
	return u.preset != 0 || u.note != MBV
}

// graph is the decision arena for one movement phase. It is built from a
// board snapshot and an order set, resolved, and discarded.
type graph struct {
	m     *DiplomacyMap
	gs    *GameState
	rules Rules
	set   *OrderSet
	log   zerolog.Logger

	units    []unitNode
	at       map[string]int   // province -> unit index
	entering map[string][]int // province -> units moving in, in board order
	holds    map[string]handle
	intents  map[string]ConvoyIntent
	decs     []decision

	passes int // resolver passes, for termination checks
}

// newGraph builds the decision graph in three passes: decisions per unit,
// head-to-head and path decisions per mover, then dependency lists.
func newGraph(gs *GameState, m *DiplomacyMap, set *OrderSet, rules Rules, log zerolog.Logger) *graph {
	g := &graph{
		m:        m,
		gs:       gs,
		rules:    rules,
		set:      set,
		log:      log,
		units:    make([]unitNode, len(gs.Units)),
		at:       make(map[string]int, len(gs.Units)),
		entering: make(map[string][]int),
		holds:    make(map[string]handle),
		intents:  make(map[string]ConvoyIntent),
	}
	for i, u := range gs.Units {
		n := &g.units[i]
		n.unit = u
		n.dislodger = -1
		for k := range n.dec {
			n.dec[k] = noDecision
		}
		if o := set.For(u.Province); o != nil && o.Unit == u {
			n.order = o
			n.note = o.Note
		} else {
			n.order = &Order{Kind: OrderHold, Power: u.Power, Unit: u}
		}
		g.at[u.Province] = i
	}

	g.addUnitDecisions()
	g.addPathDecisions()
	for i := range g.decs {
		g.initDeps(handle(i))
	}
	return g
}

func (g *graph) add(kind decisionKind, unit int, prov string) handle {
	h := handle(len(g.decs))
	g.decs = append(g.decs, decision{kind: kind, unit: unit, prov: prov, max: unbounded})
	if unit >= 0 {
		g.units[unit].dec[kind] = h
	}
	return h
}

// addUnitDecisions is the first pass. Every unit gets a dislodge decision;
// movers get move, attack and prevent decisions and open a hold decision
// for their destination; matched convoys register their intent; matched
// supports get a support decision.
func (g *graph) addUnitDecisions() {
	for i := range g.units {
		n := &g.units[i]
		o := n.order
		g.add(decDislodge, i, "")
		switch {
		case o.IsMoving():
			dest := o.Dest.Province
			g.add(decMove, i, dest)
			g.add(decAttack, i, dest)
			g.add(decPrevent, i, dest)
			if len(g.entering[dest]) == 0 {
				g.holds[dest] = g.add(decHold, -1, dest)
			}
			g.entering[dest] = append(g.entering[dest], i)
		case o.IsConvoying():
			if o.Matches(g.set) && !(o.Note != MBV && g.rules.illegal(o.Note)) {
				g.intents[n.unit.Province] = ConvoyIntent{
					Army:  o.Target.Province,
					Dest:  o.Dest.Province,
					Power: n.unit.Power,
				}
			} else if !n.hasResult() {
				n.preset = NSO
			}
		case o.IsSupporting() && !n.hasResult():
			if o.Matches(g.set) {
				g.add(decSupport, i, o.Dest.Province)
			} else {
				n.preset = NSO
			}
		}
	}
}

// addPathDecisions is the second pass. Movers facing a head-to-head
// opponent get head and defend decisions; every mover gets a path decision
// seeded with its usable convoy routes. Supports are attached to the units
// they support.
func (g *graph) addPathDecisions() {
	for i := range g.units {
		n := &g.units[i]
		if n.dec[decMove] == noDecision {
			continue
		}
		o := n.order
		heads := len(g.battles(i)) > 0
		if heads {
			g.add(decHead, i, o.Dest.Province)
			g.add(decDefend, i, o.Dest.Province)
		}

		overland := true
		tryOverland := false
		var routes [][]string
		if o.IsConvoyed() {
			routes = o.ConvoyRoutes(g.intents, g.rules.PreferOwnConvoy)
			overland = false
			if o.MaybeOverland() {
				switch {
				case len(routes) == 0:
					overland = true
				case g.rules.AdjacentConvoy == AdjacentIntent:
					overland = !g.ownFleetConvoys(n.unit)
				case g.rules.AdjacentConvoy == AdjacentAlways:
				case heads:
					tryOverland = g.rules.AdjacentConvoy == AdjacentUnlessUndisrupted
				default:
					overland = true
				}
			}
		}
		if overland {
			routes = nil
		}

		h := g.add(decPath, i, o.Dest.Province)
		p := &g.decs[h]
		p.overland = overland
		p.disruptAll = g.rules.ConvoyDisruption == DisruptAll
		p.backup = tryOverland
		n.routes = routes
		for ri, r := range routes {
			var fleets []handle
			for _, prov := range r {
				if f, ok := g.at[prov]; ok {
					fleets = append(fleets, g.units[f].dec[decDislodge])
				}
			}
			p.routes = append(p.routes, fleets)
			p.routeIdx = append(p.routeIdx, ri)
		}
		if !overland && p.routes == nil {
			p.routes = [][]handle{}
		}
		if n.hasResult() {
			p.failed = true
		}
	}

	for i := range g.units {
		n := &g.units[i]
		if h := n.dec[decSupport]; h != noDecision {
			if t, ok := g.at[n.order.Target.Province]; ok {
				g.units[t].supports = append(g.units[t].supports, h)
			}
		}
	}
}

// ownFleetConvoys reports whether a fleet of the army's own power was
// ordered to convoy it, which shows the intent to travel by sea.
func (g *graph) ownFleetConvoys(army Unit) bool {
	for _, in := range g.intents {
		if in.Army == army.Province && in.Power == army.Power {
			return true
		}
	}
	return false
}

// battles returns the units in i's destination that are moving into i's
// province: its head-to-head opponents.
func (g *graph) battles(i int) []int {
	n := &g.units[i]
	occ, ok := g.at[n.order.Dest.Province]
	if !ok {
		return nil
	}
	for _, e := range g.entering[n.unit.Province] {
		if e == occ {
			return []int{occ}
		}
	}
	return nil
}

// initDeps is the third pass; it runs exactly once per decision.
func (g *graph) initDeps(h handle) {
	d := &g.decs[h]
	switch d.kind {
	case decMove:
		n := &g.units[d.unit]
		d.deps = []handle{n.dec[decAttack], g.holds[d.prov]}
		for _, b := range g.battles(d.unit) {
			d.deps = append(d.deps, g.units[b].dec[decDefend])
		}
		for _, e := range g.entering[d.prov] {
			if e != d.unit {
				d.deps = append(d.deps, g.units[e].dec[decPrevent])
			}
		}

	case decSupport:
		n := &g.units[d.unit]
		d.deps = []handle{n.dec[decDislodge]}
		for _, e := range g.entering[n.unit.Province] {
			if g.units[e].unit.Province != d.prov {
				d.deps = append(d.deps, g.units[e].dec[decAttack])
			}
		}

	case decDislodge:
		n := &g.units[d.unit]
		d.deps = []handle{n.dec[decMove]}
		for _, e := range g.entering[n.unit.Province] {
			d.deps = append(d.deps, g.units[e].dec[decMove])
		}

	case decPath:
		seen := make(map[handle]bool)
		for _, r := range d.routes {
			for _, f := range r {
				if !seen[f] {
					seen[f] = true
					d.deps = append(d.deps, f)
				}
			}
		}
		sort.Slice(d.deps, func(i, j int) bool { return d.deps[i] < d.deps[j] })

	case decHead:
		n := &g.units[d.unit]
		d.deps = []handle{n.dec[decPath]}
		for _, b := range g.battles(d.unit) {
			d.deps = append(d.deps, g.units[b].dec[decHead])
		}

	case decAttack:
		n := &g.units[d.unit]
		d.deps = []handle{n.dec[decPath]}
		for _, b := range g.battles(d.unit) {
			d.deps = append(d.deps, g.units[b].dec[decHead])
			d.nHeads++
		}
		if occ, ok := g.at[d.prov]; ok {
			d.deps = append(d.deps, g.units[occ].dec[decMove])
			d.nMoves = 1
		}
		d.deps = append(d.deps, n.supports...)

	case decHold:
		occ, ok := g.at[d.prov]
		if !ok {
			return
		}
		o := &g.units[occ]
		if o.order.IsMoving() {
			d.deps = []handle{o.dec[decMove]}
		} else {
			d.deps = append([]handle{noDecision}, o.supports...)
		}

	case decPrevent:
		n := &g.units[d.unit]
		d.deps = []handle{n.dec[decPath], n.dec[decHead]}
		for _, b := range g.battles(d.unit) {
			d.deps = append(d.deps, g.units[b].dec[decMove])
		}
		d.deps = append(d.deps, n.supports...)

	case decDefend:
		n := &g.units[d.unit]
		d.deps = append([]handle{n.dec[decHead]}, n.supports...)
	}
}

// pending returns every undecided decision in evaluation order.
func (g *graph) pending() []handle {
	var list []handle
	for k := decisionKind(0); k < numDecisionKinds; k++ {
		for i := range g.decs {
			d := &g.decs[i]
			if d.kind == k && !d.decided() {
				list = append(list, handle(i))
			}
		}
	}
	return list
}
