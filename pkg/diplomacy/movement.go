package diplomacy

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Adjudicator resolves phases on one map under one rule configuration. It
// holds no state between calls and may be shared by concurrent games.
type Adjudicator struct {
	Map    *DiplomacyMap
	Rules  Rules
	Logger zerolog.Logger
}

// NewAdjudicator returns an adjudicator for m. A nil map selects the
// standard board.
func NewAdjudicator(m *DiplomacyMap, rules Rules, log zerolog.Logger) *Adjudicator {
	if m == nil {
		m = StandardMap()
	}
	return &Adjudicator{Map: m, Rules: rules, Logger: log}
}

// PhaseResult is the outcome of adjudicating one phase.
type PhaseResult struct {
	Year   int       `json:"year"`
	Season Season    `json:"season"`
	Phase  PhaseType `json:"phase"`

	// Results holds one entry per adjudicated order: per unit in board
	// order for movement and retreat phases, per power for builds.
	Results []ResolvedOrder `json:"results"`
	// Rejected holds submitted orders that were not adjudicated.
	Rejected []ResolvedOrder `json:"rejected,omitempty"`

	Dislodged []DislodgedUnit `json:"dislodged,omitempty"`

	Decisions int `json:"decisions,omitempty"`
	Passes    int `json:"passes,omitempty"`
}

// Adjudicate validates the submitted orders and resolves the current
// phase, mutating gs to the post-phase board. It does not advance the
// season; see AdvanceState.
func (a *Adjudicator) Adjudicate(gs *GameState, submitted map[Power][]DSONOrder) (*PhaseResult, error) {
	if err := a.Rules.Validate(); err != nil {
		return nil, err
	}
	set, rejected := PrepareOrders(submitted, gs, a.Map, a.Rules)
	res, err := a.Resolve(gs, set)
	if err != nil {
		return nil, err
	}
	res.Rejected = rejected
	return res, nil
}

// Resolve adjudicates an already prepared order set.
func (a *Adjudicator) Resolve(gs *GameState, set *OrderSet) (*PhaseResult, error) {
	res := &PhaseResult{Year: gs.Year, Season: gs.Season, Phase: gs.Phase}
	log := a.Logger.With().Int("year", gs.Year).Str("season", string(gs.Season)).Str("phase", string(gs.Phase)).Logger()

	switch gs.Phase {
	case PhaseMovement:
		g := newGraph(gs, a.Map, set, a.Rules, log)
		g.resolve()
		res.Results = g.results()
		res.Decisions = len(g.decs)
		res.Passes = g.passes
		g.apply()
		res.Dislodged = gs.Dislodged
	case PhaseRetreat:
		res.Results = resolveRetreats(gs, set)
	case PhaseBuild:
		res.Results = resolveBuilds(gs, a.Map, set, a.Rules, log)
	default:
		return nil, fmt.Errorf("adjudicate: unknown phase %q", gs.Phase)
	}
	log.Debug().Int("orders", len(res.Results)).Int("passes", res.Passes).Msg("phase adjudicated")
	return res, nil
}

// results translates the decided graph into one result per unit. It must
// run before apply, while the graph still reflects the starting board.
func (g *graph) results() []ResolvedOrder {
	base := make([]Result, len(g.units))
	done := make([]bool, len(g.units))
	var baseOf func(i int) Result
	baseOf = func(i int) Result {
		if done[i] {
			return base[i]
		}
		done[i] = true
		base[i] = g.baseResult(i, baseOf)
		return base[i]
	}

	out := make([]ResolvedOrder, len(g.units))
	for i := range g.units {
		n := &g.units[i]
		r := ResolvedOrder{Order: *n.order, Note: n.note}
		r.Result = baseOf(i)
		if g.passed(n.dec[decDislodge]) {
			r.Result |= RET
			r.Retreats = g.retreats(i)
		} else if r.Result == 0 && n.note == MBV {
			r.Result = SUC
		}
		out[i] = r
	}
	return out
}

// baseResult is the outcome of a unit's order without the RET flag; zero
// means the order has no outcome of its own.
func (g *graph) baseResult(i int, baseOf func(int) Result) Result {
	n := &g.units[i]
	if n.hasResult() {
		return n.preset
	}
	o := n.order
	switch {
	case o.IsMoving():
		path := g.dec(n.dec[decPath])
		switch {
		case path.passed && g.passed(n.dec[decMove]):
			return SUC
		case path.passed:
			return BNC
		case len(path.routes) > 0:
			return DSR
		default:
			return NSO
		}
	case o.IsSupporting():
		if g.passed(n.dec[decSupport]) {
			return SUC
		}
		return CUT
	case o.IsConvoying():
		army, ok := g.at[o.Target.Province]
		if !ok {
			return NSO
		}
		path := g.dec(g.units[army].dec[decPath])
		if path == nil || len(path.routes) == 0 {
			return NSO
		}
		for _, h := range path.routes[0] {
			if h == n.dec[decDislodge] {
				return baseOf(army)
			}
		}
		return NSO
	}
	return 0
}

// retreats lists the positions a dislodged unit may retreat to.
func (g *graph) retreats(i int) []UnitPosition {
	n := &g.units[i]
	out := []UnitPosition{}
	for _, pos := range g.m.Destinations(n.unit.Province, n.unit.Coast, n.unit.Type == Fleet) {
		if g.validRetreat(pos.Province, n.dislodger) {
			out = append(out, pos)
		}
	}
	return out
}

func (g *graph) validRetreat(prov string, dislodger int) bool {
	if dislodger >= 0 {
		d := &g.units[dislodger]
		if d.unit.Province == prov && !(g.rules.RetreatToConvoyOrigin && g.convoyed(dislodger)) {
			return false
		}
	}
	if occ, ok := g.at[prov]; ok {
		o := &g.units[occ]
		if !o.order.IsMoving() || !g.passed(o.dec[decMove]) {
			return false
		}
	}
	if entrants := g.entering[prov]; len(entrants) > 0 {
		if g.decs[g.holds[prov]].max > 0 {
			return false
		}
		for _, e := range entrants {
			if g.decs[g.units[e].dec[decPrevent]].max > 0 {
				return false
			}
		}
	}
	return true
}

// convoyed reports whether the unit's move succeeded by sea.
func (g *graph) convoyed(i int) bool {
	path := g.dec(g.units[i].dec[decPath])
	return path != nil && path.passed && !path.overland && len(path.routes) > 0
}

// apply moves the successful units and lifts the dislodged ones off the
// board into gs.Dislodged.
func (g *graph) apply() {
	units := make([]Unit, 0, len(g.units))
	var dislodged []DislodgedUnit
	for i := range g.units {
		n := &g.units[i]
		u := n.unit
		if g.passed(n.dec[decDislodge]) {
			d := DislodgedUnit{
				Unit:          u,
				DislodgedFrom: u.Province,
				Retreats:      g.retreats(i),
			}
			if n.dislodger >= 0 {
				d.AttackerFrom = g.units[n.dislodger].unit.Province
				d.ByConvoy = g.convoyed(n.dislodger)
			}
			dislodged = append(dislodged, d)
			continue
		}
		if n.order.IsMoving() && g.passed(n.dec[decMove]) && g.passed(n.dec[decPath]) {
			u.Province = n.order.Dest.Province
			u.Coast = n.order.Dest.Coast
		}
		units = append(units, u)
	}
	g.gs.Units = units
	g.gs.Dislodged = dislodged
}
