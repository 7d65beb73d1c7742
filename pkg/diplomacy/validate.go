package diplomacy

import (
	"fmt"
	"sort"
)

// ValidationError describes why an order is invalid.
type ValidationError struct {
	Order Order
	Note  Note
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid order %s: %s", e.Order, e.Note)
}

// NewOrder builds an Order from a parsed DSON order given by power against
// the current board. The returned order always carries a Note; orders whose
// note is not MBV are illegal.
func NewOrder(raw DSONOrder, power Power, gs *GameState, m *DiplomacyMap, rules Rules) Order {
	o := Order{Power: power}
	if kind := dsonKind(raw.Type, gs.Phase); kind.Phase() != gs.Phase {
		o.Kind = kind
		if kind != OrderWaive {
			o.Unit = Unit{Type: raw.UnitType, Power: power, Province: raw.Location, Coast: raw.Coast}
		}
		o.Note = NRS
		return o
	}
	switch gs.Phase {
	case PhaseRetreat:
		newRetreatOrder(&o, raw, gs, m, rules)
	case PhaseBuild:
		newBuildOrder(&o, raw, gs, m)
	default:
		newMovementOrder(&o, raw, gs, m, rules)
	}
	return o
}

// ValidateOrder returns a *ValidationError when o is illegal.
func ValidateOrder(o Order) error {
	if o.Note != MBV {
		return &ValidationError{Order: o, Note: o.Note}
	}
	return nil
}

// orderedUnit finds the unit a raw order refers to. A mismatched unit type
// makes the order refer to no unit; a wrong coast on the unit is ignored.
func orderedUnit(raw DSONOrder, power Power, gs *GameState, m *DiplomacyMap) (Unit, Note) {
	asGiven := Unit{Type: raw.UnitType, Power: power, Province: raw.Location, Coast: raw.Coast}
	if _, ok := m.Provinces[raw.Location]; !ok {
		return asGiven, NSP
	}
	u := gs.UnitAt(raw.Location)
	if u == nil || u.Type != raw.UnitType {
		return asGiven, NSU
	}
	if u.Power != power {
		return *u, NYU
	}
	return *u, MBV
}

// referencedUnit finds a unit named inside another order.
func referencedUnit(ut UnitType, prov string, coast Coast, gs *GameState, m *DiplomacyMap) (Unit, Note) {
	asGiven := Unit{Type: ut, Province: prov, Coast: coast}
	if _, ok := m.Provinces[prov]; !ok {
		return asGiven, NSP
	}
	u := gs.UnitAt(prov)
	if u == nil || u.Type != ut {
		return asGiven, NSU
	}
	return *u, MBV
}

// orderedCoast resolves a destination for a unit. Coasts named for armies
// or for provinces without split coasts are ignored. A fleet that can reach
// exactly one coast of a split province gets that coast.
func orderedCoast(u Unit, prov string, coast Coast, m *DiplomacyMap, rules Rules) (UnitPosition, Note) {
	if _, ok := m.Provinces[prov]; !ok {
		return UnitPosition{Province: prov, Coast: coast}, NSP
	}
	pos := UnitPosition{Province: prov}
	if u.Type == Army || !m.HasCoasts(prov) {
		return pos, MBV
	}
	if coast != NoCoast && m.HasCoast(prov, coast) {
		pos.Coast = coast
		return pos, MBV
	}
	reachable := m.FleetCoastsTo(u.Province, u.Coast, prov)
	sort.Slice(reachable, func(i, j int) bool { return reachable[i] < reachable[j] })
	switch {
	case len(reachable) == 1:
		pos.Coast = reachable[0]
	case len(reachable) > 1 && rules.AmbiguousCoast == CoastDefault:
		pos.Coast = reachable[0]
	case len(reachable) > 1:
		return pos, CST
	}
	return pos, MBV
}

func canMoveTo(u Unit, dest UnitPosition, m *DiplomacyMap) bool {
	if u.Province == dest.Province {
		return false
	}
	return m.Adjacent(u.Province, u.Coast, dest.Province, dest.Coast, u.Type == Fleet)
}

// canBeConvoyed reports whether u is an army standing on a coast.
func canBeConvoyed(u Unit, m *DiplomacyMap) bool {
	return u.Type == Army && m.IsCoastal(u.Province)
}

func newMovementOrder(o *Order, raw DSONOrder, gs *GameState, m *DiplomacyMap, rules Rules) {
	u, note := orderedUnit(raw, o.Power, gs, m)
	o.Unit = u
	o.Note = note

	switch raw.Type {
	case DSONHold:
		o.Kind = OrderHold
	case DSONMove:
		newMove(o, raw, gs, m, rules)
	case DSONSupportHold, DSONSupportMove:
		newSupport(o, raw, gs, m)
	case DSONConvoy:
		newConvoy(o, raw, gs, m)
	default:
		o.Kind = dsonKind(raw.Type, PhaseMovement)
		if o.Note == MBV {
			o.Note = NRS
		}
	}
}

func newMove(o *Order, raw DSONOrder, gs *GameState, m *DiplomacyMap, rules Rules) {
	o.Kind = OrderMove
	dest, dnote := orderedCoast(o.Unit, raw.Target, raw.TargetCoast, m, rules)
	o.Dest = dest
	if o.Note == MBV {
		o.Note = dnote
	}

	explicit := len(raw.Path) > 0 && rules.ConvoyPath != PathIgnored
	if canBeConvoyed(o.Unit, m) && (explicit || rules.AdjacentConvoy != AdjacentNever) {
		routes := m.ConvoyRoutes(gs, o.Unit.Province, dest.Province)
		switch {
		case explicit:
			o.Kind = OrderConvoyedMove
			o.Path = raw.Path
		case len(routes) == 0:
		case !canMoveTo(o.Unit, dest, m):
			o.Kind = OrderConvoyedMove
			if rules.ConvoyPath == PathRequired {
				routes = nil
			}
		case rules.AdjacentConvoy == AdjacentExplicit:
		default:
			o.MaybeConvoy = true
		}
		o.Routes = routes
	}

	if o.Note != MBV {
		return
	}
	if o.Kind == OrderConvoyedMove {
		o.Note = convoyedMoveNote(o, gs, m)
		return
	}
	if !canMoveTo(o.Unit, dest, m) {
		o.Note = FAR
	} else if o.Unit.Type == Fleet && m.HasCoasts(dest.Province) && dest.Coast == NoCoast {
		o.Note = CST
	}
}

func convoyNote(army Unit, dest string, routes [][]string, m *DiplomacyMap, routeOK func([]string) bool) Note {
	if !canBeConvoyed(army, m) {
		return NSA
	}
	if !m.IsCoastal(dest) {
		return FAR
	}
	for _, r := range routes {
		if routeOK(r) {
			return MBV
		}
	}
	return FAR
}

func convoyedMoveNote(o *Order, gs *GameState, m *DiplomacyMap) Note {
	note := convoyNote(o.Unit, o.Dest.Province, o.Routes, m, func([]string) bool { return true })
	if note != MBV || len(o.Path) == 0 {
		return note
	}
	for _, prov := range o.Path {
		if _, ok := m.Provinces[prov]; !ok {
			return NSP
		}
	}
	for _, prov := range o.Path {
		if gs.UnitAt(prov) == nil {
			return NSF
		}
	}
	for _, prov := range o.Path {
		if !m.IsSea(prov) {
			return NAS
		}
	}
	for _, prov := range o.Path {
		if gs.UnitAt(prov).Type != Fleet {
			return NSF
		}
	}
	for _, r := range o.Routes {
		if equalRoute(r, o.Path) {
			return MBV
		}
	}
	return FAR
}

func equalRoute(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func newSupport(o *Order, raw DSONOrder, gs *GameState, m *DiplomacyMap) {
	target, tnote := referencedUnit(raw.AuxUnitType, raw.AuxLocation, raw.AuxCoast, gs, m)
	o.Target = target
	if raw.Type == DSONSupportHold {
		o.Kind = OrderSupportHold
		o.Dest = UnitPosition{Province: target.Province}
	} else {
		o.Kind = OrderSupportMove
		o.Dest = UnitPosition{Province: raw.AuxTarget}
		if target.Type == Fleet && m.HasCoast(raw.AuxTarget, raw.AuxTargetCoast) {
			o.Dest.Coast = raw.AuxTargetCoast
		}
	}
	if o.Note != MBV {
		return
	}
	if tnote != MBV {
		o.Note = tnote
		return
	}
	if _, ok := m.Provinces[o.Dest.Province]; !ok {
		o.Note = NSP
		return
	}
	// Support reaches a province, whichever coast the supporter touches.
	reach := UnitPosition{Province: o.Dest.Province}
	if !canMoveTo(o.Unit, reach, m) {
		o.Note = FAR
		return
	}
	if o.Kind == OrderSupportMove {
		if target.Province == o.Dest.Province {
			o.Note = FAR
			return
		}
		if !canMoveTo(target, reach, m) && len(m.ConvoyRoutes(gs, target.Province, o.Dest.Province)) == 0 {
			o.Note = FAR
		}
	}
}

func newConvoy(o *Order, raw DSONOrder, gs *GameState, m *DiplomacyMap) {
	o.Kind = OrderConvoy
	target, tnote := referencedUnit(Army, raw.AuxLocation, raw.AuxCoast, gs, m)
	o.Target = target
	o.Dest = UnitPosition{Province: raw.AuxTarget}
	if _, ok := m.Provinces[target.Province]; ok {
		o.Routes = m.ConvoyRoutes(gs, target.Province, raw.AuxTarget)
	}
	if o.Note != MBV {
		return
	}
	switch {
	case !m.IsSea(o.Unit.Province):
		o.Note = NAS
	case o.Unit.Type != Fleet:
		o.Note = NSF
	case tnote == NSP:
		o.Note = NSP
	case tnote != MBV:
		o.Note = NSA
	default:
		if _, ok := m.Provinces[o.Dest.Province]; !ok {
			o.Note = NSP
			return
		}
		fleet := o.Unit.Province
		o.Note = convoyNote(target, o.Dest.Province, o.Routes, m, func(r []string) bool {
			for _, p := range r {
				if p == fleet {
					return true
				}
			}
			return false
		})
	}
}

func newRetreatOrder(o *Order, raw DSONOrder, gs *GameState, m *DiplomacyMap, rules Rules) {
	o.Kind = dsonKind(raw.Type, PhaseRetreat)
	o.Unit = Unit{Type: raw.UnitType, Power: o.Power, Province: raw.Location, Coast: raw.Coast}
	if _, ok := m.Provinces[raw.Location]; !ok {
		o.Note = NSP
		return
	}
	d := gs.DislodgedAt(raw.Location)
	if d == nil || d.Unit.Type != raw.UnitType {
		if u := gs.UnitAt(raw.Location); u != nil && u.Type == raw.UnitType {
			o.Unit = *u
			o.Note = NRN
		} else {
			o.Note = NSU
		}
		return
	}
	o.Unit = d.Unit
	if d.Unit.Power != o.Power {
		o.Note = NYU
		return
	}
	switch o.Kind {
	case OrderDisband:
	case OrderRetreat:
		dest, note := orderedCoast(d.Unit, raw.Target, raw.TargetCoast, m, rules)
		o.Dest = dest
		switch {
		case note != MBV:
			o.Note = note
		case !validRetreat(*d, dest, gs, m):
			o.Note = NVR
		}
	default:
		o.Note = NRS
	}
}

// validRetreat checks a destination against the retreat set recorded at
// dislodgement, or, when none was recorded, against adjacency, occupation
// and the attacker's origin.
func validRetreat(d DislodgedUnit, dest UnitPosition, gs *GameState, m *DiplomacyMap) bool {
	if d.Retreats != nil {
		return d.CanRetreatTo(dest)
	}
	if dest.Province == d.AttackerFrom {
		return false
	}
	if gs.UnitAt(dest.Province) != nil {
		return false
	}
	return canMoveTo(d.Unit, dest, m)
}

func newBuildOrder(o *Order, raw DSONOrder, gs *GameState, m *DiplomacyMap) {
	o.Kind = dsonKind(raw.Type, PhaseBuild)
	switch o.Kind {
	case OrderWaive:
		o.Note = buildNote(o, gs, m, -1)
	case OrderBuild:
		o.Unit = Unit{Type: raw.UnitType, Power: o.Power, Province: raw.Location, Coast: raw.Coast}
		if m.HasCoasts(raw.Location) && !m.HasCoast(raw.Location, raw.Coast) {
			o.Unit.Coast = NoCoast
		}
		o.Note = buildNote(o, gs, m, gs.UnitCount(o.Power)-gs.SupplyCenterCount(o.Power))
	case OrderRemove:
		u, note := orderedUnit(raw, o.Power, gs, m)
		o.Unit = u
		o.Note = note
		if note == MBV {
			o.Note = buildNote(o, gs, m, gs.UnitCount(o.Power)-gs.SupplyCenterCount(o.Power))
		}
	default:
		o.Unit = Unit{Type: raw.UnitType, Power: o.Power, Province: raw.Location, Coast: raw.Coast}
		o.Note = NRS
	}
}

// buildNote checks an adjustment order against the power's running surplus
// (units minus centers). Occupation is read from the board, which the
// build orchestrator updates as orders succeed.
func buildNote(o *Order, gs *GameState, m *DiplomacyMap, surplus int) Note {
	switch o.Kind {
	case OrderWaive:
		if surplus >= 0 {
			return NMB
		}
		return MBV
	case OrderRemove:
		u := gs.UnitAt(o.Unit.Province)
		switch {
		case u == nil || u.Type != o.Unit.Type:
			return NSU
		case u.Power != o.Power:
			return NYU
		case surplus <= 0:
			return NMR
		}
		return MBV
	case OrderBuild:
		p, ok := m.Provinces[o.Unit.Province]
		switch {
		case !ok:
			return NSP
		case o.Unit.Type == Fleet && p.Type == Land,
			o.Unit.Type == Army && p.Type == Sea,
			o.Unit.Type == Fleet && len(p.Coasts) > 0 && o.Unit.Coast == NoCoast:
			return CST
		case !p.IsSupplyCenter:
			return NSC
		case gs.SupplyCenters[p.ID] != o.Power:
			return YSC
		case p.HomePower != o.Power:
			return HSC
		case gs.UnitAt(p.ID) != nil:
			return ESC
		case surplus >= 0:
			return NMB
		}
		return MBV
	}
	return NRS
}

// dsonKind maps a DSON order type to the order kind it denotes in phase.
// Kinds from other phases are kept so they can be reported with NRS.
func dsonKind(t DSONOrderType, phase PhaseType) OrderKind {
	switch t {
	case DSONHold:
		return OrderHold
	case DSONMove:
		return OrderMove
	case DSONSupportHold:
		return OrderSupportHold
	case DSONSupportMove:
		return OrderSupportMove
	case DSONConvoy:
		return OrderConvoy
	case DSONRetreat:
		return OrderRetreat
	case DSONDisband:
		if phase == PhaseBuild {
			return OrderRemove
		}
		return OrderDisband
	case DSONBuild:
		return OrderBuild
	default:
		return OrderWaive
	}
}

// PrepareOrders validates every submitted order for the current phase and
// returns the order set the orchestrators adjudicate. Illegal orders are
// dropped, so their units fall back to the phase default, and are returned
// as rejected results carrying their note. With rules.AcceptIllegal they are
// kept instead: an illegal move that rules.IllegalOrders classifies as
// illegal acts as a hold, other illegal orders are attempted and fail.
func PrepareOrders(submitted map[Power][]DSONOrder, gs *GameState, m *DiplomacyMap, rules Rules) (*OrderSet, []ResolvedOrder) {
	set := NewOrderSet(rules)
	var rejected []ResolvedOrder
	conflicted := make(map[string]bool)

	for _, power := range orderedPowers(submitted) {
		for _, raw := range submitted[power] {
			o := NewOrder(raw, power, gs, m, rules)
			if o.Note != MBV && !rules.AcceptIllegal {
				rejected = append(rejected, ResolvedOrder{Order: o, Note: o.Note})
				continue
			}
			if o.Note != MBV && o.IsMoving() && rules.illegal(o.Note) {
				o.holds = true
			}
			if o.Kind == OrderWaive || o.Kind == OrderBuild {
				set.add(&o)
				continue
			}
			prov := o.Unit.Province
			if prev := set.For(prov); prev != nil || conflicted[prov] {
				switch rules.DuplicateOrders {
				case PrecedenceFirst:
					rejected = append(rejected, ResolvedOrder{Order: o, Result: FLD})
					continue
				case PrecedenceNone:
					if prev != nil {
						rejected = append(rejected, ResolvedOrder{Order: *prev, Result: FLD})
						set.remove(prov)
					}
					conflicted[prov] = true
					rejected = append(rejected, ResolvedOrder{Order: o, Result: FLD})
					continue
				default:
					rejected = append(rejected, ResolvedOrder{Order: *prev, Result: FLD})
				}
			}
			set.add(&o)
		}
	}
	return set, rejected
}

// illegal reports whether an accepted order with this note makes the unit
// hold rather than attempt the order.
func (r Rules) illegal(n Note) bool {
	switch r.IllegalOrders {
	case IllegalNone:
		return false
	case IllegalNoSuchPlace:
		return n == NSP
	case IllegalUnreachable:
		return n == NSP || n == FAR || n == NAS || n == CST
	default:
		return n != MBV
	}
}

// orderedPowers returns the submitting powers in standard order, followed
// by any others alphabetically.
func orderedPowers(submitted map[Power][]DSONOrder) []Power {
	var powers []Power
	seen := make(map[Power]bool)
	for _, p := range AllPowers() {
		if _, ok := submitted[p]; ok {
			powers = append(powers, p)
			seen[p] = true
		}
	}
	var rest []Power
	for p := range submitted {
		if !seen[p] {
			rest = append(rest, p)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	return append(powers, rest...)
}
