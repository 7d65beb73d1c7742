package diplomacy

// OrderKind is the closed set of order variants.
type OrderKind uint8

const (
	OrderHold OrderKind = iota
	OrderMove
	OrderSupportHold
	OrderSupportMove
	OrderConvoy
	OrderConvoyedMove
	OrderRetreat
	OrderDisband
	OrderBuild
	OrderRemove
	OrderWaive
)

func (k OrderKind) String() string {
	switch k {
	case OrderHold:
		return "hold"
	case OrderMove:
		return "move"
	case OrderSupportHold:
		return "support hold"
	case OrderSupportMove:
		return "support move"
	case OrderConvoy:
		return "convoy"
	case OrderConvoyedMove:
		return "convoyed move"
	case OrderRetreat:
		return "retreat"
	case OrderDisband:
		return "disband"
	case OrderBuild:
		return "build"
	case OrderRemove:
		return "remove"
	case OrderWaive:
		return "waive"
	default:
		return "unknown"
	}
}

// Phase returns the phase in which orders of this kind may be given.
func (k OrderKind) Phase() PhaseType {
	switch k {
	case OrderRetreat, OrderDisband:
		return PhaseRetreat
	case OrderBuild, OrderRemove, OrderWaive:
		return PhaseBuild
	default:
		return PhaseMovement
	}
}

// Order is one validated order. Build NewOrder values from raw DSON input;
// orders are not modified after construction.
type Order struct {
	Kind  OrderKind
	Power Power

	// Unit is the acting unit as found on the board. For builds it is the
	// unit to create; it is the zero Unit for waives.
	Unit Unit

	// Target is the supported or convoyed unit.
	Target Unit

	// Dest is the destination of a move or retreat, or the destination of
	// the supported or convoyed move.
	Dest UnitPosition

	// Path is an explicit chain of convoying fleet provinces.
	Path []string

	// MaybeConvoy marks a move to an adjacent province that may still
	// travel by convoy.
	MaybeConvoy bool

	// Routes holds the candidate convoy routes on the board at the time the
	// order was built.
	Routes [][]string

	// Note is the legality code computed when the order was built.
	Note Note

	holds bool // accepted illegal move that acts as a hold
}

// IsMoving reports whether the unit tries to leave its province for another.
func (o *Order) IsMoving() bool {
	if o.holds {
		return false
	}
	switch o.Kind {
	case OrderMove, OrderConvoyedMove, OrderRetreat:
		return true
	}
	return false
}

// IsSupporting reports whether the order is a support.
func (o *Order) IsSupporting() bool {
	return o.Kind == OrderSupportHold || o.Kind == OrderSupportMove
}

// IsConvoying reports whether the order is a convoy.
func (o *Order) IsConvoying() bool { return o.Kind == OrderConvoy }

// IsConvoyed reports whether the move may travel by convoy.
func (o *Order) IsConvoyed() bool {
	if o.holds {
		return false
	}
	return o.Kind == OrderConvoyedMove || (o.Kind == OrderMove && o.MaybeConvoy)
}

// MaybeOverland reports whether a convoy-eligible move may fall back to
// the land route.
func (o *Order) MaybeOverland() bool {
	return o.Kind == OrderMove && o.MaybeConvoy
}

// IsLeaving reports whether the unit vacates its province if the order
// succeeds.
func (o *Order) IsLeaving() bool {
	return o.IsMoving() || o.Kind == OrderDisband || o.Kind == OrderRemove
}

// Matches reports whether the units a support or convoy refers to were
// actually ordered to do what it assumes. Other orders always match.
func (o *Order) Matches(set *OrderSet) bool {
	switch o.Kind {
	case OrderConvoy:
		c := set.For(o.Target.Province)
		return c != nil && c.IsConvoyed() && c.Unit == o.Target && c.Dest.Province == o.Dest.Province
	case OrderSupportHold:
		c := set.For(o.Target.Province)
		return c == nil || !c.IsMoving()
	case OrderSupportMove:
		c := set.For(o.Target.Province)
		if c == nil || !c.IsMoving() || c.Dest.Province != o.Dest.Province {
			return false
		}
		if set.Rules.StrictSupportCoast && o.Dest.Coast != NoCoast && o.Dest.Coast != c.Dest.Coast {
			return false
		}
		return true
	case OrderConvoyedMove:
		for _, prov := range o.Path {
			c := set.For(prov)
			if c == nil || !c.IsConvoying() || c.Target != o.Unit || c.Dest.Province != o.Dest.Province {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// ConvoyRoutes returns the candidate routes along which every fleet has
// been ordered to convoy this unit. intents maps a fleet province to the
// convoy it intends. With preferOwn, routes made up only of fleets of the
// army's own power win when any exist.
func (o *Order) ConvoyRoutes(intents map[string]ConvoyIntent, preferOwn bool) [][]string {
	if !o.IsConvoyed() || o.Unit.Type != Army {
		return nil
	}
	candidates := o.Routes
	if len(o.Path) > 0 {
		candidates = [][]string{o.Path}
	}
	available := func(route []string, own bool) bool {
		for _, prov := range route {
			in, ok := intents[prov]
			if !ok || in.Army != o.Unit.Province {
				return false
			}
			if own && in.Power != o.Unit.Power {
				return false
			}
		}
		return true
	}
	var all, solo [][]string
	for _, r := range candidates {
		if !available(r, false) {
			continue
		}
		all = append(all, r)
		if preferOwn && available(r, true) {
			solo = append(solo, r)
		}
	}
	if len(solo) > 0 {
		return solo
	}
	return all
}

// ConvoyIntent records that a fleet is ordered to convoy an army.
type ConvoyIntent struct {
	Army  string // province of the convoyed army
	Dest  string
	Power Power // owner of the fleet
}

// String renders the order in DSON notation.
func (o Order) String() string {
	return formatSingleDSON(OrderToDSON(o))
}

// MarshalText encodes the order in DSON notation.
func (o Order) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// OrderSet holds at most one order per unit for a phase, keyed by the
// province of the acting unit, plus any build-phase orders in submission
// order.
type OrderSet struct {
	Rules  Rules
	byProv map[string]*Order
	list   []*Order
}

// NewOrderSet returns an empty set evaluated under rules.
func NewOrderSet(rules Rules) *OrderSet {
	return &OrderSet{Rules: rules, byProv: make(map[string]*Order)}
}

// For returns the order given to the unit in province, or nil.
func (s *OrderSet) For(province string) *Order {
	return s.byProv[province]
}

// Orders returns every order in submission order.
func (s *OrderSet) Orders() []*Order {
	return s.list
}

// Len returns the number of orders in the set.
func (s *OrderSet) Len() int { return len(s.list) }

// add stores o, replacing any existing order for the same unit.
func (s *OrderSet) add(o *Order) {
	if o.Kind != OrderWaive && o.Kind != OrderBuild {
		if prev, ok := s.byProv[o.Unit.Province]; ok {
			for i, p := range s.list {
				if p == prev {
					s.list = append(s.list[:i], s.list[i+1:]...)
					break
				}
			}
		}
		s.byProv[o.Unit.Province] = o
	}
	s.list = append(s.list, o)
}

func (s *OrderSet) remove(province string) {
	prev, ok := s.byProv[province]
	if !ok {
		return
	}
	delete(s.byProv, province)
	for i, p := range s.list {
		if p == prev {
			s.list = append(s.list[:i], s.list[i+1:]...)
			return
		}
	}
}
