package diplomacy

import "fmt"

// Rules selects the interpretation used for each disputed rule question.
// The zero value is not meaningful; start from DefaultRules or a preset.
type Rules struct {
	ConvoyDisruption      ConvoyDisruption `json:"convoy_disruption"`        // 4.A.1
	ConvoyParadox         ConvoyParadox    `json:"convoy_paradox"`           // 4.A.2
	AdjacentConvoy        AdjacentConvoy   `json:"adjacent_convoy"`          // 4.A.3
	RetreatToConvoyOrigin bool             `json:"retreat_to_convoy_origin"` // 4.A.5
	ConvoyPath            ConvoyPath       `json:"convoy_path"`              // 4.A.6
	PreferOwnConvoy       bool             `json:"prefer_own_convoy"`
	AmbiguousCoast        CoastPolicy      `json:"ambiguous_coast"`      // 4.B.1
	StrictSupportCoast    bool             `json:"strict_support_coast"` // 4.B.4
	DuplicateOrders       Precedence       `json:"duplicate_orders"`     // 4.D.3
	TooManyBuilds         Precedence       `json:"too_many_builds"`      // 4.D.4
	MultipleBuildsOneArea Precedence       `json:"multiple_builds"`      // 4.D.5
	TooManyRemovals       Precedence       `json:"too_many_removals"`    // 4.D.6
	IllegalOrders         IllegalOrders    `json:"illegal_orders"`       // 4.E.1
	AcceptIllegal         bool             `json:"accept_illegal"`
}

// DefaultRules returns the interpretations recommended by the DATC.
func DefaultRules() Rules {
	return Rules{
		ConvoyDisruption:      DisruptAll,
		ConvoyParadox:         ParadoxSzykman,
		AdjacentConvoy:        AdjacentIntent,
		RetreatToConvoyOrigin: true,
		ConvoyPath:            PathOptional,
		AmbiguousCoast:        CoastFail,
		DuplicateOrders:       PrecedenceLast,
		TooManyBuilds:         PrecedenceFirst,
		MultipleBuildsOneArea: PrecedenceFirst,
		TooManyRemovals:       PrecedenceFirst,
		IllegalOrders:         IllegalAll,
	}
}

// DPTGRules returns the interpretations of the Diplomacy Player's
// Technical Guide.
func DPTGRules() Rules {
	r := DefaultRules()
	r.ConvoyDisruption = DisruptAny
	r.ConvoyParadox = ParadoxDPTG
	r.AdjacentConvoy = AdjacentExplicit
	r.ConvoyPath = PathIgnored
	r.PreferOwnConvoy = true
	return r
}

// DAIDERules returns the interpretations used by DAIDE servers.
func DAIDERules() Rules {
	r := DefaultRules()
	r.ConvoyParadox = ParadoxSzykman
	r.AdjacentConvoy = AdjacentExplicit
	r.RetreatToConvoyOrigin = false
	r.ConvoyPath = PathRequired
	r.MultipleBuildsOneArea = PrecedenceLast
	r.AcceptIllegal = true
	return r
}

// RulesPreset returns a named preset: "datc", "dptg" or "daide".
func RulesPreset(name string) (Rules, error) {
	switch name {
	case "", "datc":
		return DefaultRules(), nil
	case "dptg":
		return DPTGRules(), nil
	case "daide":
		return DAIDERules(), nil
	default:
		return Rules{}, fmt.Errorf("unknown rules preset %q", name)
	}
}

// Validate reports options outside their defined range.
func (r Rules) Validate() error {
	checks := []struct {
		name string
		ok   bool
	}{
		{"convoy_disruption", r.ConvoyDisruption >= DisruptAll && r.ConvoyDisruption <= DisruptAny},
		{"convoy_paradox", r.ConvoyParadox >= Paradox1982 && r.ConvoyParadox <= ParadoxDPTG},
		{"adjacent_convoy", r.AdjacentConvoy >= AdjacentAlways && r.AdjacentConvoy <= AdjacentNever},
		{"convoy_path", r.ConvoyPath >= PathIgnored && r.ConvoyPath <= PathRequired},
		{"ambiguous_coast", r.AmbiguousCoast >= CoastFail && r.AmbiguousCoast <= CoastDefault},
		{"duplicate_orders", validPrecedence(r.DuplicateOrders)},
		{"too_many_builds", validPrecedence(r.TooManyBuilds)},
		{"multiple_builds", validPrecedence(r.MultipleBuildsOneArea)},
		{"too_many_removals", validPrecedence(r.TooManyRemovals)},
		{"illegal_orders", r.IllegalOrders >= IllegalNone && r.IllegalOrders <= IllegalAll},
	}
	for _, c := range checks {
		if !c.ok {
			return fmt.Errorf("rules: %s out of range", c.name)
		}
	}
	return nil
}

func validPrecedence(p Precedence) bool {
	return p >= PrecedenceFirst && p <= PrecedenceNone
}

// ConvoyDisruption decides when a convoy with several routes is disrupted.
type ConvoyDisruption int

const (
	DisruptAll ConvoyDisruption = iota // disrupted only when every route is
	DisruptAny                         // disrupted when any route is
)

// ConvoyParadox selects the rule that breaks convoy paradoxes.
type ConvoyParadox int

const (
	Paradox1982     ConvoyParadox = iota // convoyed armies do not cut support against convoying fleets
	ParadoxSzykman                       // convoyed armies in a paradox hold
	ParadoxFallback                      // every move and support in the paradox fails
	ParadoxDPTG                          // Szykman, unless supports depend on a convoying unit
)

// AdjacentConvoy decides whether a move to an adjacent province travels by convoy.
type AdjacentConvoy int

const (
	AdjacentAlways            AdjacentConvoy = iota // always choose the convoy route
	AdjacentUnlessHeadToHead                        // land route except in head-to-head battles
	AdjacentUnlessUndisrupted                       // land route except head-to-head with an undisrupted convoy
	AdjacentIntent                                  // convoy when a fleet of the same power convoys the army
	AdjacentExplicit                                // convoy only when ordered with a path
	AdjacentNever                                   // never convoy to an adjacent province
)

// ConvoyPath decides how explicit convoy paths are treated.
type ConvoyPath int

const (
	PathIgnored ConvoyPath = iota
	PathOptional
	PathRequired
)

// CoastPolicy decides what happens when a fleet move names no coast but
// could reach more than one.
type CoastPolicy int

const (
	CoastFail    CoastPolicy = iota // the order is illegal (CST)
	CoastDefault                    // the first reachable coast is used
)

// Precedence decides which of several conflicting orders wins.
type Precedence int

const (
	PrecedenceFirst Precedence = iota
	PrecedenceLast
	PrecedenceNone // every conflicting order fails
)

// IllegalOrders decides which illegal orders make a unit hold instead of
// attempting the order when illegal orders are accepted.
type IllegalOrders int

const (
	IllegalNone        IllegalOrders = iota // every well-formed order is attempted
	IllegalNoSuchPlace                      // only orders naming unknown provinces hold
	IllegalUnreachable                      // NSP, FAR, NAS and CST hold
	IllegalAll                              // any order that is not MBV holds
)

var optionNames = map[string][]string{
	"convoy_disruption": {"all", "any"},
	"convoy_paradox":    {"1982", "szykman", "fallback", "dptg"},
	"adjacent_convoy":   {"always", "head-to-head", "undisrupted", "intent", "explicit", "never"},
	"convoy_path":       {"ignored", "optional", "required"},
	"coast":             {"fail", "default"},
	"precedence":        {"first", "last", "none"},
	"illegal_orders":    {"none", "nsp", "unreachable", "all"},
}

func optionName(kind string, v int) string {
	names := optionNames[kind]
	if v < 0 || v >= len(names) {
		return fmt.Sprintf("%s(%d)", kind, v)
	}
	return names[v]
}

func parseOption(kind, s string) (int, error) {
	for i, n := range optionNames[kind] {
		if n == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown %s option %q", kind, s)
}

func (o ConvoyDisruption) String() string { return optionName("convoy_disruption", int(o)) }
func (o ConvoyParadox) String() string    { return optionName("convoy_paradox", int(o)) }
func (o AdjacentConvoy) String() string   { return optionName("adjacent_convoy", int(o)) }
func (o ConvoyPath) String() string       { return optionName("convoy_path", int(o)) }
func (o CoastPolicy) String() string      { return optionName("coast", int(o)) }
func (o Precedence) String() string       { return optionName("precedence", int(o)) }
func (o IllegalOrders) String() string    { return optionName("illegal_orders", int(o)) }

func (o ConvoyDisruption) MarshalText() ([]byte, error) { return []byte(o.String()), nil }
func (o ConvoyParadox) MarshalText() ([]byte, error)    { return []byte(o.String()), nil }
func (o AdjacentConvoy) MarshalText() ([]byte, error)   { return []byte(o.String()), nil }
func (o ConvoyPath) MarshalText() ([]byte, error)       { return []byte(o.String()), nil }
func (o CoastPolicy) MarshalText() ([]byte, error)      { return []byte(o.String()), nil }
func (o Precedence) MarshalText() ([]byte, error)       { return []byte(o.String()), nil }
func (o IllegalOrders) MarshalText() ([]byte, error)    { return []byte(o.String()), nil }

func (o *ConvoyDisruption) UnmarshalText(b []byte) error {
	v, err := parseOption("convoy_disruption", string(b))
	*o = ConvoyDisruption(v)
	return err
}

func (o *ConvoyParadox) UnmarshalText(b []byte) error {
	v, err := parseOption("convoy_paradox", string(b))
	*o = ConvoyParadox(v)
	return err
}

func (o *AdjacentConvoy) UnmarshalText(b []byte) error {
	v, err := parseOption("adjacent_convoy", string(b))
	*o = AdjacentConvoy(v)
	return err
}

func (o *ConvoyPath) UnmarshalText(b []byte) error {
	v, err := parseOption("convoy_path", string(b))
	*o = ConvoyPath(v)
	return err
}

func (o *CoastPolicy) UnmarshalText(b []byte) error {
	v, err := parseOption("coast", string(b))
	*o = CoastPolicy(v)
	return err
}

func (o *Precedence) UnmarshalText(b []byte) error {
	v, err := parseOption("precedence", string(b))
	*o = Precedence(v)
	return err
}

func (o *IllegalOrders) UnmarshalText(b []byte) error {
	v, err := parseOption("illegal_orders", string(b))
	*o = IllegalOrders(v)
	return err
}
