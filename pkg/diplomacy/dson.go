package diplomacy

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// DSONOrderType enumerates the kinds of orders representable in DSON.
type DSONOrderType int

const (
	DSONHold        DSONOrderType = iota // A vie H
	DSONMove                             // A bud - rum, A lon - nwy via nth
	DSONSupportHold                      // A tyr S A vie H
	DSONSupportMove                      // A gal S A bud - rum
	DSONConvoy                           // F mao C A bre - spa
	DSONRetreat                          // A vie R boh
	DSONDisband                          // F tri D
	DSONBuild                            // A vie B
	DSONWaive                            // W
)

// DSONOrder is one order as written, before it is checked against a board.
// The same shape carries movement, retreat and build orders.
type DSONOrder struct {
	Type DSONOrderType

	UnitType UnitType
	Location string
	Coast    Coast

	// Target is where the unit moves or retreats to.
	Target      string
	TargetCoast Coast

	// Aux names the supported or convoyed unit and, for supported moves and
	// convoys, where it is going.
	AuxUnitType    UnitType
	AuxLocation    string
	AuxCoast       Coast
	AuxTarget      string
	AuxTargetCoast Coast

	// Path is the fleet route of a move given with "via".
	Path []string
}

const dsonSeparator = " ; "

// FormatDSON joins orders into one DSON line.
func FormatDSON(orders []DSONOrder) string {
	parts := make([]string, len(orders))
	for i, o := range orders {
		parts[i] = formatSingleDSON(o)
	}
	return strings.Join(parts, dsonSeparator)
}

func dsonUnit(t UnitType, prov string, coast Coast) string {
	return t.Letter() + " " + UnitPosition{Province: prov, Coast: coast}.String()
}

func formatSingleDSON(o DSONOrder) string {
	if o.Type == DSONWaive {
		return "W"
	}
	target := UnitPosition{Province: o.Target, Coast: o.TargetCoast}.String()
	aux := dsonUnit(o.AuxUnitType, o.AuxLocation, o.AuxCoast)
	auxTarget := UnitPosition{Province: o.AuxTarget, Coast: o.AuxTargetCoast}.String()

	words := []string{dsonUnit(o.UnitType, o.Location, o.Coast)}
	switch o.Type {
	case DSONHold:
		words = append(words, "H")
	case DSONMove:
		words = append(words, "-", target)
		if len(o.Path) > 0 {
			words = append(words, "via")
			words = append(words, o.Path...)
		}
	case DSONSupportHold:
		words = append(words, "S", aux, "H")
	case DSONSupportMove:
		words = append(words, "S", aux, "-", auxTarget)
	case DSONConvoy:
		words = append(words, "C", dsonUnit(Army, o.AuxLocation, o.AuxCoast), "-", auxTarget)
	case DSONRetreat:
		words = append(words, "R", target)
	case DSONDisband:
		words = append(words, "D")
	case DSONBuild:
		words = append(words, "B")
	}
	return strings.Join(words, " ")
}

// ParseDSON parses one or more orders separated by " ; ". Empty input
// yields no orders.
func ParseDSON(s string) ([]DSONOrder, error) {
	var orders []DSONOrder
	for part := range strings.SplitSeq(s, dsonSeparator) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		o, err := parseSingleDSON(part)
		if err != nil {
			return nil, fmt.Errorf("dson: parsing %q: %w", part, err)
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// dsonScanner walks the words of one order.
type dsonScanner struct {
	words []string
	next  int
}

func (sc *dsonScanner) word(what string) (string, error) {
	if sc.next >= len(sc.words) {
		return "", fmt.Errorf("missing %s", what)
	}
	w := sc.words[sc.next]
	sc.next++
	return w, nil
}

func (sc *dsonScanner) expect(want, what string) error {
	w, err := sc.word(what)
	if err != nil {
		return err
	}
	if w != want {
		return fmt.Errorf("%s: expected %q, got %q", what, want, w)
	}
	return nil
}

func (sc *dsonScanner) position(what string) (UnitPosition, error) {
	w, err := sc.word(what)
	if err != nil {
		return UnitPosition{}, err
	}
	pos, err := parsePosition(w, "/")
	if err != nil {
		return UnitPosition{}, fmt.Errorf("%s: %w", what, err)
	}
	return pos, nil
}

func (sc *dsonScanner) unit(what string) (UnitType, UnitPosition, error) {
	w, err := sc.word(what)
	if err != nil {
		return Army, UnitPosition{}, err
	}
	var t UnitType
	switch w {
	case "A":
		t = Army
	case "F":
		t = Fleet
	default:
		return Army, UnitPosition{}, fmt.Errorf("%s: invalid unit type %q (expected A or F)", what, w)
	}
	pos, err := sc.position(what + " location")
	return t, pos, err
}

func (sc *dsonScanner) done() error {
	if sc.next < len(sc.words) {
		return fmt.Errorf("unexpected %q", strings.Join(sc.words[sc.next:], " "))
	}
	return nil
}

func parseSingleDSON(s string) (DSONOrder, error) {
	if s == "W" {
		return DSONOrder{Type: DSONWaive}, nil
	}
	sc := &dsonScanner{words: strings.Fields(s)}
	t, at, err := sc.unit("unit")
	if err != nil {
		return DSONOrder{}, err
	}
	o := DSONOrder{UnitType: t, Location: at.Province, Coast: at.Coast}

	action, err := sc.word("action")
	if err != nil {
		return DSONOrder{}, err
	}
	switch action {
	case "H":
		o.Type = DSONHold
	case "D":
		o.Type = DSONDisband
	case "B":
		o.Type = DSONBuild
	case "-", "R":
		o.Type = DSONMove
		if action == "R" {
			o.Type = DSONRetreat
		}
		dest, err := sc.position("target")
		if err != nil {
			return DSONOrder{}, err
		}
		o.Target, o.TargetCoast = dest.Province, dest.Coast
		if o.Type == DSONMove && sc.next < len(sc.words) {
			if err := parseConvoyPath(sc, &o); err != nil {
				return DSONOrder{}, err
			}
		}
	case "S":
		if err := parseSupport(sc, &o); err != nil {
			return DSONOrder{}, err
		}
	case "C":
		if err := parseConvoy(sc, &o); err != nil {
			return DSONOrder{}, err
		}
	default:
		return DSONOrder{}, fmt.Errorf("unknown action %q", action)
	}
	if err := sc.done(); err != nil {
		return DSONOrder{}, err
	}
	return o, nil
}

// parseConvoyPath reads "via <fleet> <fleet>...". Coasts on path entries
// are dropped since convoying fleets sit at sea.
func parseConvoyPath(sc *dsonScanner, o *DSONOrder) error {
	if err := sc.expect("via", "convoy path"); err != nil {
		return err
	}
	for sc.next < len(sc.words) {
		pos, err := sc.position("convoy path")
		if err != nil {
			return err
		}
		o.Path = append(o.Path, pos.Province)
	}
	if len(o.Path) == 0 {
		return fmt.Errorf("convoy path: no fleets after \"via\"")
	}
	return nil
}

func parseSupport(sc *dsonScanner, o *DSONOrder) error {
	t, pos, err := sc.unit("supported unit")
	if err != nil {
		return err
	}
	o.AuxUnitType, o.AuxLocation, o.AuxCoast = t, pos.Province, pos.Coast

	w, err := sc.word("supported order")
	if err != nil {
		return err
	}
	switch w {
	case "H":
		o.Type = DSONSupportHold
		return nil
	case "-":
		o.Type = DSONSupportMove
		dest, err := sc.position("supported destination")
		if err != nil {
			return err
		}
		o.AuxTarget, o.AuxTargetCoast = dest.Province, dest.Coast
		return nil
	}
	return fmt.Errorf("support: expected H or -, got %q", w)
}

func parseConvoy(sc *dsonScanner, o *DSONOrder) error {
	t, pos, err := sc.unit("convoyed unit")
	if err != nil {
		return err
	}
	if t != Army {
		return fmt.Errorf("convoy: only armies are convoyed")
	}
	if err := sc.expect("-", "convoy"); err != nil {
		return err
	}
	dest, err := sc.position("convoy destination")
	if err != nil {
		return err
	}
	o.Type = DSONConvoy
	o.AuxUnitType = Army
	o.AuxLocation, o.AuxCoast = pos.Province, pos.Coast
	o.AuxTarget, o.AuxTargetCoast = dest.Province, dest.Coast
	return nil
}

// ParseOrderFile reads one order per line in the form "power: order".
// Blank lines and lines starting with '#' are skipped. Each line may hold
// several orders separated by " ; ".
func ParseOrderFile(r io.Reader) (map[Power][]DSONOrder, error) {
	orders := make(map[Power][]DSONOrder)
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, text, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("line %d: expected \"power: order\"", lineNo)
		}
		power, ok := ParsePower(name)
		if !ok {
			return nil, fmt.Errorf("line %d: unknown power %q", lineNo, strings.TrimSpace(name))
		}
		parsed, err := ParseDSON(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		orders[power] = append(orders[power], parsed...)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading orders: %w", err)
	}
	return orders, nil
}

// OrderToDSON converts an Order back to its DSON form.
func OrderToDSON(o Order) DSONOrder {
	if o.Kind == OrderWaive {
		return DSONOrder{Type: DSONWaive}
	}
	d := DSONOrder{UnitType: o.Unit.Type, Location: o.Unit.Province, Coast: o.Unit.Coast}
	switch o.Kind {
	case OrderHold:
		d.Type = DSONHold
	case OrderMove, OrderConvoyedMove, OrderRetreat:
		d.Type = DSONMove
		if o.Kind == OrderRetreat {
			d.Type = DSONRetreat
		} else {
			d.Path = o.Path
		}
		d.Target, d.TargetCoast = o.Dest.Province, o.Dest.Coast
	case OrderSupportHold, OrderSupportMove:
		d.Type = DSONSupportHold
		d.AuxUnitType, d.AuxLocation, d.AuxCoast = o.Target.Type, o.Target.Province, o.Target.Coast
		if o.Kind == OrderSupportMove {
			d.Type = DSONSupportMove
			d.AuxTarget, d.AuxTargetCoast = o.Dest.Province, o.Dest.Coast
		}
	case OrderConvoy:
		d.Type = DSONConvoy
		d.AuxUnitType = Army
		d.AuxLocation, d.AuxTarget = o.Target.Province, o.Dest.Province
	case OrderDisband, OrderRemove:
		d.Type = DSONDisband
	case OrderBuild:
		d.Type = DSONBuild
	}
	return d
}
