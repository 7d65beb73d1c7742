package diplomacy

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// DFEN is the one-line board notation used for storage and the wire:
//
//	<year><season><phase>/<units>/<centers>/<dislodged>
//
// e.g. "1901fr/Eflon,Fapar/Elon,Fpar/Gamun<bur*=boh|sil". Each list is
// comma separated and "-" when empty. Units and centres start with the
// power's capital letter (N for neutral centres); a unit then has 'a' or
// 'f' and its location, with a coast after a dot ("stp.sc"). A dislodged
// unit names its attacker's origin after '<', '*' when the attacker was
// convoyed, and its retreat options after '=' separated by '|'.

const dfenEmpty = "-"

// dfenPowers is the canonical power order of DFEN output.
var dfenPowers = append(AllPowers(), Neutral)

var dfenSeasons = map[Season]byte{Spring: 's', Fall: 'f'}

var dfenPhases = map[PhaseType]byte{PhaseMovement: 'm', PhaseRetreat: 'r', PhaseBuild: 'b'}

func powerLetter(p Power) byte {
	if p == Neutral {
		return 'N'
	}
	return string(p)[0] - 'a' + 'A'
}

func letterPower(c byte) (Power, bool) {
	if c == 'N' {
		return Neutral, true
	}
	for _, p := range AllPowers() {
		if powerLetter(p) == c {
			return p, true
		}
	}
	return Neutral, false
}

func powerRank(p Power) int { return slices.Index(dfenPowers, p) }

// byPowerThenProvince orders board entries the way DFEN lists them.
func byPowerThenProvince(pa Power, a string, pb Power, b string) int {
	return cmp.Or(cmp.Compare(powerRank(pa), powerRank(pb)), cmp.Compare(a, b))
}

// EncodeDFEN renders gs. The output is canonical: two equal boards always
// encode to the same string.
func EncodeDFEN(gs *GameState) string {
	sections := [4]string{
		fmt.Sprintf("%d%c%c", gs.Year, dfenSeasons[gs.Season], dfenPhases[gs.Phase]),
		dfenUnits(gs.Units),
		dfenCenters(gs.SupplyCenters),
		dfenDislodged(gs.Dislodged),
	}
	return strings.Join(sections[:], "/")
}

func dfenList(entries []string) string {
	if len(entries) == 0 {
		return dfenEmpty
	}
	return strings.Join(entries, ",")
}

func dfenLocation(pos UnitPosition) string {
	if pos.Coast == NoCoast {
		return pos.Province
	}
	return pos.Province + "." + string(pos.Coast)
}

func dfenUnit(u Unit) string {
	kind := "a"
	if u.Type == Fleet {
		kind = "f"
	}
	return string(powerLetter(u.Power)) + kind + dfenLocation(u.Position())
}

func dfenUnits(units []Unit) string {
	sorted := slices.Clone(units)
	slices.SortStableFunc(sorted, func(a, b Unit) int {
		return byPowerThenProvince(a.Power, a.Province, b.Power, b.Province)
	})
	entries := make([]string, len(sorted))
	for i, u := range sorted {
		entries[i] = dfenUnit(u)
	}
	return dfenList(entries)
}

func dfenCenters(centers map[string]Power) string {
	provs := make([]string, 0, len(centers))
	for prov := range centers {
		provs = append(provs, prov)
	}
	slices.SortFunc(provs, func(a, b string) int {
		return byPowerThenProvince(centers[a], a, centers[b], b)
	})
	entries := make([]string, len(provs))
	for i, prov := range provs {
		entries[i] = string(powerLetter(centers[prov])) + prov
	}
	return dfenList(entries)
}

func dfenDislodged(dislodged []DislodgedUnit) string {
	sorted := slices.Clone(dislodged)
	slices.SortStableFunc(sorted, func(a, b DislodgedUnit) int {
		return byPowerThenProvince(a.Unit.Power, a.Unit.Province, b.Unit.Power, b.Unit.Province)
	})
	entries := make([]string, len(sorted))
	for i, d := range sorted {
		var b strings.Builder
		b.WriteString(dfenUnit(d.Unit))
		b.WriteByte('<')
		b.WriteString(d.AttackerFrom)
		if d.ByConvoy {
			b.WriteByte('*')
		}
		if d.Retreats != nil {
			b.WriteByte('=')
			for j, r := range d.Retreats {
				if j > 0 {
					b.WriteByte('|')
				}
				b.WriteString(dfenLocation(r))
			}
		}
		entries[i] = b.String()
	}
	return dfenList(entries)
}

// DecodeDFEN parses a DFEN board. Province IDs are checked for shape only;
// whether they exist is left to the map.
func DecodeDFEN(s string) (*GameState, error) {
	sections := strings.Split(s, "/")
	if len(sections) != 4 {
		return nil, fmt.Errorf("dfen: expected 4 sections separated by '/', got %d", len(sections))
	}
	gs := &GameState{SupplyCenters: make(map[string]Power)}
	if err := decodeDFENPhase(sections[0], gs); err != nil {
		return nil, err
	}

	err := eachDFENEntry(sections[1], "unit", func(entry string) error {
		u, err := decodeDFENUnit(entry)
		gs.Units = append(gs.Units, u)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = eachDFENEntry(sections[2], "centre", func(entry string) error {
		p, ok := letterPower(entry[0])
		if !ok {
			return fmt.Errorf("invalid power %q", entry[:1])
		}
		prov := entry[1:]
		if !provinceShaped(prov) {
			return fmt.Errorf("invalid province %q", prov)
		}
		gs.SupplyCenters[prov] = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = eachDFENEntry(sections[3], "dislodged unit", func(entry string) error {
		d, err := decodeDFENDislodged(entry)
		gs.Dislodged = append(gs.Dislodged, d)
		return err
	})
	if err != nil {
		return nil, err
	}
	return gs, nil
}

func eachDFENEntry(section, what string, fn func(string) error) error {
	if section == dfenEmpty || section == "" {
		return nil
	}
	for entry := range strings.SplitSeq(section, ",") {
		if entry == "" {
			return fmt.Errorf("dfen: empty %s entry", what)
		}
		if err := fn(entry); err != nil {
			return fmt.Errorf("dfen: %s %q: %w", what, entry, err)
		}
	}
	return nil
}

func decodeDFENPhase(s string, gs *GameState) error {
	if len(s) < 3 {
		return fmt.Errorf("dfen: phase %q too short", s)
	}
	n := len(s)
	year, err := strconv.Atoi(s[:n-2])
	if err != nil || year < 0 {
		return fmt.Errorf("dfen: invalid year %q", s[:n-2])
	}
	gs.Year = year

	var ok bool
	if gs.Season, ok = lookupDFEN(dfenSeasons, s[n-2]); !ok {
		return fmt.Errorf("dfen: invalid season %q", s[n-2:n-1])
	}
	if gs.Phase, ok = lookupDFEN(dfenPhases, s[n-1]); !ok {
		return fmt.Errorf("dfen: invalid phase %q", s[n-1:])
	}
	return nil
}

func lookupDFEN[K comparable](table map[K]byte, c byte) (K, bool) {
	for k, v := range table {
		if v == c {
			return k, true
		}
	}
	var zero K
	return zero, false
}

func provinceShaped(s string) bool {
	if len(s) != 3 {
		return false
	}
	for i := range 3 {
		if s[i] < 'a' || s[i] > 'z' {
			return false
		}
	}
	return true
}

// parsePosition reads "stp" or "stp<sep>sc".
func parsePosition(s, sep string) (UnitPosition, error) {
	prov, coast, hasCoast := strings.Cut(s, sep)
	if !provinceShaped(prov) {
		return UnitPosition{}, fmt.Errorf("invalid province %q", prov)
	}
	pos := UnitPosition{Province: prov}
	if hasCoast {
		switch c := Coast(coast); c {
		case NorthCoast, SouthCoast, EastCoast, WestCoast:
			pos.Coast = c
		default:
			return UnitPosition{}, fmt.Errorf("invalid coast %q", coast)
		}
	}
	return pos, nil
}

func decodeDFENUnit(s string) (Unit, error) {
	if len(s) < 5 {
		return Unit{}, fmt.Errorf("too short")
	}
	p, ok := letterPower(s[0])
	if !ok || p == Neutral {
		return Unit{}, fmt.Errorf("invalid power %q", s[:1])
	}
	u := Unit{Power: p}
	switch s[1] {
	case 'a':
		u.Type = Army
	case 'f':
		u.Type = Fleet
	default:
		return Unit{}, fmt.Errorf("invalid unit type %q", s[1:2])
	}
	pos, err := parsePosition(s[2:], ".")
	if err != nil {
		return Unit{}, err
	}
	u.Province, u.Coast = pos.Province, pos.Coast
	return u, nil
}

func decodeDFENDislodged(s string) (DislodgedUnit, error) {
	unit, rest, ok := strings.Cut(s, "<")
	if !ok {
		return DislodgedUnit{}, fmt.Errorf("missing '<'")
	}
	attacker, retreats, hasRetreats := strings.Cut(rest, "=")
	attacker, byConvoy := strings.CutSuffix(attacker, "*")
	if !provinceShaped(attacker) {
		return DislodgedUnit{}, fmt.Errorf("invalid attacker origin %q", attacker)
	}
	u, err := decodeDFENUnit(unit)
	if err != nil {
		return DislodgedUnit{}, err
	}
	d := DislodgedUnit{Unit: u, DislodgedFrom: u.Province, AttackerFrom: attacker, ByConvoy: byConvoy}
	if !hasRetreats {
		return d, nil
	}
	d.Retreats = []UnitPosition{}
	if retreats == "" {
		return d, nil
	}
	for loc := range strings.SplitSeq(retreats, "|") {
		pos, err := parsePosition(loc, ".")
		if err != nil {
			return DislodgedUnit{}, fmt.Errorf("retreat %q: %w", loc, err)
		}
		d.Retreats = append(d.Retreats, pos)
	}
	return d, nil
}
