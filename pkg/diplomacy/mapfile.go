package diplomacy

import (
	"bufio"
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

//go:embed maps/standard.map
var standardMapText []byte

var (
	stdMapOnce sync.Once
	stdMapInst *DiplomacyMap
)

// StandardMap returns the standard 75-province Diplomacy map. The map is
// parsed once and cached; callers must not mutate the returned map.
func StandardMap() *DiplomacyMap {
	stdMapOnce.Do(func() {
		m, err := ParseMap(bytes.NewReader(standardMapText))
		if err != nil {
			panic("diplomacy: embedded standard map: " + err.Error())
		}
		stdMapInst = m
	})
	return stdMapInst
}

// ParseMap reads a map description. Each non-blank line that does not start
// with '#' is one of:
//
//	province <id> <land|sea|coastal> <center|-> <home|-> <coasts|-> <name...>
//	army <a> <b>
//	fleet <a[/coast]> <b[/coast]>
//	both <a> <b>
//
// Borders are declared once and apply in both directions.
func ParseMap(r io.Reader) (*DiplomacyMap, error) {
	m := &DiplomacyMap{
		Provinces:   make(map[string]*Province),
		Adjacencies: make(map[string][]Adjacency),
	}

	addAdj := func(from string, fromCoast Coast, to string, toCoast Coast, armyOK, fleetOK bool) {
		m.Adjacencies[from] = append(m.Adjacencies[from], Adjacency{
			From:      from,
			FromCoast: fromCoast,
			To:        to,
			ToCoast:   toCoast,
			ArmyOK:    armyOK,
			FleetOK:   fleetOK,
		})
		m.Adjacencies[to] = append(m.Adjacencies[to], Adjacency{
			From:      to,
			FromCoast: toCoast,
			To:        from,
			ToCoast:   fromCoast,
			ArmyOK:    armyOK,
			FleetOK:   fleetOK,
		})
	}

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		var err error
		switch fields[0] {
		case "province":
			err = m.parseProvince(fields[1:])
		case "army", "both", "fleet":
			if len(fields) != 3 {
				err = fmt.Errorf("%s border needs two provinces", fields[0])
				break
			}
			var a, b UnitPosition
			if a, err = m.parseBorderEnd(fields[1]); err != nil {
				break
			}
			if b, err = m.parseBorderEnd(fields[2]); err != nil {
				break
			}
			switch fields[0] {
			case "army":
				addAdj(a.Province, NoCoast, b.Province, NoCoast, true, false)
			case "both":
				addAdj(a.Province, a.Coast, b.Province, b.Coast, true, true)
			default:
				addAdj(a.Province, a.Coast, b.Province, b.Coast, false, true)
			}
		default:
			err = fmt.Errorf("unknown directive %q", fields[0])
		}
		if err != nil {
			return nil, fmt.Errorf("map line %d: %w", lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading map: %w", err)
	}
	if len(m.Provinces) == 0 {
		return nil, fmt.Errorf("map has no provinces")
	}

	m.index()
	return m, nil
}

func (m *DiplomacyMap) parseProvince(f []string) error {
	if len(f) < 6 {
		return fmt.Errorf("province needs id, type, center, home, coasts and name")
	}
	id := f[0]
	if _, dup := m.Provinces[id]; dup {
		return fmt.Errorf("duplicate province %q", id)
	}
	p := &Province{ID: id, Name: strings.Join(f[5:], " ")}
	switch f[1] {
	case "land":
		p.Type = Land
	case "sea":
		p.Type = Sea
	case "coastal":
		p.Type = Coastal
	default:
		return fmt.Errorf("province %s: unknown type %q", id, f[1])
	}
	switch f[2] {
	case "center":
		p.IsSupplyCenter = true
	case "-":
	default:
		return fmt.Errorf("province %s: expected center or -, got %q", id, f[2])
	}
	if f[3] != "-" {
		power, ok := ParsePower(f[3])
		if !ok || len(f[3]) == 1 {
			return fmt.Errorf("province %s: unknown power %q", id, f[3])
		}
		p.HomePower = power
	}
	if f[4] != "-" {
		for c := range strings.SplitSeq(f[4], ",") {
			coast, err := parseCoast(c)
			if err != nil {
				return fmt.Errorf("province %s: %w", id, err)
			}
			p.Coasts = append(p.Coasts, coast)
		}
	}
	m.Provinces[id] = p
	return nil
}

func (m *DiplomacyMap) parseBorderEnd(s string) (UnitPosition, error) {
	id, c, _ := strings.Cut(s, "/")
	if _, ok := m.Provinces[id]; !ok {
		return UnitPosition{}, fmt.Errorf("border references unknown province %q", id)
	}
	pos := UnitPosition{Province: id}
	if c != "" {
		coast, err := parseCoast(c)
		if err != nil {
			return UnitPosition{}, err
		}
		if !m.HasCoast(id, coast) {
			return UnitPosition{}, fmt.Errorf("province %s has no coast %s", id, coast)
		}
		pos.Coast = coast
	}
	return pos, nil
}

func parseCoast(s string) (Coast, error) {
	switch c := Coast(s); c {
	case NorthCoast, SouthCoast, EastCoast, WestCoast:
		return c, nil
	default:
		return NoCoast, fmt.Errorf("invalid coast %q", s)
	}
}

// index builds the dense province index (sorted for deterministic ordering)
// and the home center table.
func (m *DiplomacyMap) index() {
	keys := make([]string, 0, len(m.Provinces))
	for id := range m.Provinces {
		keys = append(keys, id)
	}
	sort.Strings(keys)
	m.provIndex = make(map[string]int, len(keys))
	m.provNames = keys
	m.homes = make(map[Power][]string)
	for i, id := range keys {
		m.provIndex[id] = i
		p := m.Provinces[id]
		if p.IsSupplyCenter && p.HomePower != Neutral {
			m.homes[p.HomePower] = append(m.homes[p.HomePower], id)
		}
	}
}
