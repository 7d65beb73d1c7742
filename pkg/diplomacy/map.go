package diplomacy

import (
	"slices"
	"sort"
)

// ProvinceType classifies a province as land, sea, or coastal.
type ProvinceType int

const (
	Land    ProvinceType = iota // Inland province (armies only)
	Sea                         // Sea province (fleets only)
	Coastal                     // Coastal province (armies or fleets)
)

func (t ProvinceType) String() string {
	switch t {
	case Land:
		return "land"
	case Sea:
		return "sea"
	default:
		return "coastal"
	}
}

// Coast represents a specific coast of a province with split coasts.
type Coast string

const (
	NoCoast    Coast = ""
	NorthCoast Coast = "nc"
	SouthCoast Coast = "sc"
	EastCoast  Coast = "ec"
	WestCoast  Coast = "wc"
)

// Province represents a single province on the Diplomacy map.
type Province struct {
	ID             string
	Name           string
	Type           ProvinceType
	IsSupplyCenter bool
	HomePower      Power   // Power whose home SC this is ("" if not a home SC)
	Coasts         []Coast // Non-empty only for split-coast provinces (e.g. Spain)
}

// Adjacency describes a connection between two provinces.
// For provinces with split coasts, coastal adjacencies specify which coast.
type Adjacency struct {
	From      string
	FromCoast Coast
	To        string
	ToCoast   Coast
	ArmyOK    bool // Armies can traverse this adjacency
	FleetOK   bool // Fleets can traverse this adjacency
}

// DiplomacyMap holds the full province and adjacency graph.
// A map is read-only once built and safe for concurrent use.
type DiplomacyMap struct {
	Provinces   map[string]*Province
	Adjacencies map[string][]Adjacency // keyed by from province ID
	provIndex   map[string]int
	provNames   []string
	homes       map[Power][]string
}

// ProvinceIndex returns the dense index for a province ID, or -1 if the
// province is not on the map. Indexes follow alphabetical province order.
func (m *DiplomacyMap) ProvinceIndex(id string) int {
	idx, ok := m.provIndex[id]
	if !ok {
		return -1
	}
	return idx
}

// ProvinceName returns the province ID for a given dense index.
func (m *DiplomacyMap) ProvinceName(idx int) string {
	return m.provNames[idx]
}

// ProvinceIDs returns every province ID in index order.
func (m *DiplomacyMap) ProvinceIDs() []string {
	return m.provNames
}

// Adjacent returns true if there is a valid adjacency from src to dst
// for the given unit type and coast constraints.
func (m *DiplomacyMap) Adjacent(src string, srcCoast Coast, dst string, dstCoast Coast, isFleet bool) bool {
	for _, adj := range m.Adjacencies[src] {
		if adj.To != dst {
			continue
		}
		if isFleet && !adj.FleetOK {
			continue
		}
		if !isFleet && !adj.ArmyOK {
			continue
		}
		if srcCoast != NoCoast && adj.FromCoast != NoCoast && adj.FromCoast != srcCoast {
			continue
		}
		if dstCoast != NoCoast && adj.ToCoast != NoCoast && adj.ToCoast != dstCoast {
			continue
		}
		return true
	}
	return false
}

// FleetCoastsTo returns all coasts at the destination province reachable by fleet
// from the given source province and coast.
func (m *DiplomacyMap) FleetCoastsTo(src string, srcCoast Coast, dst string) []Coast {
	var coasts []Coast
	for _, adj := range m.Adjacencies[src] {
		if adj.To != dst || !adj.FleetOK {
			continue
		}
		if srcCoast != NoCoast && adj.FromCoast != NoCoast && adj.FromCoast != srcCoast {
			continue
		}
		coasts = append(coasts, adj.ToCoast)
	}
	return coasts
}

// ProvincesAdjacentTo returns all province IDs adjacent to the given province
// accessible by the given unit type.
func (m *DiplomacyMap) ProvincesAdjacentTo(provID string, coast Coast, isFleet bool) []string {
	seen := make(map[string]bool)
	var result []string
	for _, adj := range m.Adjacencies[provID] {
		if isFleet && !adj.FleetOK {
			continue
		}
		if !isFleet && !adj.ArmyOK {
			continue
		}
		if coast != NoCoast && adj.FromCoast != NoCoast && adj.FromCoast != coast {
			continue
		}
		if !seen[adj.To] {
			seen[adj.To] = true
			result = append(result, adj.To)
		}
	}
	return result
}

// Destinations returns every location a unit of the given type standing at
// provID/coast can move to, one entry per reachable coast.
func (m *DiplomacyMap) Destinations(provID string, coast Coast, isFleet bool) []UnitPosition {
	seen := make(map[UnitPosition]bool)
	var result []UnitPosition
	for _, adj := range m.Adjacencies[provID] {
		if isFleet && !adj.FleetOK {
			continue
		}
		if !isFleet && !adj.ArmyOK {
			continue
		}
		if coast != NoCoast && adj.FromCoast != NoCoast && adj.FromCoast != coast {
			continue
		}
		pos := UnitPosition{Province: adj.To}
		if isFleet {
			pos.Coast = adj.ToCoast
		}
		if !seen[pos] {
			seen[pos] = true
			result = append(result, pos)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Province != result[j].Province {
			return result[i].Province < result[j].Province
		}
		return result[i].Coast < result[j].Coast
	})
	return result
}

// HasCoasts returns true if the province has split coasts (e.g. Spain, St Petersburg, Bulgaria).
func (m *DiplomacyMap) HasCoasts(provID string) bool {
	p, ok := m.Provinces[provID]
	return ok && len(p.Coasts) > 0
}

// HasCoast reports whether the province has the named coast.
func (m *DiplomacyMap) HasCoast(provID string, coast Coast) bool {
	p, ok := m.Provinces[provID]
	if !ok {
		return false
	}
	for _, c := range p.Coasts {
		if c == coast {
			return true
		}
	}
	return false
}

// IsSea reports whether fleets in the province may convoy.
func (m *DiplomacyMap) IsSea(provID string) bool {
	p, ok := m.Provinces[provID]
	return ok && p.Type == Sea
}

// IsCoastal reports whether the province borders the sea and holds land.
func (m *DiplomacyMap) IsCoastal(provID string) bool {
	p, ok := m.Provinces[provID]
	return ok && p.Type == Coastal
}

// HomeCenters returns the home supply center IDs for a given power, sorted.
func (m *DiplomacyMap) HomeCenters(power Power) []string {
	return m.homes[power]
}

// ConvoyRoutes enumerates every simple chain of fleet-occupied sea provinces
// connecting from to to. Routes are sorted shortest first, then
// lexicographically.
func (m *DiplomacyMap) ConvoyRoutes(gs *GameState, from, to string) [][]string {
	if from == to || !m.IsCoastal(from) || !m.IsCoastal(to) {
		return nil
	}
	occupied := func(id string) bool {
		if !m.IsSea(id) {
			return false
		}
		u := gs.UnitAt(id)
		return u != nil && u.Type == Fleet
	}

	var routes [][]string
	var walk func(route []string)
	walk = func(route []string) {
		here := route[len(route)-1]
		next := m.ProvincesAdjacentTo(here, NoCoast, true)
		sort.Strings(next)
		for _, id := range next {
			if id == to {
				routes = append(routes, append([]string(nil), route...))
			}
		}
		for _, id := range next {
			if !occupied(id) || slices.Contains(route, id) {
				continue
			}
			walk(append(route, id))
		}
	}

	starts := m.ProvincesAdjacentTo(from, NoCoast, true)
	sort.Strings(starts)
	for _, id := range starts {
		if occupied(id) {
			walk([]string{id})
		}
	}

	sort.SliceStable(routes, func(i, j int) bool {
		if len(routes[i]) != len(routes[j]) {
			return len(routes[i]) < len(routes[j])
		}
		for k := range routes[i] {
			if routes[i][k] != routes[j][k] {
				return routes[i][k] < routes[j][k]
			}
		}
		return false
	})
	return routes
}

// Unreachable is the distance reported between disconnected provinces.
const Unreachable = 999

// Distance computes the minimum number of steps from a province to any of
// the targets, over adjacencies usable by either unit type.
func (m *DiplomacyMap) Distance(from string, targets []string) int {
	if len(targets) == 0 {
		return Unreachable
	}

	targetSet := make(map[string]bool, len(targets))
	for _, t := range targets {
		targetSet[t] = true
	}
	if targetSet[from] {
		return 0
	}

	visited := map[string]bool{from: true}
	queue := []string{from}
	dist := 0

	for len(queue) > 0 {
		dist++
		var nextQueue []string
		for _, prov := range queue {
			for _, adj := range m.Adjacencies[prov] {
				if visited[adj.To] {
					continue
				}
				if targetSet[adj.To] {
					return dist
				}
				visited[adj.To] = true
				nextQueue = append(nextQueue, adj.To)
			}
		}
		queue = nextQueue
	}

	return Unreachable
}
