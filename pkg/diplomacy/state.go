package diplomacy

import (
	"maps"
	"slices"
)

// Season represents a game season.
type Season string

const (
	Spring Season = "spring"
	Fall   Season = "fall"
)

// PhaseType represents the type of game phase.
type PhaseType string

const (
	PhaseMovement PhaseType = "movement"
	PhaseRetreat  PhaseType = "retreat"
	PhaseBuild    PhaseType = "build"
)

// GameStatus represents the overall game status.
type GameStatus string

const (
	StatusWaiting  GameStatus = "waiting"
	StatusActive   GameStatus = "active"
	StatusFinished GameStatus = "finished"
)

// GameState represents a complete snapshot of the board at a point in time.
type GameState struct {
	Year          int
	Season        Season
	Phase         PhaseType
	Units         []Unit
	SupplyCenters map[string]Power // province ID -> owning power
	Dislodged     []DislodgedUnit  // Units that need retreat orders (retreat phase only)
}

// DislodgedUnit is a unit that was dislodged and needs a retreat order.
type DislodgedUnit struct {
	Unit          Unit
	DislodgedFrom string // Province the unit was dislodged from (same as Unit.Province before dislodgement)
	AttackerFrom  string // Province the attacker came from (cannot retreat there)
	ByConvoy      bool   // The attacker arrived by convoy

	// Retreats lists the legal retreat destinations computed when the unit
	// was dislodged. Nil means unknown (for example a board decoded from a
	// DFEN string without retreat sets); an empty non-nil slice means none.
	Retreats []UnitPosition
}

// CanRetreatTo reports whether pos is among the unit's legal retreats.
func (d DislodgedUnit) CanRetreatTo(pos UnitPosition) bool {
	return slices.Contains(d.Retreats, pos)
}

// NewInitialState returns the standard Diplomacy starting position (Spring 1901 Movement).
func NewInitialState() *GameState {
	return &GameState{
		Year:          1901,
		Season:        Spring,
		Phase:         PhaseMovement,
		Units:         initialUnits(),
		SupplyCenters: initialSupplyCenters(),
	}
}

// UnitAt returns the unit at the given province, or nil if none.
func (gs *GameState) UnitAt(province string) *Unit {
	for i := range gs.Units {
		if gs.Units[i].Province == province {
			return &gs.Units[i]
		}
	}
	return nil
}

// DislodgedAt returns the dislodged unit that was driven out of the given
// province, or nil if none.
func (gs *GameState) DislodgedAt(province string) *DislodgedUnit {
	for i := range gs.Dislodged {
		if gs.Dislodged[i].DislodgedFrom == province {
			return &gs.Dislodged[i]
		}
	}
	return nil
}

// removeUnitAt deletes the unit in the given province, preserving order.
func (gs *GameState) removeUnitAt(province string) (Unit, bool) {
	for i := range gs.Units {
		if gs.Units[i].Province == province {
			u := gs.Units[i]
			gs.Units = append(gs.Units[:i], gs.Units[i+1:]...)
			return u, true
		}
	}
	return Unit{}, false
}

// SupplyCenterCount returns the number of supply centers owned by the given power.
func (gs *GameState) SupplyCenterCount(power Power) int {
	count := 0
	for _, owner := range gs.SupplyCenters {
		if owner == power {
			count++
		}
	}
	return count
}

// UnitCount returns the number of units belonging to the given power.
func (gs *GameState) UnitCount(power Power) int {
	count := 0
	for _, u := range gs.Units {
		if u.Power == power {
			count++
		}
	}
	return count
}

// UnitsOf returns all units belonging to the given power.
func (gs *GameState) UnitsOf(power Power) []Unit {
	var units []Unit
	for _, u := range gs.Units {
		if u.Power == power {
			units = append(units, u)
		}
	}
	return units
}

// PowerIsAlive returns true if the power still has at least one supply center or unit.
func (gs *GameState) PowerIsAlive(power Power) bool {
	return gs.SupplyCenterCount(power) > 0 || gs.UnitCount(power) > 0
}

// Clone returns a deep copy of the GameState. Adjudication mutates the
// state it is given, so callers that need the prior board keep a clone.
func (gs *GameState) Clone() *GameState {
	c := &GameState{
		Year:          gs.Year,
		Season:        gs.Season,
		Phase:         gs.Phase,
		Units:         slices.Clone(gs.Units),
		SupplyCenters: maps.Clone(gs.SupplyCenters),
	}
	if gs.Dislodged != nil {
		c.Dislodged = make([]DislodgedUnit, len(gs.Dislodged))
		for i, d := range gs.Dislodged {
			d.Retreats = slices.Clone(d.Retreats)
			c.Dislodged[i] = d
		}
	}
	return c
}

func initialUnits() []Unit {
	return []Unit{
		// Austria
		{Army, Austria, "vie", NoCoast},
		{Army, Austria, "bud", NoCoast},
		{Fleet, Austria, "tri", NoCoast},
		// England
		{Fleet, England, "lon", NoCoast},
		{Fleet, England, "edi", NoCoast},
		{Army, England, "lvp", NoCoast},
		// France
		{Fleet, France, "bre", NoCoast},
		{Army, France, "par", NoCoast},
		{Army, France, "mar", NoCoast},
		// Germany
		{Fleet, Germany, "kie", NoCoast},
		{Army, Germany, "ber", NoCoast},
		{Army, Germany, "mun", NoCoast},
		// Italy
		{Fleet, Italy, "nap", NoCoast},
		{Army, Italy, "rom", NoCoast},
		{Army, Italy, "ven", NoCoast},
		// Russia
		{Fleet, Russia, "stp", SouthCoast},
		{Army, Russia, "mos", NoCoast},
		{Army, Russia, "war", NoCoast},
		{Fleet, Russia, "sev", NoCoast},
		// Turkey
		{Fleet, Turkey, "ank", NoCoast},
		{Army, Turkey, "con", NoCoast},
		{Army, Turkey, "smy", NoCoast},
	}
}

func initialSupplyCenters() map[string]Power {
	return map[string]Power{
		// Austria
		"vie": Austria, "bud": Austria, "tri": Austria,
		// England
		"lon": England, "edi": England, "lvp": England,
		// France
		"bre": France, "par": France, "mar": France,
		// Germany
		"kie": Germany, "ber": Germany, "mun": Germany,
		// Italy
		"nap": Italy, "rom": Italy, "ven": Italy,
		// Russia
		"stp": Russia, "mos": Russia, "war": Russia, "sev": Russia,
		// Turkey
		"ank": Turkey, "con": Turkey, "smy": Turkey,
		// Neutral supply centers
		"nwy": Neutral, "swe": Neutral, "den": Neutral,
		"hol": Neutral, "bel": Neutral, "spa": Neutral,
		"por": Neutral, "tun": Neutral, "gre": Neutral,
		"ser": Neutral, "bul": Neutral, "rum": Neutral,
	}
}
