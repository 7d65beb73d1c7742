package diplomacy

import "strings"

// Power represents one of the great powers.
type Power string

const (
	Austria Power = "austria"
	England Power = "england"
	France  Power = "france"
	Germany Power = "germany"
	Italy   Power = "italy"
	Russia  Power = "russia"
	Turkey  Power = "turkey"
	Neutral Power = ""
)

// AllPowers returns the seven great powers in standard order.
func AllPowers() []Power {
	return []Power{Austria, England, France, Germany, Italy, Russia, Turkey}
}

// ParsePower accepts a power name in any case, or its first letter.
func ParsePower(s string) (Power, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, p := range AllPowers() {
		if s == string(p) || (len(s) == 1 && s[0] == string(p)[0]) {
			return p, true
		}
	}
	return Neutral, false
}

// UnitType represents the type of a military unit.
type UnitType int

const (
	Army UnitType = iota
	Fleet
)

func (u UnitType) String() string {
	if u == Army {
		return "army"
	}
	return "fleet"
}

// Letter returns "A" or "F".
func (u UnitType) Letter() string {
	if u == Army {
		return "A"
	}
	return "F"
}

// Unit represents a single military unit on the board.
type Unit struct {
	Type     UnitType
	Power    Power
	Province string
	Coast    Coast // Only relevant for fleets on split-coast provinces
}

// Position returns the unit's province and coast.
func (u Unit) Position() UnitPosition {
	return UnitPosition{Province: u.Province, Coast: u.Coast}
}

// String renders the unit as "A vie" or "F stp/sc".
func (u Unit) String() string {
	return u.Type.Letter() + " " + u.Position().String()
}

// UnitPosition identifies a unit's location including coast.
type UnitPosition struct {
	Province string
	Coast    Coast
}

func (p UnitPosition) String() string {
	if p.Coast == NoCoast {
		return p.Province
	}
	return p.Province + "/" + string(p.Coast)
}
