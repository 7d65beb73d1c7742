package diplomacy

// NextPhase computes the phase that follows the current one.
// Movement -> Retreat (if units were dislodged), else the next movement or
// the adjustment phase. Retreat -> next movement or adjustment. Build ->
// Spring Movement of the next year. Adjustments are skipped when no power
// has a unit/center mismatch; gs must already reflect the new ownership.
func NextPhase(gs *GameState) (Season, PhaseType) {
	switch gs.Phase {
	case PhaseMovement:
		if len(gs.Dislodged) > 0 {
			return gs.Season, PhaseRetreat
		}
		return afterMovement(gs)
	case PhaseRetreat:
		return afterMovement(gs)
	}
	return Spring, PhaseMovement
}

func afterMovement(gs *GameState) (Season, PhaseType) {
	if gs.Season == Spring {
		return Fall, PhaseMovement
	}
	if NeedsBuildPhase(gs) {
		return Fall, PhaseBuild
	}
	return Spring, PhaseMovement
}

// NeedsBuildPhase returns true if any power has a unit/SC mismatch requiring adjustments.
func NeedsBuildPhase(gs *GameState) bool {
	for _, power := range AllPowers() {
		if gs.SupplyCenterCount(power) != gs.UnitCount(power) {
			return true
		}
	}
	return false
}

// MaxYear is the highest year a game can reach before ending as a draw.
const MaxYear = 3000

// IsYearLimitReached returns true if the game has exceeded the maximum year.
func IsYearLimitReached(gs *GameState) bool {
	return gs.Year > MaxYear
}

// SoloCenters is the number of supply centers needed for a solo victory.
const SoloCenters = 18

// IsGameOver checks if any single power controls 18+ supply centers (solo victory).
func IsGameOver(gs *GameState) (bool, Power) {
	for _, power := range AllPowers() {
		if gs.SupplyCenterCount(power) >= SoloCenters {
			return true, power
		}
	}
	return false, Neutral
}

// AdvanceState moves gs to the next phase once the current one has been
// adjudicated. Center ownership changes hands at the end of the Fall
// movement, or of the Fall retreats when there are any.
func AdvanceState(gs *GameState, m *DiplomacyMap) {
	if gs.Season == Fall && gs.Phase != PhaseBuild && (gs.Phase == PhaseRetreat || len(gs.Dislodged) == 0) {
		UpdateSupplyCenterOwnership(gs, m)
	}
	nextSeason, nextPhase := NextPhase(gs)
	if nextSeason == Spring && nextPhase == PhaseMovement {
		gs.Year++
	}
	gs.Season = nextSeason
	gs.Phase = nextPhase
	if nextPhase != PhaseRetreat {
		gs.Dislodged = nil
	}
}

// UpdateSupplyCenterOwnership assigns SCs to the power whose unit occupies them.
// It is idempotent; AdvanceState calls it after the Fall movement or retreat
// phase, and callers may call it earlier to report the new ownership.
func UpdateSupplyCenterOwnership(gs *GameState, m *DiplomacyMap) {
	if gs.SupplyCenters == nil {
		gs.SupplyCenters = make(map[string]Power)
	}
	for _, u := range gs.Units {
		if prov := m.Provinces[u.Province]; prov != nil && prov.IsSupplyCenter {
			gs.SupplyCenters[u.Province] = u.Power
		}
	}
}
