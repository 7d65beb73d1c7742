package diplomacy

// resolveRetreats adjudicates the retreat phase. Unordered units and
// units ordered to disband are removed; retreats to a destination claimed
// by a single unit succeed; units contesting a destination are all
// destroyed. Results follow the order of gs.Dislodged.
func resolveRetreats(gs *GameState, set *OrderSet) []ResolvedOrder {
	results := make([]ResolvedOrder, len(gs.Dislodged))
	claims := make(map[string][]int)

	for i, d := range gs.Dislodged {
		o := set.For(d.DislodgedFrom)
		if o == nil || o.Unit != d.Unit {
			o = &Order{Kind: OrderDisband, Power: d.Unit.Power, Unit: d.Unit}
		}
		results[i] = ResolvedOrder{Order: *o, Note: o.Note}
		switch {
		case o.Note != MBV:
			results[i].Result = FLD
		case o.Kind == OrderDisband:
			results[i].Result = SUC
		case o.Kind == OrderRetreat:
			claims[o.Dest.Province] = append(claims[o.Dest.Province], i)
		default:
			results[i].Result = FLD
		}
	}

	for _, claimants := range claims {
		if len(claimants) == 1 {
			results[claimants[0]].Result = SUC
			continue
		}
		for _, i := range claimants {
			results[i].Result = BNC
		}
	}

	for _, r := range results {
		if r.Result == SUC && r.Order.Kind == OrderRetreat {
			u := r.Order.Unit
			u.Province = r.Order.Dest.Province
			u.Coast = r.Order.Dest.Coast
			gs.Units = append(gs.Units, u)
		}
	}
	gs.Dislodged = nil
	return results
}
