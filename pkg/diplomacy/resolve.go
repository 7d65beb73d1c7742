package diplomacy

// resolve narrows decisions until every one is decided. A pass that
// decides nothing hands the stalled set to the paradox resolver, which
// always forces at least one decision, so the number of passes never
// exceeds the number of decisions.
func (g *graph) resolve() {
	pending := g.pending()
	for len(pending) > 0 {
		g.passes++
		var remaining []handle
		for _, h := range pending {
			if !g.calculate(h) {
				remaining = append(remaining, h)
			}
		}
		if len(remaining) == len(pending) {
			g.log.Debug().Int("pending", len(remaining)).Int("pass", g.passes).Msg("resolution stalled")
			g.resolveParadox(remaining)
			remaining = g.undecided(remaining)
		}
		pending = remaining
	}
}

func (g *graph) undecided(list []handle) []handle {
	out := list[:0]
	for _, h := range list {
		if !g.decs[h].decided() {
			out = append(out, h)
		}
	}
	return out
}

// resolveParadox breaks a stall by forcing decisions in the smallest
// self-contained knot of the pending set.
func (g *graph) resolveParadox(pending []handle) {
	core := g.core(pending)

	var forced int
	switch {
	case g.convoyParadox(core):
		switch g.rules.ConvoyParadox {
		case Paradox1982:
			forced = g.rule1982(core)
		case ParadoxSzykman:
			forced = g.szykman(core)
		case ParadoxDPTG:
			forced = g.dptg(core)
		}
	case g.rotation(core):
		forced = g.circular(core)
	}
	if forced == 0 {
		forced = g.fallback(core)
	}
	if forced == 0 {
		forced = g.fallback(pending)
	}
	if forced == 0 {
		g.force(pending[0])
		forced = 1
	}
	g.log.Debug().Int("core", len(core)).Int("forced", forced).Msg("paradox resolved")
}

// core computes, for each pending decision, the transitive closure of its
// undecided dependencies and returns the smallest closure found. An empty
// closure falls back to the whole pending set.
func (g *graph) core(pending []handle) []handle {
	index := make(map[handle]int, len(pending))
	for i, h := range pending {
		index[h] = i
	}
	closure := make([][]bool, len(pending))
	for i, h := range pending {
		closure[i] = make([]bool, len(pending))
		for _, dep := range g.decs[h].deps {
			if j, ok := index[dep]; ok {
				closure[i][j] = true
			}
		}
	}
	for grew := true; grew; {
		grew = false
		for i := range closure {
			for j, in := range closure[i] {
				if !in {
					continue
				}
				for k, via := range closure[j] {
					if via && !closure[i][k] {
						closure[i][k] = true
						grew = true
					}
				}
			}
		}
	}

	best := -1
	bestSize := len(pending)
	for i := range closure {
		size := 0
		for _, in := range closure[i] {
			if in {
				size++
			}
		}
		if size < bestSize {
			best, bestSize = i, size
		}
	}
	if best < 0 || bestSize == 0 {
		return pending
	}
	core := make([]handle, 0, bestSize)
	for j, in := range closure[best] {
		if in {
			core = append(core, pending[j])
		}
	}
	return core
}

// convoyParadox reports whether some move in the core enters a province
// held by a fleet convoying an army whose path is still open.
func (g *graph) convoyParadox(core []handle) bool {
	for _, h := range core {
		d := &g.decs[h]
		if d.kind != decMove {
			continue
		}
		occ, ok := g.at[d.prov]
		if !ok {
			continue
		}
		intent, ok := g.intents[g.units[occ].unit.Province]
		if !ok {
			continue
		}
		if army, ok := g.at[intent.Army]; ok {
			if path := g.dec(g.units[army].dec[decPath]); path != nil && !path.decided() {
				return true
			}
		}
	}
	return false
}

// rotation reports whether the moves in the core form closed cycles: the
// set of provinces entered equals the set of provinces left.
func (g *graph) rotation(core []handle) bool {
	into := make(map[string]bool)
	from := make(map[string]bool)
	for _, h := range core {
		d := &g.decs[h]
		if d.kind == decMove {
			into[d.prov] = true
			from[g.units[d.unit].unit.Province] = true
		}
	}
	if len(into) == 0 || len(into) != len(from) {
		return false
	}
	for p := range into {
		if !from[p] {
			return false
		}
	}
	return true
}

// rule1982 lets a support stand when it is attacked by a convoyed army
// and is given into a province whose fleet convoys that same army.
func (g *graph) rule1982(core []handle) int {
	forced := 0
	for _, h := range core {
		d := &g.decs[h]
		if d.kind != decSupport || d.decided() {
			continue
		}
		occ, ok := g.at[d.prov]
		if !ok {
			continue
		}
		fleet := &g.units[occ]
		intent, ok := g.intents[fleet.unit.Province]
		if !ok {
			continue
		}
		army, ok := g.at[intent.Army]
		if !ok {
			continue
		}
		if g.rules.ConvoyDisruption == DisruptAny && !g.pathUses(army, fleet.dec[decDislodge]) {
			continue
		}
		for _, dep := range d.deps[1:] {
			if a := &g.decs[dep]; a.unit == army && g.units[a.unit].order.IsConvoyed() {
				d.passed = true
				forced++
				break
			}
		}
	}
	return forced
}

func (g *graph) pathUses(unit int, dislodge handle) bool {
	path := g.dec(g.units[unit].dec[decPath])
	if path == nil {
		return false
	}
	for _, dep := range path.deps {
		if dep == dislodge {
			return true
		}
	}
	return false
}

// szykman treats every convoyed army in the core that might not attack as
// holding: its attack drops to zero, its move fails and it prevents
// nothing.
func (g *graph) szykman(core []handle) int {
	forced := 0
	for _, h := range core {
		d := &g.decs[h]
		if d.kind != decAttack || d.min != 0 || d.decided() {
			continue
		}
		d.max = 0
		forced++
		n := &g.units[d.unit]
		if move := g.dec(n.dec[decMove]); move != nil && !move.decided() {
			move.failed = true
			forced++
		}
		if prevent := g.dec(n.dec[decPrevent]); prevent != nil && !prevent.decided() {
			prevent.min, prevent.max = 0, 0
			forced++
		}
	}
	return forced
}

// dptg fails everything when a support in the core backs a convoying
// fleet, and otherwise disrupts only the convoys.
func (g *graph) dptg(core []handle) int {
	for _, h := range core {
		d := &g.decs[h]
		if d.kind != decSupport {
			continue
		}
		if t, ok := g.at[g.units[d.unit].order.Target.Province]; ok && g.units[t].order.IsConvoying() {
			g.log.Debug().Str("support", g.units[d.unit].unit.String()).Msg("confused paradox")
			return g.fallback(core)
		}
	}
	return g.szykman(core)
}

func (g *graph) circular(core []handle) int {
	forced := 0
	for _, h := range core {
		if d := &g.decs[h]; d.kind == decMove && !d.decided() {
			d.passed = true
			forced++
		}
	}
	return forced
}

// fallback fails every move and support in the set.
func (g *graph) fallback(set []handle) int {
	forced := 0
	for _, h := range set {
		d := &g.decs[h]
		if (d.kind == decMove || d.kind == decSupport) && !d.decided() {
			d.failed = true
			forced++
		}
	}
	return forced
}

// force decides h pessimistically.
func (g *graph) force(h handle) {
	d := &g.decs[h]
	if d.kind.numeric() {
		d.max = d.min
		return
	}
	d.failed = true
}
