package diplomacy

import "fmt"

// decisionKind enumerates the nine decision kinds. The constants are
// declared in evaluation order; every resolver pass visits pending
// decisions sorted by kind.
type decisionKind uint8

const (
	decPath decisionKind = iota
	decHead
	decAttack
	decSupport
	decDefend
	decPrevent
	decHold
	decMove
	decDislodge
	numDecisionKinds
)

var decisionNames = [numDecisionKinds]string{
	"path", "head", "attack", "support", "defend", "prevent", "hold", "move", "dislodge",
}

func (k decisionKind) String() string { return decisionNames[k] }

// numeric reports whether the kind carries a strength interval rather
// than a passed/failed state.
func (k decisionKind) numeric() bool {
	switch k {
	case decAttack, decHold, decPrevent, decDefend:
		return true
	}
	return false
}

// handle addresses a decision in the graph arena.
type handle int32

const noDecision handle = -1

// unbounded is the initial maximum of a numeric decision.
const unbounded = 1 << 30

type decision struct {
	kind decisionKind
	unit int    // owning unit index; -1 for hold decisions
	prov string // destination province; the held province for hold decisions

	// deps is fixed once initDeps has run. Slots may hold noDecision.
	deps []handle

	passed, failed bool
	min, max       int

	// Path decisions. routes is nil with overland set for a land move; an
	// empty, non-overland route list means no convoy is available.
	routes     [][]handle
	routeIdx   []int // candidate index of each remaining route
	overland   bool
	disruptAll bool
	backup     bool

	// Section sizes inside deps for attack decisions.
	nHeads, nMoves int
}

func (d *decision) decided() bool {
	if d.kind.numeric() {
		if d.max < d.min {
			panic(fmt.Sprintf("diplomacy: %s decision has max %d below min %d", d.kind, d.max, d.min))
		}
		return d.min == d.max
	}
	if d.passed && d.failed {
		panic(fmt.Sprintf("diplomacy: %s decision both passed and failed", d.kind))
	}
	return d.passed || d.failed
}

func (g *graph) dec(h handle) *decision {
	if h == noDecision {
		return nil
	}
	return &g.decs[h]
}

// passed and notFailed treat a missing decision as false, so an absent
// move counts as neither passed nor possible.
func (g *graph) passed(h handle) bool {
	return h != noDecision && g.decs[h].passed
}

func (g *graph) failed(h handle) bool {
	return h != noDecision && g.decs[h].failed
}

func (g *graph) notFailed(h handle) bool {
	return h != noDecision && !g.decs[h].failed
}

// opposition returns the largest minimum and maximum among numeric deps.
func (g *graph) opposition(deps []handle) (minOpp, maxOpp int) {
	for _, h := range deps {
		d := g.dec(h)
		if d == nil {
			continue
		}
		minOpp = max(minOpp, d.min)
		maxOpp = max(maxOpp, d.max)
	}
	return minOpp, maxOpp
}

// supportRange counts the supports that may still succeed and those that
// already have.
func (g *graph) supportRange(supports []handle) (certain, possible int) {
	for _, h := range supports {
		if !g.failed(h) {
			possible++
			if g.passed(h) {
				certain++
			}
		}
	}
	return certain, possible
}

// calculate narrows h using the current state of its dependencies and
// reports whether it is now decided.
func (g *graph) calculate(h handle) bool {
	d := &g.decs[h]
	switch d.kind {
	case decMove:
		g.calcMove(d)
	case decSupport:
		g.calcSupport(d)
	case decDislodge:
		g.calcDislodge(d)
	case decPath:
		g.calcPath(d)
	case decHead:
		g.calcHead(d)
	case decAttack:
		g.calcAttack(d)
	case decHold:
		g.calcHold(d)
	case decPrevent:
		g.calcPrevent(d)
	case decDefend:
		g.calcDefend(d)
	}
	return d.decided()
}

// calcMove: deps are the unit's attack, the destination's hold, the
// defends of head-to-head opponents and the prevents of other entrants.
func (g *graph) calcMove(d *decision) {
	attack := g.dec(d.deps[0])
	minOpp, maxOpp := g.opposition(d.deps[1:])
	d.passed = attack.min > maxOpp
	d.failed = attack.max <= minOpp
	if d.passed {
		if occ, ok := g.at[d.prov]; ok {
			g.units[occ].dislodger = d.unit
		}
	}
}

// calcSupport: deps are the supporter's dislodge and the attacks of every
// unit entering its province except one coming from where the support is
// given.
func (g *graph) calcSupport(d *decision) {
	dislodge := g.dec(d.deps[0])
	minOpp, maxOpp := g.opposition(d.deps[1:])
	d.passed = dislodge.failed && maxOpp == 0
	d.failed = dislodge.passed || minOpp >= 1
}

// calcDislodge: deps are the unit's own move, if any, and the moves of
// every unit entering its province.
func (g *graph) calcDislodge(d *decision) {
	own := d.deps[0]
	entering := d.deps[1:]
	anyPassed, allFailed := false, true
	for _, h := range entering {
		if g.passed(h) {
			anyPassed = true
		}
		if !g.failed(h) {
			allFailed = false
		}
	}
	d.passed = (own == noDecision || g.failed(own)) && anyPassed
	d.failed = g.passed(own) || allFailed
}

// calcPath: deps are the dislodge decisions of every fleet on every
// candidate route.
func (g *graph) calcPath(d *decision) {
	if len(d.routes) > 0 {
		d.failed = g.pathFails(d)
		if d.failed && d.backup {
			d.routes, d.routeIdx = nil, nil
			d.overland = true
		} else {
			d.passed = g.pathPasses(d)
		}
	}
	if len(d.routes) == 0 {
		if d.overland {
			u := &g.units[d.unit]
			d.passed = canMoveTo(u.unit, u.order.Dest, g.m)
		} else {
			d.passed = false
		}
		d.failed = !d.passed
	}
}

func (g *graph) routeClear(route []handle) bool {
	for _, h := range route {
		if !g.failed(h) {
			return false
		}
	}
	return true
}

func (g *graph) routeCut(route []handle) bool {
	for _, h := range route {
		if g.passed(h) {
			return true
		}
	}
	return false
}

func (g *graph) pathPasses(d *decision) bool {
	if d.disruptAll {
		for i, r := range d.routes {
			if g.routeClear(r) {
				d.chooseRoute(i)
				return true
			}
		}
		return false
	}
	for _, r := range d.routes {
		if !g.routeClear(r) {
			return false
		}
	}
	d.chooseRoute(0)
	return true
}

func (g *graph) pathFails(d *decision) bool {
	if d.disruptAll {
		for _, r := range d.routes {
			if !g.routeCut(r) {
				return false
			}
		}
		d.chooseRoute(0)
		return true
	}
	for i, r := range d.routes {
		if g.routeCut(r) {
			d.chooseRoute(i)
			return true
		}
	}
	return false
}

func (d *decision) chooseRoute(i int) {
	d.routes = [][]handle{d.routes[i]}
	d.routeIdx = []int{d.routeIdx[i]}
}

// calcHead: deps are the unit's path and the heads of its head-to-head
// opponents. A convoyed unit never meets its opponent head on.
func (g *graph) calcHead(d *decision) {
	path := g.dec(d.deps[0])
	heads := d.deps[1:]
	allFailed := true
	for _, h := range heads {
		if !g.failed(h) {
			allFailed = false
		}
	}
	switch {
	case path.failed, allFailed:
		d.failed = true
	case path.passed:
		if len(path.routes) > 0 {
			d.failed = true
			return
		}
		for _, h := range heads {
			if g.headOverland(h) {
				d.passed = true
				return
			}
		}
	}
}

func (g *graph) headOverland(h handle) bool {
	d := g.dec(h)
	path := g.dec(d.deps[0])
	return d.passed || (path.passed && len(path.routes) == 0)
}

// calcAttack: deps are the unit's path, opposing heads, the moves of the
// units in the target province and the unit's supports.
func (g *graph) calcAttack(d *decision) {
	path := d.deps[0]
	heads := d.deps[1 : 1+d.nHeads]
	moves := d.deps[1+d.nHeads : 1+d.nHeads+d.nMoves]
	supports := d.deps[1+d.nHeads+d.nMoves:]
	d.min = g.attackStrength(d, path, heads, moves, supports, g.passed, g.notFailed)
	d.max = g.attackStrength(d, path, heads, moves, supports, g.notFailed, g.passed)
}

// attackStrength counts the attack when valid decides which dependencies
// are taken as successful and validHead which opposing heads are.
// Attacking a unit of one's own power, whether it stays put or meets the
// attacker head on, has no strength; supports from the defending power do
// not count.
func (g *graph) attackStrength(d *decision, path handle, heads, moves, supports []handle, valid, validHead func(handle) bool) int {
	if !valid(path) {
		return 0
	}
	var powers []Power
	for _, h := range heads {
		if validHead(h) {
			powers = append(powers, g.units[g.decs[h].unit].unit.Power)
		}
	}
	if occ, ok := g.at[d.prov]; ok && len(moves) > 0 && !valid(moves[0]) {
		powers = append(powers, g.units[occ].unit.Power)
	}
	own := g.units[d.unit].unit.Power
	if containsPower(powers, own) {
		return 0
	}
	strength := 1
	for _, h := range supports {
		if valid(h) && !containsPower(powers, g.units[g.decs[h].unit].unit.Power) {
			strength++
		}
	}
	return strength
}

func containsPower(list []Power, p Power) bool {
	for _, v := range list {
		if v == p {
			return true
		}
	}
	return false
}

// calcHold: deps are the occupant's move when it is moving, otherwise a
// noDecision slot followed by the occupant's supports. An empty province
// has no deps and no strength.
func (g *graph) calcHold(d *decision) {
	if len(d.deps) == 0 {
		d.min, d.max = 0, 0
		return
	}
	if first := d.deps[0]; first != noDecision {
		switch {
		case g.failed(first):
			d.min, d.max = 1, 1
		case g.passed(first):
			d.min, d.max = 0, 0
		default:
			d.min, d.max = 0, 1
		}
		return
	}
	certain, possible := g.supportRange(d.deps[1:])
	d.min, d.max = 1+certain, 1+possible
}

// calcPrevent: deps are the unit's path, its head (possibly noDecision),
// the moves of its head-to-head opponents and its supports.
func (g *graph) calcPrevent(d *decision) {
	path := g.dec(d.deps[0])
	if path.failed {
		d.min, d.max = 0, 0
		return
	}
	head := d.deps[1]
	var moves, supports []handle
	for _, h := range d.deps[2:] {
		switch g.decs[h].kind {
		case decMove:
			moves = append(moves, h)
		case decSupport:
			supports = append(supports, h)
		}
	}
	certain, possible := g.supportRange(supports)
	d.min, d.max = 1+certain, 1+possible

	anyMoveOpen, anyMovePassed := false, false
	for _, h := range moves {
		if !g.failed(h) {
			anyMoveOpen = true
		}
		if g.passed(h) {
			anyMovePassed = true
		}
	}
	if head != noDecision && !g.failed(head) && anyMoveOpen {
		d.min = 0
		if g.passed(head) && anyMovePassed {
			d.max = 0
		}
	} else if !path.passed {
		d.min = 0
	}
}

// calcDefend: deps are the unit's head and its supports.
func (g *graph) calcDefend(d *decision) {
	head := d.deps[0]
	if g.failed(head) {
		d.min, d.max = 0, 0
		return
	}
	certain, possible := g.supportRange(d.deps[1:])
	d.min, d.max = 1+certain, 1+possible
	if !g.passed(head) {
		d.min = 0
	}
}
