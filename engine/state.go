package engine

import (
	"fmt"
	"strings"

	"tanksim/common"
)

const (
	shootCooldownTurns  = 4
	backwardDelayFirst  = 2
	backwardDelayRepeat = 1
	zeroShellTieTurns   = 40
)

type position struct{ x, y int }

// GameState owns one match: the board, the live tanks and shells, the turn
// counter and the terminal result. It is confined to a single goroutine for
// the lifetime of the match.
type GameState struct {
	board     *Board
	maxSteps  int
	numShells int

	turn   int
	over   bool
	result string
	winner int
	reason common.Reason

	zeroShellStreak int

	tanks   []*TankState
	algos   []common.TankAlgorithm
	players [3]common.Player // indexed by player number; [0] unused
	shells  []Shell
}

// NewGameState scans the board for tanks in row-major order, assigns
// per-player tank indices starting at 0, and instantiates one TankAlgorithm
// per tank via the matching factory. The resulting tank ordering is stable
// for the whole match and fixes action and transcript ordering.
func NewGameState(board *Board, maxSteps, numShells int,
	p1, p2 common.Player,
	factory1, factory2 common.TankAlgorithmFactory) (*GameState, error) {

	g := &GameState{
		board:     board,
		maxSteps:  maxSteps,
		numShells: numShells,
	}
	g.players[1] = p1
	g.players[2] = p2

	nextIndex := [3]int{}
	for y := 0; y < board.Rows(); y++ {
		for x := 0; x < board.Cols(); x++ {
			content := board.Cell(x, y).Content
			if content != Tank1 && content != Tank2 {
				continue
			}
			player := 1
			dir := Direction(6) // west
			factory := factory1
			if content == Tank2 {
				player = 2
				dir = Direction(2) // east
				factory = factory2
			}
			ts := &TankState{
				Player:     player,
				Index:      nextIndex[player],
				X:          x,
				Y:          y,
				Dir:        dir,
				Alive:      true,
				ShellsLeft: numShells,
			}
			nextIndex[player]++

			algo, err := newTankAlgorithm(factory, player, ts.Index)
			if err != nil {
				return nil, err
			}
			g.tanks = append(g.tanks, ts)
			g.algos = append(g.algos, algo)
		}
	}
	return g, nil
}

func newTankAlgorithm(factory common.TankAlgorithmFactory, player, index int) (algo common.TankAlgorithm, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tank algorithm factory panicked for player %d tank %d: %v", player, index, r)
		}
	}()
	algo = factory(player, index)
	if algo == nil {
		return nil, fmt.Errorf("tank algorithm factory returned nil for player %d tank %d", player, index)
	}
	return algo, nil
}

func (g *GameState) IsOver() bool          { return g.over }
func (g *GameState) ResultText() string    { return g.result }
func (g *GameState) Winner() int           { return g.winner }
func (g *GameState) Reason() common.Reason { return g.reason }
func (g *GameState) TurnCount() int        { return g.turn }
func (g *GameState) Board() *Board         { return g.board }

// BoardSnapshot returns an owning snapshot of the current board.
func (g *GameState) BoardSnapshot() *Snapshot { return NewSnapshot(g.board) }

// AliveCounts returns the number of live tanks per player.
func (g *GameState) AliveCounts() (p1, p2 int) {
	for _, ts := range g.tanks {
		if !ts.Alive {
			continue
		}
		if ts.Player == 1 {
			p1++
		} else {
			p2++
		}
	}
	return p1, p2
}

// AdvanceOneTurn runs exactly one turn and returns the transcript line for
// it. A panic escaping plugin code terminates the match with an error; the
// board is never left half-updated because the panic can only surface from
// the gather phase, before any state mutation.
func (g *GameState) AdvanceOneTurn() (string, error) {
	if g.over {
		return "", nil
	}

	n := len(g.tanks)
	actions := make([]common.ActionRequest, n)
	logActions := make([]common.ActionRequest, n)
	ignored := make([]bool, n)
	for k := range actions {
		actions[k] = common.ActionDoNothing
		logActions[k] = common.ActionDoNothing
	}

	// Phase 1+2: gather requests, mediating battle-info queries.
	for k, ts := range g.tanks {
		if !ts.Alive {
			continue
		}
		req, err := g.requestAction(k)
		if err != nil {
			return "", err
		}
		logActions[k] = req
		actions[k] = req
		if req == common.ActionGetBattleInfo {
			view := NewSnapshotMarking(g.board, ts.X, ts.Y)
			if err := g.deliverBattleInfo(k, view); err != nil {
				return "", err
			}
		}
	}

	// Phase 3: backward-move delay state machine.
	g.applyBackwardDelay(actions, logActions, ignored)

	// Phase 4: rotations.
	g.applyRotations(actions)

	// Phase 5: tanks standing on mines die, consuming the mine.
	g.handleMines()

	// Phase 6: shell motion, two half-steps with overrun checks.
	g.moveShells()

	// Phase 7: shooting.
	g.handleShooting(actions, ignored)

	// Phase 8: tank movement and collision resolution.
	g.moveTanks(actions, ignored)

	// Phase 9: overlays and end conditions.
	g.board.ClearShellMarks()
	for _, sh := range g.shells {
		g.board.Cell(sh.X, sh.Y).ShellOverlay = true
	}
	g.checkEndConditions()

	// Phase 10: counters.
	g.turn++
	for _, ts := range g.tanks {
		if ts.ShootCooldown > 0 {
			ts.ShootCooldown--
		}
	}

	return g.transcript(logActions, ignored), nil
}

func (g *GameState) requestAction(k int) (req common.ActionRequest, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tank algorithm panicked (player %d tank %d): %v",
				g.tanks[k].Player, g.tanks[k].Index, r)
		}
	}()
	return g.algos[k].GetAction(), nil
}

func (g *GameState) deliverBattleInfo(k int, view common.SatelliteView) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("player %d panicked delivering battle info: %v", g.tanks[k].Player, r)
		}
	}()
	g.players[g.tanks[k].Player].UpdateTankWithBattleInfo(g.algos[k], view)
	return nil
}

// applyBackwardDelay implements the delayed-backward protocol: a fresh
// MoveBackward idles, then executes two turns later; a backward issued right
// after an executed one waits a single turn; MoveForward during the wait
// cancels; GetBattleInfo passes through untouched.
func (g *GameState) applyBackwardDelay(actions, logActions []common.ActionRequest, ignored []bool) {
	for k, ts := range g.tanks {
		if !ts.Alive {
			continue
		}
		if ts.BackwardDelay > 0 {
			ts.BackwardDelay--
			if ts.BackwardDelay == 0 {
				// The pending backward executes now; the transcript still
				// reports the raw request as ignored.
				ts.LastBackwardExec = true
				actions[k] = common.ActionMoveBackward
				ignored[k] = true
				continue
			}
			switch logActions[k] {
			case common.ActionMoveForward:
				ts.BackwardDelay = 0
				ts.LastBackwardExec = false
				actions[k] = common.ActionDoNothing
			case common.ActionGetBattleInfo:
				actions[k] = common.ActionGetBattleInfo
			default:
				actions[k] = common.ActionDoNothing
				ignored[k] = true
			}
			continue
		}
		if logActions[k] == common.ActionMoveBackward {
			if ts.LastBackwardExec {
				ts.BackwardDelay = backwardDelayRepeat
			} else {
				ts.BackwardDelay = backwardDelayFirst
			}
			ts.LastBackwardExec = false
			actions[k] = common.ActionDoNothing
			continue
		}
		ts.LastBackwardExec = false
	}
}

func (g *GameState) applyRotations(actions []common.ActionRequest) {
	for k, ts := range g.tanks {
		if !ts.Alive {
			continue
		}
		switch actions[k] {
		case common.ActionRotateLeft90:
			ts.Dir = ts.Dir.Rotate(-2)
		case common.ActionRotateRight90:
			ts.Dir = ts.Dir.Rotate(2)
		case common.ActionRotateLeft45:
			ts.Dir = ts.Dir.Rotate(-1)
		case common.ActionRotateRight45:
			ts.Dir = ts.Dir.Rotate(1)
		}
	}
}

func (g *GameState) handleMines() {
	for _, ts := range g.tanks {
		if !ts.Alive {
			continue
		}
		cell := g.board.Cell(ts.X, ts.Y)
		if cell.Content == Mine {
			ts.Alive = false
			cell.Content = Empty
		}
	}
}

// moveShells advances every shell two half-steps. In each half-step,
// crossing pairs annihilate, walls absorb hits (destroyed at two), tanks on
// the path die, and any cell left with two or more shells clears them all.
// Mines never stop shells.
func (g *GameState) moveShells() {
	g.board.ClearShellMarks()
	removed := make([]bool, len(g.shells))

	for step := 0; step < 2; step++ {
		cur := make([]position, len(g.shells))
		next := make([]position, len(g.shells))
		for i, sh := range g.shells {
			cur[i] = position{sh.X, sh.Y}
			dx, dy := sh.Dir.Delta()
			nx, ny := g.board.Wrap(sh.X+dx, sh.Y+dy)
			next[i] = position{nx, ny}
		}

		// Crossing pairs swap positions mid-flight and destroy each other.
		for i := range g.shells {
			if removed[i] {
				continue
			}
			for j := i + 1; j < len(g.shells); j++ {
				if removed[j] {
					continue
				}
				if next[i] == cur[j] && next[j] == cur[i] {
					removed[i] = true
					removed[j] = true
				}
			}
		}

		for i := range g.shells {
			if removed[i] {
				continue
			}
			g.shells[i].X, g.shells[i].Y = next[i].x, next[i].y
			if g.shellImpact(next[i].x, next[i].y) {
				removed[i] = true
			}
		}

		occupied := make(map[position][]int)
		for i, sh := range g.shells {
			if removed[i] {
				continue
			}
			p := position{sh.X, sh.Y}
			occupied[p] = append(occupied[p], i)
		}
		for _, idxs := range occupied {
			if len(idxs) > 1 {
				for _, i := range idxs {
					removed[i] = true
				}
			}
		}
	}

	kept := make([]Shell, 0, len(g.shells))
	for i, sh := range g.shells {
		if !removed[i] {
			kept = append(kept, sh)
		}
	}
	g.shells = kept
}

// shellImpact resolves a shell arriving at (x,y). Returns true when the
// shell is consumed.
func (g *GameState) shellImpact(x, y int) bool {
	cell := g.board.Cell(x, y)
	switch cell.Content {
	case Wall:
		cell.WallHits++
		if cell.WallHits >= 2 {
			cell.Content = Empty
			cell.WallHits = 0
		}
		return true
	case Tank1, Tank2:
		player := 1
		if cell.Content == Tank2 {
			player = 2
		}
		for _, ts := range g.tanks {
			if ts.Alive && ts.Player == player && ts.X == x && ts.Y == y {
				ts.Alive = false
				break
			}
		}
		cell.Content = Empty
		return true
	}
	return false
}

func (g *GameState) handleShooting(actions []common.ActionRequest, ignored []bool) {
	for k, ts := range g.tanks {
		if !ts.Alive || actions[k] != common.ActionShoot {
			continue
		}
		if ts.ShootCooldown > 0 {
			ignored[k] = true
			continue
		}
		if ts.ShellsLeft == 0 {
			ignored[k] = true
			continue
		}
		ts.ShellsLeft--
		ts.ShootCooldown = shootCooldownTurns
		dx, dy := ts.Dir.Delta()
		sx, sy := g.board.Wrap(ts.X+dx, ts.Y+dy)
		// A wall or tank directly in front absorbs the shell immediately.
		if !g.shellImpact(sx, sy) {
			g.shells = append(g.shells, Shell{X: sx, Y: sy, Dir: ts.Dir})
		}
	}
}

// moveTanks resolves all tank movement for the turn as a pipeline over the
// (oldPos, newPos) arrays: head-on swaps, then movers overrunning
// stationary tanks, then crowded destinations, then the surviving moves.
func (g *GameState) moveTanks(actions []common.ActionRequest, ignored []bool) {
	n := len(g.tanks)
	oldPos := make([]position, n)
	newPos := make([]position, n)

	for k, ts := range g.tanks {
		oldPos[k] = position{ts.X, ts.Y}
		newPos[k] = oldPos[k]
		if !ts.Alive {
			continue
		}
		var dir Direction
		switch actions[k] {
		case common.ActionMoveForward:
			dir = ts.Dir
		case common.ActionMoveBackward:
			dir = ts.Dir.Opposite()
		default:
			continue
		}
		dx, dy := dir.Delta()
		nx, ny := g.board.Wrap(ts.X+dx, ts.Y+dy)
		if g.board.Cell(nx, ny).Content == Wall {
			ignored[k] = true
			continue
		}
		newPos[k] = position{nx, ny}
	}

	kill := func(k int) {
		g.tanks[k].Alive = false
		g.board.SetCell(oldPos[k].x, oldPos[k].y, Empty)
	}

	// Head-on swaps: both movers die.
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if !g.tanks[i].Alive || !g.tanks[j].Alive {
				continue
			}
			if newPos[i] == oldPos[j] && newPos[j] == oldPos[i] && newPos[i] != oldPos[i] {
				kill(i)
				kill(j)
			}
		}
	}

	// A mover stepping onto a stationary tank kills both.
	for k := 0; k < n; k++ {
		if !g.tanks[k].Alive || newPos[k] == oldPos[k] {
			continue
		}
		for j := 0; j < n; j++ {
			if j == k || !g.tanks[j].Alive || newPos[j] != oldPos[j] {
				continue
			}
			if newPos[k] == oldPos[j] {
				kill(k)
				kill(j)
			}
		}
	}

	// Any destination with two or more movers kills them all.
	dest := make(map[position][]int)
	for k := 0; k < n; k++ {
		if !g.tanks[k].Alive || newPos[k] == oldPos[k] {
			continue
		}
		dest[newPos[k]] = append(dest[newPos[k]], k)
	}
	for _, movers := range dest {
		if len(movers) > 1 {
			for _, k := range movers {
				if g.tanks[k].Alive {
					kill(k)
				}
			}
		}
	}

	// Apply the surviving moves, then re-stamp every live tank so the board
	// and the tank vector stay consistent regardless of iteration order.
	for k, ts := range g.tanks {
		if !ts.Alive || newPos[k] == oldPos[k] {
			continue
		}
		nx, ny := newPos[k].x, newPos[k].y
		if idx := g.shellAt(nx, ny); idx >= 0 {
			ts.Alive = false
			g.board.SetCell(oldPos[k].x, oldPos[k].y, Empty)
			g.board.SetCell(nx, ny, Empty)
			g.shells = append(g.shells[:idx], g.shells[idx+1:]...)
			continue
		}
		if g.board.Cell(nx, ny).Content == Mine {
			ts.Alive = false
			g.board.SetCell(oldPos[k].x, oldPos[k].y, Empty)
			g.board.SetCell(nx, ny, Empty)
			continue
		}
		g.board.SetCell(oldPos[k].x, oldPos[k].y, Empty)
		ts.X, ts.Y = nx, ny
	}
	for _, ts := range g.tanks {
		if !ts.Alive {
			continue
		}
		content := Tank1
		if ts.Player == 2 {
			content = Tank2
		}
		g.board.SetCell(ts.X, ts.Y, content)
	}
}

func (g *GameState) shellAt(x, y int) int {
	for i, sh := range g.shells {
		if sh.X == x && sh.Y == y {
			return i
		}
	}
	return -1
}

func (g *GameState) checkEndConditions() {
	a1, a2 := g.AliveCounts()
	switch {
	case a1 == 0 && a2 == 0:
		g.finish(0, common.ReasonAllTanksDead, "Tie, both players have zero tanks")
	case a2 == 0:
		g.finish(1, common.ReasonAllTanksDead,
			fmt.Sprintf("Player 1 won with %d tanks still alive", a1))
	case a1 == 0:
		g.finish(2, common.ReasonAllTanksDead,
			fmt.Sprintf("Player 2 won with %d tanks still alive", a2))
	default:
		total := 0
		for _, ts := range g.tanks {
			if ts.Alive {
				total += ts.ShellsLeft
			}
		}
		if total == 0 {
			g.zeroShellStreak++
		} else {
			g.zeroShellStreak = 0
		}
		if g.zeroShellStreak >= zeroShellTieTurns {
			g.finish(0, common.ReasonZeroShells,
				fmt.Sprintf("Tie, both players have zero shells for %d steps", zeroShellTieTurns))
		} else if g.turn+1 >= g.maxSteps {
			g.finish(0, common.ReasonMaxSteps,
				fmt.Sprintf("Tie, reached max steps = %d, player 1 has %d tanks, player 2 has %d tanks",
					g.maxSteps, a1, a2))
		}
	}
}

func (g *GameState) finish(winner int, reason common.Reason, text string) {
	g.over = true
	g.winner = winner
	g.reason = reason
	g.result = text
}

// transcript renders one comma-separated entry per tank in index order,
// using the raw requests. GetBattleInfo is never marked ignored.
func (g *GameState) transcript(logActions []common.ActionRequest, ignored []bool) string {
	parts := make([]string, 0, len(g.tanks))
	for k, ts := range g.tanks {
		act := logActions[k]
		switch {
		case ts.Alive:
			if ignored[k] && act != common.ActionGetBattleInfo {
				parts = append(parts, act.String()+" (ignored)")
			} else {
				parts = append(parts, act.String())
			}
		case act == common.ActionDoNothing:
			parts = append(parts, "killed")
		default:
			parts = append(parts, act.String()+" (killed)")
		}
	}
	return strings.Join(parts, ", ")
}
