// Hunter: an algorithm plugin that periodically requests a battlefield
// snapshot, turns toward the nearest enemy tank and shoots once aligned.
//
//	go build -buildmode=plugin -o hunter.so ./plugins/hunter
package main

import (
	"tanksim/common"
	"tanksim/registry"
)

func init() {
	registry.RegisterPlayer(func(playerIndex, rows, cols, maxSteps, numShells int) common.Player {
		return &player{index: playerIndex, rows: rows, cols: cols, shells: numShells, first: true}
	})
	registry.RegisterTankAlgorithm(func(playerIndex, tankIndex int) common.TankAlgorithm {
		dir := 6 // player 1 starts facing west
		if playerIndex == 2 {
			dir = 2
		}
		return &tank{player: playerIndex, dir: dir}
	})
}

func main() {}

// battleInfo is this plugin's private snapshot format. The referee treats
// it as opaque; only hunter tanks know how to read it.
type battleInfo struct {
	rows, cols   int
	grid         [][]byte
	selfX, selfY int
	shells       int
}

type player struct {
	index  int
	rows   int
	cols   int
	shells int
	first  bool
}

func (p *player) UpdateTankWithBattleInfo(t common.TankAlgorithm, view common.SatelliteView) {
	info := &battleInfo{rows: p.rows, cols: p.cols, grid: make([][]byte, p.rows)}
	for y := 0; y < p.rows; y++ {
		row := make([]byte, p.cols)
		for x := 0; x < p.cols; x++ {
			c := view.ObjectAt(x, y)
			row[x] = c
			if c == common.CharSelf {
				info.selfX, info.selfY = x, y
			}
		}
		info.grid[y] = row
	}
	if p.first {
		info.shells = p.shells
		p.first = false
	}
	t.UpdateBattleInfo(info)
}

type tank struct {
	player    int
	dir       int
	info      *battleInfo
	sinceInfo int
}

var deltas = [8][2]int{{0, -1}, {1, -1}, {1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}}

func (t *tank) UpdateBattleInfo(info common.BattleInfo) {
	if bi, ok := info.(*battleInfo); ok {
		t.info = bi
	}
}

func (t *tank) GetAction() common.ActionRequest {
	if t.info == nil || t.sinceInfo >= 4 {
		t.sinceInfo = 0
		return common.ActionGetBattleInfo
	}
	t.sinceInfo++

	ex, ey, found := t.nearestEnemy()
	if !found {
		return common.ActionDoNothing
	}
	want := t.headingToward(ex, ey)
	if want == t.dir {
		if t.lineOfSight(ex, ey) {
			return common.ActionShoot
		}
		return common.ActionMoveForward
	}

	diff := (want - t.dir + 8) % 8
	switch diff {
	case 1:
		t.dir = (t.dir + 1) % 8
		return common.ActionRotateRight45
	case 2, 3, 4:
		t.dir = (t.dir + 2) % 8
		return common.ActionRotateRight90
	case 7:
		t.dir = (t.dir + 7) % 8
		return common.ActionRotateLeft45
	default:
		t.dir = (t.dir + 6) % 8
		return common.ActionRotateLeft90
	}
}

func (t *tank) nearestEnemy() (x, y int, found bool) {
	enemy := byte(common.CharTank2)
	if t.player == 2 {
		enemy = common.CharTank1
	}
	best := -1
	for yy := 0; yy < t.info.rows; yy++ {
		for xx := 0; xx < t.info.cols; xx++ {
			if t.info.grid[yy][xx] != enemy {
				continue
			}
			d := t.torusDist(xx, yy)
			if best < 0 || d < best {
				best = d
				x, y = xx, yy
				found = true
			}
		}
	}
	return x, y, found
}

// torusDist is the Chebyshev distance on the wrapped grid.
func (t *tank) torusDist(x, y int) int {
	dx := wrapAbs(x-t.info.selfX, t.info.cols)
	dy := wrapAbs(y-t.info.selfY, t.info.rows)
	if dx > dy {
		return dx
	}
	return dy
}

func wrapAbs(d, size int) int {
	d = ((d % size) + size) % size
	if d > size/2 {
		d = size - d
	}
	return d
}

// headingToward picks the 8-way heading whose unit step shrinks the
// wrapped distance on both axes.
func (t *tank) headingToward(x, y int) int {
	sx := wrapSign(x-t.info.selfX, t.info.cols)
	sy := wrapSign(y-t.info.selfY, t.info.rows)
	for d, delta := range deltas {
		if delta[0] == sx && delta[1] == sy {
			return d
		}
	}
	return t.dir
}

func wrapSign(d, size int) int {
	d = ((d % size) + size) % size
	if d == 0 {
		return 0
	}
	if d > size/2 {
		return -1
	}
	return 1
}

// lineOfSight walks the current heading and reports whether the enemy cell
// is reached before a wall.
func (t *tank) lineOfSight(x, y int) bool {
	dx, dy := deltas[t.dir][0], deltas[t.dir][1]
	cx, cy := t.info.selfX, t.info.selfY
	for i := 0; i < t.info.rows+t.info.cols; i++ {
		cx = ((cx+dx)%t.info.cols + t.info.cols) % t.info.cols
		cy = ((cy+dy)%t.info.rows + t.info.rows) % t.info.rows
		if cx == x && cy == y {
			return true
		}
		if t.info.grid[cy][cx] == common.CharWall {
			return false
		}
	}
	return false
}
