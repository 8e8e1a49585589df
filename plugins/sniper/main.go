// Sniper: an algorithm plugin that holds position, sweeping its turret and
// firing whenever an enemy crosses its line of fire.
//
//	go build -buildmode=plugin -o sniper.so ./plugins/sniper
package main

import (
	"tanksim/common"
	"tanksim/registry"
)

func init() {
	registry.RegisterPlayer(func(playerIndex, rows, cols, maxSteps, numShells int) common.Player {
		return &spotter{index: playerIndex, rows: rows, cols: cols}
	})
	registry.RegisterTankAlgorithm(func(playerIndex, tankIndex int) common.TankAlgorithm {
		dir := 6
		if playerIndex == 2 {
			dir = 2
		}
		return &turret{player: playerIndex, dir: dir}
	})
}

func main() {}

// sighting is the sniper's private battle info: its own grid position and
// the grid positions of the enemy tanks.
type sighting struct {
	rows, cols   int
	selfX, selfY int
	enemies      [][2]int
}

type spotter struct {
	index int
	rows  int
	cols  int
}

func (s *spotter) UpdateTankWithBattleInfo(t common.TankAlgorithm, view common.SatelliteView) {
	enemy := byte(common.CharTank2)
	if s.index == 2 {
		enemy = common.CharTank1
	}
	info := &sighting{rows: s.rows, cols: s.cols}
	for y := 0; y < s.rows; y++ {
		for x := 0; x < s.cols; x++ {
			switch view.ObjectAt(x, y) {
			case common.CharSelf:
				info.selfX, info.selfY = x, y
			case enemy:
				info.enemies = append(info.enemies, [2]int{x, y})
			}
		}
	}
	t.UpdateBattleInfo(info)
}

type turret struct {
	player int
	dir    int
	info   *sighting
	stale  bool
}

var steps = [8][2]int{{0, -1}, {1, -1}, {1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}}

func (t *turret) UpdateBattleInfo(info common.BattleInfo) {
	if s, ok := info.(*sighting); ok {
		t.info = s
		t.stale = false
	}
}

func (t *turret) GetAction() common.ActionRequest {
	if t.info == nil || t.stale {
		return common.ActionGetBattleInfo
	}
	t.stale = true
	if t.aligned() {
		return common.ActionShoot
	}
	t.dir = (t.dir + 1) % 8
	return common.ActionRotateRight45
}

// aligned reports whether any enemy sits on the current firing line.
func (t *turret) aligned() bool {
	dx, dy := steps[t.dir][0], steps[t.dir][1]
	cx, cy := t.info.selfX, t.info.selfY
	for i := 0; i < t.info.rows+t.info.cols; i++ {
		cx = ((cx+dx)%t.info.cols + t.info.cols) % t.info.cols
		cy = ((cy+dy)%t.info.rows + t.info.rows) % t.info.rows
		for _, e := range t.info.enemies {
			if e[0] == cx && e[1] == cy {
				return true
			}
		}
		if cx == t.info.selfX && cy == t.info.selfY {
			break
		}
	}
	return false
}
