package engine

import "tanksim/common"

// CellContent is what permanently occupies a board cell.
type CellContent uint8

const (
	Empty CellContent = iota
	Wall
	Mine
	Tank1
	Tank2
)

// Cell tracks its content, how many shell hits a wall has absorbed, and a
// render-only shell overlay rebuilt each turn.
type Cell struct {
	Content      CellContent
	WallHits     int
	ShellOverlay bool
}

// Board is a toroidal grid of cells. Coordinates handed to Cell/SetCell must
// already be in range; Wrap folds arbitrary coordinates back onto the grid.
type Board struct {
	rows, cols int
	cells      []Cell
}

func NewBoard(rows, cols int) *Board {
	return &Board{rows: rows, cols: cols, cells: make([]Cell, rows*cols)}
}

func (b *Board) Rows() int { return b.rows }
func (b *Board) Cols() int { return b.cols }

// Cell returns a pointer into the grid so callers can mutate in place.
func (b *Board) Cell(x, y int) *Cell {
	return &b.cells[y*b.cols+x]
}

// SetCell replaces the content at (x,y), resetting wall hits and overlay.
func (b *Board) SetCell(x, y int, c CellContent) {
	cell := b.Cell(x, y)
	cell.Content = c
	cell.WallHits = 0
	cell.ShellOverlay = false
}

// Wrap folds (x,y) onto the torus using true modulo, so negative
// coordinates wrap forward.
func (b *Board) Wrap(x, y int) (int, int) {
	x = ((x % b.cols) + b.cols) % b.cols
	y = ((y % b.rows) + b.rows) % b.rows
	return x, y
}

// ClearShellMarks drops every shell overlay.
func (b *Board) ClearShellMarks() {
	for i := range b.cells {
		b.cells[i].ShellOverlay = false
	}
}

// LoadFromView fills the board from a map snapshot. Unknown characters
// load as empty cells.
func (b *Board) LoadFromView(view common.SatelliteView) {
	for y := 0; y < b.rows; y++ {
		for x := 0; x < b.cols; x++ {
			b.SetCell(x, y, contentForChar(view.ObjectAt(x, y)))
		}
	}
}

func contentForChar(c byte) CellContent {
	switch c {
	case common.CharWall:
		return Wall
	case common.CharMine:
		return Mine
	case common.CharTank1:
		return Tank1
	case common.CharTank2:
		return Tank2
	default:
		return Empty
	}
}

// charForCell renders one cell; a shell overlay supersedes everything.
func charForCell(c *Cell) byte {
	if c.ShellOverlay {
		return common.CharShell
	}
	switch c.Content {
	case Wall:
		return common.CharWall
	case Mine:
		return common.CharMine
	case Tank1:
		return common.CharTank1
	case Tank2:
		return common.CharTank2
	default:
		return common.CharEmpty
	}
}
