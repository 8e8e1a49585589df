package engine

import "tanksim/common"

// Snapshot is an immutable satellite view holding its own flat copy of the
// grid. Nothing in it references the live board, so it can outlive the
// engine and cross goroutine boundaries.
type Snapshot struct {
	rows, cols int
	grid       []byte
}

// NewSnapshot renders the board into an owning snapshot. Rendering priority
// is shell > tank > wall > mine > empty.
func NewSnapshot(b *Board) *Snapshot {
	s := &Snapshot{rows: b.Rows(), cols: b.Cols(), grid: make([]byte, b.Rows()*b.Cols())}
	for y := 0; y < s.rows; y++ {
		for x := 0; x < s.cols; x++ {
			s.grid[y*s.cols+x] = charForCell(b.Cell(x, y))
		}
	}
	return s
}

// NewSnapshotMarking renders the board with the querying tank's cell
// overwritten by '%'.
func NewSnapshotMarking(b *Board, tankX, tankY int) *Snapshot {
	s := NewSnapshot(b)
	if tankX >= 0 && tankX < s.cols && tankY >= 0 && tankY < s.rows {
		s.grid[tankY*s.cols+tankX] = common.CharSelf
	}
	return s
}

// ObjectAt returns the rendered character, or '&' outside the grid.
func (s *Snapshot) ObjectAt(x, y int) byte {
	if x < 0 || x >= s.cols || y < 0 || y >= s.rows {
		return common.CharOutOfRange
	}
	return s.grid[y*s.cols+x]
}

func (s *Snapshot) Rows() int { return s.rows }
func (s *Snapshot) Cols() int { return s.cols }
