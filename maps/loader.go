// Package maps parses battle map files: a free-form name line, four
// Key=Value headers in any order, then the grid rows.
package maps

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"tanksim/common"
)

// LoadError is a typed map-loading failure. Maps that fail to load are
// recorded and skipped, never silently defaulted.
type LoadError struct {
	Path   string
	Reason string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("map %s: %s", e.Path, e.Reason)
}

// Data is a parsed map: its parameters plus a read-only grid view.
type Data struct {
	Name      string
	Rows      int
	Cols      int
	MaxSteps  int
	NumShells int
	View      common.SatelliteView
}

var headerKeys = []string{"Rows", "Cols", "MaxSteps", "NumShells"}

// Load parses the map file at path.
func Load(path string) (*Data, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Reason: fmt.Sprintf("cannot open: %v", err)}
	}
	defer f.Close()

	headers := make(map[string]int)
	var name string
	var nameSet bool
	var grid []string
	headersSeen := false

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if key, value, ok := parseHeader(line); ok {
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, &LoadError{Path: path, Reason: fmt.Sprintf("invalid %s value %q", key, value)}
			}
			headers[key] = n
			headersSeen = true
			continue
		}
		if !headersSeen && !nameSet {
			if strings.TrimSpace(line) == "" {
				continue
			}
			name = line
			nameSet = true
			continue
		}
		if headersSeen {
			grid = append(grid, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &LoadError{Path: path, Reason: fmt.Sprintf("read failed: %v", err)}
	}

	var missing []string
	for _, key := range headerKeys {
		if _, ok := headers[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, &LoadError{Path: path, Reason: "missing headers: " + strings.Join(missing, ", ")}
	}

	rows, cols := headers["Rows"], headers["Cols"]
	if rows <= 0 || cols <= 0 {
		return nil, &LoadError{Path: path, Reason: fmt.Sprintf("invalid dimensions %dx%d", rows, cols)}
	}

	return &Data{
		Name:      name,
		Rows:      rows,
		Cols:      cols,
		MaxSteps:  headers["MaxSteps"],
		NumShells: headers["NumShells"],
		View:      newGridView(normalizeGrid(grid, rows, cols)),
	}, nil
}

// parseHeader recognizes "Key = Value" lines with arbitrary whitespace
// around the '='.
func parseHeader(line string) (key, value string, ok bool) {
	eq := strings.IndexByte(line, '=')
	if eq < 0 {
		return "", "", false
	}
	key = strings.TrimSpace(line[:eq])
	for _, known := range headerKeys {
		if key == known {
			return key, strings.TrimSpace(line[eq+1:]), true
		}
	}
	return "", "", false
}

// normalizeGrid trims or pads the raw rows to exactly rows x cols,
// converting unknown characters to spaces.
func normalizeGrid(raw []string, rows, cols int) []string {
	out := make([]string, rows)
	for r := 0; r < rows; r++ {
		var b strings.Builder
		b.Grow(cols)
		for c := 0; c < cols; c++ {
			ch := byte(common.CharEmpty)
			if r < len(raw) && c < len(raw[r]) {
				ch = normalizeCell(raw[r][c])
			}
			b.WriteByte(ch)
		}
		out[r] = b.String()
	}
	return out
}

func normalizeCell(c byte) byte {
	switch c {
	case common.CharWall, common.CharMine, common.CharTank1, common.CharTank2:
		return c
	default:
		return common.CharEmpty
	}
}

// gridView is the loader's satellite view over the normalized rows.
// Out-of-range queries return a space.
type gridView struct {
	rows []string
}

func newGridView(rows []string) *gridView { return &gridView{rows: rows} }

func (v *gridView) ObjectAt(x, y int) byte {
	if y < 0 || y >= len(v.rows) || x < 0 || x >= len(v.rows[y]) {
		return common.CharEmpty
	}
	return v.rows[y][x]
}
