package gm

import (
	"fmt"
	"os"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"tanksim/common"
)

// Replay is the binary record of one match: enough to re-render it without
// re-running the engine.
type Replay struct {
	MapName    string   `msgpack:"map"`
	Algorithm1 string   `msgpack:"a1"`
	Algorithm2 string   `msgpack:"a2"`
	Rows       int      `msgpack:"rows"`
	Cols       int      `msgpack:"cols"`
	Winner     int      `msgpack:"winner"`
	Reason     int      `msgpack:"reason"`
	Rounds     int      `msgpack:"rounds"`
	Transcript []string `msgpack:"turns"`
	FinalState []string `msgpack:"final"`
}

// writeReplay emits the msgpack replay file next to the transcript log.
// Only active in verbose mode; failures are silently ignored, the replay is
// a convenience artifact.
func (m *Manager) writeReplay(mapName, name1, name2 string, rows, cols int,
	transcript []string, result common.GameResult) {
	if !m.verbose {
		return
	}
	rep := Replay{
		MapName:    mapName,
		Algorithm1: name1,
		Algorithm2: name2,
		Rows:       rows,
		Cols:       cols,
		Winner:     result.Winner,
		Reason:     int(result.Reason),
		Rounds:     result.Rounds,
		Transcript: transcript,
		FinalState: renderRows(result.FinalState, rows, cols),
	}
	data, err := msgpack.Marshal(&rep)
	if err != nil {
		return
	}
	stamp := time.Now().Format("20060102_150405")
	name := fmt.Sprintf("replay_%s_%s_vs_%s_%s.replay",
		baseName(mapName), baseName(name1), baseName(name2), stamp)
	os.WriteFile(name, data, 0o644)
}

// DecodeReplay parses a replay file payload.
func DecodeReplay(data []byte) (*Replay, error) {
	var rep Replay
	if err := msgpack.Unmarshal(data, &rep); err != nil {
		return nil, err
	}
	return &rep, nil
}

func renderRows(view common.SatelliteView, rows, cols int) []string {
	out := make([]string, rows)
	buf := make([]byte, cols)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			buf[x] = view.ObjectAt(x, y)
		}
		out[y] = string(buf)
	}
	return out
}
