package sim

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"tanksim/common"
)

// ComparativeEntry is one referee's verdict on the shared match.
type ComparativeEntry struct {
	GMName     string
	Result     common.GameResult
	FinalState string
}

// CompetitionEntry is one pairing's result on one map.
type CompetitionEntry struct {
	MapFile    string
	Algorithm1 string
	Algorithm2 string
	Result     common.GameResult
}

// RenderView flattens a satellite view into newline-joined rows.
func RenderView(view common.SatelliteView, rows, cols int) string {
	buf := make([]byte, 0, rows*(cols+1))
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			buf = append(buf, view.ObjectAt(x, y))
		}
		if y+1 < rows {
			buf = append(buf, '\n')
		}
	}
	return string(buf)
}

func outcomeMessage(winner int, reason common.Reason) string {
	var msg string
	switch winner {
	case 1:
		msg = "Player 1 won: "
	case 2:
		msg = "Player 2 won: "
	default:
		msg = "Tie: "
	}
	return msg + reason.String()
}

type outcomeKey struct {
	winner     int
	reason     common.Reason
	rounds     int
	finalState string
}

func (k outcomeKey) less(o outcomeKey) bool {
	if k.winner != o.winner {
		return k.winner < o.winner
	}
	if k.reason != o.reason {
		return k.reason < o.reason
	}
	if k.rounds != o.rounds {
		return k.rounds < o.rounds
	}
	return k.finalState < o.finalState
}

// WriteComparativeFile writes comparative_results_<ts>.txt into the game
// managers folder, grouping referees that produced identical outcomes.
// Falls back to stdout with the identical layout when the file cannot be
// created.
func WriteComparativeFile(cfg Config, entries []ComparativeEntry) {
	path := filepath.Join(cfg.GameManagersFolder, fmt.Sprintf("comparative_results_%s.txt", timestamp()))
	f, err := os.Create(path)
	var w io.Writer
	if err != nil {
		w = os.Stdout
	} else {
		w = f
		defer f.Close()
	}
	writeComparative(w, cfg, entries)
}

func writeComparative(w io.Writer, cfg Config, entries []ComparativeEntry) {
	fmt.Fprintf(w, "game_map=%s\n", cfg.GameMap)
	fmt.Fprintf(w, "algorithm1=%s\n", pluginBase(cfg.Algorithm1))
	fmt.Fprintf(w, "algorithm2=%s\n\n", pluginBase(cfg.Algorithm2))

	groups := make(map[outcomeKey][]string)
	for _, e := range entries {
		key := outcomeKey{e.Result.Winner, e.Result.Reason, e.Result.Rounds, e.FinalState}
		groups[key] = append(groups[key], e.GMName)
	}

	keys := make([]outcomeKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	// Largest group first; ties broken by ascending outcome key.
	sort.Slice(keys, func(i, j int) bool {
		if len(groups[keys[i]]) != len(groups[keys[j]]) {
			return len(groups[keys[i]]) > len(groups[keys[j]])
		}
		return keys[i].less(keys[j])
	})

	for _, key := range keys {
		names := groups[key]
		sort.Strings(names)
		for i, name := range names {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprint(w, name)
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, outcomeMessage(key.winner, key.reason))
		fmt.Fprintln(w, key.rounds)
		fmt.Fprintf(w, "%s\n\n", key.finalState)
	}
}

// TallyScores computes competition standings: win = 3, tie = 1 each.
func TallyScores(entries []CompetitionEntry) map[string]int {
	scores := make(map[string]int)
	for _, e := range entries {
		if _, ok := scores[e.Algorithm1]; !ok {
			scores[e.Algorithm1] = 0
		}
		if _, ok := scores[e.Algorithm2]; !ok {
			scores[e.Algorithm2] = 0
		}
		switch e.Result.Winner {
		case 1:
			scores[e.Algorithm1] += 3
		case 2:
			scores[e.Algorithm2] += 3
		default:
			scores[e.Algorithm1]++
			scores[e.Algorithm2]++
		}
	}
	return scores
}

// WriteCompetitionFile writes competition_<ts>.txt into the algorithms
// folder, one "<name> <score>" line per algorithm sorted by descending
// score (names ascending on equal scores). Falls back to stdout.
func WriteCompetitionFile(cfg Config, entries []CompetitionEntry) {
	path := filepath.Join(cfg.AlgorithmsFolder, fmt.Sprintf("competition_%s.txt", timestamp()))
	f, err := os.Create(path)
	var w io.Writer
	if err != nil {
		w = os.Stdout
	} else {
		w = f
		defer f.Close()
	}
	writeCompetition(w, cfg, entries)
}

func writeCompetition(w io.Writer, cfg Config, entries []CompetitionEntry) {
	fmt.Fprintf(w, "game_maps_folder=%s\n", cfg.GameMapsFolder)
	fmt.Fprintf(w, "game_manager=%s\n\n", pluginBase(cfg.GameManagerPath))

	scores := TallyScores(entries)
	names := make([]string, 0, len(scores))
	for name := range scores {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if scores[names[i]] != scores[names[j]] {
			return scores[names[i]] > scores[names[j]]
		}
		return names[i] < names[j]
	})
	for _, name := range names {
		fmt.Fprintf(w, "%s %d\n", name, scores[name])
	}
}
