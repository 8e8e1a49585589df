// Package gm is the reference game manager: it builds a board from the map
// view, drives the turn engine to a terminal state, and produces an owning
// GameResult. With verbose on it also writes a per-match transcript log and
// a binary replay file.
package gm

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tanksim/common"
	"tanksim/engine"
)

// Manager runs one match at a time. A fresh Manager is created per match by
// the scheduler through the registered factory.
type Manager struct {
	verbose bool
}

// New builds a referee. It satisfies common.GameManagerFactory.
func New(verbose bool) common.GameManager {
	return &Manager{verbose: verbose}
}

// Run plays a full match and returns its result. Panics escaping plugin
// code surface as an error terminating only this match.
func (m *Manager) Run(cols, rows int, mapView common.SatelliteView, mapName string,
	maxSteps, numShells int,
	p1 common.Player, name1 string, p2 common.Player, name2 string,
	factory1, factory2 common.TankAlgorithmFactory) (common.GameResult, error) {

	board := engine.NewBoard(rows, cols)
	board.LoadFromView(mapView)

	var logFile *os.File
	var transcript []string
	if m.verbose {
		f, err := os.Create(logFilename(mapName, name1, name2))
		if err == nil {
			logFile = f
			defer logFile.Close()
		}
	}
	record := func(line string) {
		transcript = append(transcript, line)
		if logFile != nil {
			fmt.Fprintln(logFile, line)
		}
	}

	// A board missing either side ends before any controller is consulted.
	if p1Count, p2Count := countTanks(board); p1Count == 0 || p2Count == 0 {
		result := synthesizeResult(board, p1Count, p2Count)
		record(resultLine(p1Count, p2Count))
		m.writeReplay(mapName, name1, name2, rows, cols, transcript, result)
		return result, nil
	}

	state, err := engine.NewGameState(board, maxSteps, numShells, p1, p2, factory1, factory2)
	if err != nil {
		return common.GameResult{}, err
	}

	for !state.IsOver() {
		line, err := state.AdvanceOneTurn()
		if err != nil {
			return common.GameResult{}, err
		}
		record(line)
	}
	record(state.ResultText())

	result := finalize(state)
	m.writeReplay(mapName, name1, name2, rows, cols, transcript, result)
	return result, nil
}

// finalize recounts tanks from the final board — the source of truth — and
// derives winner and reason.
func finalize(state *engine.GameState) common.GameResult {
	p1, p2 := countTanks(state.Board())
	result := common.GameResult{
		Rounds:         state.TurnCount(),
		RemainingTanks: [2]int{p1, p2},
		FinalState:     state.BoardSnapshot(),
	}
	switch {
	case p1 == 0 || p2 == 0:
		result.Reason = common.ReasonAllTanksDead
		if p1 > 0 {
			result.Winner = 1
		} else if p2 > 0 {
			result.Winner = 2
		}
	default:
		result.Winner = 0
		result.Reason = state.Reason()
	}
	return result
}

func synthesizeResult(board *engine.Board, p1, p2 int) common.GameResult {
	result := common.GameResult{
		Reason:         common.ReasonAllTanksDead,
		RemainingTanks: [2]int{p1, p2},
		FinalState:     engine.NewSnapshot(board),
	}
	if p1 > 0 {
		result.Winner = 1
	} else if p2 > 0 {
		result.Winner = 2
	}
	return result
}

func resultLine(p1, p2 int) string {
	switch {
	case p1 == 0 && p2 == 0:
		return "Tie, both players have zero tanks"
	case p1 == 0:
		return fmt.Sprintf("Player 2 won with %d tanks still alive", p2)
	default:
		return fmt.Sprintf("Player 1 won with %d tanks still alive", p1)
	}
}

func countTanks(board *engine.Board) (p1, p2 int) {
	for y := 0; y < board.Rows(); y++ {
		for x := 0; x < board.Cols(); x++ {
			switch board.Cell(x, y).Content {
			case engine.Tank1:
				p1++
			case engine.Tank2:
				p2++
			}
		}
	}
	return p1, p2
}

func logFilename(mapName, name1, name2 string) string {
	stamp := time.Now().Format("20060102_150405")
	return fmt.Sprintf("log_%s_%s_vs_%s_%s.txt",
		baseName(mapName), baseName(name1), baseName(name2), stamp)
}

func baseName(path string) string {
	name := filepath.Base(path)
	if dot := strings.LastIndexByte(name, '.'); dot > 0 {
		name = name[:dot]
	}
	return name
}
