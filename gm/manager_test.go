package gm

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"tanksim/common"
)

type testView struct{ rows []string }

func (v testView) ObjectAt(x, y int) byte {
	if y < 0 || y >= len(v.rows) || x < 0 || x >= len(v.rows[y]) {
		return common.CharEmpty
	}
	return v.rows[y][x]
}

type nopPlayer struct{}

func (nopPlayer) UpdateTankWithBattleInfo(t common.TankAlgorithm, v common.SatelliteView) {
	t.UpdateBattleInfo(v)
}

type scriptAlgo struct {
	actions []common.ActionRequest
	pos     int
}

func (s *scriptAlgo) GetAction() common.ActionRequest {
	if s.pos >= len(s.actions) {
		return common.ActionDoNothing
	}
	a := s.actions[s.pos]
	s.pos++
	return a
}

func (s *scriptAlgo) UpdateBattleInfo(common.BattleInfo) {}

func scripted(actions ...common.ActionRequest) common.TankAlgorithmFactory {
	return func(playerIndex, tankIndex int) common.TankAlgorithm {
		return &scriptAlgo{actions: actions}
	}
}

func TestEarlyTerminationMissingSide(t *testing.T) {
	created := false
	factory := func(playerIndex, tankIndex int) common.TankAlgorithm {
		created = true
		return &scriptAlgo{}
	}

	referee := New(false)
	result, err := referee.Run(5, 1, testView{rows: []string{"1 1  "}}, "solo.txt",
		100, 3, nopPlayer{}, "a", nopPlayer{}, "b", factory, factory)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Rounds != 0 {
		t.Errorf("rounds = %d, want 0", result.Rounds)
	}
	if result.Winner != 1 || result.Reason != common.ReasonAllTanksDead {
		t.Errorf("winner=%d reason=%v, want 1/AllTanksDead", result.Winner, result.Reason)
	}
	if result.RemainingTanks != [2]int{2, 0} {
		t.Errorf("remaining = %v", result.RemainingTanks)
	}
	if created {
		t.Error("no controller should be created on early termination")
	}
}

func TestRunFullMatch(t *testing.T) {
	referee := New(false)
	result, err := referee.Run(4, 1, testView{rows: []string{"2  1"}}, "duel.txt",
		100, 3,
		nopPlayer{}, "attacker", nopPlayer{}, "defender",
		scripted(common.ActionShoot), scripted())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Winner != 1 {
		t.Errorf("winner = %d, want 1", result.Winner)
	}
	if result.Rounds != 2 {
		t.Errorf("rounds = %d, want 2", result.Rounds)
	}
	if result.Reason != common.ReasonAllTanksDead {
		t.Errorf("reason = %v", result.Reason)
	}
	if result.RemainingTanks != [2]int{1, 0} {
		t.Errorf("remaining = %v", result.RemainingTanks)
	}
	// The final snapshot owns its grid and must show the survivor only.
	if got := result.FinalState.ObjectAt(3, 0); got != common.CharTank1 {
		t.Errorf("final (3,0) = %q, want 1", got)
	}
	if got := result.FinalState.ObjectAt(0, 0); got != common.CharEmpty {
		t.Errorf("final (0,0) = %q, want empty", got)
	}
}

func TestRunPropagatesControllerPanic(t *testing.T) {
	panicky := func(playerIndex, tankIndex int) common.TankAlgorithm {
		return panicAlgo{}
	}
	referee := New(false)
	_, err := referee.Run(5, 1, testView{rows: []string{"1   2"}}, "boom.txt",
		100, 3, nopPlayer{}, "a", nopPlayer{}, "b", panicky, scripted())
	if err == nil {
		t.Fatal("expected match error from panicking controller")
	}
}

type panicAlgo struct{}

func (panicAlgo) GetAction() common.ActionRequest    { panic("controller bug") }
func (panicAlgo) UpdateBattleInfo(common.BattleInfo) {}

func TestVerboseWritesTranscriptAndReplay(t *testing.T) {
	dir := t.TempDir()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(prev)

	referee := New(true)
	result, err := referee.Run(4, 1, testView{rows: []string{"2  1"}}, "arena.txt",
		100, 3,
		nopPlayer{}, "alpha", nopPlayer{}, "beta",
		scripted(common.ActionShoot), scripted())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	logs, _ := filepath.Glob(filepath.Join(dir, "log_arena_alpha_vs_beta_*.txt"))
	if len(logs) != 1 {
		t.Fatalf("transcript logs found: %d, want 1", len(logs))
	}
	content, err := os.ReadFile(logs[0])
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(content), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("log lines = %d, want 2 turns + result", len(lines))
	}
	if lines[len(lines)-1] != "Player 1 won with 1 tanks still alive" {
		t.Errorf("final log line = %q", lines[len(lines)-1])
	}

	replays, _ := filepath.Glob(filepath.Join(dir, "replay_arena_alpha_vs_beta_*.replay"))
	if len(replays) != 1 {
		t.Fatalf("replay files found: %d, want 1", len(replays))
	}
	data, err := os.ReadFile(replays[0])
	if err != nil {
		t.Fatal(err)
	}
	rep, err := DecodeReplay(data)
	if err != nil {
		t.Fatalf("DecodeReplay: %v", err)
	}
	if rep.Winner != result.Winner || rep.Rounds != result.Rounds {
		t.Errorf("replay outcome %d/%d, want %d/%d", rep.Winner, rep.Rounds, result.Winner, result.Rounds)
	}
	if len(rep.Transcript) != 3 {
		t.Errorf("replay transcript lines = %d, want 3", len(rep.Transcript))
	}
	if len(rep.FinalState) != 1 || len(rep.FinalState[0]) != 4 {
		t.Errorf("replay final state shape = %v", rep.FinalState)
	}
}

func TestReplayRoundTrip(t *testing.T) {
	rep := Replay{
		MapName:    "m.txt",
		Algorithm1: "a",
		Algorithm2: "b",
		Rows:       2,
		Cols:       3,
		Winner:     2,
		Reason:     int(common.ReasonZeroShells),
		Rounds:     40,
		Transcript: []string{"DoNothing, DoNothing"},
		FinalState: []string{"1  ", "  2"},
	}
	data, err := msgpack.Marshal(&rep)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeReplay(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.Winner != rep.Winner || got.Rounds != rep.Rounds || got.FinalState[1] != rep.FinalState[1] {
		t.Errorf("round trip mismatch: %+v", got)
	}
}
