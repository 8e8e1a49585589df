package sim

import (
	"path/filepath"
	"testing"
)

func openTestArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := OpenArchive(filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("OpenArchive: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestArchiveRecordAndLeaderboard(t *testing.T) {
	a := openTestArchive(t)

	matches := []MatchRow{
		{Mode: "competition", MapFile: "m1", GameManager: "ref", Algorithm1: "alpha", Algorithm2: "beta", Winner: 1, Reason: "all opponent tanks dead", Rounds: 12, Player1Left: 1},
		{Mode: "competition", MapFile: "m2", GameManager: "ref", Algorithm1: "alpha", Algorithm2: "gamma", Winner: 0, Reason: "max steps reached", Rounds: 50, Player1Left: 1, Player2Left: 1},
		{Mode: "competition", MapFile: "m1", GameManager: "ref", Algorithm1: "beta", Algorithm2: "gamma", Winner: 2, Reason: "all opponent tanks dead", Rounds: 9, Player2Left: 2},
	}
	for _, m := range matches {
		if err := a.RecordMatch(m); err != nil {
			t.Fatalf("RecordMatch: %v", err)
		}
	}

	board, err := a.Leaderboard(10)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if len(board) != 3 {
		t.Fatalf("leaderboard rows = %d, want 3", len(board))
	}
	// alpha: 3+1=4, gamma: 1+3=4, beta: 0. Names break the tie.
	if board[0].Algorithm != "alpha" || board[0].Points != 4 {
		t.Errorf("row 0 = %+v", board[0])
	}
	if board[1].Algorithm != "gamma" || board[1].Points != 4 {
		t.Errorf("row 1 = %+v", board[1])
	}
	if board[2].Algorithm != "beta" || board[2].Points != 0 {
		t.Errorf("row 2 = %+v", board[2])
	}
	if board[0].Wins != 1 || board[0].Ties != 1 || board[0].Losses != 0 {
		t.Errorf("alpha w/t/l = %d/%d/%d", board[0].Wins, board[0].Ties, board[0].Losses)
	}
}

func TestArchiveMatchHistory(t *testing.T) {
	a := openTestArchive(t)

	for i := 0; i < 3; i++ {
		m := MatchRow{Mode: "comparative", MapFile: "m", GameManager: "ref", Algorithm1: "alpha", Algorithm2: "beta", Winner: 1, Reason: "all opponent tanks dead", Rounds: i}
		if err := a.RecordMatch(m); err != nil {
			t.Fatal(err)
		}
	}

	history, err := a.MatchHistory("alpha", 2)
	if err != nil {
		t.Fatalf("MatchHistory: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history rows = %d, want 2", len(history))
	}
	// Most recent first.
	if history[0].Rounds != 2 || history[1].Rounds != 1 {
		t.Errorf("history order: %d, %d", history[0].Rounds, history[1].Rounds)
	}

	none, err := a.MatchHistory("nobody", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Errorf("unexpected history for unknown algorithm: %+v", none)
	}
}
