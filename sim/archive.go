package sim

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

// Archive wraps the SQLite results database. Every completed match is
// recorded along with running per-algorithm scores, so tournament history
// survives across runs.
type Archive struct {
	conn *sql.DB
}

// MatchRow is one completed match in the archive.
type MatchRow struct {
	ID          int64
	Mode        string
	MapFile     string
	GameManager string
	Algorithm1  string
	Algorithm2  string
	Winner      int
	Reason      string
	Rounds      int
	Player1Left int
	Player2Left int
	CreatedAt   time.Time
}

// ScoreRow is one algorithm's aggregate standing.
type ScoreRow struct {
	Algorithm string
	Points    int
	Wins      int
	Ties      int
	Losses    int
}

// OpenArchive opens (or creates) the archive database.
func OpenArchive(path string) (*Archive, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}
	a := &Archive{conn: conn}
	if err := a.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return a, nil
}

// Close closes the database connection.
func (a *Archive) Close() error {
	return a.conn.Close()
}

func (a *Archive) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS matches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		mode TEXT NOT NULL,
		map_file TEXT NOT NULL,
		game_manager TEXT NOT NULL,
		algorithm1 TEXT NOT NULL,
		algorithm2 TEXT NOT NULL,
		winner INTEGER NOT NULL,
		reason TEXT NOT NULL,
		rounds INTEGER NOT NULL,
		p1_tanks INTEGER NOT NULL DEFAULT 0,
		p2_tanks INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS scores (
		algorithm TEXT PRIMARY KEY,
		points INTEGER NOT NULL DEFAULT 0,
		wins INTEGER NOT NULL DEFAULT 0,
		ties INTEGER NOT NULL DEFAULT 0,
		losses INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_matches_algos ON matches(algorithm1, algorithm2);
	`
	_, err := a.conn.Exec(schema)
	return err
}

// RecordMatch stores one completed match and updates both algorithms'
// standings. Win = 3 points, tie = 1 point each, loss = 0.
func (a *Archive) RecordMatch(m MatchRow) error {
	tx, err := a.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO matches (mode, map_file, game_manager, algorithm1, algorithm2, winner, reason, rounds, p1_tanks, p2_tanks)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Mode, m.MapFile, m.GameManager, m.Algorithm1, m.Algorithm2,
		m.Winner, m.Reason, m.Rounds, m.Player1Left, m.Player2Left,
	)
	if err != nil {
		return err
	}

	p1Points, p2Points := 0, 0
	p1Win, p1Tie, p1Loss := 0, 0, 0
	p2Win, p2Tie, p2Loss := 0, 0, 0
	switch m.Winner {
	case 1:
		p1Points, p1Win, p2Loss = 3, 1, 1
	case 2:
		p2Points, p2Win, p1Loss = 3, 1, 1
	default:
		p1Points, p2Points, p1Tie, p2Tie = 1, 1, 1, 1
	}
	if err := applyScore(tx, m.Algorithm1, p1Points, p1Win, p1Tie, p1Loss); err != nil {
		return err
	}
	if err := applyScore(tx, m.Algorithm2, p2Points, p2Win, p2Tie, p2Loss); err != nil {
		return err
	}
	return tx.Commit()
}

func applyScore(tx *sql.Tx, algorithm string, points, wins, ties, losses int) error {
	_, err := tx.Exec(`
		INSERT INTO scores (algorithm, points, wins, ties, losses)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(algorithm) DO UPDATE SET
			points = points + excluded.points,
			wins = wins + excluded.wins,
			ties = ties + excluded.ties,
			losses = losses + excluded.losses`,
		algorithm, points, wins, ties, losses,
	)
	return err
}

// Leaderboard returns the top algorithms by accumulated points.
func (a *Archive) Leaderboard(limit int) ([]ScoreRow, error) {
	rows, err := a.conn.Query(`
		SELECT algorithm, points, wins, ties, losses FROM scores
		ORDER BY points DESC, algorithm ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ScoreRow
	for rows.Next() {
		var s ScoreRow
		if err := rows.Scan(&s.Algorithm, &s.Points, &s.Wins, &s.Ties, &s.Losses); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// MatchHistory returns the most recent matches involving an algorithm.
func (a *Archive) MatchHistory(algorithm string, limit int) ([]MatchRow, error) {
	rows, err := a.conn.Query(`
		SELECT id, mode, map_file, game_manager, algorithm1, algorithm2, winner, reason, rounds, p1_tanks, p2_tanks, created_at
		FROM matches
		WHERE algorithm1 = ? OR algorithm2 = ?
		ORDER BY id DESC LIMIT ?`, algorithm, algorithm, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []MatchRow
	for rows.Next() {
		var m MatchRow
		if err := rows.Scan(&m.ID, &m.Mode, &m.MapFile, &m.GameManager,
			&m.Algorithm1, &m.Algorithm2, &m.Winner, &m.Reason, &m.Rounds,
			&m.Player1Left, &m.Player2Left, &m.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}
