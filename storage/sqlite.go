package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS match_snapshot (
	owner    TEXT PRIMARY KEY,
	data     BLOB NOT NULL,
	saved_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS match_result (
	id           TEXT PRIMARY KEY,
	owner        TEXT NOT NULL,
	variant      TEXT NOT NULL,
	players      TEXT NOT NULL,
	winner       TEXT NOT NULL,
	turns        INTEGER NOT NULL,
	final_scores BLOB NOT NULL,
	played_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_match_result_owner ON match_result(owner, played_at DESC);
CREATE TABLE IF NOT EXISTS match_player (
	match_id    TEXT NOT NULL REFERENCES match_result(id) ON DELETE CASCADE,
	player_name TEXT NOT NULL,
	seat        INTEGER NOT NULL,
	is_winner   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_match_player_name ON match_player(player_name);
`

// SQLiteStore persists snapshots and match history in a single SQLite file.
type SQLiteStore struct {
	sqlDB *sql.DB
}

// OpenSQLite opens a SQLite store at the provided path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(sqliteSchema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}
	return &SQLiteStore{sqlDB: sqlDB}, nil
}

// Close closes the underlying SQLite database.
func (s *SQLiteStore) Close() {
	if s == nil || s.sqlDB == nil {
		return
	}
	_ = s.sqlDB.Close()
}

func (s *SQLiteStore) SaveSnapshot(ctx context.Context, owner string, data []byte, savedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(owner) == "" {
		return fmt.Errorf("owner is required")
	}
	_, err := s.sqlDB.ExecContext(ctx, `
		INSERT INTO match_snapshot (owner, data, saved_at) VALUES (?, ?, ?)
		ON CONFLICT(owner) DO UPDATE SET data = excluded.data, saved_at = excluded.saved_at`,
		owner, data, toMillis(savedAt))
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LoadSnapshot(ctx context.Context, owner string, maxAge time.Duration) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	var data []byte
	var savedAt int64
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT data, saved_at FROM match_snapshot WHERE owner = ?`, owner,
	).Scan(&data, &savedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("load snapshot: %w", err)
	}
	if maxAge > 0 && time.Since(fromMillis(savedAt)) > maxAge {
		if err := s.DeleteSnapshot(ctx, owner); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}
	return data, true, nil
}

func (s *SQLiteStore) DeleteSnapshot(ctx context.Context, owner string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM match_snapshot WHERE owner = ?`, owner); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

func (s *SQLiteStore) InsertMatchResult(ctx context.Context, r MatchResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("match id is required")
	}
	players, err := json.Marshal(r.Players)
	if err != nil {
		return fmt.Errorf("encode players: %w", err)
	}
	scores := []byte(r.FinalScores)
	if len(scores) == 0 {
		scores = []byte("null")
	}
	playedAt := r.PlayedAt
	if playedAt.IsZero() {
		playedAt = time.Now()
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO match_result (id, owner, variant, players, winner, turns, final_scores, played_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Owner, r.Variant, string(players), r.Winner, r.Turns, scores, toMillis(playedAt),
	); err != nil {
		return fmt.Errorf("insert match result: %w", err)
	}
	for seat, p := range r.Players {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO match_player (match_id, player_name, seat, is_winner) VALUES (?, ?, ?, ?)`,
			r.ID, p, seat, p == r.Winner,
		); err != nil {
			return fmt.Errorf("insert match player: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit match result: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListHistory(ctx context.Context, owner string, limit int) ([]MatchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit, _ = clampPage(limit, 0)
	rows, err := s.sqlDB.QueryContext(ctx, `
		SELECT id, owner, variant, players, winner, turns, final_scores, played_at
		FROM match_result
		WHERE ? = '' OR owner = ?
		ORDER BY played_at DESC, id ASC
		LIMIT ?`,
		owner, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	out := []MatchResult{}
	for rows.Next() {
		var (
			r        MatchResult
			players  string
			scores   []byte
			playedAt int64
		)
		if err := rows.Scan(&r.ID, &r.Owner, &r.Variant, &players, &r.Winner, &r.Turns, &scores, &playedAt); err != nil {
			return nil, fmt.Errorf("scan match result: %w", err)
		}
		if err := json.Unmarshal([]byte(players), &r.Players); err != nil {
			return nil, fmt.Errorf("decode players: %w", err)
		}
		r.FinalScores = scores
		r.PlayedAt = fromMillis(playedAt)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) ListLeaderboard(ctx context.Context, limit, offset int) ([]LeaderboardEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit, offset = clampPage(limit, offset)
	rows, err := s.sqlDB.QueryContext(ctx, `
		SELECT player_name, SUM(is_winner) AS wins, COUNT(*) AS played
		FROM match_player
		GROUP BY player_name
		ORDER BY wins DESC, played ASC, player_name ASC
		LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list leaderboard: %w", err)
	}
	defer rows.Close()

	out := []LeaderboardEntry{}
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.Player, &e.Wins, &e.Played); err != nil {
			return nil, fmt.Errorf("scan leaderboard: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leaderboard: %w", err)
	}
	return out, nil
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
