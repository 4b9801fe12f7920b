package storage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS match_snapshot (
	owner    TEXT PRIMARY KEY,
	data     JSONB NOT NULL,
	saved_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS match_result (
	id           UUID PRIMARY KEY,
	owner        TEXT NOT NULL,
	variant      TEXT NOT NULL,
	players      TEXT[] NOT NULL,
	winner       TEXT NOT NULL,
	turns        INT NOT NULL,
	final_scores JSONB NOT NULL,
	played_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_match_result_owner ON match_result(owner, played_at DESC);
CREATE INDEX IF NOT EXISTS idx_match_result_played_at ON match_result(played_at DESC);
CREATE TABLE IF NOT EXISTS match_player (
	match_id    UUID NOT NULL REFERENCES match_result(id) ON DELETE CASCADE,
	player_name TEXT NOT NULL,
	seat        SMALLINT NOT NULL,
	is_winner   BOOLEAN NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_match_player_name ON match_player(player_name);
`

// PGStore persists snapshots and match history in Postgres.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore connects to Postgres and ensures the tables exist.
func NewPGStore(ctx context.Context, databaseURL string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, err
	}
	slog.Info("connected to Postgres", "tag", "storage")
	return &PGStore{pool: pool}, nil
}

// Close closes the connection pool.
func (s *PGStore) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

func (s *PGStore) SaveSnapshot(ctx context.Context, owner string, data []byte, savedAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO match_snapshot (owner, data, saved_at) VALUES ($1, $2, $3)
		ON CONFLICT (owner) DO UPDATE SET data = EXCLUDED.data, saved_at = EXCLUDED.saved_at`,
		owner, data, savedAt.UTC())
	return err
}

func (s *PGStore) LoadSnapshot(ctx context.Context, owner string, maxAge time.Duration) ([]byte, bool, error) {
	var data []byte
	var savedAt time.Time
	err := s.pool.QueryRow(ctx, `SELECT data, saved_at FROM match_snapshot WHERE owner = $1`, owner).Scan(&data, &savedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if maxAge > 0 && time.Since(savedAt) > maxAge {
		if err := s.DeleteSnapshot(ctx, owner); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}
	return data, true, nil
}

func (s *PGStore) DeleteSnapshot(ctx context.Context, owner string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM match_snapshot WHERE owner = $1`, owner)
	return err
}

// InsertMatchResult stores a finished match and one match_player row per seat
// in a single transaction.
func (s *PGStore) InsertMatchResult(ctx context.Context, r MatchResult) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	playedAt := r.PlayedAt
	if playedAt.IsZero() {
		playedAt = time.Now()
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO match_result (id, owner, variant, players, winner, turns, final_scores, played_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.ID, r.Owner, r.Variant, r.Players, r.Winner, r.Turns, []byte(r.FinalScores), playedAt.UTC())
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for seat, p := range r.Players {
		batch.Queue(`INSERT INTO match_player (match_id, player_name, seat, is_winner) VALUES ($1, $2, $3, $4)`,
			r.ID, p, seat, p == r.Winner)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PGStore) ListHistory(ctx context.Context, owner string, limit int) ([]MatchResult, error) {
	limit, _ = clampPage(limit, 0)
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, owner, variant, players, winner, turns, final_scores, played_at
		FROM match_result
		WHERE $1 = '' OR owner = $1
		ORDER BY played_at DESC
		LIMIT $2`,
		owner, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []MatchResult{}
	for rows.Next() {
		var r MatchResult
		var scores []byte
		if err := rows.Scan(&r.ID, &r.Owner, &r.Variant, &r.Players, &r.Winner, &r.Turns, &scores, &r.PlayedAt); err != nil {
			return nil, err
		}
		r.FinalScores = scores
		r.PlayedAt = r.PlayedAt.UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListLeaderboard returns players ordered by wins, then by fewest matches played.
func (s *PGStore) ListLeaderboard(ctx context.Context, limit, offset int) ([]LeaderboardEntry, error) {
	limit, offset = clampPage(limit, offset)
	rows, err := s.pool.Query(ctx, `
		SELECT player_name, COUNT(*) FILTER (WHERE is_winner) AS wins, COUNT(*) AS played
		FROM match_player
		GROUP BY player_name
		ORDER BY wins DESC, played ASC, player_name ASC
		LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []LeaderboardEntry{}
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.Player, &e.Wins, &e.Played); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
