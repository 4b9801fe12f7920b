package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// MatchResult is one finished match, as stored for the history API.
type MatchResult struct {
	ID          string          `json:"id"`
	Owner       string          `json:"owner"`
	Variant     string          `json:"variant"`
	Players     []string        `json:"players"`
	Winner      string          `json:"winner"`
	Turns       int             `json:"turns"`
	FinalScores json.RawMessage `json:"final_scores"`
	PlayedAt    time.Time       `json:"played_at"`
}

// LeaderboardEntry is a player's record across all stored matches.
type LeaderboardEntry struct {
	Player string `json:"player"`
	Wins   int    `json:"wins"`
	Played int    `json:"played"`
}

// MatchStore abstracts persistence for match snapshots and finished-match history.
// Implementations can be swapped for testing (fakes) or different backends.
type MatchStore interface {
	// Snapshots: at most one per owner.
	SaveSnapshot(ctx context.Context, owner string, data []byte, savedAt time.Time) error
	// LoadSnapshot returns the owner's snapshot if one was saved within maxAge.
	// A stale snapshot is deleted and reported as absent. maxAge <= 0 disables expiry.
	LoadSnapshot(ctx context.Context, owner string, maxAge time.Duration) ([]byte, bool, error)
	DeleteSnapshot(ctx context.Context, owner string) error

	// History
	InsertMatchResult(ctx context.Context, r MatchResult) error
	// ListHistory returns finished matches newest first; an empty owner lists everyone's.
	ListHistory(ctx context.Context, owner string, limit int) ([]MatchResult, error)
	ListLeaderboard(ctx context.Context, limit, offset int) ([]LeaderboardEntry, error)

	// Lifecycle
	Close()
}

// Ensure both backends implement MatchStore at compile time.
var (
	_ MatchStore = (*PGStore)(nil)
	_ MatchStore = (*SQLiteStore)(nil)
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// Open picks a backend from databaseURL: postgres:// or postgresql:// for
// Postgres, sqlite://path or file:path for SQLite. An empty URL returns
// (nil, nil) and no persistence occurs.
func Open(ctx context.Context, databaseURL string) (MatchStore, error) {
	switch {
	case databaseURL == "":
		return nil, nil
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		s, err := NewPGStore(ctx, databaseURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return openSQLite(strings.TrimPrefix(databaseURL, "sqlite://"))
	case strings.HasPrefix(databaseURL, "file:"):
		return openSQLite(strings.TrimPrefix(databaseURL, "file:"))
	default:
		return nil, fmt.Errorf("unsupported database url scheme: %q", databaseURL)
	}
}

func openSQLite(path string) (MatchStore, error) {
	s, err := OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	return s, nil
}
