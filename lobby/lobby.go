// Package lobby tracks the live scoring session of every owner (a device key
// or an authenticated user) and connects sessions to storage.
package lobby

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"dart-scoring-server/config"
	"dart-scoring-server/game"
	"dart-scoring-server/storage"
	"dart-scoring-server/variant"
)

const (
	storeTimeout = 5 * time.Second
	// attachAttempts bounds the retries when a session is evicted while a
	// client is attaching to it.
	attachAttempts = 3
)

// pendingSnapshots is implemented by sinks that hold snapshots the store has
// not seen yet.
type pendingSnapshots interface {
	PendingSnapshot(owner string) (data []byte, deleted, ok bool)
}

// StartRequest describes a new match. OptionID selects a catalog entry;
// otherwise Variant and Settings are used, with zero settings filled from
// the configured defaults.
type StartRequest struct {
	Players  []string
	OptionID string
	Variant  variant.ID
	Settings variant.Settings
}

// Lobby owns the session registry. It is safe for concurrent use.
type Lobby struct {
	cfg     *config.Config
	catalog *variant.Catalog
	store   storage.MatchStore // nil when persistence is disabled
	sink    game.SnapshotSink  // nil when persistence is disabled

	mu       sync.Mutex
	sessions map[string]*game.Session

	persisting sync.WaitGroup
}

// New creates a lobby. store and sink may be nil.
func New(cfg *config.Config, catalog *variant.Catalog, store storage.MatchStore, sink game.SnapshotSink) *Lobby {
	return &Lobby{
		cfg:      cfg,
		catalog:  catalog,
		store:    store,
		sink:     sink,
		sessions: make(map[string]*game.Session),
	}
}

// Session returns the live session for owner, starting one if needed. A new
// session resumes the owner's snapshot when one is fresh enough.
func (l *Lobby) Session(ctx context.Context, owner string) *game.Session {
	l.mu.Lock()
	if s, ok := l.sessions[owner]; ok {
		l.mu.Unlock()
		return s
	}
	l.mu.Unlock()

	restored := l.restore(ctx, owner)

	l.mu.Lock()
	defer l.mu.Unlock()
	// Another connection for the same owner may have won the race.
	if s, ok := l.sessions[owner]; ok {
		return s
	}
	s := game.NewSession(owner, restored, game.SessionConfig{
		BustNotice: l.cfg.BustNotice(),
		Debounce:   l.cfg.SnapshotDebounce(),
		Idle:       l.cfg.SessionIdle(),
	}, l.sink)
	s.OnMatchEnd = l.matchEnded
	s.OnIdle = l.evict
	l.sessions[owner] = s
	go s.Run()
	slog.Info("session opened", "tag", "lobby", "owner", owner, "resumed", restored != nil)
	return s
}

// Attach registers send with the owner's session and returns it. A session
// that is evicted while the client attaches is replaced by a fresh one. It
// returns nil if no session would take the client.
func (l *Lobby) Attach(ctx context.Context, owner string, send chan []byte) *game.Session {
	for attempt := 0; attempt < attachAttempts; attempt++ {
		s := l.Session(ctx, owner)
		if s.Attach(send) {
			return s
		}
		l.forget(s)
	}
	slog.Warn("attach failed", "tag", "lobby", "owner", owner)
	return nil
}

// evict runs on the session goroutine of an idle session.
func (l *Lobby) evict(s *game.Session) {
	if l.forget(s) {
		slog.Info("session evicted", "tag", "lobby", "owner", s.Owner)
	}
}

// forget drops s from the registry unless it was already replaced.
func (l *Lobby) forget(s *game.Session) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sessions[s.Owner] != s {
		return false
	}
	delete(l.sessions, s.Owner)
	return true
}

func (l *Lobby) restore(ctx context.Context, owner string) *game.Match {
	if l.store == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	var (
		data []byte
		ok   bool
		err  error
	)
	if p, isPending := l.sink.(pendingSnapshots); isPending {
		var deleted bool
		data, deleted, ok = p.PendingSnapshot(owner)
		if deleted {
			return nil
		}
	}
	if !ok {
		data, ok, err = l.store.LoadSnapshot(ctx, owner, l.cfg.SnapshotTTL())
		if err != nil {
			slog.Warn("snapshot load failed", "tag", "lobby", "owner", owner, "error", err)
			return nil
		}
	}
	if !ok {
		return nil
	}
	m, err := game.DecodeMatch(data)
	if err != nil {
		slog.Warn("discarding unreadable snapshot", "tag", "lobby", "owner", owner, "error", err)
		if err := l.store.DeleteSnapshot(ctx, owner); err != nil {
			slog.Warn("snapshot delete failed", "tag", "lobby", "owner", owner, "error", err)
		}
		return nil
	}
	return m
}

// NewMatch validates req and builds a match ready to start.
func (l *Lobby) NewMatch(req StartRequest) (*game.Match, error) {
	var (
		v   variant.Variant
		err error
	)
	if req.OptionID != "" {
		v, err = l.catalog.Build(req.OptionID)
	} else {
		s := req.Settings
		if s.StartingScore == 0 {
			s.StartingScore = l.cfg.Defaults.StartingScore
		}
		if s.MaxRounds == 0 {
			s.MaxRounds = l.cfg.Defaults.MaxRounds
		}
		v, err = variant.New(req.Variant, s)
	}
	if err != nil {
		return nil, err
	}
	return game.NewMatch(uuid.NewString(), v, req.Players, game.Limits{
		MaxPlayers:    l.cfg.MaxPlayers,
		MaxNameLength: l.cfg.MaxNameLength,
	})
}

// matchEnded runs on the session goroutine. The result is extracted there and
// written from a separate goroutine.
func (l *Lobby) matchEnded(owner string, m *game.Match) {
	if l.store == nil {
		return
	}
	r, err := Result(owner, m)
	if err != nil {
		slog.Warn("cannot record match", "tag", "lobby", "match", m.ID, "error", err)
		return
	}
	l.persisting.Add(1)
	go func() {
		defer l.persisting.Done()
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if err := l.store.InsertMatchResult(ctx, r); err != nil {
			slog.Warn("match result insert failed", "tag", "lobby", "match", r.ID, "error", err)
			return
		}
		slog.Info("match recorded", "tag", "lobby", "match", r.ID, "winner", r.Winner)
	}()
}

// Result converts a finished match into its history record.
func Result(owner string, m *game.Match) (storage.MatchResult, error) {
	if !m.Over() {
		return storage.MatchResult{}, fmt.Errorf("match %s has no winner", m.ID)
	}
	scores, err := json.Marshal(m.Scores)
	if err != nil {
		return storage.MatchResult{}, err
	}
	return storage.MatchResult{
		ID:          m.ID,
		Owner:       owner,
		Variant:     string(m.Variant.ID()),
		Players:     append([]string(nil), m.Players...),
		Winner:      m.Winner,
		Turns:       len(m.History),
		FinalScores: scores,
		PlayedAt:    m.FinishedAt,
	}, nil
}

// Len returns the number of live sessions.
func (l *Lobby) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sessions)
}

// Close stops every session, flushing its last snapshot, and waits for
// pending match results to be written.
func (l *Lobby) Close() {
	l.mu.Lock()
	sessions := l.sessions
	l.sessions = make(map[string]*game.Session)
	l.mu.Unlock()

	for _, s := range sessions {
		// Do fails for a session that already stopped on its own.
		s.Do(game.Action{Type: game.ActionClose})
		<-s.Done
	}
	l.persisting.Wait()
}
