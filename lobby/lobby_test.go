package lobby

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"dart-scoring-server/config"
	"dart-scoring-server/darts"
	"dart-scoring-server/game"
	"dart-scoring-server/matcherrors"
	"dart-scoring-server/storage"
	"dart-scoring-server/variant"
)

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.MaxPlayers = 4
	cfg.BustNoticeMS = 20
	cfg.SnapshotDebounceMS = 0
	cfg.Defaults.MaxRounds = 5
	return cfg
}

func openStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	s, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "lobby.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestNewMatchFromOption(t *testing.T) {
	l := New(testConfig(), variant.DefaultCatalog(), nil, nil)

	m, err := l.NewMatch(StartRequest{Players: []string{"Ann", "Bob"}, OptionID: "301"})
	if err != nil {
		t.Fatalf("NewMatch: %v", err)
	}
	if m.Variant.ID() != variant.X01ID || m.Variant.Settings().StartingScore != 301 {
		t.Errorf("expected x01 from 301, got %s %+v", m.Variant.ID(), m.Variant.Settings())
	}
	if m.ID == "" {
		t.Error("expected a generated match id")
	}
}

func TestNewMatchAppliesDefaults(t *testing.T) {
	l := New(testConfig(), variant.DefaultCatalog(), nil, nil)

	m, err := l.NewMatch(StartRequest{Players: []string{"Ann"}, Variant: variant.MultiplicationID})
	if err != nil {
		t.Fatalf("NewMatch: %v", err)
	}
	if got := m.Variant.Settings().MaxRounds; got != 5 {
		t.Errorf("expected maxRounds=5 from config, got %d", got)
	}
}

func TestNewMatchRejectsBadRequests(t *testing.T) {
	l := New(testConfig(), variant.DefaultCatalog(), nil, nil)

	if _, err := l.NewMatch(StartRequest{Players: []string{"Ann"}, Variant: "cricket"}); !errors.Is(err, matcherrors.ErrUnknownVariant) {
		t.Errorf("expected ErrUnknownVariant, got %v", err)
	}
	if _, err := l.NewMatch(StartRequest{Players: []string{"Ann"}, OptionID: "901"}); !errors.Is(err, matcherrors.ErrUnknownVariant) {
		t.Errorf("expected ErrUnknownVariant for an unknown option, got %v", err)
	}
	five := []string{"A", "B", "C", "D", "E"}
	if _, err := l.NewMatch(StartRequest{Players: five, OptionID: "501"}); !errors.Is(err, matcherrors.ErrInvalidPlayers) {
		t.Errorf("expected ErrInvalidPlayers, got %v", err)
	}
}

func TestSessionIsSharedPerOwner(t *testing.T) {
	l := New(testConfig(), variant.DefaultCatalog(), nil, nil)
	defer l.Close()

	a := l.Session(context.Background(), "device-1")
	b := l.Session(context.Background(), "device-1")
	c := l.Session(context.Background(), "device-2")
	if a != b {
		t.Error("expected the same session for the same owner")
	}
	if a == c {
		t.Error("expected different owners to get different sessions")
	}
	if l.Len() != 2 {
		t.Errorf("expected 2 sessions, got %d", l.Len())
	}
}

func TestSessionRestoresSnapshot(t *testing.T) {
	store := openStore(t)
	l := New(testConfig(), variant.DefaultCatalog(), store, nil)
	defer l.Close()

	m, err := l.NewMatch(StartRequest{Players: []string{"Ann", "Bob"}, OptionID: "501"})
	if err != nil {
		t.Fatalf("NewMatch: %v", err)
	}
	if err := m.AddDart(darts.MustParse("Triple 20")); err != nil {
		t.Fatalf("AddDart: %v", err)
	}
	data, _ := json.Marshal(m)
	if err := store.SaveSnapshot(context.Background(), "device-1", data, time.Now()); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}

	s := l.Session(context.Background(), "device-1")
	send := make(chan []byte, 8)
	s.Do(game.Action{Type: game.ActionAttach, Send: send})

	select {
	case raw := <-send:
		var msg struct {
			Match *struct {
				ID           string        `json:"id"`
				CurrentDarts []darts.Throw `json:"currentDarts"`
			} `json:"match"`
		}
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("bad state: %v", err)
		}
		if msg.Match == nil || msg.Match.ID != m.ID {
			t.Fatalf("expected restored match %s, got %s", m.ID, raw)
		}
		if len(msg.Match.CurrentDarts) != 1 {
			t.Errorf("expected the turn buffer to be restored, got %v", msg.Match.CurrentDarts)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for state")
	}
}

func TestUnreadableSnapshotIsDiscarded(t *testing.T) {
	store := openStore(t)
	l := New(testConfig(), variant.DefaultCatalog(), store, nil)
	defer l.Close()

	if err := store.SaveSnapshot(context.Background(), "device-1", []byte(`{"variant":"cricket"}`), time.Now()); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}
	l.Session(context.Background(), "device-1")

	if _, ok, _ := store.LoadSnapshot(context.Background(), "device-1", 0); ok {
		t.Error("expected the unreadable snapshot to be deleted")
	}
}

func TestFinishedMatchIsRecorded(t *testing.T) {
	store := openStore(t)
	l := New(testConfig(), variant.DefaultCatalog(), store, nil)

	m, err := l.NewMatch(StartRequest{
		Players:  []string{"Ann", "Bob"},
		Variant:  variant.X01ID,
		Settings: variant.Settings{StartingScore: 40},
	})
	if err != nil {
		t.Fatalf("NewMatch: %v", err)
	}
	s := l.Session(context.Background(), "device-1")
	s.Do(game.Action{Type: game.ActionStartMatch, Match: m})
	s.Do(game.Action{Type: game.ActionAddDart, Throw: darts.MustParse("Double 20")})
	s.Do(game.Action{Type: game.ActionSubmitTurn})

	l.Close()

	history, err := store.ListHistory(context.Background(), "device-1", 10)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 recorded match, got %d", len(history))
	}
	r := history[0]
	if r.ID != m.ID || r.Winner != "Ann" || r.Variant != "x01" || r.Turns != 1 {
		t.Errorf("unexpected record %+v", r)
	}
}

func TestResultRequiresWinner(t *testing.T) {
	m, err := game.NewMatch("m-1", variant.NewX01(501), []string{"Ann"}, game.Limits{MaxPlayers: 2, MaxNameLength: 10})
	if err != nil {
		t.Fatalf("NewMatch: %v", err)
	}
	if _, err := Result("device-1", m); err == nil {
		t.Error("expected an error for a match without a winner")
	}
}

func TestIdleSessionsAreEvicted(t *testing.T) {
	cfg := testConfig()
	cfg.SessionIdleMS = 30
	store := openStore(t)
	// Not running: snapshots stay queued, so a resume has to read the queue.
	sink := storage.NewWriteBehind(store)
	l := New(cfg, variant.DefaultCatalog(), store, sink)
	defer l.Close()
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		owner := fmt.Sprintf("device-%d", i)
		send := make(chan []byte, 8)
		s := l.Attach(ctx, owner, send)
		if s == nil {
			t.Fatalf("Attach(%s) failed", owner)
		}
		if i == 0 {
			m, err := l.NewMatch(StartRequest{Players: []string{"Ann"}, OptionID: "501"})
			if err != nil {
				t.Fatalf("NewMatch: %v", err)
			}
			s.Do(game.Action{Type: game.ActionStartMatch, Match: m})
			s.Do(game.Action{Type: game.ActionAddDart, Throw: darts.MustParse("Triple 20")})
		}
		s.Do(game.Action{Type: game.ActionDetach, Send: send})
	}
	if l.Len() == 0 {
		t.Fatal("expected live sessions before the idle grace")
	}

	deadline := time.Now().Add(2 * time.Second)
	for l.Len() > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected every idle session to be evicted, %d left", l.Len())
		}
		time.Sleep(10 * time.Millisecond)
	}

	send := make(chan []byte, 8)
	if l.Attach(ctx, "device-0", send) == nil {
		t.Fatal("Attach after eviction failed")
	}
	var msg struct {
		Match *struct {
			CurrentDarts []darts.Throw `json:"currentDarts"`
		} `json:"match"`
	}
	if err := json.Unmarshal(<-send, &msg); err != nil {
		t.Fatalf("bad state: %v", err)
	}
	if msg.Match == nil || len(msg.Match.CurrentDarts) != 1 {
		t.Errorf("expected the evicted match to resume with its dart, got %+v", msg.Match)
	}
}
