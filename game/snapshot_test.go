package game

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"dart-scoring-server/variant"
)

func TestSnapshotRoundTrip(t *testing.T) {
	v := variant.NewAroundTheClock(variant.ClockOptions{DoubleSkip: true, SkipOnMiss: true})
	m := newTestMatch(t, v, "Ann", "Bob")
	addDarts(t, m, "Double 1")
	if _, err := m.SubmitTurn(); err != nil {
		t.Fatalf("SubmitTurn: %v", err)
	}
	addDarts(t, m, "Single 1")

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := DecodeMatch(data)
	if err != nil {
		t.Fatalf("DecodeMatch: %v", err)
	}

	if got.Variant.ID() != variant.AroundTheClockID {
		t.Errorf("expected around-the-clock, got %s", got.Variant.ID())
	}
	if got.Variant.Settings() != v.Settings() {
		t.Errorf("expected settings %+v, got %+v", v.Settings(), got.Variant.Settings())
	}
	if !reflect.DeepEqual(got.Scores, m.Scores) {
		t.Errorf("expected scores %+v, got %+v", m.Scores, got.Scores)
	}
	if got.ActivePlayer() != "Bob" {
		t.Errorf("expected Bob active, got %s", got.ActivePlayer())
	}
	if len(got.CurrentDarts) != 1 || got.CurrentDarts[0].Region != "Single 1" {
		t.Errorf("expected the turn buffer to survive, got %v", got.CurrentDarts)
	}
	if len(got.History) != 1 {
		t.Errorf("expected 1 history entry, got %d", len(got.History))
	}
}

func TestSnapshotRestoresMultiplication(t *testing.T) {
	m := newTestMatch(t, variant.NewMultiplication(10), "Ann")
	addDarts(t, m, "Triple 1")
	if _, err := m.SubmitTurn(); err != nil {
		t.Fatalf("SubmitTurn: %v", err)
	}

	data, _ := json.Marshal(m)
	got, err := DecodeMatch(data)
	if err != nil {
		t.Fatalf("DecodeMatch: %v", err)
	}
	s, _ := got.Scores.Get("Ann")
	ms := s.(variant.MultiplyScore)
	if ms.CurrentPhase != variant.PhaseMultiply || ms.CurrentFactor != 3 {
		t.Errorf("expected multiply phase with factor 3, got %+v", ms)
	}
	if got.Variant.Settings().MaxRounds != 10 {
		t.Errorf("expected maxRounds=10, got %d", got.Variant.Settings().MaxRounds)
	}
}

func TestSnapshotDropsBustNotice(t *testing.T) {
	m := newTestMatch(t, variant.NewX01(501), "Ann")
	m.BustNotice = "Bust!"

	data, _ := json.Marshal(m)
	got, err := DecodeMatch(data)
	if err != nil {
		t.Fatalf("DecodeMatch: %v", err)
	}
	if got.BustNotice != "" {
		t.Errorf("expected no bust notice after restore, got %q", got.BustNotice)
	}
	if got.Suggestion != nil {
		t.Errorf("expected no suggestion for 501, got %+v", got.Suggestion)
	}
}

func TestDecodeMatchRejectsBadSnapshots(t *testing.T) {
	m := newTestMatch(t, variant.NewX01(501), "Ann", "Bob")
	good, _ := json.Marshal(m)

	tests := []struct {
		name string
		edit func(string) string
	}{
		{"unknown variant", func(s string) string { return strings.Replace(s, `"variant":"x01"`, `"variant":"cricket"`, 1) }},
		{"player out of range", func(s string) string { return strings.Replace(s, `"currentPlayer":0`, `"currentPlayer":7`, 1) }},
		{"players disagree", func(s string) string { return strings.Replace(s, `"players":["Ann","Bob"]`, `"players":["Ann","Cid"]`, 1) }},
		{"bad dart", func(s string) string {
			return strings.Replace(s, `"currentDarts":null`, `"currentDarts":[{"region":"Single 20","value":3}]`, 1)
		}},
		{"not json", func(string) string { return "{" }},
	}
	for _, tt := range tests {
		data := tt.edit(string(good))
		if data == string(good) {
			t.Fatalf("%s: edit did not apply", tt.name)
		}
		if _, err := DecodeMatch([]byte(data)); err == nil {
			t.Errorf("%s: expected an error", tt.name)
		}
	}
}
