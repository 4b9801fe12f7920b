package variant

import (
	"reflect"
	"testing"
)

func TestInitializeGameWithoutPlayers(t *testing.T) {
	for _, id := range IDs() {
		g := MustNew(id, Settings{})
		for _, players := range [][]string{nil, {}} {
			scores := g.InitializeGame(players)
			if len(scores) != 0 {
				t.Errorf("%s: expected no scores for %v, got %v", id, players, scores)
			}
			if _, ok := scores.Get("Ann"); ok {
				t.Errorf("%s: expected no score for an unknown player", id)
			}
		}
	}
}

func TestQueriesAreIdempotent(t *testing.T) {
	first, second := SuggestFinish(170), SuggestFinish(170)
	if first == nil || !reflect.DeepEqual(first, second) {
		t.Errorf("expected the same 170 checkout twice, got %+v and %+v", first, second)
	}

	x := NewX01(501)
	a, b := x.FinishSuggestion(X01Score{Remaining: 170}), x.FinishSuggestion(X01Score{Remaining: 170})
	if !reflect.DeepEqual(a, b) {
		t.Errorf("expected equal X01 suggestions, got %+v and %+v", a, b)
	}

	m := NewMultiplication(2)
	scores := Scores{
		{Player: "Ann", Score: MultiplyScore{TotalScore: 40, CurrentRound: 3}},
		{Player: "Bob", Score: MultiplyScore{TotalScore: 90, CurrentRound: 3}},
	}
	before := scores.Clone()
	w1, ok1 := m.CheckWinner(scores)
	w2, ok2 := m.CheckWinner(scores)
	if w1 != w2 || ok1 != ok2 || w1 != "Bob" {
		t.Errorf("expected Bob both times, got %q/%v and %q/%v", w1, ok1, w2, ok2)
	}
	if !reflect.DeepEqual(scores, before) {
		t.Error("expected CheckWinner to leave the scores unchanged")
	}
}

func TestPlaysOut(t *testing.T) {
	tests := []struct {
		id   ID
		want bool
	}{
		{X01ID, false},
		{AroundTheClockID, false},
		{MultiplicationID, true},
	}
	for _, tt := range tests {
		if got := PlaysOut(MustNew(tt.id, Settings{})); got != tt.want {
			t.Errorf("%s: expected PlaysOut=%v, got %v", tt.id, tt.want, got)
		}
	}
}
