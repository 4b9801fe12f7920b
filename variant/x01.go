package variant

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"dart-scoring-server/darts"
)

const (
	// DefaultStartingScore is used when an X01 game is built without one.
	DefaultStartingScore = 501
	// MaxCheckout is the highest score finishable with three darts.
	MaxCheckout = 170
)

// X01 counts down from a starting total; the last dart must land in a double or a bull.
type X01 struct {
	StartingScore int
}

// NewX01 returns an X01 game starting at startingScore (DefaultStartingScore when <= 0).
func NewX01(startingScore int) *X01 {
	if startingScore <= 0 {
		startingScore = DefaultStartingScore
	}
	return &X01{StartingScore: startingScore}
}

func (g *X01) ID() ID { return X01ID }

func (g *X01) Settings() Settings { return Settings{StartingScore: g.StartingScore} }

func (g *X01) InitializeGame(players []string) Scores {
	scores := make(Scores, 0, len(players))
	for _, p := range players {
		scores = append(scores, Standing{Player: p, Score: X01Score{Remaining: g.StartingScore}})
	}
	return scores
}

func (g *X01) ProcessTurn(scores Scores, throws []darts.Throw, player string) TurnResult {
	if len(throws) == 0 {
		return rejected("No darts thrown")
	}
	prior, ok := scores.Get(player)
	if !ok {
		return rejected(fmt.Sprintf("No score recorded for %s", player))
	}
	cur, ok := prior.(X01Score)
	if !ok {
		return rejected(fmt.Sprintf("Score for %s is not an X01 score", player))
	}

	total := darts.Total(throws)
	remaining := cur.Remaining - total
	last := throws[len(throws)-1]

	if remaining < 0 {
		return TurnResult{
			Bust:    true,
			Message: fmt.Sprintf("Bust! Score too low. Score remains %d.", cur.Remaining),
			Score:   cur,
		}
	}
	if remaining == 0 && !last.IsDouble() && !last.IsBull() {
		return TurnResult{
			Bust:    true,
			Message: fmt.Sprintf("Bust! Must finish on a double. Score remains %d.", cur.Remaining),
			Score:   cur,
		}
	}
	if remaining == 0 {
		return TurnResult{
			Valid:   true,
			Win:     true,
			Message: fmt.Sprintf("Game won by %s!", player),
			Score:   X01Score{Remaining: 0},
		}
	}
	return TurnResult{
		Valid:   true,
		Message: fmt.Sprintf("%s scores %d. New score: %d", player, total, remaining),
		Score:   X01Score{Remaining: remaining},
	}
}

// FinishSuggestion returns a checkout for an X01Score, or nil.
func (g *X01) FinishSuggestion(score Score) *FinishSuggestion {
	s, ok := score.(X01Score)
	if !ok {
		return nil
	}
	return SuggestFinish(s.Remaining)
}

// SuggestFinish searches for a checkout of score in at most three darts.
// One-dart finishes are tried first, then two, then three. Within each, dart
// values are enumerated as darts.AchievableValues orders them (singles 1-20
// and 25, doubles 2-40 and 50, triples 3-60) and the first match is returned.
// The result is stable but not necessarily the finish a player would prefer.
func SuggestFinish(score int) *FinishSuggestion {
	if score <= 0 || score > MaxCheckout {
		return nil
	}
	doubles := darts.DoubleValues()
	all := darts.AchievableValues()

	for _, d := range doubles {
		if score == d {
			return checkout(finishingDouble(d))
		}
	}
	for _, first := range all {
		rest := score - first
		if rest > 0 && darts.IsDoubleValue(rest) {
			return checkout(describeValue(first), finishingDouble(rest))
		}
	}
	for _, first := range all {
		for _, second := range all {
			rest := score - first - second
			if rest > 0 && darts.IsDoubleValue(rest) {
				return checkout(describeValue(first), describeValue(second), finishingDouble(rest))
			}
		}
	}
	return nil
}

func checkout(combination ...string) *FinishSuggestion {
	desc := strings.Join(combination, " → ")
	if len(combination) == 1 {
		desc = "Finish with " + combination[0]
	}
	return &FinishSuggestion{Darts: len(combination), Combination: combination, Description: desc}
}

func finishingDouble(v int) string {
	if v == 2*darts.BullNumber {
		return "Double Bull"
	}
	return "Double " + strconv.Itoa(v/2)
}

// describeValue names one region worth v. Values up to 20 read as singles even
// when a double would also score them.
func describeValue(v int) string {
	switch {
	case v == darts.BullNumber:
		return "Single Bull"
	case v == 2*darts.BullNumber:
		return "Double Bull"
	case v > 20 && v <= 60 && v%3 == 0:
		return "Triple " + strconv.Itoa(v/3)
	case v > 20 && v <= 40 && v%2 == 0:
		return "Double " + strconv.Itoa(v/2)
	default:
		return "Single " + strconv.Itoa(v)
	}
}

// CheckWinner returns the first player, in turn order, with no points left.
func (g *X01) CheckWinner(scores Scores) (string, bool) {
	for _, st := range scores {
		if s, ok := st.Score.(X01Score); ok && s.Remaining == 0 {
			return st.Player, true
		}
	}
	return "", false
}

func (g *X01) GameOptions() []Option {
	return []Option{
		{
			ID:          "501",
			Title:       "Classic 501",
			Description: "Start with 501 points, first to 0 wins. Must finish on double.",
			Value:       Settings{StartingScore: 501},
			Color:       "blue",
		},
		{
			ID:          "301",
			Title:       "Classic 301",
			Description: "Start with 301 points, first to 0 wins. Must finish on double.",
			Value:       Settings{StartingScore: 301},
			Color:       "green",
		},
		{
			ID:          "201",
			Title:       "Classic 201",
			Description: "Start with 201 points, first to 0 wins. Must finish on double.",
			Value:       Settings{StartingScore: 201},
			Color:       "purple",
		},
	}
}

func (g *X01) decodeScore(raw json.RawMessage) (Score, error) {
	return decodeInto[X01Score](raw)
}
