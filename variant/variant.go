// Package variant implements the dart game rules. Each variant is a pure state
// machine: it receives the full prior scores and the darts of one turn, and
// returns the player's new state without retaining anything between calls.
package variant

import (
	"encoding/json"
	"fmt"

	"dart-scoring-server/darts"
	"dart-scoring-server/matcherrors"
)

// ID identifies a variant on the wire and in persisted snapshots.
type ID string

const (
	X01ID            ID = "x01"
	AroundTheClockID ID = "around-the-clock"
	MultiplicationID ID = "multiplication"
)

// IDs lists the known variants in catalog order.
func IDs() []ID {
	return []ID{X01ID, AroundTheClockID, MultiplicationID}
}

// ClockOptions are the Around-the-Clock rule switches.
type ClockOptions struct {
	DoubleSkip        bool `json:"doubleSkip" yaml:"double_skip"`
	TripleSkip        bool `json:"tripleSkip" yaml:"triple_skip"`
	SkipOnMiss        bool `json:"skipOnMiss" yaml:"skip_on_miss"`
	ContinueOnSuccess bool `json:"continueOnSuccess" yaml:"continue_on_success"`
}

// Settings configures a variant at construction. Only the fields the chosen
// variant reads are meaningful; zero values select that variant's defaults.
type Settings struct {
	StartingScore int `json:"startingScore,omitempty" yaml:"starting_score"`
	ClockOptions  `yaml:",inline"`
	MaxRounds     int `json:"maxRounds,omitempty" yaml:"max_rounds"`
}

// Option is one entry of a variant's setup catalog.
type Option struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Value       Settings `json:"value"`
	Color       string   `json:"color"`
}

// FinishSuggestion is an advisory checkout path.
type FinishSuggestion struct {
	Darts       int      `json:"darts"`
	Combination []string `json:"combination"`
	Description string   `json:"description"`
}

// TurnResult is the outcome of processing one turn.
// ContinueTurn means the same player throws again with an empty turn buffer.
type TurnResult struct {
	Valid        bool   `json:"isValid"`
	Bust         bool   `json:"isBust,omitempty"`
	Win          bool   `json:"isWin,omitempty"`
	ContinueTurn bool   `json:"continueTurn,omitempty"`
	Message      string `json:"message"`
	// Score is the player's state after the turn; nil when the turn was rejected before scoring.
	Score Score `json:"updatedScore,omitempty"`
}

// Variant is the capability set shared by every game. The set of
// implementations is closed: X01, AroundTheClock and Multiplication.
type Variant interface {
	ID() ID
	Settings() Settings
	InitializeGame(players []string) Scores
	ProcessTurn(scores Scores, throws []darts.Throw, player string) TurnResult
	FinishSuggestion(score Score) *FinishSuggestion
	CheckWinner(scores Scores) (string, bool)
	GameOptions() []Option

	decodeScore(raw json.RawMessage) (Score, error)
}

// New builds the variant named by id. An unknown id is a hard failure.
func New(id ID, s Settings) (Variant, error) {
	switch id {
	case X01ID:
		return NewX01(s.StartingScore), nil
	case AroundTheClockID:
		return NewAroundTheClock(s.ClockOptions), nil
	case MultiplicationID:
		return NewMultiplication(s.MaxRounds), nil
	default:
		return nil, fmt.Errorf("%w: %q", matcherrors.ErrUnknownVariant, id)
	}
}

// MustNew is New for ids fixed at compile time; it panics on an unknown id.
func MustNew(id ID, s Settings) Variant {
	v, err := New(id, s)
	if err != nil {
		panic(err)
	}
	return v
}

// DecodeScores restores JSON-encoded scores for variant v.
func DecodeScores(v Variant, data []byte) (Scores, error) {
	var raw []struct {
		Player string          `json:"player"`
		Score  json.RawMessage `json:"score"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode scores: %w", err)
	}
	out := make(Scores, 0, len(raw))
	for _, r := range raw {
		sc, err := v.decodeScore(r.Score)
		if err != nil {
			return nil, fmt.Errorf("decode score for %s: %w", r.Player, err)
		}
		out = append(out, Standing{Player: r.Player, Score: sc})
	}
	return out, nil
}

func decodeInto[S Score](raw json.RawMessage) (Score, error) {
	var s S
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return s, nil
}

func rejected(msg string) TurnResult {
	return TurnResult{Valid: false, Message: msg}
}

// PlaysOut reports whether every player completes v before a winner is named.
// X01 and Around-the-Clock end on the first finish; Multiplication ranks the
// totals once all rounds are thrown.
func PlaysOut(v Variant) bool {
	_, ok := v.(*Multiplication)
	return ok
}

// PlayerFinished reports whether a player in v can take no further turns.
func PlayerFinished(v Variant, s Score) bool {
	switch g := v.(type) {
	case *X01:
		x, ok := s.(X01Score)
		return ok && x.Remaining == 0
	case *AroundTheClock:
		c, ok := s.(ClockScore)
		return ok && c.CurrentTarget > ClockLastTarget
	case *Multiplication:
		m, ok := s.(MultiplyScore)
		return ok && g.Finished(m)
	}
	return false
}
