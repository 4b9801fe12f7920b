package game

import (
	"fmt"
	"strings"
	"time"

	"dart-scoring-server/darts"
	"dart-scoring-server/matcherrors"
	"dart-scoring-server/variant"
)

// MaxDartsPerTurn is the size of the turn buffer.
const MaxDartsPerTurn = 3

// Limits bound the match setup.
type Limits struct {
	MaxPlayers    int
	MaxNameLength int
}

// TurnRecord is one submitted turn, kept for the match log.
type TurnRecord struct {
	Player  string        `json:"player"`
	Darts   []darts.Throw `json:"darts"`
	Message string        `json:"message"`
	Bust    bool          `json:"bust,omitempty"`
	Win     bool          `json:"win,omitempty"`
	At      time.Time     `json:"at"`
}

// Match is the state of one game in progress. It is not safe for concurrent
// use; a Session owns it and mutates it from a single goroutine.
type Match struct {
	ID            string
	Variant       variant.Variant
	Players       []string
	Scores        variant.Scores
	CurrentPlayer int
	CurrentDarts  []darts.Throw

	// Winner is set once the variant names one; the match accepts no more turns.
	Winner string
	// BustNotice is the message of the last bust until it is hidden; empty when hidden.
	BustNotice  string
	LastMessage string
	Suggestion  *variant.FinishSuggestion
	History     []TurnRecord

	StartedAt  time.Time
	FinishedAt time.Time
}

// NewMatch validates the player list and starts a match of v.
func NewMatch(id string, v variant.Variant, players []string, lim Limits) (*Match, error) {
	names, err := NormalizePlayers(players, lim)
	if err != nil {
		return nil, err
	}
	m := &Match{
		ID:        id,
		Variant:   v,
		Players:   names,
		Scores:    v.InitializeGame(names),
		StartedAt: time.Now(),
	}
	m.refreshSuggestion()
	return m, nil
}

// NormalizePlayers trims names and checks count, length and uniqueness.
func NormalizePlayers(players []string, lim Limits) ([]string, error) {
	if len(players) == 0 {
		return nil, fmt.Errorf("%w: at least one player is required", matcherrors.ErrInvalidPlayers)
	}
	if lim.MaxPlayers > 0 && len(players) > lim.MaxPlayers {
		return nil, fmt.Errorf("%w: at most %d players", matcherrors.ErrInvalidPlayers, lim.MaxPlayers)
	}
	seen := make(map[string]struct{}, len(players))
	out := make([]string, 0, len(players))
	for _, p := range players {
		name := strings.TrimSpace(p)
		if name == "" {
			return nil, fmt.Errorf("%w: empty name", matcherrors.ErrInvalidPlayers)
		}
		if lim.MaxNameLength > 0 && len([]rune(name)) > lim.MaxNameLength {
			return nil, fmt.Errorf("%w: name %q longer than %d characters", matcherrors.ErrInvalidPlayers, name, lim.MaxNameLength)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: duplicate name %q", matcherrors.ErrInvalidPlayers, name)
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out, nil
}

// Over reports whether the match has a winner.
func (m *Match) Over() bool { return m.Winner != "" }

// ActivePlayer returns the name of the player whose turn it is.
func (m *Match) ActivePlayer() string { return m.Players[m.CurrentPlayer] }

// AddDart appends a dart to the turn buffer.
func (m *Match) AddDart(t darts.Throw) error {
	if m.Over() {
		return matcherrors.ErrMatchOver
	}
	if len(m.CurrentDarts) >= MaxDartsPerTurn {
		return matcherrors.ErrTurnFull
	}
	if err := t.Validate(); err != nil {
		return err
	}
	m.CurrentDarts = append(m.CurrentDarts, t)
	return nil
}

// RemoveDart drops the dart at index i, shifting later darts down.
func (m *Match) RemoveDart(i int) error {
	if m.Over() {
		return matcherrors.ErrMatchOver
	}
	if i < 0 || i >= len(m.CurrentDarts) {
		return fmt.Errorf("%w: %d", matcherrors.ErrDartIndex, i)
	}
	m.CurrentDarts = append(m.CurrentDarts[:i:i], m.CurrentDarts[i+1:]...)
	return nil
}

// ReplaceDart overwrites the dart at index i.
func (m *Match) ReplaceDart(i int, t darts.Throw) error {
	if m.Over() {
		return matcherrors.ErrMatchOver
	}
	if i < 0 || i >= len(m.CurrentDarts) {
		return fmt.Errorf("%w: %d", matcherrors.ErrDartIndex, i)
	}
	if err := t.Validate(); err != nil {
		return err
	}
	m.CurrentDarts[i] = t
	return nil
}

func (m *Match) ClearDarts() { m.CurrentDarts = nil }

func (m *Match) HideBust() { m.BustNotice = "" }

// SubmitTurn hands the turn buffer to the variant and applies the result:
//
//   - rejected (not a bust): nothing changes, the darts stay in the buffer
//   - bust: the score is kept, the notice is raised and play passes on
//   - win: the score is stored and the match ends if the variant names a winner;
//     variants that play out wait until nobody is left to throw
//   - continue: the score is stored and the same player throws again
//   - otherwise: the score is stored and play passes on
func (m *Match) SubmitTurn() (variant.TurnResult, error) {
	if m.Over() {
		return variant.TurnResult{}, matcherrors.ErrMatchOver
	}
	player := m.ActivePlayer()
	thrown := m.CurrentDarts
	res := m.Variant.ProcessTurn(m.Scores, thrown, player)

	if !res.Valid && !res.Bust {
		m.LastMessage = res.Message
		return res, nil
	}

	m.History = append(m.History, TurnRecord{
		Player:  player,
		Darts:   append([]darts.Throw(nil), thrown...),
		Message: res.Message,
		Bust:    res.Bust,
		Win:     res.Win,
		At:      time.Now(),
	})
	m.LastMessage = res.Message
	m.CurrentDarts = nil

	switch {
	case res.Bust:
		m.BustNotice = res.Message
		m.advance()
	case res.Win:
		m.Scores = m.Scores.With(player, res.Score)
		if variant.PlaysOut(m.Variant) && m.advance() {
			break
		}
		if winner, ok := m.Variant.CheckWinner(m.Scores); ok {
			m.Winner = winner
			m.FinishedAt = time.Now()
		} else {
			m.advance()
		}
	case res.ContinueTurn:
		m.Scores = m.Scores.With(player, res.Score)
	default:
		m.Scores = m.Scores.With(player, res.Score)
		m.advance()
	}
	m.refreshSuggestion()
	return res, nil
}

// advance moves play to the next player who can still throw. When nobody can,
// the current player is kept and advance returns false.
func (m *Match) advance() bool {
	n := len(m.Players)
	for step := 1; step <= n; step++ {
		next := (m.CurrentPlayer + step) % n
		score, _ := m.Scores.Get(m.Players[next])
		if !variant.PlayerFinished(m.Variant, score) {
			m.CurrentPlayer = next
			return true
		}
	}
	return false
}

func (m *Match) refreshSuggestion() {
	if m.Over() {
		m.Suggestion = nil
		return
	}
	score, ok := m.Scores.Get(m.ActivePlayer())
	if !ok {
		m.Suggestion = nil
		return
	}
	m.Suggestion = m.Variant.FinishSuggestion(score)
}

// Standings returns the scores in turn order.
func (m *Match) Standings() variant.Scores { return m.Scores.Clone() }
