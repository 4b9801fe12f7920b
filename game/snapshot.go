package game

import (
	"encoding/json"
	"fmt"
	"time"

	"dart-scoring-server/darts"
	"dart-scoring-server/variant"
)

// matchJSON is the persisted form of a Match. Transient signals (the bust
// notice and the finish suggestion) are not stored.
type matchJSON struct {
	ID            string           `json:"id"`
	Variant       variant.ID       `json:"variant"`
	Settings      variant.Settings `json:"settings"`
	Players       []string         `json:"players"`
	Scores        json.RawMessage  `json:"scores"`
	CurrentPlayer int              `json:"currentPlayer"`
	CurrentDarts  []darts.Throw    `json:"currentDarts"`
	Winner        string           `json:"winner,omitempty"`
	LastMessage   string           `json:"lastMessage,omitempty"`
	History       []TurnRecord     `json:"history"`
	StartedAt     time.Time        `json:"startedAt"`
	FinishedAt    time.Time        `json:"finishedAt,omitzero"`
}

// MarshalJSON encodes the match for a snapshot.
func (m *Match) MarshalJSON() ([]byte, error) {
	scores, err := json.Marshal(m.Scores)
	if err != nil {
		return nil, err
	}
	return json.Marshal(matchJSON{
		ID:            m.ID,
		Variant:       m.Variant.ID(),
		Settings:      m.Variant.Settings(),
		Players:       m.Players,
		Scores:        scores,
		CurrentPlayer: m.CurrentPlayer,
		CurrentDarts:  m.CurrentDarts,
		Winner:        m.Winner,
		LastMessage:   m.LastMessage,
		History:       m.History,
		StartedAt:     m.StartedAt,
		FinishedAt:    m.FinishedAt,
	})
}

// DecodeMatch restores a match encoded by MarshalJSON. It rejects snapshots
// whose scores, players or turn buffer disagree with each other.
func DecodeMatch(data []byte) (*Match, error) {
	var raw matchJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode match: %w", err)
	}
	v, err := variant.New(raw.Variant, raw.Settings)
	if err != nil {
		return nil, err
	}
	scores, err := variant.DecodeScores(v, raw.Scores)
	if err != nil {
		return nil, err
	}
	if len(raw.Players) == 0 || len(scores) != len(raw.Players) {
		return nil, fmt.Errorf("decode match: %d players but %d scores", len(raw.Players), len(scores))
	}
	for i, p := range raw.Players {
		if scores[i].Player != p {
			return nil, fmt.Errorf("decode match: score %d belongs to %q, not %q", i, scores[i].Player, p)
		}
	}
	if raw.CurrentPlayer < 0 || raw.CurrentPlayer >= len(raw.Players) {
		return nil, fmt.Errorf("decode match: current player %d out of range", raw.CurrentPlayer)
	}
	if len(raw.CurrentDarts) > MaxDartsPerTurn {
		return nil, fmt.Errorf("decode match: %d darts in the turn buffer", len(raw.CurrentDarts))
	}
	for _, d := range raw.CurrentDarts {
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("decode match: %w", err)
		}
	}

	m := &Match{
		ID:            raw.ID,
		Variant:       v,
		Players:       raw.Players,
		Scores:        scores,
		CurrentPlayer: raw.CurrentPlayer,
		CurrentDarts:  raw.CurrentDarts,
		Winner:        raw.Winner,
		LastMessage:   raw.LastMessage,
		History:       raw.History,
		StartedAt:     raw.StartedAt,
		FinishedAt:    raw.FinishedAt,
	}
	m.refreshSuggestion()
	return m, nil
}
