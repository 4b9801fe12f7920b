package game

import (
	"dart-scoring-server/darts"
	"dart-scoring-server/variant"
)

// historyTail is how many recent turns a state message carries.
const historyTail = 10

// MatchView is the client-facing representation of a match.
type MatchView struct {
	ID            string                    `json:"id"`
	Variant       variant.ID                `json:"variant"`
	Settings      variant.Settings          `json:"settings"`
	Players       []string                  `json:"players"`
	Scores        variant.Scores            `json:"scores"`
	CurrentPlayer int                       `json:"currentPlayer"`
	ActivePlayer  string                    `json:"activePlayer"`
	CurrentDarts  []darts.Throw             `json:"currentDarts"`
	TurnTotal     int                       `json:"turnTotal"`
	Winner        string                    `json:"winner,omitempty"`
	ShowBust      bool                      `json:"showBust"`
	BustMessage   string                    `json:"bustMessage,omitempty"`
	LastMessage   string                    `json:"lastMessage,omitempty"`
	Suggestion    *variant.FinishSuggestion `json:"finishSuggestion,omitempty"`
	RecentTurns   []TurnRecord              `json:"recentTurns"`
}

// MatchStateMsg is broadcast to every client attached to a session.
// Match is nil when no match is running.
type MatchStateMsg struct {
	Type  string     `json:"type"`
	Match *MatchView `json:"match"`
}

// TurnResultMsg reports the outcome of a submitted turn.
type TurnResultMsg struct {
	Type   string             `json:"type"`
	Player string             `json:"player"`
	Result variant.TurnResult `json:"result"`
}

// ErrorMsg is sent to the client whose action failed.
type ErrorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// BuildMatchView creates a MatchView from a Match. Slices are copied so the
// view can be marshaled outside the session goroutine.
func BuildMatchView(m *Match) *MatchView {
	if m == nil {
		return nil
	}
	cur := append([]darts.Throw{}, m.CurrentDarts...)
	tail := m.History
	if len(tail) > historyTail {
		tail = tail[len(tail)-historyTail:]
	}
	return &MatchView{
		ID:            m.ID,
		Variant:       m.Variant.ID(),
		Settings:      m.Variant.Settings(),
		Players:       append([]string(nil), m.Players...),
		Scores:        m.Standings(),
		CurrentPlayer: m.CurrentPlayer,
		ActivePlayer:  m.ActivePlayer(),
		CurrentDarts:  cur,
		TurnTotal:     darts.Total(cur),
		Winner:        m.Winner,
		ShowBust:      m.BustNotice != "",
		BustMessage:   m.BustNotice,
		LastMessage:   m.LastMessage,
		Suggestion:    m.Suggestion,
		RecentTurns:   append([]TurnRecord{}, tail...),
	}
}
