package ws

import (
	"encoding/json"

	"dart-scoring-server/variant"
)

// InboundEnvelope is the generic envelope for all client-to-server messages.
// The Type field is used for routing; Raw holds the full JSON payload.
type InboundEnvelope struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// UnmarshalJSON implements custom unmarshaling to capture the raw payload.
func (e *InboundEnvelope) UnmarshalJSON(data []byte) error {
	type typeOnly struct {
		Type string `json:"type"`
	}
	var t typeOnly
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	e.Type = t.Type
	e.Raw = json.RawMessage(data)
	return nil
}

// --- Client-to-Server message payloads ---

// HelloMsg must be the first message on a connection. Token, when the server
// has auth configured, identifies a user; otherwise DeviceKey names the
// device. An empty DeviceKey asks the server to issue one.
type HelloMsg struct {
	Type      string `json:"type"`
	DeviceKey string `json:"deviceKey,omitempty"`
	Token     string `json:"token,omitempty"`
}

// StartMatchMsg starts a new match, replacing any current one.
// OptionID picks a catalog entry; otherwise Variant and Settings apply.
type StartMatchMsg struct {
	Type     string           `json:"type"`
	Players  []string         `json:"players"`
	OptionID string           `json:"optionId,omitempty"`
	Variant  variant.ID       `json:"variant,omitempty"`
	Settings variant.Settings `json:"settings"`
}

// AddDartMsg appends a dart to the turn buffer.
type AddDartMsg struct {
	Type   string `json:"type"`
	Region string `json:"region"`
}

// RemoveDartMsg removes the dart at Index.
type RemoveDartMsg struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
}

// ReplaceDartMsg replaces the dart at Index.
type ReplaceDartMsg struct {
	Type   string `json:"type"`
	Index  int    `json:"index"`
	Region string `json:"region"`
}

// --- Server-to-Client messages ---

// WelcomeMsg answers hello. DeviceKey echoes (or issues) the key the client
// should present on reconnect.
type WelcomeMsg struct {
	Type      string          `json:"type"`
	Owner     string          `json:"owner"`
	DeviceKey string          `json:"deviceKey,omitempty"`
	Variants  []variant.Group `json:"variants"`
}
