package game

import (
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"dart-scoring-server/darts"
	"dart-scoring-server/matcherrors"
	"dart-scoring-server/wsutil"
)

// ActionType enumerates the kinds of actions a session can process.
type ActionType int

const (
	ActionAddDart ActionType = iota
	ActionRemoveDart
	ActionReplaceDart
	ActionClearDarts
	ActionSubmitTurn
	ActionStartMatch
	ActionReset
	ActionAttach
	ActionDetach
	ActionClose
	ActionHideBust      // internal: fired when the bust notice times out
	ActionFlushSnapshot // internal: fired when the snapshot debounce expires
	ActionIdle          // internal: fired when the session has had no clients for the idle grace
)

// Action is sent into a session's action channel.
type Action struct {
	Type  ActionType
	Index int         // dart index (RemoveDart, ReplaceDart)
	Throw darts.Throw // AddDart, ReplaceDart
	Match *Match      // StartMatch
	// Send is the acting client's channel: errors are reported there, and
	// Attach/Detach add or remove it.
	Send chan []byte
	seq  int
	ack  chan struct{} // closed once an Attach is applied
}

// SnapshotSink receives the encoded match after state settles. Implementations
// must not block: the session calls them from its loop.
type SnapshotSink interface {
	SaveSnapshot(owner string, data []byte)
	DeleteSnapshot(owner string)
}

// SessionConfig holds the timings a session runs with.
type SessionConfig struct {
	BustNotice time.Duration
	Debounce   time.Duration
	// Idle is how long the session lingers without clients; 0 disables eviction.
	Idle time.Duration
}

// Session owns one device's match. A single goroutine (Run) mutates the match;
// everything else talks to it through Actions.
type Session struct {
	Owner string
	cfg   SessionConfig
	sink  SnapshotSink
	match *Match

	clients map[chan []byte]struct{}

	bustSeq     int
	idleSeq     int
	savePending bool

	// OnMatchEnd is called from the session goroutine when a match gets a winner.
	OnMatchEnd func(owner string, m *Match)
	// OnIdle is called from the session goroutine right before an idle session
	// stops. Its last snapshot has already been handed to the sink.
	OnIdle func(s *Session)

	Actions chan Action
	Done    chan struct{}
}

// NewSession creates a session for owner. m may be nil (no match yet) or a
// restored match. sink may be nil for no persistence.
func NewSession(owner string, m *Match, cfg SessionConfig, sink SnapshotSink) *Session {
	return &Session{
		Owner:   owner,
		cfg:     cfg,
		sink:    sink,
		match:   m,
		clients: make(map[chan []byte]struct{}),
		Actions: make(chan Action, 16),
		Done:    make(chan struct{}),
	}
}

// Do queues an action. It returns false once the session has stopped.
func (s *Session) Do(a Action) bool {
	select {
	case s.Actions <- a:
		return true
	case <-s.Done:
		return false
	}
}

// Attach registers send for state broadcasts and waits until the session has
// taken it. It returns false when the session stopped first.
func (s *Session) Attach(send chan []byte) bool {
	ack := make(chan struct{})
	if !s.Do(Action{Type: ActionAttach, Send: send, ack: ack}) {
		return false
	}
	select {
	case <-ack:
		return true
	case <-s.Done:
		select {
		case <-ack:
			return true
		default:
			return false
		}
	}
}

// Run is the session loop. It processes actions sequentially and should be
// run as a goroutine.
func (s *Session) Run() {
	defer close(s.Done)

	s.armIdle()
	for {
		action, ok := <-s.Actions
		if !ok {
			return
		}
		switch action.Type {
		case ActionClose:
			s.flush()
			return
		case ActionAttach:
			s.clients[action.Send] = struct{}{}
			s.idleSeq++
			s.sendState(action.Send)
			if action.ack != nil {
				close(action.ack)
			}
			continue
		case ActionDetach:
			delete(s.clients, action.Send)
			s.armIdle()
			continue
		case ActionIdle:
			if action.seq != s.idleSeq || len(s.clients) > 0 {
				continue
			}
			s.flush()
			if s.OnIdle != nil {
				s.OnIdle(s)
			}
			return
		case ActionHideBust:
			if action.seq != s.bustSeq || s.match == nil || s.match.BustNotice == "" {
				continue
			}
			s.match.HideBust()
			s.broadcastState()
			continue
		case ActionFlushSnapshot:
			s.savePending = false
			s.flush()
			continue
		}

		if err := s.handle(action); err != nil {
			s.sendError(action.Send, err)
			continue
		}
		s.broadcastState()
		s.markDirty()
	}
}

func (s *Session) handle(a Action) error {
	switch a.Type {
	case ActionStartMatch:
		if a.Match == nil {
			return matcherrors.ErrNoMatch
		}
		s.match = a.Match
		s.bustSeq++
		slog.Info("match started", "tag", "game", "owner", s.Owner, "match", a.Match.ID,
			"variant", a.Match.Variant.ID(), "players", len(a.Match.Players))
		return nil
	case ActionReset:
		s.match = nil
		s.bustSeq++
		if s.sink != nil {
			s.sink.DeleteSnapshot(s.Owner)
		}
		return nil
	}

	if s.match == nil {
		return matcherrors.ErrNoMatch
	}
	switch a.Type {
	case ActionAddDart:
		return s.match.AddDart(a.Throw)
	case ActionRemoveDart:
		return s.match.RemoveDart(a.Index)
	case ActionReplaceDart:
		return s.match.ReplaceDart(a.Index, a.Throw)
	case ActionClearDarts:
		if s.match.Over() {
			return matcherrors.ErrMatchOver
		}
		s.match.ClearDarts()
		return nil
	case ActionSubmitTurn:
		return s.submitTurn()
	}
	return errors.New("unknown action")
}

func (s *Session) submitTurn() error {
	player := s.match.ActivePlayer()
	res, err := s.match.SubmitTurn()
	if err != nil {
		return err
	}
	s.broadcast(TurnResultMsg{Type: "turn_result", Player: player, Result: res})

	if res.Bust {
		s.bustSeq++
		s.schedule(s.cfg.BustNotice, Action{Type: ActionHideBust, seq: s.bustSeq})
	}
	if s.match.Over() {
		slog.Info("match finished", "tag", "game", "owner", s.Owner, "match", s.match.ID, "winner", s.match.Winner)
		if s.OnMatchEnd != nil {
			s.OnMatchEnd(s.Owner, s.match)
		}
	}
	return nil
}

// schedule sends a after d unless the session stops first.
func (s *Session) schedule(d time.Duration, a Action) {
	go func() {
		select {
		case <-time.After(d):
			select {
			case s.Actions <- a:
			case <-s.Done:
			}
		case <-s.Done:
		}
	}()
}

// armIdle starts the idle countdown when no client is attached. Any attach
// in the meantime invalidates it.
func (s *Session) armIdle() {
	if s.cfg.Idle <= 0 || len(s.clients) > 0 {
		return
	}
	s.idleSeq++
	s.schedule(s.cfg.Idle, Action{Type: ActionIdle, seq: s.idleSeq})
}

// markDirty arranges for a snapshot once the debounce window passes.
func (s *Session) markDirty() {
	if s.sink == nil {
		return
	}
	if s.cfg.Debounce <= 0 {
		s.flush()
		return
	}
	if s.savePending {
		return
	}
	s.savePending = true
	s.schedule(s.cfg.Debounce, Action{Type: ActionFlushSnapshot})
}

// flush hands the current match to the sink. Finished matches are removed
// instead: their result lives in the match history.
func (s *Session) flush() {
	if s.sink == nil || s.match == nil {
		return
	}
	if s.match.Over() {
		s.sink.DeleteSnapshot(s.Owner)
		return
	}
	data, err := json.Marshal(s.match)
	if err != nil {
		slog.Error("marshaling match snapshot", "tag", "game", "owner", s.Owner, "err", err)
		return
	}
	s.sink.SaveSnapshot(s.Owner, data)
}

func (s *Session) sendError(ch chan []byte, err error) {
	if ch == nil {
		return
	}
	data, _ := json.Marshal(ErrorMsg{Type: "error", Message: err.Error()})
	wsutil.SafeSend(ch, data)
}

func (s *Session) stateMsg() []byte {
	data, err := json.Marshal(MatchStateMsg{Type: "match_state", Match: BuildMatchView(s.match)})
	if err != nil {
		slog.Error("marshaling match state", "tag", "game", "owner", s.Owner, "err", err)
		return nil
	}
	return data
}

func (s *Session) sendState(ch chan []byte) {
	if data := s.stateMsg(); data != nil && ch != nil {
		wsutil.SafeSend(ch, data)
	}
}

func (s *Session) broadcastState() {
	data := s.stateMsg()
	if data == nil {
		return
	}
	for ch := range s.clients {
		wsutil.SafeSend(ch, data)
	}
}

func (s *Session) broadcast(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshaling message", "tag", "game", "owner", s.Owner, "err", err)
		return
	}
	for ch := range s.clients {
		wsutil.SafeSend(ch, data)
	}
}

