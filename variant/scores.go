package variant

import "dart-scoring-server/darts"

// Score is one player's variant-specific state. Implementations are values;
// clone returns a copy that shares no mutable memory with the receiver.
type Score interface {
	clone() Score
}

// X01Score is the points a player still needs.
type X01Score struct {
	Remaining int `json:"remaining"`
}

func (s X01Score) clone() Score { return s }

// ClockScore tracks a player's progress around the board.
type ClockScore struct {
	CurrentTarget int          `json:"currentTarget"`
	HitsInARow    int          `json:"hitsInARow"`
	Misses        int          `json:"misses"`
	ContinueTurn  bool         `json:"continueTurn"`
	GameOptions   ClockOptions `json:"gameOptions"`
}

func (s ClockScore) clone() Score { return s }

// Phase is the half of a Multiplication round a player is in.
type Phase string

const (
	PhaseFactor   Phase = "factor"
	PhaseMultiply Phase = "multiply"
)

// RoundRecord is one completed Multiplication round.
type RoundRecord struct {
	TargetNumber int             `json:"targetNumber"`
	Factor       int             `json:"factor"`
	BaseScore    int             `json:"baseScore"`
	RoundScore   int             `json:"roundScore"`
	DartSets     [][]darts.Throw `json:"dartSets"`
	Penalty      bool            `json:"penalty"`
}

// MultiplyScore tracks a player's Multiplication game.
type MultiplyScore struct {
	TotalScore    int             `json:"totalScore"`
	CurrentRound  int             `json:"currentRound"`
	TargetNumber  int             `json:"targetNumber"`
	CurrentPhase  Phase           `json:"currentPhase"`
	CurrentFactor int             `json:"currentFactor"`
	RoundScore    int             `json:"roundScore"`
	DartSets      [][]darts.Throw `json:"dartSets"`
	RoundHistory  []RoundRecord   `json:"roundHistory"`
}

func (s MultiplyScore) clone() Score {
	s.DartSets = cloneDartSets(s.DartSets)
	if s.RoundHistory != nil {
		h := make([]RoundRecord, len(s.RoundHistory))
		for i, r := range s.RoundHistory {
			r.DartSets = cloneDartSets(r.DartSets)
			h[i] = r
		}
		s.RoundHistory = h
	}
	return s
}

func cloneScore(s Score) Score {
	if s == nil {
		return nil
	}
	return s.clone()
}

func cloneDartSets(sets [][]darts.Throw) [][]darts.Throw {
	if sets == nil {
		return nil
	}
	out := make([][]darts.Throw, len(sets))
	for i, set := range sets {
		out[i] = append([]darts.Throw(nil), set...)
	}
	return out
}

// Standing pairs a player with their score.
type Standing struct {
	Player string `json:"player"`
	Score  Score  `json:"score"`
}

// Scores holds every player's state in turn order. Order matters: winner
// checks scan players first to last.
type Scores []Standing

// Get returns a copy of the player's score.
func (s Scores) Get(player string) (Score, bool) {
	for _, st := range s {
		if st.Player == player {
			return cloneScore(st.Score), true
		}
	}
	return nil, false
}

// With returns new scores where player's state is replaced by score, or
// appended when the player is not present. The receiver is not modified.
func (s Scores) With(player string, score Score) Scores {
	out := s.Clone()
	for i := range out {
		if out[i].Player == player {
			out[i].Score = cloneScore(score)
			return out
		}
	}
	return append(out, Standing{Player: player, Score: cloneScore(score)})
}

// Clone deep-copies the scores.
func (s Scores) Clone() Scores {
	if s == nil {
		return nil
	}
	out := make(Scores, len(s))
	for i, st := range s {
		out[i] = Standing{Player: st.Player, Score: cloneScore(st.Score)}
	}
	return out
}

// Players returns the player names in order.
func (s Scores) Players() []string {
	out := make([]string, len(s))
	for i, st := range s {
		out[i] = st.Player
	}
	return out
}
