package variant

import (
	"encoding/json"
	"fmt"
	"strings"

	"dart-scoring-server/darts"
)

// DefaultMaxRounds is one round per board number.
const DefaultMaxRounds = 20

// Multiplication plays rounds of two phases. In the factor phase the player
// aims at the round's target to build a multiplier; in the multiply phase the
// darts' points are scored times that multiplier. A factor phase with no
// qualifying dart halves the player's total and skips the multiply phase.
type Multiplication struct {
	MaxRounds int
}

// NewMultiplication returns a game of maxRounds rounds (DefaultMaxRounds when <= 0).
func NewMultiplication(maxRounds int) *Multiplication {
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	return &Multiplication{MaxRounds: maxRounds}
}

func (g *Multiplication) ID() ID { return MultiplicationID }

func (g *Multiplication) Settings() Settings { return Settings{MaxRounds: g.MaxRounds} }

func (g *Multiplication) InitializeGame(players []string) Scores {
	scores := make(Scores, 0, len(players))
	for _, p := range players {
		scores = append(scores, Standing{Player: p, Score: MultiplyScore{
			CurrentRound: 1,
			TargetNumber: targetForRound(1),
			CurrentPhase: PhaseFactor,
			DartSets:     [][]darts.Throw{},
			RoundHistory: []RoundRecord{},
		}})
	}
	return scores
}

// targetForRound maps rounds 1-20 to their board number. Later rounds, only
// reachable when MaxRounds exceeds 20, all target the bull's number.
func targetForRound(round int) int {
	if round <= ClockLastTarget {
		return round
	}
	return darts.BullNumber
}

// Finished reports whether the player has completed every round.
func (g *Multiplication) Finished(s MultiplyScore) bool {
	return s.CurrentRound > g.MaxRounds
}

func (g *Multiplication) ProcessTurn(scores Scores, throws []darts.Throw, player string) TurnResult {
	if len(throws) == 0 {
		return rejected("No darts thrown")
	}
	prior, ok := scores.Get(player)
	if !ok {
		return rejected(fmt.Sprintf("No score recorded for %s", player))
	}
	ps, ok := prior.(MultiplyScore)
	if !ok {
		return rejected(fmt.Sprintf("Score for %s is not a Multiplication score", player))
	}
	if g.Finished(ps) {
		return TurnResult{Message: fmt.Sprintf("%s has already finished all %d rounds.", player, g.MaxRounds), Score: ps}
	}

	turn := append([]darts.Throw(nil), throws...)
	ps.DartSets = append(ps.DartSets, turn)

	if ps.CurrentPhase == PhaseMultiply {
		return g.scoreRound(ps, turn, player)
	}
	return g.buildFactor(ps, turn, player)
}

func (g *Multiplication) buildFactor(ps MultiplyScore, throws []darts.Throw, player string) TurnResult {
	var notes strings.Builder
	factor := 0
	for _, d := range throws {
		if d.IsBull() {
			if d.IsDouble() {
				factor += 3
				notes.WriteString("Double Bull! Added 3x to factor. ")
			} else {
				factor += 2
				notes.WriteString("Single Bull! Added 2x to factor. ")
			}
			continue
		}
		if d.Number() != ps.TargetNumber {
			continue
		}
		switch d.Multiplier() {
		case darts.Triple:
			factor += 3
			fmt.Fprintf(&notes, "Triple %d! Added 3x to factor. ", ps.TargetNumber)
		case darts.Double:
			factor += 2
			fmt.Fprintf(&notes, "Double %d! Added 2x to factor. ", ps.TargetNumber)
		default:
			factor++
			fmt.Fprintf(&notes, "Single %d! Added 1x to factor. ", ps.TargetNumber)
		}
	}
	ps.CurrentFactor = factor

	if factor == 0 {
		halved := ps.TotalScore / 2
		fmt.Fprintf(&notes, "Missed %d completely! No factor earned. Total score halved to %d. ", ps.TargetNumber, halved)
		ps.RoundHistory = append(ps.RoundHistory, RoundRecord{
			TargetNumber: ps.TargetNumber,
			Factor:       0,
			BaseScore:    0,
			RoundScore:   0,
			DartSets:     [][]darts.Throw{throws},
			Penalty:      true,
		})
		ps.TotalScore = halved
		ps.RoundScore = 0
		done, tail := g.advanceRound(&ps)
		return TurnResult{
			Valid:   true,
			Win:     done,
			Message: notes.String() + tail,
			Score:   ps,
		}
	}

	ps.CurrentPhase = PhaseMultiply
	return TurnResult{
		Valid:        true,
		ContinueTurn: true,
		Message:      fmt.Sprintf("Factor of %dx earned! %sThrow your next 3 darts to score points.", factor, notes.String()),
		Score:        ps,
	}
}

func (g *Multiplication) scoreRound(ps MultiplyScore, throws []darts.Throw, player string) TurnResult {
	base := darts.Total(throws)
	roundScore := 0
	var msg string
	if ps.CurrentFactor > 0 {
		roundScore = base * ps.CurrentFactor
		ps.TotalScore += roundScore
		msg = fmt.Sprintf("Base score of %d × factor of %d = %d points! ", base, ps.CurrentFactor, roundScore)
	} else {
		// Only reachable from a hand-built state: a zero factor never enters this phase.
		ps.TotalScore /= 2
		msg = fmt.Sprintf("No factor earned! Total score cut in half to %d. ", ps.TotalScore)
	}
	ps.RoundScore = roundScore
	ps.RoundHistory = append(ps.RoundHistory, RoundRecord{
		TargetNumber: ps.TargetNumber,
		Factor:       ps.CurrentFactor,
		BaseScore:    base,
		RoundScore:   roundScore,
		DartSets:     cloneDartSets(ps.DartSets),
	})
	done, tail := g.advanceRound(&ps)
	return TurnResult{
		Valid:   true,
		Win:     done,
		Message: msg + tail,
		Score:   ps,
	}
}

// advanceRound moves ps to the factor phase of the next round. When that
// round is past MaxRounds the player is finished and done is true.
func (g *Multiplication) advanceRound(ps *MultiplyScore) (done bool, msg string) {
	next := ps.CurrentRound + 1
	target := targetForRound(next)
	ps.CurrentRound = next
	ps.TargetNumber = target
	ps.CurrentPhase = PhaseFactor
	ps.CurrentFactor = 0
	ps.DartSets = [][]darts.Throw{}
	if next > g.MaxRounds {
		return true, "Game complete!"
	}
	return false, fmt.Sprintf("Moving to round %d, target: %d.", next, target)
}

func (g *Multiplication) FinishSuggestion(Score) *FinishSuggestion { return nil }

// CheckWinner returns the highest total among players who have finished every
// round; the earliest such player wins a tie. Until someone finishes there is
// no winner, whatever the totals.
func (g *Multiplication) CheckWinner(scores Scores) (string, bool) {
	winner, best, found := "", 0, false
	for _, st := range scores {
		s, ok := st.Score.(MultiplyScore)
		if !ok || !g.Finished(s) {
			continue
		}
		if !found || s.TotalScore > best {
			winner, best, found = st.Player, s.TotalScore, true
		}
	}
	return winner, found
}

func (g *Multiplication) GameOptions() []Option {
	return []Option{
		{
			ID:          "multiplication-standard",
			Title:       "Multiply Game: Standard",
			Description: "Hit target numbers to build a multiplier, then score points. Rounds 1-20.",
			Value:       Settings{MaxRounds: 20},
			Color:       "purple",
		},
		{
			ID:          "multiplication-short",
			Title:       "Multiply Game: Quick",
			Description: "Shorter version with only 10 rounds (numbers 1-10).",
			Value:       Settings{MaxRounds: 10},
			Color:       "blue",
		},
	}
}

func (g *Multiplication) decodeScore(raw json.RawMessage) (Score, error) {
	return decodeInto[MultiplyScore](raw)
}
