package variant

import (
	"encoding/json"
	"fmt"
	"strings"

	"dart-scoring-server/darts"
)

const (
	// ClockLastTarget is the final number of the sequence; passing it wins.
	ClockLastTarget = 20
	// ClockDoneTarget is stored once a player completes the sequence.
	ClockDoneTarget = ClockLastTarget + 1

	fullTurn = 3
)

// AroundTheClock asks each player to hit 1 through 20 in order.
type AroundTheClock struct {
	Options ClockOptions
}

func NewAroundTheClock(opts ClockOptions) *AroundTheClock {
	return &AroundTheClock{Options: opts}
}

func (g *AroundTheClock) ID() ID { return AroundTheClockID }

func (g *AroundTheClock) Settings() Settings { return Settings{ClockOptions: g.Options} }

func (g *AroundTheClock) InitializeGame(players []string) Scores {
	scores := make(Scores, 0, len(players))
	for _, p := range players {
		scores = append(scores, Standing{Player: p, Score: ClockScore{
			CurrentTarget: 1,
			GameOptions:   g.Options,
		}})
	}
	return scores
}

// ProcessTurn scores darts in throw order against the player's moving target.
// The options echoed in the player's score take precedence over the variant's,
// so a restored game keeps the rules it was started with.
func (g *AroundTheClock) ProcessTurn(scores Scores, throws []darts.Throw, player string) TurnResult {
	if len(throws) == 0 {
		return rejected("No darts thrown")
	}
	prior, ok := scores.Get(player)
	if !ok {
		return rejected(fmt.Sprintf("No score recorded for %s", player))
	}
	ps, ok := prior.(ClockScore)
	if !ok {
		return rejected(fmt.Sprintf("Score for %s is not an Around-the-Clock score", player))
	}
	opts := ps.GameOptions

	target := ps.CurrentTarget
	progress := false
	allHit := true
	var notes strings.Builder

	for _, d := range throws {
		hit := d.Number()
		if hit != 0 && hit == target {
			advance := 1
			switch {
			case d.IsTriple() && opts.TripleSkip:
				advance = 3
				fmt.Fprintf(&notes, "Triple %d! Skip to %d. ", hit, target+advance-1)
			case d.IsDouble() && opts.DoubleSkip:
				advance = 2
				fmt.Fprintf(&notes, "Double %d! Skip to %d. ", hit, target+advance-1)
			default:
				fmt.Fprintf(&notes, "Hit %d! Moving to %d. ", hit, target+1)
			}
			target += advance
			progress = true

			if target > ClockLastTarget {
				ps.CurrentTarget = ClockDoneTarget
				ps.ContinueTurn = false
				ps.GameOptions = opts
				return TurnResult{
					Valid:   true,
					Win:     true,
					Message: fmt.Sprintf("%s wins by completing the sequence!", player),
					Score:   ps,
				}
			}
			continue
		}

		ps.Misses++
		allHit = false
		if opts.SkipOnMiss {
			fmt.Fprintf(&notes, "Missed %d, turn over. ", target)
			break
		}
		fmt.Fprintf(&notes, "Missed %d, keep trying. ", target)
	}

	ps.CurrentTarget = target
	if allHit {
		ps.HitsInARow++
	} else {
		ps.HitsInARow = 0
	}
	cont := opts.ContinueOnSuccess && allHit && len(throws) == fullTurn
	ps.ContinueTurn = cont
	ps.GameOptions = opts

	var msg string
	if progress {
		msg = fmt.Sprintf("%s is now on number %d", player, target)
		if cont {
			msg += " and gets to continue throwing!"
		}
	} else {
		msg = fmt.Sprintf("%s missed target %d.", player, target)
	}

	return TurnResult{
		Valid:        true,
		ContinueTurn: cont,
		Message:      msg,
		Score:        ps,
	}
}

func (g *AroundTheClock) FinishSuggestion(Score) *FinishSuggestion { return nil }

// CheckWinner returns the first player, in turn order, past the last target.
func (g *AroundTheClock) CheckWinner(scores Scores) (string, bool) {
	for _, st := range scores {
		if s, ok := st.Score.(ClockScore); ok && s.CurrentTarget > ClockLastTarget {
			return st.Player, true
		}
	}
	return "", false
}

func (g *AroundTheClock) GameOptions() []Option {
	return []Option{
		{
			ID:          "around-the-clock-standard",
			Title:       "Clock Game: Standard",
			Description: "Hit numbers 1-20 in sequence. First to complete wins.",
			Value:       Settings{},
			Color:       "indigo",
		},
		{
			ID:          "around-the-clock-advanced",
			Title:       "Clock Game: Pro Mode",
			Description: "Doubles and triples let you skip ahead! Three successful darts = keep throwing.",
			Value: Settings{ClockOptions: ClockOptions{
				DoubleSkip:        true,
				TripleSkip:        true,
				ContinueOnSuccess: true,
			}},
			Color: "teal",
		},
		{
			ID:          "around-the-clock-streak",
			Title:       "Clock Game: Streak Mode",
			Description: "Hit all 3 darts = keep throwing. Miss = turn over.",
			Value: Settings{ClockOptions: ClockOptions{
				SkipOnMiss:        true,
				ContinueOnSuccess: true,
			}},
			Color: "pink",
		},
	}
}

func (g *AroundTheClock) decodeScore(raw json.RawMessage) (Score, error) {
	return decodeInto[ClockScore](raw)
}
