// Package darts models a single thrown dart and the region labels produced by the board.
package darts

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// BullNumber is the number used for the bullseye wherever a region needs a numeric target.
const BullNumber = 25

// BoardOrder is the standard clockwise number sequence starting with 20 at the top.
var BoardOrder = [20]int{20, 1, 18, 4, 13, 6, 10, 15, 2, 17, 3, 19, 7, 16, 8, 11, 14, 9, 12, 5}

// Multiplier is the scoring band a dart landed in.
type Multiplier int

const (
	NoScore Multiplier = iota
	Single
	Double
	Triple
)

// String returns the label prefix for a Multiplier.
func (m Multiplier) String() string {
	switch m {
	case Single:
		return "Single"
	case Double:
		return "Double"
	case Triple:
		return "Triple"
	default:
		return "None"
	}
}

// Factor returns how many times the segment number is counted.
func (m Multiplier) Factor() int {
	switch m {
	case Single:
		return 1
	case Double:
		return 2
	case Triple:
		return 3
	default:
		return 0
	}
}

// ErrMalformedRegion is returned for labels that do not name a board region.
var ErrMalformedRegion = errors.New("malformed region")

var regionPattern = regexp.MustCompile(`^(Single|Double|Triple) (Bull|20|1[0-9]|[1-9])$`)

// Throw is one dart: the region label and its already-computed point value.
// Throws are values; copying one never aliases another.
type Throw struct {
	Region string `json:"region"`
	Value  int    `json:"value"`
}

// Parse builds a Throw from a region label such as "Triple 20" or "Single Bull",
// deriving the point value from the label.
func Parse(region string) (Throw, error) {
	m, n, ok := classify(region)
	if !ok {
		return Throw{}, fmt.Errorf("%w: %q", ErrMalformedRegion, region)
	}
	return Throw{Region: region, Value: n * m.Factor()}, nil
}

// MustParse is Parse for literals; it panics on a malformed label.
func MustParse(region string) Throw {
	t, err := Parse(region)
	if err != nil {
		panic(err)
	}
	return t
}

// NewThrow returns the throw for number n (1-20 or BullNumber) in band m.
func NewThrow(m Multiplier, n int) (Throw, error) {
	if n == BullNumber {
		return Parse(m.String() + " Bull")
	}
	return Parse(m.String() + " " + strconv.Itoa(n))
}

// SingleBull returns the outer bull, worth 25.
func SingleBull() Throw { return Throw{Region: "Single Bull", Value: BullNumber} }

// DoubleBull returns the bullseye, worth 50.
func DoubleBull() Throw { return Throw{Region: "Double Bull", Value: 2 * BullNumber} }

// Validate reports whether Value is the value derivable from Region.
func (t Throw) Validate() error {
	want, err := Parse(t.Region)
	if err != nil {
		return err
	}
	if want.Value != t.Value {
		return fmt.Errorf("region %q is worth %d, not %d", t.Region, want.Value, t.Value)
	}
	return nil
}

// Multiplier returns the band of the region, or NoScore for a malformed label.
func (t Throw) Multiplier() Multiplier {
	m, _, _ := classify(t.Region)
	return m
}

// Number returns the segment number hit (1-20, BullNumber for either bull),
// or 0 when the label cannot be read.
func (t Throw) Number() int {
	_, n, _ := classify(t.Region)
	return n
}

// IsBull reports whether the dart landed in either bull region.
func (t Throw) IsBull() bool { return t.Number() == BullNumber }

// IsDouble reports whether the dart landed in a double band, including the double bull.
func (t Throw) IsDouble() bool { return t.Multiplier() == Double }

// IsTriple reports whether the dart landed in a triple band.
func (t Throw) IsTriple() bool { return t.Multiplier() == Triple }

func (t Throw) String() string {
	return fmt.Sprintf("%s (%d)", t.Region, t.Value)
}

func classify(region string) (Multiplier, int, bool) {
	parts := regionPattern.FindStringSubmatch(region)
	if parts == nil {
		return NoScore, 0, false
	}
	var m Multiplier
	switch parts[1] {
	case "Single":
		m = Single
	case "Double":
		m = Double
	case "Triple":
		m = Triple
	}
	if parts[2] == "Bull" {
		if m == Triple {
			return NoScore, 0, false
		}
		return m, BullNumber, true
	}
	n, _ := strconv.Atoi(parts[2])
	return m, n, true
}

// Total sums the point values of the given throws.
func Total(throws []Throw) int {
	sum := 0
	for _, t := range throws {
		sum += t.Value
	}
	return sum
}
