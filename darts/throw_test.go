package darts

import (
	"errors"
	"testing"
)

func TestParseDerivesValue(t *testing.T) {
	cases := map[string]int{
		"Single 1":    1,
		"Single 20":   20,
		"Double 16":   32,
		"Triple 20":   60,
		"Triple 7":    21,
		"Single Bull": 25,
		"Double Bull": 50,
	}
	for region, want := range cases {
		th, err := Parse(region)
		if err != nil {
			t.Fatalf("Parse(%q): unexpected error: %v", region, err)
		}
		if th.Value != want {
			t.Errorf("Parse(%q): expected Value=%d, got %d", region, want, th.Value)
		}
		if th.Region != region {
			t.Errorf("Parse(%q): expected Region to be kept, got %q", region, th.Region)
		}
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, region := range []string{"", "Triple Bull", "Single 21", "Single 0", "Quad 5", "single 5", "Double", "Outer Bull"} {
		_, err := Parse(region)
		if err == nil {
			t.Errorf("Parse(%q): expected error", region)
			continue
		}
		if !errors.Is(err, ErrMalformedRegion) {
			t.Errorf("Parse(%q): expected ErrMalformedRegion, got %v", region, err)
		}
	}
}

func TestClassification(t *testing.T) {
	th := MustParse("Double Bull")
	if !th.IsBull() || !th.IsDouble() || th.IsTriple() {
		t.Errorf("Double Bull misclassified: bull=%v double=%v triple=%v", th.IsBull(), th.IsDouble(), th.IsTriple())
	}
	if th.Number() != BullNumber {
		t.Errorf("expected Number=%d for bull, got %d", BullNumber, th.Number())
	}

	th = MustParse("Triple 19")
	if th.Number() != 19 || th.Multiplier() != Triple {
		t.Errorf("expected Triple 19, got number=%d multiplier=%s", th.Number(), th.Multiplier())
	}

	bogus := Throw{Region: "Wire", Value: 0}
	if bogus.Number() != 0 || bogus.Multiplier() != NoScore {
		t.Errorf("malformed label should read as no score, got number=%d multiplier=%s", bogus.Number(), bogus.Multiplier())
	}
}

func TestValidate(t *testing.T) {
	if err := (Throw{Region: "Triple 20", Value: 60}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := (Throw{Region: "Triple 20", Value: 20}).Validate(); err == nil {
		t.Error("expected error for a value that does not match the region")
	}
}

func TestNewThrow(t *testing.T) {
	th, err := NewThrow(Double, BullNumber)
	if err != nil {
		t.Fatal(err)
	}
	if th != DoubleBull() {
		t.Errorf("expected %v, got %v", DoubleBull(), th)
	}
	th, err = NewThrow(Triple, 20)
	if err != nil {
		t.Fatal(err)
	}
	if th.Region != "Triple 20" || th.Value != 60 {
		t.Errorf("expected Triple 20 (60), got %v", th)
	}
	if _, err := NewThrow(Triple, BullNumber); err == nil {
		t.Error("expected error for a triple bull")
	}
}

func TestTotal(t *testing.T) {
	got := Total([]Throw{MustParse("Triple 20"), MustParse("Single 5"), SingleBull()})
	if got != 90 {
		t.Errorf("expected total 90, got %d", got)
	}
	if Total(nil) != 0 {
		t.Error("expected total 0 for no throws")
	}
}

func TestAchievableValuesOrder(t *testing.T) {
	all := AchievableValues()
	if len(all) != 62 {
		t.Fatalf("expected 62 values, got %d", len(all))
	}
	if all[0] != 1 || all[20] != 25 || all[21] != 2 || all[41] != 50 || all[42] != 3 || all[61] != 60 {
		t.Errorf("unexpected enumeration order: %v", all)
	}
}

func TestIsDoubleValue(t *testing.T) {
	for _, v := range []int{2, 4, 40, 50} {
		if !IsDoubleValue(v) {
			t.Errorf("expected %d to be a double value", v)
		}
	}
	for _, v := range []int{0, 1, 3, 42, 48, 60} {
		if IsDoubleValue(v) {
			t.Errorf("expected %d not to be a double value", v)
		}
	}
}
