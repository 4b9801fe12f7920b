package darts

// SingleValues are the values one dart can score in a single band: 1-20 then the single bull.
func SingleValues() []int {
	out := make([]int, 0, 21)
	for n := 1; n <= 20; n++ {
		out = append(out, n)
	}
	return append(out, BullNumber)
}

// DoubleValues are the finishing values: doubles 2-40 then the double bull.
func DoubleValues() []int {
	out := make([]int, 0, 21)
	for n := 1; n <= 20; n++ {
		out = append(out, 2*n)
	}
	return append(out, 2*BullNumber)
}

// TripleValues are 3-60 in steps of three.
func TripleValues() []int {
	out := make([]int, 0, 20)
	for n := 1; n <= 20; n++ {
		out = append(out, 3*n)
	}
	return out
}

// AchievableValues lists every single-dart value in the fixed enumeration order
// singles, doubles, triples. Values reachable in more than one band appear once per band.
func AchievableValues() []int {
	out := SingleValues()
	out = append(out, DoubleValues()...)
	return append(out, TripleValues()...)
}

// IsDoubleValue reports whether v can be scored with one dart in a double band.
func IsDoubleValue(v int) bool {
	return v == 2*BullNumber || (v >= 2 && v <= 40 && v%2 == 0)
}
