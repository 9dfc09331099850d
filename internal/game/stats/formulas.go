package stats

// HPMultiplier scales the formula result for hp, both when hp is first computed
// and for every hp level-up roll.
const HPMultiplier = 3

// Bounds for the accuracy (GENA) and evasion (PA) values.
const (
	AccuracyMin = 1
	AccuracyMax = 12
	EvasionMin  = 1
	EvasionMax  = 12
)

// Formulas maps base stats and level to derived sheet values.
// Implementations must be pure.
type Formulas interface {
	// Stat returns the derived value of a stat with the given base at level.
	Stat(base, level int) int
	// Movement returns the movement value for a species.
	Movement(baseSpeed, bst, bodySkill int) int
	// Accuracy returns the GENA value for a species.
	Accuracy(bst, baseSpeed int) int
	// Evasion returns the PA value for a species.
	Evasion(bst, baseSpeed int) int
}

// DefaultFormulas is the stock formula set.
type DefaultFormulas struct{}

// Stat returns (2*base*level)/100 + 5.
//
// Precondition: base >= 0; level >= 1.
func (DefaultFormulas) Stat(base, level int) int {
	return (2*base*level)/100 + 5
}

// Movement returns 2 + baseSpeed/25, plus one for BST >= 500, plus bodySkill/3,
// never below 1.
func (DefaultFormulas) Movement(baseSpeed, bst, bodySkill int) int {
	m := 2 + baseSpeed/25 + bodySkill/3
	if bst >= 500 {
		m++
	}
	if m < 1 {
		return 1
	}
	return m
}

// Accuracy starts at 6 and steps with BST and base speed.
func (DefaultFormulas) Accuracy(bst, baseSpeed int) int {
	v := 6
	switch {
	case bst >= 600:
		v += 2
	case bst >= 500:
		v++
	case bst < 300:
		v--
	}
	switch {
	case baseSpeed >= 100:
		v++
	case baseSpeed < 40:
		v--
	}
	return Clamp(v, AccuracyMin, AccuracyMax)
}

// Evasion starts at 6 and steps with base speed and BST.
func (DefaultFormulas) Evasion(bst, baseSpeed int) int {
	v := 6
	switch {
	case baseSpeed >= 120:
		v += 2
	case baseSpeed >= 90:
		v++
	case baseSpeed < 50:
		v--
	}
	switch {
	case bst >= 500:
		v++
	case bst < 300:
		v--
	}
	return Clamp(v, EvasionMin, EvasionMax)
}

// Compute derives the full computed-stat block from base stats at level.
// HP is multiplied by HPMultiplier.
func Compute(f Formulas, base Block, level int) Block {
	var out Block
	for _, s := range All {
		v := f.Stat(base.Get(s), level)
		if s == HP {
			v *= HPMultiplier
		}
		out.Set(s, v)
	}
	return out
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
