package dice

import (
	"fmt"
	"strconv"
	"strings"
)

// Expression represents a parsed dice expression ready to be rolled.
// Precondition: Count >= 1, Sides >= 2 after successful Parse.
type Expression struct {
	Raw      string // original input string
	Count    int    // number of dice
	Sides    int    // faces per die
	Modifier int    // flat modifier (may be negative)
}

// Class is a symbolic growth-rate class such as "2d8" or "2×d8".
// A species' class determines the dice rolled on every level-up.
type Class string

// Expression resolves the class into a concrete die count and side count.
//
// Postcondition: Returns an Expression with Modifier == 0, or an error if the
// class is not a plain NdS expression.
func (c Class) Expression() (Expression, error) {
	e, err := Parse(string(c))
	if err != nil {
		return Expression{}, err
	}
	if e.Modifier != 0 {
		return Expression{}, fmt.Errorf("dice: class %q must not carry a modifier", string(c))
	}
	return e, nil
}

// Valid reports whether the class resolves to a plain NdS expression.
func (c Class) Valid() bool {
	_, err := c.Expression()
	return err == nil
}

// String returns the canonical "NdS" spelling of the class, or the raw value
// when it does not parse.
func (c Class) String() string {
	e, err := c.Expression()
	if err != nil {
		return string(c)
	}
	return fmt.Sprintf("%dd%d", e.Count, e.Sides)
}

// Parse parses a dice expression string into an Expression.
// Supported forms: "d20", "2d6", "2d6+3", "4d8-2", and the class spellings
// "2×d8" and "2xd8".
// Precondition: expr must be a non-empty string.
// Postcondition: Returns a non-nil Expression or a descriptive error.
func Parse(expr string) (Expression, error) {
	if strings.TrimSpace(expr) == "" {
		return Expression{}, fmt.Errorf("dice: empty expression")
	}

	raw := expr
	s := strings.ToLower(strings.ReplaceAll(expr, " ", ""))
	s = strings.ReplaceAll(s, "×d", "d")
	s = strings.ReplaceAll(s, "xd", "d")

	dIdx := strings.Index(s, "d")
	if dIdx < 0 {
		return Expression{}, fmt.Errorf("dice: missing 'd' in expression %q", raw)
	}

	// Count defaults to 1 when omitted.
	count := 1
	if countStr := s[:dIdx]; countStr != "" {
		var err error
		count, err = strconv.Atoi(countStr)
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid die count in %q: %w", raw, err)
		}
		if count <= 0 {
			return Expression{}, fmt.Errorf("dice: invalid die count in %q: must be >= 1", raw)
		}
	}

	rest := s[dIdx+1:]

	// First '+' or '-' after position 0 starts the modifier.
	sidesStr, modStr := rest, ""
	for i := 1; i < len(rest); i++ {
		if rest[i] == '+' || rest[i] == '-' {
			sidesStr, modStr = rest[:i], rest[i:]
			break
		}
	}

	sides, err := strconv.Atoi(sidesStr)
	if err != nil {
		return Expression{}, fmt.Errorf("dice: invalid die sides in %q: %w", raw, err)
	}
	if sides < 2 {
		return Expression{}, fmt.Errorf("dice: invalid die sides in %q: must be >= 2", raw)
	}

	modifier := 0
	if modStr != "" {
		modifier, err = strconv.Atoi(modStr)
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid modifier in %q: %w", raw, err)
		}
	}

	return Expression{
		Raw:      raw,
		Count:    count,
		Sides:    sides,
		Modifier: modifier,
	}, nil
}

// MustParse parses expr and panics on error. Useful for package-level constants.
//
// Precondition: expr must be a valid dice expression.
func MustParse(expr string) Expression {
	e, err := Parse(expr)
	if err != nil {
		panic("dice: MustParse failed for expression " + expr + ": " + err.Error())
	}
	return e
}
