// Package stats defines the six combat statistics, their fixed cyclic order,
// stat blocks, and the pluggable formulas that derive sheet values from base stats.
package stats

import "fmt"

// Stat names one of the six combat statistics. The string value is the wire name
// used in persisted records.
type Stat string

// The six combat statistics.
const (
	HP        Stat = "hp"
	Attack    Stat = "attack"
	Defense   Stat = "defense"
	SpAttack  Stat = "spAttack"
	SpDefense Stat = "spDefense"
	Speed     Stat = "speed"
)

// All lists the six stats in declaration order. Random stat picks index into it.
var All = [6]Stat{HP, Attack, Defense, SpAttack, SpDefense, Speed}

// CycleOrder is the rotation used to keep the primary and secondary stat choices distinct.
var CycleOrder = [6]Stat{HP, Speed, Attack, Defense, SpAttack, SpDefense}

// Modifiable lists the stats that accept temporary combat modifiers.
var Modifiable = [4]Stat{Attack, Defense, SpAttack, SpDefense}

// Valid reports whether s is one of the six stats.
func (s Stat) Valid() bool {
	switch s {
	case HP, Attack, Defense, SpAttack, SpDefense, Speed:
		return true
	}
	return false
}

// IsModifiable reports whether s accepts temporary modifiers.
func (s Stat) IsModifiable() bool {
	switch s {
	case Attack, Defense, SpAttack, SpDefense:
		return true
	}
	return false
}

// Next returns the successor of s in CycleOrder, wrapping from SpDefense to HP.
//
// Precondition: s.Valid().
func Next(s Stat) Stat {
	for i, c := range CycleOrder {
		if c == s {
			return CycleOrder[(i+1)%len(CycleOrder)]
		}
	}
	panic(fmt.Sprintf("stats: Next called with unknown stat %q", string(s)))
}

// Parse converts a wire name into a Stat.
func Parse(name string) (Stat, bool) {
	s := Stat(name)
	return s, s.Valid()
}

// Block holds one value per stat.
type Block struct {
	HP        int `json:"hp" yaml:"hp"`
	Attack    int `json:"attack" yaml:"attack"`
	Defense   int `json:"defense" yaml:"defense"`
	SpAttack  int `json:"spAttack" yaml:"sp_attack"`
	SpDefense int `json:"spDefense" yaml:"sp_defense"`
	Speed     int `json:"speed" yaml:"speed"`
}

// Get returns the value of s.
//
// Precondition: s.Valid().
func (b Block) Get(s Stat) int {
	switch s {
	case HP:
		return b.HP
	case Attack:
		return b.Attack
	case Defense:
		return b.Defense
	case SpAttack:
		return b.SpAttack
	case SpDefense:
		return b.SpDefense
	case Speed:
		return b.Speed
	}
	panic(fmt.Sprintf("stats: Block.Get called with unknown stat %q", string(s)))
}

// Set assigns v to s.
//
// Precondition: s.Valid().
func (b *Block) Set(s Stat, v int) {
	switch s {
	case HP:
		b.HP = v
	case Attack:
		b.Attack = v
	case Defense:
		b.Defense = v
	case SpAttack:
		b.SpAttack = v
	case SpDefense:
		b.SpDefense = v
	case Speed:
		b.Speed = v
	default:
		panic(fmt.Sprintf("stats: Block.Set called with unknown stat %q", string(s)))
	}
}

// Add adds delta to s and returns the new value.
func (b *Block) Add(s Stat, delta int) int {
	v := b.Get(s) + delta
	b.Set(s, v)
	return v
}

// Total returns the sum of all six values (the BST for a base-stat block).
func (b Block) Total() int {
	return b.HP + b.Attack + b.Defense + b.SpAttack + b.SpDefense + b.Speed
}

// NonNegative reports whether every value is >= 0.
func (b Block) NonNegative() bool {
	for _, s := range All {
		if b.Get(s) < 0 {
			return false
		}
	}
	return true
}

// Modifiers holds the four temporary combat deltas. HP and Speed have no entry.
type Modifiers struct {
	Attack    int `json:"attack"`
	Defense   int `json:"defense"`
	SpAttack  int `json:"spAttack"`
	SpDefense int `json:"spDefense"`
}

// Get returns the delta for s; zero for stats that are not modifiable.
func (m Modifiers) Get(s Stat) int {
	switch s {
	case Attack:
		return m.Attack
	case Defense:
		return m.Defense
	case SpAttack:
		return m.SpAttack
	case SpDefense:
		return m.SpDefense
	}
	return 0
}

// Set assigns v to s and reports whether s is modifiable.
func (m *Modifiers) Set(s Stat, v int) bool {
	switch s {
	case Attack:
		m.Attack = v
	case Defense:
		m.Defense = v
	case SpAttack:
		m.SpAttack = v
	case SpDefense:
		m.SpDefense = v
	default:
		return false
	}
	return true
}

// Zero reports whether every delta is zero.
func (m Modifiers) Zero() bool {
	return m == Modifiers{}
}
