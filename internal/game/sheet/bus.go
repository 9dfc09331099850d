package sheet

import "github.com/cory-johannsen/pokesheet/internal/game/stats"

// ChangeKind classifies a model mutation.
type ChangeKind string

// Change kinds published by Sheet.
const (
	ChangeSpecies     ChangeKind = "species"
	ChangeFresh       ChangeKind = "fresh"
	ChangeHydrated    ChangeKind = "hydrated"
	ChangeCleared     ChangeKind = "cleared"
	ChangeReset       ChangeKind = "reset"
	ChangeLevel       ChangeKind = "level"
	ChangeExperience  ChangeKind = "experience"
	ChangeStats       ChangeKind = "stats"
	ChangeHP          ChangeKind = "hp"
	ChangeAccuracy    ChangeKind = "accuracy"
	ChangeEvasion     ChangeKind = "evasion"
	ChangeSkill       ChangeKind = "skill"
	ChangeCustomSkill ChangeKind = "custom_skill"
	ChangeTemporary   ChangeKind = "temporary"
	ChangeWounds      ChangeKind = "wounds"
	ChangeStatus      ChangeKind = "status"
	ChangeFriendship  ChangeKind = "friendship"
	ChangeMoves       ChangeKind = "moves"
	ChangeChoice      ChangeKind = "choice"
	ChangeText        ChangeKind = "text"
	ChangeDiceClass   ChangeKind = "dice_class"
	ChangeLevelUp     ChangeKind = "level_up"
)

// Change describes one successful mutation. Stat and Field are set when the
// mutation targets a single stat or named field.
type Change struct {
	Kind  ChangeKind
	Stat  stats.Stat
	Field string
}

// Persistent reports whether the change reflects a user edit that should be saved.
// Loading and clearing a sheet are not edits.
func (c Change) Persistent() bool {
	return c.Kind != ChangeHydrated && c.Kind != ChangeCleared
}

type subscriber struct {
	id int
	fn func(Change)
}

type bus struct {
	next int
	subs []subscriber
}

// Subscribe registers fn to receive every Change, in subscription order.
// The returned func removes the subscription; calling it more than once is safe.
func (s *Sheet) Subscribe(fn func(Change)) (unsubscribe func()) {
	s.bus.next++
	id := s.bus.next
	s.bus.subs = append(s.bus.subs, subscriber{id: id, fn: fn})
	return func() {
		for i, sub := range s.bus.subs {
			if sub.id == id {
				s.bus.subs = append(s.bus.subs[:i:i], s.bus.subs[i+1:]...)
				return
			}
		}
	}
}

func (s *Sheet) publish(c Change) {
	for _, sub := range s.bus.subs {
		sub.fn(c)
	}
}
