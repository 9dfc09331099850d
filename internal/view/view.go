// Package view is a headless sheet view: a flat widget tree rendered from the
// sheet model, with raw input echoes of the text and experience inputs.
package view

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/pokesheet/internal/game/sheet"
	"github.com/cory-johannsen/pokesheet/internal/game/stats"
)

// Input widgets whose raw text is echoed from the persisted record.
const (
	WidgetNickname        = "nickname"
	WidgetItem            = "item"
	WidgetExperienceInput = "experienceInput"
)

// Editor applies a raw widget edit to the model. It reports whether the edit was accepted.
type Editor func(widget, raw string) bool

// View holds the rendered widget values. It is safe for concurrent use.
type View struct {
	logger *zap.Logger

	mu       sync.Mutex
	widgets  map[string]string
	trigger  func()
	editor   Editor
	renders  int
	rendered bool
}

// New creates an empty View.
//
// Precondition: logger must be non-nil.
func New(logger *zap.Logger) *View {
	return &View{logger: logger, widgets: make(map[string]string)}
}

// Render rebuilds every widget from s, input echoes included. ApplyRecord
// overwrites the echoes afterwards for a hydrated sheet.
//
// Precondition: s must be non-nil; the caller holds the model lock.
func (v *View) Render(s *sheet.Sheet) error {
	if s == nil {
		return fmt.Errorf("view: render of nil sheet")
	}
	w := make(map[string]string)
	w["species"] = s.SpeciesName()
	w["speciesId"] = strconv.Itoa(s.SpeciesID())
	w["level"] = strconv.Itoa(s.Level())
	w["experience"] = strconv.Itoa(s.Experience())
	w["requiredExperience"] = strconv.Itoa(s.RequiredExperience())
	w["canLevelUp"] = strconv.FormatBool(s.CanLevelUp())
	w["currentHp"] = strconv.Itoa(s.CurrentHP())
	w["maxHp"] = strconv.Itoa(s.ComputedStats().HP)
	w["accuracy"] = strconv.Itoa(s.Accuracy())
	w["evasion"] = strconv.Itoa(s.Evasion())
	w["movement"] = strconv.Itoa(s.Movement())
	w["primaryStat"] = string(s.PrimaryStat())
	w["secondaryStat"] = string(s.SecondaryStat())
	w["wounds"] = strconv.Itoa(s.Wounds())
	w["diceClass"] = s.DiceClass().String()
	text := s.TextFields()
	w[WidgetNickname] = text.Nickname
	w[WidgetItem] = text.Item
	w[WidgetExperienceInput] = strconv.Itoa(s.Experience())

	computed := s.ComputedStats()
	effective := s.EffectiveStats()
	for _, st := range stats.All {
		w["stat."+string(st)] = strconv.Itoa(computed.Get(st))
		w["effective."+string(st)] = strconv.Itoa(effective.Get(st))
	}
	for name, val := range s.SkillValues() {
		w["skill."+name] = strconv.Itoa(val)
	}
	for _, cat := range sheet.DefaultVocabulary.Keys() {
		if !sheet.DefaultVocabulary.IsCategory(cat) {
			continue
		}
		for i, cs := range s.CustomSkills(cat) {
			w[fmt.Sprintf("custom.%s.%d", cat, i)] = fmt.Sprintf("%s %+d", cs.Name, cs.Value)
		}
	}
	w["statusEffects"] = strings.Join(s.StatusEffects(), ",")
	w["friendshipMarks"] = strconv.Itoa(len(s.FriendshipMarks()))
	for i, m := range s.EquippedMoves() {
		if m != nil {
			w["move."+strconv.Itoa(i)] = m.Name
		}
	}

	v.mu.Lock()
	v.widgets = w
	v.renders++
	v.rendered = true
	v.mu.Unlock()
	return nil
}

// ApplyRecord writes the raw input echoes of rec into their widgets.
func (v *View) ApplyRecord(rec sheet.Record) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.rendered {
		return fmt.Errorf("view: record applied before render")
	}
	v.widgets[WidgetNickname] = rec.TextFields.Nickname
	v.widgets[WidgetItem] = rec.TextFields.Item
	v.widgets[WidgetExperienceInput] = strconv.Itoa(rec.CurrentExperience)
	return nil
}

// BindAutoSave sets the trigger fired after every user edit. Binding again
// replaces the previous trigger, so at most one is ever bound.
func (v *View) BindAutoSave(fn func()) {
	v.mu.Lock()
	v.trigger = fn
	v.mu.Unlock()
}

// SetEditor installs the function that applies raw edits to the model.
func (v *View) SetEditor(fn Editor) {
	v.mu.Lock()
	v.editor = fn
	v.mu.Unlock()
}

// Input emulates the user typing raw into widget. The echo is stored, the
// editor (if any) applies it, and the bound auto-save trigger fires for
// accepted edits.
//
// Postcondition: Returns false when the editor rejected the value; the echo is kept.
func (v *View) Input(widget, raw string) bool {
	v.mu.Lock()
	v.widgets[widget] = raw
	editor, trigger := v.editor, v.trigger
	v.mu.Unlock()

	accepted := true
	if editor != nil {
		accepted = editor(widget, raw)
	}
	if !accepted {
		v.logger.Debug("view input rejected", zap.String("widget", widget), zap.String("raw", raw))
		return false
	}
	if trigger != nil {
		trigger()
	}
	return true
}

// Value returns the current text of widget.
func (v *View) Value(widget string) (string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	val, ok := v.widgets[widget]
	return val, ok
}

// Renders returns how many times Render has run.
func (v *View) Renders() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.renders
}

// Text returns the widget tree as sorted "name: value" lines.
func (v *View) Text() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	names := make([]string, 0, len(v.widgets))
	for name := range v.widgets {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "%-22s %s\n", name+":", v.widgets[name])
	}
	return b.String()
}
