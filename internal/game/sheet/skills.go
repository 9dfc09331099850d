package sheet

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Skill value bounds, shared by vocabulary skills and custom skills.
const (
	SkillMin = -9
	SkillMax = 9
)

// BodySkill is the category whose value feeds the movement formula.
const BodySkill = "Físico"

// Vocabulary is a closed set of skill categories, each with its individual skills.
// All keys are stored in canonical (NFC) form.
type Vocabulary struct {
	categories map[string][]string
	keys       map[string]bool
	category   map[string]bool
	folded     map[string][]string
	order      []string
}

// NewVocabulary builds a vocabulary from category → skills. Names are canonicalised.
func NewVocabulary(groups map[string][]string) *Vocabulary {
	v := &Vocabulary{
		categories: make(map[string][]string, len(groups)),
		keys:       make(map[string]bool),
		category:   make(map[string]bool),
		folded:     make(map[string][]string),
	}
	for cat, skills := range groups {
		c := Canonical(cat)
		v.category[c] = true
		v.add(c)
		for _, s := range skills {
			k := Canonical(s)
			v.categories[c] = append(v.categories[c], k)
			v.add(k)
		}
	}
	for _, cands := range v.folded {
		sort.Strings(cands)
	}
	sort.Strings(v.order)
	return v
}

func (v *Vocabulary) add(key string) {
	if v.keys[key] {
		return
	}
	v.keys[key] = true
	v.order = append(v.order, key)
	f := fold(key)
	v.folded[f] = append(v.folded[f], key)
}

// DefaultVocabulary is the stock skill vocabulary.
var DefaultVocabulary = NewVocabulary(map[string][]string{
	"Físico":    {"Atletismo", "Acrobacia", "Resistência"},
	"Percepção": {"Atenção", "Rastreamento", "Intuição"},
	"Mente":     {"Lógica", "Memória", "Foco"},
	"Expressão": {"Intimidação", "Persuasão", "Encenação"},
})

// Resolve maps key onto a vocabulary key. An exact canonical match wins; otherwise
// a unique accent- and case-insensitive match is accepted.
func (v *Vocabulary) Resolve(key string) (string, bool) {
	c := Canonical(key)
	if c == "" {
		return "", false
	}
	if v.keys[c] {
		return c, true
	}
	cands := v.folded[fold(c)]
	if len(cands) == 1 {
		return cands[0], true
	}
	return "", false
}

// ResolveCategory is Resolve restricted to category names.
func (v *Vocabulary) ResolveCategory(key string) (string, bool) {
	k, ok := v.Resolve(key)
	if !ok || !v.category[k] {
		return "", false
	}
	return k, true
}

// IsCategory reports whether the canonical key names a category.
func (v *Vocabulary) IsCategory(key string) bool {
	return v.category[Canonical(key)]
}

// Skills returns the individual skills of a category.
func (v *Vocabulary) Skills(category string) []string {
	return append([]string(nil), v.categories[Canonical(category)]...)
}

// Keys returns every category and skill key in sorted order.
func (v *Vocabulary) Keys() []string {
	return append([]string(nil), v.order...)
}

// Canonical trims s and converts it to Unicode normalization form C.
func Canonical(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// Resolve resolves key against DefaultVocabulary.
func Resolve(key string) (string, bool) {
	return DefaultVocabulary.Resolve(key)
}

// fold strips combining marks and case-folds s.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return cases.Fold().String(out)
}
