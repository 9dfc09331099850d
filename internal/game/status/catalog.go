// Package status loads the catalog of status effects a sheet may carry.
package status

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Def is the static definition of a status effect, loaded from YAML.
type Def struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// Volatile effects are cleared when the sheet's transient state is reset.
	Volatile bool `yaml:"volatile"`
}

// Registry holds all known Defs keyed by ID.
type Registry struct {
	defs map[string]*Def
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Def)}
}

// Register adds def, overwriting any existing entry with the same ID.
// Precondition: def must not be nil and def.ID must not be empty.
func (r *Registry) Register(def *Def) {
	r.defs[def.ID] = def
}

// Get returns the Def for id, or (nil, false) if not found.
func (r *Registry) Get(id string) (*Def, bool) {
	d, ok := r.defs[id]
	return d, ok
}

// Known reports whether id is in the catalog.
func (r *Registry) Known(id string) bool {
	_, ok := r.defs[id]
	return ok
}

// All returns every Def sorted by ID.
func (r *Registry) All() []*Def {
	out := make([]*Def, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of registered effects.
func (r *Registry) Len() int { return len(r.defs) }

// LoadDirectory reads every *.yaml file in dir. A file holds either a single Def
// or a list of them under the top-level key "statuses".
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a non-nil Registry, or an error if any file fails to
// parse or an effect has no id.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading status dir %q: %w", dir, err)
	}
	reg := NewRegistry()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		defs, err := decode(data)
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		for _, def := range defs {
			if def.ID == "" {
				return nil, fmt.Errorf("parsing %q: status effect without id", path)
			}
			reg.Register(def)
		}
	}
	return reg, nil
}

type listFile struct {
	Statuses []*Def `yaml:"statuses"`
}

func decode(data []byte) ([]*Def, error) {
	if bytes.Contains(data, []byte("statuses:")) {
		var lf listFile
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&lf); err != nil {
			return nil, err
		}
		return lf.Statuses, nil
	}
	var def Def
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return nil, err
	}
	return []*Def{&def}, nil
}
