package species

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// YAMLProvider serves species loaded once from a directory of YAML files.
// It is immutable after construction and safe for concurrent use.
type YAMLProvider struct {
	byID map[int]*Species
}

// LoadDirectory reads every .yaml/.yml file in dir and parses each as a Species.
// Unknown fields are rejected.
//
// Precondition: dir must be a readable directory path.
// Postcondition: Returns a provider holding every parsed species, or an error if any
// file fails to parse, fails validation, or duplicates an id.
func LoadDirectory(dir string) (*YAMLProvider, error) {
	files, err := yamlFiles(dir)
	if err != nil {
		return nil, err
	}
	p := &YAMLProvider{byID: make(map[int]*Species, len(files))}
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		var sp Species
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&sp); err != nil {
			return nil, fmt.Errorf("parsing species file %s: %w", path, err)
		}
		if err := sp.Validate(); err != nil {
			return nil, fmt.Errorf("validating species file %s: %w", path, err)
		}
		if _, dup := p.byID[sp.ID]; dup {
			return nil, fmt.Errorf("species file %s: duplicate species id %d", path, sp.ID)
		}
		p.byID[sp.ID] = &sp
	}
	return p, nil
}

// NewStaticProvider builds a provider from in-memory species values.
//
// Precondition: every species passes Validate and ids are unique.
func NewStaticProvider(all ...*Species) *YAMLProvider {
	p := &YAMLProvider{byID: make(map[int]*Species, len(all))}
	for _, sp := range all {
		p.byID[sp.ID] = sp
	}
	return p
}

// Species returns a copy of the species with id.
func (p *YAMLProvider) Species(_ context.Context, id int) (*Species, error) {
	sp, ok := p.byID[id]
	if !ok {
		return nil, fmt.Errorf("species %d: %w", id, ErrSpeciesNotFound)
	}
	out := *sp
	out.Moves = append([]Move(nil), sp.Moves...)
	return &out, nil
}

// Moves returns a copy of the move list of the species with id.
func (p *YAMLProvider) Moves(_ context.Context, id int) ([]Move, error) {
	sp, ok := p.byID[id]
	if !ok {
		return nil, fmt.Errorf("species %d: %w", id, ErrSpeciesNotFound)
	}
	return append([]Move(nil), sp.Moves...), nil
}

// IDs returns every loaded species id in ascending order.
func (p *YAMLProvider) IDs() []int {
	ids := make([]int, 0, len(p.byID))
	for id := range p.byID {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func yamlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	return paths, nil
}
