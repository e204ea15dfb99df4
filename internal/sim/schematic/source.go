package schematic

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrBlueprintRead wraps every failure to list or read a blueprint.
	ErrBlueprintRead = errors.New("blueprint read failed")
	ErrEmptyName     = errors.New("empty blueprint name")
)

// Source supplies the ordered blueprint names and their parsed schematics.
type Source interface {
	Names() ([]string, error)
	Read(name string) (*Schematic, error)
}

// DirSource reads names from a newline-delimited list file and blueprints
// from a parts directory, both relative to Root.
type DirSource struct {
	Root      string
	NamesFile string
	PartsDir  string
}

func NewDirSource(root, namesFile, partsDir string) *DirSource {
	return &DirSource{Root: root, NamesFile: namesFile, PartsDir: partsDir}
}

// Names splits the list file on '\n' only. Trailing empty entries are
// dropped; interior empty entries are kept and fail on Read.
func (s *DirSource) Names() ([]string, error) {
	p := filepath.Join(s.Root, s.NamesFile)
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBlueprintRead, s.NamesFile, err)
	}
	return SplitNames(string(b)), nil
}

func SplitNames(list string) []string {
	names := strings.Split(list, "\n")
	for len(names) > 0 && names[len(names)-1] == "" {
		names = names[:len(names)-1]
	}
	return names
}

// Read resolves name, name.json or name.json.zst inside PartsDir.
func (s *DirSource) Read(name string) (*Schematic, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: %w", ErrBlueprintRead, ErrEmptyName)
	}
	if filepath.Base(name) != name {
		return nil, fmt.Errorf("%w: %q is not a plain file name", ErrBlueprintRead, name)
	}
	dir := filepath.Join(s.Root, s.PartsDir)
	for _, cand := range []string{name, name + ".json", name + ".json.zst"} {
		p := filepath.Join(dir, cand)
		st, err := os.Stat(p)
		if err != nil || st.IsDir() {
			continue
		}
		sc, err := ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrBlueprintRead, cand, err)
		}
		if sc.Name == "" {
			sc.Name = name
		}
		return sc, nil
	}
	return nil, fmt.Errorf("%w: %s: %w", ErrBlueprintRead, name, os.ErrNotExist)
}

// MemSource serves schematics from memory in insertion order.
type MemSource struct {
	order []string
	byKey map[string]*Schematic
}

func NewMemSource() *MemSource {
	return &MemSource{byKey: map[string]*Schematic{}}
}

// Add registers s under name. Passing a nil schematic lists the name without
// a blueprint, so Read fails for it.
func (m *MemSource) Add(name string, s *Schematic) *MemSource {
	m.order = append(m.order, name)
	if s != nil {
		if s.Name == "" {
			s.Name = name
		}
		m.byKey[name] = s
	}
	return m
}

func (m *MemSource) Names() ([]string, error) {
	return append([]string(nil), m.order...), nil
}

func (m *MemSource) Read(name string) (*Schematic, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: %w", ErrBlueprintRead, ErrEmptyName)
	}
	s, ok := m.byKey[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s: %w", ErrBlueprintRead, name, os.ErrNotExist)
	}
	return s.Clone(), nil
}
