package baseparts

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"baseparts.ai/internal/logging"
	"baseparts.ai/internal/sim/catalogs"
	"baseparts.ai/internal/sim/schematic"
)

// Registry is a fully built catalog. It is never modified after Load
// returns, so it may be shared by concurrent readers once published.
type Registry struct {
	// Cores holds parts with a core block.
	Cores []*Part
	// Parts holds parts without a core or a requirement.
	Parts []*Part
	// ReqParts holds the remaining parts keyed by their required resource.
	ReqParts map[catalogs.Resource][]*Part

	// Ores and OreFloors map an item id to the first block producing it.
	Ores      map[string]catalogs.BlockDef
	OreFloors map[string]catalogs.BlockDef

	// Digest is a sha256 over the blueprint names and contents in load order.
	Digest   string
	LoadedAt time.Time
}

type Stats struct {
	Cores       int `json:"cores"`
	Independent int `json:"independent"`
	Required    int `json:"required"`
	Resources   int `json:"resources"`
	Conflicts   int `json:"conflicts"`
}

func empty() *Registry {
	return &Registry{
		Cores:     []*Part{},
		Parts:     []*Part{},
		ReqParts:  map[catalogs.Resource][]*Part{},
		Ores:      map[string]catalogs.BlockDef{},
		OreFloors: map[string]catalogs.BlockDef{},
	}
}

// Loader rebuilds a Registry from a blueprint source.
type Loader struct {
	Source  schematic.Source
	Content Content
	Options Options
	Log     *zap.Logger
}

func Load(src schematic.Source, content Content, opts Options) (*Registry, error) {
	l := Loader{Source: src, Content: content, Options: opts}
	return l.Load()
}

// Load builds a new Registry. Any blueprint that cannot be read or
// classified aborts the whole load; no partial registry is returned.
func (l *Loader) Load() (*Registry, error) {
	log := logging.OrNop(l.Log)
	start := time.Now()

	reg := empty()
	reg.Ores, reg.OreFloors = ScanProducers(l.Content.BlocksInOrder())

	names, err := l.Source.Names()
	if err != nil {
		return nil, err
	}

	h := sha256.New()
	for _, name := range names {
		s, err := l.Source.Read(name)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(s)
		if err != nil {
			return nil, fmt.Errorf("blueprint %s: %w", name, err)
		}
		h.Write([]byte(name))
		h.Write([]byte{'\n'})
		h.Write(raw)
		h.Write([]byte{'\n'})

		part, err := Classify(name, s, l.Content, l.Options)
		if err != nil {
			return nil, fmt.Errorf("blueprint %s: %w", name, err)
		}
		if part.SourceConflict() {
			log.Warn("blueprint has several source resources; keeping the last",
				zap.String("blueprint", name),
				zap.Stringers("sources", part.Sources),
				zap.Stringer("required", part.Required))
		}
		log.Debug("classified blueprint",
			zap.String("blueprint", name),
			zap.Stringer("class", part.Class()),
			zap.Float64("tier", part.Tier),
			zap.Int("center_x", part.CenterX),
			zap.Int("center_y", part.CenterY))

		reg.insert(part)
	}
	reg.sort()

	reg.Digest = hex.EncodeToString(h.Sum(nil))
	reg.LoadedAt = time.Now().UTC()

	st := reg.Stats()
	log.Info("base parts loaded",
		zap.Int("cores", st.Cores),
		zap.Int("independent", st.Independent),
		zap.Int("required", st.Required),
		zap.Int("resources", st.Resources),
		zap.Int("ores", len(reg.Ores)),
		zap.Int("ore_floors", len(reg.OreFloors)),
		zap.String("digest", reg.Digest),
		zap.Duration("took", time.Since(start)))
	return reg, nil
}

func (r *Registry) insert(p *Part) {
	switch p.Class() {
	case ClassCore:
		r.Cores = append(r.Cores, p)
	case ClassIndependent:
		r.Parts = append(r.Parts, p)
	default:
		r.ReqParts[p.Required] = append(r.ReqParts[p.Required], p)
	}
}

func (r *Registry) sort() {
	sortParts(r.Cores)
	sortParts(r.Parts)
	for _, list := range r.ReqParts {
		sortParts(list)
	}
}

func sortParts(ps []*Part) {
	sort.SliceStable(ps, func(i, j int) bool { return less(ps[i], ps[j]) })
}

// ForResource returns the parts requiring res, cheapest first. It never
// returns nil. Callers must not modify the returned slice.
func (r *Registry) ForResource(res catalogs.Resource) []*Part {
	if r == nil {
		return []*Part{}
	}
	if list, ok := r.ReqParts[res]; ok {
		return list
	}
	return []*Part{}
}

// Select returns the index for class c; res is only used for ClassRequired.
func (r *Registry) Select(c Class, res catalogs.Resource) []*Part {
	if r == nil {
		return []*Part{}
	}
	switch c {
	case ClassCore:
		return r.Cores
	case ClassRequired:
		return r.ForResource(res)
	default:
		return r.Parts
	}
}

// Cheapest returns the lowest tier part requiring res.
func (r *Registry) Cheapest(res catalogs.Resource) (*Part, bool) {
	list := r.ForResource(res)
	if len(list) == 0 {
		return nil, false
	}
	return list[0], true
}

// Resources returns the required resources in string order.
func (r *Registry) Resources() []catalogs.Resource {
	if r == nil {
		return nil
	}
	out := make([]catalogs.Resource, 0, len(r.ReqParts))
	for res := range r.ReqParts {
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// All returns cores, independent parts, then required parts grouped by
// resource in Resources order.
func (r *Registry) All() []*Part {
	if r == nil {
		return nil
	}
	out := make([]*Part, 0, r.Len())
	out = append(out, r.Cores...)
	out = append(out, r.Parts...)
	for _, res := range r.Resources() {
		out = append(out, r.ReqParts[res]...)
	}
	return out
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	n := len(r.Cores) + len(r.Parts)
	for _, list := range r.ReqParts {
		n += len(list)
	}
	return n
}

func (r *Registry) Stats() Stats {
	if r == nil {
		return Stats{}
	}
	st := Stats{
		Cores:       len(r.Cores),
		Independent: len(r.Parts),
		Resources:   len(r.ReqParts),
	}
	for _, list := range r.ReqParts {
		st.Required += len(list)
	}
	for _, p := range r.All() {
		if p.SourceConflict() {
			st.Conflicts++
		}
	}
	return st
}
