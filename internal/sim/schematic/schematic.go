// Package schematic holds the structured blueprint consumed by the base part
// catalog and the sources it is read from.
package schematic

import "encoding/json"

// Schematic is a prefabricated build plan: an ordered list of placed tiles on
// a width x height grid.
type Schematic struct {
	Name   string   `json:"name"`
	Width  int      `json:"width"`
	Height int      `json:"height"`
	Labels []string `json:"labels,omitempty"`
	Tiles  []Tile   `json:"tiles"`
}

// Tile is one placed block. Config names the item or liquid a source block
// emits; empty means unconfigured. Any other config value (links, numbers,
// objects) is kept verbatim in RawConfig and never names a resource.
type Tile struct {
	X         int             `json:"x"`
	Y         int             `json:"y"`
	Block     string          `json:"block"`
	Config    string          `json:"config,omitempty"`
	RawConfig json.RawMessage `json:"-"`
}

type tileDoc struct {
	X      int             `json:"x"`
	Y      int             `json:"y"`
	Block  string          `json:"block"`
	Config json.RawMessage `json:"config,omitempty"`
}

func (t *Tile) UnmarshalJSON(b []byte) error {
	var d tileDoc
	if err := json.Unmarshal(b, &d); err != nil {
		return err
	}
	*t = Tile{X: d.X, Y: d.Y, Block: d.Block}
	if len(d.Config) == 0 || string(d.Config) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(d.Config, &s); err == nil {
		t.Config = s
		return nil
	}
	t.RawConfig = append(json.RawMessage(nil), d.Config...)
	return nil
}

func (t Tile) MarshalJSON() ([]byte, error) {
	d := tileDoc{X: t.X, Y: t.Y, Block: t.Block}
	switch {
	case t.Config != "":
		b, err := json.Marshal(t.Config)
		if err != nil {
			return nil, err
		}
		d.Config = b
	case len(t.RawConfig) > 0:
		d.Config = t.RawConfig
	}
	return json.Marshal(d)
}

// Filter returns a copy of s holding only the tiles keep accepts, in order.
// s itself is not modified.
func (s *Schematic) Filter(keep func(Tile) bool) *Schematic {
	out := *s
	out.Labels = append([]string(nil), s.Labels...)
	out.Tiles = make([]Tile, 0, len(s.Tiles))
	for _, t := range s.Tiles {
		if keep(t) {
			out.Tiles = append(out.Tiles, t)
		}
	}
	return &out
}

func (s *Schematic) Clone() *Schematic {
	return s.Filter(func(Tile) bool { return true })
}
