// Package baseparts classifies base part blueprints and indexes them by what
// they need: core parts, self-sufficient parts and parts that must be fed a
// resource. Every index is ordered cheapest first.
package baseparts

import (
	"fmt"
	"strings"

	"baseparts.ai/internal/sim/catalogs"
	"baseparts.ai/internal/sim/schematic"
)

type Class int

const (
	ClassIndependent Class = iota
	ClassCore
	ClassRequired
)

func (c Class) String() string {
	switch c {
	case ClassCore:
		return "core"
	case ClassRequired:
		return "required"
	default:
		return "independent"
	}
}

func ParseClass(s string) (Class, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "core", "cores":
		return ClassCore, nil
	case "independent", "parts", "":
		return ClassIndependent, nil
	case "required", "req":
		return ClassRequired, nil
	default:
		return 0, fmt.Errorf("unknown part class %q", s)
	}
}

type Part struct {
	Name string
	// Schematic is the blueprint without its sandbox-only tiles.
	Schematic *schematic.Schematic

	// CenterX, CenterY is the grid cell at the centroid of the drills and
	// pumps, or the schematic center when there are none.
	CenterX, CenterY int

	// Required is the resource the part must be fed; zero when none. With
	// several source tiles the last one scanned wins.
	Required catalogs.Resource
	// Sources lists the distinct configured source resources in scan order.
	Sources []catalogs.Resource

	// Core is the id of the core block in the part, empty when none.
	Core string

	Tier float64
}

func (p *Part) IsCore() bool { return p.Core != "" }

func (p *Part) Class() Class {
	switch {
	case p.IsCore():
		return ClassCore
	case p.Required.IsZero():
		return ClassIndependent
	default:
		return ClassRequired
	}
}

// SourceConflict reports a part whose source tiles configure more than one
// distinct resource. Only the last one is kept in Required.
func (p *Part) SourceConflict() bool { return len(p.Sources) > 1 }

// less orders parts by tier, then by name.
func less(a, b *Part) bool {
	if a.Tier != b.Tier {
		return a.Tier < b.Tier
	}
	return a.Name < b.Name
}
