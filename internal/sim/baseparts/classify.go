package baseparts

import (
	"errors"
	"fmt"
	"math"

	"baseparts.ai/internal/sim/catalogs"
	"baseparts.ai/internal/sim/schematic"
)

var (
	ErrInvalidCostMultiplier = errors.New("build cost multiplier must be > 0")
	ErrInvalidBuildTime      = errors.New("build time must be >= 0")
	ErrUnknownBlock          = errors.New("unknown block")
	ErrUnknownResource       = errors.New("unknown source resource")
)

// Content is the block and resource registry a blueprint is classified against.
type Content interface {
	Block(id string) (catalogs.BlockDef, bool)
	BlocksInOrder() []catalogs.BlockDef
	Resolve(kind catalogs.ResourceKind, id string) (catalogs.Resource, bool)
}

type Options struct {
	// TileSize is the world-unit size of a grid cell; defaults to 8.
	TileSize float64
	// TierExponent is applied to each block's build cost; defaults to 1.4.
	TierExponent float64
}

func DefaultOptions() Options {
	return Options{TileSize: 8, TierExponent: 1.4}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.TileSize <= 0 {
		o.TileSize = d.TileSize
	}
	if o.TierExponent <= 0 {
		o.TierExponent = d.TierExponent
	}
	return o
}

// Classify derives a Part from one schematic. s is not modified; the part
// keeps a copy without sandbox-only tiles.
func Classify(name string, s *schematic.Schematic, content Content, opts Options) (*Part, error) {
	opts = opts.withDefaults()
	part := &Part{Name: name}

	var (
		sumX, sumY float64
		extractors int
	)
	for i, t := range s.Tiles {
		def, ok := content.Block(t.Block)
		if !ok {
			return nil, fmt.Errorf("tile %d: %w %q", i, ErrUnknownBlock, t.Block)
		}

		if def.IsCore() {
			part.Core = def.ID
		}
		if def.IsItemSource() && t.Config != "" {
			res, ok := content.Resolve(catalogs.ResourceItem, t.Config)
			if !ok {
				return nil, fmt.Errorf("tile %d: %w item %q", i, ErrUnknownResource, t.Config)
			}
			part.require(res)
		}
		if def.IsLiquidSource() && t.Config != "" {
			res, ok := content.Resolve(catalogs.ResourceLiquid, t.Config)
			if !ok {
				return nil, fmt.Errorf("tile %d: %w liquid %q", i, ErrUnknownResource, t.Config)
			}
			part.require(res)
		}
		if def.IsExtractor() {
			off := def.Offset(opts.TileSize)
			sumX += float64(t.X)*opts.TileSize + off
			sumY += float64(t.Y)*opts.TileSize + off
			extractors++
		}
	}

	part.Schematic = s.Filter(func(t schematic.Tile) bool {
		def, _ := content.Block(t.Block)
		return !def.SandboxOnly()
	})

	tier, err := Tier(part.Schematic, content, opts.TierExponent)
	if err != nil {
		return nil, err
	}
	part.Tier = tier

	if extractors > 0 {
		n := float64(extractors)
		part.CenterX = int(sumX / n / opts.TileSize)
		part.CenterY = int(sumY / n / opts.TileSize)
	} else {
		part.CenterX = s.Width / 2
		part.CenterY = s.Height / 2
	}
	return part, nil
}

func (p *Part) require(res catalogs.Resource) {
	p.Required = res
	for _, r := range p.Sources {
		if r == res {
			return
		}
	}
	p.Sources = append(p.Sources, res)
}

// Tier sums (buildTime / buildCostMultiplier)^exp over every tile of s.
func Tier(s *schematic.Schematic, content Content, exp float64) (float64, error) {
	var tier float64
	for i, t := range s.Tiles {
		def, ok := content.Block(t.Block)
		if !ok {
			return 0, fmt.Errorf("tile %d: %w %q", i, ErrUnknownBlock, t.Block)
		}
		if def.BuildCostMultiplier <= 0 || math.IsNaN(def.BuildCostMultiplier) {
			return 0, fmt.Errorf("block %s: %w (got %v)", def.ID, ErrInvalidCostMultiplier, def.BuildCostMultiplier)
		}
		if def.BuildTime < 0 || math.IsNaN(def.BuildTime) {
			return 0, fmt.Errorf("block %s: %w (got %v)", def.ID, ErrInvalidBuildTime, def.BuildTime)
		}
		tier += math.Pow(def.BuildTime/def.BuildCostMultiplier, exp)
	}
	return tier, nil
}
