package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Block kinds recognised by the base part classifier. Any other kind is an
// ordinary structure that only contributes to tier.
const (
	KindCore         = "CORE"
	KindItemSource   = "ITEM_SOURCE"
	KindLiquidSource = "LIQUID_SOURCE"
	KindDrill        = "DRILL"
	KindPump         = "PUMP"
	KindOre          = "ORE"
	KindFloor        = "FLOOR"
)

// Build visibilities.
const (
	VisibilityShown       = "SHOWN"
	VisibilityHidden      = "HIDDEN"
	VisibilitySandboxOnly = "SANDBOX_ONLY"
)

type Catalogs struct {
	Blocks  BlockCatalog
	Items   ItemCatalog
	Liquids LiquidCatalog
}

type BlockCatalog struct {
	// Order keeps blocks.json declaration order; producer scans depend on it.
	Order         []string
	Palette       []string
	Defs          map[string]BlockDef
	PaletteDigest string
	DefsDigest    string
}

type BlockDef struct {
	ID                  string  `json:"id"`
	Kind                string  `json:"kind"`
	ItemDrop            string  `json:"item_drop,omitempty"`
	WallOre             bool    `json:"wall_ore,omitempty"`
	Floor               bool    `json:"floor,omitempty"`
	BuildTime           float64 `json:"build_time"`
	BuildCostMultiplier float64 `json:"build_cost_multiplier"`
	Visibility          string  `json:"visibility,omitempty"`
	Size                int     `json:"size,omitempty"`
}

// UnmarshalJSON fills defaults for omitted fields: multiplier 1, size 1 and
// SHOWN visibility. An explicit zero multiplier is kept as is.
func (d *BlockDef) UnmarshalJSON(b []byte) error {
	type alias BlockDef
	aux := struct {
		*alias
		BuildCostMultiplier *float64 `json:"build_cost_multiplier"`
	}{alias: (*alias)(d)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	d.BuildCostMultiplier = 1
	if aux.BuildCostMultiplier != nil {
		d.BuildCostMultiplier = *aux.BuildCostMultiplier
	}
	d.normalize()
	return nil
}

func (d *BlockDef) normalize() {
	if d.Size <= 0 {
		d.Size = 1
	}
	if d.Visibility == "" {
		d.Visibility = VisibilityShown
	}
}

func (d BlockDef) IsCore() bool         { return d.Kind == KindCore }
func (d BlockDef) IsItemSource() bool   { return d.Kind == KindItemSource }
func (d BlockDef) IsLiquidSource() bool { return d.Kind == KindLiquidSource }
func (d BlockDef) IsOre() bool          { return d.Kind == KindOre }
func (d BlockDef) SandboxOnly() bool    { return d.Visibility == VisibilitySandboxOnly }

// IsExtractor reports drill and pump blocks.
func (d BlockDef) IsExtractor() bool { return d.Kind == KindDrill || d.Kind == KindPump }

// IsFloor reports floor blocks. Ore overlays are floors too.
func (d BlockDef) IsFloor() bool { return d.Floor || d.Kind == KindFloor || d.Kind == KindOre }

// Offset is the world-unit shift from a block's grid cell to its center.
// Even-sized blocks are centered on a cell corner, so it is the same on
// both axes.
func (d BlockDef) Offset(tileSize float64) float64 {
	return float64((d.Size+1)%2) * tileSize / 2
}

type ItemCatalog struct {
	Palette       []string
	Defs          map[string]ItemDef
	PaletteDigest string
	DefsDigest    string
}

type ItemDef struct {
	ID       string  `json:"id"`
	Hardness int     `json:"hardness,omitempty"`
	Cost     float64 `json:"cost,omitempty"`
}

type LiquidCatalog struct {
	Palette []string
	Defs    map[string]LiquidDef
	Digest  string
}

type LiquidDef struct {
	ID          string  `json:"id"`
	Gas         bool    `json:"gas,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadBlocks(filepath.Join(configDir, "blocks.json"), &c.Blocks); err != nil {
		return nil, err
	}
	if err := loadItems(filepath.Join(configDir, "items.json"), &c.Items); err != nil {
		return nil, err
	}
	if err := loadLiquids(filepath.Join(configDir, "liquids.json"), &c.Liquids); err != nil {
		return nil, err
	}
	return &c, nil
}

// New builds catalogs from in-memory definitions, in the given order.
func New(blocks []BlockDef, items []ItemDef, liquids []LiquidDef) (*Catalogs, error) {
	var c Catalogs
	raw, err := json.Marshal(blocks)
	if err != nil {
		return nil, fmt.Errorf("blocks: %w", err)
	}
	if err := setBlocks(blocks, raw, &c.Blocks); err != nil {
		return nil, err
	}
	if raw, err = json.Marshal(items); err != nil {
		return nil, fmt.Errorf("items: %w", err)
	}
	if err := setItems(items, raw, &c.Items); err != nil {
		return nil, err
	}
	if raw, err = json.Marshal(liquids); err != nil {
		return nil, fmt.Errorf("liquids: %w", err)
	}
	if err := setLiquids(liquids, raw, &c.Liquids); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalogs) Block(id string) (BlockDef, bool) {
	d, ok := c.Blocks.Defs[id]
	return d, ok
}

// BlocksInOrder returns block definitions in declaration order.
func (c *Catalogs) BlocksInOrder() []BlockDef {
	out := make([]BlockDef, 0, len(c.Blocks.Order))
	for _, id := range c.Blocks.Order {
		out = append(out, c.Blocks.Defs[id])
	}
	return out
}

// Resolve maps a configured resource id to a known item or liquid.
func (c *Catalogs) Resolve(kind ResourceKind, id string) (Resource, bool) {
	switch kind {
	case ResourceItem:
		if _, ok := c.Items.Defs[id]; ok {
			return Item(id), true
		}
	case ResourceLiquid:
		if _, ok := c.Liquids.Defs[id]; ok {
			return Liquid(id), true
		}
	}
	return Resource{}, false
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadBlocks(path string, out *BlockCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var defs []BlockDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("blocks.json: %w", err)
	}
	if err := setBlocks(defs, raw, out); err != nil {
		return fmt.Errorf("blocks.json: %w", err)
	}
	return nil
}

func setBlocks(defs []BlockDef, raw []byte, out *BlockCatalog) error {
	out.DefsDigest = sha256Hex(raw)
	out.Defs = make(map[string]BlockDef, len(defs))
	out.Order = make([]string, 0, len(defs))
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("empty id")
		}
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("duplicate id %s", d.ID)
		}
		d.normalize()
		out.Defs[d.ID] = d
		out.Order = append(out.Order, d.ID)
	}
	out.Palette, out.PaletteDigest = palette(out.Order)
	return nil
}

func loadItems(path string, out *ItemCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var defs []ItemDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("items.json: %w", err)
	}
	if err := setItems(defs, raw, out); err != nil {
		return fmt.Errorf("items.json: %w", err)
	}
	return nil
}

func setItems(defs []ItemDef, raw []byte, out *ItemCatalog) error {
	out.DefsDigest = sha256Hex(raw)
	out.Defs = make(map[string]ItemDef, len(defs))
	ids := make([]string, 0, len(defs))
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("empty id")
		}
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("duplicate id %s", d.ID)
		}
		out.Defs[d.ID] = d
		ids = append(ids, d.ID)
	}
	out.Palette, out.PaletteDigest = palette(ids)
	return nil
}

func loadLiquids(path string, out *LiquidCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		// Liquids are optional; a catalog without them has no liquid parts.
		if os.IsNotExist(err) {
			return setLiquids(nil, nil, out)
		}
		return err
	}
	var defs []LiquidDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("liquids.json: %w", err)
	}
	if err := setLiquids(defs, raw, out); err != nil {
		return fmt.Errorf("liquids.json: %w", err)
	}
	return nil
}

func setLiquids(defs []LiquidDef, raw []byte, out *LiquidCatalog) error {
	out.Digest = sha256Hex(raw)
	out.Defs = make(map[string]LiquidDef, len(defs))
	ids := make([]string, 0, len(defs))
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("empty id")
		}
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("duplicate id %s", d.ID)
		}
		out.Defs[d.ID] = d
		ids = append(ids, d.ID)
	}
	out.Palette, _ = palette(ids)
	return nil
}

func palette(ids []string) ([]string, string) {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	b, _ := json.Marshal(out)
	return out, sha256Hex(b)
}
