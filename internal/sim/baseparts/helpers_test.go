package baseparts

import (
	"testing"

	"github.com/stretchr/testify/require"

	"baseparts.ai/internal/sim/catalogs"
	"baseparts.ai/internal/sim/schematic"
)

func block(id, kind string, buildTime float64) catalogs.BlockDef {
	return catalogs.BlockDef{ID: id, Kind: kind, BuildTime: buildTime, BuildCostMultiplier: 1, Size: 1}
}

func sandbox(d catalogs.BlockDef) catalogs.BlockDef {
	d.Visibility = catalogs.VisibilitySandboxOnly
	return d
}

func testContent(t *testing.T, extra ...catalogs.BlockDef) *catalogs.Catalogs {
	t.Helper()
	blocks := []catalogs.BlockDef{
		block("core-shard", catalogs.KindCore, 0),
		block("wall", "WALL", 10),
		block("conveyor", "CONVEYOR", 1),
		block("mech-drill", catalogs.KindDrill, 10),
		block("pump", catalogs.KindPump, 5),
		sandbox(block("item-source", catalogs.KindItemSource, 100)),
		sandbox(block("liquid-source", catalogs.KindLiquidSource, 100)),
		sandbox(block("power-source", "POWER", 100)),
	}
	blocks = append(blocks, extra...)
	c, err := catalogs.New(blocks,
		[]catalogs.ItemDef{{ID: "copper"}, {ID: "lead"}, {ID: "sand"}, {ID: "beryllium"}},
		[]catalogs.LiquidDef{{ID: "water"}},
	)
	require.NoError(t, err)
	return c
}

func schem(w, h int, tiles ...schematic.Tile) *schematic.Schematic {
	return &schematic.Schematic{Width: w, Height: h, Tiles: tiles}
}

func tile(x, y int, blockID string) schematic.Tile {
	return schematic.Tile{X: x, Y: y, Block: blockID}
}

func configured(x, y int, blockID, cfg string) schematic.Tile {
	return schematic.Tile{X: x, Y: y, Block: blockID, Config: cfg}
}
