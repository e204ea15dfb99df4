package baseparts

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"baseparts.ai/internal/sim/catalogs"
	"baseparts.ai/internal/sim/schematic"
)

func TestClassify_SingleSourceSetsRequired(t *testing.T) {
	c := testContent(t)
	cases := []struct {
		tile string
		cfg  string
		want catalogs.Resource
	}{
		{tile: "item-source", cfg: "copper", want: catalogs.Item("copper")},
		{tile: "item-source", cfg: "lead", want: catalogs.Item("lead")},
		{tile: "liquid-source", cfg: "water", want: catalogs.Liquid("water")},
	}
	for _, tc := range cases {
		p, err := Classify("feed", schem(3, 3, tile(0, 0, "wall"), configured(1, 1, tc.tile, tc.cfg)), c, Options{})
		require.NoError(t, err)
		assert.Equal(t, tc.want, p.Required)
		assert.Equal(t, []catalogs.Resource{tc.want}, p.Sources)
		assert.False(t, p.SourceConflict())
		assert.Equal(t, ClassRequired, p.Class())
	}
}

func TestClassify_UnconfiguredSourceIsIgnored(t *testing.T) {
	p, err := Classify("x", schem(2, 2, tile(0, 0, "item-source"), tile(1, 0, "liquid-source")), testContent(t), Options{})
	require.NoError(t, err)
	assert.True(t, p.Required.IsZero())
	assert.Equal(t, ClassIndependent, p.Class())
}

func TestClassify_LastSourceWins(t *testing.T) {
	c := testContent(t)

	p, err := Classify("mixed", schem(3, 1,
		configured(0, 0, "item-source", "copper"),
		configured(1, 0, "liquid-source", "water"),
	), c, Options{})
	require.NoError(t, err)
	assert.Equal(t, catalogs.Liquid("water"), p.Required)
	assert.True(t, p.SourceConflict(), "item and liquid source in one blueprint should be flagged")

	p, err = Classify("mixed", schem(3, 1,
		configured(0, 0, "liquid-source", "water"),
		configured(1, 0, "item-source", "copper"),
		configured(2, 0, "item-source", "copper"),
	), c, Options{})
	require.NoError(t, err)
	assert.Equal(t, catalogs.Item("copper"), p.Required)
	assert.Equal(t, []catalogs.Resource{catalogs.Liquid("water"), catalogs.Item("copper")}, p.Sources)

	p, err = Classify("same", schem(2, 1,
		configured(0, 0, "item-source", "lead"),
		configured(1, 0, "item-source", "lead"),
	), c, Options{})
	require.NoError(t, err)
	assert.False(t, p.SourceConflict())
}

func TestClassify_CoreTakesPrecedence(t *testing.T) {
	p, err := Classify("corefeed", schem(4, 4,
		tile(0, 0, "core-shard"),
		configured(3, 3, "item-source", "copper"),
	), testContent(t), Options{})
	require.NoError(t, err)
	assert.Equal(t, "core-shard", p.Core)
	assert.Equal(t, catalogs.Item("copper"), p.Required)
	assert.Equal(t, ClassCore, p.Class())
}

func TestClassify_TierScenario(t *testing.T) {
	p, err := Classify("corebase", schem(5, 5,
		tile(2, 2, "core-shard"),
		tile(0, 0, "wall"),
		tile(4, 4, "wall"),
	), testContent(t), Options{})
	require.NoError(t, err)
	assert.InDelta(t, 2*math.Pow(10, 1.4), p.Tier, 1e-9)
	assert.InDelta(t, 50.237, p.Tier, 1e-3)
}

func TestClassify_SandboxTilesExcludedFromTier(t *testing.T) {
	s := schem(3, 1,
		tile(0, 0, "wall"),
		tile(1, 0, "power-source"),
		tile(2, 0, "wall"),
	)
	p, err := Classify("sandboxy", s, testContent(t), Options{})
	require.NoError(t, err)
	assert.InDelta(t, 2*math.Pow(10, 1.4), p.Tier, 1e-9)
	assert.Len(t, p.Schematic.Tiles, 2)
	assert.Len(t, s.Tiles, 3, "input schematic must not be modified")
}

func TestClassify_RemovingTileLowersTier(t *testing.T) {
	c := testContent(t)
	full := schem(4, 1, tile(0, 0, "wall"), tile(1, 0, "conveyor"), tile(2, 0, "mech-drill"), tile(3, 0, "pump"))
	base, err := Classify("full", full, c, Options{})
	require.NoError(t, err)

	for i := range full.Tiles {
		n := 0
		smaller := full.Filter(func(schematic.Tile) bool { n++; return n-1 != i })
		p, err := Classify("smaller", smaller, c, Options{})
		require.NoError(t, err)
		assert.Less(t, p.Tier, base.Tier, "removing tile %d", i)
	}
}

func TestClassify_ExtractorCentroid(t *testing.T) {
	c := testContent(t)

	p, err := Classify("drillpart", schem(3, 1, tile(0, 0, "mech-drill"), tile(2, 0, "mech-drill")), c, Options{TileSize: 1})
	require.NoError(t, err)
	assert.True(t, p.Required.IsZero())
	assert.Equal(t, 1, p.CenterX)
	assert.Equal(t, 0, p.CenterY)

	// pumps count as extractors too, and the average truncates
	p, err = Classify("pumps", schem(6, 6, tile(0, 0, "pump"), tile(1, 3, "pump"), tile(5, 0, "wall")), c, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, p.CenterX)
	assert.Equal(t, 1, p.CenterY)
}

func TestClassify_CentroidUsesBlockOffset(t *testing.T) {
	big := block("big-drill", catalogs.KindDrill, 20)
	big.Size = 2
	c := testContent(t, big)

	// (1*8+4 + 4*8+4) / 2 / 8 = 3, (8+4)/8 = 1.5 -> 1
	p, err := Classify("big", schem(6, 3, tile(1, 1, "big-drill"), tile(4, 1, "big-drill")), c, Options{TileSize: 8})
	require.NoError(t, err)
	assert.Equal(t, 3, p.CenterX)
	assert.Equal(t, 1, p.CenterY)
}

func TestClassify_CenterFallback(t *testing.T) {
	cases := []struct{ w, h, x, y int }{
		{5, 5, 2, 2},
		{4, 7, 2, 3},
		{1, 1, 0, 0},
	}
	for _, tc := range cases {
		p, err := Classify("plain", schem(tc.w, tc.h, tile(0, 0, "wall")), testContent(t), Options{})
		require.NoError(t, err)
		assert.Equal(t, tc.x, p.CenterX)
		assert.Equal(t, tc.y, p.CenterY)
	}
}

func TestClassify_CentroidCountsSandboxExtractors(t *testing.T) {
	ghost := sandbox(block("sandbox-drill", catalogs.KindDrill, 0))
	p, err := Classify("ghost", schem(9, 1, tile(0, 0, "mech-drill"), tile(8, 0, "sandbox-drill")), testContent(t, ghost), Options{TileSize: 1})
	require.NoError(t, err)
	assert.Equal(t, 4, p.CenterX)
	assert.Len(t, p.Schematic.Tiles, 1)
}

func TestClassify_Errors(t *testing.T) {
	zero := block("broken", "WALL", 5)
	zero.BuildCostMultiplier = 0
	neg := block("negative", "WALL", 5)
	neg.BuildCostMultiplier = -2
	slow := block("timewarp", "WALL", -1)
	hiddenZero := sandbox(block("sandbox-broken", "WALL", 5))
	hiddenZero.BuildCostMultiplier = 0
	c := testContent(t, zero, neg, slow, hiddenZero)

	cases := []struct {
		name string
		tile []string
		cfg  string
		want error
	}{
		{name: "zero multiplier", tile: []string{"broken"}, want: ErrInvalidCostMultiplier},
		{name: "negative multiplier", tile: []string{"negative"}, want: ErrInvalidCostMultiplier},
		{name: "negative build time", tile: []string{"timewarp"}, want: ErrInvalidBuildTime},
		{name: "unknown block", tile: []string{"nope"}, want: ErrUnknownBlock},
		{name: "unknown item", tile: []string{"item-source"}, cfg: "unobtainium", want: ErrUnknownResource},
		{name: "unknown liquid", tile: []string{"liquid-source"}, cfg: "copper", want: ErrUnknownResource},
	}
	for _, tc := range cases {
		s := schem(2, 2)
		for _, id := range tc.tile {
			s.Tiles = append(s.Tiles, configured(0, 0, id, tc.cfg))
		}
		_, err := Classify(tc.name, s, c, Options{})
		require.Error(t, err, tc.name)
		assert.True(t, errors.Is(err, tc.want), "%s: %v", tc.name, err)
	}

	// sandbox-only blocks never reach tier computation
	p, err := Classify("ok", schem(1, 1, tile(0, 0, "sandbox-broken"), tile(0, 0, "wall")), c, Options{})
	require.NoError(t, err)
	assert.InDelta(t, math.Pow(10, 1.4), p.Tier, 1e-9)
}
