package schematic

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *Schematic {
	return &Schematic{
		Name:   "drillpart",
		Width:  3,
		Height: 1,
		Tiles: []Tile{
			{X: 0, Y: 0, Block: "mech-drill"},
			{X: 1, Y: 0, Block: "item-source", Config: "copper"},
			{X: 2, Y: 0, Block: "mech-drill"},
		},
	}
}

func TestFilter_DoesNotMutateInput(t *testing.T) {
	s := sample()
	f := s.Filter(func(t Tile) bool { return t.Block != "item-source" })
	assert.Len(t, s.Tiles, 3)
	require.Len(t, f.Tiles, 2)
	assert.Equal(t, 2, f.Tiles[1].X)

	f.Tiles[0].X = 9
	assert.Equal(t, 0, s.Tiles[0].X)
}

func TestDecode_ValidatesSchema(t *testing.T) {
	cases := map[string]string{
		"missing tiles":    `{"width":1,"height":1}`,
		"zero width":       `{"width":0,"height":1,"tiles":[]}`,
		"negative x":       `{"width":1,"height":1,"tiles":[{"x":-1,"y":0,"block":"a"}]}`,
		"empty block":      `{"width":1,"height":1,"tiles":[{"x":0,"y":0,"block":""}]}`,
		"unknown field":    `{"width":1,"height":1,"tiles":[],"rotation":1}`,
		"fractional coord": `{"width":1,"height":1,"tiles":[{"x":0.5,"y":0,"block":"a"}]}`,
		"not json":         `{`,
	}
	for name, body := range cases {
		_, err := Decode([]byte(body))
		assert.Error(t, err, name)
	}

	s, err := Decode([]byte(`{"width":2,"height":2,"tiles":[{"x":1,"y":1,"block":"a","config":"copper"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "copper", s.Tiles[0].Config)
}

func TestDecode_NonStringConfig(t *testing.T) {
	s, err := Decode([]byte(`{"width":3,"height":1,"tiles":[
		{"x":0,"y":0,"block":"item-source","config":null},
		{"x":1,"y":0,"block":"power-node","config":[1,2]},
		{"x":2,"y":0,"block":"sorter","config":7}
	]}`))
	require.NoError(t, err)
	require.Len(t, s.Tiles, 3)
	for _, tl := range s.Tiles {
		assert.Empty(t, tl.Config, tl.Block)
	}
	assert.Nil(t, s.Tiles[0].RawConfig)
	assert.JSONEq(t, `[1,2]`, string(s.Tiles[1].RawConfig))
	assert.JSONEq(t, `7`, string(s.Tiles[2].RawConfig))

	p := filepath.Join(t.TempDir(), "links.json")
	require.NoError(t, WriteFile(p, s))
	got, err := ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestWriteFile_ReadFile_Compressed(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"part.json", "part.json.zst"} {
		p := filepath.Join(dir, name)
		require.NoError(t, WriteFile(p, sample()))
		got, err := ReadFile(p)
		require.NoError(t, err, name)
		assert.Equal(t, sample(), got, name)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "part.json.zst"))
	require.NoError(t, err)
	assert.Equal(t, zstdMagic, raw[:4])
}

func TestSplitNames(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitNames("a\nb\n"))
	assert.Equal(t, []string{"a", "", "b"}, SplitNames("a\n\nb\n\n"))
	assert.Equal(t, []string{"a\r", "b"}, SplitNames("a\r\nb"))
	assert.Empty(t, SplitNames(""))
}

func TestDirSource(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "basepartnames"), []byte("plain\ncompressed\nmissing\n"), 0o644))
	require.NoError(t, WriteFile(filepath.Join(root, "baseparts", "plain.json"), sample()))
	s := sample()
	s.Name = ""
	require.NoError(t, WriteFile(filepath.Join(root, "baseparts", "compressed.json.zst"), s))

	src := NewDirSource(root, "basepartnames", "baseparts")
	names, err := src.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"plain", "compressed", "missing"}, names)

	got, err := src.Read("compressed")
	require.NoError(t, err)
	assert.Equal(t, "compressed", got.Name)

	_, err = src.Read("missing")
	assert.True(t, errors.Is(err, ErrBlueprintRead))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, err = src.Read("")
	assert.True(t, errors.Is(err, ErrEmptyName))

	_, err = src.Read("../basepartnames")
	assert.True(t, errors.Is(err, ErrBlueprintRead))

	_, err = NewDirSource(t.TempDir(), "basepartnames", "baseparts").Names()
	assert.True(t, errors.Is(err, ErrBlueprintRead))
}

func TestDirSource_CorruptBlueprint(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "baseparts"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "baseparts", "bad.json"), []byte(`{"width":"wide"}`), 0o644))
	_, err := NewDirSource(root, "basepartnames", "baseparts").Read("bad")
	assert.True(t, errors.Is(err, ErrBlueprintRead))
}

func TestMemSource(t *testing.T) {
	m := NewMemSource().Add("a", sample()).Add("ghost", nil)
	names, _ := m.Names()
	assert.Equal(t, []string{"a", "ghost"}, names)

	got, err := m.Read("a")
	require.NoError(t, err)
	got.Tiles = nil
	again, _ := m.Read("a")
	assert.Len(t, again.Tiles, 3)

	_, err = m.Read("ghost")
	assert.True(t, errors.Is(err, ErrBlueprintRead))
}
