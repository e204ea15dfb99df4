package journal

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"baseparts.ai/internal/sim/baseparts"
	"baseparts.ai/internal/sim/catalogs"
	"baseparts.ai/internal/sim/schematic"
)

func TestJSONLZstdWriter_AppendsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	day := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	w := NewJSONLZstdWriter(dir, "reloads")
	w.now = func() time.Time { return day }
	require.NoError(t, w.Write(Entry{OK: true, Digest: "a"}))
	require.NoError(t, w.Write(Entry{OK: false, Error: "boom"}))
	require.NoError(t, w.Close())

	// a second writer appends to the same daily file
	w2 := NewJSONLZstdWriter(dir, "reloads")
	w2.now = func() time.Time { return day.Add(time.Hour) }
	require.NoError(t, w2.Write(Entry{OK: true, Digest: "b"}))

	// entries written before Close are readable
	got, err := ReadEntries(w.Path(day))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].Digest)
	assert.Equal(t, "boom", got[1].Error)
	assert.Equal(t, "b", got[2].Digest)

	w2.now = func() time.Time { return day.Add(24 * time.Hour) }
	require.NoError(t, w2.Write(Entry{OK: true, Digest: "c"}))
	require.NoError(t, w2.Close())

	next, err := ReadEntries(filepath.Join(dir, "reloads-2026-03-02.jsonl.zst"))
	require.NoError(t, err)
	require.Len(t, next, 1)
	assert.Equal(t, "c", next[0].Digest)
}

func TestReloadJournal_Wrap(t *testing.T) {
	dir := t.TempDir()
	j := NewReloadJournal(dir)
	defer j.Close()

	cats, err := catalogs.New([]catalogs.BlockDef{{ID: "wall", Kind: "WALL", BuildTime: 4, BuildCostMultiplier: 1, Size: 1}}, nil, nil)
	require.NoError(t, err)
	src := schematic.NewMemSource().Add("w", &schematic.Schematic{Width: 1, Height: 1, Tiles: []schematic.Tile{{Block: "wall"}}})
	l := &baseparts.Loader{Source: src, Content: cats}

	load := j.Wrap(l.Load, func(err error) { t.Errorf("journal write: %v", err) })
	reg, err := load()
	require.NoError(t, err)

	boom := errors.New("boom")
	failing := j.Wrap(func() (*baseparts.Registry, error) { return nil, boom }, nil)
	_, err = failing()
	assert.ErrorIs(t, err, boom)

	got, err := ReadEntries(j.Path(time.Now()))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].OK)
	assert.Equal(t, reg.Digest, got[0].Digest)
	require.NotNil(t, got[0].Stats)
	assert.Equal(t, 1, got[0].Stats.Independent)
	assert.False(t, got[1].OK)
	assert.Equal(t, "boom", got[1].Error)
	assert.Nil(t, got[1].Stats)
}
