package baseparts

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"baseparts.ai/internal/sim/catalogs"
)

func TestHolder_ReloadPublishesAndKeepsPreviousOnError(t *testing.T) {
	h := NewHolder(nil)
	assert.Nil(t, h.Current())

	l := &Loader{Source: scenarioSource(), Content: testContent(t)}
	first, err := h.Reload(l.Load)
	require.NoError(t, err)
	assert.Same(t, first, h.Current())

	boom := errors.New("boom")
	_, err = h.Reload(func() (*Registry, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.Same(t, first, h.Current())
}

func TestHolder_SubscribersSeeNewRegistry(t *testing.T) {
	h := NewHolder(empty())
	ch, stop := h.Subscribe(1)
	defer stop()

	l := &Loader{Source: scenarioSource(), Content: testContent(t)}
	reg, err := h.Reload(l.Load)
	require.NoError(t, err)

	got := <-ch
	assert.Same(t, reg, got)

	// a full subscriber does not block reloads
	_, err = h.Reload(l.Load)
	require.NoError(t, err)
	_, err = h.Reload(l.Load)
	require.NoError(t, err)

	assert.Equal(t, 1, h.Subscribers())
	stop()
	stop()
	assert.Equal(t, 0, h.Subscribers())
}

func TestHolder_ConcurrentReaders(t *testing.T) {
	l := &Loader{Source: scenarioSource(), Content: testContent(t)}
	initial, err := l.Load()
	require.NoError(t, err)
	h := NewHolder(initial)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				reg := h.Current()
				if len(reg.ForResource(catalogs.Item("copper"))) != 2 {
					t.Errorf("reader saw a partial registry")
					return
				}
			}
		}()
	}
	for i := 0; i < 5; i++ {
		_, err := h.Reload(l.Load)
		require.NoError(t, err)
	}
	wg.Wait()
}
