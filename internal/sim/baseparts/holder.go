package baseparts

import (
	"sync"
	"sync/atomic"
)

// Holder publishes registries by swapping a pointer. Readers always see a
// completely built registry; reloads are serialized.
type Holder struct {
	cur atomic.Pointer[Registry]

	reloadMu sync.Mutex

	subMu  sync.Mutex
	nextID int
	subs   map[int]chan *Registry
}

func NewHolder(initial *Registry) *Holder {
	h := &Holder{subs: map[int]chan *Registry{}}
	if initial != nil {
		h.cur.Store(initial)
	}
	return h
}

// Current returns the published registry, or nil before the first load.
func (h *Holder) Current() *Registry { return h.cur.Load() }

// Reload runs load and publishes its result. On error the previously
// published registry stays current.
func (h *Holder) Reload(load func() (*Registry, error)) (*Registry, error) {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()

	reg, err := load()
	if err != nil {
		return nil, err
	}
	h.cur.Store(reg)
	h.notify(reg)
	return reg, nil
}

// Subscribe returns a channel receiving every newly published registry and
// a func to stop. Slow subscribers miss updates instead of blocking reloads.
func (h *Holder) Subscribe(buf int) (<-chan *Registry, func()) {
	if buf <= 0 {
		buf = 1
	}
	ch := make(chan *Registry, buf)

	h.subMu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.subMu.Lock()
			delete(h.subs, id)
			h.subMu.Unlock()
			close(ch)
		})
	}
}

// Subscribers reports how many subscriptions are open.
func (h *Holder) Subscribers() int {
	h.subMu.Lock()
	defer h.subMu.Unlock()
	return len(h.subs)
}

func (h *Holder) notify(reg *Registry) {
	h.subMu.Lock()
	defer h.subMu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- reg:
		default:
		}
	}
}
