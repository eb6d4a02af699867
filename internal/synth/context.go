package synth

import (
	"errors"
	"math"
	"sort"
	"sync"
)

var (
	// ErrDisposed is returned when a voice or effect is disposed twice.
	ErrDisposed = errors.New("synth: already disposed")
	// ErrClosed is returned when allocating from a closed context.
	ErrClosed = errors.New("synth: context closed")
	// ErrExhausted is returned when a context is at its resource limit.
	ErrExhausted = errors.New("synth: resource limit reached")
)

// Kind classifies allocated audio resources.
type Kind int

const (
	KindVoice Kind = iota
	KindEffect
)

// Context owns the audio graph resources of a process. Every voice and effect
// is registered on creation and released on Dispose, so leaks are countable.
type Context struct {
	SampleRate int

	mu     sync.Mutex
	nextID int
	live   map[int]*resource
	limit  int
	closed bool
}

// NewContext creates an audio context at the given sample rate.
func NewContext(sampleRate int) *Context {
	return &Context{SampleRate: sampleRate, live: make(map[int]*resource)}
}

type resource struct {
	ctx  *Context
	id   int
	name string
	kind Kind
}

func (c *Context) allocate(name string, kind Kind) (*resource, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if c.limit > 0 && len(c.live) >= c.limit {
		return nil, ErrExhausted
	}
	c.nextID++
	r := &resource{ctx: c, id: c.nextID, name: name, kind: kind}
	c.live[r.id] = r
	return r, nil
}

func (r *resource) release() error {
	c := r.ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.live[r.id]; !ok {
		return ErrDisposed
	}
	delete(c.live, r.id)
	return nil
}

// Live returns the number of allocated resources of the given kind.
func (c *Context) Live(kind Kind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, r := range c.live {
		if r.kind == kind {
			n++
		}
	}
	return n
}

// LiveNames lists allocated resources, sorted, for diagnostics.
func (c *Context) LiveNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.live))
	for _, r := range c.live {
		names = append(names, r.name)
	}
	sort.Strings(names)
	return names
}

// SetLimit caps the number of live resources. Zero or less removes the cap.
func (c *Context) SetLimit(n int) {
	c.mu.Lock()
	c.limit = n
	c.mu.Unlock()
}

// Close refuses further allocations. Already allocated resources stay live
// until disposed.
func (c *Context) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// DBToGain converts decibels to a linear amplitude factor.
func DBToGain(db float64) float64 {
	return math.Pow(10, db/20)
}

// Master is the process-wide output gain stage.
type Master struct {
	mu   sync.RWMutex
	db   float64
	gain float64
}

// NewMaster creates a master stage at the given level in dB.
func NewMaster(db float64) *Master {
	m := &Master{}
	m.SetVolume(db)
	return m
}

// SetVolume sets the master level in dB. It applies from the next sample.
func (m *Master) SetVolume(db float64) {
	m.mu.Lock()
	m.db = db
	m.gain = DBToGain(db)
	m.mu.Unlock()
}

// Volume returns the master level in dB.
func (m *Master) Volume() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.db
}

// Gain returns the master level as a linear factor.
func (m *Master) Gain() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gain
}
