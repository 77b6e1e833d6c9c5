// Package metrics provides the small set of instruments the chain core
// reports through: monotonic counters, point-in-time gauges, and simple
// duration accumulators, collected in a named registry.
package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Counter is a monotonically increasing count.
type Counter struct {
	v atomic.Int64
}

func (c *Counter) Inc()          { c.v.Add(1) }
func (c *Counter) Add(n int64)   { c.v.Add(n) }
func (c *Counter) Value() int64  { return c.v.Load() }

// Gauge is an instantaneous value.
type Gauge struct {
	v atomic.Int64
}

func (g *Gauge) Set(n int64)    { g.v.Store(n) }
func (g *Gauge) Value() int64   { return g.v.Load() }

// Timer accumulates durations and counts observations.
type Timer struct {
	mu    sync.Mutex
	count int64
	total time.Duration
	max   time.Duration
}

// Observe records one duration.
func (t *Timer) Observe(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count++
	t.total += d
	if d > t.max {
		t.max = d
	}
}

// Time runs fn and records how long it took.
func (t *Timer) Time(fn func()) {
	start := time.Now()
	fn()
	t.Observe(time.Since(start))
}

// Snapshot returns count, mean and max.
func (t *Timer) Snapshot() (count int64, mean, max time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.count > 0 {
		mean = t.total / time.Duration(t.count)
	}
	return t.count, mean, t.max
}

// Registry holds named instruments. Lookups create on first use.
type Registry struct {
	mu       sync.Mutex
	counters map[string]*Counter
	gauges   map[string]*Gauge
	timers   map[string]*Timer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		counters: make(map[string]*Counter),
		gauges:   make(map[string]*Gauge),
		timers:   make(map[string]*Timer),
	}
}

// Counter returns the named counter, creating it if needed.
func (r *Registry) Counter(name string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.counters[name]
	if !ok {
		c = new(Counter)
		r.counters[name] = c
	}
	return c
}

// Gauge returns the named gauge, creating it if needed.
func (r *Registry) Gauge(name string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.gauges[name]
	if !ok {
		g = new(Gauge)
		r.gauges[name] = g
	}
	return g
}

// Timer returns the named timer, creating it if needed.
func (r *Registry) Timer(name string) *Timer {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.timers[name]
	if !ok {
		t = new(Timer)
		r.timers[name] = t
	}
	return t
}

// Each calls fn for every counter and gauge value, in name order.
func (r *Registry) Each(fn func(name string, value int64)) {
	r.mu.Lock()
	names := make([]string, 0, len(r.counters)+len(r.gauges))
	vals := make(map[string]int64)
	for n, c := range r.counters {
		names = append(names, n)
		vals[n] = c.Value()
	}
	for n, g := range r.gauges {
		names = append(names, n)
		vals[n] = g.Value()
	}
	r.mu.Unlock()

	sort.Strings(names)
	for _, n := range names {
		fn(n, vals[n])
	}
}

// Default is the process-wide registry.
var Default = NewRegistry()
