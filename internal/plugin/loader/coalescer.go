package loader

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"
)

// State is the coalescer's position in its Idle/Collecting/Draining cycle.
type State int

const (
	// StateIdle has no pending ids and no pass running.
	StateIdle State = iota
	// StateCollecting has pending ids and an armed timer.
	StateCollecting
	// StateDraining is running a rebuild pass.
	StateDraining
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCollecting:
		return "collecting"
	case StateDraining:
		return "draining"
	default:
		return "unknown"
	}
}

// RebuildFunc rebuilds one plugin. Failures are the callee's to record.
type RebuildFunc func(ctx context.Context, id string)

var (
	coalescedPassesOnce sync.Once
	coalescedPasses     prometheus.Counter
)

func passCounter() prometheus.Counter {
	coalescedPassesOnce.Do(func() {
		coalescedPasses = promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "devserver",
			Name:      "coalesced_passes_total",
			Help:      "Rebuild passes started by the change coalescer",
		})
	})
	return coalescedPasses
}

// Coalescer turns bursts of change notifications into rebuild passes. Each
// Add re-arms a trailing-edge timer; when it fires the pending ids are taken
// as one batch and rebuilt. Only one pass runs at a time: ids added while a
// pass drains wait for the next one, which is armed when the pass ends.
type Coalescer struct {
	window   time.Duration
	rebuild  RebuildFunc
	parallel int
	logger   *slog.Logger
	passes   prometheus.Counter

	mu       sync.Mutex
	pending  map[string]struct{}
	draining bool
	timer    *time.Timer
	gen      uint64 // invalidates timers that fired after being re-armed
	stopped  bool
	wg       sync.WaitGroup
}

// NewCoalescer creates a coalescer that calls rebuild per pending id once
// window has passed without further Adds.
func NewCoalescer(window time.Duration, rebuild RebuildFunc, parallel int, logger *slog.Logger) *Coalescer {
	if parallel <= 0 {
		parallel = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coalescer{
		window:   window,
		rebuild:  rebuild,
		parallel: parallel,
		logger:   logger,
		passes:   passCounter(),
		pending:  make(map[string]struct{}),
	}
}

// Add marks id as changed and restarts the window.
func (c *Coalescer) Add(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}
	c.pending[id] = struct{}{}
	c.arm()
}

// arm (re)starts the timer. Caller holds c.mu.
func (c *Coalescer) arm() {
	if c.timer != nil {
		c.timer.Stop()
	}
	c.gen++
	gen := c.gen
	c.timer = time.AfterFunc(c.window, func() { c.fire(gen) })
}

func (c *Coalescer) fire(gen uint64) {
	c.mu.Lock()
	if c.stopped || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	if c.draining || len(c.pending) == 0 {
		// A running pass re-arms for whatever is left when it ends.
		c.mu.Unlock()
		return
	}

	batch := make([]string, 0, len(c.pending))
	for id := range c.pending {
		batch = append(batch, id)
	}
	sort.Strings(batch)
	c.pending = make(map[string]struct{})
	c.draining = true
	c.wg.Add(1)
	c.mu.Unlock()

	c.drain(batch)
}

func (c *Coalescer) drain(batch []string) {
	defer c.wg.Done()

	c.passes.Inc()
	c.logger.Debug("rebuild pass", "plugins", batch)

	var g errgroup.Group
	g.SetLimit(c.parallel)
	for _, id := range batch {
		g.Go(func() error {
			c.rebuild(context.Background(), id)
			return nil
		})
	}
	g.Wait()

	c.mu.Lock()
	c.draining = false
	if len(c.pending) > 0 && c.timer == nil && !c.stopped {
		c.arm()
	}
	c.mu.Unlock()
}

// State returns the current state.
func (c *Coalescer) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.draining:
		return StateDraining
	case c.timer != nil:
		return StateCollecting
	default:
		return StateIdle
	}
}

// Pending returns the ids waiting for the next pass, sorted.
func (c *Coalescer) Pending() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, 0, len(c.pending))
	for id := range c.pending {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Stop discards pending ids, disarms the timer and waits for a running pass.
func (c *Coalescer) Stop() {
	c.mu.Lock()
	c.stopped = true
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.pending = make(map[string]struct{})
	c.mu.Unlock()

	c.wg.Wait()
}
