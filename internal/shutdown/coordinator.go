// Package shutdown coordinates process-wide cleanup on termination signals.
//
// Components that own external resources register a named hook with the
// coordinator instead of installing their own signal handlers. On SIGINT,
// SIGHUP or SIGTERM the coordinator runs every registered hook exactly
// once, in reverse registration order, and then re-raises the signal so
// the default disposition proceeds.
package shutdown

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/solargraph-ai/solarbridge/internal/logging"
)

// Hook is a cleanup function run during shutdown. Hooks must be safe to
// call at an arbitrary point between other operations.
type Hook func()

type entry struct {
	id   uint64
	name string
	fn   Hook
}

// Coordinator owns signal handling for the process.
type Coordinator struct {
	mu      sync.Mutex
	entries []entry
	nextID  uint64

	once    sync.Once
	sigCh   chan os.Signal
	done    chan struct{}
	started bool
}

// New creates a coordinator. Signals are not intercepted until Start.
func New() *Coordinator {
	return &Coordinator{
		sigCh: make(chan os.Signal, 1),
		done:  make(chan struct{}),
	}
}

// Register adds a named hook and returns its deregistration function.
// Deregistering an already-run or already-removed hook is a no-op.
func (c *Coordinator) Register(name string, fn Hook) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	c.entries = append(c.entries, entry{id: id, name: name, fn: fn})

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, e := range c.entries {
			if e.id == id {
				c.entries = append(c.entries[:i], c.entries[i+1:]...)
				break
			}
		}
	}
}

// Start begins listening for interrupt, hang-up and termination signals.
func (c *Coordinator) Start() {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	signal.Notify(c.sigCh, syscall.SIGINT, syscall.SIGHUP, syscall.SIGTERM)

	go func() {
		sig, ok := <-c.sigCh
		if !ok {
			return
		}

		logging.Info().Str("signal", sig.String()).Msg("shutdown signal received")
		c.Trigger()

		// Restore the default disposition and let it proceed.
		signal.Stop(c.sigCh)
		if s, ok := sig.(syscall.Signal); ok {
			signal.Reset(sig)
			_ = syscall.Kill(os.Getpid(), s)
		}
	}()
}

// Trigger runs all registered hooks exactly once, most recent first.
// It is safe to call from normal control flow as well as from the
// signal path; subsequent calls return immediately.
func (c *Coordinator) Trigger() {
	c.once.Do(func() {
		c.mu.Lock()
		entries := make([]entry, len(c.entries))
		copy(entries, c.entries)
		c.entries = nil
		c.mu.Unlock()

		for i := len(entries) - 1; i >= 0; i-- {
			logging.Debug().Str("hook", entries[i].name).Msg("running shutdown hook")
			entries[i].fn()
		}

		close(c.done)
	})
}

// Done returns a channel closed after all hooks have run.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Stop detaches the coordinator from signal delivery without running hooks.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		signal.Stop(c.sigCh)
		c.started = false
	}
}
