// Package shutdown converts interrupt and terminate signals into a
// single cooperative-cancellation flag. The loop and the output stream
// reader poll the flag; nothing is preempted.
package shutdown

import (
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
)

// Controller owns the process signal subscription. On the first signal
// it sets the flag and runs the registered hook exactly once; the hook
// must stay cheap (a best-effort session persist, no locks shared with
// arbitrary loop state).
type Controller struct {
	requested atomic.Bool
	once      sync.Once
	hook      func()
	sigCh     chan os.Signal
	done      chan struct{}
}

// New creates a controller. The hook may be nil.
func New(hook func()) *Controller {
	return &Controller{hook: hook, done: make(chan struct{})}
}

// Start subscribes to SIGINT and SIGTERM. Calling Start twice is a
// no-op after the first.
func (c *Controller) Start() {
	if c.sigCh != nil {
		return
	}
	c.sigCh = make(chan os.Signal, 1)
	signal.Notify(c.sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-c.sigCh:
			c.Trigger()
		case <-c.done:
		}
	}()
}

// Trigger raises the cancellation flag and runs the hook once. Safe to
// call from any goroutine and idempotent, which also makes it usable
// directly in tests without delivering a real signal.
func (c *Controller) Trigger() {
	c.requested.Store(true)
	c.once.Do(func() {
		if c.hook != nil {
			c.hook()
		}
	})
}

// Requested reports whether cancellation has been requested.
func (c *Controller) Requested() bool {
	return c.requested.Load()
}

// Stop unsubscribes from signals and releases the watcher goroutine.
func (c *Controller) Stop() {
	if c.sigCh != nil {
		signal.Stop(c.sigCh)
	}
	select {
	case <-c.done:
	default:
		close(c.done)
	}
}
