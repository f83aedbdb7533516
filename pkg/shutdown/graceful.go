package shutdown

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

func WithSignals(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
}

// Closers releases process-lifetime resources (pools, clients, servers) in
// reverse registration order.
type Closers struct {
	mu  sync.Mutex
	fns []func(context.Context) error
}

func (c *Closers) Add(fn func(context.Context) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fns = append(c.fns, fn)
}

// AddFunc registers a closer that cannot fail.
func (c *Closers) AddFunc(fn func()) {
	c.Add(func(context.Context) error {
		fn()
		return nil
	})
}

// Close runs every closer once, even if earlier ones fail.
func (c *Closers) Close(ctx context.Context) error {
	c.mu.Lock()
	fns := c.fns
	c.fns = nil
	c.mu.Unlock()

	var errs []error
	for i := len(fns) - 1; i >= 0; i-- {
		if err := fns[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
