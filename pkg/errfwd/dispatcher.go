package errfwd

import (
	"context"
	"errors"
	"sync"
)

// Dispatcher is an in-process event source. Code that wants its own errors
// evaluated dispatches them here; transports such as httpsource embed one.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners []ErrorListener
}

// NewDispatcher creates a Dispatcher with no listeners.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// AddErrorListener attaches a listener. Nil listeners are ignored.
func (d *Dispatcher) AddErrorListener(listener ErrorListener) {
	if listener == nil {
		return
	}
	d.mu.Lock()
	d.listeners = append(d.listeners, listener)
	d.mu.Unlock()
}

// DispatchError delivers event to every listener in attach order.
// All listeners are called even if some return errors; errors are joined.
func (d *Dispatcher) DispatchError(ctx context.Context, event ErrorEvent) error {
	d.mu.RLock()
	listeners := d.listeners
	d.mu.RUnlock()

	var errs []error
	for _, listener := range listeners {
		if err := listener(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Listeners returns the number of attached listeners.
func (d *Dispatcher) Listeners() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.listeners)
}
