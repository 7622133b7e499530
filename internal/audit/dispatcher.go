package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// Dispatcher forwards auth events to a sink from a dedicated goroutine so
// that register, login, refresh, and logout never block on audit I/O. A nil
// *Dispatcher is valid and inert, which lets the engine skip enablement
// checks at every call site.
//
// Shutdown protocol: Close marks the dispatcher closed and closes the event
// channel; the worker then naturally drains whatever is buffered before
// exiting. Emitters hold a read lock around the send so the channel can
// never be closed mid-send.
type Dispatcher struct {
	sink       Sink
	dropIfFull bool

	mu      sync.RWMutex
	events  chan Event
	closed  bool
	wg      sync.WaitGroup
	dropped atomic.Uint64
}

func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		events:     make(chan Event, cfg.BufferSize),
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for event := range d.events {
			d.sink.Emit(context.Background(), event)
		}
	}()

	return d
}

// Emit enqueues an event. With DropIfFull set, a full buffer increments the
// dropped counter instead of blocking the caller; otherwise Emit blocks until
// the worker catches up or ctx is canceled.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if d.dropIfFull {
		select {
		case d.events <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.events <- event:
	case <-ctx.Done():
	}
}

// Close stops the dispatcher after the worker drains buffered events. Safe to
// call more than once.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.events)
	d.mu.Unlock()

	d.wg.Wait()
}

// Dropped reports how many events were discarded because the buffer was full.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
