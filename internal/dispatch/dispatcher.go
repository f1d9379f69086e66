// Package dispatch delivers inbound MIDI events to host handlers from a single goroutine.
package dispatch

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/leandrodaf/midimanager/sdk/contracts"
)

const defaultBuffer = 256

type handlers struct {
	noteOn        contracts.NoteHandler
	noteOff       contracts.NoteHandler
	controlChange contracts.ControlChangeHandler
}

// Dispatcher queues events from service threads and hands them to handlers in arrival order.
type Dispatcher struct {
	logger   contracts.Logger
	filter   *contracts.MIDIEventFilter
	queue    chan func()
	handlers atomic.Value // handlers
	mu       sync.Mutex   // serializes handler slot updates
	dropped  atomic.Uint64
}

// New creates a dispatcher. buffer <= 0 selects a default capacity.
func New(logger contracts.Logger, filter *contracts.MIDIEventFilter, buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	d := &Dispatcher{
		logger: logger,
		filter: filter,
		queue:  make(chan func(), buffer),
	}
	d.handlers.Store(handlers{})
	return d
}

func (d *Dispatcher) update(fn func(h *handlers)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h := d.handlers.Load().(handlers)
	fn(&h)
	d.handlers.Store(h)
}

// OnNoteOn installs the note on handler. nil removes it.
func (d *Dispatcher) OnNoteOn(fn contracts.NoteHandler) {
	d.update(func(h *handlers) { h.noteOn = fn })
}

// OnNoteOff installs the note off handler. nil removes it.
func (d *Dispatcher) OnNoteOff(fn contracts.NoteHandler) {
	d.update(func(h *handlers) { h.noteOff = fn })
}

// OnControlChange installs the control change handler. nil removes it.
func (d *Dispatcher) OnControlChange(fn contracts.ControlChangeHandler) {
	d.update(func(h *handlers) { h.controlChange = fn })
}

// Enqueue queues an event without blocking. When the queue is full the event is dropped.
func (d *Dispatcher) Enqueue(ev contracts.Event) bool {
	return d.Submit(func() { d.Dispatch(ev) })
}

// Submit queues arbitrary work onto the consumer goroutine without blocking.
func (d *Dispatcher) Submit(fn func()) bool {
	select {
	case d.queue <- fn:
		return true
	default:
		d.dropped.Add(1)
		d.logger.Warn("Event queue full; dropping MIDI event")
		return false
	}
}

// Dropped returns how many submissions were discarded because the queue was full.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// Run drains the queue until ctx is done. Only one Run may be active at a time.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-d.queue:
			fn()
		}
	}
}

// Dispatch invokes the handler matching the event on the calling goroutine.
// Events without a handler, or rejected by the filter, are dropped silently.
func (d *Dispatcher) Dispatch(ev contracts.Event) {
	if !d.filter.Allows(ev.Command) {
		d.logger.Debug("MIDI command filtered out", d.logger.Field().Uint8("command", uint8(ev.Command)))
		return
	}

	h := d.handlers.Load().(handlers)
	switch ev.Command {
	case contracts.NoteOn:
		if h.noteOn != nil {
			h.noteOn(ev.Data1, ev.Data2, ev.Channel, ev.PortID, ev.Timestamp)
		}
	case contracts.NoteOff:
		if h.noteOff != nil {
			h.noteOff(ev.Data1, ev.Data2, ev.Channel, ev.PortID, ev.Timestamp)
		}
	case contracts.ControlChange:
		if h.controlChange != nil {
			h.controlChange(ev.Data1, ev.Data2, ev.Channel, ev.PortID, ev.Timestamp)
		}
	}
}
