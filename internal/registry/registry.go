// Package registry tracks the MIDI endpoints the service reports and their connection state.
//
// All list mutations happen under one mutex. Observers never see the live lists: they read
// copies through State or receive them on a Subscribe channel.
package registry

import (
	"fmt"
	"sync"

	"github.com/leandrodaf/midimanager/sdk/contracts"
)

// Opener opens and closes endpoints on the MIDI service.
type Opener interface {
	OpenEndpoint(dir contracts.Direction, id int32) error
	CloseEndpoint(dir contracts.Direction, id int32) error
}

// Preferences is the persisted auto-connect flag store.
type Preferences interface {
	Get(id int32, dir contracts.Direction) (value bool, ok bool, err error)
	Set(id int32, dir contracts.Direction, on bool) error
}

// Registry owns the input and output endpoint lists.
type Registry struct {
	logger             contracts.Logger
	opener             Opener
	prefs              Preferences
	defaultAutoConnect bool

	mu            sync.Mutex
	inputs        []contracts.Endpoint
	outputs       []contracts.Endpoint
	outputChannel uint8

	subsMu  sync.Mutex
	subs    map[int]chan contracts.State
	nextSub int
}

// New creates an empty registry. defaultAutoConnect applies to endpoints with no stored preference.
func New(logger contracts.Logger, opener Opener, prefs Preferences, defaultAutoConnect bool) *Registry {
	return &Registry{
		logger:             logger,
		opener:             opener,
		prefs:              prefs,
		defaultAutoConnect: defaultAutoConnect,
		subs:               make(map[int]chan contracts.State),
	}
}

// Reconcile brings the lists in line with what the service currently reports.
// New endpoints are appended in discovery order and auto-connected when their preference
// (or the default) says so. Endpoints no longer reported are dropped whatever their state.
func (r *Registry) Reconcile(inputs, outputs []contracts.EndpointInfo) {
	r.mu.Lock()
	changed := r.reconcileLocked(contracts.Input, inputs)
	changed = r.reconcileLocked(contracts.Output, outputs) || changed
	if changed {
		r.publishLocked()
	}
	r.mu.Unlock()
}

func (r *Registry) reconcileLocked(dir contracts.Direction, discovered []contracts.EndpointInfo) bool {
	list := r.listLocked(dir)
	seen := make(map[int32]struct{}, len(discovered))
	changed := false

	for _, info := range discovered {
		if _, dup := seen[info.ID]; dup {
			continue
		}
		seen[info.ID] = struct{}{}

		if idx := indexOf(*list, info.ID); idx >= 0 {
			if (*list)[idx].Name != info.Name {
				(*list)[idx].Name = info.Name
				changed = true
			}
			continue
		}

		*list = append(*list, contracts.Endpoint{ID: info.ID, Name: info.Name, Direction: dir})
		changed = true
		r.logger.Info("Endpoint discovered",
			r.logger.Field().String("direction", dir.String()),
			r.logger.Field().Int32("id", info.ID),
			r.logger.Field().String("name", info.Name))

		if r.shouldAutoConnect(dir, info.ID) {
			_ = r.connectLocked(dir, info.ID)
		}
	}

	kept := (*list)[:0]
	for _, ep := range *list {
		if _, ok := seen[ep.ID]; ok {
			kept = append(kept, ep)
			continue
		}
		changed = true
		if ep.Connected {
			if err := r.opener.CloseEndpoint(dir, ep.ID); err != nil {
				r.logger.Debug("Release of vanished endpoint failed",
					r.logger.Field().Int32("id", ep.ID),
					r.logger.Field().Error("error", err))
			}
		}
		r.logger.Info("Endpoint removed",
			r.logger.Field().String("direction", dir.String()),
			r.logger.Field().Int32("id", ep.ID),
			r.logger.Field().String("name", ep.Name))
	}
	*list = kept
	return changed
}

func (r *Registry) shouldAutoConnect(dir contracts.Direction, id int32) bool {
	on, ok, err := r.prefs.Get(id, dir)
	if err != nil {
		r.logger.Warn("Preference lookup failed; using default",
			r.logger.Field().Int32("id", id),
			r.logger.Field().Error("error", err))
		return r.defaultAutoConnect
	}
	if !ok {
		return r.defaultAutoConnect
	}
	return on
}

// Connect opens a tracked endpoint. Connecting an open endpoint does not open it again.
func (r *Registry) Connect(dir contracts.Direction, id int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.connectLocked(dir, id)
	if err == nil {
		r.publishLocked()
	}
	return err
}

// Disconnect closes a tracked endpoint and remembers not to auto-connect it.
func (r *Registry) Disconnect(dir contracts.Direction, id int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.disconnectLocked(dir, id)
	if err == nil {
		r.publishLocked()
	}
	return err
}

// Toggle connects a disconnected endpoint and disconnects a connected one.
func (r *Registry) Toggle(dir contracts.Direction, id int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	if idx := indexOf(*r.listLocked(dir), id); idx < 0 {
		err = notFound(dir, id)
	} else if (*r.listLocked(dir))[idx].Connected {
		err = r.disconnectLocked(dir, id)
	} else {
		err = r.connectLocked(dir, id)
	}
	if err == nil {
		r.publishLocked()
	}
	return err
}

// Service failures do not stop the flag from flipping; they are only logged.
func (r *Registry) connectLocked(dir contracts.Direction, id int32) error {
	list := *r.listLocked(dir)
	idx := indexOf(list, id)
	if idx < 0 {
		return notFound(dir, id)
	}

	ep := &list[idx]
	if !ep.Connected {
		if err := r.opener.OpenEndpoint(dir, id); err != nil {
			r.logger.Warn("MIDI service failed to open endpoint",
				r.logger.Field().Int32("id", id),
				r.logger.Field().Error("error", err))
		}
		ep.Connected = true
		r.logger.Info(fmt.Sprintf("connected %s port: %s", lower(dir), ep.Name))
	}

	r.persist(dir, id, true)
	return nil
}

func (r *Registry) disconnectLocked(dir contracts.Direction, id int32) error {
	list := *r.listLocked(dir)
	idx := indexOf(list, id)
	if idx < 0 {
		return notFound(dir, id)
	}

	ep := &list[idx]
	if ep.Connected {
		if err := r.opener.CloseEndpoint(dir, id); err != nil {
			r.logger.Warn("MIDI service failed to close endpoint",
				r.logger.Field().Int32("id", id),
				r.logger.Field().Error("error", err))
		}
		ep.Connected = false
		r.logger.Info(fmt.Sprintf("disconnected %s port: %s", lower(dir), ep.Name))
	}

	r.persist(dir, id, false)
	return nil
}

func (r *Registry) persist(dir contracts.Direction, id int32, on bool) {
	if err := r.prefs.Set(id, dir, on); err != nil {
		r.logger.Warn("Failed to store connection preference",
			r.logger.Field().Int32("id", id),
			r.logger.Field().Bool("autoConnect", on),
			r.logger.Field().Error("error", err))
	}
}

// Inputs returns a copy of the input list.
func (r *Registry) Inputs() []contracts.Endpoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return clone(r.inputs)
}

// Outputs returns a copy of the output list.
func (r *Registry) Outputs() []contracts.Endpoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return clone(r.outputs)
}

// OutputChannel returns the default outbound channel.
func (r *Registry) OutputChannel() uint8 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outputChannel
}

// SetOutputChannel sets the default outbound channel, clamped to 0-15.
func (r *Registry) SetOutputChannel(ch uint8) {
	ch = contracts.ClampChannel(ch)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outputChannel == ch {
		return
	}
	r.outputChannel = ch
	r.publishLocked()
}

// State returns a snapshot of everything observers care about.
func (r *Registry) State() contracts.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stateLocked()
}

// Subscribe returns a channel receiving a snapshot after every change, and a cancel func.
// A subscriber that falls behind only loses intermediate snapshots; the newest is kept.
func (r *Registry) Subscribe(buffer int) (<-chan contracts.State, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan contracts.State, buffer)

	r.subsMu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = ch
	r.subsMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.subsMu.Lock()
			if _, ok := r.subs[id]; ok {
				delete(r.subs, id)
				close(ch)
			}
			r.subsMu.Unlock()
		})
	}
	return ch, cancel
}

// Close ends all subscriptions.
func (r *Registry) Close() {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()
	for id, ch := range r.subs {
		close(ch)
		delete(r.subs, id)
	}
}

// publishLocked must be called with mu held so snapshots reach subscribers in mutation order.
func (r *Registry) publishLocked() {
	state := r.stateLocked()
	r.subsMu.Lock()
	defer r.subsMu.Unlock()
	for _, ch := range r.subs {
		select {
		case ch <- state:
			continue
		default:
		}
		// full: drop the oldest snapshot to make room for this one
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- state:
		default:
		}
	}
}

func (r *Registry) stateLocked() contracts.State {
	return contracts.State{
		Inputs:        clone(r.inputs),
		Outputs:       clone(r.outputs),
		OutputChannel: r.outputChannel,
	}
}

func (r *Registry) listLocked(dir contracts.Direction) *[]contracts.Endpoint {
	if dir == contracts.Input {
		return &r.inputs
	}
	return &r.outputs
}

func indexOf(list []contracts.Endpoint, id int32) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

func clone(list []contracts.Endpoint) []contracts.Endpoint {
	out := make([]contracts.Endpoint, len(list))
	copy(out, list)
	return out
}

func notFound(dir contracts.Direction, id int32) error {
	return fmt.Errorf("%w: %s %d", contracts.ErrEndpointNotFound, dir, id)
}

func lower(dir contracts.Direction) string {
	if dir == contracts.Input {
		return "input"
	}
	return "output"
}
