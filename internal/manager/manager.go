// Package manager wires the endpoint registry, preference store and event dispatcher to a MIDI service.
package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/leandrodaf/midimanager/internal/dispatch"
	"github.com/leandrodaf/midimanager/internal/preferences"
	"github.com/leandrodaf/midimanager/internal/registry"
	"github.com/leandrodaf/midimanager/sdk/contracts"
	"go.uber.org/multierr"
)

const unnamedEndpoint = "No Name"

// Manager implements contracts.Manager.
type Manager struct {
	logger     contracts.Logger
	svc        contracts.MIDIService
	settings   contracts.SettingsStore
	prefs      *preferences.Store
	registry   *registry.Registry
	dispatcher *dispatch.Dispatcher

	pollInterval time.Duration
	listTimeout  time.Duration

	reconcileMu sync.Mutex
	inflight    chan discovery // listing still running after a timeout; guarded by reconcileMu

	stopOnce sync.Once
	stopErr  error
}

var _ contracts.Manager = (*Manager)(nil)

// New builds a manager over svc. options must already carry defaults (Logger, Settings, DefaultAutoConnect).
func New(options *contracts.ClientOptions, svc contracts.MIDIService) *Manager {
	autoConnect := true
	if options.DefaultAutoConnect != nil {
		autoConnect = *options.DefaultAutoConnect
	}

	prefs := preferences.New(options.Settings)
	m := &Manager{
		logger:       options.Logger,
		svc:          svc,
		settings:     options.Settings,
		prefs:        prefs,
		registry:     registry.New(options.Logger, svc, prefs, autoConnect),
		dispatcher:   dispatch.New(options.Logger, options.MIDIEventFilter, options.EventBuffer),
		pollInterval: options.PollInterval,
		listTimeout:  options.ListTimeout,
	}
	m.registry.SetOutputChannel(options.OutputChannel)

	svc.SetListener(func(ev contracts.Event) {
		m.dispatcher.Enqueue(ev)
	})
	svc.SetSetupChangeHandler(func() {
		m.logger.Debug("MIDI setup changed")
		m.dispatcher.Submit(m.Reconcile)
	})
	return m
}

// Run reconciles once, then delivers events and polls for hot-plug changes until ctx is done.
// The service is stopped before Run returns.
func (m *Manager) Run(ctx context.Context) error {
	m.Reconcile()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.dispatcher.Run(ctx)
	}()

	if m.pollInterval > 0 {
		ticker := time.NewTicker(m.pollInterval)
		defer ticker.Stop()
	loop:
		for {
			select {
			case <-ctx.Done():
				break loop
			case <-ticker.C:
				m.Reconcile()
			}
		}
	} else {
		<-ctx.Done()
	}

	wg.Wait()
	return m.Stop()
}

// Reconcile lists the service's endpoints and updates the registry.
// A failed or hung listing leaves the registry untouched. Calls are serialized, and a
// listing that outlives its timeout is awaited by the next call instead of racing a new one.
func (m *Manager) Reconcile() {
	m.reconcileMu.Lock()
	defer m.reconcileMu.Unlock()

	inputs, outputs, err := m.discover()
	if err != nil {
		m.logger.Warn("Endpoint discovery failed", m.logger.Field().Error("error", err))
		return
	}
	m.registry.Reconcile(inputs, outputs)
}

type discovery struct {
	inputs, outputs []contracts.EndpointInfo
	err             error
}

// discover must be called with reconcileMu held.
func (m *Manager) discover() ([]contracts.EndpointInfo, []contracts.EndpointInfo, error) {
	if m.inflight == nil {
		ch := make(chan discovery, 1)
		go func() {
			var d discovery
			d.inputs, d.err = m.list(contracts.Input)
			if d.err == nil {
				d.outputs, d.err = m.list(contracts.Output)
			}
			ch <- d
		}()
		m.inflight = ch
	}

	var timeout <-chan time.Time
	if m.listTimeout > 0 {
		timer := time.NewTimer(m.listTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case d := <-m.inflight:
		m.inflight = nil
		return d.inputs, d.outputs, d.err
	case <-timeout:
		// CoreMIDI can hang while the MIDI server restarts; try again next poll.
		return nil, nil, fmt.Errorf("%w: endpoint listing timed out after %s", contracts.ErrServiceUnavailable, m.listTimeout)
	}
}

func (m *Manager) list(dir contracts.Direction) ([]contracts.EndpointInfo, error) {
	var ids []int32
	var err error
	if dir == contracts.Input {
		ids, err = m.svc.InputIDs()
	} else {
		ids, err = m.svc.OutputIDs()
	}
	if err != nil {
		return nil, serviceErr(err)
	}

	infos := make([]contracts.EndpointInfo, 0, len(ids))
	for _, id := range ids {
		name, ok := m.svc.NameFor(dir, id)
		if !ok {
			name = unnamedEndpoint
		}
		infos = append(infos, contracts.EndpointInfo{ID: id, Name: name})
	}
	return infos, nil
}

func (m *Manager) Connect(dir contracts.Direction, id int32) error {
	return m.registry.Connect(dir, id)
}

func (m *Manager) Disconnect(dir contracts.Direction, id int32) error {
	return m.registry.Disconnect(dir, id)
}

func (m *Manager) Toggle(dir contracts.Direction, id int32) error {
	return m.registry.Toggle(dir, id)
}

// Forget drops the stored auto-connect preference so the default applies on next discovery.
func (m *Manager) Forget(dir contracts.Direction, id int32) error {
	return m.prefs.Remove(id, dir)
}

func (m *Manager) InputPorts() []contracts.Endpoint  { return m.registry.Inputs() }
func (m *Manager) OutputPorts() []contracts.Endpoint { return m.registry.Outputs() }
func (m *Manager) OutputChannel() uint8              { return m.registry.OutputChannel() }
func (m *Manager) SetOutputChannel(ch uint8)         { m.registry.SetOutputChannel(ch) }
func (m *Manager) State() contracts.State            { return m.registry.State() }

func (m *Manager) Subscribe(buffer int) (<-chan contracts.State, func()) {
	return m.registry.Subscribe(buffer)
}

func (m *Manager) OnNoteOn(h contracts.NoteHandler)                 { m.dispatcher.OnNoteOn(h) }
func (m *Manager) OnNoteOff(h contracts.NoteHandler)                { m.dispatcher.OnNoteOff(h) }
func (m *Manager) OnControlChange(h contracts.ControlChangeHandler) { m.dispatcher.OnControlChange(h) }

func (m *Manager) params(opts []contracts.SendOption) contracts.SendParams {
	var p contracts.SendParams
	for _, opt := range opts {
		opt(&p)
	}
	if !p.HasChannel {
		p.Channel = m.registry.OutputChannel()
	}
	return p
}

// SendNoteOn sends to every connected output on the output channel unless OnChannel says otherwise.
func (m *Manager) SendNoteOn(note, velocity uint8, opts ...contracts.SendOption) error {
	p := m.params(opts)
	return serviceErr(m.svc.SendNoteOn(note, velocity, p.Channel, p.Timestamp))
}

func (m *Manager) SendNoteOff(note, velocity uint8, opts ...contracts.SendOption) error {
	p := m.params(opts)
	return serviceErr(m.svc.SendNoteOff(note, velocity, p.Channel, p.Timestamp))
}

func (m *Manager) SendControlChange(controller, value uint8, opts ...contracts.SendOption) error {
	p := m.params(opts)
	return serviceErr(m.svc.SendControlChange(controller, value, p.Channel))
}

// Stop releases the service, ends subscriptions and closes the settings store. Safe to call twice.
func (m *Manager) Stop() error {
	m.stopOnce.Do(func() {
		m.logger.Info("Stopping MIDI manager")
		m.stopErr = multierr.Combine(
			m.svc.Stop(),
			m.settings.Close(),
		)
		m.registry.Close()
	})
	return m.stopErr
}

func serviceErr(err error) error {
	if err == nil || errors.Is(err, contracts.ErrServiceUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", contracts.ErrServiceUnavailable, err)
}
