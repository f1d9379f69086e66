//go:build darwin
// +build darwin

package mididarwin

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/leandrodaf/midimanager/internal/midi"
	"github.com/leandrodaf/midimanager/sdk/contracts"
	"github.com/youpy/go-coremidi"
	"go.uber.org/multierr"
)

// Error definitions for CoreMIDI connection and handling issues.
var (
	ErrUnknownEndpoint     = errors.New("endpoint not present in the last CoreMIDI listing")
	ErrMIDIConnectionError = errors.New("error connecting to MIDI source")
	ErrCreateInputPort     = errors.New("error creating input port")
	ErrCreateOutputPort    = errors.New("error creating output port")
)

// internalPortConnection is an interface for handling disconnection from a MIDI port.
type internalPortConnection interface {
	Disconnect()
}

// ClientMid is a contracts.MIDIService on CoreMIDI. Sources are inputs, destinations are outputs.
// Identities are hashes of the entity and endpoint names, stable for the session.
type ClientMid struct {
	logger     contracts.Logger
	client     coremidi.Client
	inputPort  coremidi.InputPort
	outputPort coremidi.OutputPort

	mu           sync.Mutex
	sources      map[int32]coremidi.Source
	destinations map[int32]coremidi.Destination
	connections  map[int32]internalPortConnection
	openDests    map[int32]coremidi.Destination
	sourceIDs    map[string]int32 // endpoint key -> id, for routing inbound packets

	listener atomic.Value // func(contracts.Event)
	stopOnce sync.Once
}

// NewMIDIClient creates the CoreMIDI client with one shared input port and one output port.
func NewMIDIClient(options *contracts.ClientOptions) (contracts.MIDIService, error) {
	client, err := coremidi.NewClient(options.CoreMIDIConfig.ClientName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contracts.ErrServiceUnavailable, err)
	}

	m := &ClientMid{
		logger:       options.Logger,
		client:       client,
		sources:      map[int32]coremidi.Source{},
		destinations: map[int32]coremidi.Destination{},
		connections:  map[int32]internalPortConnection{},
		openDests:    map[int32]coremidi.Destination{},
		sourceIDs:    map[string]int32{},
	}
	m.listener.Store(func(contracts.Event) {})

	m.inputPort, err = coremidi.NewInputPort(client, "Input Port", m.handleMIDIMessage)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreateInputPort, err)
	}
	m.outputPort, err = coremidi.NewOutputPort(client, "Output Port")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreateOutputPort, err)
	}

	if options.CoreMIDIConfig.VirtualPortName != "" {
		options.Logger.Warn("Virtual ports are only published by the gomidi backend")
	}
	options.Logger.Info("MIDI client successfully created")
	return m, nil
}

func endpointKey(entity, name string) string {
	return entity + "/" + name
}

func (m *ClientMid) InputIDs() ([]int32, error) {
	sources, err := coremidi.AllSources()
	if err != nil {
		return nil, fmt.Errorf("%w: error listing MIDI sources: %v", contracts.ErrServiceUnavailable, err)
	}

	ids := make([]int32, 0, len(sources))
	byID := make(map[int32]coremidi.Source, len(sources))
	keys := make(map[string]int32, len(sources))
	repeats := map[string]int{}
	for _, source := range sources {
		key := endpointKey(source.Entity().Name(), source.Name())
		id := midi.StableID(key, repeats[key])
		repeats[key]++
		ids = append(ids, id)
		byID[id] = source
		keys[key] = id
	}

	m.mu.Lock()
	m.sources = byID
	m.sourceIDs = keys
	m.mu.Unlock()
	return ids, nil
}

func (m *ClientMid) OutputIDs() ([]int32, error) {
	destinations, err := coremidi.AllDestinations()
	if err != nil {
		return nil, fmt.Errorf("%w: error listing MIDI destinations: %v", contracts.ErrServiceUnavailable, err)
	}

	ids := make([]int32, 0, len(destinations))
	byID := make(map[int32]coremidi.Destination, len(destinations))
	repeats := map[string]int{}
	for _, dest := range destinations {
		key := endpointKey(dest.Entity().Name(), dest.Name())
		id := midi.StableID(key, repeats[key])
		repeats[key]++
		ids = append(ids, id)
		byID[id] = dest
	}

	m.mu.Lock()
	m.destinations = byID
	m.mu.Unlock()
	return ids, nil
}

func (m *ClientMid) NameFor(dir contracts.Direction, id int32) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if dir == contracts.Input {
		if s, ok := m.sources[id]; ok {
			return s.Name(), true
		}
		return "", false
	}
	if d, ok := m.destinations[id]; ok {
		return d.Name(), true
	}
	return "", false
}

// OpenEndpoint connects a source to the shared input port, or marks a destination as a send target.
func (m *ClientMid) OpenEndpoint(dir contracts.Direction, id int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if dir == contracts.Input {
		if _, open := m.connections[id]; open {
			return nil
		}
		source, ok := m.sources[id]
		if !ok {
			return fmt.Errorf("%w: %w: source %d", contracts.ErrServiceUnavailable, ErrUnknownEndpoint, id)
		}
		conn, err := m.inputPort.Connect(source)
		if err != nil {
			return fmt.Errorf("%w: %w: %v", contracts.ErrServiceUnavailable, ErrMIDIConnectionError, err)
		}
		m.connections[id] = conn
		m.logger.Debug("MIDI source connected", m.logger.Field().String("name", source.Name()))
		return nil
	}

	dest, ok := m.destinations[id]
	if !ok {
		return fmt.Errorf("%w: %w: destination %d", contracts.ErrServiceUnavailable, ErrUnknownEndpoint, id)
	}
	m.openDests[id] = dest
	return nil
}

func (m *ClientMid) CloseEndpoint(dir contracts.Direction, id int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if dir == contracts.Input {
		if conn, open := m.connections[id]; open {
			conn.Disconnect()
			delete(m.connections, id)
		}
		return nil
	}
	delete(m.openDests, id)
	return nil
}

func (m *ClientMid) SendNoteOn(note, velocity, channel uint8, timestamp uint64) error {
	return m.send(midi.NoteOn(note, velocity, channel), timestamp)
}

func (m *ClientMid) SendNoteOff(note, velocity, channel uint8, timestamp uint64) error {
	return m.send(midi.NoteOff(note, velocity, channel), timestamp)
}

func (m *ClientMid) SendControlChange(controller, value, channel uint8) error {
	return m.send(midi.ControlChange(controller, value, channel), 0)
}

// send packs the message with a host timestamp; zero means immediately.
func (m *ClientMid) send(data []byte, timestamp uint64) error {
	m.mu.Lock()
	dests := make([]coremidi.Destination, 0, len(m.openDests))
	for _, d := range m.openDests {
		dests = append(dests, d)
	}
	m.mu.Unlock()

	var errs error
	for i := range dests {
		packet := coremidi.NewPacket(data, timestamp)
		if err := packet.Send(&m.outputPort, &dests[i]); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("send to %s: %w", dests[i].Name(), err))
		}
	}
	if errs != nil {
		return fmt.Errorf("%w: %v", contracts.ErrServiceUnavailable, errs)
	}
	return nil
}

// handleMIDIMessage routes a CoreMIDI packet to the listener, tagged with its source identity.
func (m *ClientMid) handleMIDIMessage(source coremidi.Source, packet coremidi.Packet) {
	key := endpointKey(source.Entity().Name(), source.Name())

	m.mu.Lock()
	id, ok := m.sourceIDs[key]
	m.mu.Unlock()
	if !ok {
		id = midi.StableID(key, 0)
	}

	ts := packet.TimeStamp
	if ts == 0 {
		ts = midi.Now()
	}
	fn := m.listener.Load().(func(contracts.Event))
	for _, ev := range midi.DecodeAll(packet.Data, id, ts) {
		fn(ev)
	}
}

func (m *ClientMid) SetListener(fn func(contracts.Event)) {
	if fn == nil {
		fn = func(contracts.Event) {}
	}
	m.listener.Store(fn)
}

// SetSetupChangeHandler is a no-op; go-coremidi exposes no notification callback, so the manager polls.
func (m *ClientMid) SetSetupChangeHandler(func()) {}

// Stop disconnects every source. It only runs once.
func (m *ClientMid) Stop() error {
	m.stopOnce.Do(func() {
		m.logger.Info("Stopping CoreMIDI client")
		m.mu.Lock()
		defer m.mu.Unlock()

		for id, conn := range m.connections {
			conn.Disconnect()
			delete(m.connections, id)
		}
		m.openDests = map[int32]coremidi.Destination{}
	})
	return nil
}
