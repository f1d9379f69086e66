// Package mididrivers implements the MIDI service on top of a gomidi driver
// (rtmidi in production, any drivers.Driver in tests).
package mididrivers

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/leandrodaf/midimanager/internal/midi"
	"github.com/leandrodaf/midimanager/sdk/contracts"
	"gitlab.com/gomidi/midi/v2/drivers"
	"go.uber.org/multierr"
)

// virtualDriver is satisfied by drivers able to publish their own ports, such as rtmididrv.
type virtualDriver interface {
	OpenVirtualIn(name string) (drivers.In, error)
	OpenVirtualOut(name string) (drivers.Out, error)
}

// Service is a contracts.MIDIService backed by a gomidi driver.
type Service struct {
	logger      contracts.Logger
	driver      drivers.Driver
	virtualName string

	mu       sync.Mutex
	ins      map[int32]drivers.In
	outs     map[int32]drivers.Out
	listens  map[int32]openIn
	openOuts map[int32]drivers.Out

	virtualIn   drivers.In
	virtualStop func()
	virtualOut  drivers.Out

	listener atomic.Value // func(contracts.Event)
	stopOnce sync.Once
}

// NewDefault uses the driver registered with gomidi, usually through a blank rtmididrv import.
func NewDefault(options *contracts.ClientOptions) (*Service, error) {
	drv := drivers.Get()
	if drv == nil {
		return nil, fmt.Errorf("%w: no gomidi driver registered", contracts.ErrServiceUnavailable)
	}
	return New(options, drv)
}

// New builds a service over drv. When the config names a virtual port and the driver
// supports it, a virtual input and output are published under that name.
func New(options *contracts.ClientOptions, drv drivers.Driver) (*Service, error) {
	s := &Service{
		logger:   options.Logger,
		driver:   drv,
		ins:      map[int32]drivers.In{},
		outs:     map[int32]drivers.Out{},
		listens:  map[int32]openIn{},
		openOuts: map[int32]drivers.Out{},
	}
	s.listener.Store(func(contracts.Event) {})

	if cfg := options.CoreMIDIConfig; cfg != nil && cfg.VirtualPortName != "" {
		s.virtualName = cfg.VirtualPortName
		if err := s.openVirtual(); err != nil {
			s.logger.Warn("Virtual MIDI ports unavailable", s.logger.Field().Error("error", err))
		}
	}

	s.logger.Info("MIDI service created", s.logger.Field().String("driver", drv.String()))
	return s, nil
}

func (s *Service) openVirtual() error {
	vd, ok := s.driver.(virtualDriver)
	if !ok {
		return fmt.Errorf("driver %s cannot create virtual ports", s.driver.String())
	}

	in, err := vd.OpenVirtualIn(s.virtualName)
	if err != nil {
		return fmt.Errorf("failed to create virtual MIDI input port '%s': %w", s.virtualName, err)
	}
	out, err := vd.OpenVirtualOut(s.virtualName)
	if err != nil {
		in.Close()
		return fmt.Errorf("failed to create virtual MIDI output port '%s': %w", s.virtualName, err)
	}

	id := VirtualID(s.virtualName)
	stop, err := in.Listen(func(msg []byte, _ int32) {
		s.deliver(msg, id)
	}, drivers.ListenConfig{})
	if err != nil {
		in.Close()
		out.Close()
		return fmt.Errorf("failed to listen on virtual input: %w", err)
	}

	s.virtualIn, s.virtualOut, s.virtualStop = in, out, stop
	s.logger.Info("Virtual MIDI ports published", s.logger.Field().String("name", s.virtualName))
	return nil
}

// VirtualID is the PortID carried by events arriving on the virtual input.
func VirtualID(name string) int32 {
	return midi.StableID("virtual:"+name, 0)
}

// InputIDs lists the driver's inputs, excluding our own virtual port.
func (s *Service) InputIDs() ([]int32, error) {
	ports, err := s.driver.Ins()
	if err != nil {
		return nil, fmt.Errorf("%w: list inputs: %v", contracts.ErrServiceUnavailable, err)
	}

	named := make([]namedPort, 0, len(ports))
	for _, p := range ports {
		named = append(named, namedPort{name: p.String(), port: p})
	}
	ids, byID := s.identify(named)

	s.mu.Lock()
	s.ins = make(map[int32]drivers.In, len(byID))
	for id, p := range byID {
		s.ins[id] = p.(drivers.In)
	}
	s.mu.Unlock()
	return ids, nil
}

// OutputIDs lists the driver's outputs, excluding our own virtual port.
func (s *Service) OutputIDs() ([]int32, error) {
	ports, err := s.driver.Outs()
	if err != nil {
		return nil, fmt.Errorf("%w: list outputs: %v", contracts.ErrServiceUnavailable, err)
	}

	named := make([]namedPort, 0, len(ports))
	for _, p := range ports {
		named = append(named, namedPort{name: p.String(), port: p})
	}
	ids, byID := s.identify(named)

	s.mu.Lock()
	s.outs = make(map[int32]drivers.Out, len(byID))
	for id, p := range byID {
		s.outs[id] = p.(drivers.Out)
	}
	s.mu.Unlock()
	return ids, nil
}

type openIn struct {
	port drivers.In
	stop func()
}

type namedPort struct {
	name string
	port drivers.Port
}

func (s *Service) identify(ports []namedPort) ([]int32, map[int32]drivers.Port) {
	ids := make([]int32, 0, len(ports))
	byID := make(map[int32]drivers.Port, len(ports))
	repeats := map[string]int{}

	for _, p := range ports {
		if s.virtualName != "" && p.name == s.virtualName {
			continue
		}
		id := midi.StableID(p.name, repeats[p.name])
		repeats[p.name]++
		ids = append(ids, id)
		byID[id] = p.port
	}
	return ids, byID
}

// NameFor returns the name from the most recent listing.
func (s *Service) NameFor(dir contracts.Direction, id int32) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if dir == contracts.Input {
		if p, ok := s.ins[id]; ok {
			return p.String(), true
		}
		return "", false
	}
	if p, ok := s.outs[id]; ok {
		return p.String(), true
	}
	return "", false
}

// OpenEndpoint opens an input (and starts listening) or an output. Open endpoints are left alone.
func (s *Service) OpenEndpoint(dir contracts.Direction, id int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir == contracts.Input {
		if _, open := s.listens[id]; open {
			return nil
		}
		port, ok := s.ins[id]
		if !ok {
			return fmt.Errorf("%w: input %d not listed", contracts.ErrServiceUnavailable, id)
		}
		if !port.IsOpen() {
			if err := port.Open(); err != nil {
				return fmt.Errorf("%w: open input %s: %v", contracts.ErrServiceUnavailable, port.String(), err)
			}
		}
		stop, err := port.Listen(func(msg []byte, _ int32) {
			s.deliver(msg, id)
		}, drivers.ListenConfig{})
		if err != nil {
			port.Close()
			return fmt.Errorf("%w: listen on %s: %v", contracts.ErrServiceUnavailable, port.String(), err)
		}
		s.listens[id] = openIn{port: port, stop: stop}
		return nil
	}

	if _, open := s.openOuts[id]; open {
		return nil
	}
	port, ok := s.outs[id]
	if !ok {
		return fmt.Errorf("%w: output %d not listed", contracts.ErrServiceUnavailable, id)
	}
	if !port.IsOpen() {
		if err := port.Open(); err != nil {
			return fmt.Errorf("%w: open output %s: %v", contracts.ErrServiceUnavailable, port.String(), err)
		}
	}
	s.openOuts[id] = port
	return nil
}

// CloseEndpoint stops listening on an input or releases an output.
func (s *Service) CloseEndpoint(dir contracts.Direction, id int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir == contracts.Input {
		in, open := s.listens[id]
		if !open {
			return nil
		}
		in.stop()
		delete(s.listens, id)
		if err := in.port.Close(); err != nil {
			return fmt.Errorf("%w: close input: %v", contracts.ErrServiceUnavailable, err)
		}
		return nil
	}

	port, open := s.openOuts[id]
	if !open {
		return nil
	}
	delete(s.openOuts, id)
	if err := port.Close(); err != nil {
		return fmt.Errorf("%w: close output: %v", contracts.ErrServiceUnavailable, err)
	}
	return nil
}

// SendNoteOn sends to every open output. gomidi drivers send immediately, so timestamp is unused.
func (s *Service) SendNoteOn(note, velocity, channel uint8, _ uint64) error {
	return s.send(midi.NoteOn(note, velocity, channel))
}

func (s *Service) SendNoteOff(note, velocity, channel uint8, _ uint64) error {
	return s.send(midi.NoteOff(note, velocity, channel))
}

func (s *Service) SendControlChange(controller, value, channel uint8) error {
	return s.send(midi.ControlChange(controller, value, channel))
}

func (s *Service) send(msg []byte) error {
	s.mu.Lock()
	targets := make([]drivers.Out, 0, len(s.openOuts)+1)
	for _, out := range s.openOuts {
		targets = append(targets, out)
	}
	if s.virtualOut != nil {
		targets = append(targets, s.virtualOut)
	}
	s.mu.Unlock()

	var errs error
	for _, out := range targets {
		if err := out.Send(msg); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("send to %s: %w", out.String(), err))
		}
	}
	if errs != nil {
		return fmt.Errorf("%w: %v", contracts.ErrServiceUnavailable, errs)
	}
	return nil
}

func (s *Service) deliver(msg []byte, id int32) {
	fn := s.listener.Load().(func(contracts.Event))
	for _, ev := range midi.DecodeAll(msg, id, midi.Now()) {
		fn(ev)
	}
}

func (s *Service) SetListener(fn func(contracts.Event)) {
	if fn == nil {
		fn = func(contracts.Event) {}
	}
	s.listener.Store(fn)
}

// SetSetupChangeHandler is a no-op: gomidi drivers do not report topology changes, the manager polls.
func (s *Service) SetSetupChangeHandler(func()) {}

// Stop closes every port this service opened. The driver itself stays registered.
func (s *Service) Stop() error {
	var errs error
	s.stopOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		for _, in := range s.listens {
			in.stop()
			errs = multierr.Append(errs, in.port.Close())
		}
		for _, port := range s.openOuts {
			errs = multierr.Append(errs, port.Close())
		}
		s.listens = map[int32]openIn{}
		s.openOuts = map[int32]drivers.Out{}

		if s.virtualStop != nil {
			s.virtualStop()
		}
		if s.virtualIn != nil {
			errs = multierr.Append(errs, s.virtualIn.Close())
		}
		if s.virtualOut != nil {
			errs = multierr.Append(errs, s.virtualOut.Close())
		}
		s.logger.Info("MIDI service stopped")
	})
	return errs
}
