//go:build windows
// +build windows

package midiwindows

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/leandrodaf/midimanager/internal/midi"
	"github.com/leandrodaf/midimanager/sdk/contracts"
	"go.uber.org/multierr"
	"golang.org/x/sys/windows"
)

// Type definitions for MIDI handles
type (
	HMIDIIN  windows.Handle
	HMIDIOUT windows.Handle
)

// Constants for callback flags
const (
	CALLBACK_NULL     = 0x00000000 // No callback
	CALLBACK_FUNCTION = 0x00030000 // Indicates that the callback is a function
	MIDI_IO_STATUS    = 0x00000020 // MIDI input/output status
)

// Constants for MIDI message types
const (
	MIM_OPEN      = 0x3C1 // MIDI device opened
	MIM_CLOSE     = 0x3C2 // MIDI device closed
	MIM_DATA      = 0x3C3 // MIDI data received
	MIM_ERROR     = 0x3C5 // MIDI error
	MIM_LONGERROR = 0x3C6 // Long MIDI error
	MIM_MOREDATA  = 0x3CC // More MIDI data available
)

// Struct representing MIDI input device capabilities
type midiInCaps struct {
	wMid           uint16
	wPid           uint16
	vDriverVersion uint32
	szPname        [32]uint16
	dwSupport      uint32
}

// Struct representing MIDI output device capabilities
type midiOutCaps struct {
	wMid           uint16
	wPid           uint16
	vDriverVersion uint32
	szPname        [32]uint16
	wTechnology    uint16
	wVoices        uint16
	wNotes         uint16
	wChannelMask   uint16
	dwSupport      uint32
}

// Load the winmm.dll library and required functions
var (
	winmm                 = windows.NewLazySystemDLL("winmm.dll")
	procMidiInGetNumDevs  = winmm.NewProc("midiInGetNumDevs")
	procMidiInGetDevCaps  = winmm.NewProc("midiInGetDevCapsW")
	procMidiInOpen        = winmm.NewProc("midiInOpen")
	procMidiInStart       = winmm.NewProc("midiInStart")
	procMidiInStop        = winmm.NewProc("midiInStop")
	procMidiInClose       = winmm.NewProc("midiInClose")
	procMidiOutGetNumDevs = winmm.NewProc("midiOutGetNumDevs")
	procMidiOutGetDevCaps = winmm.NewProc("midiOutGetDevCapsW")
	procMidiOutOpen       = winmm.NewProc("midiOutOpen")
	procMidiOutShortMsg   = winmm.NewProc("midiOutShortMsg")
	procMidiOutClose      = winmm.NewProc("midiOutClose")
)

// One callback trampoline for every input; windows.NewCallback slots are limited.
var (
	callbackOnce sync.Once
	callbackPtr  uintptr
)

func inCallback() uintptr {
	callbackOnce.Do(func() {
		callbackPtr = windows.NewCallback(midiInCallback)
	})
	return callbackPtr
}

type device struct {
	index uint32
	name  string
}

// inputHandle is handed to winmm as the callback instance; it must stay referenced while open.
type inputHandle struct {
	client *ClientMid
	id     int32
	handle HMIDIIN
}

// ClientMid is a contracts.MIDIService on the Windows multimedia MIDI API.
// Device indexes shift on hot-plug, so identities are derived from device names.
type ClientMid struct {
	logger contracts.Logger

	mu      sync.Mutex
	inputs  map[int32]device
	outputs map[int32]device
	openIns map[int32]*inputHandle
	openOut map[int32]HMIDIOUT

	listener atomic.Value // func(contracts.Event)
	stopOnce sync.Once
}

// NewMIDIClient creates a MIDI service for Windows
func NewMIDIClient(options *contracts.ClientOptions) (contracts.MIDIService, error) {
	if err := winmm.Load(); err != nil {
		return nil, fmt.Errorf("%w: %v", contracts.ErrServiceUnavailable, err)
	}
	if options.CoreMIDIConfig.VirtualPortName != "" {
		options.Logger.Warn("Virtual ports are only published by the gomidi backend")
	}
	options.Logger.Info("MIDI client created for Windows")

	m := &ClientMid{
		logger:  options.Logger,
		inputs:  map[int32]device{},
		outputs: map[int32]device{},
		openIns: map[int32]*inputHandle{},
		openOut: map[int32]HMIDIOUT{},
	}
	m.listener.Store(func(contracts.Event) {})
	return m, nil
}

func identify(devices []device) ([]int32, map[int32]device) {
	ids := make([]int32, 0, len(devices))
	byID := make(map[int32]device, len(devices))
	repeats := map[string]int{}
	for _, d := range devices {
		id := midi.StableID(d.name, repeats[d.name])
		repeats[d.name]++
		ids = append(ids, id)
		byID[id] = d
	}
	return ids, byID
}

// InputIDs lists the MIDI input devices
func (m *ClientMid) InputIDs() ([]int32, error) {
	r0, _, _ := procMidiInGetNumDevs.Call()
	numDevices := uint32(r0)

	devices := make([]device, 0, numDevices)
	for i := uint32(0); i < numDevices; i++ {
		var caps midiInCaps
		r1, _, _ := procMidiInGetDevCaps.Call(uintptr(i), uintptr(unsafe.Pointer(&caps)), unsafe.Sizeof(caps))
		if r1 != 0 {
			m.logger.Warn(fmt.Sprintf("Failed to get information for MIDI input %d", i))
			continue
		}
		devices = append(devices, device{index: i, name: windows.UTF16ToString(caps.szPname[:])})
	}

	ids, byID := identify(devices)
	m.mu.Lock()
	m.inputs = byID
	m.mu.Unlock()
	return ids, nil
}

// OutputIDs lists the MIDI output devices
func (m *ClientMid) OutputIDs() ([]int32, error) {
	r0, _, _ := procMidiOutGetNumDevs.Call()
	numDevices := uint32(r0)

	devices := make([]device, 0, numDevices)
	for i := uint32(0); i < numDevices; i++ {
		var caps midiOutCaps
		r1, _, _ := procMidiOutGetDevCaps.Call(uintptr(i), uintptr(unsafe.Pointer(&caps)), unsafe.Sizeof(caps))
		if r1 != 0 {
			m.logger.Warn(fmt.Sprintf("Failed to get information for MIDI output %d", i))
			continue
		}
		devices = append(devices, device{index: i, name: windows.UTF16ToString(caps.szPname[:])})
	}

	ids, byID := identify(devices)
	m.mu.Lock()
	m.outputs = byID
	m.mu.Unlock()
	return ids, nil
}

func (m *ClientMid) NameFor(dir contracts.Direction, id int32) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	devices := m.inputs
	if dir == contracts.Output {
		devices = m.outputs
	}
	d, ok := devices[id]
	return d.name, ok
}

// OpenEndpoint opens and starts an input device, or opens an output device.
func (m *ClientMid) OpenEndpoint(dir contracts.Direction, id int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if dir == contracts.Input {
		if _, open := m.openIns[id]; open {
			return nil
		}
		d, ok := m.inputs[id]
		if !ok {
			return fmt.Errorf("%w: input %d not listed", contracts.ErrServiceUnavailable, id)
		}

		h := &inputHandle{client: m, id: id}
		r1, _, err := procMidiInOpen.Call(
			uintptr(unsafe.Pointer(&h.handle)),
			uintptr(d.index),
			inCallback(),
			uintptr(unsafe.Pointer(h)),
			uintptr(CALLBACK_FUNCTION|MIDI_IO_STATUS),
		)
		if r1 != 0 {
			return fmt.Errorf("%w: failed to open MIDI input %s: %v", contracts.ErrServiceUnavailable, d.name, err)
		}
		if r1, _, err = procMidiInStart.Call(uintptr(h.handle)); r1 != 0 {
			procMidiInClose.Call(uintptr(h.handle))
			return fmt.Errorf("%w: failed to start MIDI input %s: %v", contracts.ErrServiceUnavailable, d.name, err)
		}
		m.openIns[id] = h
		m.logger.Info(fmt.Sprintf("MIDI input %s connected", d.name))
		return nil
	}

	if _, open := m.openOut[id]; open {
		return nil
	}
	d, ok := m.outputs[id]
	if !ok {
		return fmt.Errorf("%w: output %d not listed", contracts.ErrServiceUnavailable, id)
	}
	var handle HMIDIOUT
	r1, _, err := procMidiOutOpen.Call(
		uintptr(unsafe.Pointer(&handle)),
		uintptr(d.index),
		0,
		0,
		uintptr(CALLBACK_NULL),
	)
	if r1 != 0 {
		return fmt.Errorf("%w: failed to open MIDI output %s: %v", contracts.ErrServiceUnavailable, d.name, err)
	}
	m.openOut[id] = handle
	m.logger.Info(fmt.Sprintf("MIDI output %s connected", d.name))
	return nil
}

// CloseEndpoint stops and closes an input, or closes an output.
func (m *ClientMid) CloseEndpoint(dir contracts.Direction, id int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if dir == contracts.Input {
		h, open := m.openIns[id]
		if !open {
			return nil
		}
		delete(m.openIns, id)
		return m.closeInput(h)
	}

	handle, open := m.openOut[id]
	if !open {
		return nil
	}
	delete(m.openOut, id)
	if r1, _, err := procMidiOutClose.Call(uintptr(handle)); r1 != 0 {
		return fmt.Errorf("%w: failed to close MIDI output: %v", contracts.ErrServiceUnavailable, err)
	}
	return nil
}

func (m *ClientMid) closeInput(h *inputHandle) error {
	if r1, _, err := procMidiInStop.Call(uintptr(h.handle)); r1 != 0 {
		m.logger.Error(fmt.Sprintf("Failed to stop MIDI capture: %v", err))
	}
	if r1, _, err := procMidiInClose.Call(uintptr(h.handle)); r1 != 0 {
		return fmt.Errorf("%w: failed to close MIDI input: %v", contracts.ErrServiceUnavailable, err)
	}
	return nil
}

func (m *ClientMid) SendNoteOn(note, velocity, channel uint8, _ uint64) error {
	return m.send(midi.NoteOn(note, velocity, channel))
}

func (m *ClientMid) SendNoteOff(note, velocity, channel uint8, _ uint64) error {
	return m.send(midi.NoteOff(note, velocity, channel))
}

func (m *ClientMid) SendControlChange(controller, value, channel uint8) error {
	return m.send(midi.ControlChange(controller, value, channel))
}

// send packs a three byte message into a short message for every open output.
func (m *ClientMid) send(data []byte) error {
	var packed uintptr
	for i, b := range data {
		packed |= uintptr(b) << (8 * i)
	}

	m.mu.Lock()
	handles := make([]HMIDIOUT, 0, len(m.openOut))
	for _, h := range m.openOut {
		handles = append(handles, h)
	}
	m.mu.Unlock()

	var errs error
	for _, h := range handles {
		if r1, _, err := procMidiOutShortMsg.Call(uintptr(h), packed); r1 != 0 {
			errs = multierr.Append(errs, fmt.Errorf("midiOutShortMsg: %v", err))
		}
	}
	if errs != nil {
		return fmt.Errorf("%w: %v", contracts.ErrServiceUnavailable, errs)
	}
	return nil
}

// midiInCallback processes incoming MIDI messages
func midiInCallback(hMidiIn uintptr, wMsg uint32, dwInstance uintptr, dwParam1 uintptr, dwParam2 uintptr) uintptr {
	h := (*inputHandle)(unsafe.Pointer(dwInstance))
	m := h.client

	switch wMsg {
	case MIM_OPEN:
		m.logger.Debug("MIDI device opened", m.logger.Field().Int32("id", h.id))
	case MIM_CLOSE:
		m.logger.Debug("MIDI device closed", m.logger.Field().Int32("id", h.id))
	case MIM_DATA, MIM_MOREDATA:
		data := []byte{
			byte(dwParam1 & 0xFF),
			byte((dwParam1 >> 8) & 0xFF),
			byte((dwParam1 >> 16) & 0xFF),
		}
		fn := m.listener.Load().(func(contracts.Event))
		if ev, ok := midi.Decode(data, h.id, midi.Now()); ok {
			fn(ev)
		}
	case MIM_ERROR, MIM_LONGERROR:
		m.logger.Error(fmt.Sprintf("MIDI error: msg=0x%X", wMsg))
	default:
		m.logger.Warn(fmt.Sprintf("Unknown MIDI message: 0x%X", wMsg))
	}

	return 0
}

func (m *ClientMid) SetListener(fn func(contracts.Event)) {
	if fn == nil {
		fn = func(contracts.Event) {}
	}
	m.listener.Store(fn)
}

// SetSetupChangeHandler is a no-op; winmm only reports device changes through window messages.
func (m *ClientMid) SetSetupChangeHandler(func()) {}

// Stop closes every device this client opened
func (m *ClientMid) Stop() error {
	var errs error
	m.stopOnce.Do(func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		for id, h := range m.openIns {
			errs = multierr.Append(errs, m.closeInput(h))
			delete(m.openIns, id)
		}
		for id, handle := range m.openOut {
			if r1, _, err := procMidiOutClose.Call(uintptr(handle)); r1 != 0 {
				errs = multierr.Append(errs, fmt.Errorf("failed to close MIDI output: %v", err))
			}
			delete(m.openOut, id)
		}
		m.logger.Info("MIDI devices closed")
	})
	return errs
}
