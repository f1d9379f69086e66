package contracts

import "context"

// Event is an inbound channel voice message.
type Event struct {
	Command   MIDICommand // NoteOn, NoteOff or ControlChange.
	Channel   uint8       // 0-15.
	Data1     uint8       // Note number or controller number.
	Data2     uint8       // Velocity or controller value.
	PortID    int32       // Source endpoint identity.
	Timestamp uint64      // Nanoseconds since the Unix epoch, or the service's host time.
}

// NoteHandler receives note on and note off events.
type NoteHandler func(note, velocity, channel uint8, portID int32, timestamp uint64)

// ControlChangeHandler receives control change events.
type ControlChangeHandler func(controller, value, channel uint8, portID int32, timestamp uint64)

// MIDIService is the operating system MIDI layer the manager sits on.
type MIDIService interface {
	InputIDs() ([]int32, error)
	OutputIDs() ([]int32, error)
	NameFor(dir Direction, id int32) (string, bool)

	OpenEndpoint(dir Direction, id int32) error
	CloseEndpoint(dir Direction, id int32) error

	// Sends go to every open output.
	SendNoteOn(note, velocity, channel uint8, timestamp uint64) error
	SendNoteOff(note, velocity, channel uint8, timestamp uint64) error
	SendControlChange(controller, value, channel uint8) error

	// SetListener installs the receiver of inbound events. It may be called from service threads.
	SetListener(fn func(Event))
	// SetSetupChangeHandler installs the receiver of topology change notifications, if the service has any.
	SetSetupChangeHandler(fn func())

	Stop() error
}

// SendOption adjusts a single outbound message.
type SendOption func(*SendParams)

// SendParams carries the resolved outbound channel and timestamp.
type SendParams struct {
	Channel    uint8
	HasChannel bool
	Timestamp  uint64
}

// MaxChannel is the highest MIDI channel number (channels are 0-based).
const MaxChannel uint8 = 15

// ClampChannel saturates ch to the 0-15 channel range.
func ClampChannel(ch uint8) uint8 {
	if ch > MaxChannel {
		return MaxChannel
	}
	return ch
}

// OnChannel sends on an explicit channel instead of the manager's output channel. Out of range values are clamped.
func OnChannel(ch uint8) SendOption {
	return func(p *SendParams) {
		p.Channel = ClampChannel(ch)
		p.HasChannel = true
	}
}

// At stamps the message with a service timestamp. Zero means now.
func At(ts uint64) SendOption {
	return func(p *SendParams) {
		p.Timestamp = ts
	}
}

// Manager is the host facing API.
type Manager interface {
	Run(ctx context.Context) error
	Reconcile()

	Connect(dir Direction, id int32) error
	Disconnect(dir Direction, id int32) error
	Toggle(dir Direction, id int32) error
	// Forget removes the stored auto-connect preference for an endpoint.
	Forget(dir Direction, id int32) error

	InputPorts() []Endpoint
	OutputPorts() []Endpoint
	OutputChannel() uint8
	SetOutputChannel(ch uint8)
	State() State
	Subscribe(buffer int) (<-chan State, func())

	OnNoteOn(h NoteHandler)
	OnNoteOff(h NoteHandler)
	OnControlChange(h ControlChangeHandler)

	SendNoteOn(note, velocity uint8, opts ...SendOption) error
	SendNoteOff(note, velocity uint8, opts ...SendOption) error
	SendControlChange(controller, value uint8, opts ...SendOption) error

	Stop() error
}
