package contracts

import "time"

// MIDICommand represents the types of MIDI commands for event filtering.
type MIDICommand byte

const (
	// NoteOn is the MIDI command for a Note On event (0x90).
	NoteOn MIDICommand = 0x90
	// NoteOff is the MIDI command for a Note Off event (0x80).
	NoteOff MIDICommand = 0x80
	// ControlChange is the MIDI command for a Control Change event (0xB0).
	ControlChange MIDICommand = 0xB0
)

// MIDIEventFilter allows users to specify which MIDI commands to deliver to handlers.
type MIDIEventFilter struct {
	Commands []MIDICommand // List of MIDI commands to let through.
}

// Allows reports whether the command passes the filter. A nil filter allows everything.
func (f *MIDIEventFilter) Allows(cmd MIDICommand) bool {
	if f == nil {
		return true
	}
	for _, c := range f.Commands {
		if c == cmd {
			return true
		}
	}
	return false
}

// Backend selects the MIDI service implementation.
type Backend string

const (
	// GoMIDIBackend uses the registered gomidi driver (rtmidi by default).
	GoMIDIBackend Backend = "gomidi"
	// NativeBackend uses CoreMIDI on macOS and winmm on Windows.
	NativeBackend Backend = "native"
)

// CoreMIDIConfig holds configuration for the MIDI service client.
type CoreMIDIConfig struct {
	ClientName      string // Name of the MIDI client.
	VirtualPortName string // Name of the virtual in/out ports to publish; empty disables them.
}

// SettingsStore is a persisted boolean key-value store.
type SettingsStore interface {
	GetBool(key string) (value bool, ok bool, err error)
	SetBool(key string, value bool) error
	Remove(key string) error
	Exists(key string) (bool, error)
	Close() error
}

// ClientOptions defines the configuration options for the MIDI manager.
type ClientOptions struct {
	Logger             Logger           // Logger for logging events and errors.
	LogLevel           LogLevel         // Level of logging to use.
	LogFilePath        string           // File path for logging if file logging is enabled.
	MIDIEventFilter    *MIDIEventFilter // Optional filter for inbound MIDI events.
	CoreMIDIConfig     *CoreMIDIConfig  // Configuration for the MIDI service client.
	Backend            Backend          // Which MIDI service implementation to use.
	Service            MIDIService      // Explicit service; overrides Backend.
	Settings           SettingsStore    // Where auto-connect preferences live.
	DefaultAutoConnect *bool            // Auto-connect endpoints without a stored preference.
	OutputChannel      uint8            // Default outbound channel.
	PollInterval       time.Duration    // Hot-plug polling period; negative disables polling.
	ListTimeout        time.Duration    // Upper bound for a single endpoint listing.
	EventBuffer        int              // Capacity of the inbound event queue.
}

// Option is a function that modifies ClientOptions.
type Option func(*ClientOptions)

// WithLogger sets the logger for the MIDI manager.
func WithLogger(l Logger) Option {
	return func(opts *ClientOptions) {
		opts.Logger = l
	}
}

// WithLogLevel sets the logging level for the MIDI manager.
func WithLogLevel(level LogLevel) Option {
	return func(opts *ClientOptions) {
		opts.LogLevel = level
	}
}

// WithLogFile directs logs to a file.
func WithLogFile(path string) Option {
	return func(opts *ClientOptions) {
		opts.LogFilePath = path
	}
}

// WithMIDIEventFilter sets the inbound MIDI event filter.
func WithMIDIEventFilter(filter MIDIEventFilter) Option {
	return func(opts *ClientOptions) {
		opts.MIDIEventFilter = &filter
	}
}

// WithCoreMIDIConfig sets the MIDI service client configuration.
func WithCoreMIDIConfig(config CoreMIDIConfig) Option {
	return func(opts *ClientOptions) {
		opts.CoreMIDIConfig = &config
	}
}

// WithBackend selects the MIDI service implementation.
func WithBackend(b Backend) Option {
	return func(opts *ClientOptions) {
		opts.Backend = b
	}
}

// WithService injects a MIDI service, bypassing backend selection.
func WithService(s MIDIService) Option {
	return func(opts *ClientOptions) {
		opts.Service = s
	}
}

// WithSettingsStore sets the store used for auto-connect preferences.
func WithSettingsStore(s SettingsStore) Option {
	return func(opts *ClientOptions) {
		opts.Settings = s
	}
}

// WithDefaultAutoConnect decides whether endpoints without a stored preference are opened on discovery.
func WithDefaultAutoConnect(on bool) Option {
	return func(opts *ClientOptions) {
		opts.DefaultAutoConnect = &on
	}
}

// WithOutputChannel sets the default outbound channel, clamped to 0-15.
func WithOutputChannel(ch uint8) Option {
	return func(opts *ClientOptions) {
		opts.OutputChannel = ClampChannel(ch)
	}
}

// WithPollInterval sets the hot-plug polling period. A negative value disables polling.
func WithPollInterval(d time.Duration) Option {
	return func(opts *ClientOptions) {
		opts.PollInterval = d
	}
}

// WithListTimeout bounds how long a single endpoint listing may take.
func WithListTimeout(d time.Duration) Option {
	return func(opts *ClientOptions) {
		opts.ListTimeout = d
	}
}

// WithEventBuffer sets the capacity of the inbound event queue.
func WithEventBuffer(n int) Option {
	return func(opts *ClientOptions) {
		opts.EventBuffer = n
	}
}
