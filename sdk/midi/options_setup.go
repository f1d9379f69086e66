package midi

import (
	"time"

	"github.com/leandrodaf/midimanager/internal/logger"
	"github.com/leandrodaf/midimanager/internal/settings"
	"github.com/leandrodaf/midimanager/sdk/contracts"
)

const (
	defaultClientName   = "GO MIDI Client"
	defaultPollInterval = time.Second
	defaultListTimeout  = 3 * time.Second
	defaultEventBuffer  = 256
)

// applyDefaultOptions sets default values for ClientOptions if not explicitly provided.
//
// opts ...contracts.Option: A variadic list of option functions that can modify ClientOptions.
//
// Returns:
//   - contracts.ClientOptions: A structure containing the finalized client options with defaults applied.
//   - error: An error if there was an issue applying the options.
func applyDefaultOptions(opts ...contracts.Option) (contracts.ClientOptions, error) {
	options := &contracts.ClientOptions{}
	for _, opt := range opts {
		opt(options)
	}

	if options.Logger == nil {
		options.Logger = logger.NewZapLogger()
	}
	if options.LogLevel == 0 {
		options.LogLevel = contracts.InfoLevel
	}
	options.Logger.SetLevel(options.LogLevel)
	if options.LogFilePath != "" {
		options.Logger.SetDestination(contracts.FileLog, options.LogFilePath)
	}

	if options.CoreMIDIConfig == nil {
		options.CoreMIDIConfig = &contracts.CoreMIDIConfig{ClientName: defaultClientName}
	} else if options.CoreMIDIConfig.ClientName == "" {
		options.CoreMIDIConfig.ClientName = defaultClientName
	}
	if options.Backend == "" {
		options.Backend = contracts.GoMIDIBackend
	}
	if options.DefaultAutoConnect == nil {
		on := true
		options.DefaultAutoConnect = &on
	}
	if options.PollInterval == 0 {
		options.PollInterval = defaultPollInterval
	}
	if options.ListTimeout == 0 {
		options.ListTimeout = defaultListTimeout
	}
	if options.EventBuffer <= 0 {
		options.EventBuffer = defaultEventBuffer
	}

	if options.Settings == nil {
		store, err := settings.Open(settings.Config{Kind: settings.KindFile})
		if err != nil {
			// Preferences are a convenience; keep running without persistence.
			options.Logger.Warn("Preferences file unavailable, using in-memory preferences",
				options.Logger.Field().Error("error", err))
			store = settings.NewMemory()
		}
		options.Settings = store
	}

	return *options, nil
}
