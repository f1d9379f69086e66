package midi

import (
	"fmt"
	"runtime"

	"github.com/leandrodaf/midimanager/internal/midi/mididarwin"
	"github.com/leandrodaf/midimanager/internal/midi/mididrivers"
	"github.com/leandrodaf/midimanager/internal/midi/midiwindows"
	"github.com/leandrodaf/midimanager/sdk/contracts"
)

// clientInitializers maps OS names to the native MIDI service for that platform.
var clientInitializers = map[string]func(*contracts.ClientOptions) (contracts.MIDIService, error){
	"darwin":  mididarwin.NewMIDIClient,  // CoreMIDI
	"windows": midiwindows.NewMIDIClient, // winmm
}

// NewService builds the MIDI service named by opts.Backend.
// The gomidi backend needs a registered driver, e.g. a blank import of rtmididrv;
// the native backend is available on macOS and Windows only.
func NewService(opts *contracts.ClientOptions) (contracts.MIDIService, error) {
	switch opts.Backend {
	case contracts.GoMIDIBackend, "":
		svc, err := mididrivers.NewDefault(opts)
		if err != nil {
			return nil, err
		}
		return svc, nil
	case contracts.NativeBackend:
		if initializer, exists := clientInitializers[runtime.GOOS]; exists {
			return initializer(opts)
		}
		return nil, fmt.Errorf("%w: %s", contracts.ErrUnsupportedOS, runtime.GOOS)
	default:
		return nil, fmt.Errorf("%w: %q", contracts.ErrUnknownBackend, opts.Backend)
	}
}
