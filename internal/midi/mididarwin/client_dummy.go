//go:build !darwin
// +build !darwin

package mididarwin

import (
	"fmt"

	"github.com/leandrodaf/midimanager/sdk/contracts"
)

// NewMIDIClient reports that CoreMIDI is not available on this platform.
func NewMIDIClient(options *contracts.ClientOptions) (contracts.MIDIService, error) {
	options.Logger.Warn("CoreMIDI backend requested on a non-macOS system")
	return nil, fmt.Errorf("%w: CoreMIDI is only available on macOS", contracts.ErrUnsupportedOS)
}
