package midi

import (
	"github.com/leandrodaf/midimanager/internal/manager"
	"github.com/leandrodaf/midimanager/sdk/contracts"
)

// NewMIDIManager creates an endpoint manager with the specified options.
// It applies default options, selects the MIDI service and wires the registry to it.
// Nothing is discovered until Run or Reconcile is called.
//
// opts ...contracts.Option: A variadic list of option functions to customize the manager.
//
// Returns:
//   - contracts.Manager: The endpoint manager.
//   - error: An error if no MIDI service could be created.
func NewMIDIManager(opts ...contracts.Option) (contracts.Manager, error) {
	options, err := applyDefaultOptions(opts...)
	if err != nil {
		return nil, err
	}

	svc := options.Service
	if svc == nil {
		svc, err = NewService(&options)
		if err != nil {
			_ = options.Settings.Close()
			return nil, err
		}
	}

	return manager.New(&options, svc), nil
}

// ResolveOptions applies opts over the defaults NewMIDIManager uses, for callers that
// drive a MIDI service without a manager.
func ResolveOptions(opts ...contracts.Option) (contracts.ClientOptions, error) {
	return applyDefaultOptions(opts...)
}
