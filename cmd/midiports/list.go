package main

import (
	"fmt"
	"io"

	"github.com/leandrodaf/midimanager/internal/preferences"
	"github.com/leandrodaf/midimanager/sdk/contracts"
	"github.com/leandrodaf/midimanager/sdk/midi"
)

// listEndpoints prints what the MIDI service reports and each endpoint's auto-connect
// preference. Nothing is opened and no preference is written.
func listEndpoints(w io.Writer, opts []contracts.Option) error {
	o, err := midi.ResolveOptions(opts...)
	if err != nil {
		return err
	}
	o.CoreMIDIConfig.VirtualPortName = ""

	svc := o.Service
	if svc == nil {
		if svc, err = midi.NewService(&o); err != nil {
			return err
		}
	}
	defer func() { _ = svc.Stop() }()

	auto := *o.DefaultAutoConnect
	prefs := preferences.New(o.Settings)

	for _, dir := range []contracts.Direction{contracts.Input, contracts.Output} {
		var ids []int32
		var err error
		if dir == contracts.Input {
			ids, err = svc.InputIDs()
		} else {
			ids, err = svc.OutputIDs()
		}
		if err != nil {
			return err
		}

		if dir == contracts.Output {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "=== MIDI %s Ports ===\n", dir)
		for _, id := range ids {
			name, ok := svc.NameFor(dir, id)
			if !ok {
				name = "No Name"
			}
			on, stored, err := prefs.Get(id, dir)
			if err != nil || !stored {
				on = auto
			}
			mark := " "
			if on {
				mark = "x"
			}
			fmt.Fprintf(w, "  [%s] %-32s %d\n", mark, name, id)
		}
	}
	fmt.Fprintln(w, "\n[x] = connected automatically on discovery")
	return nil
}
