package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/leandrodaf/midimanager/internal/logger"
	"github.com/leandrodaf/midimanager/sdk/contracts"
	"github.com/leandrodaf/midimanager/sdk/midi"
)

func main() {
	log := logger.NewZapLogger()

	manager, err := midi.NewMIDIManager(
		contracts.WithLogger(log),
		contracts.WithLogLevel(contracts.InfoLevel),
		contracts.WithMIDIEventFilter(contracts.MIDIEventFilter{
			Commands: []contracts.MIDICommand{contracts.NoteOn, contracts.NoteOff, contracts.ControlChange},
		}),
	)
	if err != nil {
		log.Error("Failed to initialize MIDI manager", log.Field().Error("error", err))
		return
	}

	manager.OnNoteOn(func(note, velocity, channel uint8, portID int32, timestamp uint64) {
		log.Info("Note on",
			log.Field().Uint64("Timestamp", timestamp),
			log.Field().Int32("Port", portID),
			log.Field().Int("Channel", int(channel)),
			log.Field().Int("Note", int(note)),
			log.Field().Int("Velocity", int(velocity)),
		)
		// Echo to every connected output, one octave up.
		if note < 116 {
			_ = manager.SendNoteOn(note+12, velocity)
		}
	})
	manager.OnNoteOff(func(note, velocity, channel uint8, portID int32, timestamp uint64) {
		log.Info("Note off", log.Field().Int32("Port", portID), log.Field().Int("Note", int(note)))
		if note < 116 {
			_ = manager.SendNoteOff(note+12, velocity)
		}
	})
	manager.OnControlChange(func(controller, value, channel uint8, portID int32, timestamp uint64) {
		log.Info("Control change",
			log.Field().Int32("Port", portID),
			log.Field().Int("Controller", int(controller)),
			log.Field().Int("Value", int(value)),
		)
	})

	states, unsubscribe := manager.Subscribe(1)
	defer unsubscribe()
	go func() {
		for s := range states {
			fmt.Printf("%d inputs, %d outputs\n", len(s.Inputs), len(s.Outputs))
			for _, ep := range s.Inputs {
				fmt.Printf("  in  %-30s connected=%v\n", ep.Name, ep.Connected)
			}
			for _, ep := range s.Outputs {
				fmt.Printf("  out %-30s connected=%v\n", ep.Name, ep.Connected)
			}
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Println("Listening for MIDI events... Press Ctrl+C to exit.")
	if err := manager.Run(ctx); err != nil {
		log.Error("MIDI manager stopped with errors", log.Field().Error("error", err))
	}
}
