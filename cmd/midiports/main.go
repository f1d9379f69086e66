// Command midiports lists MIDI endpoints and lets you connect or disconnect them from a terminal UI.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	gomidi "gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/leandrodaf/midimanager/internal/config"
	"github.com/leandrodaf/midimanager/internal/logger"
	"github.com/leandrodaf/midimanager/internal/settings"
	"github.com/leandrodaf/midimanager/sdk/contracts"
	"github.com/leandrodaf/midimanager/sdk/midi"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config (default: ./midimanager.yaml or ~/.config/midimanager/midimanager.yaml)")
	list := flag.Bool("list", false, "print the discovered endpoints and exit")
	preview := flag.Bool("preview", false, "use mock endpoints instead of MIDI hardware; nothing is persisted")
	flag.Parse()

	if err := run(*configPath, *list, *preview); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, list, preview bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logger.New(cfg.Log.Debug)
	defer func() { _ = log.Sync() }()

	// The UI owns the terminal, so logs go to a file unless configured otherwise.
	if !list && cfg.Log.File == "" {
		if dir, err := settings.DefaultDir(); err == nil && os.MkdirAll(dir, 0o755) == nil {
			cfg.Log.File = filepath.Join(dir, "midiports.log")
		}
	}

	var store contracts.SettingsStore = settings.NewMemory()
	if !preview {
		if store, err = settings.Open(cfg.SettingsConfig()); err != nil {
			log.Warn("Preferences store unavailable, using in-memory preferences", log.Field().Error("error", err))
			store = settings.NewMemory()
		}
	}

	opts := append(cfg.Options(),
		contracts.WithLogger(log),
		contracts.WithSettingsStore(store),
	)
	if preview {
		opts = append(opts, contracts.WithService(newPreviewService()))
	}
	defer gomidi.CloseDriver()

	if list {
		defer func() { _ = store.Close() }()
		return listEndpoints(os.Stdout, opts)
	}

	mgr, err := midi.NewMIDIManager(opts...)
	if err != nil {
		return err
	}

	events := make(chan contracts.Event, 64)
	forward := func(cmd contracts.MIDICommand) contracts.NoteHandler {
		return func(data1, data2, channel uint8, portID int32, ts uint64) {
			ev := contracts.Event{Command: cmd, Data1: data1, Data2: data2, Channel: channel, PortID: portID, Timestamp: ts}
			select {
			case events <- ev:
			default:
			}
		}
	}
	mgr.OnNoteOn(forward(contracts.NoteOn))
	mgr.OnNoteOff(forward(contracts.NoteOff))
	mgr.OnControlChange(contracts.ControlChangeHandler(forward(contracts.ControlChange)))

	states, unsubscribe := mgr.Subscribe(1)
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mgr.Run(ctx) }()

	p := tea.NewProgram(newModel(mgr, states, events), tea.WithAltScreen())
	_, uiErr := p.Run()

	cancel()
	if err := <-done; err != nil {
		log.Warn("MIDI manager stopped with errors", log.Field().Error("error", err))
	}
	return uiErr
}
