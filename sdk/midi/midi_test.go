package midi

import (
	"runtime"
	"testing"
	"time"

	"github.com/leandrodaf/midimanager/internal/logger"
	"github.com/leandrodaf/midimanager/internal/settings"
	"github.com/leandrodaf/midimanager/sdk/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaultOptions(t *testing.T) {
	options, err := applyDefaultOptions(
		contracts.WithLogger(logger.NewNopLogger()),
		contracts.WithSettingsStore(settings.NewMemory()),
	)
	require.NoError(t, err)

	assert.Equal(t, contracts.InfoLevel, options.LogLevel)
	assert.Equal(t, "GO MIDI Client", options.CoreMIDIConfig.ClientName)
	assert.Equal(t, contracts.GoMIDIBackend, options.Backend)
	require.NotNil(t, options.DefaultAutoConnect)
	assert.True(t, *options.DefaultAutoConnect)
	assert.Equal(t, time.Second, options.PollInterval)
	assert.Equal(t, 3*time.Second, options.ListTimeout)
	assert.Equal(t, 256, options.EventBuffer)
}

func TestApplyDefaultOptions_KeepsExplicitValues(t *testing.T) {
	options, err := applyDefaultOptions(
		contracts.WithLogger(logger.NewNopLogger()),
		contracts.WithSettingsStore(settings.NewMemory()),
		contracts.WithLogLevel(contracts.DebugLevel),
		contracts.WithCoreMIDIConfig(contracts.CoreMIDIConfig{VirtualPortName: "Bridge"}),
		contracts.WithDefaultAutoConnect(false),
		contracts.WithPollInterval(-1),
		contracts.WithOutputChannel(18),
	)
	require.NoError(t, err)

	assert.Equal(t, contracts.DebugLevel, options.LogLevel)
	assert.Equal(t, "GO MIDI Client", options.CoreMIDIConfig.ClientName)
	assert.Equal(t, "Bridge", options.CoreMIDIConfig.VirtualPortName)
	assert.False(t, *options.DefaultAutoConnect)
	assert.Equal(t, time.Duration(-1), options.PollInterval)
	assert.Equal(t, uint8(15), options.OutputChannel)
}

func TestNewService_UnknownBackend(t *testing.T) {
	opts := &contracts.ClientOptions{Logger: logger.NewNopLogger(), Backend: "jack"}
	_, err := NewService(opts)
	assert.ErrorIs(t, err, contracts.ErrUnknownBackend)
}

func TestNewService_NativeUnsupported(t *testing.T) {
	if runtime.GOOS == "darwin" || runtime.GOOS == "windows" {
		t.Skip("native backend exists on this platform")
	}
	opts := &contracts.ClientOptions{Logger: logger.NewNopLogger(), Backend: contracts.NativeBackend}
	_, err := NewService(opts)
	assert.ErrorIs(t, err, contracts.ErrUnsupportedOS)
}

type nopService struct{}

func (nopService) InputIDs() ([]int32, error)                        { return nil, nil }
func (nopService) OutputIDs() ([]int32, error)                       { return nil, nil }
func (nopService) NameFor(contracts.Direction, int32) (string, bool) { return "", false }
func (nopService) OpenEndpoint(contracts.Direction, int32) error     { return nil }
func (nopService) CloseEndpoint(contracts.Direction, int32) error    { return nil }
func (nopService) SendNoteOn(_, _, _ uint8, _ uint64) error          { return nil }
func (nopService) SendNoteOff(_, _, _ uint8, _ uint64) error         { return nil }
func (nopService) SendControlChange(_, _, _ uint8) error             { return nil }
func (nopService) SetListener(func(contracts.Event))                 {}
func (nopService) SetSetupChangeHandler(func())                      {}
func (nopService) Stop() error                                       { return nil }

func TestNewMIDIManager_WithService(t *testing.T) {
	m, err := NewMIDIManager(
		contracts.WithLogger(logger.NewNopLogger()),
		contracts.WithSettingsStore(settings.NewMemory()),
		contracts.WithService(nopService{}),
		contracts.WithOutputChannel(4),
	)
	require.NoError(t, err)

	m.Reconcile()
	assert.Empty(t, m.InputPorts())
	assert.Equal(t, uint8(4), m.OutputChannel())
	assert.NoError(t, m.Stop())
}
