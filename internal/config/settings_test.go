package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leandrodaf/midimanager/internal/settings"
	"github.com/leandrodaf/midimanager/sdk/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "midimanager.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "{}\n")

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "GO MIDI Client", s.ClientName)
	assert.Equal(t, "gomidi", s.Backend)
	assert.True(t, s.DefaultAutoConnect)
	assert.True(t, s.VirtualPorts)
	assert.Equal(t, time.Second, s.PollInterval)
	assert.Equal(t, 3*time.Second, s.ListTimeout)
	assert.Equal(t, 256, s.EventBuffer)
	assert.Equal(t, "info", s.Log.Level)
	assert.Equal(t, "file", s.Preferences.Store)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
client_name: Studio
virtual_port_name: Bridge
default_auto_connect: false
output_channel: 9
poll_interval: 250ms
log:
  level: debug
preferences:
  store: redis
  redis:
    addr: redis:6379
    db: 2
`)

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Studio", s.ClientName)
	assert.Equal(t, "Bridge", s.VirtualPortName)
	assert.False(t, s.DefaultAutoConnect)
	assert.Equal(t, uint8(9), s.OutputChannel)
	assert.Equal(t, 250*time.Millisecond, s.PollInterval)

	cfg := s.SettingsConfig()
	assert.Equal(t, settings.KindRedis, cfg.Kind)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "midimanager:", cfg.Redis.Prefix)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "output_channel: 1\n")
	t.Setenv("MIDIMANAGER_OUTPUT_CHANNEL", "4")
	t.Setenv("MIDIMANAGER_PREFERENCES_STORE", "memory")

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, uint8(4), s.OutputChannel)
	assert.Equal(t, settings.KindMemory, s.SettingsConfig().Kind)
}

func TestLoad_RejectsBadChannel(t *testing.T) {
	path := writeConfig(t, "output_channel: 16\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestOptions(t *testing.T) {
	s := &Settings{
		ClientName:         "Studio",
		VirtualPorts:       true,
		VirtualPortName:    "Bridge",
		Backend:            "native",
		DefaultAutoConnect: false,
		OutputChannel:      5,
		PollInterval:       -1,
		ListTimeout:        time.Second,
		EventBuffer:        32,
		Log:                LogConfig{Level: "warn", File: "/tmp/midimanager.log"},
	}

	var opts contracts.ClientOptions
	for _, opt := range s.Options() {
		opt(&opts)
	}

	assert.Equal(t, contracts.WarnLevel, opts.LogLevel)
	assert.Equal(t, contracts.NativeBackend, opts.Backend)
	assert.Equal(t, &contracts.CoreMIDIConfig{ClientName: "Studio", VirtualPortName: "Bridge"}, opts.CoreMIDIConfig)
	require.NotNil(t, opts.DefaultAutoConnect)
	assert.False(t, *opts.DefaultAutoConnect)
	assert.Equal(t, uint8(5), opts.OutputChannel)
	assert.Equal(t, time.Duration(-1), opts.PollInterval)
	assert.Equal(t, 32, opts.EventBuffer)
	assert.Equal(t, "/tmp/midimanager.log", opts.LogFilePath)
}

func TestOptions_VirtualPortName(t *testing.T) {
	virtualName := func(s *Settings) string {
		var opts contracts.ClientOptions
		for _, opt := range s.Options() {
			opt(&opts)
		}
		return opts.CoreMIDIConfig.VirtualPortName
	}

	s, err := Load(writeConfig(t, "client_name: Studio\n"))
	require.NoError(t, err)
	assert.Equal(t, "Studio", virtualName(s))

	s, err = Load(writeConfig(t, "client_name: Studio\nvirtual_port_name: Bridge\n"))
	require.NoError(t, err)
	assert.Equal(t, "Bridge", virtualName(s))

	s, err = Load(writeConfig(t, "client_name: Studio\nvirtual_port_name: Bridge\nvirtual_ports: false\n"))
	require.NoError(t, err)
	assert.Empty(t, virtualName(s))
}
