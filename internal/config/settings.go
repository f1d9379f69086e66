// Package config loads manager settings from YAML and MIDIMANAGER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/leandrodaf/midimanager/internal/settings"
	"github.com/leandrodaf/midimanager/sdk/contracts"
	"github.com/spf13/viper"
)

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type PreferencesConfig struct {
	Store string      `mapstructure:"store"`
	Path  string      `mapstructure:"path"`
	Redis RedisConfig `mapstructure:"redis"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	Debug bool   `mapstructure:"debug"`
	File  string `mapstructure:"file"`
}

type Settings struct {
	ClientName         string            `mapstructure:"client_name"`
	VirtualPorts       bool              `mapstructure:"virtual_ports"`
	VirtualPortName    string            `mapstructure:"virtual_port_name"`
	Backend            string            `mapstructure:"backend"`
	DefaultAutoConnect bool              `mapstructure:"default_auto_connect"`
	OutputChannel      uint8             `mapstructure:"output_channel"`
	PollInterval       time.Duration     `mapstructure:"poll_interval"`
	ListTimeout        time.Duration     `mapstructure:"list_timeout"`
	EventBuffer        int               `mapstructure:"event_buffer"`
	Log                LogConfig         `mapstructure:"log"`
	Preferences        PreferencesConfig `mapstructure:"preferences"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("client_name", "GO MIDI Client")
	v.SetDefault("virtual_ports", true)
	v.SetDefault("virtual_port_name", "")
	v.SetDefault("backend", string(contracts.GoMIDIBackend))
	v.SetDefault("default_auto_connect", true)
	v.SetDefault("output_channel", 0)
	v.SetDefault("poll_interval", "1s")
	v.SetDefault("list_timeout", "3s")
	v.SetDefault("event_buffer", 256)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.debug", false)
	v.SetDefault("log.file", "")
	v.SetDefault("preferences.store", string(settings.KindFile))
	v.SetDefault("preferences.path", "")
	v.SetDefault("preferences.redis.addr", "localhost:6379")
	v.SetDefault("preferences.redis.password", "")
	v.SetDefault("preferences.redis.db", 0)
	v.SetDefault("preferences.redis.prefix", "midimanager:")
}

// Load reads path, or midimanager.yaml from the working directory and the user config
// directory when path is empty. A missing search-path file is not an error.
func Load(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("MIDIMANAGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("midimanager")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := settings.DefaultDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if s.OutputChannel > contracts.MaxChannel {
		return nil, fmt.Errorf("output_channel %d out of range 0-15", s.OutputChannel)
	}
	return &s, nil
}

// SettingsConfig describes the preference store to open.
func (s *Settings) SettingsConfig() settings.Config {
	return settings.Config{
		Kind: settings.Kind(s.Preferences.Store),
		Path: s.Preferences.Path,
		Redis: settings.RedisOptions{
			Addr:     s.Preferences.Redis.Addr,
			Password: s.Preferences.Redis.Password,
			DB:       s.Preferences.Redis.DB,
			Prefix:   s.Preferences.Redis.Prefix,
		},
	}
}

// Options converts the settings into manager options. Logger and settings store are left to the caller.
// Virtual ports are published under the client name unless virtual_port_name overrides it.
func (s *Settings) Options() []contracts.Option {
	virtualName := ""
	if s.VirtualPorts {
		virtualName = s.VirtualPortName
		if virtualName == "" {
			virtualName = s.ClientName
		}
	}

	opts := []contracts.Option{
		contracts.WithLogLevel(contracts.ParseLogLevel(s.Log.Level)),
		contracts.WithBackend(contracts.Backend(s.Backend)),
		contracts.WithCoreMIDIConfig(contracts.CoreMIDIConfig{
			ClientName:      s.ClientName,
			VirtualPortName: virtualName,
		}),
		contracts.WithDefaultAutoConnect(s.DefaultAutoConnect),
		contracts.WithOutputChannel(s.OutputChannel),
		contracts.WithPollInterval(s.PollInterval),
		contracts.WithListTimeout(s.ListTimeout),
		contracts.WithEventBuffer(s.EventBuffer),
	}
	if s.Log.File != "" {
		opts = append(opts, contracts.WithLogFile(s.Log.File))
	}
	return opts
}
