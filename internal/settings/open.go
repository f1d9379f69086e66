// Package settings provides persisted boolean key-value stores for connection preferences.
package settings

import (
	"fmt"

	"github.com/leandrodaf/midimanager/sdk/contracts"
)

// Kind names a store implementation.
type Kind string

const (
	KindFile   Kind = "file"
	KindMemory Kind = "memory"
	KindRedis  Kind = "redis"
)

// Config selects and configures a store.
type Config struct {
	Kind  Kind
	Path  string // File store location; empty means DefaultPath.
	Redis RedisOptions
}

// Open builds the store described by cfg.
func Open(cfg Config) (contracts.SettingsStore, error) {
	switch cfg.Kind {
	case KindFile, "":
		path := cfg.Path
		if path == "" {
			p, err := DefaultPath()
			if err != nil {
				return nil, fmt.Errorf("resolve settings path: %w", err)
			}
			path = p
		}
		f, err := OpenFile(path)
		if err != nil {
			return nil, err
		}
		return f, nil
	case KindMemory:
		return NewMemory(), nil
	case KindRedis:
		r, err := NewRedis(cfg.Redis)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown settings store %q", cfg.Kind)
	}
}
