package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const fileVersion = "1"

type document struct {
	Version string          `json:"version"`
	Values  map[string]bool `json:"values"`
}

// File keeps boolean settings in a JSON document, rewritten atomically on every change.
type File struct {
	path   string
	mu     sync.RWMutex
	values map[string]bool
}

// DefaultDir returns ~/.config/midimanager.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "midimanager"), nil
}

// DefaultPath returns the preferences file inside DefaultDir.
func DefaultPath() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "preferences.json"), nil
}

// OpenFile loads the document at path. A missing file is an empty store.
func OpenFile(path string) (*File, error) {
	f := &File{path: path, values: map[string]bool{}}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return nil, fmt.Errorf("read settings %s: %w", path, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode settings %s: %w", path, err)
	}
	if doc.Values != nil {
		f.values = doc.Values
	}
	return f, nil
}

// GetBool returns the value for key. ok is false when key was never set.
func (f *File) GetBool(key string) (bool, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.values[key]
	return v, ok, nil
}

// SetBool stores value under key and rewrites the document.
func (f *File) SetBool(key string, value bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	prev, had := f.values[key]
	f.values[key] = value
	if err := f.save(); err != nil {
		if had {
			f.values[key] = prev
		} else {
			delete(f.values, key)
		}
		return err
	}
	return nil
}

// Remove deletes key and rewrites the document. Removing a missing key is not an error.
func (f *File) Remove(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	prev, had := f.values[key]
	if !had {
		return nil
	}
	delete(f.values, key)
	if err := f.save(); err != nil {
		f.values[key] = prev
		return err
	}
	return nil
}

// Exists reports whether key holds a value.
func (f *File) Exists(key string) (bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.values[key]
	return ok, nil
}

// Close is a no-op; every change is already on disk.
func (f *File) Close() error { return nil }

// save must be called with mu held.
func (f *File) save() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	b, err := json.MarshalIndent(document{Version: fileVersion, Values: f.values}, "", "  ")
	if err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return os.Rename(tmp, f.path)
}
