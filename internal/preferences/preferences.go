// Package preferences remembers, per endpoint identity and direction, whether an endpoint
// should be opened automatically when it is discovered.
package preferences

import (
	"fmt"

	"github.com/leandrodaf/midimanager/sdk/contracts"
)

// Store maps "<Input|Output>_<id>" keys onto auto-connect flags.
type Store struct {
	settings contracts.SettingsStore
}

// New wraps settings. The store is shared, not owned; closing it is the caller's job.
func New(settings contracts.SettingsStore) *Store {
	return &Store{settings: settings}
}

// Get returns the stored flag. ok is false when nothing is stored.
func (s *Store) Get(id int32, dir contracts.Direction) (value bool, ok bool, err error) {
	key := contracts.PreferenceKey(id, dir)
	value, ok, err = s.settings.GetBool(key)
	if err != nil {
		return false, false, fmt.Errorf("%w: get %s: %v", contracts.ErrPersistenceFailure, key, err)
	}
	return value, ok, nil
}

// Set records whether the endpoint should be opened on discovery.
func (s *Store) Set(id int32, dir contracts.Direction, on bool) error {
	key := contracts.PreferenceKey(id, dir)
	if err := s.settings.SetBool(key, on); err != nil {
		return fmt.Errorf("%w: set %s: %v", contracts.ErrPersistenceFailure, key, err)
	}
	return nil
}

// Remove forgets the endpoint so the default auto-connect policy applies again.
func (s *Store) Remove(id int32, dir contracts.Direction) error {
	key := contracts.PreferenceKey(id, dir)
	if err := s.settings.Remove(key); err != nil {
		return fmt.Errorf("%w: remove %s: %v", contracts.ErrPersistenceFailure, key, err)
	}
	return nil
}

// Exists reports whether a flag is stored for the endpoint.
func (s *Store) Exists(id int32, dir contracts.Direction) (bool, error) {
	key := contracts.PreferenceKey(id, dir)
	ok, err := s.settings.Exists(key)
	if err != nil {
		return false, fmt.Errorf("%w: exists %s: %v", contracts.ErrPersistenceFailure, key, err)
	}
	return ok, nil
}
