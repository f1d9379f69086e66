package preferences

import (
	"errors"
	"testing"

	"github.com/leandrodaf/midimanager/internal/settings"
	"github.com/leandrodaf/midimanager/sdk/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenSettings struct{}

var errDisk = errors.New("disk full")

func (brokenSettings) GetBool(string) (bool, bool, error) { return false, false, errDisk }
func (brokenSettings) SetBool(string, bool) error         { return errDisk }
func (brokenSettings) Remove(string) error                { return errDisk }
func (brokenSettings) Exists(string) (bool, error)        { return false, errDisk }
func (brokenSettings) Close() error                       { return nil }

func TestStore_RoundTrip(t *testing.T) {
	s := New(settings.NewMemory())

	require.NoError(t, s.Set(5, contracts.Input, true))
	v, ok, err := s.Get(5, contracts.Input)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, v)

	require.NoError(t, s.Remove(5, contracts.Input))
	exists, err := s.Exists(5, contracts.Input)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStore_DirectionsAreSeparate(t *testing.T) {
	mem := settings.NewMemory()
	s := New(mem)

	require.NoError(t, s.Set(-7, contracts.Output, false))

	_, ok, err := s.Get(-7, contracts.Input)
	require.NoError(t, err)
	assert.False(t, ok)

	v, ok, err := mem.GetBool("Output_-7")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, v)
}

func TestStore_WrapsPersistenceFailures(t *testing.T) {
	s := New(brokenSettings{})

	_, _, err := s.Get(1, contracts.Input)
	assert.ErrorIs(t, err, contracts.ErrPersistenceFailure)
	assert.ErrorIs(t, s.Set(1, contracts.Input, true), contracts.ErrPersistenceFailure)
	assert.ErrorIs(t, s.Remove(1, contracts.Output), contracts.ErrPersistenceFailure)
	_, err = s.Exists(1, contracts.Output)
	assert.ErrorIs(t, err, contracts.ErrPersistenceFailure)
}

func TestPreferenceKey(t *testing.T) {
	assert.Equal(t, "Input_5", contracts.PreferenceKey(5, contracts.Input))
	assert.Equal(t, "Output_-7", contracts.PreferenceKey(-7, contracts.Output))
}
