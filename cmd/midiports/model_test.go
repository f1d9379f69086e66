package main

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leandrodaf/midimanager/internal/logger"
	"github.com/leandrodaf/midimanager/internal/settings"
	"github.com/leandrodaf/midimanager/sdk/contracts"
	"github.com/leandrodaf/midimanager/sdk/midi"
)

type stubService struct {
	opened map[int32]bool
	notes  []uint8
}

func (s *stubService) InputIDs() ([]int32, error)  { return []int32{1, 2}, nil }
func (s *stubService) OutputIDs() ([]int32, error) { return []int32{3}, nil }

func (s *stubService) NameFor(_ contracts.Direction, id int32) (string, bool) {
	return map[int32]string{1: "Keys", 2: "Pads", 3: "Synth"}[id], true
}

func (s *stubService) OpenEndpoint(_ contracts.Direction, id int32) error {
	s.opened[id] = true
	return nil
}

func (s *stubService) CloseEndpoint(_ contracts.Direction, id int32) error {
	delete(s.opened, id)
	return nil
}

func (s *stubService) SendNoteOn(note, _, _ uint8, _ uint64) error {
	s.notes = append(s.notes, note)
	return nil
}

func (s *stubService) SendNoteOff(_, _, _ uint8, _ uint64) error { return nil }
func (s *stubService) SendControlChange(_, _, _ uint8) error     { return nil }
func (s *stubService) SetListener(func(contracts.Event))         {}
func (s *stubService) SetSetupChangeHandler(func())              {}
func (s *stubService) Stop() error                               { return nil }

func newTestModel(t *testing.T) (model, *stubService) {
	t.Helper()
	svc := &stubService{opened: map[int32]bool{}}
	mgr, err := midi.NewMIDIManager(
		contracts.WithLogger(logger.NewNopLogger()),
		contracts.WithSettingsStore(settings.NewMemory()),
		contracts.WithService(svc),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Stop() })

	mgr.Reconcile()
	return newModel(mgr, nil, nil), svc
}

func key(s string) tea.KeyMsg {
	switch s {
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m model, keys ...string) model {
	for _, k := range keys {
		next, _ := m.Update(key(k))
		m = next.(model)
	}
	return m
}

func TestModel_ToggleSelected(t *testing.T) {
	m, svc := newTestModel(t)
	require.Len(t, m.state.Inputs, 2)
	require.True(t, svc.opened[2])

	m = press(m, "down", " ")

	assert.NoError(t, m.err)
	assert.False(t, m.state.Inputs[1].Connected)
	assert.False(t, svc.opened[2])
	assert.True(t, svc.opened[1])
}

func TestModel_TabSwitchesDirection(t *testing.T) {
	m, svc := newTestModel(t)

	m = press(m, "down", "tab")
	assert.Equal(t, contracts.Output, m.dir)
	assert.Equal(t, 0, m.cursor)

	m = press(m, " ")
	assert.False(t, m.state.Outputs[0].Connected)
	assert.False(t, svc.opened[3])
}

func TestModel_ChannelAndNotes(t *testing.T) {
	m, svc := newTestModel(t)

	m = press(m, "+", "+", "-", "n")

	assert.Equal(t, uint8(1), m.state.OutputChannel)
	assert.Equal(t, []uint8{60}, svc.notes)
}

func TestModel_StateMessage(t *testing.T) {
	m, _ := newTestModel(t)
	m.cursor = 1

	next, _ := m.Update(stateMsg(contracts.State{Inputs: []contracts.Endpoint{{ID: 1, Name: "Keys"}}}))
	m = next.(model)

	assert.Equal(t, 0, m.cursor)
	assert.Contains(t, m.View(), "Keys")
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "note on   60 vel 100 ch  1", describe(contracts.Event{Command: contracts.NoteOn, Data1: 60, Data2: 100}))
	assert.Equal(t, "cc  64 = 127 ch 10", describe(contracts.Event{Command: contracts.ControlChange, Data1: 64, Data2: 127, Channel: 9}))
}
