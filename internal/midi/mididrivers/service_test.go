package mididrivers

import (
	"errors"
	"sync"
	"testing"

	"github.com/leandrodaf/midimanager/internal/logger"
	"github.com/leandrodaf/midimanager/internal/midi"
	"github.com/leandrodaf/midimanager/sdk/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2/drivers"
)

type fakePort struct {
	name   string
	number int
	open   bool
	closes int
}

func (p *fakePort) Open() error             { p.open = true; return nil }
func (p *fakePort) Close() error            { p.open = false; p.closes++; return nil }
func (p *fakePort) IsOpen() bool            { return p.open }
func (p *fakePort) Number() int             { return p.number }
func (p *fakePort) String() string          { return p.name }
func (p *fakePort) Underlying() interface{} { return nil }

type fakeIn struct {
	fakePort
	mu    sync.Mutex
	onMsg func([]byte, int32)
}

func (in *fakeIn) Listen(onMsg func(msg []byte, milliseconds int32), _ drivers.ListenConfig) (func(), error) {
	in.mu.Lock()
	in.onMsg = onMsg
	in.mu.Unlock()
	return func() {
		in.mu.Lock()
		in.onMsg = nil
		in.mu.Unlock()
	}, nil
}

func (in *fakeIn) emit(data []byte) {
	in.mu.Lock()
	fn := in.onMsg
	in.mu.Unlock()
	if fn != nil {
		fn(data, 0)
	}
}

type fakeOut struct {
	fakePort
	sent    [][]byte
	sendErr error
}

func (out *fakeOut) Send(data []byte) error {
	if out.sendErr != nil {
		return out.sendErr
	}
	out.sent = append(out.sent, append([]byte(nil), data...))
	return nil
}

type fakeDriver struct {
	ins  []*fakeIn
	outs []*fakeOut
}

func (d *fakeDriver) Ins() ([]drivers.In, error) {
	out := make([]drivers.In, len(d.ins))
	for i, p := range d.ins {
		out[i] = p
	}
	return out, nil
}

func (d *fakeDriver) Outs() ([]drivers.Out, error) {
	out := make([]drivers.Out, len(d.outs))
	for i, p := range d.outs {
		out[i] = p
	}
	return out, nil
}

func (d *fakeDriver) String() string { return "fake" }
func (d *fakeDriver) Close() error   { return nil }

type virtualFakeDriver struct {
	fakeDriver
	vin  *fakeIn
	vout *fakeOut
}

func (d *virtualFakeDriver) OpenVirtualIn(name string) (drivers.In, error) {
	d.vin = &fakeIn{fakePort: fakePort{name: name, open: true}}
	return d.vin, nil
}

func (d *virtualFakeDriver) OpenVirtualOut(name string) (drivers.Out, error) {
	d.vout = &fakeOut{fakePort: fakePort{name: name, open: true}}
	return d.vout, nil
}

func newOptions() *contracts.ClientOptions {
	return &contracts.ClientOptions{Logger: logger.NewNopLogger()}
}

func TestService_ListsStableIDsAndNames(t *testing.T) {
	drv := &fakeDriver{
		ins:  []*fakeIn{{fakePort: fakePort{name: "Keys"}}, {fakePort: fakePort{name: "Keys", number: 1}}},
		outs: []*fakeOut{{fakePort: fakePort{name: "Synth"}}},
	}
	s, err := New(newOptions(), drv)
	require.NoError(t, err)

	ins, err := s.InputIDs()
	require.NoError(t, err)
	require.Len(t, ins, 2)
	assert.NotEqual(t, ins[0], ins[1], "same names must still get distinct ids")
	assert.Equal(t, midi.StableID("Keys", 0), ins[0])

	again, err := s.InputIDs()
	require.NoError(t, err)
	assert.Equal(t, ins, again)

	outs, err := s.OutputIDs()
	require.NoError(t, err)
	name, ok := s.NameFor(contracts.Output, outs[0])
	assert.True(t, ok)
	assert.Equal(t, "Synth", name)

	_, ok = s.NameFor(contracts.Input, outs[0]+1)
	assert.False(t, ok)
}

func TestService_InboundEventsReachListener(t *testing.T) {
	in := &fakeIn{fakePort: fakePort{name: "Keys"}}
	s, err := New(newOptions(), &fakeDriver{ins: []*fakeIn{in}})
	require.NoError(t, err)

	ids, err := s.InputIDs()
	require.NoError(t, err)

	var got []contracts.Event
	s.SetListener(func(ev contracts.Event) { got = append(got, ev) })

	in.emit([]byte{0x90, 60, 100})
	assert.Empty(t, got, "closed inputs deliver nothing")

	require.NoError(t, s.OpenEndpoint(contracts.Input, ids[0]))
	require.NoError(t, s.OpenEndpoint(contracts.Input, ids[0]))
	assert.True(t, in.IsOpen())

	in.emit([]byte{0x90, 60, 100})
	in.emit([]byte{0xB1, 1, 64})
	require.Len(t, got, 2)
	assert.Equal(t, contracts.NoteOn, got[0].Command)
	assert.Equal(t, ids[0], got[0].PortID)
	assert.Equal(t, contracts.ControlChange, got[1].Command)
	assert.Equal(t, uint8(1), got[1].Channel)

	require.NoError(t, s.CloseEndpoint(contracts.Input, ids[0]))
	assert.False(t, in.IsOpen())
	in.emit([]byte{0x90, 61, 100})
	assert.Len(t, got, 2)
}

func TestService_SendsToOpenOutputsOnly(t *testing.T) {
	a := &fakeOut{fakePort: fakePort{name: "A"}}
	b := &fakeOut{fakePort: fakePort{name: "B"}}
	s, err := New(newOptions(), &fakeDriver{outs: []*fakeOut{a, b}})
	require.NoError(t, err)

	ids, err := s.OutputIDs()
	require.NoError(t, err)
	require.NoError(t, s.OpenEndpoint(contracts.Output, ids[1]))

	require.NoError(t, s.SendNoteOn(60, 100, 3, 0))
	require.NoError(t, s.SendControlChange(7, 90, 0))
	require.NoError(t, s.SendNoteOff(60, 0, 3, 0))

	assert.Empty(t, a.sent)
	assert.Equal(t, [][]byte{{0x93, 60, 100}, {0xB0, 7, 90}, {0x83, 60, 0}}, b.sent)

	b.sendErr = errors.New("unplugged")
	assert.ErrorIs(t, s.SendNoteOn(60, 1, 0, 0), contracts.ErrServiceUnavailable)
}

func TestService_OpenUnknownEndpoint(t *testing.T) {
	s, err := New(newOptions(), &fakeDriver{})
	require.NoError(t, err)

	assert.ErrorIs(t, s.OpenEndpoint(contracts.Input, 42), contracts.ErrServiceUnavailable)
	assert.NoError(t, s.CloseEndpoint(contracts.Output, 42))
}

func TestService_VirtualPorts(t *testing.T) {
	drv := &virtualFakeDriver{}
	drv.outs = []*fakeOut{{fakePort: fakePort{name: "Host App"}}, {fakePort: fakePort{name: "Synth"}}}

	opts := newOptions()
	opts.CoreMIDIConfig = &contracts.CoreMIDIConfig{VirtualPortName: "Host App"}
	s, err := New(opts, drv)
	require.NoError(t, err)
	require.NotNil(t, drv.vin)

	ids, err := s.OutputIDs()
	require.NoError(t, err)
	assert.Len(t, ids, 1, "our own virtual port is not listed")

	var got []contracts.Event
	s.SetListener(func(ev contracts.Event) { got = append(got, ev) })
	drv.vin.emit([]byte{0x80, 10, 0})
	require.Len(t, got, 1)
	assert.Equal(t, VirtualID("Host App"), got[0].PortID)

	require.NoError(t, s.SendControlChange(1, 2, 3))
	assert.Equal(t, [][]byte{{0xB3, 1, 2}}, drv.vout.sent)

	require.NoError(t, s.Stop())
	assert.False(t, drv.vin.IsOpen())
	assert.False(t, drv.vout.IsOpen())
}
