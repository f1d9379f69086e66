package main

import (
	"sync"

	"github.com/leandrodaf/midimanager/sdk/contracts"
)

// previewService stands in for MIDI hardware. It reports a fixed set of mock endpoints,
// opens nothing, and loops every outbound message back as an inbound event.
type previewService struct {
	mu        sync.Mutex
	endpoints []contracts.Endpoint
	listener  func(contracts.Event)
}

func newPreviewService() *previewService {
	synth := contracts.MockEndpoint(3, "Preview Synth")
	synth.Direction = contracts.Output
	return &previewService{
		endpoints: []contracts.Endpoint{
			contracts.MockEndpoint(1, "Preview Keyboard"),
			contracts.MockEndpoint(2, "Preview Pads"),
			synth,
		},
		listener: func(contracts.Event) {},
	}
}

func (p *previewService) ids(input bool) []int32 {
	var ids []int32
	for _, ep := range p.endpoints {
		if ep.IsInput() == input {
			ids = append(ids, ep.ID)
		}
	}
	return ids
}

func (p *previewService) InputIDs() ([]int32, error)  { return p.ids(true), nil }
func (p *previewService) OutputIDs() ([]int32, error) { return p.ids(false), nil }

func (p *previewService) NameFor(dir contracts.Direction, id int32) (string, bool) {
	for _, ep := range p.endpoints {
		if ep.ID == id && ep.Direction == dir {
			return ep.Name, true
		}
	}
	return "", false
}

func (p *previewService) OpenEndpoint(contracts.Direction, int32) error  { return nil }
func (p *previewService) CloseEndpoint(contracts.Direction, int32) error { return nil }

func (p *previewService) SendNoteOn(note, velocity, channel uint8, timestamp uint64) error {
	p.loopback(contracts.Event{Command: contracts.NoteOn, Channel: channel, Data1: note, Data2: velocity, Timestamp: timestamp})
	return nil
}

func (p *previewService) SendNoteOff(note, velocity, channel uint8, timestamp uint64) error {
	p.loopback(contracts.Event{Command: contracts.NoteOff, Channel: channel, Data1: note, Data2: velocity, Timestamp: timestamp})
	return nil
}

func (p *previewService) SendControlChange(controller, value, channel uint8) error {
	p.loopback(contracts.Event{Command: contracts.ControlChange, Channel: channel, Data1: controller, Data2: value})
	return nil
}

func (p *previewService) loopback(ev contracts.Event) {
	ev.PortID = p.endpoints[0].ID
	p.mu.Lock()
	fn := p.listener
	p.mu.Unlock()
	fn(ev)
}

func (p *previewService) SetListener(fn func(contracts.Event)) {
	if fn == nil {
		fn = func(contracts.Event) {}
	}
	p.mu.Lock()
	p.listener = fn
	p.mu.Unlock()
}

func (p *previewService) SetSetupChangeHandler(func()) {}
func (p *previewService) Stop() error                  { return nil }
