// Package midi holds the wire helpers shared by every MIDI service backend.
package midi

import (
	"hash/fnv"
	"time"

	"github.com/leandrodaf/midimanager/sdk/contracts"
	gomidi "gitlab.com/gomidi/midi/v2"
)

// Now returns the timestamp stamped on events whose backend supplies none.
func Now() uint64 {
	return uint64(time.Now().UTC().UnixNano())
}

// Decode turns one channel voice message into an Event.
// A note on with velocity 0 is reported as a note off.
func Decode(data []byte, portID int32, timestamp uint64) (contracts.Event, bool) {
	msg := gomidi.Message(data)
	var ch, d1, d2 uint8

	ev := contracts.Event{PortID: portID, Timestamp: timestamp}
	switch {
	case msg.GetNoteOn(&ch, &d1, &d2):
		ev.Command = contracts.NoteOn
		if d2 == 0 {
			ev.Command = contracts.NoteOff
		}
	case msg.GetNoteOff(&ch, &d1, &d2):
		ev.Command = contracts.NoteOff
	case msg.GetControlChange(&ch, &d1, &d2):
		ev.Command = contracts.ControlChange
	default:
		return contracts.Event{}, false
	}
	ev.Channel, ev.Data1, ev.Data2 = ch, d1, d2
	return ev, true
}

// DecodeAll decodes every supported message in a packet that may carry several,
// including running status. Real-time bytes may sit anywhere and are skipped; a status byte
// arriving mid-message abandons the incomplete one. SysEx and system common messages are
// skipped and cancel running status.
func DecodeAll(data []byte, portID int32, timestamp uint64) []contracts.Event {
	var events []contracts.Event
	var running byte
	var args [2]byte
	have := 0
	inSysEx := false

	for _, b := range data {
		if b >= 0xF8 {
			continue
		}
		if inSysEx {
			if b < 0x80 {
				continue
			}
			inSysEx = false
			if b == 0xF7 {
				continue
			}
		}

		switch {
		case b == 0xF0:
			inSysEx = true
			running, have = 0, 0
		case b >= 0xF1:
			running, have = 0, 0
		case b >= 0x80:
			running, have = b, 0
		case running == 0:
			// data byte with no status to attach to
		default:
			args[have] = b
			have++
			if n := dataLength(running); have == n {
				msg := []byte{running, args[0], args[1]}[:n+1]
				if ev, ok := Decode(msg, portID, timestamp); ok {
					events = append(events, ev)
				}
				have = 0
			}
		}
	}
	return events
}

func dataLength(status byte) int {
	switch status & 0xF0 {
	case 0xC0, 0xD0:
		return 1
	default:
		return 2
	}
}

// NoteOn encodes an outbound note on.
func NoteOn(note, velocity, channel uint8) []byte {
	return gomidi.NoteOn(channel&0x0F, note&0x7F, velocity&0x7F)
}

// NoteOff encodes an outbound note off with release velocity.
func NoteOff(note, velocity, channel uint8) []byte {
	return gomidi.NoteOffVelocity(channel&0x0F, note&0x7F, velocity&0x7F)
}

// ControlChange encodes an outbound control change.
func ControlChange(controller, value, channel uint8) []byte {
	return gomidi.ControlChange(channel&0x0F, controller&0x7F, value&0x7F)
}

// StableID derives a session-stable endpoint identity from a port name.
// The nth repeat of a name (n > 0) hashes to a different identity.
func StableID(name string, n int) int32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	if n > 0 {
		_, _ = h.Write([]byte{0, byte(n), byte(n >> 8)})
	}
	return int32(h.Sum32())
}
