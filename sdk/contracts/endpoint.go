package contracts

import "strconv"

// Direction tells whether an endpoint delivers MIDI to us or receives it from us.
type Direction int

const (
	// Input endpoints are MIDI sources.
	Input Direction = iota
	// Output endpoints are MIDI destinations.
	Output
)

// String returns the direction label used in preference keys.
func (d Direction) String() string {
	if d == Input {
		return "Input"
	}
	return "Output"
}

// EndpointInfo is one endpoint as reported by the MIDI service during discovery.
type EndpointInfo struct {
	ID   int32
	Name string
}

// Endpoint is a tracked MIDI input or output.
// Negative IDs are reserved for mock endpoints but are otherwise ordinary identities.
type Endpoint struct {
	ID        int32     // Identity assigned by the MIDI service, unique per direction.
	Name      string    // Display name.
	Direction Direction // Fixed once the endpoint is created.
	Connected bool      // Whether the endpoint is currently open.
}

// IsInput reports whether the endpoint is a MIDI source.
func (e Endpoint) IsInput() bool { return e.Direction == Input }

// PreferenceKey returns the persisted settings key for an endpoint identity.
func PreferenceKey(id int32, dir Direction) string {
	return dir.String() + "_" + strconv.FormatInt(int64(id), 10)
}

// State is an immutable snapshot of the registry for observers.
type State struct {
	Inputs        []Endpoint
	Outputs       []Endpoint
	OutputChannel uint8
}

// MockEndpoint returns an unconnected input endpoint with a negative identity, for previews and tests.
func MockEndpoint(id int32, name string) Endpoint {
	if id > 0 {
		id = -id
	}
	return Endpoint{ID: id, Name: name, Direction: Input}
}
