package ingest

import "errors"

// Message types exchanged with the ground station websocket API.
const (
	TypeBeaconListen = "BeaconListen"
	TypeBeacon       = "Beacon"
	TypeError        = "Error"
)

var (
	ErrRemote  = errors.New("ingest: remote error")
	ErrNoURL   = errors.New("ingest: url required")
	ErrNoFrame = errors.New("ingest: beacon without frame")
)

// Envelope is the JSON message shape. AX25Frame travels base64 encoded,
// which encoding/json does for byte slices.
type Envelope struct {
	Type      string `json:"type"`
	ID        int    `json:"id,omitempty"`
	RequestID int    `json:"requestId,omitempty"`
	AX25Frame []byte `json:"ax25Frame,omitempty"`
	Message   string `json:"message,omitempty"`
}

// ListenRequest asks the ground station to stream beacons tagged with id.
func ListenRequest(id int) Envelope {
	return Envelope{Type: TypeBeaconListen, ID: id}
}
