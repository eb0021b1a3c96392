package models

// DispatchView is the live projection a driver sees. When Active is set the
// driver is inside a trip and Open is left empty.
type DispatchView struct {
	Active *RideRequest  `json:"active,omitempty"`
	Open   []RideRequest `json:"open"`
}

// WSMessage is the envelope of every websocket frame.
type WSMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}
