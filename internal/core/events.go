package core

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/ikarobotics/signaling/internal/domain"
)

// Wire event types. These match what deployed clients already speak,
// so renaming any of them is a breaking change.
const (
	EventJoinRoom     = "join-room"
	EventCameraStream = "camera-stream"
	EventPing         = "ping"

	EventRoomJoined  = "room-joined"
	EventPeerJoined  = "peer-joined"
	EventCameraFrame = "camera-frame"
	EventPeerLeft    = "peer-left"
	EventPong        = "pong"
	EventError       = "error"
)

// Envelope carries just the discriminator so the adapter can dispatch
// before decoding the full payload.
type Envelope struct {
	Type string `json:"type"`
}

// JoinRoom asks to become a member of RoomID. Role is opaque to the
// server and echoed back verbatim.
type JoinRoom struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
	Role   string `json:"role,omitempty"`
}

// CameraStream carries an opaque payload to relay to the rest of the
// room. Frame is never inspected.
type CameraStream struct {
	Type     string          `json:"type"`
	RoomID   string          `json:"roomId"`
	CameraID string          `json:"cameraId,omitempty"`
	Frame    json.RawMessage `json:"frame,omitempty"`
}

// RoomJoined acknowledges a join to the joiner only. Participants is
// the member count including the joiner, read in the same critical
// section that applied the insertion.
type RoomJoined struct {
	Type         string          `json:"type"`
	RoomID       domain.RoomName `json:"roomId"`
	Role         string          `json:"role,omitempty"`
	Participants int             `json:"participants"`
}

// PeerJoined notifies existing members about a new one. The joiner
// itself never receives it.
type PeerJoined struct {
	Type   string        `json:"type"`
	PeerID domain.PeerID `json:"peerId"`
	Role   string        `json:"role,omitempty"`
}

// CameraFrame is the relayed payload, stamped with the server delivery
// time in Unix milliseconds.
type CameraFrame struct {
	Type      string          `json:"type"`
	CameraID  string          `json:"cameraId,omitempty"`
	Frame     json.RawMessage `json:"frame,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// PeerLeft notifies remaining members about a departure.
type PeerLeft struct {
	Type   string        `json:"type"`
	PeerID domain.PeerID `json:"peerId"`
}

func NewRoomJoined(room domain.RoomName, role string, participants int) RoomJoined {
	return RoomJoined{Type: EventRoomJoined, RoomID: room, Role: role, Participants: participants}
}

func NewPeerJoined(id domain.PeerID, role string) PeerJoined {
	return PeerJoined{Type: EventPeerJoined, PeerID: id, Role: role}
}

func NewCameraFrame(cameraID string, frame json.RawMessage, ts int64) CameraFrame {
	return CameraFrame{Type: EventCameraFrame, CameraID: cameraID, Frame: frame, Timestamp: ts}
}

func NewPeerLeft(id domain.PeerID) PeerLeft {
	return PeerLeft{Type: EventPeerLeft, PeerID: id}
}

// Encode marshals an outbound event. A marshal failure is a programming
// error in an event type; it is logged and a nil frame returned, which
// sinks treat as nothing to send.
func Encode(v any) Frame {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "core.events").Msg("encode event")
		return nil
	}
	return Frame(b)
}
