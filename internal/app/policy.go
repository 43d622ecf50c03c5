package app

import "github.com/ikarobotics/signaling/internal/domain"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

// Policy decides what to do with a member whose sink refused a relayed
// frame.
type Policy interface {
	OnBackPressure(room domain.RoomName, slow domain.PeerID) BackpressureAction
}

// DropPolicy is the default: relay is best-effort, a slow consumer
// loses that one frame and nothing else happens.
type DropPolicy struct{}

func (DropPolicy) OnBackPressure(domain.RoomName, domain.PeerID) BackpressureAction {
	return DropFrame
}

// EvictPolicy removes a slow consumer from the room instead of letting
// it silently miss frames.
type EvictPolicy struct{}

func (EvictPolicy) OnBackPressure(domain.RoomName, domain.PeerID) BackpressureAction {
	return KickMember
}
