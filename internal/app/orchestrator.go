package app

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ikarobotics/signaling/internal/core"
	"github.com/ikarobotics/signaling/internal/domain"
)

// Orchestrator dispatches inbound connection events to the room
// directory and pushes the resulting notifications into peer sinks.
// One instance serves every connection.
type Orchestrator struct {
	Registry *Registry
	Rooms    *core.Directory
	Policy   Policy

	// Clock stamps relayed frames; nil means time.Now. Injected by
	// tests.
	Clock func() time.Time
}

func (o *Orchestrator) now() time.Time {
	if o.Clock != nil {
		return o.Clock()
	}
	return time.Now()
}

// Join runs the membership protocol: insert into the room (creating it
// if needed), notify the other members, acknowledge to the joiner with
// the post-insert member count. Re-joining a room is idempotent: the
// ack is re-sent, nobody else is notified again.
func (o *Orchestrator) Join(id domain.PeerID, room domain.RoomName, role string) {
	if room == "" {
		log.Warn().Str("module", "app.orchestrator").Str("peer", string(id)).Msg("join without room, dropped")
		return
	}
	sink, ok := o.Registry.Get(id)
	if !ok {
		log.Warn().Str("module", "app.orchestrator").Str("peer", string(id)).Msg("join from unregistered connection, dropped")
		return
	}

	notice := core.Encode(core.NewPeerJoined(id, role))
	count, added := o.Rooms.Join(room, id, role, sink, notice)

	if err := sink.TrySend(core.Encode(core.NewRoomJoined(room, role, count))); err != nil {
		log.Debug().Str("module", "app.orchestrator").Str("peer", string(id)).Err(err).Msg("join ack dropped")
	}
	log.Info().Str("module", "app.orchestrator").Str("peer", string(id)).Str("room", string(room)).Str("role", role).Int("participants", count).Bool("rejoin", !added).Msg("joined room")
}

// OnStream relays an opaque payload to every other member of the room,
// stamped with the server delivery time. An unknown room is a silent
// no-op: the payload may have raced with room teardown.
func (o *Orchestrator) OnStream(id domain.PeerID, room domain.RoomName, cameraID string, frame json.RawMessage) {
	if room == "" {
		log.Warn().Str("module", "app.orchestrator").Str("peer", string(id)).Msg("stream without room, dropped")
		return
	}
	o.Rooms.NoteCamera(room, cameraID)

	out := core.Encode(core.NewCameraFrame(cameraID, frame, o.now().UnixMilli()))
	res := o.Rooms.Broadcast(room, id, out)
	if o.Policy == nil {
		return
	}
	for _, slow := range res.Dropped {
		switch o.Policy.OnBackPressure(room, slow) {
		case KickMember:
			o.kick(room, slow)
		case DropFrame, NoAction:
		}
	}
}

// kick removes a single member from one room and tells the remaining
// members it left. Its other room memberships are untouched.
func (o *Orchestrator) kick(room domain.RoomName, id domain.PeerID) {
	removed, _ := o.Rooms.Leave(room, id, core.Encode(core.NewPeerLeft(id)))
	if removed {
		log.Warn().Str("module", "app.orchestrator").Str("peer", string(id)).Str("room", string(room)).Msg("kicked slow member")
	}
}

// OnDisconnect reconciles a terminated connection: remove the identity
// from every room it belonged to, notifying remaining members per
// room, then free the registry entry. Each room is processed
// independently. Calling this for an identity with no memberships is a
// no-op beyond unregistering.
func (o *Orchestrator) OnDisconnect(id domain.PeerID) {
	for _, room := range o.Rooms.RoomsContaining(id) {
		removed, empty := o.Rooms.Leave(room, id, core.Encode(core.NewPeerLeft(id)))
		log.Info().Str("module", "app.orchestrator").Str("peer", string(id)).Str("room", string(room)).Bool("removed", removed).Bool("room_gone", empty).Msg("left room on disconnect")
	}
	o.Registry.Unregister(id)
}
