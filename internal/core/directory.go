package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/ikarobotics/signaling/internal/domain"
)

type member struct {
	role string
	sink SignalConnection
}

type roomState struct {
	meta    *domain.Room
	members map[domain.PeerID]*member
}

// MemberInfo is a read-only membership view for APIs (no transport
// fields).
type MemberInfo struct {
	ID   domain.PeerID `json:"id"`
	Role string        `json:"role,omitempty"`
}

type RoomInfo struct {
	Name        domain.RoomName `json:"name"`
	MemberCount int             `json:"client_count"`
	Cameras     []string        `json:"cameras"`
	Members     []MemberInfo    `json:"members"`
}

// Directory owns every live room and its member set. A room exists
// here iff it has at least one member: rooms are created on first join
// and deleted in the same critical section that removes the last
// member, so the map never holds an empty room.
//
// One RWMutex serializes all membership mutations and recipient
// snapshots, and membership notices are fanned out while the lock is
// still held, so for any single room the notification order matches
// the order the mutations were applied. TrySend never blocks, which
// keeps fan-out under the lock safe.
type Directory struct {
	mu    sync.RWMutex
	rooms map[domain.RoomName]*roomState
}

func NewDirectory() *Directory {
	return &Directory{rooms: make(map[domain.RoomName]*roomState)}
}

// Join inserts id into room, creating the room if it does not exist
// yet. Inserting an existing member is a no-op apart from refreshing
// the role. When the insertion is new, notice is delivered to every
// other current member. Returns the member count including id, read
// after the insertion, and whether the insertion was new.
func (d *Directory) Join(room domain.RoomName, id domain.PeerID, role string, sink SignalConnection, notice Frame) (count int, added bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rs, ok := d.rooms[room]
	if !ok {
		rs = &roomState{
			meta:    &domain.Room{Name: room},
			members: make(map[domain.PeerID]*member),
		}
		d.rooms[room] = rs
		log.Info().Str("module", "core.directory").Str("room", string(room)).Msg("room created")
	}

	if m, known := rs.members[id]; known {
		m.role = role
		return len(rs.members), false
	}
	rs.members[id] = &member{role: role, sink: sink}
	log.Info().Str("module", "core.directory").Str("room", string(room)).Str("peer", string(id)).Msg("member added")

	if notice != nil {
		for other, m := range rs.members {
			if other == id {
				continue
			}
			_ = m.sink.TrySend(notice)
		}
	}
	return len(rs.members), true
}

// Leave removes id from room. Removing the last member deletes the
// room in the same critical section; otherwise notice is delivered to
// every remaining member. Unknown room or non-member is a no-op.
func (d *Directory) Leave(room domain.RoomName, id domain.PeerID, notice Frame) (removed, empty bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rs, ok := d.rooms[room]
	if !ok {
		return false, false
	}
	if _, known := rs.members[id]; !known {
		return false, false
	}
	delete(rs.members, id)
	log.Info().Str("module", "core.directory").Str("room", string(room)).Str("peer", string(id)).Msg("member removed")

	if len(rs.members) == 0 {
		delete(d.rooms, room)
		log.Info().Str("module", "core.directory").Str("room", string(room)).Msg("room deleted")
		return true, true
	}
	if notice != nil {
		for _, m := range rs.members {
			_ = m.sink.TrySend(notice)
		}
	}
	return true, false
}

// Broadcast delivers frame to every member of room except from. An
// unknown room is a silent no-op: payloads may legitimately race with
// room teardown. Delivery is best-effort; refused sends are reported,
// never retried.
func (d *Directory) Broadcast(room domain.RoomName, from domain.PeerID, frame Frame) PublishResult {
	d.mu.RLock()
	defer d.mu.RUnlock()

	res := PublishResult{}
	rs, ok := d.rooms[room]
	if !ok || frame == nil {
		return res
	}
	for id, m := range rs.members {
		if id == from {
			continue
		}
		if err := m.sink.TrySend(frame); err != nil {
			res.Dropped = append(res.Dropped, id)
			continue
		}
		res.SentTo++
	}
	log.Debug().Str("module", "core.directory").Str("room", string(room)).Str("from", string(from)).Int("sent_to", res.SentTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

// RoomsContaining returns every room currently listing id as a member.
// There is no reverse index; this scans all rooms, which is fine at
// the cardinalities this server is built for.
func (d *Directory) RoomsContaining(id domain.PeerID) []domain.RoomName {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []domain.RoomName
	for name, rs := range d.rooms {
		if _, ok := rs.members[id]; ok {
			out = append(out, name)
		}
	}
	return out
}

// NoteCamera records a declared camera identifier on the room, if the
// room still exists.
func (d *Directory) NoteCamera(room domain.RoomName, cameraID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if rs, ok := d.rooms[room]; ok {
		rs.meta.NoteCamera(cameraID)
	}
}

func (d *Directory) Has(room domain.RoomName) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.rooms[room]
	return ok
}

// Count reports the number of live rooms, for health reporting.
func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rooms)
}

func (d *Directory) List() []RoomInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]RoomInfo, 0, len(d.rooms))
	for name, rs := range d.rooms {
		info := RoomInfo{
			Name:        name,
			MemberCount: len(rs.members),
			Cameras:     append([]string(nil), rs.meta.Cameras...),
			Members:     make([]MemberInfo, 0, len(rs.members)),
		}
		for id, m := range rs.members {
			info.Members = append(info.Members, MemberInfo{ID: id, Role: m.role})
		}
		out = append(out, info)
	}
	return out
}
