package domain

type RoomName string

// Room is room metadata without membership. The member set lives in the
// core directory, because membership and room lifecycle must change
// under one lock.
type Room struct {
	Name RoomName
	// Cameras accumulates camera identifiers announced in this room.
	// Kept for the rooms listing; the relay itself never reads them.
	Cameras []string
}

// NoteCamera records id once. Empty ids are ignored.
func (r *Room) NoteCamera(id string) {
	if id == "" {
		return
	}
	for _, known := range r.Cameras {
		if known == id {
			return
		}
	}
	r.Cameras = append(r.Cameras, id)
}
