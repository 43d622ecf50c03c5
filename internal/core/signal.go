package core

import "github.com/ikarobotics/signaling/internal/domain"

// Frame is one encoded wire event.
type Frame []byte

// SignalConnection abstracts the outbound side of a transport
// connection. Owned by the adapter; the adapter must Close() it.
// TrySend never blocks: a full or closed connection returns an error
// and the frame is lost for that one recipient.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// PublishResult reports delivery stats/backpressure to the orchestrator.
type PublishResult struct {
	SentTo  int
	Dropped []domain.PeerID
}
