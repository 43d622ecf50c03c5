package app

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ikarobotics/signaling/internal/core"
	"github.com/ikarobotics/signaling/internal/domain"
)

// Registry tracks every live connection and its outbound sink. It is
// the only place peer identities are minted.
type Registry struct {
	mu    sync.RWMutex
	conns map[domain.PeerID]core.SignalConnection
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[domain.PeerID]core.SignalConnection)}
}

// Register issues a fresh identity for a new transport connection.
// Identities are unique for the process lifetime and never reused.
func (r *Registry) Register(conn core.SignalConnection) domain.PeerID {
	id := domain.PeerID(uuid.NewString())
	r.mu.Lock()
	r.conns[id] = conn
	r.mu.Unlock()
	log.Info().Str("module", "app.registry").Str("peer", string(id)).Msg("connection registered")
	return id
}

// Unregister frees the entry. Safe to call for an identity that was
// never registered, or twice.
func (r *Registry) Unregister(id domain.PeerID) {
	r.mu.Lock()
	_, ok := r.conns[id]
	delete(r.conns, id)
	r.mu.Unlock()
	if ok {
		log.Info().Str("module", "app.registry").Str("peer", string(id)).Msg("connection unregistered")
	}
}

func (r *Registry) Get(id domain.PeerID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[id]
	return conn, ok
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
