// Package domain contains entities without logic, just meta-data
package domain

// PeerID is an opaque server-assigned token, unique for the lifetime of
// one transport connection. Never reused.
type PeerID string
