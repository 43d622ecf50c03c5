package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/ikarobotics/signaling/internal/core"
	"github.com/ikarobotics/signaling/internal/domain"
)

func (ctl *SignalWSController) handleJoin(
	id domain.PeerID,
	conn *WsSignalConn,
	data []byte,
) {
	var p core.JoinRoom
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("peer", string(id)).Msg("bad join payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if p.RoomID == "" {
		log.Warn().Str("module", "signal").Str("peer", string(id)).Msg("join without roomId, dropped")
		ctl.sendError(conn, "missing_room")
		return
	}
	if !ctl.Limiter.Allow(id) {
		log.Warn().Str("module", "signal").Str("peer", string(id)).Msg("join rate limited")
		ctl.sendError(conn, "too_many_joins")
		return
	}

	ctl.Orch.Join(id, domain.RoomName(p.RoomID), p.Role)
}

func (ctl *SignalWSController) handleStream(
	id domain.PeerID,
	conn *WsSignalConn,
	data []byte,
) {
	var p core.CameraStream
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("peer", string(id)).Msg("bad stream payload")
		return
	}
	if p.RoomID == "" {
		log.Warn().Str("module", "signal").Str("peer", string(id)).Msg("stream without roomId, dropped")
		return
	}

	ctl.Orch.OnStream(id, domain.RoomName(p.RoomID), p.CameraID, p.Frame)
}
