package signal

import (
	"encoding/json"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/ikarobotics/signaling/internal/app"
	"github.com/ikarobotics/signaling/internal/config"
	"github.com/ikarobotics/signaling/internal/core"
	"github.com/ikarobotics/signaling/internal/domain"
)

type fakeWS struct{}

func (fakeWS) ReadMessage() (int, []byte, error) { return 0, nil, io.EOF }
func (fakeWS) WriteMessage(int, []byte) error    { return nil }
func (fakeWS) SetReadLimit(int64)                {}
func (fakeWS) SetWriteDeadline(time.Time) error  { return nil }
func (fakeWS) Close() error                      { return nil }

func testConfig() *config.Config {
	return &config.Config{
		Mode:         "release",
		ReadLimit:    1 << 20,
		PingPeriod:   54 * time.Second,
		WriteTimeout: 5 * time.Second,
		SendBuffer:   16,
		JoinRate:     10,
		JoinWindow:   10 * time.Second,
	}
}

func newTestController(cfg *config.Config) *SignalWSController {
	orch := &app.Orchestrator{
		Registry: app.NewRegistry(),
		Rooms:    core.NewDirectory(),
		Policy:   app.DropPolicy{},
	}
	return NewSignalWSController(cfg, orch)
}

// attach registers a connection the way HandleSignal would, without a
// real socket.
func attach(ctl *SignalWSController) (domain.PeerID, *WsSignalConn) {
	conn := &WsSignalConn{conn: fakeWS{}, send: make(chan core.Frame, 16)}
	return ctl.Orch.Registry.Register(conn), conn
}

func recv(t *testing.T, c *WsSignalConn) map[string]any {
	t.Helper()
	select {
	case f := <-c.send:
		var m map[string]any
		if err := json.Unmarshal(f, &m); err != nil {
			t.Fatalf("undecodable frame %q: %v", f, err)
		}
		return m
	default:
		t.Fatalf("no frame queued")
		return nil
	}
}

func assertEmpty(t *testing.T, c *WsSignalConn) {
	t.Helper()
	select {
	case f := <-c.send:
		t.Fatalf("unexpected frame %s", f)
	default:
	}
}

func TestHandleSignal_BadJSONIsDropped(t *testing.T) {
	ctl := newTestController(testConfig())
	id, conn := attach(ctl)

	ctl.handleSignal(id, conn, []byte(`{not json`))
	assertEmpty(t, conn)
	if ctl.Orch.Rooms.Count() != 0 {
		t.Fatalf("malformed event must not touch the directory")
	}
}

func TestHandleSignal_UnknownTypeIsIgnored(t *testing.T) {
	ctl := newTestController(testConfig())
	id, conn := attach(ctl)

	ctl.handleSignal(id, conn, []byte(`{"type":"teleport","roomId":"r1"}`))
	assertEmpty(t, conn)
}

func TestHandleSignal_JoinAndPeerNotification(t *testing.T) {
	ctl := newTestController(testConfig())
	xID, x := attach(ctl)
	yID, y := attach(ctl)

	ctl.handleSignal(xID, x, []byte(`{"type":"join-room","roomId":"r1","role":"sender"}`))
	ack := recv(t, x)
	if ack["type"] != core.EventRoomJoined || ack["participants"] != float64(1) {
		t.Fatalf("bad ack: %v", ack)
	}

	ctl.handleSignal(yID, y, []byte(`{"type":"join-room","roomId":"r1","role":"viewer"}`))
	if got := recv(t, y); got["participants"] != float64(2) {
		t.Fatalf("bad second ack: %v", got)
	}
	pj := recv(t, x)
	if pj["type"] != core.EventPeerJoined || pj["peerId"] != string(yID) || pj["role"] != "viewer" {
		t.Fatalf("bad peer-joined: %v", pj)
	}
	assertEmpty(t, y)
}

func TestHandleSignal_JoinWithoutRoomID(t *testing.T) {
	ctl := newTestController(testConfig())
	id, conn := attach(ctl)

	ctl.handleSignal(id, conn, []byte(`{"type":"join-room"}`))
	if got := recv(t, conn); got["type"] != core.EventError || got["error"] != "missing_room" {
		t.Fatalf("expected missing_room error, got %v", got)
	}
	if ctl.Orch.Rooms.Count() != 0 {
		t.Fatalf("no room should have been created")
	}
}

func TestHandleSignal_StreamIsRelayed(t *testing.T) {
	ctl := newTestController(testConfig())
	xID, x := attach(ctl)
	yID, y := attach(ctl)
	ctl.handleSignal(xID, x, []byte(`{"type":"join-room","roomId":"r1"}`))
	ctl.handleSignal(yID, y, []byte(`{"type":"join-room","roomId":"r1"}`))
	recv(t, x) // ack
	recv(t, x) // peer-joined
	recv(t, y) // ack

	ctl.handleSignal(xID, x, []byte(`{"type":"camera-stream","roomId":"r1","cameraId":"cam0","frame":"abc"}`))
	frame := recv(t, y)
	if frame["type"] != core.EventCameraFrame || frame["cameraId"] != "cam0" || frame["frame"] != "abc" {
		t.Fatalf("bad relayed frame: %v", frame)
	}
	if _, ok := frame["timestamp"]; !ok {
		t.Fatalf("relayed frame not stamped: %v", frame)
	}
	assertEmpty(t, x)
}

func TestHandleSignal_Ping(t *testing.T) {
	ctl := newTestController(testConfig())
	id, conn := attach(ctl)

	ctl.handleSignal(id, conn, []byte(`{"type":"ping"}`))
	if got := recv(t, conn); got["type"] != core.EventPong {
		t.Fatalf("expected pong, got %v", got)
	}
}

func TestHandleSignal_JoinRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.JoinRate = 1
	ctl := newTestController(cfg)
	id, conn := attach(ctl)

	ctl.handleSignal(id, conn, []byte(`{"type":"join-room","roomId":"r1"}`))
	recv(t, conn) // ack
	ctl.handleSignal(id, conn, []byte(`{"type":"join-room","roomId":"r2"}`))
	if got := recv(t, conn); got["type"] != core.EventError || got["error"] != "too_many_joins" {
		t.Fatalf("expected too_many_joins, got %v", got)
	}
	if ctl.Orch.Rooms.Has("r2") {
		t.Fatalf("throttled join must not create the room")
	}
}

func TestWsSignalConn_TrySend(t *testing.T) {
	c := &WsSignalConn{conn: fakeWS{}, send: make(chan core.Frame, 1)}

	if err := c.TrySend(core.Frame(`{}`)); err != nil {
		t.Fatalf("send into empty buffer: %v", err)
	}
	if err := c.TrySend(core.Frame(`{}`)); err != ErrBackpressure {
		t.Fatalf("expected ErrBackpressure on full buffer, got %v", err)
	}
	if err := c.TrySend(nil); err != nil {
		t.Fatalf("nil frame is a no-op, got %v", err)
	}

	c.Close()
	c.Close() // idempotent
	if err := c.TrySend(core.Frame(`{}`)); err != ErrClosed {
		t.Fatalf("expected ErrClosed after Close, got %v", err)
	}
}

func TestWsSignalConn_CloseDrainsSafely(t *testing.T) {
	c := &WsSignalConn{conn: fakeWS{}, send: make(chan core.Frame, 4)}
	for i := 0; i < 4; i++ {
		if err := c.TrySend(core.Frame(fmt.Sprintf(`{"n":%d}`, i))); err != nil {
			t.Fatalf("fill: %v", err)
		}
	}
	c.Close()

	// The write pump drains remaining frames and then sees the closed
	// channel.
	n := 0
	for range c.send {
		n++
	}
	if n != 4 {
		t.Fatalf("expected 4 buffered frames, drained %d", n)
	}
}
