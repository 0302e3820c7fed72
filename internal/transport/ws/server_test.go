package ws

import (
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"voxelfracture.ai/internal/protocol"
	"voxelfracture.ai/internal/sim/world"
)

type fakeSim struct {
	inbox chan world.CollisionEnvelope
	join  chan world.SubscribeRequest
	leave chan string
}

func newFakeSim() *fakeSim {
	return &fakeSim{
		inbox: make(chan world.CollisionEnvelope, 4),
		join:  make(chan world.SubscribeRequest, 4),
		leave: make(chan string, 4),
	}
}

func (f *fakeSim) Inbox() chan<- world.CollisionEnvelope { return f.inbox }
func (f *fakeSim) Join() chan<- world.SubscribeRequest   { return f.join }
func (f *fakeSim) Leave() chan<- string                  { return f.leave }

func dial(t *testing.T, sim *fakeSim) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(NewServer(sim, log.New(io.Discard, "", 0)).Handler())
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

const collisionsMsg = `{
  "type":"COLLISIONS","protocol_version":"1.0","tick":4,
  "collisions":[{"first":1,"second":2,
    "velocity_first":[-1,0,0],"velocity_second":[1,0,0],
    "point":[1,0.5,0.5],"normal_on_first":[-1,0,0],"timestep":0.03}]
}`

func TestServer_ForwardsCollisions(t *testing.T) {
	sim := newFakeSim()
	conn := dial(t, sim)

	var sub world.SubscribeRequest
	select {
	case sub = <-sim.join:
	case <-time.After(2 * time.Second):
		t.Fatalf("client never subscribed")
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(collisionsMsg)); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case env := <-sim.inbox:
		if env.ClientID != sub.ClientID || len(env.Collisions) != 1 {
			t.Fatalf("envelope: %+v", env)
		}
		c := env.Collisions[0]
		if c.First != 1 || c.Second != 2 || c.Point[0] != 1 || c.Timestep != 0.03 {
			t.Fatalf("collision: %+v", c)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("collisions not forwarded")
	}

	// Messages the world pushes to the client reach the socket.
	sub.Out <- []byte(`{"type":"TICK"}`)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, b, err := conn.ReadMessage()
	if err != nil || string(b) != `{"type":"TICK"}` {
		t.Fatalf("read: %q %v", b, err)
	}
}

func TestServer_RejectsInvalidMessages(t *testing.T) {
	cases := map[string]string{
		`not json`: protocol.ErrProtoBadRequest,
		`{"type":"HELLO","protocol_version":"1.0"}`:                  protocol.ErrProtoBadRequest,
		`{"type":"COLLISIONS","protocol_version":"0.1","collisions":[]}`: protocol.ErrProtoVersion,
		`{"type":"COLLISIONS","protocol_version":"1.0","collisions":[{"first":1}]}`: protocol.ErrProtoBadRequest,
	}
	for raw, want := range cases {
		sim := newFakeSim()
		conn := dial(t, sim)
		if err := conn.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
			t.Fatalf("write: %v", err)
		}
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, b, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("%s: read: %v", raw, err)
		}
		var msg protocol.ErrorMsg
		if err := json.Unmarshal(b, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if msg.Type != protocol.TypeError || msg.Code != want {
			t.Fatalf("%s: got %+v want code %s", raw, msg, want)
		}
		if len(sim.inbox) != 0 {
			t.Fatalf("%s: invalid message reached the inbox", raw)
		}
	}
}

func TestServer_LeavesOnDisconnect(t *testing.T) {
	sim := newFakeSim()
	conn := dial(t, sim)
	sub := <-sim.join
	conn.Close()
	select {
	case id := <-sim.leave:
		if id != sub.ClientID {
			t.Fatalf("leave id: got %s want %s", id, sub.ClientID)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no leave after disconnect")
	}
}
