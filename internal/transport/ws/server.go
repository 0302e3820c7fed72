package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gorilla/websocket"

	"voxelfracture.ai/internal/protocol"
	"voxelfracture.ai/internal/sim/destruction"
	"voxelfracture.ai/internal/sim/voxel"
	"voxelfracture.ai/internal/sim/world"
)

// Sim is the world loop side of the transport.
type Sim interface {
	Inbox() chan<- world.CollisionEnvelope
	Join() chan<- world.SubscribeRequest
	Leave() chan<- string
}

type Server struct {
	sim Sim
	log *log.Logger

	nextClient atomic.Uint64
	upgrader   websocket.Upgrader
}

func NewServer(sim Sim, logger *log.Logger) *Server {
	s := &Server{
		sim: sim,
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	return s
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		clientID := fmt.Sprintf("C%d", s.nextClient.Add(1))
		out := make(chan []byte, 32)
		s.sim.Join() <- world.SubscribeRequest{ClientID: clientID, Out: out}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine; the only writer on conn.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			if code, text := s.handleMessage(clientID, msg); code != "" {
				s.sendError(out, code, text)
			}
		}

		// Cleanup.
		s.sim.Leave() <- clientID
	}
}

// handleMessage validates one inbound message and forwards it to the world
// loop. A non-empty code is reported back to the client.
func (s *Server) handleMessage(clientID string, msg []byte) (code, text string) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return protocol.ErrProtoBadRequest, "malformed json"
	}
	if base.Type != protocol.TypeCollisions {
		return protocol.ErrProtoBadRequest, fmt.Sprintf("unexpected message type %q", base.Type)
	}
	if base.ProtocolVersion != protocol.Version {
		return protocol.ErrProtoVersion, fmt.Sprintf("protocol_version %q not supported; want %q", base.ProtocolVersion, protocol.Version)
	}
	if err := protocol.Validate(protocol.TypeCollisions, msg); err != nil {
		return protocol.ErrProtoBadRequest, err.Error()
	}
	var m protocol.CollisionsMsg
	if err := json.Unmarshal(msg, &m); err != nil {
		return protocol.ErrProtoBadRequest, err.Error()
	}
	env := world.CollisionEnvelope{ClientID: clientID, Collisions: FromWire(m.Collisions)}
	select {
	case s.sim.Inbox() <- env:
	default:
		s.log.Printf("client %s: inbox full, rejecting %d collisions", clientID, len(env.Collisions))
		return protocol.ErrBusy, "collision inbox full"
	}
	return "", ""
}

func (s *Server) sendError(out chan []byte, code, text string) {
	b, err := json.Marshal(protocol.NewError(code, text))
	if err != nil {
		return
	}
	select {
	case out <- b:
	default:
	}
}

// FromWire converts wire collision records into engine collisions.
func FromWire(recs []protocol.CollisionRec) []destruction.Collision {
	out := make([]destruction.Collision, 0, len(recs))
	for _, r := range recs {
		out = append(out, destruction.Collision{
			First:          voxel.BodyID(r.First),
			Second:         voxel.BodyID(r.Second),
			VelocityFirst:  mgl64.Vec3(r.VelocityFirst),
			VelocitySecond: mgl64.Vec3(r.VelocitySecond),
			Point:          mgl64.Vec3(r.Point),
			NormalOnFirst:  mgl64.Vec3(r.NormalOnFirst),
			Timestep:       r.Timestep,
		})
	}
	return out
}
