package world

import (
	"io"
	"log"
	"sync/atomic"

	"voxelfracture.ai/internal/persistence/snapshot"
	"voxelfracture.ai/internal/sim/bodies"
	"voxelfracture.ai/internal/sim/destruction"
)

type WorldConfig struct {
	SceneID            string
	TickRateHz         int
	SnapshotEveryTicks int
	Destruction        destruction.Config
}

// CollisionEnvelope carries one submitted batch into the world loop.
type CollisionEnvelope struct {
	ClientID   string
	Collisions []destruction.Collision
}

type SubscribeRequest struct {
	ClientID string
	Out      chan []byte
}

type TickLogger interface {
	WriteTick(entry destruction.TickLogEntry) error
}

// World is a single-threaded authoritative destruction simulation.
// All state must be accessed only from the world loop goroutine.
type World struct {
	cfg WorldConfig
	log *log.Logger

	tick atomic.Uint64

	bodies *bodies.Registry
	engine *destruction.Engine

	clients map[string]chan []byte

	inbox chan CollisionEnvelope
	join  chan SubscribeRequest
	leave chan string
	admin chan adminSnapshotReq
	stop  chan struct{}

	// Optional (may be nil).
	tickLogger   TickLogger
	snapshotSink chan<- snapshot.SnapshotV1

	dropped atomic.Uint64
	metrics atomic.Value
}

func New(cfg WorldConfig, reg *bodies.Registry, logger *log.Logger) *World {
	if cfg.TickRateHz <= 0 {
		cfg.TickRateHz = 30
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if reg == nil {
		reg = bodies.NewRegistry()
	}
	return &World{
		cfg:     cfg,
		log:     logger,
		bodies:  reg,
		engine:  destruction.New(cfg.Destruction, reg, logger),
		clients: map[string]chan []byte{},
		inbox:   make(chan CollisionEnvelope, 1024),
		join:    make(chan SubscribeRequest, 64),
		leave:   make(chan string, 64),
		admin:   make(chan adminSnapshotReq, 8),
		stop:    make(chan struct{}),
	}
}

func (w *World) SetTickLogger(l TickLogger)                    { w.tickLogger = l }
func (w *World) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { w.snapshotSink = ch }

func (w *World) Inbox() chan<- CollisionEnvelope { return w.inbox }
func (w *World) Join() chan<- SubscribeRequest   { return w.join }
func (w *World) Leave() chan<- string            { return w.leave }

func (w *World) CurrentTick() uint64 { return w.tick.Load() }
func (w *World) SceneID() string     { return w.cfg.SceneID }
func (w *World) TickRateHz() int     { return w.cfg.TickRateHz }

// Bodies exposes the registry. Not safe to use concurrently with Run.
func (w *World) Bodies() *bodies.Registry { return w.bodies }

// ExportSnapshot captures the registry as of the last completed tick.
func (w *World) ExportSnapshot(nowTick uint64) snapshot.SnapshotV1 {
	return w.bodies.ExportSnapshot(w.cfg.SceneID, nowTick)
}

// ImportSnapshot replaces the registry contents and sets the world's tick to
// snapshotTick+1. Call only while the loop is stopped.
func (w *World) ImportSnapshot(s snapshot.SnapshotV1) error {
	if err := w.bodies.ImportSnapshot(s); err != nil {
		return err
	}
	if s.Header.SceneID != "" {
		w.cfg.SceneID = s.Header.SceneID
	}
	w.tick.Store(s.Header.Tick + 1)
	return nil
}

// knownBodies drops collisions that name bodies absent at batch start.
func (w *World) knownBodies(set []destruction.Collision) []destruction.Collision {
	out := set[:0]
	for _, c := range set {
		if _, ok := w.bodies.Body(c.First); !ok {
			w.log.Printf("tick %d: drop collision: unknown body %d", w.tick.Load(), c.First)
			continue
		}
		if _, ok := w.bodies.Body(c.Second); !ok {
			w.log.Printf("tick %d: drop collision: unknown body %d", w.tick.Load(), c.Second)
			continue
		}
		out = append(out, c)
	}
	return out
}
