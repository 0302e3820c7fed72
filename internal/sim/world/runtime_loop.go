package world

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"voxelfracture.ai/internal/protocol"
	"voxelfracture.ai/internal/sim/destruction"
	"voxelfracture.ai/internal/sim/voxel"
)

func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pending []destruction.Collision
	var pendingAdmin []adminSnapshotReq

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.join:
			w.clients[req.ClientID] = req.Out
		case id := <-w.leave:
			delete(w.clients, id)
		case req := <-w.admin:
			pendingAdmin = append(pendingAdmin, req)
		case env := <-w.inbox:
			w.reportUnknownBodies(env)
			pending = append(pending, env.Collisions...)
		case <-ticker.C:
			w.step(pending)
			w.answerSnapshotRequests(pendingAdmin)
			pending = pending[:0]
			pendingAdmin = pendingAdmin[:0]
		}
	}
}

func (w *World) Stop() { close(w.stop) }

// StepOnce advances the world by a single tick using the same ordering
// semantics as the server. It is intended for replays and tests.
func (w *World) StepOnce(set []destruction.Collision) (tick uint64, digest, worldHash string) {
	entry := w.step(set)
	return entry.Tick, entry.Digest, entry.WorldHash
}

func (w *World) step(set []destruction.Collision) destruction.TickLogEntry {
	start := time.Now()
	nowTick := w.tick.Load()

	batch := w.knownBodies(append([]destruction.Collision(nil), set...))
	rep := w.engine.ProcessSet(nowTick, batch)

	entry := rep.LogEntry(batch)
	entry.WorldHash = w.bodies.Digest()
	if w.tickLogger != nil {
		if err := w.tickLogger.WriteTick(entry); err != nil {
			w.log.Printf("tick %d: write tick log: %v", nowTick, err)
		}
	}
	if len(rep.Bodies) > 0 {
		w.broadcast(tickMessage(rep))
	}

	if every := w.cfg.SnapshotEveryTicks; every > 0 && nowTick > 0 && nowTick%uint64(every) == 0 && w.snapshotSink != nil {
		if _, err := w.offerSnapshot(nowTick); err != nil {
			w.log.Printf("tick %d: periodic snapshot: %v", nowTick, err)
		}
	}

	w.tick.Store(nowTick + 1)
	w.storeMetrics(nowTick+1, float64(time.Since(start).Microseconds())/1000)
	return entry
}

func tickMessage(rep destruction.TickReport) protocol.TickMsg {
	msg := protocol.TickMsg{
		Type:            protocol.TypeTick,
		ProtocolVersion: protocol.Version,
		Tick:            rep.Tick,
		Digest:          rep.Digest,
	}
	for _, b := range rep.Bodies {
		br := protocol.BodyReport{
			ID:         uint64(b.Body),
			Destroyed:  b.Destroyed,
			Snapped:    b.Snapped,
			Separated:  b.Separated,
			HeldEnergy: b.HeldEnergy,
			LostEnergy: b.LostEnergy,
			Render:     protocol.Render{Size: b.Render.Size, StatusRLE: b.Render.StatusRLE},
		}
		for _, f := range b.Fragments {
			br.Fragments = append(br.Fragments, uint64(f))
		}
		msg.Bodies = append(msg.Bodies, br)
	}
	return msg
}

// reportUnknownBodies tells the submitting client about collisions naming
// bodies that do not exist right now. The batch filter at step time still
// decides what reaches the engine, since bodies may change before then.
func (w *World) reportUnknownBodies(env CollisionEnvelope) {
	for _, c := range env.Collisions {
		for _, id := range [2]voxel.BodyID{c.First, c.Second} {
			if _, ok := w.bodies.Body(id); ok {
				continue
			}
			w.sendTo(env.ClientID, protocol.NewError(protocol.ErrUnknownBody, fmt.Sprintf("unknown body %d", id)))
			return
		}
	}
}

func (w *World) sendTo(clientID string, v any) {
	out, ok := w.clients[clientID]
	if !ok {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		w.log.Printf("marshal message for %s: %v", clientID, err)
		return
	}
	select {
	case out <- b:
	default:
		w.dropped.Add(1)
	}
}

// broadcast never blocks the loop; a client with a full queue misses the
// message.
func (w *World) broadcast(v any) {
	if len(w.clients) == 0 {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		w.log.Printf("marshal broadcast: %v", err)
		return
	}
	for id, out := range w.clients {
		select {
		case out <- b:
		default:
			w.dropped.Add(1)
			w.log.Printf("client %s: outbound queue full, dropping tick", id)
		}
	}
}
