package world

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"voxelfracture.ai/internal/persistence/snapshot"
	"voxelfracture.ai/internal/protocol"
	"voxelfracture.ai/internal/sim/bodies"
	"voxelfracture.ai/internal/sim/destruction"
	"voxelfracture.ai/internal/sim/tuning"
	"voxelfracture.ai/internal/sim/voxel"
)

type memTickLog struct{ entries []destruction.TickLogEntry }

func (m *memTickLog) WriteTick(e destruction.TickLogEntry) error {
	m.entries = append(m.entries, e)
	return nil
}

func newTestWorld(t *testing.T) (*World, voxel.BodyID, voxel.BodyID) {
	t.Helper()
	r := bodies.NewRegistry()
	a := r.Add(voxel.Box(voxel.C(1, 1, 1), 1), voxel.NewPose(mgl64.Vec3{0, 0, 0}, 1), 1)
	b := r.Add(voxel.Box(voxel.C(1, 1, 1), 1), voxel.NewPose(mgl64.Vec3{1, 0, 0}, 1), 1)
	cfg := destruction.ConfigFromTuning(tuning.Defaults())
	w := New(WorldConfig{SceneID: "test", TickRateHz: 30, SnapshotEveryTicks: 2, Destruction: cfg}, r, nil)
	return w, a, b
}

func smash(a, b voxel.BodyID) destruction.Collision {
	return destruction.Collision{
		First:          a,
		Second:         b,
		VelocityFirst:  mgl64.Vec3{-10, 0, 0},
		VelocitySecond: mgl64.Vec3{10, 0, 0},
		Point:          mgl64.Vec3{1, 0.5, 0.5},
		NormalOnFirst:  mgl64.Vec3{-1, 0, 0},
		Timestep:       1.0 / 30,
	}
}

func TestStepOnce_LogsEveryTick(t *testing.T) {
	w, a, b := newTestWorld(t)
	tl := &memTickLog{}
	w.SetTickLogger(tl)

	tick, _, _ := w.StepOnce(nil)
	if tick != 0 || w.CurrentTick() != 1 {
		t.Fatalf("tick: got %d/%d", tick, w.CurrentTick())
	}
	w.StepOnce([]destruction.Collision{smash(a, b)})

	if len(tl.entries) != 2 {
		t.Fatalf("entries: got %d want 2", len(tl.entries))
	}
	e := tl.entries[1]
	if e.Tick != 1 || len(e.Collisions) != 1 || len(e.Bodies) != 2 {
		t.Fatalf("entry: %+v", e)
	}
	if e.WorldHash != w.Bodies().Digest() {
		t.Fatalf("world hash mismatch")
	}
	if w.Bodies().Len() != 0 {
		t.Fatalf("bodies left: %v", w.Bodies().IDs())
	}
}

func TestStepOnce_DropsUnknownBodies(t *testing.T) {
	w, a, _ := newTestWorld(t)
	tl := &memTickLog{}
	w.SetTickLogger(tl)

	w.StepOnce([]destruction.Collision{smash(a, 99)})

	if len(tl.entries[0].Collisions) != 0 || len(tl.entries[0].Bodies) != 0 {
		t.Fatalf("unknown body collision processed: %+v", tl.entries[0])
	}
	if w.Bodies().Len() != 2 {
		t.Fatalf("registry changed")
	}
}

func TestStepOnce_SnapshotCadence(t *testing.T) {
	w, _, _ := newTestWorld(t)
	sink := make(chan snapshot.SnapshotV1, 4)
	w.SetSnapshotSink(sink)

	for i := 0; i < 5; i++ {
		w.StepOnce(nil)
	}
	var ticks []uint64
	for len(sink) > 0 {
		ticks = append(ticks, (<-sink).Header.Tick)
	}
	if len(ticks) != 2 || ticks[0] != 2 || ticks[1] != 4 {
		t.Fatalf("snapshot ticks: %v", ticks)
	}
}

func TestImportSnapshot_ResumesAtNextTick(t *testing.T) {
	w, a, b := newTestWorld(t)
	w.StepOnce(nil)
	snap := w.ExportSnapshot(0)

	r := bodies.NewRegistry()
	w2 := New(WorldConfig{TickRateHz: 30, Destruction: destruction.ConfigFromTuning(tuning.Defaults())}, r, nil)
	if err := w2.ImportSnapshot(snap); err != nil {
		t.Fatalf("import: %v", err)
	}
	if w2.CurrentTick() != 1 || w2.SceneID() != "test" {
		t.Fatalf("resume: tick=%d scene=%q", w2.CurrentTick(), w2.SceneID())
	}

	set := []destruction.Collision{smash(a, b)}
	_, d1, h1 := w.StepOnce(set)
	_, d2, h2 := w2.StepOnce(set)
	if d1 != d2 || h1 != h2 {
		t.Fatalf("resumed world diverged")
	}
}

func TestRun_BroadcastsTickToSubscribers(t *testing.T) {
	w, a, b := newTestWorld(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	out := make(chan []byte, 4)
	w.Join() <- SubscribeRequest{ClientID: "c1", Out: out}
	w.Inbox() <- CollisionEnvelope{ClientID: "c1", Collisions: []destruction.Collision{smash(a, b)}}

	select {
	case raw := <-out:
		if err := protocol.Validate(protocol.TypeTick, raw); err != nil {
			t.Fatalf("tick message invalid: %v", err)
		}
		var msg protocol.TickMsg
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if len(msg.Bodies) != 2 || msg.Bodies[0].Destroyed != 1 {
			t.Fatalf("tick message: %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no tick broadcast")
	}
}

func TestRequestSnapshot(t *testing.T) {
	w, _, _ := newTestWorld(t)
	w.cfg.SnapshotEveryTicks = 0
	sink := make(chan snapshot.SnapshotV1, 1)
	w.SetSnapshotSink(sink)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	info, err := w.RequestSnapshot(ctx)
	if err != nil {
		t.Fatalf("request snapshot: %v", err)
	}
	if info.Bodies != 2 || info.Voxels != 2 {
		t.Fatalf("snapshot info: %+v", info)
	}
	snap := <-sink
	if snap.Header.SceneID != "test" || len(snap.Bodies) != 2 || snap.Header.Tick != info.Tick {
		t.Fatalf("snapshot: %+v", snap.Header)
	}
}

func TestAnswerSnapshotRequests_Errors(t *testing.T) {
	w, _, _ := newTestWorld(t)
	done := make(chan snapshotResult, 1)

	w.answerSnapshotRequests([]adminSnapshotReq{{done: done}})
	if r := <-done; !errors.Is(r.err, ErrNoSnapshotSink) {
		t.Fatalf("no sink: got %v", r.err)
	}

	sink := make(chan snapshot.SnapshotV1, 1)
	w.SetSnapshotSink(sink)
	sink <- snapshot.SnapshotV1{}
	w.answerSnapshotRequests([]adminSnapshotReq{{done: done}})
	if r := <-done; !errors.Is(r.err, ErrSnapshotBusy) || r.info.Bodies != 2 {
		t.Fatalf("full sink: got %+v", r)
	}
}

func TestReportUnknownBodies_SendsErrorToSubmitter(t *testing.T) {
	w, a, b := newTestWorld(t)
	out := make(chan []byte, 2)
	other := make(chan []byte, 2)
	w.clients["c1"] = out
	w.clients["c2"] = other

	w.reportUnknownBodies(CollisionEnvelope{ClientID: "c1", Collisions: []destruction.Collision{smash(a, b)}})
	if len(out) != 0 {
		t.Fatalf("known bodies produced an error")
	}

	w.reportUnknownBodies(CollisionEnvelope{ClientID: "c1", Collisions: []destruction.Collision{smash(a, 99)}})
	if len(out) != 1 || len(other) != 0 {
		t.Fatalf("queues: submitter %d other %d", len(out), len(other))
	}
	raw := <-out
	if err := protocol.Validate(protocol.TypeError, raw); err != nil {
		t.Fatalf("error message invalid: %v", err)
	}
	var msg protocol.ErrorMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Code != protocol.ErrUnknownBody {
		t.Fatalf("code: got %q", msg.Code)
	}
}
