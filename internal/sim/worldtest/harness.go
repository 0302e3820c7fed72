package worldtest

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"voxelfracture.ai/internal/sim/bodies"
	"voxelfracture.ai/internal/sim/destruction"
	"voxelfracture.ai/internal/sim/tuning"
	"voxelfracture.ai/internal/sim/voxel"
	world "voxelfracture.ai/internal/sim/world"
)

// Harness drives a world through exported APIs only: StepOnce for ticks,
// ExportSnapshot/ImportSnapshot for persistence. Every tick log entry is kept
// in memory.
type Harness struct {
	T    *testing.T
	W    *world.World
	Tune tuning.Tuning
	IDs  []voxel.BodyID

	Entries []destruction.TickLogEntry
}

func NewHarness(t *testing.T, scene bodies.Scene, tune tuning.Tuning) *Harness {
	t.Helper()
	reg := bodies.NewRegistry()
	ids := scene.Populate(reg, tune.VoxelSize)
	return newHarness(t, reg, scene.ID, tune, ids)
}

// NewHarnessFromSnapshot builds a harness whose world is restored from src's
// exported state, for snapshot round trips.
func NewHarnessFromSnapshot(t *testing.T, src *world.World, tune tuning.Tuning) *Harness {
	t.Helper()
	h := newHarness(t, bodies.NewRegistry(), src.SceneID(), tune, nil)
	snap := src.ExportSnapshot(src.CurrentTick() - 1)
	if err := h.W.ImportSnapshot(snap); err != nil {
		t.Fatalf("import snapshot: %v", err)
	}
	h.IDs = h.W.Bodies().IDs()
	return h
}

func newHarness(t *testing.T, reg *bodies.Registry, sceneID string, tune tuning.Tuning, ids []voxel.BodyID) *Harness {
	h := &Harness{T: t, Tune: tune, IDs: ids}
	h.W = world.New(world.WorldConfig{
		SceneID:     sceneID,
		TickRateHz:  tune.TickRateHz,
		Destruction: destruction.ConfigFromTuning(tune),
	}, reg, nil)
	h.W.SetTickLogger(h)
	return h
}

func (h *Harness) WriteTick(e destruction.TickLogEntry) error {
	h.Entries = append(h.Entries, e)
	return nil
}

// Step runs one tick and returns its log entry.
func (h *Harness) Step(set ...destruction.Collision) destruction.TickLogEntry {
	h.T.Helper()
	want := h.W.CurrentTick()
	tick, _, _ := h.W.StepOnce(set)
	if tick != want {
		h.T.Fatalf("stepped tick %d want %d", tick, want)
	}
	return h.Entries[len(h.Entries)-1]
}

func (h *Harness) StepFor(n int) {
	for i := 0; i < n; i++ {
		h.Step()
	}
}

// Impact builds a head-on collision between a and b at point, with a pushed
// along dir and b pushed against it.
func Impact(a, b voxel.BodyID, point, dir mgl64.Vec3, speedA, speedB float64) destruction.Collision {
	n := dir.Normalize()
	return destruction.Collision{
		First:          a,
		Second:         b,
		VelocityFirst:  n.Mul(speedA),
		VelocitySecond: n.Mul(-speedB),
		Point:          point,
		NormalOnFirst:  n,
		Timestep:       1.0 / 30,
	}
}
