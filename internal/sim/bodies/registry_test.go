package bodies

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"voxelfracture.ai/internal/persistence/snapshot"
	"voxelfracture.ai/internal/sim/voxel"
)

func TestRegistry_SpawnSplitsMassAndPlacesFragments(t *testing.T) {
	r := NewRegistry()
	parent := r.Add(voxel.Box(voxel.C(4, 1, 1), 10), voxel.NewPose(mgl64.Vec3{10, 0, 0}, 0.5), 8)

	left := voxel.Box(voxel.C(1, 1, 1), 10)
	right := voxel.Box(voxel.C(3, 1, 1), 10)
	right.Origin = voxel.C(1, 0, 0)
	ids := r.Spawn(parent, []voxel.Field{left, right})

	if len(ids) != 2 || r.Len() != 2 {
		t.Fatalf("ids=%v len=%d", ids, r.Len())
	}
	if _, ok := r.Body(parent); ok {
		t.Fatalf("parent still registered")
	}
	a, _ := r.Body(ids[0])
	b, _ := r.Body(ids[1])
	if a.Mass != 2 || b.Mass != 6 {
		t.Fatalf("mass: %v %v", a.Mass, b.Mass)
	}
	if !b.Pose.Position.ApproxEqual(mgl64.Vec3{10.5, 0, 0}) {
		t.Fatalf("fragment position: %v", b.Pose.Position)
	}
	if b.Field.Origin != (voxel.Coord{}) {
		t.Fatalf("fragment origin not reset: %v", b.Field.Origin)
	}
}

func TestRegistry_SpawnNothingRemovesParent(t *testing.T) {
	r := NewRegistry()
	id := r.Add(voxel.Box(voxel.C(1, 1, 1), 10), voxel.NewPose(mgl64.Vec3{}, 1), 1)
	if got := r.Spawn(id, nil); len(got) != 0 || r.Len() != 0 {
		t.Fatalf("spawn: %v len %d", got, r.Len())
	}
}

func TestRegistry_Update(t *testing.T) {
	r := NewRegistry()
	id := r.Add(voxel.Box(voxel.C(2, 2, 1), 10), voxel.NewPose(mgl64.Vec3{}, 1), 4)
	f := voxel.Box(voxel.C(1, 2, 1), 10)
	f.Origin = voxel.C(1, 0, 0)
	r.Update(id, f)

	b, ok := r.Body(id)
	if !ok || b.Mass != 2 || b.Field.Count() != 2 {
		t.Fatalf("body: %+v ok=%v", b, ok)
	}
	if !b.Pose.Position.ApproxEqual(mgl64.Vec3{1, 0, 0}) {
		t.Fatalf("position: %v", b.Pose.Position)
	}
}

func TestRegistry_SnapshotRoundTrip(t *testing.T) {
	r := NewRegistry()
	f := voxel.Box(voxel.C(3, 2, 2), 7.25)
	f.Clear(voxel.C(1, 1, 1))
	r.Add(f, voxel.Pose{
		Position:  mgl64.Vec3{1, 2, 3},
		Rotation:  mgl64.QuatRotate(0.3, mgl64.Vec3{0, 0, 1}),
		VoxelSize: 0.2,
	}, 11)
	r.Add(voxel.Box(voxel.C(1, 1, 1), 3), voxel.NewPose(mgl64.Vec3{}, 1), 1)

	p := filepath.Join(t.TempDir(), snapshot.Name(9))
	if err := snapshot.WriteSnapshot(p, r.ExportSnapshot("scene", 9)); err != nil {
		t.Fatalf("write: %v", err)
	}
	snap, err := snapshot.ReadSnapshot(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	r2 := NewRegistry()
	if err := r2.ImportSnapshot(snap); err != nil {
		t.Fatalf("import: %v", err)
	}
	if r.Digest() != r2.Digest() {
		t.Fatalf("digest mismatch after round trip")
	}
	b, _ := r2.Body(1)
	if !b.Pose.Rotation.ApproxEqual(mgl64.QuatRotate(0.3, mgl64.Vec3{0, 0, 1})) {
		t.Fatalf("rotation: %v", b.Pose.Rotation)
	}
	if id := r2.Add(voxel.Box(voxel.C(1, 1, 1), 1), voxel.NewPose(mgl64.Vec3{}, 1), 1); id != 3 {
		t.Fatalf("next id after import: %d", id)
	}
}

func TestLoadScene(t *testing.T) {
	p := filepath.Join(t.TempDir(), "scene.yaml")
	raw := `
id: demo
bodies:
  - size: [4, 1, 1]
    strength: 50
    position: [0, 0, 0]
    mass: 4
  - size: [2, 2, 2]
    strength: 20
    position: [1, 0, 0]
    holes: [[1, 1, 1]]
`
	if err := os.WriteFile(p, []byte(raw), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err := LoadScene(p)
	if err != nil {
		t.Fatalf("LoadScene: %v", err)
	}
	r := NewRegistry()
	ids := s.Populate(r, 0.1)
	if len(ids) != 2 {
		t.Fatalf("ids: %v", ids)
	}
	b, _ := r.Body(ids[1])
	if b.Field.Count() != 7 || b.Mass != 7 || b.Pose.VoxelSize != 0.1 {
		t.Fatalf("second body: count=%d mass=%v vs=%v", b.Field.Count(), b.Mass, b.Pose.VoxelSize)
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	_ = os.WriteFile(bad, []byte("bodies:\n  - size: [0, 1, 1]\n    strength: 1\n"), 0o644)
	if _, err := LoadScene(bad); err == nil {
		t.Fatalf("expected size error")
	}
}
