package snapshot

import (
	"path/filepath"
	"testing"
)

func TestWriteReadSnapshot(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "snapshots", Name(42))
	in := SnapshotV1{
		Header:   Header{SceneID: "demo", Tick: 42},
		NextBody: 3,
		Bodies: []BodyV1{
			{ID: 1, Mass: 8, Rot: [4]float64{1, 0, 0, 0}, VoxelSize: 0.1, Size: [3]int{2, 2, 2}, Occupancy: "AQg=", Strength: []float64{1, 2, 3, 4, 5, 6, 7, 8}},
			{ID: 2, Mass: 1, Pos: [3]float64{1, 2, 3}, Rot: [4]float64{1, 0, 0, 0}, VoxelSize: 0.1, Size: [3]int{1, 1, 1}, Occupancy: "AQE=", Strength: []float64{9}},
		},
	}
	if err := WriteSnapshot(p, in); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}

	h, err := ReadHeader(p)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if h.Tick != 42 || h.SceneID != "demo" || h.Bodies != 2 || h.Version != Version {
		t.Fatalf("header: %+v", h)
	}

	out, err := ReadSnapshot(p)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if out.NextBody != 3 || len(out.Bodies) != 2 {
		t.Fatalf("snapshot: %+v", out)
	}
	if out.Bodies[1].Pos != [3]float64{1, 2, 3} || out.Bodies[0].Strength[7] != 8 {
		t.Fatalf("bodies: %+v", out.Bodies)
	}
}

func TestReadSnapshot_Missing(t *testing.T) {
	if _, err := ReadSnapshot(filepath.Join(t.TempDir(), "none.snap.zst")); err == nil {
		t.Fatalf("expected error")
	}
}
