package energy

import (
	"runtime"
	"testing"

	"voxelfracture.ai/internal/sim/voxel"
)

func TestSeparate_Idempotent(t *testing.T) {
	g := testGrid(voxel.Box(voxel.C(5, 5, 1), 10), 1)
	for y := 0; y < 5; y++ {
		g.StressVoxel(voxel.C(2, y, 0), 100)
	}
	g.PressureVoxel(UniformConfig(Receiver, voxel.Front, 1), voxel.C(0, 0, 0), 50)

	first, split1 := g.Separate()
	second, split2 := g.Separate()
	if !split1 || !split2 {
		t.Fatalf("expected split both times")
	}
	if len(first) != len(second) {
		t.Fatalf("component count differs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		a, b := first[i], second[i]
		if a.Origin != b.Origin || a.Size != b.Size || a.Count() != b.Count() {
			t.Fatalf("component %d differs: %+v vs %+v", i, a, b)
		}
		for j := range a.Filled {
			if a.Filled[j] != b.Filled[j] || a.Strength[j] != b.Strength[j] {
				t.Fatalf("component %d cell %d differs", i, j)
			}
		}
	}
	if len(first) != 2 || first[0].Count() != 9 || first[1].Count() != 10 {
		t.Fatalf("components: %d (%d, %d)", len(first), first[0].Count(), first[1].Count())
	}
}

func TestSeparate_DiagonalContactDoesNotJoin(t *testing.T) {
	f := voxel.NewField(voxel.C(3, 2, 1))
	f.Set(voxel.C(0, 0, 0), 10)
	f.Set(voxel.C(1, 1, 0), 10)
	f.Set(voxel.C(2, 1, 0), 10)
	g := testGrid(f, 1)
	g.StressVoxel(voxel.C(2, 1, 0), 100)

	fields, split := g.Separate()
	if !split || len(fields) != 2 {
		t.Fatalf("expected two fragments, got %d split=%v", len(fields), split)
	}
	if fields[0].Origin != voxel.C(0, 0, 0) || fields[1].Origin != voxel.C(1, 1, 0) {
		t.Fatalf("origins: %v %v", fields[0].Origin, fields[1].Origin)
	}
}

func TestSeparate_UndamagedBodyIsLeftAlone(t *testing.T) {
	for name, f := range map[string]voxel.Field{
		"box": voxel.Box(voxel.C(3, 2, 2), 10),
		"diagonal": func() voxel.Field {
			f := voxel.NewField(voxel.C(2, 2, 1))
			f.Set(voxel.C(0, 0, 0), 10)
			f.Set(voxel.C(1, 1, 0), 10)
			return f
		}(),
	} {
		fields, split := testGrid(f, 1).Separate()
		if split || fields != nil {
			t.Fatalf("%s: split=%v fields=%d", name, split, len(fields))
		}
	}
}

func TestSeparate_DamagedBodyKeepsSurvivingShape(t *testing.T) {
	g := testGrid(voxel.Box(voxel.C(3, 2, 2), 10), 1)
	g.StressVoxel(voxel.C(2, 1, 1), 100)

	fields, split := g.Separate()
	if split || len(fields) != 1 {
		t.Fatalf("split=%v fields=%d", split, len(fields))
	}
	if fields[0].Size != voxel.C(3, 2, 2) || fields[0].Count() != 11 {
		t.Fatalf("surviving field: size %v count %d", fields[0].Size, fields[0].Count())
	}
}

// Isolated voxels on a sparse lattice: every fragment is a single cell and
// only that cell is allocated.
func TestSeparate_FragmentsSizedToTheirBounds(t *testing.T) {
	const n = 24
	f := voxel.NewField(voxel.C(n, n, n))
	for z := 0; z < n; z += 2 {
		for y := 0; y < n; y += 2 {
			for x := 0; x < n; x += 2 {
				f.Set(voxel.C(x, y, z), 10)
			}
		}
	}
	f.Set(voxel.C(1, 0, 0), 10)
	g := testGrid(f, 1)
	g.StressVoxel(voxel.C(1, 0, 0), 100)

	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	fields, split := g.Separate()
	runtime.ReadMemStats(&after)

	const want = (n / 2) * (n / 2) * (n / 2)
	if !split || len(fields) != want {
		t.Fatalf("fragments: got %d want %d", len(fields), want)
	}
	for i, c := range fields {
		if c.Size != voxel.C(1, 1, 1) || c.Count() != 1 {
			t.Fatalf("fragment %d: size %v count %d", i, c.Size, c.Count())
		}
	}
	if fields[1].Origin != voxel.C(2, 0, 0) {
		t.Fatalf("fragment 1 origin: %v", fields[1].Origin)
	}
	// One full-lattice field per fragment would be well over 100MB here.
	if got := after.TotalAlloc - before.TotalAlloc; got > 16<<20 {
		t.Fatalf("Separate allocated %d bytes", got)
	}
}
