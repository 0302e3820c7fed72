package energy

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"voxelfracture.ai/internal/sim/voxel"
)

func TestBuildMaps_AlignedDirections(t *testing.T) {
	m := BuildMaps(mgl64.Vec3{0, -3, 0}, 1)
	for _, cfg := range []RoleConfig{m.Receiver, m.Projector} {
		if cfg.Impact != voxel.Down {
			t.Fatalf("%s impact: got %s", cfg.Role, cfg.Impact)
		}
		if math.Abs(cfg.Ratio[voxel.Down]-1) > 1e-12 {
			t.Fatalf("%s: aligned ratio %v", cfg.Role, cfg.Ratio[voxel.Down])
		}
		if cfg.Ratio[voxel.Up] != 0 {
			t.Fatalf("%s: opposed ratio %v", cfg.Role, cfg.Ratio[voxel.Up])
		}
		if cfg.DirectMap[voxel.Down] != 1 || cfg.DirectMap[voxel.Up] != 0 {
			t.Fatalf("%s: direct map %v", cfg.Role, cfg.DirectMap)
		}
	}
	if r := m.Receiver.Ratio[voxel.Left]; math.Abs(r-0.5) > 1e-12 {
		t.Fatalf("receiver lateral ratio %v", r)
	}
	if r := m.Projector.Ratio[voxel.Left]; r != 0 {
		t.Fatalf("projector lateral ratio %v", r)
	}
	if m.Projector.StressRatio(voxel.Left) != 1 {
		t.Fatalf("projector lateral stress ratio %v", m.Projector.StressRatio(voxel.Left))
	}
}

func TestBuildMaps_PressureDirsSorted(t *testing.T) {
	m := BuildMaps(mgl64.Vec3{1, 1, 0}, 2)
	prev := -1
	for _, d := range m.Receiver.PressureDirs {
		if int(d) <= prev {
			t.Fatalf("pressure dirs out of order: %v", m.Receiver.PressureDirs)
		}
		prev = int(d)
		if m.Receiver.Ratio[d] < 0.5 {
			t.Fatalf("%s listed with ratio %v", d, m.Receiver.Ratio[d])
		}
	}
	if m.For(Projector).Role != Projector || m.For(Receiver).Role != Receiver {
		t.Fatalf("For returned wrong role")
	}
}
