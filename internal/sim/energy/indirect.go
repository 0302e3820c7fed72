package energy

import (
	"math"

	"voxelfracture.ai/internal/sim/voxel"
)

// IndirectTransfer brings every graphed voxel toward the energy level of the
// bridge voxels, scaled down per generation. Energy is pulled through feeder
// chains from the bridge pool rather than solved for; each pull stresses and
// presses every voxel on its chain.
func (g *Grid) IndirectTransfer(cfg RoleConfig) {
	if g.energyPerVoxel <= g.cfg.MinEnergy || len(g.bridges) == 0 {
		return
	}
	t := g.BuildTransferGraph()
	for i := range t.Nodes {
		n := t.Nodes[i]
		v := g.voxelAt(n.Coord)
		if n.Source {
			if v.Energy(cfg.Role) < g.energyPerVoxel {
				v.SetEnergy(cfg.Role, g.energyPerVoxel)
			}
			continue
		}
		if v.Broken() {
			continue
		}
		target := g.energyPerVoxel * math.Pow(g.cfg.IndirectFalloff, float64(n.Generation))
		deficit := target - v.Energy(cfg.Role)
		if deficit <= g.cfg.MinEnergy {
			continue
		}
		if g.pullEnergy(cfg, t, i, deficit, n.FeederDirection) {
			v.AddEnergy(cfg.Role, deficit)
			if v.Energy(cfg.Role) >= g.capacity(v) {
				v.Full = true
			}
		}
	}
}

// pullEnergy draws energy into node idx, which receives it travelling in
// direction dir, and up its feeder chain to a source. Every non-source node
// on the chain takes stress and pressure for the full amount. It returns
// false once a node on the chain is broken; that branch is exhausted.
func (g *Grid) pullEnergy(cfg RoleConfig, t *TransferGraph, idx int, energy float64, dir voxel.Direction) bool {
	visited := make(map[int]bool)
	for {
		if idx < 0 || idx >= len(t.Nodes) || visited[idx] {
			return false
		}
		visited[idx] = true

		n := &t.Nodes[idx]
		v := g.voxelAt(n.Coord)
		if v == nil || v.Broken() {
			return false
		}
		if n.Source {
			return true
		}
		g.StressVoxel(n.Coord, energy*cfg.StressRatio(dir))
		if v.Broken() {
			return false
		}
		g.PressureVoxel(cfg, n.Coord, energy*cfg.PressureRatio(dir))
		if v.Broken() {
			return false
		}
		idx, dir = n.Feeder, n.FeederDirection
	}
}

// StressVoxel adds stress to a voxel and snaps it once stress exceeds its
// strength.
func (g *Grid) StressVoxel(c voxel.Coord, stress float64) {
	v := g.voxelAt(c)
	if v == nil || v.Broken() || stress <= 0 {
		return
	}
	v.Stress += stress
	if v.Stress > v.Strength {
		v.Snapped = true
		g.snappingOccurred = true
	}
}
