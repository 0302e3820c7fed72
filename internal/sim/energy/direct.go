package energy

import (
	"github.com/go-gl/mathgl/mgl64"

	"voxelfracture.ai/internal/sim/voxel"
)

// DirectTransfer pushes energyPerVoxel from every bridge voxel along the
// impact direction. Direct transfer creates pressure only.
func (g *Grid) DirectTransfer(cfg RoleConfig) {
	if g.energyPerVoxel <= g.cfg.MinEnergy || !cfg.Impact.Valid() {
		return
	}
	for _, b := range g.BridgeCoords() {
		g.directTransferVoxel(cfg, b)
	}
}

func (g *Grid) directTransferVoxel(cfg RoleConfig, source voxel.Coord) {
	dir := cfg.Impact
	step := dir.Vector()
	carry := cfg.DirectMap[dir]
	energy := g.energyPerVoxel
	cur := source
	// The chain follows a straight lattice line, so it always leaves the
	// field after at most max(size) steps.
	for energy > g.cfg.MinEnergy {
		switch g.ValidCoord(cur) {
		case Outside:
			g.transferExternalEnergyTo(cur, energy)
			return
		case Dead:
			// Rubble passes energy through untouched.
		case Live:
			absorbed := g.transferEnergyTo(cfg, cur, dir, energy)
			energy = (energy - absorbed) * carry
		}
		cur = cur.Add(step)
	}
}

// transferEnergyTo deposits energy into a live voxel arriving along dir and
// returns how much the voxel absorbed. The voxel takes pressure from the
// whole incoming amount whether or not it is full.
func (g *Grid) transferEnergyTo(cfg RoleConfig, target voxel.Coord, dir voxel.Direction, energy float64) float64 {
	v := g.voxelAt(target)
	if v == nil || v.Broken() {
		return 0
	}
	absorbed := 0.0
	if !v.Full {
		room := g.capacity(v) - v.Energy(cfg.Role)
		absorbed = min(max(room, 0), energy)
		v.AddEnergy(cfg.Role, absorbed)
		if v.Energy(cfg.Role) >= g.capacity(v) {
			v.Full = true
		}
	}
	g.PressureVoxel(cfg, target, energy*cfg.DirectMap[dir])
	return absorbed
}

// transferExternalEnergyTo routes energy that reached the field edge at c
// out through the nearest bridge.
func (g *Grid) transferExternalEnergyTo(c voxel.Coord, energy float64) {
	_, point, ok := g.nearestBridge(c)
	if !ok {
		g.loseEnergy(energy, "no bridge")
		return
	}
	g.outbound = append(g.outbound, ExternalTransfer{Point: point, Energy: energy})
}

// DepositExternal absorbs energy that a partner routed through a bridge.
// point is in this grid's local voxel space. Energy the target voxel cannot
// hold is lost.
func (g *Grid) DepositExternal(cfg RoleConfig, point mgl64.Vec3, energy float64) {
	if energy <= g.cfg.MinEnergy {
		return
	}
	target := voxel.Floor(point)
	if g.ValidCoord(target) != Live {
		near := g.NearestVoxels(point, 0, 1)
		if len(near) == 0 {
			g.loseEnergy(energy, "no live voxel at bridge point")
			return
		}
		target = near[0]
	}
	absorbed := g.transferEnergyTo(cfg, target, cfg.Impact, energy)
	if rest := energy - absorbed; rest > g.cfg.MinEnergy {
		g.loseEnergy(rest, "bridge target full")
	}
}

// PressureVoxel adds pressure to a voxel. A voxel whose pressure exceeds its
// strength is destroyed and the excess spreads to live neighbours in the
// pressure directions, weighted by the direct-transfer map.
func (g *Grid) PressureVoxel(cfg RoleConfig, c voxel.Coord, pressure float64) {
	if pressure <= 0 {
		return
	}
	type load struct {
		c voxel.Coord
		p float64
	}
	queue := []load{{c, pressure}}
	for len(queue) > 0 {
		l := queue[0]
		queue = queue[1:]

		v := g.voxelAt(l.c)
		if v == nil || v.Broken() {
			continue
		}
		v.Pressure += l.p
		if v.Pressure <= v.Strength {
			continue
		}
		v.Destroyed = true
		g.destructionOccurred = true

		excess := v.Pressure - v.Strength
		var total float64
		for _, d := range cfg.PressureDirs {
			if g.ValidCoord(l.c.Add(d.Vector())) == Live {
				total += cascadeWeight(cfg, d)
			}
		}
		if total <= 0 {
			continue
		}
		for _, d := range cfg.PressureDirs {
			n := l.c.Add(d.Vector())
			if g.ValidCoord(n) != Live {
				continue
			}
			if w := cascadeWeight(cfg, d); w > 0 {
				queue = append(queue, load{n, excess * w / total})
			}
		}
	}
}

func cascadeWeight(cfg RoleConfig, d voxel.Direction) float64 {
	return cfg.DirectMap[d]
}

// LineEnergy walks from a bridge voxel against the impact direction until the
// field edge and returns the energy held on that line and the last voxel
// visited.
func (g *Grid) LineEnergy(cfg RoleConfig, bridge voxel.Coord) (float64, voxel.Coord) {
	if !cfg.Impact.Valid() {
		return 0, bridge
	}
	step := cfg.Impact.Reverse().Vector()
	var total float64
	last := bridge
	for c := bridge; g.field.InBounds(c); c = c.Add(step) {
		if v := g.voxelAt(c); v != nil {
			total += v.Energy(cfg.Role)
		}
		last = c
	}
	return total, last
}
