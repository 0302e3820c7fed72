package energy

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"voxelfracture.ai/internal/sim/voxel"
)

// Bridge keys cover the lattice plus a one-voxel shell so a virtual voxel
// just outside the field can carry a bridge too.
func (g *Grid) paddedSize() voxel.Coord {
	return g.field.Size.Add(voxel.Coord{X: 2, Y: 2, Z: 2})
}

// bridgeKey hashes a local coordinate. ok is false outside the padded shell.
func (g *Grid) bridgeKey(c voxel.Coord) (int, bool) {
	p := g.paddedSize()
	x, y, z := c.X+1, c.Y+1, c.Z+1
	if x < 0 || y < 0 || z < 0 || x >= p.X || y >= p.Y || z >= p.Z {
		return 0, false
	}
	return x + p.X*(y+p.Y*z), true
}

func (g *Grid) bridgeCoord(key int) voxel.Coord {
	p := g.paddedSize()
	return voxel.Coord{
		X: key%p.X - 1,
		Y: (key/p.X)%p.Y - 1,
		Z: key/(p.X*p.Y) - 1,
	}
}

// AddBridge maps a local voxel to a point in the partner's local voxel
// space. A second registration for the same voxel replaces the first.
func (g *Grid) AddBridge(local voxel.Coord, partnerPoint mgl64.Vec3) bool {
	k, ok := g.bridgeKey(local)
	if !ok {
		return false
	}
	g.bridges[k] = partnerPoint
	return true
}

// Bridge resolves the partner point registered for a local voxel.
func (g *Grid) Bridge(local voxel.Coord) (mgl64.Vec3, bool) {
	k, ok := g.bridgeKey(local)
	if !ok {
		return mgl64.Vec3{}, false
	}
	p, ok := g.bridges[k]
	return p, ok
}

func (g *Grid) BridgeCount() int { return len(g.bridges) }

// BridgeCoords lists bridge voxels in scan order.
func (g *Grid) BridgeCoords() []voxel.Coord {
	keys := make([]int, 0, len(g.bridges))
	for k := range g.bridges {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	out := make([]voxel.Coord, len(keys))
	for i, k := range keys {
		out[i] = g.bridgeCoord(k)
	}
	return out
}

// nearestBridge finds the bridge closest to c, lowest key on ties.
func (g *Grid) nearestBridge(c voxel.Coord) (voxel.Coord, mgl64.Vec3, bool) {
	var (
		best  voxel.Coord
		point mgl64.Vec3
		dist  = -1
	)
	for _, b := range g.BridgeCoords() {
		d := b.Sub(c)
		n := d.X*d.X + d.Y*d.Y + d.Z*d.Z
		if dist < 0 || n < dist {
			best, dist = b, n
			point, _ = g.Bridge(b)
		}
	}
	return best, point, dist >= 0
}
