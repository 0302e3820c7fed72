package energy

import "voxelfracture.ai/internal/sim/voxel"

// Separate splits the intact voxels into face-connected components once a
// pass has snapped or destroyed something. Without a structural break it
// returns (nil, false) and the body stays as it is.
//
// Each component becomes a field sized to its own bounds, with Origin
// placing it in this grid's lattice. split is true when the original field
// is superseded: more than one component, or none at all. With exactly one
// component split is false and fields holds the surviving body.
//
// Components are discovered in scan order with a fixed neighbour order, so
// identical damage always yields identical fragments.
func (g *Grid) Separate() (fields []voxel.Field, split bool) {
	if !g.snappingOccurred && !g.destructionOccurred {
		return nil, false
	}

	seen := make([]bool, len(g.voxels))
	var queue, cells []int

	for start := range g.voxels {
		if seen[start] || !g.voxels[start].Live() {
			continue
		}
		lo := g.field.CoordOf(start)
		hi := lo
		seen[start] = true
		queue = append(queue[:0], start)
		cells = cells[:0]
		for len(queue) > 0 {
			i := queue[0]
			queue = queue[1:]
			cells = append(cells, i)
			c := g.field.CoordOf(i)
			lo, hi = lo.Min(c), hi.Max(c)
			for _, d := range voxel.FaceDirections {
				j, ok := g.index(c.Add(d.Vector()))
				if !ok || seen[j] || !g.voxels[j].Live() {
					continue
				}
				seen[j] = true
				queue = append(queue, j)
			}
		}

		comp := voxel.NewField(hi.Sub(lo).Add(voxel.C(1, 1, 1)))
		comp.Origin = lo
		for _, i := range cells {
			comp.Set(g.field.CoordOf(i).Sub(lo), g.voxels[i].Strength)
		}
		fields = append(fields, comp)
	}
	return fields, len(fields) != 1
}
