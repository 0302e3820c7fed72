package energy

import "voxelfracture.ai/internal/sim/voxel"

// TransferNode is one voxel in the indirect-transfer forest. Sources sit on a
// bridge and have no feeder; every other node is fed by exactly one node one
// generation closer to a source.
type TransferNode struct {
	Coord  voxel.Coord
	Source bool
	Feeder int
	// FeederDirection is the direction energy travels from the feeder into
	// this node.
	FeederDirection voxel.Direction
	Generation      int
	DeadEnd         bool
}

// TransferGraph is rebuilt for every indirect pass and discarded after it.
type TransferGraph struct {
	Nodes  []TransferNode
	byCell map[int]int
}

// Node returns the node index for a voxel.
func (t *TransferGraph) Node(c voxel.Coord, g *Grid) (int, bool) {
	i, ok := g.index(c)
	if !ok {
		return 0, false
	}
	n, ok := t.byCell[i]
	return n, ok
}

// Acyclic reports whether following feeder links from any node always ends
// at a source.
func (t *TransferGraph) Acyclic() bool {
	for i := range t.Nodes {
		steps := 0
		for j := i; !t.Nodes[j].Source; j = t.Nodes[j].Feeder {
			if t.Nodes[j].Feeder < 0 || t.Nodes[j].Feeder >= len(t.Nodes) {
				return false
			}
			steps++
			if steps > len(t.Nodes) {
				return false
			}
		}
	}
	return true
}

// BuildTransferGraph expands breadth-first from every live bridge voxel over
// all 26 directions. Each voxel enters the graph at most once, so feeder
// links form a forest.
func (g *Grid) BuildTransferGraph() *TransferGraph {
	t := &TransferGraph{byCell: map[int]int{}}
	for i := range g.voxels {
		g.voxels[i].Graphed = false
	}

	add := func(n TransferNode) int {
		i, _ := g.index(n.Coord)
		g.voxels[i].Graphed = true
		t.Nodes = append(t.Nodes, n)
		t.byCell[i] = len(t.Nodes) - 1
		return len(t.Nodes) - 1
	}

	for _, b := range g.BridgeCoords() {
		if g.ValidCoord(b) != Live || g.voxelAt(b).Graphed {
			continue
		}
		add(TransferNode{Coord: b, Source: true, Feeder: -1, FeederDirection: voxel.NoDirection})
	}

	for head := 0; head < len(t.Nodes); head++ {
		cur := t.Nodes[head]
		grew := false
		for d := voxel.Direction(0); d < voxel.NumDirections; d++ {
			n := cur.Coord.Add(d.Vector())
			if g.ValidCoord(n) != Live || g.voxelAt(n).Graphed {
				continue
			}
			add(TransferNode{
				Coord:           n,
				Feeder:          head,
				FeederDirection: d,
				Generation:      cur.Generation + 1,
			})
			grew = true
		}
		t.Nodes[head].DeadEnd = !grew
	}
	g.graph = t
	return t
}

// TransferGraph returns the graph from the last indirect pass, if any.
func (g *Grid) TransferGraph() *TransferGraph { return g.graph }
