package energy

import (
	"io"
	"log"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"voxelfracture.ai/internal/sim/voxel"
)

// CoordState classifies a lattice coordinate for transfer purposes.
type CoordState uint8

const (
	// Outside covers out-of-bounds coordinates and empty cells: energy that
	// reaches one leaves the field.
	Outside CoordState = iota
	Live
	Dead
)

type GridConfig struct {
	MinEnergy       float64
	AbsorbFraction  float64
	PressureBias    float64
	IndirectFalloff float64
	Logger          *log.Logger
}

// ExternalTransfer is energy that left the grid through a bridge. Point is in
// the partner's local voxel space.
type ExternalTransfer struct {
	Point  mgl64.Vec3
	Energy float64
}

// Grid is the simulation state of one body during an active collision.
type Grid struct {
	body  voxel.BodyID
	field voxel.Field
	pose  voxel.Pose
	cfg   GridConfig
	log   *log.Logger

	voxels  []VoxelData
	bridges map[int]mgl64.Vec3

	energyPerVoxel    float64
	startingEnergy    float64
	energyVector      mgl64.Vec3
	energyVectorLocal mgl64.Vec3

	// Handle of the current partner grid, -1 outside a transfer call.
	partner int

	graph    *TransferGraph
	outbound []ExternalTransfer
	lost     float64

	destructionOccurred bool
	snappingOccurred    bool
}

func NewGrid(body voxel.BodyID, field voxel.Field, pose voxel.Pose, cfg GridConfig) *Grid {
	if cfg.AbsorbFraction <= 0 {
		cfg.AbsorbFraction = 1
	}
	if cfg.PressureBias <= 0 {
		cfg.PressureBias = 1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	g := &Grid{
		body:    body,
		field:   field,
		pose:    pose,
		cfg:     cfg,
		log:     logger,
		voxels:  make([]VoxelData, field.Len()),
		bridges: map[int]mgl64.Vec3{},
		partner: -1,
	}
	for i, filled := range field.Filled {
		if !filled {
			continue
		}
		g.voxels[i] = VoxelData{Strength: field.Strength[i], present: true}
	}
	return g
}

func (g *Grid) Body() voxel.BodyID { return g.body }
func (g *Grid) Pose() voxel.Pose   { return g.pose }
func (g *Grid) Size() voxel.Coord  { return g.field.Size }
func (g *Grid) Field() voxel.Field { return g.field }

func (g *Grid) index(c voxel.Coord) (int, bool) { return g.field.Index(c) }

// ValidCoord reports whether c is a live voxel, a broken one, or outside
// the field.
func (g *Grid) ValidCoord(c voxel.Coord) CoordState {
	i, ok := g.index(c)
	if !ok || !g.voxels[i].present {
		return Outside
	}
	if g.voxels[i].Broken() {
		return Dead
	}
	return Live
}

// Voxel returns a copy of the voxel state at c.
func (g *Grid) Voxel(c voxel.Coord) (VoxelData, bool) {
	i, ok := g.index(c)
	if !ok || !g.voxels[i].present {
		return VoxelData{}, false
	}
	return g.voxels[i], true
}

func (g *Grid) voxelAt(c voxel.Coord) *VoxelData {
	i, ok := g.index(c)
	if !ok || !g.voxels[i].present {
		return nil
	}
	return &g.voxels[i]
}

func (g *Grid) capacity(v *VoxelData) float64 { return v.Strength * g.cfg.AbsorbFraction }

// BeginPass clears per-pass state: energy, stress, pressure, flags other than
// destroyed/snapped, bridges and the transfer graph.
func (g *Grid) BeginPass() {
	for i := range g.voxels {
		g.voxels[i].resetPass()
	}
	clear(g.bridges)
	g.graph = nil
	g.outbound = g.outbound[:0]
	g.energyPerVoxel = 0
	g.startingEnergy = 0
}

func (g *Grid) SetEnergyPerVoxel(e float64) { g.energyPerVoxel = e }
func (g *Grid) EnergyPerVoxel() float64     { return g.energyPerVoxel }
func (g *Grid) StartingEnergy() float64     { return g.startingEnergy }

// SetInitialEnergy sets the energy of every live voxel in the given role.
func (g *Grid) SetInitialEnergy(role Role, e float64) {
	g.startingEnergy = e
	for i := range g.voxels {
		if g.voxels[i].Live() {
			g.voxels[i].SetEnergy(role, e)
		}
	}
}

// SetEnergy sets the world-space energy vector this grid projects onto its
// partner.
func (g *Grid) SetEnergy(world mgl64.Vec3) {
	g.energyVector = world
	g.energyVectorLocal = g.pose.DirToLocal(world)
}

func (g *Grid) EnergyVector() mgl64.Vec3      { return g.energyVector }
func (g *Grid) EnergyVectorLocal() mgl64.Vec3 { return g.energyVectorLocal }

func (g *Grid) SetCollisionPartner(handle int) { g.partner = handle }
func (g *Grid) ClearCollisionPartner()         { g.partner = -1 }
func (g *Grid) CollisionPartner() int          { return g.partner }

// RoleConfig builds the maps from the partner's world energy vector and
// selects the one for role.
func (g *Grid) RoleConfig(role Role, partnerEnergy mgl64.Vec3) RoleConfig {
	return BuildMaps(g.pose.DirToLocal(partnerEnergy), g.cfg.PressureBias).For(role)
}

func (g *Grid) DestructionOccurred() bool { return g.destructionOccurred }
func (g *Grid) SnappingOccurred() bool    { return g.snappingOccurred }
func (g *Grid) LostEnergy() float64       { return g.lost }

// TakeOutbound returns and clears energy that left through bridges.
func (g *Grid) TakeOutbound() []ExternalTransfer {
	out := append([]ExternalTransfer(nil), g.outbound...)
	g.outbound = g.outbound[:0]
	return out
}

// Counts returns the number of destroyed and snapped voxels.
func (g *Grid) Counts() (destroyed, snapped int) {
	for i := range g.voxels {
		v := &g.voxels[i]
		if !v.present {
			continue
		}
		if v.Destroyed {
			destroyed++
		} else if v.Snapped {
			snapped++
		}
	}
	return destroyed, snapped
}

// LiveCount is the number of intact voxels.
func (g *Grid) LiveCount() int {
	n := 0
	for i := range g.voxels {
		if g.voxels[i].Live() {
			n++
		}
	}
	return n
}

func (g *Grid) loseEnergy(e float64, why string) {
	if e <= 0 {
		return
	}
	g.lost += e
	g.log.Printf("body %d: energy lost: %.4f (%s)", g.body, e, why)
}

// NearestVoxels returns live voxels whose centres lie within radius of the
// local point p, ordered by distance then scan order, capped at limit. When
// none is within radius the single nearest live voxel is returned.
func (g *Grid) NearestVoxels(p mgl64.Vec3, radius float64, limit int) []voxel.Coord {
	type cand struct {
		c voxel.Coord
		d float64
	}
	var within []cand
	var best cand
	haveBest := false
	for i := range g.voxels {
		if !g.voxels[i].Live() {
			continue
		}
		c := g.field.CoordOf(i)
		d := c.Center().Sub(p).Len()
		if d <= radius {
			within = append(within, cand{c, d})
		}
		// Scan order is ascending, so strict < keeps the lowest coord on ties.
		if !haveBest || d < best.d {
			best, haveBest = cand{c, d}, true
		}
	}
	if len(within) == 0 {
		if !haveBest {
			return nil
		}
		return []voxel.Coord{best.c}
	}
	sort.Slice(within, func(i, j int) bool {
		if within[i].d != within[j].d {
			return within[i].d < within[j].d
		}
		return within[i].c.Less(within[j].c)
	})
	if limit > 0 && len(within) > limit {
		within = within[:limit]
	}
	out := make([]voxel.Coord, len(within))
	for i, c := range within {
		out[i] = c.c
	}
	return out
}
