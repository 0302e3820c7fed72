package destruction

import (
	"fmt"
	"io"
	"log"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"voxelfracture.ai/internal/sim/bodies"
	"voxelfracture.ai/internal/sim/energy"
	"voxelfracture.ai/internal/sim/tuning"
	"voxelfracture.ai/internal/sim/voxel"
)

type Config struct {
	EnergyScale     float64
	MinEnergy       float64
	BridgeRadius    float64
	MaxBridges      int
	AbsorbFraction  float64
	PressureBias    float64
	IndirectFalloff float64
}

func ConfigFromTuning(t tuning.Tuning) Config {
	return Config{
		EnergyScale:     t.Energy.Scale,
		MinEnergy:       t.Energy.MinEnergy,
		BridgeRadius:    t.Bridges.Radius,
		MaxBridges:      t.Bridges.Max,
		AbsorbFraction:  t.Transfer.AbsorbFraction,
		PressureBias:    t.Transfer.PressureBias,
		IndirectFalloff: t.Transfer.IndirectFalloff,
	}
}

// Engine resolves the collisions of one tick into voxel damage. Grids only
// live for the batch being processed.
type Engine struct {
	cfg    Config
	bodies BodyLayer
	log    *log.Logger

	grids   []*energy.Grid
	masses  []float64
	held    []float64
	lookup  map[voxel.BodyID]int
	pending []bool
	// empty marks bodies with no voxels when their grid was created.
	empty []bool
}

func New(cfg Config, layer BodyLayer, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Engine{
		cfg:    cfg,
		bodies: layer,
		log:    logger,
		lookup: map[voxel.BodyID]int{},
	}
}

// GridIndex returns the grid handle for a body, creating the grid the first
// time the body is referenced. An unknown body is a caller bug.
func (e *Engine) GridIndex(id voxel.BodyID) int {
	if i, ok := e.lookup[id]; ok {
		return i
	}
	b, ok := e.bodies.Body(id)
	if !ok {
		panic(fmt.Sprintf("destruction: collision references unknown body %d", id))
	}
	g := energy.NewGrid(id, b.Field, b.Pose, energy.GridConfig{
		MinEnergy:       e.cfg.MinEnergy,
		AbsorbFraction:  e.cfg.AbsorbFraction,
		PressureBias:    e.cfg.PressureBias,
		IndirectFalloff: e.cfg.IndirectFalloff,
		Logger:          e.log,
	})
	e.grids = append(e.grids, g)
	e.masses = append(e.masses, b.Mass)
	e.held = append(e.held, 0)
	e.pending = append(e.pending, false)
	e.empty = append(e.empty, g.LiveCount() == 0)
	e.lookup[id] = len(e.grids) - 1
	return len(e.grids) - 1
}

// Grid returns the grid for a handle from GridIndex.
func (e *Engine) Grid(i int) *energy.Grid { return e.grids[i] }

func (e *Engine) GridCount() int { return len(e.grids) }

// ProcessSet resolves a batch in record order. A body hit several times sees
// the damage of earlier collisions; separation runs once at the end. Grids
// are discarded before returning.
func (e *Engine) ProcessSet(tick uint64, set []Collision) TickReport {
	for _, c := range set {
		e.ProcessCollision(c)
	}
	rep := TickReport{Tick: tick, Collisions: len(set)}
	rep.Bodies = e.CheckForSeparation()
	rep.Digest = rep.digest()
	e.Reset()
	return rep
}

// ProcessCollision runs direct and indirect transfer for one impact. Zero
// energy and non-positive timesteps are no-ops.
func (e *Engine) ProcessCollision(c Collision) {
	if c.First == c.Second {
		e.log.Printf("skip self collision on body %d", c.First)
		return
	}
	ia := e.GridIndex(c.First)
	ib := e.GridIndex(c.Second)
	if c.Timestep <= 0 || math.IsNaN(c.Timestep) {
		return
	}
	if e.empty[ia] || e.empty[ib] {
		e.log.Printf("skip collision %d/%d: empty voxel field", c.First, c.Second)
		return
	}
	ga, gb := e.grids[ia], e.grids[ib]

	// The timestep only gates the impact. Velocities are the contact
	// velocities over that step, so the energy depends on them alone.
	intoFirst := e.impartedEnergy(e.masses[ia], c.VelocityFirst)
	intoSecond := e.impartedEnergy(e.masses[ib], c.VelocitySecond)
	if intoFirst.Len() <= e.cfg.MinEnergy && intoSecond.Len() <= e.cfg.MinEnergy {
		return
	}

	ga.BeginPass()
	gb.BeginPass()
	// Each grid projects onto its partner the energy the partner takes in.
	ga.SetEnergy(intoSecond)
	gb.SetEnergy(intoFirst)

	e.BuildBridges(ia, ib, c)
	if n := ga.BridgeCount(); n > 0 {
		ga.SetEnergyPerVoxel(intoFirst.Len() / float64(n))
	}
	if n := gb.BridgeCount(); n > 0 {
		gb.SetEnergyPerVoxel(intoSecond.Len() / float64(n))
	}
	e.TransferEnergy(ia, ib, c)
}

// impartedEnergy is 0.5*m*|v|^2 along v. Non-positive mass counts as one.
func (e *Engine) impartedEnergy(mass float64, v mgl64.Vec3) mgl64.Vec3 {
	speed := v.Len()
	if speed == 0 || math.IsNaN(speed) || math.IsInf(speed, 0) {
		return mgl64.Vec3{}
	}
	if mass <= 0 {
		mass = 1
	}
	ke := 0.5 * mass * speed * speed * e.cfg.EnergyScale
	return v.Mul(ke / speed)
}

// assignRoles makes the body that absorbs more momentum along the contact
// normal the receiver.
func (e *Engine) assignRoles(ia, ib int, c Collision) (energy.Role, energy.Role) {
	n := c.NormalOnFirst
	if n.Len() == 0 {
		n = c.VelocityFirst.Sub(c.VelocitySecond)
	}
	if n.Len() == 0 {
		return energy.Receiver, energy.Projector
	}
	n = n.Normalize()
	pa := massOrOne(e.masses[ia]) * c.VelocityFirst.Dot(n)
	pb := massOrOne(e.masses[ib]) * c.VelocitySecond.Dot(n.Mul(-1))
	if pa >= pb {
		return energy.Receiver, energy.Projector
	}
	return energy.Projector, energy.Receiver
}

func massOrOne(m float64) float64 {
	if m <= 0 {
		return 1
	}
	return m
}

// TransferEnergy runs one exchange between two grids. The partner handles
// are only set for the duration of the call.
func (e *Engine) TransferEnergy(ia, ib int, c Collision) {
	ga, gb := e.grids[ia], e.grids[ib]
	ga.SetCollisionPartner(ib)
	gb.SetCollisionPartner(ia)
	defer ga.ClearCollisionPartner()
	defer gb.ClearCollisionPartner()

	roleA, roleB := e.assignRoles(ia, ib, c)
	cfgA := ga.RoleConfig(roleA, gb.EnergyVector())
	cfgB := gb.RoleConfig(roleB, ga.EnergyVector())

	ga.DirectTransfer(cfgA)
	gb.DirectTransfer(cfgB)
	e.held[ia] += bridgeLineEnergy(ga, cfgA)
	e.held[ib] += bridgeLineEnergy(gb, cfgB)
	e.exchange(ga, gb, cfgB)
	e.exchange(gb, ga, cfgA)

	ga.IndirectTransfer(cfgA)
	gb.IndirectTransfer(cfgB)

	e.pending[ia] = true
	e.pending[ib] = true
}

// bridgeLineEnergy is the energy held on the impact lines behind each bridge.
func bridgeLineEnergy(g *energy.Grid, cfg energy.RoleConfig) float64 {
	var total float64
	for _, b := range g.BridgeCoords() {
		e, _ := g.LineEnergy(cfg, b)
		total += e
	}
	return total
}

// exchange delivers energy that left from through its bridges to to.
func (e *Engine) exchange(from, to *energy.Grid, toCfg energy.RoleConfig) {
	for _, x := range from.TakeOutbound() {
		to.DepositExternal(toCfg, x.Point, x.Energy)
	}
}

// BuildBridges links the voxels nearest the contact point on each grid to
// the matching point on the other grid.
func (e *Engine) BuildBridges(ia, ib int, c Collision) {
	ga, gb := e.grids[ia], e.grids[ib]
	link := func(from, to *energy.Grid) {
		fp, tp := from.Pose(), to.Pose()
		local := fp.ToLocal(c.Point)
		for _, v := range from.NearestVoxels(local, e.cfg.BridgeRadius, e.cfg.MaxBridges) {
			world := fp.ToWorld(v.Center())
			from.AddBridge(v, tp.ToLocal(world))
		}
	}
	link(ga, gb)
	link(gb, ga)
}

// CheckForSeparation asks every grid touched in this batch whether it split
// and hands the result to the body layer. Grids are visited in creation
// order.
func (e *Engine) CheckForSeparation() []BodyOutcome {
	var out []BodyOutcome
	for i, g := range e.grids {
		if !e.pending[i] {
			continue
		}
		e.pending[i] = false
		destroyed, snapped := g.Counts()
		o := BodyOutcome{
			Body:       g.Body(),
			Destroyed:  destroyed,
			Snapped:    snapped,
			LostEnergy: g.LostEnergy(),
			HeldEnergy: e.held[i],
			Render:     g.UpdateRenderData(),
		}
		fields, split := g.Separate()
		switch {
		case split:
			o.Separated = true
			o.Fragments = e.bodies.Spawn(g.Body(), fields)
			e.log.Printf("body %d separated into %d fragments (destroyed=%d snapped=%d)", g.Body(), len(o.Fragments), destroyed, snapped)
		case destroyed > 0 || snapped > 0:
			e.bodies.Update(g.Body(), fields[0])
		}
		out = append(out, o)
	}
	return out
}

// Reset discards all grids.
func (e *Engine) Reset() {
	e.grids = nil
	e.masses = nil
	e.held = nil
	e.pending = nil
	e.empty = nil
	clear(e.lookup)
}

var _ BodyLayer = (*bodies.Registry)(nil)
