package energy

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"voxelfracture.ai/internal/sim/voxel"
)

type Role uint8

const (
	Receiver Role = iota
	Projector
)

func (r Role) String() string {
	if r == Projector {
		return "projector"
	}
	return "receiver"
}

// RoleConfig is the per-collision transfer configuration of one grid. It is
// built once per collision and passed to every transfer call.
type RoleConfig struct {
	Role Role

	// Ratio[d] is the pressure share of a load travelling in direction d;
	// the stress share is 1-Ratio[d].
	Ratio [voxel.NumDirections]float64

	// Directions whose loads are mostly pressure, ascending code order.
	PressureDirs []voxel.Direction

	// DirectMap[d] is the share of direct energy carried into the neighbour
	// in direction d.
	DirectMap [voxel.NumDirections]float64

	// Impact is the dominant direction of the incoming energy.
	Impact voxel.Direction
}

func (c RoleConfig) StressRatio(d voxel.Direction) float64 {
	if !d.Valid() {
		return 0
	}
	return 1 - c.Ratio[d]
}

func (c RoleConfig) PressureRatio(d voxel.Direction) float64 {
	if !d.Valid() {
		return 0
	}
	return c.Ratio[d]
}

// Maps holds both role configurations built from one energy vector.
type Maps struct {
	Receiver  RoleConfig
	Projector RoleConfig
}

func (m Maps) For(role Role) RoleConfig {
	if role == Projector {
		return m.Projector
	}
	return m.Receiver
}

// BuildMaps derives the receiver and projector maps from an energy vector in
// local space. A receiver turns loads into pressure smoothly with alignment;
// a projector only compresses along forward directions and shears laterally.
func BuildMaps(energyLocal mgl64.Vec3, bias float64) Maps {
	if bias <= 0 {
		bias = 1
	}
	impact, ok := voxel.Dominant(energyLocal)
	if !ok {
		impact = voxel.Down
	}
	u := impact.VectorF()
	if ok {
		u = energyLocal.Normalize()
	}

	rc := RoleConfig{Role: Receiver, Impact: impact}
	pc := RoleConfig{Role: Projector, Impact: impact}
	for d := voxel.Direction(0); d < voxel.NumDirections; d++ {
		c := d.VectorF().Dot(u)
		rc.Ratio[d] = math.Pow((1+c)/2, bias)
		pc.Ratio[d] = math.Pow(math.Max(c, 0), bias)
		fwd := math.Max(c, 0)
		rc.DirectMap[d] = fwd
		pc.DirectMap[d] = fwd
	}
	rc.PressureDirs = pressureDirs(rc.Ratio)
	pc.PressureDirs = pressureDirs(pc.Ratio)
	return Maps{Receiver: rc, Projector: pc}
}

// UniformConfig gives every direction the same pressure ratio and carries
// direct energy only along impact.
func UniformConfig(role Role, impact voxel.Direction, pressureRatio float64) RoleConfig {
	c := RoleConfig{Role: role, Impact: impact}
	for d := range c.Ratio {
		c.Ratio[d] = pressureRatio
	}
	if impact.Valid() {
		c.DirectMap[impact] = 1
	}
	c.PressureDirs = []voxel.Direction{impact}
	return c
}

func pressureDirs(ratio [voxel.NumDirections]float64) []voxel.Direction {
	var out []voxel.Direction
	for d, r := range ratio {
		if r >= 0.5 {
			out = append(out, voxel.Direction(d))
		}
	}
	return out
}
