package destruction

import (
	"github.com/go-gl/mathgl/mgl64"

	"voxelfracture.ai/internal/sim/bodies"
	"voxelfracture.ai/internal/sim/voxel"
)

// Collision is one pairwise impact reported by the physics layer.
type Collision struct {
	First  voxel.BodyID `json:"first"`
	Second voxel.BodyID `json:"second"`

	// Velocity change delivered to each body by the impact.
	VelocityFirst  mgl64.Vec3 `json:"velocity_first"`
	VelocitySecond mgl64.Vec3 `json:"velocity_second"`

	Point mgl64.Vec3 `json:"point"`
	// NormalOnFirst points into the first body.
	NormalOnFirst mgl64.Vec3 `json:"normal_on_first"`

	Timestep float64 `json:"timestep"`
}

func (c Collision) NormalOnSecond() mgl64.Vec3 { return c.NormalOnFirst.Mul(-1) }

// BodyLayer is the body-management side the engine reads bodies from and
// hands separation results to.
type BodyLayer interface {
	Body(id voxel.BodyID) (bodies.Body, bool)
	// Spawn replaces parent with the given fragments and returns their ids.
	Spawn(parent voxel.BodyID, fragments []voxel.Field) []voxel.BodyID
	// Update replaces a damaged but unsplit body's field.
	Update(id voxel.BodyID, field voxel.Field)
}
