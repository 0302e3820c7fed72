package voxel

import "github.com/go-gl/mathgl/mgl64"

// Pose places a body's voxel lattice in world space. Local coordinates are
// in voxel units: voxel (x,y,z) spans [x,x+1) on each axis.
type Pose struct {
	Position  mgl64.Vec3
	Rotation  mgl64.Quat
	VoxelSize float64
}

func NewPose(pos mgl64.Vec3, voxelSize float64) Pose {
	return Pose{Position: pos, Rotation: mgl64.QuatIdent(), VoxelSize: voxelSize}
}

func (p Pose) rot() mgl64.Quat {
	if p.Rotation.W == 0 && p.Rotation.V.Len() == 0 {
		return mgl64.QuatIdent()
	}
	return p.Rotation.Normalize()
}

func (p Pose) scale() float64 {
	if p.VoxelSize <= 0 {
		return 1
	}
	return p.VoxelSize
}

// ToLocal maps a world point into local voxel units.
func (p Pose) ToLocal(world mgl64.Vec3) mgl64.Vec3 {
	return p.rot().Inverse().Rotate(world.Sub(p.Position)).Mul(1 / p.scale())
}

// ToWorld maps a local voxel-unit point into world space.
func (p Pose) ToWorld(local mgl64.Vec3) mgl64.Vec3 {
	return p.rot().Rotate(local.Mul(p.scale())).Add(p.Position)
}

// DirToLocal rotates a world direction into the local frame without scaling.
func (p Pose) DirToLocal(v mgl64.Vec3) mgl64.Vec3 {
	return p.rot().Inverse().Rotate(v)
}

// Shifted returns the pose of a sub-lattice whose cell (0,0,0) sits at
// origin in this pose's lattice.
func (p Pose) Shifted(origin Coord) Pose {
	o := mgl64.Vec3{float64(origin.X), float64(origin.Y), float64(origin.Z)}
	return Pose{
		Position:  p.ToWorld(o),
		Rotation:  p.rot(),
		VoxelSize: p.scale(),
	}
}
