package voxel

import "github.com/go-gl/mathgl/mgl64"

// BodyID identifies a body owned by the body-management layer.
type BodyID uint64

type Coord struct {
	X, Y, Z int
}

func C(x, y, z int) Coord { return Coord{X: x, Y: y, Z: z} }

func (c Coord) Add(o Coord) Coord { return Coord{c.X + o.X, c.Y + o.Y, c.Z + o.Z} }
func (c Coord) Sub(o Coord) Coord { return Coord{c.X - o.X, c.Y - o.Y, c.Z - o.Z} }

// Min and Max are componentwise.
func (c Coord) Min(o Coord) Coord { return Coord{min(c.X, o.X), min(c.Y, o.Y), min(c.Z, o.Z)} }
func (c Coord) Max(o Coord) Coord { return Coord{max(c.X, o.X), max(c.Y, o.Y), max(c.Z, o.Z)} }

// Less orders coordinates by z, then y, then x (the flattened scan order).
func (c Coord) Less(o Coord) bool {
	if c.Z != o.Z {
		return c.Z < o.Z
	}
	if c.Y != o.Y {
		return c.Y < o.Y
	}
	return c.X < o.X
}

// Center is the voxel centre in local voxel units.
func (c Coord) Center() mgl64.Vec3 {
	return mgl64.Vec3{float64(c.X) + 0.5, float64(c.Y) + 0.5, float64(c.Z) + 0.5}
}

func (c Coord) Array() [3]int { return [3]int{c.X, c.Y, c.Z} }

func FromArray(a [3]int) Coord { return Coord{a[0], a[1], a[2]} }

// Floor returns the voxel containing the local point p.
func Floor(p mgl64.Vec3) Coord {
	return Coord{floorInt(p[0]), floorInt(p[1]), floorInt(p[2])}
}

func floorInt(v float64) int {
	i := int(v)
	if v < 0 && float64(i) != v {
		i--
	}
	return i
}
