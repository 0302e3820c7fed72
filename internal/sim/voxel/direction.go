package voxel

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Direction is one of the 26 neighbour directions (faces, edges, corners).
type Direction uint8

const NumDirections = 26

// NoDirection marks nodes without a feeder.
const NoDirection Direction = 30

const (
	Down Direction = iota
	Up
	Left
	Right
	Front
	Back
	LeftFront
	LeftBack
	RightFront
	RightBack
	UpLeft
	UpRight
	UpFront
	UpBack
	UpLeftFront
	UpLeftBack
	UpRightFront
	UpRightBack
	DownLeft
	DownRight
	DownFront
	DownBack
	DownLeftFront
	DownLeftBack
	DownRightFront
	DownRightBack
)

var directionVectors = [NumDirections]Coord{
	Down:           {0, -1, 0},
	Up:             {0, 1, 0},
	Left:           {-1, 0, 0},
	Right:          {1, 0, 0},
	Front:          {0, 0, 1},
	Back:           {0, 0, -1},
	LeftFront:      {-1, 0, 1},
	LeftBack:       {-1, 0, -1},
	RightFront:     {1, 0, 1},
	RightBack:      {1, 0, -1},
	UpLeft:         {-1, 1, 0},
	UpRight:        {1, 1, 0},
	UpFront:        {0, 1, 1},
	UpBack:         {0, 1, -1},
	UpLeftFront:    {-1, 1, 1},
	UpLeftBack:     {-1, 1, -1},
	UpRightFront:   {1, 1, 1},
	UpRightBack:    {1, 1, -1},
	DownLeft:       {-1, -1, 0},
	DownRight:      {1, -1, 0},
	DownFront:      {0, -1, 1},
	DownBack:       {0, -1, -1},
	DownLeftFront:  {-1, -1, 1},
	DownLeftBack:   {-1, -1, -1},
	DownRightFront: {1, -1, 1},
	DownRightBack:  {1, -1, -1},
}

var directionNames = [NumDirections]string{
	"DOWN", "UP", "LEFT", "RIGHT", "FRONT", "BACK",
	"LEFT_FRONT", "LEFT_BACK", "RIGHT_FRONT", "RIGHT_BACK",
	"UP_LEFT", "UP_RIGHT", "UP_FRONT", "UP_BACK",
	"UP_LEFT_FRONT", "UP_LEFT_BACK", "UP_RIGHT_FRONT", "UP_RIGHT_BACK",
	"DOWN_LEFT", "DOWN_RIGHT", "DOWN_FRONT", "DOWN_BACK",
	"DOWN_LEFT_FRONT", "DOWN_LEFT_BACK", "DOWN_RIGHT_FRONT", "DOWN_RIGHT_BACK",
}

// FaceDirections are the six axis-aligned directions, in code order.
var FaceDirections = [6]Direction{Down, Up, Left, Right, Front, Back}

var (
	reverseDirections [NumDirections]Direction
	unitVectors       [NumDirections]mgl64.Vec3
)

func init() {
	for d := Direction(0); d < NumDirections; d++ {
		v := directionVectors[d]
		neg := Coord{-v.X, -v.Y, -v.Z}
		found := false
		for r := Direction(0); r < NumDirections; r++ {
			if directionVectors[r] == neg {
				reverseDirections[d] = r
				found = true
				break
			}
		}
		if !found {
			panic(fmt.Sprintf("voxel: direction %s has no reverse", directionNames[d]))
		}
		unitVectors[d] = mgl64.Vec3{float64(v.X), float64(v.Y), float64(v.Z)}.Normalize()
	}
}

func (d Direction) Valid() bool { return d < NumDirections }

// Vector is the integer lattice step for d.
func (d Direction) Vector() Coord {
	if !d.Valid() {
		return Coord{}
	}
	return directionVectors[d]
}

// VectorF is the unit-length vector for d.
func (d Direction) VectorF() mgl64.Vec3 {
	if !d.Valid() {
		return mgl64.Vec3{}
	}
	return unitVectors[d]
}

func (d Direction) Reverse() Direction {
	if !d.Valid() {
		return d
	}
	return reverseDirections[d]
}

func (d Direction) String() string {
	if !d.Valid() {
		return "NONE"
	}
	return directionNames[d]
}

// Dominant returns the direction best aligned with v. Ties resolve to the
// lowest code. ok is false for a zero or non-finite vector.
func Dominant(v mgl64.Vec3) (d Direction, ok bool) {
	l := v.Len()
	if l == 0 || math.IsNaN(l) || math.IsInf(l, 0) {
		return NoDirection, false
	}
	u := v.Mul(1 / l)
	best := math.Inf(-1)
	for c := Direction(0); c < NumDirections; c++ {
		if dot := unitVectors[c].Dot(u); dot > best+1e-12 {
			best = dot
			d = c
		}
	}
	return d, true
}
