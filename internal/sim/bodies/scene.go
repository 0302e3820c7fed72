package bodies

import (
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"voxelfracture.ai/internal/sim/voxel"
)

// Scene describes the initial bodies of a server run (scene.yaml).
type Scene struct {
	ID     string      `yaml:"id"`
	Bodies []SceneBody `yaml:"bodies"`
}

type SceneBody struct {
	Size      [3]int     `yaml:"size"`
	Strength  float64    `yaml:"strength"`
	Position  [3]float64 `yaml:"position"`
	Mass      float64    `yaml:"mass"`
	VoxelSize float64    `yaml:"voxel_size,omitempty"`
	// Optional hollow cells, local coordinates.
	Holes [][3]int `yaml:"holes,omitempty"`
}

func LoadScene(path string) (Scene, error) {
	var s Scene
	raw, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return s, fmt.Errorf("scene.yaml: %w", err)
	}
	for i, b := range s.Bodies {
		if b.Size[0] <= 0 || b.Size[1] <= 0 || b.Size[2] <= 0 {
			return s, fmt.Errorf("scene.yaml: body %d: size must be positive", i)
		}
		if b.Strength <= 0 {
			return s, fmt.Errorf("scene.yaml: body %d: strength must be positive", i)
		}
	}
	return s, nil
}

// Populate adds every scene body to r in declaration order.
func (s Scene) Populate(r *Registry, defaultVoxelSize float64) []voxel.BodyID {
	ids := make([]voxel.BodyID, 0, len(s.Bodies))
	for _, b := range s.Bodies {
		f := voxel.Box(voxel.FromArray(b.Size), b.Strength)
		for _, h := range b.Holes {
			f.Clear(voxel.FromArray(h))
		}
		vs := b.VoxelSize
		if vs <= 0 {
			vs = defaultVoxelSize
		}
		mass := b.Mass
		if mass <= 0 {
			mass = float64(f.Count())
		}
		ids = append(ids, r.Add(f, voxel.NewPose(mgl64.Vec3(b.Position), vs), mass))
	}
	return ids
}
