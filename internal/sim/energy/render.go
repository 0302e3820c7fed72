package energy

import "voxelfracture.ai/internal/sim/encoding"

// Per-voxel status codes in render payloads.
const (
	StatusEmpty byte = iota
	StatusIntact
	StatusDestroyed
	StatusSnapped
)

type RenderData struct {
	Size      [3]int `json:"size"`
	StatusRLE string `json:"status_rle"`
}

// Statuses returns one status code per cell in scan order.
func (g *Grid) Statuses() []byte {
	out := make([]byte, len(g.voxels))
	for i := range g.voxels {
		v := &g.voxels[i]
		switch {
		case !v.present:
			out[i] = StatusEmpty
		case v.Destroyed:
			out[i] = StatusDestroyed
		case v.Snapped:
			out[i] = StatusSnapped
		default:
			out[i] = StatusIntact
		}
	}
	return out
}

// UpdateRenderData snapshots per-voxel status for the renderer.
func (g *Grid) UpdateRenderData() RenderData {
	return RenderData{
		Size:      g.field.Size.Array(),
		StatusRLE: encoding.EncodeRLE(g.Statuses()),
	}
}
