package bodies

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"voxelfracture.ai/internal/persistence/snapshot"
	"voxelfracture.ai/internal/sim/encoding"
	"voxelfracture.ai/internal/sim/voxel"
)

func (r *Registry) ExportSnapshot(sceneID string, tick uint64) snapshot.SnapshotV1 {
	snap := snapshot.SnapshotV1{
		Header:   snapshot.Header{Version: snapshot.Version, SceneID: sceneID, Tick: tick},
		NextBody: uint64(r.next),
	}
	for _, id := range r.IDs() {
		b := r.bodies[id]
		q := b.Pose.Rotation
		bv := snapshot.BodyV1{
			ID:        uint64(id),
			Mass:      b.Mass,
			Pos:       [3]float64(b.Pose.Position),
			Rot:       [4]float64{q.W, q.V[0], q.V[1], q.V[2]},
			VoxelSize: b.Pose.VoxelSize,
			Size:      b.Field.Size.Array(),
			Occupancy: encoding.EncodeOccupancy(b.Field.Filled),
		}
		for i, f := range b.Field.Filled {
			if f {
				bv.Strength = append(bv.Strength, b.Field.Strength[i])
			}
		}
		snap.Bodies = append(snap.Bodies, bv)
	}
	snap.Header.Bodies = len(snap.Bodies)
	return snap
}

// ImportSnapshot replaces the registry contents with the snapshot bodies.
func (r *Registry) ImportSnapshot(snap snapshot.SnapshotV1) error {
	bodies := make(map[voxel.BodyID]*Body, len(snap.Bodies))
	next := voxel.BodyID(snap.NextBody)
	for _, bv := range snap.Bodies {
		id := voxel.BodyID(bv.ID)
		if _, dup := bodies[id]; dup {
			return fmt.Errorf("snapshot: duplicate body %d", id)
		}
		field := voxel.NewField(voxel.FromArray(bv.Size))
		filled, err := encoding.DecodeOccupancy(bv.Occupancy, field.Len())
		if err != nil {
			return fmt.Errorf("snapshot: body %d occupancy: %w", id, err)
		}
		k := 0
		for i, f := range filled {
			if !f {
				continue
			}
			if k >= len(bv.Strength) {
				return fmt.Errorf("snapshot: body %d: strength list too short", id)
			}
			field.Filled[i] = true
			field.Strength[i] = bv.Strength[k]
			k++
		}
		if k != len(bv.Strength) {
			return fmt.Errorf("snapshot: body %d: strength list too long", id)
		}
		bodies[id] = &Body{
			ID:    id,
			Field: field,
			Pose: voxel.Pose{
				Position:  mgl64.Vec3(bv.Pos),
				Rotation:  mgl64.Quat{W: bv.Rot[0], V: mgl64.Vec3{bv.Rot[1], bv.Rot[2], bv.Rot[3]}},
				VoxelSize: bv.VoxelSize,
			},
			Mass: bv.Mass,
		}
		if id >= next {
			next = id + 1
		}
	}
	if next == 0 {
		next = 1
	}
	r.bodies = bodies
	r.next = next
	return nil
}
