package bodies

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sort"

	"voxelfracture.ai/internal/sim/voxel"
)

// Body is one piece of matter: a voxel field placed in the world.
type Body struct {
	ID    voxel.BodyID
	Field voxel.Field
	Pose  voxel.Pose
	Mass  float64
}

// Registry owns the live bodies of a scene. It is not safe for concurrent
// use; the tick loop is its only writer.
type Registry struct {
	next   voxel.BodyID
	bodies map[voxel.BodyID]*Body
}

func NewRegistry() *Registry {
	return &Registry{next: 1, bodies: map[voxel.BodyID]*Body{}}
}

func (r *Registry) Add(field voxel.Field, pose voxel.Pose, mass float64) voxel.BodyID {
	id := r.next
	r.next++
	r.bodies[id] = &Body{ID: id, Field: field, Pose: pose, Mass: mass}
	return id
}

func (r *Registry) Body(id voxel.BodyID) (Body, bool) {
	b, ok := r.bodies[id]
	if !ok {
		return Body{}, false
	}
	return *b, true
}

func (r *Registry) Len() int { return len(r.bodies) }

func (r *Registry) IDs() []voxel.BodyID {
	ids := make([]voxel.BodyID, 0, len(r.bodies))
	for id := range r.bodies {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (r *Registry) Remove(id voxel.BodyID) { delete(r.bodies, id) }

// Spawn replaces parent with one body per fragment. Fragment origins are in
// the parent's lattice; mass is split by voxel count. An empty fragment list
// removes the parent.
func (r *Registry) Spawn(parent voxel.BodyID, fragments []voxel.Field) []voxel.BodyID {
	p, ok := r.bodies[parent]
	if !ok {
		return nil
	}
	delete(r.bodies, parent)

	total := p.Field.Count()
	out := make([]voxel.BodyID, 0, len(fragments))
	for _, f := range fragments {
		if f.Empty() {
			continue
		}
		origin := f.Origin
		f.Origin = voxel.Coord{}
		out = append(out, r.Add(f, p.Pose.Shifted(origin), shareOf(p.Mass, f.Count(), total)))
	}
	return out
}

// Update replaces a damaged body's field in place.
func (r *Registry) Update(id voxel.BodyID, field voxel.Field) {
	b, ok := r.bodies[id]
	if !ok {
		return
	}
	if field.Empty() {
		delete(r.bodies, id)
		return
	}
	b.Mass = shareOf(b.Mass, field.Count(), b.Field.Count())
	b.Pose = b.Pose.Shifted(field.Origin)
	field.Origin = voxel.Coord{}
	b.Field = field
}

func shareOf(mass float64, part, whole int) float64 {
	if whole <= 0 {
		return mass
	}
	return mass * float64(part) / float64(whole)
}

// Digest hashes ids, sizes and occupancy of every body in id order.
func (r *Registry) Digest() string {
	h := sha256.New()
	var tmp [8]byte
	w := func(v uint64) {
		binary.LittleEndian.PutUint64(tmp[:], v)
		h.Write(tmp[:])
	}
	w(uint64(r.next))
	for _, id := range r.IDs() {
		b := r.bodies[id]
		w(uint64(id))
		w(uint64(b.Field.Size.X))
		w(uint64(b.Field.Size.Y))
		w(uint64(b.Field.Size.Z))
		w(math.Float64bits(b.Mass))
		for i, f := range b.Field.Filled {
			if !f {
				continue
			}
			w(uint64(i))
			w(math.Float64bits(b.Field.Strength[i]))
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
