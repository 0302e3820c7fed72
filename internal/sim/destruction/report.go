package destruction

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"

	"voxelfracture.ai/internal/sim/energy"
	"voxelfracture.ai/internal/sim/voxel"
)

// BodyOutcome summarizes what one batch did to one body.
type BodyOutcome struct {
	Body       voxel.BodyID      `json:"id"`
	Destroyed  int               `json:"destroyed"`
	Snapped    int               `json:"snapped"`
	LostEnergy float64           `json:"lost_energy,omitempty"`
	HeldEnergy float64           `json:"held_energy,omitempty"`
	Separated  bool              `json:"separated"`
	Fragments  []voxel.BodyID    `json:"fragments,omitempty"`
	Render     energy.RenderData `json:"render"`
}

type TickReport struct {
	Tick       uint64        `json:"tick"`
	Collisions int           `json:"collisions"`
	Bodies     []BodyOutcome `json:"bodies"`
	Digest     string        `json:"digest"`
}

// TickLogEntry is one line of the tick log: the input batch and what it
// produced, enough to re-run and compare.
type TickLogEntry struct {
	Tick       uint64        `json:"tick"`
	Collisions []Collision   `json:"collisions"`
	Bodies     []BodyOutcome `json:"bodies"`
	Digest     string        `json:"digest"`
	WorldHash  string        `json:"world_hash,omitempty"`
}

func (r TickReport) LogEntry(set []Collision) TickLogEntry {
	return TickLogEntry{
		Tick:       r.Tick,
		Collisions: set,
		Bodies:     r.Bodies,
		Digest:     r.Digest,
	}
}

func (r TickReport) digest() string {
	h := sha256.New()
	var tmp [8]byte
	w := func(v uint64) {
		binary.LittleEndian.PutUint64(tmp[:], v)
		h.Write(tmp[:])
	}
	w(r.Tick)
	w(uint64(r.Collisions))
	for _, b := range r.Bodies {
		w(uint64(b.Body))
		w(uint64(b.Destroyed))
		w(uint64(b.Snapped))
		w(math.Float64bits(b.LostEnergy))
		if b.Separated {
			w(1)
		} else {
			w(0)
		}
		w(uint64(len(b.Fragments)))
		for _, f := range b.Fragments {
			w(uint64(f))
		}
		h.Write([]byte(b.Render.StatusRLE))
	}
	return hex.EncodeToString(h.Sum(nil))
}
