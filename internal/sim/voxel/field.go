package voxel

// Field is a voxel occupancy lattice with a per-voxel strength. Cells are
// flattened x-fastest, then y, then z.
type Field struct {
	Size Coord
	// Origin places cell (0,0,0) in the index space of the field this one
	// was cut from. Zero for imported fields.
	Origin   Coord
	Filled   []bool
	Strength []float64
}

func NewField(size Coord) Field {
	if size.X < 0 || size.Y < 0 || size.Z < 0 {
		size = Coord{}
	}
	n := size.X * size.Y * size.Z
	return Field{
		Size:     size,
		Filled:   make([]bool, n),
		Strength: make([]float64, n),
	}
}

// Box returns a fully occupied field of uniform strength.
func Box(size Coord, strength float64) Field {
	f := NewField(size)
	for i := range f.Filled {
		f.Filled[i] = true
		f.Strength[i] = strength
	}
	return f
}

func (f Field) Len() int { return len(f.Filled) }

func (f Field) InBounds(c Coord) bool {
	return c.X >= 0 && c.Y >= 0 && c.Z >= 0 && c.X < f.Size.X && c.Y < f.Size.Y && c.Z < f.Size.Z
}

func (f Field) Index(c Coord) (int, bool) {
	if !f.InBounds(c) {
		return 0, false
	}
	return c.X + f.Size.X*(c.Y+f.Size.Y*c.Z), true
}

func (f Field) CoordOf(i int) Coord {
	sx, sy := f.Size.X, f.Size.Y
	return Coord{X: i % sx, Y: (i / sx) % sy, Z: i / (sx * sy)}
}

func (f Field) Has(c Coord) bool {
	i, ok := f.Index(c)
	return ok && f.Filled[i]
}

func (f Field) StrengthAt(c Coord) float64 {
	i, ok := f.Index(c)
	if !ok || !f.Filled[i] {
		return 0
	}
	return f.Strength[i]
}

func (f *Field) Set(c Coord, strength float64) bool {
	i, ok := f.Index(c)
	if !ok {
		return false
	}
	f.Filled[i] = true
	f.Strength[i] = strength
	return true
}

func (f *Field) Clear(c Coord) {
	if i, ok := f.Index(c); ok {
		f.Filled[i] = false
		f.Strength[i] = 0
	}
}

// Count is the number of occupied cells.
func (f Field) Count() int {
	n := 0
	for _, v := range f.Filled {
		if v {
			n++
		}
	}
	return n
}

func (f Field) Empty() bool { return f.Count() == 0 }

func (f Field) Clone() Field {
	out := Field{Size: f.Size, Origin: f.Origin}
	out.Filled = append([]bool(nil), f.Filled...)
	out.Strength = append([]float64(nil), f.Strength...)
	return out
}

// Bounds returns the inclusive min/max of occupied cells.
func (f Field) Bounds() (lo, hi Coord, ok bool) {
	for i, filled := range f.Filled {
		if !filled {
			continue
		}
		c := f.CoordOf(i)
		if !ok {
			lo, hi, ok = c, c, true
			continue
		}
		lo, hi = lo.Min(c), hi.Max(c)
	}
	return lo, hi, ok
}

// Crop shrinks the field to its occupied bounding box. Origin is moved so
// every voxel keeps its position in the parent index space.
func (f Field) Crop() Field {
	lo, hi, ok := f.Bounds()
	if !ok {
		return Field{Origin: f.Origin}
	}
	out := NewField(hi.Sub(lo).Add(Coord{1, 1, 1}))
	out.Origin = f.Origin.Add(lo)
	for i, filled := range f.Filled {
		if !filled {
			continue
		}
		c := f.CoordOf(i)
		out.Set(c.Sub(lo), f.Strength[i])
	}
	return out
}
