package energy

// VoxelData is the transfer state of one occupied cell.
type VoxelData struct {
	Strength float64

	// A voxel can be a source in one exchange and a target in another during
	// the same step, so energy is tracked per role.
	EnergyProjected float64
	EnergyReceiving float64

	Stress   float64
	Pressure float64

	Full      bool
	Graphed   bool
	Destroyed bool // caved under pressure
	Snapped   bool // broke under stress

	present bool
}

func (v *VoxelData) Energy(role Role) float64 {
	if role == Receiver {
		return v.EnergyReceiving
	}
	return v.EnergyProjected
}

func (v *VoxelData) SetEnergy(role Role, e float64) {
	if role == Receiver {
		v.EnergyReceiving = e
	} else {
		v.EnergyProjected = e
	}
}

func (v *VoxelData) AddEnergy(role Role, e float64) {
	v.SetEnergy(role, v.Energy(role)+e)
}

func (v *VoxelData) Present() bool { return v.present }
func (v *VoxelData) Broken() bool  { return v.Destroyed || v.Snapped }
func (v *VoxelData) Live() bool    { return v.present && !v.Broken() }

func (v *VoxelData) resetPass() {
	v.EnergyProjected = 0
	v.EnergyReceiving = 0
	v.Stress = 0
	v.Pressure = 0
	v.Full = false
	v.Graphed = false
}
