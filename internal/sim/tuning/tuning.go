package tuning

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickRateHz         int `yaml:"tick_rate_hz"`
	SnapshotEveryTicks int `yaml:"snapshot_every_ticks"`

	// World units per voxel edge for bodies created from a scene.
	VoxelSize float64 `yaml:"voxel_size"`

	Energy   EnergyTuning   `yaml:"energy"`
	Bridges  BridgeTuning   `yaml:"bridges"`
	Transfer TransferTuning `yaml:"transfer"`
}

type EnergyTuning struct {
	// Multiplier on 0.5*m*|v|^2.
	Scale float64 `yaml:"scale"`
	// Residuals at or below this are treated as fully absorbed.
	MinEnergy float64 `yaml:"min_energy"`
}

type BridgeTuning struct {
	Radius float64 `yaml:"radius"`
	Max    int     `yaml:"max"`
}

type TransferTuning struct {
	// Share of a voxel's strength it can hold as energy before it is full.
	AbsorbFraction float64 `yaml:"absorb_fraction"`
	// Exponent on the cosine term of the pressure/stress maps.
	PressureBias float64 `yaml:"pressure_bias"`
	// Parity target multiplier per transfer-graph generation.
	IndirectFalloff float64 `yaml:"indirect_falloff"`
}

func Defaults() Tuning {
	return Tuning{
		TickRateHz:         30,
		SnapshotEveryTicks: 3000,
		VoxelSize:          0.1,
		Energy: EnergyTuning{
			Scale:     1,
			MinEnergy: 1e-3,
		},
		Bridges: BridgeTuning{
			Radius: 1.5,
			Max:    16,
		},
		Transfer: TransferTuning{
			AbsorbFraction:  1,
			PressureBias:    1,
			IndirectFalloff: 0.5,
		},
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	var errs []error
	if t.TickRateHz <= 0 {
		errs = append(errs, fmt.Errorf("tick_rate_hz must be > 0"))
	}
	if t.VoxelSize <= 0 {
		errs = append(errs, fmt.Errorf("voxel_size must be > 0"))
	}
	if t.Energy.Scale < 0 {
		errs = append(errs, fmt.Errorf("energy.scale must be >= 0"))
	}
	if t.Energy.MinEnergy < 0 {
		errs = append(errs, fmt.Errorf("energy.min_energy must be >= 0"))
	}
	if t.Bridges.Radius < 0 {
		errs = append(errs, fmt.Errorf("bridges.radius must be >= 0"))
	}
	if t.Bridges.Max <= 0 {
		errs = append(errs, fmt.Errorf("bridges.max must be > 0"))
	}
	if t.Transfer.AbsorbFraction <= 0 || t.Transfer.AbsorbFraction > 1 {
		errs = append(errs, fmt.Errorf("transfer.absorb_fraction must be in (0,1]"))
	}
	if t.Transfer.PressureBias <= 0 {
		errs = append(errs, fmt.Errorf("transfer.pressure_bias must be > 0"))
	}
	if t.Transfer.IndirectFalloff < 0 || t.Transfer.IndirectFalloff > 1 {
		errs = append(errs, fmt.Errorf("transfer.indirect_falloff must be in [0,1]"))
	}
	return errors.Join(errs...)
}
