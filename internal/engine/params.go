package engine

import (
	"fmt"

	"github.com/turtacn/ligandscope/pkg/errors"
)

// Default distance cutoffs in ångströms.
const (
	DefaultBindingSiteDist    = 7.5
	DefaultHydrophobicMaxDist = 4.0
	DefaultHBondMaxDist       = 3.5
	DefaultSaltBridgeMaxDist  = 5.5
	DefaultPiStackingMaxDist  = 4.1
	DefaultPiCationMaxDist    = 6.0
	DefaultHalogenBondMaxDist = 6.0
	DefaultWaterBridgeMaxDist = 4.0
)

// AnalysisParams holds the named distance cutoffs of the pipeline, all in
// ångströms and all independently configurable.  The salt-bridge,
// π-stacking, π-cation, and halogen-bond cutoffs are reserved for families
// that have typed records but no classifier yet.
type AnalysisParams struct {
	// BindingSiteDist is the maximum ligand-atom to protein-atom distance
	// for a protein atom to join a ligand's pocket.  Default 7.5.
	BindingSiteDist float64 `json:"bindingSiteDist" mapstructure:"binding_site_dist"`

	// HydrophobicMaxDist is the maximum contact distance for hydrophobic
	// packing.  Default 4.0.
	HydrophobicMaxDist float64 `json:"hydrophobicMaxDist" mapstructure:"hydrophobic_max_dist"`

	// HBondMaxDist is the maximum donor–acceptor distance for a hydrogen
	// bond.  Default 3.5.
	HBondMaxDist float64 `json:"hbondMaxDist" mapstructure:"hbond_max_dist"`

	// SaltBridgeMaxDist is reserved.  Default 5.5.
	SaltBridgeMaxDist float64 `json:"saltBridgeMaxDist" mapstructure:"salt_bridge_max_dist"`

	// PiStackingMaxDist is reserved.  Default 4.1.
	PiStackingMaxDist float64 `json:"piStackingMaxDist" mapstructure:"pi_stacking_max_dist"`

	// PiCationMaxDist is reserved.  Default 6.0.
	PiCationMaxDist float64 `json:"piCationMaxDist" mapstructure:"pi_cation_max_dist"`

	// HalogenBondMaxDist is reserved.  Default 6.0.
	HalogenBondMaxDist float64 `json:"halogenBondMaxDist" mapstructure:"halogen_bond_max_dist"`

	// WaterBridgeMaxDist is the maximum length of each leg of a
	// (protein, water, ligand) bridge triangle.  Default 4.0.
	WaterBridgeMaxDist float64 `json:"waterBridgeMaxDist" mapstructure:"water_bridge_max_dist"`
}

// DefaultParams returns an AnalysisParams with every cutoff at its default.
func DefaultParams() AnalysisParams {
	return AnalysisParams{
		BindingSiteDist:    DefaultBindingSiteDist,
		HydrophobicMaxDist: DefaultHydrophobicMaxDist,
		HBondMaxDist:       DefaultHBondMaxDist,
		SaltBridgeMaxDist:  DefaultSaltBridgeMaxDist,
		PiStackingMaxDist:  DefaultPiStackingMaxDist,
		PiCationMaxDist:    DefaultPiCationMaxDist,
		HalogenBondMaxDist: DefaultHalogenBondMaxDist,
		WaterBridgeMaxDist: DefaultWaterBridgeMaxDist,
	}
}

// ApplyDefaults fills every zero-valued cutoff with its default so partial
// overrides work the way callers expect: set only what you change.
func (p *AnalysisParams) ApplyDefaults() {
	if p.BindingSiteDist == 0 {
		p.BindingSiteDist = DefaultBindingSiteDist
	}
	if p.HydrophobicMaxDist == 0 {
		p.HydrophobicMaxDist = DefaultHydrophobicMaxDist
	}
	if p.HBondMaxDist == 0 {
		p.HBondMaxDist = DefaultHBondMaxDist
	}
	if p.SaltBridgeMaxDist == 0 {
		p.SaltBridgeMaxDist = DefaultSaltBridgeMaxDist
	}
	if p.PiStackingMaxDist == 0 {
		p.PiStackingMaxDist = DefaultPiStackingMaxDist
	}
	if p.PiCationMaxDist == 0 {
		p.PiCationMaxDist = DefaultPiCationMaxDist
	}
	if p.HalogenBondMaxDist == 0 {
		p.HalogenBondMaxDist = DefaultHalogenBondMaxDist
	}
	if p.WaterBridgeMaxDist == 0 {
		p.WaterBridgeMaxDist = DefaultWaterBridgeMaxDist
	}
}

// Validate checks that every cutoff is positive and not absurdly large.
// A cutoff above 50 Å would defeat the spatial index and almost certainly
// indicates a unit mistake by the caller.
func (p AnalysisParams) Validate() error {
	check := func(name string, v float64) error {
		if v <= 0 {
			return errors.Newf(errors.CodeInvalidCutoff,
				"%s must be positive, got %v", name, v)
		}
		if v > 50 {
			return errors.Newf(errors.CodeInvalidCutoff,
				"%s is %v Å; cutoffs above 50 Å are not supported", name, v)
		}
		return nil
	}

	for _, c := range []struct {
		name string
		v    float64
	}{
		{"bindingSiteDist", p.BindingSiteDist},
		{"hydrophobicMaxDist", p.HydrophobicMaxDist},
		{"hbondMaxDist", p.HBondMaxDist},
		{"saltBridgeMaxDist", p.SaltBridgeMaxDist},
		{"piStackingMaxDist", p.PiStackingMaxDist},
		{"piCationMaxDist", p.PiCationMaxDist},
		{"halogenBondMaxDist", p.HalogenBondMaxDist},
		{"waterBridgeMaxDist", p.WaterBridgeMaxDist},
	} {
		if err := check(c.name, c.v); err != nil {
			return err
		}
	}
	return nil
}

// String returns a compact single-line rendering used in logs.
func (p AnalysisParams) String() string {
	return fmt.Sprintf(
		"site=%.2f hydrophobic=%.2f hbond=%.2f waterbridge=%.2f",
		p.BindingSiteDist, p.HydrophobicMaxDist, p.HBondMaxDist, p.WaterBridgeMaxDist)
}
