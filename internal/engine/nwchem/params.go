package nwchem

import (
	"fmt"
	"math"

	"github.com/ash399/litesoph/internal/task"
)

// as_to_au converts attoseconds to atomic time units.
const asToAU = 1.0 / 24.188843265

var xcValues = map[string]bool{
	"LDA":       true,
	"PBE0":      true,
	"PBE96":     true,
	"B3LYP":     true,
	"BHLYP":     true,
	"X3LYP":     true,
	"BECKE88":   true,
	"CAM-B3LYP": true,
}

var basisValues = map[string]bool{
	"sto-3g":      true,
	"3-21G":       true,
	"6-31G":       true,
	"6-31G*":      true,
	"6-311G":      true,
	"6-311++G**":  true,
	"cc-pVDZ":     true,
	"aug-cc-pVDZ": true,
}

// GroundStateParams is the validated configuration of a ground-state
// calculation.
type GroundStateParams struct {
	BasisType   string
	XC          string
	Basis       string
	MaxIter     int
	EnergyConv  float64
	DensityConv float64
}

// groundStateParams validates the stage parameters against the engine's
// accepted value set. Violations surface as setup errors before any
// external process runs.
func groundStateParams(p map[string]any) (*GroundStateParams, error) {
	gs := &GroundStateParams{
		BasisType:   str(p, "basis_type", "gaussian"),
		XC:          str(p, "xc", ""),
		Basis:       str(p, "basis", ""),
		MaxIter:     integer(p, "max_iter", 300),
		EnergyConv:  num(p, "energy_conv", 1e-5),
		DensityConv: num(p, "density_conv", 1e-7),
	}
	if gs.BasisType != "gaussian" {
		return nil, fmt.Errorf("%w: unknown basis type: %s", task.ErrSetup, gs.BasisType)
	}
	if !xcValues[gs.XC] {
		return nil, fmt.Errorf("%w: unknown xc: %s", task.ErrSetup, gs.XC)
	}
	if !basisValues[gs.Basis] {
		return nil, fmt.Errorf("%w: unknown basis: %s", task.ErrSetup, gs.Basis)
	}
	return gs, nil
}

// Laser describes one applied field of a laser-driven propagation.
type Laser struct {
	Type         string // "delta" or "gaussian"
	Strength     float64
	Frequency    float64
	Center       float64
	Width        float64
	Polarization string // "x", "y" or "z"
}

// TDParams is the validated configuration of a time-propagation
// calculation. TMax and DT are derived in atomic units from the
// attosecond inputs.
type TDParams struct {
	TMax         float64
	DT           float64
	Strength     float64
	Polarization string
	Properties   []string
	Lasers       []Laser
}

func tdParams(p map[string]any) (*TDParams, error) {
	timeStep := num(p, "time_step", 0)
	numSteps := integer(p, "number_of_steps", 0)
	if timeStep <= 0 || numSteps <= 0 {
		return nil, fmt.Errorf("%w: time_step and number_of_steps must be positive", task.ErrSetup)
	}

	pol, err := polarizationAxis(p["polarization"])
	if err != nil {
		return nil, err
	}

	td := &TDParams{
		TMax:         round2(float64(numSteps) * timeStep * asToAU),
		DT:           round2(timeStep * asToAU),
		Strength:     num(p, "strength", 1e-5),
		Polarization: pol,
		Properties:   strSlice(p, "properties"),
	}
	if len(td.Properties) == 0 {
		td.Properties = []string{"spectrum"}
	}

	for i, raw := range anySlice(p, "laser") {
		lp, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: laser %d is not a parameter set", task.ErrSetup, i)
		}
		laser := Laser{
			Type:      str(lp, "type", "delta"),
			Strength:  num(lp, "strength", td.Strength),
			Frequency: num(lp, "frequency", 0),
			Center:    num(lp, "time0", 0),
			Width:     num(lp, "sigma", 0),
		}
		if lp["polarization"] != nil {
			laser.Polarization, err = polarizationAxis(lp["polarization"])
			if err != nil {
				return nil, err
			}
		} else {
			laser.Polarization = pol
		}
		if laser.Type != "delta" && laser.Type != "gaussian" {
			return nil, fmt.Errorf("%w: unknown laser type: %s", task.ErrSetup, laser.Type)
		}
		td.Lasers = append(td.Lasers, laser)
	}
	return td, nil
}

// MOPopulationParams selects the orbital window of a population analysis.
type MOPopulationParams struct {
	NumOccupied   int
	NumUnoccupied int
}

func moPopulationParams(p map[string]any) (*MOPopulationParams, error) {
	mo := &MOPopulationParams{
		NumOccupied:   integer(p, "num_occupied_mo", 0),
		NumUnoccupied: integer(p, "num_unoccupied_mo", 0),
	}
	if mo.NumOccupied <= 0 || mo.NumUnoccupied <= 0 {
		return nil, fmt.Errorf("%w: num_occupied_mo and num_unoccupied_mo must be positive", task.ErrSetup)
	}
	return mo, nil
}

// SpectrumParams shapes the photoabsorption transform.
type SpectrumParams struct {
	Damping float64
	EMin    float64
	EMax    float64
	DeltaE  float64
}

func spectrumParams(p map[string]any) (*SpectrumParams, error) {
	sp := &SpectrumParams{
		Damping: num(p, "damping", 0.09),
		EMin:    num(p, "e_min", 0.0),
		EMax:    num(p, "e_max", 15.0),
		DeltaE:  num(p, "delta_e", 0.05),
	}
	if sp.EMax <= sp.EMin || sp.DeltaE <= 0 {
		return nil, fmt.Errorf("%w: spectrum window is empty", task.ErrSetup)
	}
	return sp, nil
}

// polarizationAxis accepts either an axis letter or a unit vector.
func polarizationAxis(v any) (string, error) {
	switch p := v.(type) {
	case nil:
		return "x", nil
	case string:
		if p == "x" || p == "y" || p == "z" {
			return p, nil
		}
	case []any:
		axes := [3]string{"x", "y", "z"}
		for i, c := range p {
			if num(map[string]any{"v": c}, "v", 0) == 1 {
				return axes[i], nil
			}
		}
	}
	return "", fmt.Errorf("%w: unsupported polarization: %v", task.ErrSetup, v)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// The helpers below read loosely-typed values out of the persisted
// parameter map; JSON round-trips turn every number into float64.

func str(p map[string]any, key, fallback string) string {
	if v, ok := p[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func num(p map[string]any, key string, fallback float64) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return fallback
}

func integer(p map[string]any, key string, fallback int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return fallback
}

func strSlice(p map[string]any, key string) []string {
	var out []string
	switch v := p[key].(type) {
	case []string:
		return v
	case []any:
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

func anySlice(p map[string]any, key string) []any {
	switch v := p[key].(type) {
	case []any:
		return v
	case map[string]any:
		return []any{v}
	}
	return nil
}
