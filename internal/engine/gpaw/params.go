package gpaw

import (
	"fmt"

	"github.com/ash399/litesoph/internal/task"
)

var modeValues = map[string]bool{
	"fd":   true,
	"lcao": true,
	"pw":   true,
}

var xcValues = map[string]bool{
	"LDA":    true,
	"PBE":    true,
	"RPBE":   true,
	"revPBE": true,
	"GLLBSC": true,
}

var basisValues = map[string]bool{
	"sz":  true,
	"szp": true,
	"dz":  true,
	"dzp": true,
}

// GroundStateParams is the validated configuration of a GPAW ground-state
// run.
type GroundStateParams struct {
	Mode    string
	XC      string
	Basis   string
	Spacing float64
	NBands  int
	Vacuum  float64
}

func groundStateParams(p map[string]any) (*GroundStateParams, error) {
	gs := &GroundStateParams{
		Mode:    str(p, "mode", "lcao"),
		XC:      str(p, "xc", ""),
		Basis:   str(p, "basis", "dzp"),
		Spacing: num(p, "spacing", 0.3),
		NBands:  integer(p, "bands", 0),
		Vacuum:  num(p, "vacuum", 6),
	}
	if !modeValues[gs.Mode] {
		return nil, fmt.Errorf("%w: unknown mode: %s", task.ErrSetup, gs.Mode)
	}
	if !xcValues[gs.XC] {
		return nil, fmt.Errorf("%w: unknown xc: %s", task.ErrSetup, gs.XC)
	}
	if !basisValues[gs.Basis] {
		return nil, fmt.Errorf("%w: unknown basis: %s", task.ErrSetup, gs.Basis)
	}
	if gs.NBands <= 0 {
		return nil, fmt.Errorf("%w: bands must be positive", task.ErrSetup)
	}
	return gs, nil
}

// TDParams is the validated configuration of a delta-kick propagation.
// The kick vector is strength scaled by the polarization direction.
type TDParams struct {
	Strength     float64
	Polarization [3]int
	TimeStep     float64 // attoseconds
	NumSteps     int
}

func tdParams(p map[string]any) (*TDParams, error) {
	td := &TDParams{
		Strength: num(p, "strength", 1e-5),
		TimeStep: num(p, "time_step", 0),
		NumSteps: integer(p, "number_of_steps", 0),
	}
	if td.TimeStep <= 0 || td.NumSteps <= 0 {
		return nil, fmt.Errorf("%w: time_step and number_of_steps must be positive", task.ErrSetup)
	}

	pol, ok := p["polarization"].([]any)
	if !ok || len(pol) != 3 {
		return nil, fmt.Errorf("%w: polarization must be a 3-component direction", task.ErrSetup)
	}
	for i, c := range pol {
		td.Polarization[i] = integer(map[string]any{"c": c}, "c", 0)
	}
	if td.Polarization == [3]int{} {
		return nil, fmt.Errorf("%w: polarization direction is zero", task.ErrSetup)
	}
	return td, nil
}

// SpectrumParams shapes the photoabsorption transform of the dipole file.
type SpectrumParams struct {
	Width  float64
	EMin   float64
	EMax   float64
	DeltaE float64
}

func spectrumParams(p map[string]any) (*SpectrumParams, error) {
	sp := &SpectrumParams{
		Width:  num(p, "width", 0.09),
		EMin:   num(p, "e_min", 0.0),
		EMax:   num(p, "e_max", 15.0),
		DeltaE: num(p, "delta_e", 0.05),
	}
	if sp.EMax <= sp.EMin || sp.DeltaE <= 0 {
		return nil, fmt.Errorf("%w: spectrum window is empty", task.ErrSetup)
	}
	return sp, nil
}

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
