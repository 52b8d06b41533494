package units

import (
	"gonum.org/v1/gonum/floats"
)

// KcalPerHartree converts Hartree to kcal/mol. Fixed by contract, not
// user-configurable.
const KcalPerHartree = 627.509

// ChemicalAccuracy is the conventional 1.6 mHa agreement threshold against an
// exact reference, in Hartree. Fixed by contract.
const ChemicalAccuracy = 0.0016

// HartreeToKcal converts an energy from Hartree to kcal/mol.
func HartreeToKcal(hartree float64) float64 {
	return hartree * KcalPerHartree
}

// WithinChemicalAccuracy reports whether energy agrees with the exact
// reference to better than chemical accuracy (strict less-than).
func WithinChemicalAccuracy(energy, exact float64) bool {
	diff := energy - exact
	if diff < 0 {
		diff = -diff
	}
	return diff < ChemicalAccuracy
}

// Relative rebases a raw Hartree series against its own minimum and converts
// to kcal/mol, preserving order. Adding a constant offset to every element
// leaves the output unchanged, since the minimum shifts with it.
func Relative(values []float64) []float64 {
	if len(values) == 0 {
		return []float64{}
	}

	min := floats.Min(values)
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = (v - min) * KcalPerHartree
	}
	return out
}

// MaxDeviation returns the maximum signed difference approx[i] - exact[i].
// Both slices must have the same length; the caller enforces label alignment.
func MaxDeviation(approx, exact []float64) float64 {
	diffs := make([]float64, len(approx))
	for i := range approx {
		diffs[i] = approx[i] - exact[i]
	}
	return floats.Max(diffs)
}
