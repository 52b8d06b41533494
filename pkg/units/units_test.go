package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHartreeToKcal(t *testing.T) {
	assert.Equal(t, 627.509, HartreeToKcal(1.0))
	assert.Equal(t, 0.0, HartreeToKcal(0.0))
}

func TestWithinChemicalAccuracy(t *testing.T) {
	exact := -78.0788722041575

	assert.True(t, WithinChemicalAccuracy(exact, exact))
	assert.True(t, WithinChemicalAccuracy(exact+0.0015, exact))
	assert.True(t, WithinChemicalAccuracy(exact-0.0015, exact))

	// Strict less-than: exactly 1.6 mHa does not qualify
	assert.False(t, WithinChemicalAccuracy(exact+0.0016, exact))
	assert.False(t, WithinChemicalAccuracy(exact-0.0016, exact))
	assert.False(t, WithinChemicalAccuracy(exact+0.002, exact))
}

func TestRelative(t *testing.T) {
	values := []float64{-78.03, -78.05, -78.01}
	rel := Relative(values)

	assert.Len(t, rel, 3)
	assert.InDelta(t, 0.02*KcalPerHartree, rel[0], 1e-9)
	assert.Equal(t, 0.0, rel[1])
	assert.InDelta(t, 0.04*KcalPerHartree, rel[2], 1e-9)
}

func TestRelativeOffsetInvariance(t *testing.T) {
	values := []float64{-78.03, -78.05, -78.01, -78.02}

	for _, offset := range []float64{0, 1, -1, 100.5, -42.25} {
		shifted := make([]float64, len(values))
		for i, v := range values {
			shifted[i] = v + offset
		}

		base := Relative(values)
		got := Relative(shifted)
		for i := range base {
			assert.InDelta(t, base[i], got[i], 1e-9, "offset %v index %d", offset, i)
		}
	}
}

func TestRelativeSinglePointAndEmpty(t *testing.T) {
	assert.Equal(t, []float64{0}, Relative([]float64{-78.05}))
	assert.Empty(t, Relative(nil))
}

func TestMaxDeviation(t *testing.T) {
	exact := []float64{-78.05, -78.03, -78.01}

	// Zero when approximate equals exact everywhere
	assert.Equal(t, 0.0, MaxDeviation(exact, exact))

	approx := []float64{-78.049, -78.0295, -78.0099}
	assert.InDelta(t, 0.001, MaxDeviation(approx, exact), 1e-9)

	// Signed: uniformly lower approximate energies give a negative maximum
	lower := []float64{-78.051, -78.032, -78.011}
	assert.InDelta(t, -0.001, MaxDeviation(lower, exact), 1e-9)
}
