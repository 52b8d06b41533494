package pes

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zgreco2000/hivqe-workbench/internal/domain"
	"github.com/zgreco2000/hivqe-workbench/pkg/units"
)

func TestMirrorFivePointSweep(t *testing.T) {
	labels := []string{"0", "30", "45", "60", "90"}
	values := []float64{0.0, 1.5, 3.2, 5.1, 6.8}

	gotLabels, gotValues := Mirror(labels, values)

	assert.Equal(t, []string{"0", "30", "45", "60", "90", "60", "45", "30", "0"}, gotLabels)
	assert.Equal(t, []float64{0.0, 1.5, 3.2, 5.1, 6.8, 5.1, 3.2, 1.5, 0.0}, gotValues)
}

func TestMirrorIndexProperty(t *testing.T) {
	// Half-sweep of length n mirrors to 2n-1 points with the turning point
	// appearing exactly once and tail[i] == head[2n-2-i].
	for n := 2; n <= 7; n++ {
		labels := make([]string, n)
		values := make([]float64, n)
		for i := range labels {
			labels[i] = string(rune('a' + i))
			values[i] = float64(i * i)
		}

		gotLabels, gotValues := Mirror(labels, values)
		require.Len(t, gotLabels, 2*n-1)
		require.Len(t, gotValues, 2*n-1)

		turning := 0
		for _, l := range gotLabels {
			if l == labels[n-1] {
				turning++
			}
		}
		assert.Equal(t, 1, turning, "turning point must appear exactly once for n=%d", n)

		for i := n; i <= 2*n-2; i++ {
			assert.Equal(t, gotLabels[2*n-2-i], gotLabels[i])
			assert.Equal(t, gotValues[2*n-2-i], gotValues[i])
		}
	}
}

func TestMirrorDegenerateSweeps(t *testing.T) {
	labels, values := Mirror([]string{"0"}, []float64{1.0})
	assert.Equal(t, []string{"0"}, labels)
	assert.Equal(t, []float64{1.0}, values)

	labels, values = Mirror(nil, nil)
	assert.Empty(t, labels)
	assert.Empty(t, values)
}

func sweepTable(t *testing.T) *EnergyTable {
	t.Helper()
	labels := []string{"0deg", "30deg", "60deg", "90deg"}
	table, err := NewEnergyTable(labels,
		map[string]float64{"0deg": -77.95, "30deg": -77.93, "60deg": -77.88, "90deg": -77.82},
		map[string]float64{"0deg": -78.08, "30deg": -78.06, "60deg": -78.01, "90deg": -77.97},
		map[string]float64{"0deg": -78.079, "30deg": -78.0595, "60deg": -78.0105, "90deg": -77.969},
	)
	require.NoError(t, err)
	return table
}

func TestAssembleProfile(t *testing.T) {
	profile, err := Assemble(sweepTable(t))
	require.NoError(t, err)

	// 4-point half-sweep mirrors to 7 points per series
	for _, series := range []Series{profile.Cheap, profile.Exact, profile.Approx} {
		assert.Len(t, series.Labels, 7)
		assert.Len(t, series.Values, 7)
		assert.Equal(t, []string{"0deg", "30deg", "60deg", "90deg", "60deg", "30deg", "0deg"}, series.Labels)
	}

	// Each series is rebased against its own minimum
	assert.Equal(t, 0.0, profile.Cheap.Values[0])
	assert.Equal(t, 0.0, profile.Exact.Values[0])
	assert.Equal(t, 0.0, profile.Approx.Values[0])
	assert.InDelta(t, 0.13*units.KcalPerHartree, profile.Cheap.Values[3], 1e-9)
	assert.InDelta(t, 0.11*units.KcalPerHartree, profile.Exact.Values[3], 1e-9)

	// Worst case error comes from the raw series: deviations are
	// 0.001, 0.0005, -0.0005, 0.001 so the signed maximum is 0.001.
	assert.InDelta(t, 0.001, profile.WorstCaseError, 1e-9)
}

func TestAssembleWorstCaseZeroWhenExactMatches(t *testing.T) {
	labels := []string{"0deg", "90deg"}
	exact := map[string]float64{"0deg": -78.08, "90deg": -77.97}

	table, err := NewEnergyTable(labels,
		map[string]float64{"0deg": -77.95, "90deg": -77.82},
		exact,
		map[string]float64{"0deg": -78.08, "90deg": -77.97},
	)
	require.NoError(t, err)

	profile, err := Assemble(table)
	require.NoError(t, err)
	assert.Equal(t, 0.0, profile.WorstCaseError)
}

func TestEnergyTableLabelMismatch(t *testing.T) {
	labels := []string{"0deg", "30deg"}
	cheap := map[string]float64{"0deg": -77.95, "30deg": -77.93}
	exact := map[string]float64{"0deg": -78.08, "30deg": -78.06}

	// approx is missing 30deg and carries a stray 45deg
	approx := map[string]float64{"0deg": -78.079, "45deg": -78.0}

	_, err := NewEnergyTable(labels, cheap, exact, approx)
	var inconsistent *domain.InconsistentSeriesError
	require.True(t, errors.As(err, &inconsistent), "expected InconsistentSeriesError, got %v", err)
	assert.Equal(t, []string{"30deg"}, inconsistent.OnlyLeft)
	assert.Equal(t, []string{"45deg"}, inconsistent.OnlyRight)
}

func TestAssembleEmptySweep(t *testing.T) {
	table := &EnergyTable{
		Labels: nil,
		Cheap:  map[string]float64{},
		Exact:  map[string]float64{},
		Approx: map[string]float64{},
	}

	_, err := Assemble(table)
	var cfgErr *domain.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}
