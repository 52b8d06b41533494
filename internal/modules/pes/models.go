package pes

import (
	"sort"

	"github.com/zgreco2000/hivqe-workbench/internal/domain"
)

// EnergyTable joins the three energy sources for a structure sweep into one
// record keyed by structure label, so the shared-label-set invariant is a
// single set-equality check instead of three parallel maps drifting apart.
// All energies are raw Hartree.
type EnergyTable struct {
	Labels []string           `json:"labels"` // sweep order
	Cheap  map[string]float64 `json:"cheap"`
	Exact  map[string]float64 `json:"exact"`
	Approx map[string]float64 `json:"approx"`
}

// NewEnergyTable builds a table and verifies every source covers exactly the
// sweep's label set. A mismatch is a blocking InconsistentSeriesError, never
// a silent truncation or zero-fill.
func NewEnergyTable(labels []string, cheap, exact, approx map[string]float64) (*EnergyTable, error) {
	t := &EnergyTable{
		Labels: append([]string(nil), labels...),
		Cheap:  cheap,
		Exact:  exact,
		Approx: approx,
	}
	if err := t.Check(); err != nil {
		return nil, err
	}
	return t, nil
}

// Check verifies each source's label set equals the sweep's label set.
func (t *EnergyTable) Check() error {
	want := make(map[string]bool, len(t.Labels))
	for _, l := range t.Labels {
		want[l] = true
	}

	for _, src := range []struct {
		name   string
		values map[string]float64
	}{
		{"cheap", t.Cheap},
		{"exact", t.Exact},
		{"approx", t.Approx},
	} {
		if err := checkLabelSet("sweep", src.name, want, src.values); err != nil {
			return err
		}
	}
	return nil
}

// column extracts one source's energies in sweep order. Only valid after
// Check has passed.
func (t *EnergyTable) column(values map[string]float64) []float64 {
	out := make([]float64, len(t.Labels))
	for i, l := range t.Labels {
		out[i] = values[l]
	}
	return out
}

func checkLabelSet(leftName, rightName string, left map[string]bool, right map[string]float64) error {
	var onlyLeft, onlyRight []string
	for l := range left {
		if _, ok := right[l]; !ok {
			onlyLeft = append(onlyLeft, l)
		}
	}
	for l := range right {
		if !left[l] {
			onlyRight = append(onlyRight, l)
		}
	}

	if len(onlyLeft) == 0 && len(onlyRight) == 0 {
		return nil
	}

	sort.Strings(onlyLeft)
	sort.Strings(onlyRight)
	return &domain.InconsistentSeriesError{
		Left:      leftName,
		Right:     rightName,
		OnlyLeft:  onlyLeft,
		OnlyRight: onlyRight,
	}
}

// Series is one finished PES curve: labels and relative energies (kcal/mol),
// index-aligned, constructed whole and never mutated.
type Series struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// Profile is the assembled torsional PES: one mirrored relative-energy curve
// per source plus the worst-case signed error of the approximate method
// against the exact reference, computed on raw Hartree energies.
type Profile struct {
	Cheap          Series  `json:"cheap"`
	Exact          Series  `json:"exact"`
	Approx         Series  `json:"approx"`
	WorstCaseError float64 `json:"worst_case_error_hartree"`
}

// Structure pairs a label with the geometry it names, in sweep order.
type Structure struct {
	Label    string              `json:"label"`
	Molecule domain.MoleculeSpec `json:"molecule"`
}
