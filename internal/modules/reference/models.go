package reference

// Method names the two reference energy sources the workbench compares
// against. Both are opaque numbers here; how they were computed is outside
// this system.
type Method string

const (
	// MethodCheap is the mean-field (RHF) reference: cheap, qualitative.
	MethodCheap Method = "rhf"
	// MethodExact is the exact-diagonalization reference: expensive, the
	// yardstick for chemical accuracy.
	MethodExact Method = "exact"
)

// Table maps structure labels to reference energies (Hartree) for both
// methods. Loaded once, never mutated by the workflows.
type Table struct {
	Cheap map[string]float64
	Exact map[string]float64
}

// Labels returns the labels covered by both methods, in no particular order.
func (t Table) Labels() []string {
	labels := make([]string, 0, len(t.Exact))
	for l := range t.Exact {
		if _, ok := t.Cheap[l]; ok {
			labels = append(labels, l)
		}
	}
	return labels
}
