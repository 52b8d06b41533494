package domain

import (
	"fmt"
	"strings"
)

// ConfigurationError means a molecule spec or run request violated an
// invariant before any remote submission. Fail fast, locally, before
// consuming any remote resource.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// IncompleteBatchError means a selection or summary was requested while the
// backing batch still has non-terminal jobs. This is a normal transient
// state, not a fault; the caller should keep polling.
type IncompleteBatchError struct {
	BatchID string
	Missing []string
}

func (e *IncompleteBatchError) Error() string {
	return fmt.Sprintf("batch %s is incomplete: still waiting on [%s]",
		e.BatchID, strings.Join(e.Missing, ", "))
}

// InconsistentSeriesError means two energy series that must share a label set
// do not. Blocking; the caller gets the exact difference, never a silently
// truncated or zero-filled join.
type InconsistentSeriesError struct {
	Left      string
	Right     string
	OnlyLeft  []string
	OnlyRight []string
}

func (e *InconsistentSeriesError) Error() string {
	return fmt.Sprintf("series %s and %s cover different structures: only in %s: [%s], only in %s: [%s]",
		e.Left, e.Right,
		e.Left, strings.Join(e.OnlyLeft, ", "),
		e.Right, strings.Join(e.OnlyRight, ", "))
}
