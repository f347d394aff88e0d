package harness

import (
	"time"

	"github.com/roach88/ldesmirror/internal/mirror"
)

// CycleRecord is one sync step of a scenario run.
type CycleRecord struct {
	Step   int
	Report *mirror.Report

	// Code is the SyncError code when the cycle failed.
	Code mirror.SyncErrorCode
}

// RelationState is one relation of the final mirror root.
type RelationState struct {
	Node     string
	Boundary time.Time
}

// MirrorState is the final content of the mirror.
type MirrorState struct {
	Bootstrapped bool
	Cursor       time.Time
	Relations    []RelationState

	// Fragments maps fragment locators to their member IDs, sorted.
	Fragments map[string][]string

	// Recent is every member, newest first.
	Recent []string
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every step expectation and assertion held.
	Pass bool

	// Cycles records every sync step in order.
	Cycles []CycleRecord

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string

	// Mirror is the final mirror content. Nil if it could not be read.
	Mirror *MirrorState
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Cycles: []CycleRecord{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddCycle records a sync step.
func (r *Result) AddCycle(step int, report *mirror.Report, code mirror.SyncErrorCode) {
	r.Cycles = append(r.Cycles, CycleRecord{Step: step, Report: report, Code: code})
}
