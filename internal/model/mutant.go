// Package model defines the data structures for mutation testing.
package model

import (
	"encoding/json"
	"fmt"
)

// Span is a half-open byte range [Start, End) inside a single source file.
// Offsets are byte offsets into the file's on-disk bytes, never rune offsets.
type Span struct {
	// File is the project-relative path of the source file.
	File string `json:"file"`

	// Start byte offset (inclusive).
	Start int `json:"start"`

	// End byte offset (exclusive).
	End int `json:"end"`
}

// Disjoint reports whether s and other do not share any byte offset.
func (s Span) Disjoint(other Span) bool {
	return s.File != other.File || s.End <= other.Start || other.End <= s.Start
}

// OperatorKind identifies the mutation operator applied at a site.
type OperatorKind string

const (
	OpEqToNe    OperatorKind = "eq_to_neq"
	OpNeToEq    OperatorKind = "neq_to_eq"
	OpLtToGe    OperatorKind = "lt_to_ge"
	OpGtToLe    OperatorKind = "gt_to_le"
	OpLeToGt    OperatorKind = "le_to_gt"
	OpGeToLt    OperatorKind = "ge_to_lt"
	OpAndToOr   OperatorKind = "and_to_or"
	OpOrToAnd   OperatorKind = "or_to_and"
	OpPlusToSub OperatorKind = "plus_to_minus"
	OpSubToPlus OperatorKind = "minus_to_plus"
)

// Mutant is a single textual replacement of one operator occurrence in one
// source file. IDs are 1-based positions in the deterministic discovery order.
type Mutant struct {
	ID          int          `json:"id"`
	Span        Span         `json:"span"`
	Original    string       `json:"original"`
	Replacement string       `json:"replacement"`
	Operator    OperatorKind `json:"operator"`
}

// Location renders the mutant site as "file:offset" for text artifacts.
func (m Mutant) Location() string {
	return fmt.Sprintf("%s:%d", m.Span.File, m.Span.Start)
}

// mutantJSON is the flat artifact form of a mutant.
type mutantJSON struct {
	ID          int          `json:"id"`
	File        string       `json:"file"`
	Start       int          `json:"start"`
	End         int          `json:"end"`
	Original    string       `json:"original"`
	Replacement string       `json:"replacement"`
	Operator    OperatorKind `json:"operator"`
}

// MarshalJSON flattens the span so mutants.json entries read
// {id, file, start, end, original, replacement, operator}.
func (m Mutant) MarshalJSON() ([]byte, error) {
	return json.Marshal(mutantJSON{
		ID:          m.ID,
		File:        m.Span.File,
		Start:       m.Span.Start,
		End:         m.Span.End,
		Original:    m.Original,
		Replacement: m.Replacement,
		Operator:    m.Operator,
	})
}

// UnmarshalJSON restores a mutant from its flat artifact form.
func (m *Mutant) UnmarshalJSON(data []byte) error {
	var flat mutantJSON
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}

	*m = Mutant{
		ID:          flat.ID,
		Span:        Span{File: flat.File, Start: flat.Start, End: flat.End},
		Original:    flat.Original,
		Replacement: flat.Replacement,
		Operator:    flat.Operator,
	}

	return nil
}

// OutcomeKind classifies the result of testing one mutant.
type OutcomeKind string

const (
	// OutcomeCaught means some test failed under the mutation.
	OutcomeCaught OutcomeKind = "caught"
	// OutcomeMissed means all tests still passed (a test-suite gap).
	OutcomeMissed OutcomeKind = "missed"
	// OutcomeUnviable means the mutated source failed to compile.
	OutcomeUnviable OutcomeKind = "unviable"
	// OutcomeTimeout means the test run exceeded its wall-clock budget.
	OutcomeTimeout OutcomeKind = "timeout"
	// OutcomeError means the driver failed while handling the mutant.
	OutcomeError OutcomeKind = "error"
)

// Outcome is the recorded result for one executed mutant.
type Outcome struct {
	MutantID   int         `json:"id"`
	Kind       OutcomeKind `json:"outcome"`
	DurationMS int64       `json:"duration_ms"`

	// Detail carries the InternalError cause; empty for ordinary outcomes.
	Detail string `json:"detail,omitempty"`

	// OutputTail is a truncated snippet of the captured test output.
	OutputTail string `json:"output_tail,omitempty"`
}
