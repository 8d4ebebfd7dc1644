package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpan_Disjoint(t *testing.T) {
	a := Span{File: "a.nr", Start: 10, End: 12}

	assert.True(t, a.Disjoint(Span{File: "b.nr", Start: 10, End: 12}), "different files never overlap")
	assert.True(t, a.Disjoint(Span{File: "a.nr", Start: 12, End: 14}), "touching ranges are disjoint")
	assert.True(t, a.Disjoint(Span{File: "a.nr", Start: 0, End: 10}))
	assert.False(t, a.Disjoint(Span{File: "a.nr", Start: 11, End: 13}))
	assert.False(t, a.Disjoint(a), "identical spans overlap")
}

func TestMutant_Location(t *testing.T) {
	mu := Mutant{Span: Span{File: "src/main.nr", Start: 31, End: 33}}
	assert.Equal(t, "src/main.nr:31", mu.Location())
}

func TestMutant_FlatJSONRoundTrip(t *testing.T) {
	mu := Mutant{
		ID:          7,
		Span:        Span{File: "src/main.nr", Start: 31, End: 33},
		Original:    "==",
		Replacement: "!=",
		Operator:    OpEqToNe,
	}

	data, err := json.Marshal(mu)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"id":7,"file":"src/main.nr","start":31,"end":33,"original":"==","replacement":"!=","operator":"eq_to_neq"}`,
		string(data))

	var decoded Mutant
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, mu, decoded)
}

func TestSummary_AddCountTotal(t *testing.T) {
	var s Summary

	s.Add(OutcomeCaught)
	s.Add(OutcomeCaught)
	s.Add(OutcomeMissed)
	s.Add(OutcomeUnviable)
	s.Add(OutcomeTimeout)
	s.Add(OutcomeError)

	assert.Equal(t, 2, s.Count(OutcomeCaught))
	assert.Equal(t, 1, s.Count(OutcomeMissed))
	assert.Equal(t, 1, s.Count(OutcomeUnviable))
	assert.Equal(t, 1, s.Count(OutcomeTimeout))
	assert.Equal(t, 1, s.Count(OutcomeError))
	assert.Equal(t, 6, s.Total())
}
