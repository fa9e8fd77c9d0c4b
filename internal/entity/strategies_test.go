package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllPermutations(t *testing.T) {
	names := []string{"steps", "thermo"}
	values := [][]string{{"10", "20"}, {"5", "10", "20"}}

	perms, err := AllPermutations(names, values)
	require.NoError(t, err)
	require.Len(t, perms, 6)

	// Every combination appears exactly once.
	seen := map[string]bool{}
	for _, p := range perms {
		seen[p["steps"]+"/"+p["thermo"]] = true
	}
	assert.Len(t, seen, 6)
	assert.True(t, seen["10/5"])
	assert.True(t, seen["20/20"])
}

func TestAllPermutationsEmpty(t *testing.T) {
	perms, err := AllPermutations(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, perms)
}

func TestStepValues(t *testing.T) {
	names := []string{"steps", "thermo"}
	values := [][]string{{"10", "20"}, {"5", "10"}}

	perms, err := StepValues(names, values)
	require.NoError(t, err)
	require.Len(t, perms, 2)
	assert.Equal(t, map[string]string{"steps": "10", "thermo": "5"}, perms[0])
	assert.Equal(t, map[string]string{"steps": "20", "thermo": "10"}, perms[1])
}

func TestStepValuesUnequalLengths(t *testing.T) {
	_, err := StepValues([]string{"a", "b"}, [][]string{{"1", "2"}, {"1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "equal value counts")
}

func TestRandomPermutationsCappedByNModels(t *testing.T) {
	names := []string{"steps"}
	values := [][]string{{"1", "2", "3", "4", "5"}}

	perms, err := RandomPermutations(3)(names, values)
	require.NoError(t, err)
	require.Len(t, perms, 3)

	// Sampling is without replacement.
	seen := map[string]bool{}
	for _, p := range perms {
		require.NotEmpty(t, p["steps"])
		assert.False(t, seen[p["steps"]], "value %q drawn twice", p["steps"])
		seen[p["steps"]] = true
	}
}

func TestRandomPermutationsBoundedByShortestList(t *testing.T) {
	names := []string{"a", "b"}
	values := [][]string{{"1", "2", "3"}, {"x", "y"}}

	perms, err := RandomPermutations(0)(names, values)
	require.NoError(t, err)
	assert.Len(t, perms, 2)
}

func TestStrategyByName(t *testing.T) {
	for _, name := range []string{"", "all_perm", "step", "random"} {
		_, err := strategyByName(name, 0)
		assert.NoError(t, err, "strategy %q", name)
	}

	_, err := strategyByName("double", 0)
	require.ErrorIs(t, err, ErrUnsupportedStrategy)
}
