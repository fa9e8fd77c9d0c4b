package entity

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/expgridgo/internal/settings"
)

func TestNewEnsembleAllPermutations(t *testing.T) {
	ctx := context.Background()
	params := map[string][]string{
		"steps":  {"10", "20"},
		"thermo": {"5", "10", "20"},
	}

	e, err := NewEnsemble(ctx, "lammps", params, settings.New("lmp"), EnsembleOptions{})
	require.NoError(t, err)
	require.Equal(t, 6, e.Len())

	// Members are named after the ensemble with their index.
	assert.Equal(t, "lammps_0", e.Models[0].Name)
	assert.Equal(t, "lammps_5", e.Models[5].Name)

	for _, m := range e.Models {
		assert.True(t, m.QueryKeyPrefixing(), "member %q should prefix its keys", m.Name)
		require.NotNil(t, m.RunSettings)
	}
}

func TestNewEnsembleMembersGetIndependentSettings(t *testing.T) {
	ctx := context.Background()
	params := map[string][]string{"steps": {"10", "20"}}

	e, err := NewEnsemble(ctx, "grid", params, settings.New("a.out"), EnsembleOptions{})
	require.NoError(t, err)
	require.Equal(t, 2, e.Len())

	e.Models[0].RunSettings.AddExeArgs("extra")
	assert.Empty(t, e.Models[1].RunSettings.Base().ExeArgs)
}

func TestNewEnsembleStepStrategy(t *testing.T) {
	ctx := context.Background()
	params := map[string][]string{
		"steps":  {"10", "20"},
		"thermo": {"5", "10"},
	}

	e, err := NewEnsemble(ctx, "zip", params, settings.New("a.out"), EnsembleOptions{Strategy: "step"})
	require.NoError(t, err)
	require.Equal(t, 2, e.Len())
	assert.Equal(t, map[string]string{"steps": "10", "thermo": "5"}, e.Models[0].Params)
}

func TestNewEnsembleReplicas(t *testing.T) {
	ctx := context.Background()

	e, err := NewEnsemble(ctx, "rep", nil, settings.New("a.out"), EnsembleOptions{Replicas: 3})
	require.NoError(t, err)
	require.Equal(t, 3, e.Len())
	assert.Empty(t, e.Models[0].Params)
}

func TestNewEnsembleParamsRequireRunSettings(t *testing.T) {
	ctx := context.Background()
	params := map[string][]string{"steps": {"10"}}

	_, err := NewEnsemble(ctx, "bad", params, nil, EnsembleOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "params require run settings")
}

func TestNewEnsembleRunSettingsRequireReplicas(t *testing.T) {
	ctx := context.Background()

	_, err := NewEnsemble(ctx, "bad", nil, settings.New("a.out"), EnsembleOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "replicas")
}

func TestNewEnsembleBareNeedsBatchSettings(t *testing.T) {
	ctx := context.Background()

	_, err := NewEnsemble(ctx, "bad", nil, nil, EnsembleOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch settings or run settings")
}

func TestNewEnsembleEmptyForBatchLaunch(t *testing.T) {
	ctx := context.Background()
	bs := settings.NewSbatchSettings(2, "01:00:00", "", "")

	e, err := NewEnsemble(ctx, "batch", nil, nil, EnsembleOptions{BatchSettings: bs})
	require.NoError(t, err)
	assert.Equal(t, 0, e.Len())

	require.NoError(t, e.AddModel(NewModel("m1", nil, "", settings.New("a.out"))))
	assert.Equal(t, 1, e.Len())
}

func TestNewEnsembleUnsupportedStrategy(t *testing.T) {
	ctx := context.Background()
	params := map[string][]string{"steps": {"10"}}

	_, err := NewEnsemble(ctx, "bad", params, settings.New("a.out"), EnsembleOptions{Strategy: "double"})
	require.ErrorIs(t, err, ErrUnsupportedStrategy)
}

func TestNewEnsembleUserStrategy(t *testing.T) {
	ctx := context.Background()
	params := map[string][]string{"steps": {"10", "20"}}

	// A custom strategy that keeps only the first value of each parameter.
	firstOnly := func(names []string, values [][]string) ([]map[string]string, error) {
		p := make(map[string]string, len(names))
		for i, name := range names {
			p[name] = values[i][0]
		}
		return []map[string]string{p}, nil
	}

	e, err := NewEnsemble(ctx, "custom", params, settings.New("a.out"), EnsembleOptions{StrategyFunc: firstOnly})
	require.NoError(t, err)
	require.Equal(t, 1, e.Len())
	assert.Equal(t, "10", e.Models[0].Params["steps"])
}

func TestNewEnsembleUserStrategyErrors(t *testing.T) {
	ctx := context.Background()
	params := map[string][]string{"steps": {"10"}}

	cases := []struct {
		name     string
		strategy StrategyFunc
	}{
		{"returns error", func([]string, [][]string) ([]map[string]string, error) {
			return nil, fmt.Errorf("boom")
		}},
		{"returns nil", func([]string, [][]string) ([]map[string]string, error) {
			return nil, nil
		}},
		{"returns nil set", func([]string, [][]string) ([]map[string]string, error) {
			return []map[string]string{nil}, nil
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewEnsemble(ctx, "bad", params, settings.New("a.out"), EnsembleOptions{StrategyFunc: tc.strategy})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUserStrategy), "got %v", err)
		})
	}
}

func TestAddModelRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	bs := settings.NewSbatchSettings(1, "", "", "")

	e, err := NewEnsemble(ctx, "dup", nil, nil, EnsembleOptions{BatchSettings: bs})
	require.NoError(t, err)

	require.NoError(t, e.AddModel(NewModel("m", nil, "", nil)))
	err = e.AddModel(NewModel("m", nil, "", nil))
	require.ErrorIs(t, err, ErrEntityExists)
}

func TestRegisterIncomingEntityFansOut(t *testing.T) {
	ctx := context.Background()

	producer := NewModel("producer", nil, "", nil)
	e, err := NewEnsemble(ctx, "consumers", nil, settings.New("a.out"), EnsembleOptions{Replicas: 2})
	require.NoError(t, err)

	e.RegisterIncomingEntity(producer)
	for _, m := range e.Models {
		assert.Equal(t, []string{"producer"}, m.IncomingEntities())
	}
}
