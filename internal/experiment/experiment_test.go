package experiment

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/expgridgo/internal/config"
	"github.com/vk/expgridgo/internal/database"
	"github.com/vk/expgridgo/internal/entity"
	"github.com/vk/expgridgo/internal/settings"
	"github.com/vk/expgridgo/internal/testutil"
)

func TestNewExperiment(t *testing.T) {
	ctx := context.Background()

	exp, err := New(ctx, "test", filepath.Join(t.TempDir(), "run"), "local")
	require.NoError(t, err)
	assert.Equal(t, "local", exp.LauncherName())
	assert.True(t, filepath.IsAbs(exp.Path))

	_, err = New(ctx, "", "", "local")
	require.Error(t, err)
}

func TestCreateEntitiesRejectDuplicateNames(t *testing.T) {
	ctx := context.Background()
	exp, err := New(ctx, "dup", t.TempDir(), "local")
	require.NoError(t, err)

	_, err = exp.CreateModel("same", nil, settings.New("a.out"))
	require.NoError(t, err)

	_, err = exp.CreateModel("same", nil, settings.New("a.out"))
	require.ErrorIs(t, err, entity.ErrEntityExists)

	_, err = exp.CreateEnsemble(ctx, "same", nil, settings.New("a.out"), entity.EnsembleOptions{Replicas: 2})
	require.ErrorIs(t, err, entity.ErrEntityExists)
}

func TestCreateModelRejectsReservedOrchestratorName(t *testing.T) {
	ctx := context.Background()
	exp, err := New(ctx, "reserved", t.TempDir(), "local")
	require.NoError(t, err)

	_, err = exp.CreateModel("orchestrator", nil, settings.New("a.out"))
	require.ErrorIs(t, err, entity.ErrEntityExists)

	_, err = exp.CreateEnsemble(ctx, "orchestrator", nil, settings.New("a.out"), entity.EnsembleOptions{Replicas: 2})
	require.ErrorIs(t, err, entity.ErrEntityExists)
}

func TestCreateOrchestratorOnlyOnce(t *testing.T) {
	ctx := context.Background()
	exp, err := New(ctx, "orc", t.TempDir(), "local")
	require.NoError(t, err)

	_, err = exp.CreateOrchestrator(database.Options{})
	require.NoError(t, err)

	_, err = exp.CreateOrchestrator(database.Options{})
	require.ErrorIs(t, err, entity.ErrEntityExists)
}

func TestGenerateStagesDirectories(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "exp")

	exp, err := New(ctx, "gen", root, "local")
	require.NoError(t, err)

	m, err := exp.CreateModel("m1", nil, settings.New("a.out"))
	require.NoError(t, err)
	_, err = exp.CreateEnsemble(ctx, "e1", nil, settings.New("a.out"), entity.EnsembleOptions{Replicas: 2})
	require.NoError(t, err)

	require.NoError(t, exp.Generate(ctx, false))

	assert.DirExists(t, m.Path)
	assert.DirExists(t, filepath.Join(exp.Path, "e1", "e1_0"))
	assert.DirExists(t, filepath.Join(exp.Path, "e1", "e1_1"))
}

func TestFromConfigBuildsEverything(t *testing.T) {
	ctx := context.Background()

	cfg := &config.Model{
		Experiment: &config.ExperimentSpec{
			Name:     "full",
			Launcher: "local",
			Path:     filepath.Join(t.TempDir(), "full"),
		},
		Models: []*config.ModelSpec{{
			Name:        "m1",
			Params:      map[string]string{"steps": "10"},
			RunSettings: &config.RunSettings{Exe: "a.out", ExeArgs: []string{"-x"}},
		}},
		Ensembles: []*config.EnsembleSpec{{
			Name:        "e1",
			Params:      map[string][]string{"steps": {"1", "2"}},
			RunSettings: &config.RunSettings{Exe: "a.out"},
		}},
		Orchestrator: &config.OrchestratorSpec{Port: 7000, DBNodes: 1},
	}

	exp, err := FromConfig(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, "full", exp.Name)
	require.Len(t, exp.models, 1)
	require.Len(t, exp.ensembles, 1)
	assert.Equal(t, 2, exp.ensembles[0].Len())
	require.NotNil(t, exp.orchestrator)
	assert.Equal(t, []string{"127.0.0.1:7000"}, exp.orchestrator.Addresses())
}

func TestFromConfigRequiresExperimentBlock(t *testing.T) {
	ctx := context.Background()

	cfg := &config.Model{
		Models: []*config.ModelSpec{{
			Name:        "m1",
			RunSettings: &config.RunSettings{Exe: "a.out"},
		}},
	}

	_, err := FromConfig(ctx, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no experiment block")
}

func TestFromConfigModelNeedsRunSettings(t *testing.T) {
	ctx := context.Background()

	cfg := &config.Model{
		Experiment: &config.ExperimentSpec{Name: "bad", Launcher: "local"},
		Models:     []*config.ModelSpec{{Name: "m1"}},
	}

	_, err := FromConfig(ctx, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run settings are required")
}

func TestFromConfigBatchSettingsNeedWLM(t *testing.T) {
	ctx := context.Background()

	cfg := &config.Model{
		Experiment: &config.ExperimentSpec{Name: "bad", Launcher: "local"},
		Ensembles: []*config.EnsembleSpec{{
			Name:          "e1",
			BatchSettings: &config.BatchSettings{Nodes: 2},
		}},
	}

	_, err := FromConfig(ctx, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not support batch settings")
}

func TestRunSettingsFromConfigFlavors(t *testing.T) {
	cases := []struct {
		runCommand string
		wantType   any
	}{
		{"srun", &settings.SrunSettings{}},
		{"aprun", &settings.AprunSettings{}},
		{"mpirun", &settings.MpirunSettings{}},
		{"", &settings.RunSettings{}},
	}
	for _, tc := range cases {
		rs, err := runSettingsFromConfig(&config.RunSettings{Exe: "a.out", RunCommand: tc.runCommand})
		require.NoError(t, err, "run command %q", tc.runCommand)
		assert.IsType(t, tc.wantType, rs, "run command %q", tc.runCommand)
	}

	_, err := runSettingsFromConfig(&config.RunSettings{})
	require.Error(t, err)
}

func TestRunSettingsFromConfigRunArgsNeedRunCommand(t *testing.T) {
	_, err := runSettingsFromConfig(&config.RunSettings{
		Exe:     "lmp",
		RunArgs: map[string]string{"ntasks": "32"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run args require a run command")
}

// TestExperimentLifecycleLocal runs a tiny experiment end to end on the
// local backend.
func TestExperimentLifecycleLocal(t *testing.T) {
	testutil.RequireLauncher(t, "local")
	ctx := context.Background()

	exp, err := New(ctx, "lifecycle", filepath.Join(t.TempDir(), "lifecycle"), "local")
	require.NoError(t, err)

	_, err = exp.CreateModel("hello", nil, settings.New("sh", "-c", "echo done"))
	require.NoError(t, err)
	_, err = exp.CreateEnsemble(ctx, "echoes", nil, settings.New("sh", "-c", "true"), entity.EnsembleOptions{Replicas: 2})
	require.NoError(t, err)

	require.NoError(t, exp.Generate(ctx, false))
	require.NoError(t, exp.Start(ctx))
	require.NoError(t, exp.Wait(ctx))

	statuses := exp.GetStatus(ctx)
	require.Len(t, statuses, 3)
	for _, s := range statuses {
		assert.Equal(t, "Completed", s)
	}

	summary := exp.Summary(ctx)
	assert.Contains(t, summary, "Experiment lifecycle (local)")
	assert.Contains(t, summary, "Completed")

	// The model's output landed in its run directory.
	modelDir := filepath.Join(exp.Path, "hello")
	entries, err := os.ReadDir(modelDir)
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

func TestExperimentFailedEntities(t *testing.T) {
	testutil.RequireLauncher(t, "local")
	ctx := context.Background()

	exp, err := New(ctx, "mixed", filepath.Join(t.TempDir(), "mixed"), "local")
	require.NoError(t, err)

	_, err = exp.CreateModel("ok", nil, settings.New("sh", "-c", "true"))
	require.NoError(t, err)
	_, err = exp.CreateModel("broken", nil, settings.New("sh", "-c", "exit 3"))
	require.NoError(t, err)

	require.NoError(t, exp.Generate(ctx, false))
	require.NoError(t, exp.Start(ctx))
	require.NoError(t, exp.Wait(ctx))

	assert.Equal(t, []string{"broken"}, exp.Failed(ctx))
}

func TestDetectLauncherFallsBackToLocal(t *testing.T) {
	// On machines without a workload manager, detection lands on local.
	t.Setenv("PATH", t.TempDir())
	assert.Equal(t, "local", DetectLauncher())
}

func TestDetectLauncherRecognizesCobalt(t *testing.T) {
	bin := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(bin, "cqsub"), []byte("#!/bin/sh\n"), 0o755))
	t.Setenv("PATH", bin)

	assert.Equal(t, "cobalt", DetectLauncher())
}

func TestNewLauncherUnknownName(t *testing.T) {
	_, err := NewLauncher("lsf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown launcher")
}
