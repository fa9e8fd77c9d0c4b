package generator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/expgridgo/internal/entity"
	"github.com/vk/expgridgo/internal/settings"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestGenerateModelStagesConfigureFiles(t *testing.T) {
	ctx := context.Background()
	srcDir := t.TempDir()
	expDir := t.TempDir()

	input := writeFile(t, srcDir, "in.atm", "run ;steps;\nthermo ;thermo;\n")

	m := entity.NewModel("atm", map[string]string{"steps": "25", "thermo": "5"}, "", settings.New("lmp"))
	m.AttachGeneratorFiles(&entity.Files{Configure: []string{input}})

	g := New(expDir, false)
	require.NoError(t, g.GenerateModel(ctx, m))

	assert.Equal(t, filepath.Join(expDir, "atm"), m.Path)
	staged, err := os.ReadFile(filepath.Join(m.Path, "in.atm"))
	require.NoError(t, err)
	assert.Equal(t, "run 25\nthermo 5\n", string(staged))
}

func TestConfigureFileLeavesUnmatchedTags(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	src := writeFile(t, dir, "in.atm", "run ;steps;\nthermo ;thremo;\n")
	dst := filepath.Join(dir, "out.atm")

	require.NoError(t, configureFile(ctx, src, dst, map[string]string{"steps": "10"}))

	configured, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "run 10\nthermo ;thremo;\n", string(configured))
}

func TestGenerateModelCopyAndSymlink(t *testing.T) {
	ctx := context.Background()
	srcDir := t.TempDir()
	expDir := t.TempDir()

	copied := writeFile(t, srcDir, "data.bin", "payload")
	linked := writeFile(t, srcDir, "big.dat", "huge")

	m := entity.NewModel("m", nil, "", settings.New("a.out"))
	m.AttachGeneratorFiles(&entity.Files{Copy: []string{copied}, Symlink: []string{linked}})

	g := New(expDir, false)
	require.NoError(t, g.GenerateModel(ctx, m))

	data, err := os.ReadFile(filepath.Join(m.Path, "data.bin"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	target, err := os.Readlink(filepath.Join(m.Path, "big.dat"))
	require.NoError(t, err)
	assert.Equal(t, linked, target)
}

func TestGenerateEnsembleCreatesMemberDirs(t *testing.T) {
	ctx := context.Background()
	srcDir := t.TempDir()
	expDir := t.TempDir()

	input := writeFile(t, srcDir, "in.atm", "steps ;steps;\n")

	params := map[string][]string{"steps": {"10", "20"}}
	e, err := entity.NewEnsemble(ctx, "sweep", params, settings.New("lmp"), entity.EnsembleOptions{})
	require.NoError(t, err)
	e.AttachGeneratorFiles(&entity.Files{Configure: []string{input}})

	g := New(expDir, false)
	require.NoError(t, g.GenerateEnsemble(ctx, e))

	// Each member gets its own directory with its own parameter values.
	for _, m := range e.Models {
		assert.Equal(t, filepath.Join(expDir, "sweep", m.Name), m.Path)
		staged, err := os.ReadFile(filepath.Join(m.Path, "in.atm"))
		require.NoError(t, err)
		assert.Equal(t, "steps "+m.Params["steps"]+"\n", string(staged))
	}
}

func TestEntityDirRefusesExistingWithoutOverwrite(t *testing.T) {
	ctx := context.Background()
	expDir := t.TempDir()

	m := entity.NewModel("m", nil, "", settings.New("a.out"))
	g := New(expDir, false)
	require.NoError(t, g.GenerateModel(ctx, m))

	err := g.GenerateModel(ctx, m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	// With overwrite the stale directory is replaced.
	writeFile(t, m.Path, "stale.txt", "old")
	g = New(expDir, true)
	require.NoError(t, g.GenerateModel(ctx, m))
	_, err = os.Stat(filepath.Join(m.Path, "stale.txt"))
	assert.True(t, os.IsNotExist(err))
}
