// Package generator materializes an experiment on disk: it creates the
// experiment and per-entity run directories and stages each entity's
// attached files, writing parameter values into tagged configure files.
package generator

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vk/expgridgo/internal/ctxlog"
	"github.com/vk/expgridgo/internal/entity"
)

// Generator creates run directories under a root experiment path.
type Generator struct {
	// Path is the experiment root directory.
	Path string
	// Overwrite replaces existing entity directories instead of failing.
	Overwrite bool
}

// New creates a generator rooted at the experiment path.
func New(path string, overwrite bool) *Generator {
	return &Generator{Path: path, Overwrite: overwrite}
}

// GenerateExperiment creates the experiment root directory.
func (g *Generator) GenerateExperiment(ctx context.Context) error {
	if err := os.MkdirAll(g.Path, 0o755); err != nil {
		return fmt.Errorf("failed to create experiment directory: %w", err)
	}
	ctxlog.FromContext(ctx).Debug("Experiment directory ready.", "path", g.Path)
	return nil
}

// GenerateModel creates the model's run directory and stages its files.
func (g *Generator) GenerateModel(ctx context.Context, m *entity.Model) error {
	dir, err := g.entityDir(m.Name)
	if err != nil {
		return err
	}
	m.SetPath(dir)

	if m.Files == nil {
		return nil
	}
	return g.stageFiles(ctx, dir, m.Files, m.Params)
}

// GenerateEnsemble creates a directory for the ensemble with one
// subdirectory per member.
func (g *Generator) GenerateEnsemble(ctx context.Context, e *entity.Ensemble) error {
	dir, err := g.entityDir(e.Name)
	if err != nil {
		return err
	}
	e.Path = dir

	for _, m := range e.Models {
		memberDir := filepath.Join(dir, m.Name)
		if err := os.MkdirAll(memberDir, 0o755); err != nil {
			return fmt.Errorf("failed to create run directory for %q: %w", m.Name, err)
		}
		m.SetPath(memberDir)

		if m.Files != nil {
			if err := g.stageFiles(ctx, memberDir, m.Files, m.Params); err != nil {
				return err
			}
		}
	}
	return nil
}

// GenerateOrchestrator creates the orchestrator's run directory.
func (g *Generator) GenerateOrchestrator(ctx context.Context, orc entity.Entity) error {
	dir, err := g.entityDir(orc.EntityName())
	if err != nil {
		return err
	}
	orc.SetPath(dir)
	return nil
}

// entityDir creates (or, with Overwrite, replaces) an entity directory.
func (g *Generator) entityDir(name string) (string, error) {
	dir := filepath.Join(g.Path, name)
	if _, err := os.Stat(dir); err == nil {
		if !g.Overwrite {
			return "", fmt.Errorf("run directory %q already exists, enable overwrite to replace it", dir)
		}
		if err := os.RemoveAll(dir); err != nil {
			return "", fmt.Errorf("failed to replace run directory %q: %w", dir, err)
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create run directory %q: %w", dir, err)
	}
	return dir, nil
}

// stageFiles copies, links, and configures the entity's attached files into
// its run directory.
func (g *Generator) stageFiles(ctx context.Context, dir string, files *entity.Files, params map[string]string) error {
	for _, src := range files.Copy {
		if err := copyFile(src, filepath.Join(dir, filepath.Base(src))); err != nil {
			return err
		}
	}
	for _, src := range files.Symlink {
		abs, err := filepath.Abs(src)
		if err != nil {
			return err
		}
		if err := os.Symlink(abs, filepath.Join(dir, filepath.Base(src))); err != nil {
			return fmt.Errorf("failed to symlink %q: %w", src, err)
		}
	}
	for _, src := range files.Configure {
		dst := filepath.Join(dir, filepath.Base(src))
		if err := configureFile(ctx, src, dst, params); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to copy %q: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return fmt.Errorf("failed to copy %q: %w", src, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy %q: %w", src, err)
	}
	return nil
}
