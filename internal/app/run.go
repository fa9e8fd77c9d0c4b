package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/expgridgo/internal/ctxlog"
	"github.com/vk/expgridgo/internal/experiment"
)

// Run executes the main application logic based on the provided configuration.
func (a *App) Run(ctx context.Context, appConfig *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	exp, err := experiment.FromConfig(ctx, a.config)
	if err != nil {
		return fmt.Errorf("failed to build experiment: %w", err)
	}
	a.logger.Info("Experiment assembled.",
		"experiment", exp.Name,
		"launcher", exp.LauncherName(),
		"path", exp.Path,
	)

	if err := exp.Generate(ctx, appConfig.Overwrite); err != nil {
		return fmt.Errorf("failed to generate run directories: %w", err)
	}
	a.logger.Debug("Run directories generated.")

	if appConfig.GenerateOnly {
		a.logger.Info("Generation complete, skipping launch.")
		return nil
	}

	if err := exp.Start(ctx); err != nil {
		// Leave nothing running behind a partial launch.
		if stopErr := exp.Stop(ctx); stopErr != nil {
			a.logger.Error("Failed to stop partially launched experiment.", "error", stopErr)
		}
		return fmt.Errorf("failed to start experiment: %w", err)
	}

	if err := exp.Wait(ctx); err != nil {
		if stopErr := exp.Stop(ctx); stopErr != nil {
			a.logger.Error("Failed to stop experiment.", "error", stopErr)
		}
		return err
	}

	fmt.Fprint(a.outW, exp.Summary(ctx))

	if failed := exp.Failed(ctx); len(failed) > 0 {
		return fmt.Errorf("experiment finished with failed entities: %s", strings.Join(failed, ", "))
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}
