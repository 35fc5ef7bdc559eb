// Package app wires the pipeline executor together: configuration loading,
// the action registry, graph construction, execution, and reporting.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/specialistvlad/gridci/internal/config"
	"github.com/specialistvlad/gridci/internal/ctxlog"
	"github.com/specialistvlad/gridci/internal/registry"
	"github.com/specialistvlad/gridci/internal/runstate"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle for a single pipeline run.
type App struct {
	logger   *slog.Logger
	streamW  io.Writer
	config   *Config
	registry *registry.Registry
	model    *config.Model
	store    *runstate.Store
}

// NewApp is the constructor for the main application. Logs go to logW, the
// machine-readable status stream to streamW. It returns a fully initialized
// App with the pipeline loaded and every step handler resolved.
//
// Loading or validation failures are fatal startup errors and panic; the
// entrypoint recovers them into a clean exit.
func NewApp(logW, streamW io.Writer, appConfig *Config, loader config.Loader, modules ...registry.Module) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loader.Load(ctx, appConfig.PipelinePath)
	if err != nil {
		panic(fmt.Errorf("failed to load pipeline: %w", err))
	}
	logger.Debug("Pipeline loaded into unified model.", "jobs", len(model.Jobs))

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All action modules registered.", "count", len(modules), "actions", len(reg.ActionRegistry))

	if err := reg.ValidateModel(ctx, model); err != nil {
		// A step referencing an unregistered action is a definition error;
		// nothing may execute.
		panic(err)
	}
	logger.Debug("Registry validation passed.")

	return &App{
		logger:   logger,
		streamW:  streamW,
		config:   appConfig,
		registry: reg,
		model:    model,
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Model returns the loaded pipeline model. This is primarily for testing.
func (a *App) Model() *config.Model {
	return a.model
}

// Store returns the run's status table, nil before Run is called.
func (a *App) Store() *runstate.Store {
	return a.store
}
