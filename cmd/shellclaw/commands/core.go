// Package commands – core.go assembles the execution engine shared by
// the serve and run commands.
package commands

import (
	"fmt"
	"log/slog"

	"github.com/jholhewres/shellclaw/pkg/shellclaw/config"
	"github.com/jholhewres/shellclaw/pkg/shellclaw/engine"
	"github.com/jholhewres/shellclaw/pkg/shellclaw/planner"
	"github.com/jholhewres/shellclaw/pkg/shellclaw/session"
	"github.com/jholhewres/shellclaw/pkg/shellclaw/shell"
)

// core bundles the wired execution components.
type core struct {
	engine   *engine.Engine
	workdirs *session.WorkdirStore
	modes    *session.ModeStore
	files    *engine.FileOps
}

// buildCore wires profile, invoker, stores, oracle, and engine from the
// configuration. persist controls whether session snapshots are written
// (the one-shot run command keeps state in memory only).
func buildCore(cfg *config.Config, logger *slog.Logger, persist bool) (*core, error) {
	profile := shell.Resolve()
	invoker := shell.NewInvoker(profile, logger)

	cwdPath, modePath := "", ""
	if persist {
		cwdPath = cfg.Sandbox.CwdStorePath
		modePath = cfg.Sandbox.ModeStorePath
	}

	workdirs, err := session.NewWorkdirStore(cfg.Sandbox.Root, cwdPath, logger)
	if err != nil {
		return nil, fmt.Errorf("opening working-directory store: %w", err)
	}

	defaultMode, err := session.ParseMode(cfg.Sandbox.DefaultMode)
	if err != nil {
		return nil, err
	}
	modes := session.NewModeStore(defaultMode, modePath, logger)

	var oracle engine.Oracle
	if cfg.Gemini.APIKey != "" {
		oracle = planner.NewClient(planner.Config{
			APIKey: cfg.Gemini.APIKey,
			Model:  cfg.Gemini.Model,
		}, profile, logger)
	}

	eng := engine.New(engine.Config{
		CommandTimeout: cfg.Sandbox.CommandTimeout(),
		MaxPlanSteps:   cfg.Sandbox.MaxPlanSteps,
	}, invoker, workdirs, oracle, logger)

	files, err := engine.NewFileOps(workdirs.Root())
	if err != nil {
		return nil, err
	}

	return &core{engine: eng, workdirs: workdirs, modes: modes, files: files}, nil
}
