// Package engine executes instruction plans with sandboxed session state.
//
// The engine is the meeting point of the execution core:
//
//   - every step first passes the directory-change interceptor, so cd-like
//     instructions mutate session state instead of spawning a shell
//   - remaining instructions run through the shell invoker in the
//     session's current working directory with a hard timeout
//   - results are summarized and rendered as chat-sized reports
//   - a step with a nonzero exit aborts the remaining steps of its plan
//
// Chat-mode instructions are translated to plans by an Oracle; the engine
// treats oracle failures as recoverable and substitutes a placeholder
// command rather than guessing.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jholhewres/shellclaw/pkg/shellclaw/session"
	"github.com/jholhewres/shellclaw/pkg/shellclaw/shell"
)

// Oracle translates a natural-language instruction into an ordered plan
// of at most maxSteps shell commands. A single-command plan is the common
// case. Implementations should be treated as slow and fallible.
type Oracle interface {
	Plan(ctx context.Context, instruction string, maxSteps int) ([]string, error)
}

// Config bounds plan execution.
type Config struct {
	// CommandTimeout is the wall-clock deadline per invoked command.
	// Defaults to 60s.
	CommandTimeout time.Duration

	// MaxPlanSteps caps oracle-produced plans. Defaults to 5.
	MaxPlanSteps int
}

// Engine sequences plans over per-session working directories.
type Engine struct {
	cfg       Config
	invoker   *shell.Invoker
	workdirs  *session.WorkdirStore
	intercept *Interceptor
	oracle    Oracle
	logger    *slog.Logger
}

// New creates an engine. oracle may be nil; chat-mode instructions then
// degrade to the placeholder command.
func New(cfg Config, invoker *shell.Invoker, workdirs *session.WorkdirStore, oracle Oracle, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = 60 * time.Second
	}
	if cfg.MaxPlanSteps < 1 {
		cfg.MaxPlanSteps = 5
	}
	return &Engine{
		cfg:       cfg,
		invoker:   invoker,
		workdirs:  workdirs,
		intercept: NewInterceptor(workdirs, invoker.Profile(), logger),
		oracle:    oracle,
		logger:    logger.With("component", "engine"),
	}
}

// Workdirs exposes the session directory store.
func (e *Engine) Workdirs() *session.WorkdirStore { return e.workdirs }

// Profile returns the OS profile commands run under.
func (e *Engine) Profile() shell.OSProfile { return e.invoker.Profile() }

// ChangeDir applies an explicit directory change for key and returns the
// new directory relative to the sandbox root.
func (e *Engine) ChangeDir(key session.Key, path string) (string, error) {
	target := e.intercept.ResolveTarget(key, path)
	newDir, err := e.workdirs.Set(key, target)
	if err != nil {
		return "", err
	}
	return e.workdirs.Rel(newDir), nil
}

// PlanOptions controls report rendering for one plan execution.
type PlanOptions struct {
	// OSLine prefixes command reports with the host OS name.
	OSLine bool
}

// Outcome summarizes one plan execution.
type Outcome struct {
	// Steps is the number of steps attempted before the plan ended.
	Steps int

	// ExitCode is the exit status of the last invoked command, 0 when the
	// plan only changed directories.
	ExitCode int

	// Stopped reports that a failing step aborted a multi-step plan.
	Stopped bool
}

// ExecutePlan runs plan steps in order, emitting one or more report
// strings per step through emit.
//
// Directory-change steps report their acknowledgement and can never abort
// the plan, even when the change itself fails. An invoked step with a
// nonzero exit emits its report, then a stop notice (multi-step plans
// only), and terminates the plan.
func (e *Engine) ExecutePlan(ctx context.Context, key session.Key, plan []string, opts PlanOptions, emit func(string)) Outcome {
	var out Outcome
	total := len(plan)
	if total == 0 {
		return out
	}
	multi := total > 1

	osName := ""
	if opts.OSLine {
		osName = e.invoker.Profile().Name
	}

	if multi {
		emit(fmt.Sprintf("Planning %d step(s). Executing sequentially…", total))
	}

	for i, step := range plan {
		idx := i + 1
		residual, ack := e.intercept.Intercept(key, step)

		if ack != "" {
			out.Steps++
			if multi {
				emit(fmt.Sprintf("[%d/%d] %s", idx, total, ack))
			} else {
				emit(ack)
			}
			continue
		}
		if residual == "" {
			// Blank step; nothing to run.
			out.Steps++
			continue
		}

		if multi {
			emit(fmt.Sprintf("[%d/%d] $ %s", idx, total, step))
		}

		workDir := e.workdirs.Get(key)
		res, err := e.invoker.Invoke(ctx, residual, workDir, e.cfg.CommandTimeout)
		out.Steps++

		if err != nil {
			e.logger.Error("command spawn failed", "command", residual, "error", err)
			emit(fmt.Sprintf("Failed to execute command: %v", err))
			out.ExitCode = 1
			if multi {
				emit(fmt.Sprintf("Stopped due to error at step %d.", idx))
				out.Stopped = true
			}
			return out
		}

		if multi {
			emit(formatReport(osName, "", res))
		} else {
			emit(formatReport(osName, step, res))
		}

		out.ExitCode = res.ExitCode
		if res.ExitCode != 0 {
			if multi {
				emit(fmt.Sprintf("Stopped due to error at step %d.", idx))
				out.Stopped = true
			}
			return out
		}
	}
	return out
}

// HandleInstruction executes one inbound instruction according to the
// session mode: command mode runs the text verbatim as a single-step
// plan, chat mode plans through the oracle first.
func (e *Engine) HandleInstruction(ctx context.Context, key session.Key, text string, mode session.Mode, emit func(string)) Outcome {
	text = strings.TrimSpace(text)
	if text == "" {
		return Outcome{}
	}

	if mode == session.ModeChat {
		return e.ExecutePlan(ctx, key, e.planFor(ctx, text), PlanOptions{OSLine: true}, emit)
	}
	return e.ExecutePlan(ctx, key, []string{text}, PlanOptions{OSLine: true}, emit)
}

// planFor asks the oracle for a plan, falling back to the placeholder
// command on any failure so the caller always has something to execute.
func (e *Engine) planFor(ctx context.Context, text string) []string {
	if e.oracle == nil {
		return []string{e.placeholder()}
	}
	plan, err := e.oracle.Plan(ctx, text, e.cfg.MaxPlanSteps)
	if err != nil {
		e.logger.Warn("planning oracle failed", "error", err)
		return []string{e.placeholder()}
	}
	if len(plan) == 0 {
		return []string{e.placeholder()}
	}
	if len(plan) > e.cfg.MaxPlanSteps {
		plan = plan[:e.cfg.MaxPlanSteps]
	}
	return plan
}

// placeholder is the safe command that signals the instruction could not
// be translated.
func (e *Engine) placeholder() string {
	if e.invoker.Profile().Windows() {
		return "Write-Output 'Unable to determine a command'"
	}
	return "echo 'Unable to determine a command'"
}
