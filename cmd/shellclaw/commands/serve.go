package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jholhewres/shellclaw/pkg/shellclaw/channels"
	"github.com/jholhewres/shellclaw/pkg/shellclaw/channels/discord"
	"github.com/jholhewres/shellclaw/pkg/shellclaw/config"
	"github.com/jholhewres/shellclaw/pkg/shellclaw/engine"
	"github.com/jholhewres/shellclaw/pkg/shellclaw/scheduler"
	"github.com/jholhewres/shellclaw/pkg/shellclaw/session"
	"github.com/spf13/cobra"
)

// newServeCmd creates the `shellclaw serve` command that starts the
// daemon.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the Discord daemon",
		Long: `Start shellclaw as a daemon: connect to Discord, restore session
state, start the job scheduler, and execute instructions until stopped.

Examples:
  shellclaw serve
  shellclaw serve --config ./config.yaml --verbose`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg.Logging)

	// ── Resolve credentials ──
	config.ResolveCredentials(cfg, logger)
	if cfg.Discord.Token == "" {
		return fmt.Errorf("no Discord token found: set DISCORD_TOKEN or store one with `shellclaw credentials set %s`", config.KeyDiscordToken)
	}

	// ── Build the execution core ──
	c, err := buildCore(cfg, logger, true)
	if err != nil {
		return err
	}
	logger.Info("sandbox ready",
		"root", c.workdirs.Root(),
		"default_mode", c.modes.Default(),
		"timeout", cfg.Sandbox.CommandTimeout(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Discord channel ──
	var ch channels.Channel = discord.New(cfg.Discord, c.engine, c.modes, c.files, logger)
	if err := ch.Connect(ctx); err != nil {
		return err
	}

	// ── Scheduler ──
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		storage, err := scheduler.OpenSQLiteJobStorage(cfg.Scheduler.DBPath)
		if err != nil {
			return err
		}
		defer storage.Close()

		// Scheduled commands run as single-step plans in the job's
		// session; reports go to that session's channel when one is
		// attached, otherwise they are logged.
		sched = scheduler.New(storage, func(jobCtx context.Context, job *scheduler.Job) error {
			key := session.Key(job.SessionKey)
			c.engine.ExecutePlan(jobCtx, key, []string{job.Command}, engine.PlanOptions{}, func(report string) {
				if job.SessionKey != "" && ch.IsConnected() {
					if err := ch.Send(jobCtx, job.SessionKey, report); err != nil {
						logger.Warn("job report delivery failed", "job", job.ID, "error", err)
					}
					return
				}
				logger.Info("job report", "job", job.ID, "report", report)
			})
			return nil
		}, logger)

		if err := sched.Start(ctx); err != nil {
			return err
		}
	}

	logger.Info("shellclaw running, press Ctrl+C to stop")

	// ── Wait for shutdown ──
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("shutdown signal received, stopping...")

	health := ch.Health()
	logger.Info("channel health",
		"channel", ch.Name(),
		"connected", health.Connected,
		"last_message_at", health.LastMessageAt,
		"errors", health.ErrorCount,
	)

	done := make(chan struct{})
	go func() {
		if sched != nil {
			sched.Stop()
		}
		_ = ch.Disconnect()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("shutdown complete")
	case <-time.After(15 * time.Second):
		logger.Warn("shutdown timed out, forcing exit")
	}
	return nil
}
