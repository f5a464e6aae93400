package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jholhewres/shellclaw/pkg/shellclaw/config"
	"github.com/jholhewres/shellclaw/pkg/shellclaw/session"
	"github.com/spf13/cobra"
)

// newRunCmd creates the `shellclaw run` command for one-shot local
// execution without Discord.
func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <instruction...>",
		Short: "Execute one instruction through the engine locally",
		Long: `Execute a single instruction through the full engine — directory-change
interception, sandbox containment, output summarization — and print the
step reports to stdout. Exits with the last step's exit code.

Session state is not persisted; each invocation starts at the sandbox
root.

Examples:
  shellclaw run "ls -la"
  shellclaw run "cd projects && git status"
  shellclaw run --chat "show the five largest files here"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runRun,
	}

	cmd.Flags().Bool("chat", false, "translate the instruction through the planning oracle first")
	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg.Logging)

	chat, _ := cmd.Flags().GetBool("chat")
	if chat {
		// Only the oracle key is needed locally; never require the
		// Discord token for a one-shot run.
		config.ResolveCredentials(cfg, logger)
	}

	c, err := buildCore(cfg, logger, false)
	if err != nil {
		return err
	}

	instruction := strings.Join(args, " ")
	mode := sessionModeFor(chat)

	out := c.engine.HandleInstruction(context.Background(), "local", instruction, mode, func(report string) {
		fmt.Println(report)
	})

	if out.ExitCode != 0 {
		os.Exit(out.ExitCode)
	}
	return nil
}

// sessionModeFor maps the --chat flag to an instruction mode.
func sessionModeFor(chat bool) session.Mode {
	if chat {
		return session.ModeChat
	}
	return session.ModeCommand
}
