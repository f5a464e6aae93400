package commands

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jholhewres/shellclaw/pkg/shellclaw/scheduler"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

// newScheduleCmd creates the `shellclaw schedule` command tree for
// managing scheduled jobs against the SQLite store. The running daemon
// picks up changes at its next restart.
func newScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage scheduled shell commands",
		Long: `Manage cron-scheduled shell commands. Jobs run through the same
sandboxed engine as interactive instructions.

Examples:
  shellclaw schedule list
  shellclaw schedule add "@daily" "df -h" --name disk-report --session 123456
  shellclaw schedule disable <id>
  shellclaw schedule remove <id>`,
	}

	cmd.AddCommand(
		newScheduleListCmd(),
		newScheduleAddCmd(),
		newScheduleRemoveCmd(),
		newScheduleEnableCmd(true),
		newScheduleEnableCmd(false),
	)
	return cmd
}

// openJobStorage opens the configured job database for a CLI operation.
func openJobStorage(cmd *cobra.Command) (*scheduler.SQLiteJobStorage, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return scheduler.OpenSQLiteJobStorage(cfg.Scheduler.DBPath)
}

func newScheduleListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all scheduled jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			storage, err := openJobStorage(cmd)
			if err != nil {
				return err
			}
			defer storage.Close()

			jobs, err := storage.LoadAll()
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Println("No scheduled jobs.")
				return nil
			}

			sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.Before(jobs[j].CreatedAt) })
			parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
			for _, j := range jobs {
				state := "enabled"
				if !j.Enabled {
					state = "disabled"
				}
				fmt.Printf("%s  [%s]  %q → %q", j.ID, state, j.Schedule, j.Command)
				if j.Name != "" {
					fmt.Printf("  (%s)", j.Name)
				}
				fmt.Println()
				if j.Enabled {
					if sched, err := parser.Parse(j.Schedule); err == nil {
						fmt.Printf("    next run %s\n", sched.Next(time.Now()).Format("2006-01-02 15:04:05"))
					}
				}
				if j.LastRunAt != nil {
					fmt.Printf("    last run %s, %d run(s)", j.LastRunAt.Format("2006-01-02 15:04:05"), j.RunCount)
					if j.LastError != "" {
						fmt.Printf(", last error: %s", j.LastError)
					}
					fmt.Println()
				}
			}
			return nil
		},
	}
}

func newScheduleAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <schedule> <command>",
		Short: "Add a new scheduled job",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			storage, err := openJobStorage(cmd)
			if err != nil {
				return err
			}
			defer storage.Close()

			name, _ := cmd.Flags().GetString("name")
			sessionKey, _ := cmd.Flags().GetString("session")
			disabled, _ := cmd.Flags().GetBool("disabled")

			// Validate the cron expression at add time instead of at the
			// daemon's next restart.
			parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
			if _, err := parser.Parse(args[0]); err != nil {
				return fmt.Errorf("invalid schedule %q: %w", args[0], err)
			}

			job := &scheduler.Job{
				ID:         uuid.NewString(),
				Name:       name,
				Schedule:   args[0],
				Command:    args[1],
				SessionKey: sessionKey,
				Enabled:    !disabled,
				CreatedAt:  time.Now(),
			}
			if err := storage.Save(job); err != nil {
				return err
			}

			fmt.Printf("Job %s scheduled: %q → %q\n", job.ID, job.Schedule, job.Command)
			return nil
		},
	}

	cmd.Flags().String("name", "", "human-readable job label")
	cmd.Flags().String("session", "", "session (channel ID) the job runs in and reports to")
	cmd.Flags().Bool("disabled", false, "register the job without scheduling it")
	return cmd
}

func newScheduleRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a scheduled job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			storage, err := openJobStorage(cmd)
			if err != nil {
				return err
			}
			defer storage.Close()

			if err := storage.Delete(args[0]); err != nil {
				return err
			}
			fmt.Printf("Job %s removed.\n", args[0])
			return nil
		},
	}
}

// newScheduleEnableCmd builds both the enable and disable subcommands.
func newScheduleEnableCmd(enable bool) *cobra.Command {
	verb, short := "enable", "Enable a scheduled job"
	if !enable {
		verb, short = "disable", "Disable a scheduled job without removing it"
	}

	return &cobra.Command{
		Use:   verb + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			storage, err := openJobStorage(cmd)
			if err != nil {
				return err
			}
			defer storage.Close()

			jobs, err := storage.LoadAll()
			if err != nil {
				return err
			}
			for _, j := range jobs {
				if j.ID == args[0] {
					j.Enabled = enable
					if err := storage.Save(j); err != nil {
						return err
					}
					fmt.Printf("Job %s %sd.\n", j.ID, verb)
					return nil
				}
			}
			return fmt.Errorf("job %q not found", args[0])
		},
	}
}
