package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sharkusmanch/gd-backups/internal/app"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the automatic backup check once and exit",
		Long: `Run the automatic backup check the game makes at startup, then exit.

A backup is created when auto_backup_rate allows it and the newest backup is
old enough. Older automatic backups beyond cleanup_limit are removed first.`,
		Args: cobra.NoArgs,
		RunE: runRun,
	}

	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	d, err := setup()
	if err != nil {
		return err
	}

	httpClient := newHTTPClient(d.cfg, d.logger)
	runner := app.NewRunner(d.cfg, d.store,
		app.WithLogger(d.logger),
		app.WithNotifier(newNotifier(d.cfg, httpClient, d.logger)),
		app.WithMetricsPusher(newMetricsPusher(d.cfg, httpClient, d.logger)),
	)

	result, err := runner.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}

	out := cmd.OutOrStdout()
	switch {
	case !result.Success:
		return fmt.Errorf("backup completed with errors")
	case result.Skipped:
		fmt.Fprintf(out, "No backup made (%s)\n", result.SkipReason)
	default:
		fmt.Fprintf(out, "Created backup %s\n", result.BackupPath)
	}
	if result.Cleaned > 0 {
		fmt.Fprintf(out, "Deleted %d automatic backups\n", result.Cleaned)
	}

	return nil
}
