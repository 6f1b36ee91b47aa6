package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sharkusmanch/gd-backups/internal/app"
)

var restoreNoBackup bool

// NewRestoreCmd creates the restore command.
func NewRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <backup>",
		Short: "Replace the current save data with a backup",
		Long: `Copy a backup's save files over the current Geometry Dash save data.

By default the current progress is backed up first (backup_before_restore).
Close the game before restoring; it has to be restarted to load the
restored data and must not save over it on exit.`,
		Args: cobra.ExactArgs(1),
		RunE: runRestore,
	}

	cmd.Flags().BoolVar(&restoreNoBackup, "no-backup-first", false, "skip backing up current progress")

	return cmd
}

func runRestore(cmd *cobra.Command, args []string) error {
	d, err := setup()
	if err != nil {
		return err
	}

	rec, err := d.store.Find(args[0])
	if err != nil {
		return err
	}

	backupFirst := d.cfg.BackupBeforeRestore && !restoreNoBackup
	out := cmd.OutOrStdout()

	if d.cfg.DryRun {
		saveDir, err := d.locator.SaveDir()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Would restore %s into %s (backup first: %t)\n", rec.Name(), saveDir, backupFirst)
		return nil
	}

	restorer := app.NewRestorer(d.store, app.WithRestorerLogger(d.logger))
	outcome, err := restorer.Restore(cmd.Context(), rec, backupFirst)
	if outcome != nil && outcome.SafetyBackup != nil {
		fmt.Fprintf(out, "Backed up current progress to %s\n", outcome.SafetyBackup.Path())
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Restored backup %s\n", rec.Name())
	if outcome.RestartRequired {
		fmt.Fprintln(out, "Restart Geometry Dash to load the restored save data.")
	}
	return nil
}
