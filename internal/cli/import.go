package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sharkusmanch/gd-backups/internal/app"
	"github.com/sharkusmanch/gd-backups/internal/domain"
	"github.com/sharkusmanch/gd-backups/internal/host"
)

// NewImportCmd creates the import command.
func NewImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <path>",
		Short: "Move backups from another folder into the backup directory",
		Long: `Import a backup folder, or every backup folder found beneath a directory.

Imported backups are moved, renamed after their modification time and
treated as manual backups.`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	d, err := setup()
	if err != nil {
		return err
	}

	if d.cfg.DryRun {
		fmt.Fprintf(cmd.OutOrStdout(), "Would import backups from %s into %s\n", args[0], d.store.Dir())
		return nil
	}

	importer := app.NewImporter(d.store, app.WithImporterLogger(d.logger))
	res := <-importer.Import(cmd.Context(), host.FixedFolder(args[0]))

	if errors.Is(res.Err, domain.ErrPickCancelled) {
		return fmt.Errorf("no folder given")
	}
	if res.Err != nil {
		return res.Err
	}

	fmt.Fprintln(cmd.OutOrStdout(), res.Message())
	return nil
}
