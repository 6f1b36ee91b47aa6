package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCleanupCmd creates the cleanup command.
func NewCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete automatic backups beyond cleanup_limit",
		Args:  cobra.NoArgs,
		RunE:  runCleanup,
	}
}

func runCleanup(cmd *cobra.Command, args []string) error {
	d, err := setup()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	limit := d.store.CleanupLimit()
	if limit < 0 {
		fmt.Fprintln(out, "Cleanup is disabled (cleanup_limit is negative)")
		return nil
	}

	if d.cfg.DryRun {
		records, err := d.store.ListAll(true)
		if err != nil {
			return err
		}
		for _, rec := range records {
			if order, ok := rec.AutoRemoveOrder(); ok && order >= limit {
				fmt.Fprintf(out, "Would delete %s\n", rec.Name())
			}
		}
		return nil
	}

	var deleted int
	err = withStoreLock(cmd.Context(), d, func() error {
		var err error
		deleted, err = d.store.CleanupAutomated(cmd.Context())
		return err
	})

	fmt.Fprintf(out, "Deleted %d automatic backups (limit %d)\n", deleted, limit)
	return err
}

// NewFixNestedCmd creates the fix-nested command.
func NewFixNestedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fix-nested",
		Short: "Move backups saved inside other backups up to the backup directory",
		Args:  cobra.NoArgs,
		RunE:  runFixNested,
	}
}

func runFixNested(cmd *cobra.Command, args []string) error {
	d, err := setup()
	if err != nil {
		return err
	}

	var moved int
	if err := withStoreLock(cmd.Context(), d, func() error {
		moved = d.store.FixNestedBackups(cmd.Context())
		return nil
	}); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Moved %d nested backups\n", moved)
	return nil
}
