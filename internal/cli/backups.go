package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sharkusmanch/gd-backups/internal/backup"
	"github.com/sharkusmanch/gd-backups/internal/config"
	"github.com/sharkusmanch/gd-backups/internal/lockfile"
)

var (
	listInfo   bool
	createAuto bool
)

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List backups, newest first",
		Args:    cobra.NoArgs,
		RunE:    runList,
	}

	cmd.Flags().BoolVar(&listInfo, "info", false, "decode each backup and show stars and level counts")

	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	d, err := setup()
	if err != nil {
		return err
	}

	records, err := d.store.ListAll(true)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintf(out, "No backups in %s\n", d.store.Dir())
		return nil
	}

	now := time.Now()
	limit := d.store.CleanupLimit()

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if listInfo {
		fmt.Fprintln(w, "NAME\tCREATED\tBY\tTYPE\tSTARS\tLEVELS")
	} else {
		fmt.Fprintln(w, "NAME\tCREATED\tBY\tTYPE")
	}

	for _, rec := range records {
		line := fmt.Sprintf("%s\t%s\t%s\t%s",
			rec.Name(),
			formatAge(rec.CreatedAt(), now),
			rec.Metadata().User,
			kindLabel(rec, limit),
		)

		if listInfo {
			info, err := rec.LoadInfo().Wait(cmd.Context())
			if err != nil {
				line += "\t?\t?"
			} else {
				line += fmt.Sprintf("\t%d\t%d", info.StarCount, info.LevelCount())
			}
		}

		fmt.Fprintln(w, line)
	}

	return w.Flush()
}

// NewInfoCmd creates the info command.
func NewInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <backup>",
		Short: "Show the player summary stored in a backup",
		Args:  cobra.ExactArgs(1),
		RunE:  runInfo,
	}
}

func runInfo(cmd *cobra.Command, args []string) error {
	d, err := setup()
	if err != nil {
		return err
	}

	rec, err := d.store.Find(args[0])
	if err != nil {
		return err
	}

	info, err := rec.LoadInfo().Wait(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read backup: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n", rec.DisplayName())
	fmt.Fprintf(out, "  Path:        %s\n", rec.Path())
	fmt.Fprintf(out, "  Created:     %s (%s)\n", rec.CreatedAt().Local().Format(time.DateTime), formatAge(rec.CreatedAt(), time.Now()))
	fmt.Fprintf(out, "  By:          %s\n", rec.Metadata().User)
	fmt.Fprintf(out, "  Type:        %s\n", kindLabel(rec, d.store.CleanupLimit()))
	fmt.Fprint(out, formatInfo(info))

	return nil
}

// NewCreateCmd creates the create command.
func NewCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Back up the current save data",
		Args:  cobra.NoArgs,
		RunE:  runCreate,
	}

	cmd.Flags().BoolVar(&createAuto, "auto", false, "mark the backup for automatic cleanup")

	return cmd
}

func runCreate(cmd *cobra.Command, args []string) error {
	d, err := setup()
	if err != nil {
		return err
	}

	if d.cfg.DryRun {
		saveDir, err := d.locator.SaveDir()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Would back up %s into %s\n", saveDir, d.store.Dir())
		return nil
	}

	var rec *backup.Record
	err = withStoreLock(cmd.Context(), d, func() error {
		var err error
		rec, err = d.store.Create(cmd.Context(), createAuto)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created backup %s\n", rec.Path())
	return nil
}

// NewDeleteCmd creates the delete command.
func NewDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <backup>",
		Aliases: []string{"rm"},
		Short:   "Delete a backup",
		Args:    cobra.ExactArgs(1),
		RunE:    runDelete,
	}
}

func runDelete(cmd *cobra.Command, args []string) error {
	d, err := setup()
	if err != nil {
		return err
	}

	rec, err := d.store.Find(args[0])
	if err != nil {
		return err
	}

	if d.cfg.DryRun {
		fmt.Fprintf(cmd.OutOrStdout(), "Would delete %s\n", rec.Path())
		return nil
	}

	if err := withStoreLock(cmd.Context(), d, func() error {
		return d.store.Delete(rec)
	}); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Deleted backup %s\n", rec.Name())
	return nil
}

// NewPreserveCmd creates the preserve command.
func NewPreserveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preserve <backup>",
		Short: "Exclude an automatic backup from cleanup",
		Args:  cobra.ExactArgs(1),
		RunE:  runPreserve,
	}
}

func runPreserve(cmd *cobra.Command, args []string) error {
	d, err := setup()
	if err != nil {
		return err
	}

	rec, err := d.store.Find(args[0])
	if err != nil {
		return err
	}

	if !rec.IsAutoRemove() {
		fmt.Fprintf(cmd.OutOrStdout(), "Backup %s is already preserved\n", rec.Name())
		return nil
	}

	if err := withStoreLock(cmd.Context(), d, rec.Preserve); err != nil {
		return err
	}
	d.store.InvalidateCache()

	fmt.Fprintf(cmd.OutOrStdout(), "Preserved backup %s\n", rec.Name())
	return nil
}

// withStoreLock runs fn while holding the backup directory lock.
func withStoreLock(ctx context.Context, d *deps, fn func() error) error {
	lock, err := lockfile.Acquire(ctx, d.store.Dir(), config.AppName)
	if err != nil {
		return err
	}
	defer lock.Release()

	return fn()
}
