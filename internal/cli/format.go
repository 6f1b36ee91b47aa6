package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/sharkusmanch/gd-backups/internal/backup"
	"github.com/sharkusmanch/gd-backups/internal/domain"
)

const levelPreviewCount = 10

// formatAge describes how long ago t was, relative to now.
func formatAge(t, now time.Time) string {
	age := now.Sub(t)
	switch {
	case age < time.Hour:
		return "Just now"
	case age < 24*time.Hour:
		return plural(int(age/time.Hour), "hour") + " ago"
	case age < 31*24*time.Hour:
		return plural(int(age/(24*time.Hour)), "day") + " ago"
	default:
		return t.Local().Format("Jan 02 2006")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// levelPreview lists the first few level names.
func levelPreview(names []string) string {
	if len(names) == 0 {
		return "(none)"
	}
	if len(names) <= levelPreviewCount {
		return strings.Join(names, ", ")
	}
	return strings.Join(names[:levelPreviewCount], ", ") + ", ..."
}

// kindLabel describes whether a backup is automatic and when it will go.
func kindLabel(rec *backup.Record, limit int) string {
	if !rec.IsAutoRemove() {
		return "manual"
	}
	remaining, ok := rec.RemainingBeforeCleanup(limit)
	if !ok {
		return "auto"
	}
	if remaining <= 0 {
		return "auto (due for removal)"
	}
	return fmt.Sprintf("auto (%s left)", plural(remaining, "backup"))
}

func formatColor(c *int) string {
	if c == nil {
		return "none"
	}
	return fmt.Sprintf("%d", *c)
}

// formatInfo renders a decoded backup summary.
func formatInfo(info domain.BackupInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  Icon:        %d\n", info.PlayerIcon)
	fmt.Fprintf(&b, "  Colors:      %d / %d\n", info.PlayerColor1, info.PlayerColor2)
	fmt.Fprintf(&b, "  Glow:        %s\n", formatColor(info.PlayerGlowColor))
	fmt.Fprintf(&b, "  Stars:       %d\n", info.StarCount)
	fmt.Fprintf(&b, "  Levels:      %d\n", info.LevelCount())
	fmt.Fprintf(&b, "  Level names: %s\n", levelPreview(info.LevelNames))
	return b.String()
}
