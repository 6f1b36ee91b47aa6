package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/sharkusmanch/gd-backups/internal/domain"
)

// Metadata is the persisted description of a snapshot.
// Time is stored as whole hours since the Unix epoch.
type Metadata struct {
	Name *string `json:"name,omitempty"`
	User string  `json:"user"`
	Time int64   `json:"time"`
}

type rawMetadata struct {
	Name *string `json:"name"`
	User *string `json:"user"`
	Time *int64  `json:"time"`
}

// NewMetadata creates metadata for a snapshot taken at t.
func NewMetadata(user string, t time.Time) Metadata {
	return Metadata{
		User: user,
		Time: toHours(t),
	}
}

// CreatedAt returns the snapshot time truncated to the hour.
func (m Metadata) CreatedAt() time.Time {
	return fromHours(m.Time)
}

func toHours(t time.Time) int64 {
	return t.Unix() / 3600
}

func fromHours(h int64) time.Time {
	return time.Unix(h*3600, 0)
}

func readMetadata(dir string) (Metadata, error) {
	data, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if err != nil {
		return Metadata{}, fmt.Errorf("%w: %v", domain.ErrMetadataCorrupt, err)
	}

	var raw rawMetadata
	if err := json.Unmarshal(data, &raw); err != nil {
		return Metadata{}, fmt.Errorf("%w: %v", domain.ErrMetadataCorrupt, err)
	}
	if raw.User == nil || raw.Time == nil {
		return Metadata{}, fmt.Errorf("%w: missing user or time", domain.ErrMetadataCorrupt)
	}

	return Metadata{
		Name: raw.Name,
		User: *raw.User,
		Time: *raw.Time,
	}, nil
}

func writeMetadata(dir string, meta Metadata) error {
	data, err := json.MarshalIndent(meta, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, MetadataFile), data, 0o644)
}
