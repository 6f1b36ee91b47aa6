package cli

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatAge(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.Local)

	tests := []struct {
		age  time.Duration
		want string
	}{
		{0, "Just now"},
		{59 * time.Minute, "Just now"},
		{time.Hour, "1 hour ago"},
		{5*time.Hour + 30*time.Minute, "5 hours ago"},
		{24 * time.Hour, "1 day ago"},
		{30 * 24 * time.Hour, "30 days ago"},
		{31 * 24 * time.Hour, "Feb 13 2024"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatAge(now.Add(-tt.age), now))
		})
	}
}

func TestLevelPreview(t *testing.T) {
	assert.Equal(t, "(none)", levelPreview(nil))
	assert.Equal(t, "A, B", levelPreview([]string{"A", "B"}))

	names := make([]string, 12)
	for i := range names {
		names[i] = fmt.Sprintf("L%d", i)
	}
	assert.Equal(t, "L0, L1, L2, L3, L4, L5, L6, L7, L8, L9, ...", levelPreview(names))
	assert.Equal(t, "L0, L1, L2, L3, L4, L5, L6, L7, L8, L9", levelPreview(names[:10]))
}

func TestFormatColor(t *testing.T) {
	glow := 12
	assert.Equal(t, "none", formatColor(nil))
	assert.Equal(t, "12", formatColor(&glow))
}
