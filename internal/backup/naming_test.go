package backup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitDirName(t *testing.T) {
	tests := []struct {
		name       string
		wantBase   string
		wantSuffix int
	}{
		{"2024-03-15_10-30", "2024-03-15_10-30", -1},
		{"2024-03-15_10-30-0", "2024-03-15_10-30", 0},
		{"2024-03-15_10-30-10", "2024-03-15_10-30", 10},
		{"2024-03-15_10-30-x", "2024-03-15_10-30-x", -1},
		{"2024-03-15_10-30-", "2024-03-15_10-30-", -1},
		{"imported", "imported", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, suffix := splitDirName(tt.name)
			assert.Equal(t, tt.wantBase, base)
			assert.Equal(t, tt.wantSuffix, suffix)
		})
	}
}

func TestCompareDirNames(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"2024-03-15_10-30", "2024-03-15_10-30-0", -1},
		{"2024-03-15_10-30-9", "2024-03-15_10-30-10", -1},
		{"2024-03-15_10-30-10", "2024-03-15_10-30-2", 1},
		{"2024-03-15_10-30-3", "2024-03-15_10-30-3", 0},
		{"2024-03-15_10-29-10", "2024-03-15_10-30", -1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, compareDirNames(tt.a, tt.b))
		})
	}
}
