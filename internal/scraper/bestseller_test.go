package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsBestseller(t *testing.T) {
	tests := []struct {
		name                    string
		read, interaction       int
		minRead, minInteraction int
		want                    bool
	}{
		{"both above thresholds", 10001, 1001, 10000, 1000, true},
		{"read below threshold", 9999, 1001, 10000, 1000, false},
		{"interaction below threshold", 10001, 999, 10000, 1000, false},
		{"both below thresholds", 1, 1, 10000, 1000, false},
		{"read exactly at threshold", 10000, 1001, 10000, 1000, false},
		{"interaction exactly at threshold", 10001, 1000, 10000, 1000, false},
		{"both exactly at thresholds", 10000, 1000, 10000, 1000, false},
		{"zero thresholds", 1, 1, 0, 0, true},
		{"all zero", 0, 0, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsBestseller(tt.read, tt.interaction, tt.minRead, tt.minInteraction)
			assert.Equal(t, tt.want, got)
		})
	}
}
