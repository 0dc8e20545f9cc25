package fsm_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/cadence/pkg/fsm"
)

func TestMaxAnalysisTime(t *testing.T) {
	start := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		elapsed  time.Duration
		localMax time.Duration
		localMin time.Duration
		want     time.Duration
	}{
		{"LocalMaxFirst", 0, 10 * time.Second, 2 * time.Second, 10 * time.Second},
		{"RunCeilingFirst", 35 * time.Second, 20 * time.Second, 2 * time.Second, 40 * time.Second},
		{"LocalMinPastCeiling", 35 * time.Second, 20 * time.Second, 10 * time.Second, 45 * time.Second},
		{"CeilingEqualsLocalMax", 20 * time.Second, 20 * time.Second, 0, 40 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fsm.MaxAnalysisTime(start, 40*time.Second, start.Add(tt.elapsed), tt.localMax, tt.localMin)
			assert.Equal(t, start.Add(tt.want), got)
		})
	}
}

func TestNamed(t *testing.T) {
	id := fsm.Named("Production")
	assert.Equal(t, "Production", id.PerfName)

	perf := id.Perf("ProductionCatchUp")
	assert.Equal(t, "Production", perf.Name)
	assert.Equal(t, "ProductionCatchUp", perf.PerfName)
	assert.Equal(t, "Production", id.PerfName)
}
