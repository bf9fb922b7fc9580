package pipeline

import (
	"testing"

	"github.com/cpearce/prochange/item"
	"github.com/cpearce/prochange/volatility"
	"github.com/stretchr/testify/require"
)

func TestRunMinesAtLeastOneCohort(t *testing.T) {
	interner := item.NewInterner()
	ch := make(chan []item.Item, 200)
	for i := 0; i < 120; i++ {
		ch <- txn(interner, "a", "b")
	}
	close(ch)

	cfg := Config{
		TrainingWindowSize: 50,
		MinSupport:         0.3,
		MinConfidence:      0.3,
		MinLift:            1.0,
	}
	vol := volatility.FixedConfidenceVolatilityDetector{Confidence: 1.0}

	var cohorts []Cohort
	Run(interner, ch, cfg, VRChangeAlgorithm, vol, func(c Cohort) {
		cohorts = append(cohorts, c)
	})

	require.NotEmpty(t, cohorts)
	require.Equal(t, 0, cohorts[0].WindowStart)
	require.Equal(t, 50, cohorts[0].WindowEnd)
}

// TestRunSkipsWindowsWithNoRules feeds a stream of single-item
// transactions: every mined itemset is a singleton, so no rules can be
// generated and every window must be skipped without training a detector
// or emitting a cohort.
func TestRunSkipsWindowsWithNoRules(t *testing.T) {
	interner := item.NewInterner()
	ch := make(chan []item.Item, 200)
	for i := 0; i < 120; i++ {
		ch <- txn(interner, "a")
	}
	close(ch)

	cfg := Config{
		TrainingWindowSize: 50,
		MinSupport:         0.3,
		MinConfidence:      0.3,
		MinLift:            1.0,
	}
	vol := volatility.FixedConfidenceVolatilityDetector{Confidence: 1.0}

	var cohorts []Cohort
	Run(interner, ch, cfg, VRChangeAlgorithm, vol, func(c Cohort) {
		cohorts = append(cohorts, c)
	})

	require.Empty(t, cohorts)
}

func TestRunWithSeedAlgorithm(t *testing.T) {
	interner := item.NewInterner()
	ch := make(chan []item.Item, 200)
	for i := 0; i < 120; i++ {
		ch <- txn(interner, "a", "b")
	}
	close(ch)

	cfg := Config{
		TrainingWindowSize: 50,
		MinSupport:         0.3,
		MinConfidence:      0.3,
		MinLift:            1.0,
	}
	vol := volatility.FixedConfidenceVolatilityDetector{Confidence: 1.0}

	var cohorts []Cohort
	Run(interner, ch, cfg, SeedAlgorithm, vol, func(c Cohort) {
		cohorts = append(cohorts, c)
	})

	require.NotEmpty(t, cohorts)
}
