package scenario

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPerformance times a seeded planning pass end to end.
func TestPerformance(t *testing.T) {
	ctx := context.Background()

	start := time.Now()
	svc, st := seeded(t)
	seedTime := time.Since(start)

	actuals, err := st.Actuals(ctx)
	require.NoError(t, err)
	require.NoError(t, st.PutScenario(ctx, "2024:Base", actuals))

	start = time.Now()
	_, err = svc.Analyze(ctx, AnalyzeRequest{Year: 2024, Scenario: "Base"})
	require.NoError(t, err)
	analyzeTime := time.Since(start)

	start = time.Now()
	_, err = svc.Forecast(ctx, ForecastRequest{Year: 2024, Account: "Revenue:Food", Months: 12})
	require.NoError(t, err)
	forecastTime := time.Since(start)

	start = time.Now()
	summary, err := svc.Solve(ctx, analyst, SolveRequest{Scenario: "2025:Base", TargetEBITDA: 1})
	require.NoError(t, err)
	solveTime := time.Since(start)

	totalTime := seedTime + analyzeTime + forecastTime + solveTime
	t.Logf("Performance metrics:")
	t.Logf("  Seed: %v", seedTime)
	t.Logf("  Analyze: %v", analyzeTime)
	t.Logf("  Forecast: %v", forecastTime)
	t.Logf("  Goal seek (%d evaluations): %v", summary.Evaluations, solveTime)
	t.Logf("  Total time: %v", totalTime)

	if totalTime > 10*time.Second {
		t.Errorf("Total processing time %v exceeds 10 second threshold", totalTime)
	}
}

// TestDataConsistency checks that repeated runs give identical answers.
func TestDataConsistency(t *testing.T) {
	svc, _ := seeded(t)
	ctx := context.Background()

	first, err := svc.Solve(ctx, analyst, SolveRequest{Scenario: "2025:Base", TargetEBITDA: 250000})
	require.NoError(t, err)
	fc, err := svc.Forecast(ctx, ForecastRequest{Year: 2024, Account: "Revenue:Food", Months: 6})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		again, err := svc.Solve(ctx, analyst, SolveRequest{Scenario: "2025:Base", TargetEBITDA: 250000})
		require.NoError(t, err)
		assert.Equal(t, first, again)

		fcAgain, err := svc.Forecast(ctx, ForecastRequest{Year: 2024, Account: "Revenue:Food", Months: 6})
		require.NoError(t, err)
		assert.Equal(t, fc, fcAgain)
	}
}

func BenchmarkSolveGrid(b *testing.B) {
	svc, _ := seeded(b)
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := svc.Solve(ctx, analyst, SolveRequest{Scenario: "2025:Base", TargetEBITDA: 250000}); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSolveBisection(b *testing.B) {
	svc, _ := seeded(b)
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := svc.Solve(ctx, analyst, SolveRequest{Scenario: "2025:Base", TargetEBITDA: 250000, Method: "bisection"})
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkForecastARIMA(b *testing.B) {
	svc, _ := seeded(b)
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := svc.Forecast(ctx, ForecastRequest{Year: 2024, Account: "Revenue:Food", Months: 12}); err != nil {
			b.Fatal(err)
		}
	}
}
