package roundmetrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewPrometheus(reg, "test")
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordOperationAttempt(ctx, "RecordContribution", "RoundService")
	m.RecordOperationSuccess(ctx, "RecordContribution", "RoundService")
	m.RecordOperationDuration(ctx, "RecordContribution", "RoundService", 15*time.Millisecond)
	m.RecordContribution(ctx, 40)
	m.RecordContribution(ctx, 30)
	m.RecordRoundCompleted(ctx, 2)
	m.RecordConflictRetry(ctx, "ResolveActiveRound")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("RecordContribution", "RoundService", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.contributions))
	assert.Equal(t, 70.0, testutil.ToFloat64(m.contributionTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.roundsCompleted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.conflictRetries.WithLabelValues("ResolveActiveRound")))
}

func TestNewPrometheus_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheus(reg, "dup")
	require.NoError(t, err)

	_, err = NewPrometheus(reg, "dup")
	assert.Error(t, err)
}
