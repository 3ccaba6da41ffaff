package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	boom := errors.New("boom")

	require.NoError(t, m.Track("overdue_sweep").End(nil))
	require.ErrorIs(t, m.Track("overdue_sweep").End(boom), boom)

	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("overdue_sweep", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("overdue_sweep", "failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("overdue_sweep")))
}

func TestDeliveryAndOverdueCounters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddDelivery("finance", true)
	m.AddDelivery("finance", false)
	m.AddOverdue(3)
	m.AddOverdue(0)

	require.Equal(t, 1.0, testutil.ToFloat64(m.deliveries.WithLabelValues("finance", "failed")))
	require.Equal(t, 3.0, testutil.ToFloat64(m.overdue))

	var nilMetrics *Metrics
	nilMetrics.AddOverdue(1)
	require.NoError(t, nilMetrics.Track("x").End(nil))
}
