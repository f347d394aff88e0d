package mirror

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordCycles(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	f := newFixture(t, WithMetrics(m))
	f.standardLog()

	f.sync()
	f.log.AddMember("2000", "d", t0.Add(time.Minute))
	f.clock.Advance(time.Hour)
	f.sync()

	assert.Equal(t, 1.0, promtest.ToFloat64(m.cycles.WithLabelValues("bootstrap", "ok")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.cycles.WithLabelValues("incremental", "ok")))
	assert.Equal(t, 3.0, promtest.ToFloat64(m.pages.WithLabelValues("mirrored")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.pages.WithLabelValues("skipped")))
	assert.Equal(t, 4.0, promtest.ToFloat64(m.members))
	assert.Equal(t, 2.0, promtest.ToFloat64(m.relations))
	assert.Equal(t, float64(t0.Add(time.Hour).Unix()), promtest.ToFloat64(m.cursor))

	// one histogram series per mode
	count, err := promtest.GatherAndCount(reg, "ldesmirror_sync_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMetrics_RecordErrors(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	f := newFixture(t, WithMetrics(m))

	_, err := f.engine.Synchronize(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1.0, promtest.ToFloat64(m.cycles.WithLabelValues("bootstrap", "error")))
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	m.observe(&Report{}, nil)
	m.setRelations(3)
}
