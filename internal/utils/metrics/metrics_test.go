package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordConnectAttempt(false)
	c.RecordConnectAttempt(true)
	c.RecordConnectAttempt(true)
	c.RecordPoolQuoteFailure()
	c.RecordPrepareFailure("QUOTING")
	c.RecordExecution("confirmed")
	c.ObserveConfirmation(3 * time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.connectAttempts.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.connectAttempts.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.poolQuoteFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.prepareFailures.WithLabelValues("QUOTING")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordConnectAttempt(true)
		c.RecordQuote(false)
		c.ObserveCandidates(3)
		c.ObserveConfirmation(time.Second)
	})
}
