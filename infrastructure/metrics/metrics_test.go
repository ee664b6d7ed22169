package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"page_objects/application/wait"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ wait.Observer = (*PollMetrics)(nil)

func TestPollMetricsCountsOutcomes(t *testing.T) {
	m := NewPollMetrics()
	m.Satisfied("a", 1, time.Millisecond)
	m.Satisfied("b", 3, 20*time.Millisecond)
	m.TimedOut("c", 10, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.polls.WithLabelValues(OutcomeSatisfied)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.polls.WithLabelValues(OutcomeTimedOut)))
	assert.Equal(t, 2, testutil.CollectAndCount(m.attempts))
}

func TestPollMetricsHandler(t *testing.T) {
	m := NewPollMetrics()
	m.TimedOut("x", 2, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `page_objects_poll_total{outcome="timed_out"} 1`), body)
}
