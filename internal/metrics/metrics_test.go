package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/prospection/autofollow/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewPrometheusRecorder(reg)

	r.TaskStarted()
	r.TaskStarted()
	r.TaskStarted()
	assert.Equal(t, 3.0, testutil.ToFloat64(r.tasksInFlight))

	r.ObserveResult(types.StatusFollow, false, 6*time.Second)
	r.ObserveResult(types.StatusFollow, false, 7*time.Second)
	r.ObserveResult(types.StatusError, true, 0)

	assert.Equal(t, 0.0, testutil.ToFloat64(r.tasksInFlight))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.resultsTotal.WithLabelValues("follow")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.resultsTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.lostTotal))
	// lost tasks have no meaningful duration
	assert.Equal(t, 1, testutil.CollectAndCount(r.taskDuration))
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewPrometheusRecorder(reg)
	r.TaskStarted()
	r.ObserveResult(types.StatusAlreadyFollowed, false, time.Second)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `autofollow_results_total{status="already followed"} 1`)
	assert.Contains(t, string(body), "autofollow_lost_tasks_total 0")
}
