package metrics

import (
	"errors"
	"testing"
	"time"

	pkgapp "github.com/haierkeys/fast-library-service/pkg/app"
	"github.com/haierkeys/fast-library-service/pkg/code"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserverCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	open := 2
	m, err := New(reg, func() int { return open })
	require.NoError(t, err)

	m.ConnOpened()
	m.ConnOpened()
	m.ConnClosed()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.connections))

	route := pkgapp.Route{Action: "get", Type: "file"}
	m.RequestDone(route, nil, time.Millisecond)
	m.RequestDone(route, code.ErrorFileNotFound.WithDetails("id 3"), time.Millisecond)
	m.RequestDone(route, errors.New("plain"), 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("get", "file", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("get", "file", "536")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("get", "file", "500")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.latency))

	n, err := testutil.GatherAndCount(reg, "fast_library_open_libraries")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg, nil)
	require.NoError(t, err)
	_, err = New(reg, nil)
	assert.Error(t, err)
}

func TestOptionalGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg, nil,
		WithWorkerPool(func() int64 { return 3 }, func() int { return 4 }),
		WithWriteQueues(func() int { return 2 }))
	require.NoError(t, err)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	got := map[string]float64{}
	for _, mf := range mfs {
		got[mf.GetName()] = mf.GetMetric()[0].GetGauge().GetValue()
	}
	assert.Equal(t, map[string]float64{
		"fast_library_websocket_connections": 0,
		"fast_library_worker_pool_active":    3,
		"fast_library_worker_pool_queued":    4,
		"fast_library_write_queues":          2,
	}, got)
}

func TestUnsupportedRouteKeepsOneSeries(t *testing.T) {
	m, err := New(prometheus.NewRegistry(), nil)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		m.RequestDone(pkgapp.UnsupportedRoute, code.ErrorUnsupportedOperation, 0)
	}
	assert.Equal(t, 1, testutil.CollectAndCount(m.requests))
	assert.Equal(t, 20.0, testutil.ToFloat64(m.requests.WithLabelValues("unsupported", "unsupported", "512")))
}
