// Package metrics 导出 websocket 连接、请求与已打开库的 Prometheus 指标
package metrics

import (
	"strconv"
	"time"

	pkgapp "github.com/haierkeys/fast-library-service/pkg/app"
	pkgerrors "github.com/haierkeys/fast-library-service/pkg/errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fast_library"

// Metrics 实现 pkgapp.Observer
type Metrics struct {
	connections prometheus.Gauge
	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

var _ pkgapp.Observer = (*Metrics)(nil)

// Option 追加可选的采集项
type Option func(*[]prometheus.Collector)

func gaugeFunc(name, help string, fn func() float64) prometheus.Collector {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn)
}

// WithWorkerPool 导出后台任务池的执行中与排队任务数
func WithWorkerPool(active func() int64, queued func() int) Option {
	return func(cs *[]prometheus.Collector) {
		*cs = append(*cs,
			gaugeFunc("worker_pool_active", "Background jobs currently running.", func() float64 { return float64(active()) }),
			gaugeFunc("worker_pool_queued", "Background jobs waiting for a worker.", func() float64 { return float64(queued()) }),
		)
	}
}

// WithWriteQueues 导出当前存在的库写队列数量
func WithWriteQueues(count func() int) Option {
	return func(cs *[]prometheus.Collector) {
		*cs = append(*cs, gaugeFunc("write_queues", "Per-library write queues currently alive.", func() float64 { return float64(count()) }))
	}
}

// New 创建并注册指标，openLibraries 为空时不导出已打开库数量
func New(reg prometheus.Registerer, openLibraries func() int, opts ...Option) (*Metrics, error) {
	m := &Metrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_connections",
			Help:      "Current number of websocket connections.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Websocket requests by action, type and result.",
		}, []string{"action", "type", "result"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Websocket request handling latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action", "type"}),
	}

	collectors := []prometheus.Collector{m.connections, m.requests, m.latency}
	if openLibraries != nil {
		collectors = append(collectors, gaugeFunc("open_libraries", "Number of library databases currently open.",
			func() float64 { return float64(openLibraries()) }))
	}
	for _, opt := range opts {
		opt(&collectors)
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) ConnOpened() {
	m.connections.Inc()
}

func (m *Metrics) ConnClosed() {
	m.connections.Dec()
}

// RequestDone result 为 ok 或错误码
func (m *Metrics) RequestDone(route pkgapp.Route, err error, elapsed time.Duration) {
	result := "ok"
	if err != nil {
		result = strconv.Itoa(pkgerrors.CodeOf(err))
	}
	m.requests.WithLabelValues(route.Action, route.Type, result).Inc()
	if elapsed > 0 {
		m.latency.WithLabelValues(route.Action, route.Type).Observe(elapsed.Seconds())
	}
}
