// Package metrics holds the Prometheus collectors for both listeners: HTTP
// traffic, rate limiting, build metadata and the content pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/keithlinneman/sitepipe/internal/version"
)

var (
	httpLatencyBuckets     = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	pipelineLatencyBuckets = []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1}
)

// ServerMetrics owns a private registry. Labels stay bounded: chi route
// patterns, pipeline kinds and error types, never raw request paths.
type ServerMetrics struct {
	reg     *prometheus.Registry
	handler http.Handler

	// http
	inflight    prometheus.Gauge
	reqTotal    *prometheus.CounterVec
	reqDur      *prometheus.HistogramVec
	respBytes   *prometheus.HistogramVec
	errorsTotal *prometheus.CounterVec
	panics      prometheus.Counter
	rlDenied    prometheus.Counter
	rlCapacity  prometheus.Counter

	// process
	buildInfo       *prometheus.GaugeVec
	profilingActive prometheus.Gauge

	// pipeline
	resolutions       *prometheus.CounterVec
	resolveDur        *prometheus.HistogramVec
	privacyRejections prometheus.Counter
	pipelineErrors    *prometheus.CounterVec
	aggregationDur    prometheus.Histogram
	dataFiles         prometheus.Gauge
	contentRoot       *prometheus.GaugeVec
}

// New registers the go and process collectors plus every sitepipe metric
// on a fresh registry.
func New() *ServerMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	m := &ServerMetrics{reg: reg}

	m.inflight = f.NewGauge(prometheus.GaugeOpts{
		Name: "http_inflight_requests",
		Help: "Requests currently being served",
	})
	m.reqTotal = f.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Requests by method, route and status",
	}, []string{"method", "route", "status"})
	m.reqDur = f.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Request latency by method and route",
		Buckets: httpLatencyBuckets,
	}, []string{"method", "route"})
	m.respBytes = f.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_response_size_bytes",
		Help:    "Response body size by method and route",
		Buckets: prometheus.ExponentialBuckets(256, 4, 9),
	}, []string{"method", "route"})
	m.errorsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Name: "http_errors_total",
		Help: "5xx responses by method and route",
	}, []string{"method", "route"})
	m.panics = f.NewCounter(prometheus.CounterOpts{
		Name: "http_panic_total",
		Help: "Recovered handler panics",
	})
	m.rlDenied = f.NewCounter(prometheus.CounterOpts{
		Name: "http_requests_rate_limited_total",
		Help: "Requests rejected by the per-ip rate limiter",
	})
	m.rlCapacity = f.NewCounter(prometheus.CounterOpts{
		Name: "http_requests_rate_limited_capacity_total",
		Help: "New visitors rejected because the limiter was full",
	})

	m.buildInfo = f.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Build metadata, always 1",
	}, []string{"app", "component", "version", "commit", "commit_date", "build_id", "build_date", "vcs_dirty", "go_version"})
	m.profilingActive = f.NewGauge(prometheus.GaugeOpts{
		Name: "profiling_active",
		Help: "1 while continuous profiling is pushing, else 0",
	})

	m.resolutions = f.NewCounterVec(prometheus.CounterOpts{
		Name: "content_resolutions_total",
		Help: "Pipeline results by producing kind and status",
	}, []string{"kind", "status"})
	m.resolveDur = f.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "content_resolve_duration_seconds",
		Help:    "Pipeline latency by producing kind",
		Buckets: pipelineLatencyBuckets,
	}, []string{"kind"})
	m.privacyRejections = f.NewCounter(prometheus.CounterOpts{
		Name: "content_private_path_rejections_total",
		Help: "Paths refused for naming a private segment",
	})
	m.pipelineErrors = f.NewCounterVec(prometheus.CounterOpts{
		Name: "content_pipeline_errors_total",
		Help: "Pipeline failures by error type",
	}, []string{"type"})
	m.aggregationDur = f.NewHistogram(prometheus.HistogramOpts{
		Name:    "content_data_aggregation_duration_seconds",
		Help:    "Time to discover, load and merge the data files for one render",
		Buckets: pipelineLatencyBuckets,
	})
	m.dataFiles = f.NewGauge(prometheus.GaugeOpts{
		Name: "content_data_files",
		Help: "Data files merged by the latest aggregation",
	})
	m.contentRoot = f.NewGaugeVec(prometheus.GaugeOpts{
		Name: "content_root_info",
		Help: "Served content root, always 1",
	}, []string{"root"})

	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
	return m
}

func (m *ServerMetrics) Handler() http.Handler { return m.handler }

func (m *ServerMetrics) IncHttpPanic() { m.panics.Inc() }

func (m *ServerMetrics) IncRateLimitDenied() { m.rlDenied.Inc() }

func (m *ServerMetrics) IncRateLimitCapacity() { m.rlCapacity.Inc() }

// SetBuildInfoFromVersion is called once at startup.
func (m *ServerMetrics) SetBuildInfoFromVersion(app, component string, vi *version.Info) {
	dirty := "unknown"
	if vi.VCSDirty != nil {
		dirty = strconv.FormatBool(*vi.VCSDirty)
	}
	m.buildInfo.WithLabelValues(app, component, vi.Version, vi.Commit, vi.CommitDate,
		vi.BuildId, vi.BuildDate, dirty, vi.GoVersion).Set(1)
}

func (m *ServerMetrics) SetProfilingActive(active bool) {
	v := 0.0
	if active {
		v = 1
	}
	m.profilingActive.Set(v)
}

func (m *ServerMetrics) SetContentRoot(dir string) {
	m.contentRoot.Reset()
	m.contentRoot.WithLabelValues(dir).Set(1)
}

// ObserveResolution records one finished pipeline run.
func (m *ServerMetrics) ObserveResolution(kind string, status int, d time.Duration) {
	m.resolutions.WithLabelValues(kind, strconv.Itoa(status)).Inc()
	m.resolveDur.WithLabelValues(kind).Observe(d.Seconds())
}

func (m *ServerMetrics) IncPrivacyRejection() { m.privacyRejections.Inc() }

func (m *ServerMetrics) IncPipelineError(kind string) { m.pipelineErrors.WithLabelValues(kind).Inc() }

func (m *ServerMetrics) ObserveDataAggregation(d time.Duration, files int) {
	m.aggregationDur.Observe(d.Seconds())
	m.dataFiles.Set(float64(files))
}
