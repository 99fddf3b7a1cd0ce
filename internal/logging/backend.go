package logging

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Backend is the process-wide internal log backend: the single place the
// rest of the pipeline logs operational events (parser errors, socket
// failures, dropped events) and records pipeline metrics. spec.md §9 asks
// for this to be "explicit init/teardown on a context object passed by
// reference rather than free-standing mutable state" — Backend is that
// object; callers construct exactly one with New and pass it down.
type Backend struct {
	log *logrus.Logger

	registry          *prometheus.Registry
	droppedEvents     prometheus.Counter
	activeStreams     prometheus.Gauge
	backlogDepth      *prometheus.GaugeVec
	dropRateLimit     sync.Mutex
	dropRateLastCount int
}

// New builds a Backend with JSON-formatted structured logging at the given
// threshold severity and a fresh Prometheus registry.
func New(threshold Severity) *Backend {
	lg := logrus.New()
	lg.SetFormatter(&logrus.JSONFormatter{})
	lg.SetLevel(toLogrusLevel(threshold))

	reg := prometheus.NewRegistry()
	b := &Backend{
		log:      lg,
		registry: reg,
		droppedEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "log_server_dropped_events_total",
			Help: "Events dropped due to out-of-memory while buffering.",
		}),
		activeStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "log_server_active_streams",
			Help: "Number of currently open producer streams.",
		}),
		backlogDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "log_server_sink_backlog_depth",
			Help: "Number of undelivered events buffered per sink factory.",
		}, []string{"factory"}),
	}
	reg.MustRegister(b.droppedEvents, b.activeStreams, b.backlogDepth)
	return b
}

// Registry exposes the Prometheus registry for an optional /metrics
// handler; the core pipeline itself never serves HTTP.
func (b *Backend) Registry() *prometheus.Registry { return b.registry }

// Logger returns the underlying structured logger for ad-hoc fields.
func (b *Backend) Logger() *logrus.Logger { return b.log }

// StreamOpened increments the active-stream gauge.
func (b *Backend) StreamOpened(streamID uint64) {
	b.activeStreams.Inc()
	b.log.WithField("stream_id", streamID).Debug("stream opened")
}

// StreamClosed decrements the active-stream gauge.
func (b *Backend) StreamClosed(streamID uint64, clean bool) {
	b.activeStreams.Dec()
	b.log.WithFields(logrus.Fields{"stream_id": streamID, "clean": clean}).Debug("stream closed")
}

// ParserError logs a parser syntax or token-too-large error (spec.md §7);
// the caller is responsible for closing the stream with finish{clean=false}.
func (b *Backend) ParserError(streamID uint64, err error) {
	b.log.WithFields(logrus.Fields{"stream_id": streamID, "error": err}).Warn("parser error")
}

// SocketError logs a reader- or writer-side socket failure.
func (b *Backend) SocketError(component string, err error) {
	b.log.WithFields(logrus.Fields{"component": component, "error": err}).Warn("socket error")
}

// BacklogDiscarded logs an unflushed backlog discarded on stream teardown.
func (b *Backend) BacklogDiscarded(streamID uint64, n int) {
	if n == 0 {
		return
	}
	b.log.WithFields(logrus.Fields{"stream_id": streamID, "discarded": n}).Warn("backlog discarded on teardown")
}

// SetBacklogDepth records a factory's current backlog depth.
func (b *Backend) SetBacklogDepth(factory string, depth int) {
	b.backlogDepth.WithLabelValues(factory).Set(float64(depth))
}

// EventDropped increments the dropped-events counter and logs at a rate
// limited cadence (spec.md §7: "Log entry (rate-limited)").
func (b *Backend) EventDropped() {
	b.droppedEvents.Inc()
	b.dropRateLimit.Lock()
	defer b.dropRateLimit.Unlock()
	b.dropRateLastCount++
	if b.dropRateLastCount == 1 || b.dropRateLastCount%100 == 0 {
		b.log.WithField("total_dropped", b.dropRateLastCount).Error("dropping event: out of memory while buffering")
	}
}

func toLogrusLevel(s Severity) logrus.Level {
	switch {
	case s <= Trace:
		return logrus.TraceLevel
	case s <= Debug:
		return logrus.DebugLevel
	case s <= Stat, s <= Info:
		return logrus.InfoLevel
	case s <= Warning:
		return logrus.WarnLevel
	case s <= Error:
		return logrus.ErrorLevel
	default:
		return logrus.FatalLevel
	}
}
