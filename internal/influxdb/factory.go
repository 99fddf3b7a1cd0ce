// Package influxdb is a deliberately minimal InfluxDB sink: it encodes
// aggregate and message events as line-protocol points and POSTs them to
// an InfluxDB HTTP write endpoint. The example pack carries no InfluxDB
// client library, so this uses stdlib net/http directly, matching the
// original implementation's own scaffolding-only treatment of this sink
// (an Open Question the spec leaves unresolved, see DESIGN.md).
package influxdb

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/eagine-core/log-server/internal/logging"
	"github.com/eagine-core/log-server/internal/sinkfactory"
)

// Config holds connection parameters for the write endpoint.
type Config struct {
	URL      string // e.g. http://localhost:8086/write?db=eagine_log
	Username string
	Password string
	Timeout  time.Duration
}

// Factory batches line-protocol points from all of its streams in one
// shared buffer and flushes them to the
// configured InfluxDB endpoint on Update, so individual Consume calls never
// block on network I/O (spec.md §4.5, §5).
type Factory struct {
	cfg    Config
	client *http.Client

	mu      sync.Mutex
	pending bytes.Buffer
}

// New builds a Factory posting to cfg.URL.
func New(cfg Config) *Factory {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Factory{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

func (f *Factory) Name() string { return "influxdb" }

func (f *Factory) MakeSink() sinkfactory.Sink {
	return &streamSink{factory: f}
}

// Update flushes any buffered points in one HTTP POST. It is non-blocking
// up to cfg.Timeout; a failed flush leaves no data loss signal beyond a
// returned error, since line-protocol points already accepted by Consume
// are not re-offered to the caller (spec.md's "deliberately minimal" scope
// for this sink, see DESIGN.md).
func (f *Factory) Update() error {
	f.mu.Lock()
	if f.pending.Len() == 0 {
		f.mu.Unlock()
		return nil
	}
	body := make([]byte, f.pending.Len())
	copy(body, f.pending.Bytes())
	f.pending.Reset()
	f.mu.Unlock()

	req, err := http.NewRequest(http.MethodPost, f.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("influxdb: build request: %w", err)
	}
	if f.cfg.Username != "" {
		req.SetBasicAuth(f.cfg.Username, f.cfg.Password)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("influxdb: write: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("influxdb: write: server returned %s", resp.Status)
	}
	return nil
}

type streamSink struct {
	factory *Factory
	root    logging.ID
}

// Consume encodes message and aggregate events as line-protocol points and
// appends them to the factory's pending batch; begin/heartbeat/finish
// carry no measurement of their own. Consume never signals backpressure
// (true always): the batch buffer absorbs bursts between Update calls.
func (s *streamSink) Consume(e logging.Event) bool {
	switch e.Kind {
	case logging.EventMessage:
		if s.root.IsZero() {
			s.root = e.Message.Source
		}
		s.factory.appendMessage(s.root, e.Message)
	case logging.EventAggregate:
		s.factory.appendAggregate(s.root, e.Aggregate)
	}
	return true
}

func (f *Factory) appendMessage(root logging.ID, m logging.Message) {
	var tags strings.Builder
	fmt.Fprintf(&tags, ",root=%s,source=%s,severity=%s", escapeTag(root.String()), escapeTag(m.Source.String()), escapeTag(m.Severity.String()))
	if !m.Tag.IsZero() {
		fmt.Fprintf(&tags, ",tag=%s", escapeTag(m.Tag.String()))
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	fmt.Fprintf(&f.pending, "log_message%s instance=%di %d\n", tags.String(), m.Instance, wireTimestamp(m.Offset))
}

func (f *Factory) appendAggregate(root logging.ID, a logging.Aggregate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fmt.Fprintf(&f.pending,
		"log_interval,root=%s,tag=%s count=%di,sum=%di,min=%di,max=%di,avg=%s\n",
		escapeTag(root.String()), escapeTag(a.Tag.String()),
		a.Count, a.DurationSum, a.Min, a.Max, strconv.FormatFloat(a.Avg(), 'f', -1, 64),
	)
}

// wireTimestamp converts a stream-relative offset in seconds to
// nanoseconds, InfluxDB line protocol's default timestamp precision.
func wireTimestamp(offsetSeconds float64) int64 {
	return int64(offsetSeconds * float64(time.Second))
}

func escapeTag(s string) string {
	r := strings.NewReplacer(" ", `\ `, ",", `\,`, "=", `\=`)
	return r.Replace(s)
}

var _ sinkfactory.Factory = (*Factory)(nil)
var _ sinkfactory.Sink = (*streamSink)(nil)
