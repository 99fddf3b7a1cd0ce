// Package libpq is a deliberately minimal PostgreSQL sink: it persists
// message and aggregate events via prepared statements over database/sql,
// following the connect-then-prepare-statements shape used throughout the
// example pack's database code (driver swapped for lib/pq, since this is
// a PostgreSQL-specific backend per spec.md §4.5).
package libpq

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/eagine-core/log-server/internal/logging"
	"github.com/eagine-core/log-server/internal/sinkfactory"
	"github.com/eagine-core/log-server/internal/texttree"
)

// Factory owns one *sql.DB and a set of prepared statements shared by
// every stream's sink.
type Factory struct {
	db *sql.DB

	insertMessage   *sql.Stmt
	insertAggregate *sql.Stmt
}

// New opens dataSourceName (a libpq connection string), creates the log
// tables if absent, and prepares the insert statements.
func New(dataSourceName string) (*Factory, error) {
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("libpq: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("libpq: ping: %w", err)
	}
	f := &Factory{db: db}
	if err := f.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	if err := f.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}
	return f, nil
}

func (f *Factory) createTables() error {
	_, err := f.db.Exec(`
		CREATE TABLE IF NOT EXISTS log_messages (
			id BIGSERIAL PRIMARY KEY,
			root TEXT NOT NULL,
			source TEXT NOT NULL,
			tag TEXT NOT NULL DEFAULT '',
			severity TEXT NOT NULL,
			instance BIGINT NOT NULL,
			offset_seconds DOUBLE PRECISION NOT NULL,
			text TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS log_aggregates (
			id BIGSERIAL PRIMARY KEY,
			root TEXT NOT NULL,
			tag TEXT NOT NULL,
			instance BIGINT NOT NULL,
			count BIGINT NOT NULL,
			duration_sum_ns BIGINT NOT NULL,
			min_ns BIGINT NOT NULL,
			max_ns BIGINT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("libpq: create tables: %w", err)
	}
	return nil
}

func (f *Factory) prepareStatements() error {
	var err error
	f.insertMessage, err = f.db.Prepare(`
		INSERT INTO log_messages (root, source, tag, severity, instance, offset_seconds, text)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`)
	if err != nil {
		return fmt.Errorf("libpq: prepare insert message: %w", err)
	}
	f.insertAggregate, err = f.db.Prepare(`
		INSERT INTO log_aggregates (root, tag, instance, count, duration_sum_ns, min_ns, max_ns)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`)
	if err != nil {
		return fmt.Errorf("libpq: prepare insert aggregate: %w", err)
	}
	return nil
}

func (f *Factory) Name() string { return "libpq" }

func (f *Factory) MakeSink() sinkfactory.Sink {
	return &streamSink{factory: f}
}

// Update has nothing to poll: database/sql's connection pool manages
// reconnection internally, unlike the original's manual libpq
// connection-progress state machine (spec.md §4.5 names this as the
// motivating example; Go's driver model makes it unnecessary here).
func (f *Factory) Update() error { return nil }

// Close releases prepared statements and the connection pool.
func (f *Factory) Close() error {
	if f.insertMessage != nil {
		f.insertMessage.Close()
	}
	if f.insertAggregate != nil {
		f.insertAggregate.Close()
	}
	return f.db.Close()
}

type streamSink struct {
	factory *Factory
	root    logging.ID
}

// Consume persists message and aggregate events synchronously. A failed
// insert reports backpressure (false) so the owning sink.Stream retries
// it from the backlog rather than silently dropping the row.
func (s *streamSink) Consume(e logging.Event) bool {
	switch e.Kind {
	case logging.EventMessage:
		if s.root.IsZero() {
			s.root = e.Message.Source
		}
		m := e.Message
		_, err := s.factory.insertMessage.Exec(
			s.root.String(), m.Source.String(), m.Tag.String(), m.Severity.String(),
			int64(m.Instance), m.Offset, texttree.FormatMessage(m.Format, m.Args),
		)
		return err == nil
	case logging.EventAggregate:
		a := e.Aggregate
		_, err := s.factory.insertAggregate.Exec(
			s.root.String(), a.Tag.String(), int64(a.Instance),
			int64(a.Count), a.DurationSum, a.Min, a.Max,
		)
		return err == nil
	default:
		return true
	}
}

var _ sinkfactory.Factory = (*Factory)(nil)
var _ sinkfactory.Sink = (*streamSink)(nil)
