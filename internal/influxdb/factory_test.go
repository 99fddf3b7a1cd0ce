package influxdb

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/eagine-core/log-server/internal/logging"
)

func TestStreamSinkEncodesMessageAsLineProtocol(t *testing.T) {
	f := New(Config{URL: "http://unused"})
	sink := f.MakeSink()

	ok := sink.Consume(logging.Event{Kind: logging.EventMessage, Message: logging.Message{
		Offset:   1.5,
		Source:   logging.MakeID("app"),
		Severity: logging.Info,
		Instance: 7,
	}})
	if !ok {
		t.Fatalf("Consume() = false, want true (influxdb sink never signals backpressure)")
	}

	f.mu.Lock()
	body := f.pending.String()
	f.mu.Unlock()

	if !strings.HasPrefix(body, "log_message,") {
		t.Fatalf("body = %q, want log_message measurement", body)
	}
	if !strings.Contains(body, "source=app") || !strings.Contains(body, "severity=info") {
		t.Fatalf("body = %q, missing expected tags", body)
	}
	if !strings.Contains(body, "instance=7i") {
		t.Fatalf("body = %q, missing instance field", body)
	}
}

func TestStreamSinkEncodesAggregate(t *testing.T) {
	f := New(Config{URL: "http://unused"})
	sink := f.MakeSink()

	sink.Consume(logging.Event{Kind: logging.EventAggregate, Aggregate: logging.Aggregate{
		Tag: logging.MakeID("frame"), Count: 4, DurationSum: 400, Min: 50, Max: 150,
	}})

	f.mu.Lock()
	body := f.pending.String()
	f.mu.Unlock()

	if !strings.HasPrefix(body, "log_interval,") {
		t.Fatalf("body = %q, want log_interval measurement", body)
	}
	if !strings.Contains(body, "count=4i") || !strings.Contains(body, "sum=400i") {
		t.Fatalf("body = %q, missing count/sum fields", body)
	}
}

func TestUpdateFlushesPendingPointsInOnePOST(t *testing.T) {
	var mu sync.Mutex
	var gotBody string
	var gotAuthUser string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		user, _, _ := r.BasicAuth()
		mu.Lock()
		gotBody = string(b)
		gotAuthUser = user
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	f := New(Config{URL: srv.URL, Username: "u", Password: "p"})
	sink := f.MakeSink()
	sink.Consume(logging.Event{Kind: logging.EventMessage, Message: logging.Message{Source: logging.MakeID("a")}})
	sink.Consume(logging.Event{Kind: logging.EventMessage, Message: logging.Message{Source: logging.MakeID("b")}})

	if err := f.Update(); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if strings.Count(gotBody, "log_message") != 2 {
		t.Fatalf("body = %q, want 2 batched points", gotBody)
	}
	if gotAuthUser != "u" {
		t.Fatalf("basic auth user = %q, want %q", gotAuthUser, "u")
	}

	f.mu.Lock()
	pendingAfter := f.pending.Len()
	f.mu.Unlock()
	if pendingAfter != 0 {
		t.Fatalf("pending buffer not cleared after a successful flush, len = %d", pendingAfter)
	}
}

func TestUpdateWithNothingPendingDoesNotPOST(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	f := New(Config{URL: srv.URL})
	if err := f.Update(); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if called {
		t.Fatalf("Update() made a request with nothing pending")
	}
}

func TestUpdateSurfacesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := New(Config{URL: srv.URL})
	f.MakeSink().Consume(logging.Event{Kind: logging.EventMessage})
	if err := f.Update(); err == nil {
		t.Fatalf("Update() error = nil, want an error for a 500 response")
	}
}

func TestEscapeTag(t *testing.T) {
	got := escapeTag("a b,c=d")
	want := `a\ b\,c\=d`
	if got != want {
		t.Fatalf("escapeTag() = %q, want %q", got, want)
	}
}
