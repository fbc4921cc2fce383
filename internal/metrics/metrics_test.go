package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ligustah/tilerip/internal/scheduler"
	"github.com/ligustah/tilerip/pkg/tile"
)

func TestCollectorCounts(t *testing.T) {
	c := NewCollector()
	c.SetPlanned(5)

	z2 := tile.ID{Z: 2, X: 1, Y: 1}
	z3 := tile.ID{Z: 3, X: 4, Y: 4}

	c.TileSkipped(z2)
	c.TileSubmitted(z2)
	c.TileSubmitted(z3)
	c.TileSubmitted(z3)
	c.TileFinished(z2, scheduler.OutcomeWritten)
	c.TileFinished(z3, scheduler.OutcomeHTTPError)

	if got := testutil.ToFloat64(c.planned); got != 5 {
		t.Errorf("planned = %v, want 5", got)
	}
	if got := testutil.ToFloat64(c.submitted.WithLabelValues("3")); got != 2 {
		t.Errorf("submitted{zoom=3} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.skipped.WithLabelValues("2")); got != 1 {
		t.Errorf("skipped{zoom=2} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.finished.WithLabelValues("3", "http_error")); got != 1 {
		t.Errorf("finished{zoom=3,outcome=http_error} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.inFlight); got != 1 {
		t.Errorf("in_flight = %v, want 1", got)
	}
}

func TestCollectorFinishBeforeSubmit(t *testing.T) {
	c := NewCollector()
	id := tile.ID{Z: 4, X: 2, Y: 7}

	c.TileFinished(id, scheduler.OutcomeWritten)
	if got := testutil.ToFloat64(c.inFlight); got != 0 {
		t.Errorf("in_flight after early finish = %v, want 0", got)
	}
	c.TileSubmitted(id)
	if got := testutil.ToFloat64(c.inFlight); got != 0 {
		t.Errorf("in_flight after late submit = %v, want 0", got)
	}
	c.TileSubmitted(id)
	if got := testutil.ToFloat64(c.inFlight); got != 1 {
		t.Errorf("in_flight = %v, want 1", got)
	}
}

func TestCollectorHandler(t *testing.T) {
	c := NewCollector()
	c.TileSubmitted(tile.ID{Z: 1})
	c.TileFinished(tile.ID{Z: 1}, scheduler.OutcomeWritten)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		`tilerip_tiles_finished_total{outcome="written",zoom="1"} 1`,
		`tilerip_tiles_submitted_total{zoom="1"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestCollectorServe(t *testing.T) {
	// Reserve a free port.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	l.Close()

	c := NewCollector()
	c.SetPlanned(42)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Serve(ctx, addr, nil) }()

	var body string
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get("http://" + addr + "/metrics")
		if err != nil {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		data, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		body = string(data)
		break
	}
	if !strings.Contains(body, "tilerip_tiles_planned 42") {
		t.Errorf("metrics output missing planned gauge:\n%s", body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
