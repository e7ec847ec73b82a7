package diagnostic

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/open-teleop/console/domain/teleop"
	customlog "github.com/open-teleop/console/pkg/log"
	"github.com/open-teleop/console/pkg/processing"
)

type fakeState struct {
	state teleop.State
	err   error
}

func (f *fakeState) State(ctx context.Context) (teleop.State, error) {
	return f.state, f.err
}

type fixedClients int

func (n fixedClients) ClientCount() int { return int(n) }

func newLoop(t *testing.T) *processing.EventLoop {
	t.Helper()
	l, _ := test.NewNullLogger()
	loop := processing.NewEventLoop("console", 8, customlog.NewFromLogrus(l))
	loop.Start()
	t.Cleanup(loop.Stop)
	return loop
}

func TestCollect(t *testing.T) {
	loop := newLoop(t)
	if err := loop.Do(context.Background(), func() error { return nil }); err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	state := &fakeState{state: teleop.State{Address: "ws://robot:81", Connected: true, TimerActive: true}}
	svc := NewDiagnosticService(loop, state, fixedClients(2))

	m := svc.Collect(context.Background())
	if m.Loop.Name != "console" || !m.Loop.Running || m.Loop.QueueCapacity != 8 {
		t.Errorf("Unexpected loop status %+v", m.Loop)
	}
	if m.Loop.Processed < 1 {
		t.Errorf("Expected processed tasks to be counted, got %d", m.Loop.Processed)
	}
	if m.Link != (LinkStatus{Address: "ws://robot:81", Connected: true, TimerActive: true}) {
		t.Errorf("Unexpected link status %+v", m.Link)
	}
	if m.Clients != 2 {
		t.Errorf("Expected 2 clients, got %d", m.Clients)
	}
	if svc.GetMetrics().Timestamp != m.Timestamp {
		t.Errorf("Expected GetMetrics to return the last snapshot")
	}
}

func TestCollectKeepsLastLinkOnError(t *testing.T) {
	loop := newLoop(t)
	state := &fakeState{state: teleop.State{Address: "ws://robot:81", Connected: true}}
	svc := NewDiagnosticService(loop, state, nil)
	svc.Collect(context.Background())

	state.err = errors.New("console busy")
	m := svc.Collect(context.Background())
	if m.LinkError != "console busy" {
		t.Errorf("Expected link error to be reported, got %q", m.LinkError)
	}
	if !m.Link.Connected || m.Link.Address != "ws://robot:81" {
		t.Errorf("Expected previous link status to be kept, got %+v", m.Link)
	}
}

func TestGetMetricsHandler(t *testing.T) {
	svc := NewDiagnosticService(newLoop(t), &fakeState{}, fixedClients(0))
	app := fiber.New()
	app.Get("/api/v1/diagnostics", svc.GetMetricsHandler)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/diagnostics", nil))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	var got struct {
		Status  string         `json:"status"`
		Metrics ConsoleMetrics `json:"metrics"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("Decoding response failed: %v", err)
	}
	if got.Status != "success" || got.Metrics.Loop.Name != "console" {
		t.Errorf("Unexpected response %s", body)
	}
}
