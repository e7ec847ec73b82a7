// Package diagnostic reports the health of a running console.
package diagnostic

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/open-teleop/console/domain/teleop"
	"github.com/open-teleop/console/pkg/processing"
)

// LoopStatus describes the console event loop.
type LoopStatus struct {
	Name          string `json:"name"`
	Running       bool   `json:"running"`
	Processed     int64  `json:"processed"`
	Dropped       int64  `json:"dropped"`
	Panics        int64  `json:"panics"`
	QueueLength   int    `json:"queue_length"`
	QueueCapacity int    `json:"queue_capacity"`
	AvgTaskMicros int64  `json:"avg_task_us"`
	MaxTaskMicros int64  `json:"max_task_us"`
}

// LinkStatus describes the robot connection.
type LinkStatus struct {
	Address     string `json:"address"`
	Connected   bool   `json:"connected"`
	TimerActive bool   `json:"timer_active"`
}

// ConsoleMetrics represents console diagnostics information
type ConsoleMetrics struct {
	Timestamp     time.Time  `json:"timestamp"`
	UptimeSeconds float64    `json:"uptime_seconds"`
	Loop          LoopStatus `json:"loop"`
	Link          LinkStatus `json:"link"`
	LinkError     string     `json:"link_error,omitempty"`
	Clients       int        `json:"clients"`
}

// LoopSource is the event loop as seen by diagnostics.
type LoopSource interface {
	GetName() string
	Running() bool
	GetMetrics() processing.LoopMetrics
	GetQueueLength() int
	GetQueueCapacity() int
}

// StateSource provides the link status.
type StateSource interface {
	State(ctx context.Context) (teleop.State, error)
}

// ClientCounter reports how many browser clients are attached.
type ClientCounter interface {
	ClientCount() int
}

// DiagnosticService collects console diagnostics on demand
type DiagnosticService struct {
	mu      sync.RWMutex
	started time.Time
	loop    LoopSource
	state   StateSource
	clients ClientCounter
	timeout time.Duration
	last    ConsoleMetrics
}

// NewDiagnosticService creates a new diagnostic service instance. clients
// may be nil.
func NewDiagnosticService(loop LoopSource, state StateSource, clients ClientCounter) *DiagnosticService {
	return &DiagnosticService{
		started: time.Now(),
		loop:    loop,
		state:   state,
		clients: clients,
		timeout: time.Second,
	}
}

// Collect gathers a fresh snapshot. A busy event loop leaves the previous
// link status in place and records the error.
func (s *DiagnosticService) Collect(ctx context.Context) ConsoleMetrics {
	now := time.Now()
	m := s.loop.GetMetrics()

	s.mu.RLock()
	metrics := s.last
	s.mu.RUnlock()

	metrics.Timestamp = now
	metrics.UptimeSeconds = now.Sub(s.started).Seconds()
	metrics.Loop = LoopStatus{
		Name:          s.loop.GetName(),
		Running:       s.loop.Running(),
		Processed:     m.ProcessedCount,
		Dropped:       m.DroppedCount,
		Panics:        m.PanicCount,
		QueueLength:   s.loop.GetQueueLength(),
		QueueCapacity: s.loop.GetQueueCapacity(),
		AvgTaskMicros: m.ProcessingTimeAvg,
		MaxTaskMicros: m.ProcessingTimeMax,
	}
	if s.clients != nil {
		metrics.Clients = s.clients.ClientCount()
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if st, err := s.state.State(ctx); err != nil {
		metrics.LinkError = err.Error()
	} else {
		metrics.LinkError = ""
		metrics.Link = LinkStatus{
			Address:     st.Address,
			Connected:   st.Connected,
			TimerActive: st.TimerActive,
		}
	}

	s.mu.Lock()
	s.last = metrics
	s.mu.Unlock()
	return metrics
}

// GetMetrics returns the most recently collected metrics
func (s *DiagnosticService) GetMetrics() ConsoleMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// GetMetricsHandler handles API requests for console metrics
func (s *DiagnosticService) GetMetricsHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "success",
		"metrics": s.Collect(c.UserContext()),
	})
}
