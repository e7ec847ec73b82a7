// Package processing runs the console's single-threaded event loop. Every
// mutation of widget, registry and connection state is posted here so that
// pointer input, inbound frames and timer ticks are applied strictly in
// arrival order.
package processing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	customlog "github.com/open-teleop/console/pkg/log"
)

// ErrLoopStopped is returned by Do when the loop is not running.
var ErrLoopStopped = errors.New("event loop not running")

// ErrQueueFull is returned by Do when the task could not be queued.
var ErrQueueFull = errors.New("event loop queue is full")

// Task is a unit of work run on the loop goroutine.
type Task func()

// EventLoop is a one-worker ordered queue.
type EventLoop struct {
	name      string
	logger    customlog.Logger
	queue     chan Task
	queueSize int
	running   bool
	wg        sync.WaitGroup
	mu        sync.Mutex
	metrics   *LoopMetrics
}

// LoopMetrics tracks metrics for an event loop
type LoopMetrics struct {
	ProcessedCount    int64
	PanicCount        int64
	QueuedCount       int64
	DroppedCount      int64
	LastProcessedTime int64
	ProcessingTimeAvg int64 // in microseconds
	ProcessingTimeMax int64 // in microseconds
	mu                sync.Mutex
}

// NewEventLoop creates a new, stopped event loop
func NewEventLoop(name string, queueSize int, logger customlog.Logger) *EventLoop {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &EventLoop{
		name:      name,
		queueSize: queueSize,
		logger:    logger,
		queue:     make(chan Task, queueSize),
		metrics:   &LoopMetrics{},
	}
}

// Post queues task without waiting for it to run. It returns false when the
// loop is stopped or the queue is full.
func (l *EventLoop) Post(task Task) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.running {
		l.logger.Warnf("%s loop not running, discarding task", l.name)
		return false
	}

	l.metrics.mu.Lock()
	l.metrics.QueuedCount++
	l.metrics.mu.Unlock()

	select {
	case l.queue <- task:
		return true
	default:
		l.metrics.mu.Lock()
		l.metrics.DroppedCount++
		l.metrics.mu.Unlock()
		l.logger.Warnf("%s loop queue is full, discarding task", l.name)
		return false
	}
}

// Do runs fn on the loop and waits for it to finish or for ctx to be done.
func (l *EventLoop) Do(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	l.mu.Lock()
	running := l.running
	l.mu.Unlock()
	if !running {
		return ErrLoopStopped
	}
	if !l.Post(func() { done <- fn() }) {
		return ErrQueueFull
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start starts the loop goroutine
func (l *EventLoop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return
	}
	if l.queue == nil {
		l.queue = make(chan Task, l.queueSize)
	}

	l.running = true
	l.logger.Infof("Starting %s event loop", l.name)

	l.wg.Add(1)
	go l.run(l.queue)
}

// Stop drains queued tasks and waits for the loop goroutine to exit
func (l *EventLoop) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	close(l.queue)
	l.queue = nil
	l.mu.Unlock()

	l.logger.Infof("Stopping %s event loop", l.name)
	l.wg.Wait()
	l.logger.Infof("%s event loop stopped", l.name)

	l.logMetrics()
}

// Running reports whether the loop accepts tasks.
func (l *EventLoop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

func (l *EventLoop) run(queue chan Task) {
	defer l.wg.Done()

	l.logger.Debugf("%s loop started", l.name)
	for task := range queue {
		startTime := time.Now()
		panicked := l.runTask(task)
		processingTime := time.Since(startTime).Microseconds()

		l.metrics.mu.Lock()
		l.metrics.ProcessedCount++
		l.metrics.LastProcessedTime = time.Now().UnixNano()
		if l.metrics.ProcessingTimeAvg == 0 {
			l.metrics.ProcessingTimeAvg = processingTime
		} else {
			// Simple moving average
			l.metrics.ProcessingTimeAvg = (l.metrics.ProcessingTimeAvg + processingTime) / 2
		}
		if processingTime > l.metrics.ProcessingTimeMax {
			l.metrics.ProcessingTimeMax = processingTime
		}
		if panicked {
			l.metrics.PanicCount++
		}
		l.metrics.mu.Unlock()
	}
	l.logger.Debugf("%s loop stopped", l.name)
}

// runTask keeps one failing handler from taking the loop down.
func (l *EventLoop) runTask(task Task) (panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			l.logger.Errorf("%s loop task panicked: %v", l.name, fmt.Sprint(r))
		}
	}()
	task()
	return false
}

// GetMetrics returns a copy of the current metrics
func (l *EventLoop) GetMetrics() LoopMetrics {
	l.metrics.mu.Lock()
	defer l.metrics.mu.Unlock()

	return LoopMetrics{
		ProcessedCount:    l.metrics.ProcessedCount,
		PanicCount:        l.metrics.PanicCount,
		QueuedCount:       l.metrics.QueuedCount,
		DroppedCount:      l.metrics.DroppedCount,
		LastProcessedTime: l.metrics.LastProcessedTime,
		ProcessingTimeAvg: l.metrics.ProcessingTimeAvg,
		ProcessingTimeMax: l.metrics.ProcessingTimeMax,
	}
}

func (l *EventLoop) logMetrics() {
	metrics := l.GetMetrics()

	l.logger.Infof("%s loop metrics: processed=%d, dropped=%d, panics=%d, avg_time=%dµs, max_time=%dµs",
		l.name, metrics.ProcessedCount, metrics.DroppedCount, metrics.PanicCount,
		metrics.ProcessingTimeAvg, metrics.ProcessingTimeMax)
}

// GetName returns the loop name
func (l *EventLoop) GetName() string {
	return l.name
}

// GetQueueLength returns the number of tasks waiting to run
func (l *EventLoop) GetQueueLength() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// GetQueueCapacity returns the capacity of the task queue
func (l *EventLoop) GetQueueCapacity() int {
	return l.queueSize
}
