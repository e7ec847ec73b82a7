package log

import (
	"bytes"
	"sync"

	"github.com/sirupsen/logrus"
)

var _ logrus.Hook = (*OperatorLog)(nil)

// OperatorLog is a logrus hook that keeps the most recent log lines for the
// human operator and forwards each new line to subscribers (the UI log
// panel). Debug entries are not shown to the operator.
type OperatorLog struct {
	mu          sync.Mutex
	capacity    int
	lines       []string
	next        int
	full        bool
	subscribers map[int]func(line string)
	nextID      int
}

// NewOperatorLog creates a log surface holding up to capacity lines.
func NewOperatorLog(capacity int) *OperatorLog {
	if capacity <= 0 {
		capacity = 200
	}
	return &OperatorLog{
		capacity:    capacity,
		lines:       make([]string, capacity),
		subscribers: make(map[int]func(string)),
	}
}

// Levels implements logrus.Hook.
func (o *OperatorLog) Levels() []logrus.Level {
	return []logrus.Level{
		logrus.PanicLevel,
		logrus.FatalLevel,
		logrus.ErrorLevel,
		logrus.WarnLevel,
		logrus.InfoLevel,
	}
}

// Fire implements logrus.Hook.
func (o *OperatorLog) Fire(entry *logrus.Entry) error {
	var b bytes.Buffer
	b.WriteString(entry.Message)
	writeFields(&b, entry.Data)
	o.Append(b.String())
	return nil
}

// Append records a line and notifies subscribers.
func (o *OperatorLog) Append(line string) {
	o.mu.Lock()
	o.lines[o.next] = line
	o.next = (o.next + 1) % o.capacity
	if o.next == 0 {
		o.full = true
	}
	subs := make([]func(string), 0, len(o.subscribers))
	for _, fn := range o.subscribers {
		subs = append(subs, fn)
	}
	o.mu.Unlock()

	for _, fn := range subs {
		fn(line)
	}
}

// Lines returns the retained lines, oldest first.
func (o *OperatorLog) Lines() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.full {
		out := make([]string, o.next)
		copy(out, o.lines[:o.next])
		return out
	}
	out := make([]string, 0, o.capacity)
	out = append(out, o.lines[o.next:]...)
	out = append(out, o.lines[:o.next]...)
	return out
}

// Subscribe registers fn for every future line. The returned function
// removes the subscription.
func (o *OperatorLog) Subscribe(fn func(line string)) (unsubscribe func()) {
	o.mu.Lock()
	id := o.nextID
	o.nextID++
	o.subscribers[id] = fn
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		delete(o.subscribers, id)
		o.mu.Unlock()
	}
}
