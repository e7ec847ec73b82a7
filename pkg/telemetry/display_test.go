package telemetry

import (
	"errors"
	"testing"
	"time"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/open-teleop/console/pkg/dof"
	customlog "github.com/open-teleop/console/pkg/log"
)

type message struct {
	topic string
	data  []byte
}

type recordingPublisher struct {
	messages []message
	err      error
}

func (p *recordingPublisher) PublishMessage(topic string, data []byte) error {
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, message{topic, append([]byte(nil), data...)})
	return nil
}

func TestDisplayPublishesSamples(t *testing.T) {
	l, _ := test.NewNullLogger()
	pub := &recordingPublisher{}
	d := NewDisplay(pub, "console.dof", customlog.NewFromLogrus(l))
	d.now = func() time.Time { return time.Unix(0, 42) }

	d.OnCommandChanged(dof.Pan, 0.5)
	d.OnObservedChanged(dof.LeftHand, -0.25)

	if len(pub.messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(pub.messages))
	}
	if pub.messages[0].topic != "console.dof" {
		t.Errorf("Unexpected topic %s", pub.messages[0].topic)
	}

	cmd := DecodeSample(pub.messages[0].data)
	if cmd != (Sample{Dof: dof.Pan, Value: 0.5, Observed: false, TimestampNs: 42}) {
		t.Errorf("Unexpected command sample %+v", cmd)
	}
	obs := DecodeSample(pub.messages[1].data)
	if obs != (Sample{Dof: dof.LeftHand, Value: -0.25, Observed: true, TimestampNs: 42}) {
		t.Errorf("Unexpected observed sample %+v", obs)
	}
}

func TestEncodeSampleZeroValues(t *testing.T) {
	b := flatbuffers.NewBuilder(0)
	got := DecodeSample(EncodeSample(b, Sample{}))
	if got != (Sample{}) {
		t.Errorf("Expected zero sample, got %+v", got)
	}
}

func TestDisplayLogsFirstFailureOnly(t *testing.T) {
	l, hook := test.NewNullLogger()
	pub := &recordingPublisher{err: errors.New("socket closed")}
	d := NewDisplay(pub, "console.dof", customlog.NewFromLogrus(l))

	d.OnCommandChanged(dof.Forward, 1)
	d.OnCommandChanged(dof.Forward, 0.9)
	d.OnCommandChanged(dof.Forward, 0.8)

	warnings := 0
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warnings++
		}
	}
	if warnings != 1 {
		t.Errorf("Expected 1 warning, got %d", warnings)
	}

	pub.err = nil
	d.OnCommandChanged(dof.Forward, 0.7)
	if last := hook.LastEntry(); last == nil || last.Level != logrus.InfoLevel {
		t.Errorf("Expected recovery to be logged, got %v", last)
	}
}
