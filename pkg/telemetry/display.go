package telemetry

import (
	"time"

	flatbuffers "github.com/google/flatbuffers/go"

	"github.com/open-teleop/console/pkg/dof"
	fbtelemetry "github.com/open-teleop/console/pkg/flatbuffers/console/telemetry"
	customlog "github.com/open-teleop/console/pkg/log"
)

var _ dof.Display = (*Display)(nil)

// Sample is a decoded DofSample.
type Sample struct {
	Dof         dof.ID
	Value       float64
	Observed    bool
	TimestampNs int64
}

// Display publishes one DofSample per registry change. It is called from the
// event loop only.
type Display struct {
	publisher MessagePublisher
	topic     string
	logger    customlog.Logger
	builder   *flatbuffers.Builder
	now       func() time.Time
	failures  int
}

// NewDisplay creates a display publishing on topic.
func NewDisplay(publisher MessagePublisher, topic string, logger customlog.Logger) *Display {
	return &Display{
		publisher: publisher,
		topic:     topic,
		logger:    logger,
		builder:   flatbuffers.NewBuilder(64),
		now:       time.Now,
	}
}

func (d *Display) OnCommandChanged(id dof.ID, value float64) {
	d.publish(id, value, fbtelemetry.SampleKindCommand)
}

func (d *Display) OnObservedChanged(id dof.ID, value float64) {
	d.publish(id, value, fbtelemetry.SampleKindObserved)
}

func (d *Display) publish(id dof.ID, value float64, kind fbtelemetry.SampleKind) {
	data := EncodeSample(d.builder, Sample{
		Dof:         id,
		Value:       value,
		Observed:    kind == fbtelemetry.SampleKindObserved,
		TimestampNs: d.now().UnixNano(),
	})
	if err := d.publisher.PublishMessage(d.topic, data); err != nil {
		// Only the first failure of a streak is logged.
		if d.failures == 0 {
			d.logger.Warnf("Failed to publish telemetry on '%s': %v", d.topic, err)
		}
		d.failures++
		return
	}
	if d.failures > 0 {
		d.logger.Infof("Telemetry publishing recovered after %d failures", d.failures)
		d.failures = 0
	}
}

// EncodeSample serializes s with b. The returned slice aliases b's buffer
// and is valid until b is reused.
func EncodeSample(b *flatbuffers.Builder, s Sample) []byte {
	kind := fbtelemetry.SampleKindCommand
	if s.Observed {
		kind = fbtelemetry.SampleKindObserved
	}
	b.Reset()
	fbtelemetry.DofSampleStart(b)
	fbtelemetry.DofSampleAddDof(b, int8(s.Dof))
	fbtelemetry.DofSampleAddValue(b, s.Value)
	fbtelemetry.DofSampleAddKind(b, kind)
	fbtelemetry.DofSampleAddTimestampNs(b, s.TimestampNs)
	fbtelemetry.FinishDofSampleBuffer(b, fbtelemetry.DofSampleEnd(b))
	return b.FinishedBytes()
}

// DecodeSample reads a DofSample buffer.
func DecodeSample(data []byte) Sample {
	msg := fbtelemetry.GetRootAsDofSample(data, 0)
	return Sample{
		Dof:         dof.ID(msg.Dof()),
		Value:       msg.Value(),
		Observed:    msg.Kind() == fbtelemetry.SampleKindObserved,
		TimestampNs: msg.TimestampNs(),
	}
}
