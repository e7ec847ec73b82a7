package connection

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/open-teleop/console/pkg/dof"
	customlog "github.com/open-teleop/console/pkg/log"
	"github.com/open-teleop/console/pkg/processing"
)

// inlinePoster runs tasks immediately on the caller.
type inlinePoster struct{}

func (inlinePoster) Post(task processing.Task) bool {
	task()
	return true
}

type fakeChannel struct {
	state State
	sent  []string
	err   error
}

func (c *fakeChannel) State() State { return c.state }
func (c *fakeChannel) Close() error { c.state = Closed; return nil }
func (c *fakeChannel) Send(frame string) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, frame)
	return nil
}

type fakeDialer struct {
	addresses []string
	channels  []*fakeChannel
	events    []Events
}

func (d *fakeDialer) Dial(address string, events Events) Channel {
	ch := &fakeChannel{state: Connecting}
	d.addresses = append(d.addresses, address)
	d.channels = append(d.channels, ch)
	d.events = append(d.events, events)
	return ch
}

// open completes the handshake of the i-th dialed channel.
func (d *fakeDialer) open(i int) {
	d.channels[i].state = Open
	d.events[i].OnOpen()
}

type fakeRegistry struct {
	commands [dof.Count]float64
	observed [][]float64
}

func (r *fakeRegistry) Commands() [dof.Count]float64 { return r.commands }
func (r *fakeRegistry) ApplyObserved(values []float64) {
	r.observed = append(r.observed, values)
}

type fakeTimer struct {
	starts int
	period time.Duration
	tick   func()
}

func (f *fakeTimer) start(period time.Duration, tick func()) func() {
	f.starts++
	f.period = period
	f.tick = tick
	return func() {}
}

type fixture struct {
	m        *Manager
	dialer   *fakeDialer
	registry *fakeRegistry
	timer    *fakeTimer
	hook     *test.Hook
	now      time.Time
}

func newFixture() *fixture {
	l, hook := test.NewNullLogger()
	f := &fixture{
		dialer:   &fakeDialer{},
		registry: &fakeRegistry{},
		timer:    &fakeTimer{},
		hook:     hook,
		now:      time.UnixMilli(1700000000000),
	}
	f.m = NewManager("ws://robot.local:81", 0, f.registry, f.dialer, inlinePoster{}, customlog.NewFromLogrus(l))
	f.m.SetTimerStarter(f.timer.start)
	f.m.SetClock(func() time.Time { return f.now })
	return f
}

func TestEnsureConnectedDialsOnce(t *testing.T) {
	f := newFixture()
	f.m.EnsureConnected()
	f.dialer.open(0)
	f.m.EnsureConnected()

	if len(f.dialer.channels) != 1 {
		t.Fatalf("Expected one connection, got %d", len(f.dialer.channels))
	}
	if f.dialer.addresses[0] != "ws://robot.local:81" {
		t.Errorf("Unexpected dial address %s", f.dialer.addresses[0])
	}
}

func TestEnsureConnectedWhileConnectingDoesNotRedial(t *testing.T) {
	f := newFixture()
	f.m.EnsureConnected()
	f.m.EnsureConnected()
	if len(f.dialer.channels) != 1 {
		t.Errorf("Expected a pending connection to be reused, got %d dials", len(f.dialer.channels))
	}
}

func TestEnsureConnectedRedialsClosedChannel(t *testing.T) {
	f := newFixture()
	f.m.EnsureConnected()
	f.dialer.open(0)
	f.dialer.channels[0].state = Closed
	f.dialer.events[0].OnClose()

	f.m.SetAddress("ws://other:81")
	f.m.EnsureConnected()
	if len(f.dialer.channels) != 2 {
		t.Fatalf("Expected a redial after close, got %d dials", len(f.dialer.channels))
	}
	if f.dialer.addresses[1] != "ws://other:81" {
		t.Errorf("Expected redial to use new address, got %s", f.dialer.addresses[1])
	}
	if f.m.Connected() {
		t.Errorf("Expected disconnected after close")
	}
}

func TestGreetingOnOpen(t *testing.T) {
	f := newFixture()
	f.m.EnsureConnected()
	f.dialer.open(0)

	sent := f.dialer.channels[0].sent
	if len(sent) != 1 || sent[0] != "Connect at 1700000000000" {
		t.Errorf("Expected greeting, got %v", sent)
	}
	if !f.m.Connected() {
		t.Errorf("Expected connected after open")
	}
}

func TestSendDropsWhenNotOpen(t *testing.T) {
	f := newFixture()
	err := f.m.Send("@0,t:0")
	if !errors.Is(err, ErrNotOpen) {
		t.Fatalf("Expected ErrNotOpen, got %v", err)
	}
	if len(f.dialer.channels) != 1 {
		t.Errorf("Expected Send to start a connection attempt")
	}
	if !f.m.TimerActive() {
		t.Errorf("Expected Send to start the periodic timer")
	}
	if len(f.dialer.channels[0].sent) != 0 {
		t.Errorf("Expected frame dropped, got %v", f.dialer.channels[0].sent)
	}
	entry := f.hook.LastEntry()
	if entry == nil || entry.Level != logrus.WarnLevel || !strings.Contains(entry.Message, "No connection") {
		t.Errorf("Expected a no-connection notice, got %v", entry)
	}
}

func TestSendWhenOpen(t *testing.T) {
	f := newFixture()
	f.m.EnsureConnected()
	f.dialer.open(0)

	if err := f.m.Send("hello"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	sent := f.dialer.channels[0].sent
	if sent[len(sent)-1] != "hello" {
		t.Errorf("Expected frame transmitted, got %v", sent)
	}

	f.dialer.channels[0].err = errors.New("broken pipe")
	if err := f.m.Send("again"); err == nil {
		t.Errorf("Expected transport error to be returned")
	}
}

func TestPeriodicTimerStartsOnce(t *testing.T) {
	f := newFixture()
	f.m.EnsurePeriodicSend()
	f.m.EnsurePeriodicSend()
	_ = f.m.Send("x")

	if f.timer.starts != 1 {
		t.Errorf("Expected one timer, got %d", f.timer.starts)
	}
	if f.timer.period != DefaultSendPeriod {
		t.Errorf("Expected default period, got %s", f.timer.period)
	}
}

func TestTickEncodesElapsedSinceFirstTick(t *testing.T) {
	f := newFixture()
	f.registry.commands[dof.Forward] = 0.5
	f.registry.commands[dof.Turn] = -0.3
	f.m.EnsureConnected()
	f.dialer.open(0)
	f.m.EnsurePeriodicSend()

	f.timer.tick()
	f.now = f.now.Add(1234 * time.Millisecond)
	f.timer.tick()

	sent := f.dialer.channels[0].sent
	if len(sent) != 3 {
		t.Fatalf("Expected greeting and two ticks, got %v", sent)
	}
	if sent[1] != "@50,-30,0,0,0,0,0,0,0,0,t:0" {
		t.Errorf("Unexpected first tick frame %q", sent[1])
	}
	if sent[2] != "@50,-30,0,0,0,0,0,0,0,0,t:1234" {
		t.Errorf("Unexpected second tick frame %q", sent[2])
	}
}

func TestSendCommandBeforeOrigin(t *testing.T) {
	f := newFixture()
	f.m.EnsureConnected()
	f.dialer.open(0)
	f.now = f.now.Add(time.Hour)
	f.m.SendCommand()

	sent := f.dialer.channels[0].sent
	if sent[len(sent)-1] != "@0,0,0,0,0,0,0,0,0,0,t:0" {
		t.Errorf("Expected t:0 before the first tick, got %q", sent[len(sent)-1])
	}
}

func TestMessageRoutesToRegistry(t *testing.T) {
	f := newFixture()
	f.m.EnsureConnected()
	f.dialer.events[0].OnMessage("#50,-30,0,0,0,0,0,0,0,0")

	if len(f.registry.observed) != 1 {
		t.Fatalf("Expected one observation applied, got %d", len(f.registry.observed))
	}
	if got := f.registry.observed[0]; got[0] != 0.5 || got[1] != -0.3 {
		t.Errorf("Unexpected decoded values %v", got)
	}
	if !f.m.Connected() {
		t.Errorf("Expected inbound data to mark the link connected")
	}
}

func TestMalformedMessageRejected(t *testing.T) {
	f := newFixture()
	f.m.EnsureConnected()
	f.dialer.events[0].OnMessage("hello")

	if len(f.registry.observed) != 0 {
		t.Errorf("Expected no state change for a malformed frame")
	}
	entry := f.hook.LastEntry()
	if entry == nil || entry.Level != logrus.WarnLevel || !strings.Contains(entry.Message, "Wrong format") {
		t.Errorf("Expected a logged rejection, got %v", entry)
	}
}

func TestErrorMarksDisconnected(t *testing.T) {
	f := newFixture()
	f.m.EnsureConnected()
	f.dialer.open(0)
	f.dialer.events[0].OnError(errors.New("connection reset"))

	if f.m.Connected() {
		t.Errorf("Expected disconnected after error")
	}
}

func TestStaleChannelEventsIgnored(t *testing.T) {
	f := newFixture()
	f.m.EnsureConnected()
	f.dialer.channels[0].state = Closed
	f.m.EnsureConnected()

	f.dialer.events[0].OnMessage("#10")
	f.dialer.events[0].OnOpen()
	if len(f.registry.observed) != 0 || f.m.Connected() {
		t.Errorf("Expected events from a replaced channel to be dropped")
	}
}

func TestReconnectSwitchesAddress(t *testing.T) {
	f := newFixture()
	err := f.m.Reconnect("ws://10.0.0.2:81")
	if !errors.Is(err, ErrNotOpen) {
		t.Errorf("Expected marker frame dropped before open, got %v", err)
	}
	if f.m.Address() != "ws://10.0.0.2:81" || f.dialer.addresses[0] != "ws://10.0.0.2:81" {
		t.Errorf("Expected dial to new address, got %v", f.dialer.addresses)
	}
}

func TestCloseClosesChannel(t *testing.T) {
	f := newFixture()
	f.m.EnsureConnected()
	f.dialer.open(0)
	f.m.Close()

	if f.dialer.channels[0].state != Closed || f.m.Connected() {
		t.Errorf("Expected channel closed and manager disconnected")
	}
}
