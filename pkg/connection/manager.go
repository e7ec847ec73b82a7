// Package connection keeps the console linked to the robot: lazy
// (re)connection, the periodic command send and routing of inbound frames to
// the DoF registry.
package connection

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/open-teleop/console/pkg/dof"
	customlog "github.com/open-teleop/console/pkg/log"
	"github.com/open-teleop/console/pkg/processing"
	"github.com/open-teleop/console/pkg/wire"
)

// DefaultSendPeriod is the period of the command timer.
const DefaultSendPeriod = time.Second

// ErrNotOpen is returned by Send when the frame was dropped because no open
// channel exists.
var ErrNotOpen = errors.New("no open connection")

// Registry is the part of the DoF registry the manager reads and feeds.
type Registry interface {
	Commands() [dof.Count]float64
	ApplyObserved(values []float64)
}

// TimerStarter starts a repeating timer calling tick every period and returns
// a function that stops it.
type TimerStarter func(period time.Duration, tick func()) (stop func())

// Manager owns the robot channel and the periodic send timer. Every method
// must be called from the goroutine draining the Poster; channel events are
// re-posted there.
type Manager struct {
	logger   customlog.Logger
	registry Registry
	dialer   Dialer
	poster   Poster
	address  string
	period   time.Duration

	channel    Channel
	generation uint64
	connected  bool

	startTimer TimerStarter
	stopTimer  func()

	now       func() time.Time
	origin    time.Time
	hasOrigin bool
}

var _ dof.CommandSender = (*Manager)(nil)

// NewManager creates a disconnected manager. A non-positive period selects
// DefaultSendPeriod.
func NewManager(
	address string,
	period time.Duration,
	registry Registry,
	dialer Dialer,
	poster Poster,
	logger customlog.Logger,
) *Manager {
	if period <= 0 {
		period = DefaultSendPeriod
	}
	return &Manager{
		logger:     logger,
		registry:   registry,
		dialer:     dialer,
		poster:     poster,
		address:    address,
		period:     period,
		startTimer: tickerTimer,
		now:        time.Now,
	}
}

// SetClock replaces the wall clock.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// SetTimerStarter replaces the periodic timer implementation.
func (m *Manager) SetTimerStarter(ts TimerStarter) {
	m.startTimer = ts
}

// Address returns the address used for the next dial.
func (m *Manager) Address() string {
	return m.address
}

// SetAddress changes the address used for the next dial. An existing channel
// is kept until it closes.
func (m *Manager) SetAddress(address string) {
	if address == m.address {
		return
	}
	m.logger.Infof("Peer address set to %s", address)
	m.address = address
}

// Connected reports whether the link is believed to be live.
func (m *Manager) Connected() bool {
	return m.connected
}

// TimerActive reports whether the periodic send has been started.
func (m *Manager) TimerActive() bool {
	return m.stopTimer != nil
}

// EnsureConnected dials a new channel when none exists or the current one
// is closed.
func (m *Manager) EnsureConnected() {
	if m.channel != nil && m.channel.State() != Closed {
		return
	}
	m.generation++
	m.logger.Debugf("Dialing %s", m.address)
	m.channel = m.dialer.Dial(m.address, &channelEvents{m: m, generation: m.generation})
}

// EnsurePeriodicSend starts the command timer if it is not running. Once
// started it is never restarted.
func (m *Manager) EnsurePeriodicSend() {
	if m.stopTimer != nil {
		return
	}
	m.logger.Debugf("Starting periodic send every %s", m.period)
	m.stopTimer = m.startTimer(m.period, func() {
		m.poster.Post(m.Tick)
	})
}

// Send transmits frame if the channel is open, otherwise drops it. It makes
// sure a connection attempt and the periodic timer are under way either way.
func (m *Manager) Send(frame string) error {
	m.EnsureConnected()
	m.EnsurePeriodicSend()

	if m.channel == nil || m.channel.State() != Open {
		m.logger.Warnf("No connection. Attempting to reconnect... (> %s)", frame)
		return ErrNotOpen
	}
	if err := m.channel.Send(frame); err != nil {
		m.logger.Warnf("Failed to send frame: %v", err)
		return fmt.Errorf("send frame: %w", err)
	}
	m.logger.Infof("> %s", frame)
	return nil
}

// Tick sends the full command vector. The first tick fixes the time origin.
func (m *Manager) Tick() {
	if !m.hasOrigin {
		m.origin = m.now()
		m.hasOrigin = true
	}
	_ = m.Send(m.commandFrame())
}

// SendCommand sends the command vector outside the timer. Before the first
// tick the elapsed time is reported as 0.
func (m *Manager) SendCommand() {
	_ = m.Send(m.commandFrame())
}

// Reconnect is the operator's connect action: optionally switch address,
// then send a marker frame which dials if needed.
func (m *Manager) Reconnect(address string) error {
	if address != "" {
		m.SetAddress(address)
	}
	return m.Send("Reconnect")
}

// Close stops the timer and closes the channel. Used at process shutdown.
func (m *Manager) Close() {
	if m.stopTimer != nil {
		m.stopTimer()
	}
	if m.channel != nil {
		if err := m.channel.Close(); err != nil {
			m.logger.Debugf("Closing channel: %v", err)
		}
	}
	m.generation++
	m.connected = false
}

func (m *Manager) commandFrame() string {
	var elapsed int64
	if m.hasOrigin {
		elapsed = m.now().Sub(m.origin).Milliseconds()
	}
	values := m.registry.Commands()
	return wire.EncodeCommand(values[:], elapsed)
}

func (m *Manager) handleOpen() {
	if ch := m.channel; ch != nil {
		if err := ch.Send(wire.Greeting(m.now())); err != nil {
			m.logger.Warnf("Failed to send greeting: %v", err)
		}
	}
	m.logger.Infof("Connected to %s", m.address)
	m.connected = true
}

func (m *Manager) handleError(err error) {
	m.logger.Warnf("An error occurred: %v", err)
	m.connected = false
}

func (m *Manager) handleMessage(frame string) {
	m.logger.Infof("< Got %s", frame)
	m.connected = true
	obs, err := wire.DecodeObservation(frame)
	if err != nil {
		m.logger.Warnf("Wrong format '%s': %v", frame, err)
		return
	}
	m.registry.ApplyObserved(obs.Values)
}

func (m *Manager) handleClose() {
	if m.connected {
		m.logger.Infof("Disconnected from %s", m.address)
	}
	m.connected = false
}

// channelEvents re-posts the events of one channel onto the manager's
// goroutine, dropping them once the channel has been replaced.
type channelEvents struct {
	m          *Manager
	generation uint64
}

func (e *channelEvents) post(fn func()) {
	e.m.poster.Post(func() {
		if e.generation != e.m.generation {
			return
		}
		fn()
	})
}

func (e *channelEvents) OnOpen()                { e.post(e.m.handleOpen) }
func (e *channelEvents) OnError(err error)      { e.post(func() { e.m.handleError(err) }) }
func (e *channelEvents) OnMessage(frame string) { e.post(func() { e.m.handleMessage(frame) }) }
func (e *channelEvents) OnClose()               { e.post(e.m.handleClose) }

func tickerTimer(period time.Duration, tick func()) func() {
	ticker := time.NewTicker(period)
	done := make(chan struct{})
	var once sync.Once
	go func() {
		for {
			select {
			case <-ticker.C:
				tick()
			case <-done:
				return
			}
		}
	}()
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}

var _ Poster = (*processing.EventLoop)(nil)
