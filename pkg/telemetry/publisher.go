// Package telemetry mirrors registry updates onto a ZeroMQ PUB socket as
// FlatBuffers DofSample messages, for recorders and external dashboards.
package telemetry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pebbe/zmq4"

	customlog "github.com/open-teleop/console/pkg/log"
)

// ErrPublisherClosed is returned when publishing after Close.
var ErrPublisherClosed = errors.New("telemetry publisher closed")

// MessagePublisher sends one topic-framed message.
type MessagePublisher interface {
	PublishMessage(topic string, data []byte) error
}

// Publisher owns a ZeroMQ context and a bound PUB socket.
type Publisher struct {
	ctx     *zmq4.Context
	socket  *zmq4.Socket
	logger  customlog.Logger
	running bool
	mu      sync.Mutex
}

// NewPublisher binds a PUB socket on bindAddress (e.g. "tcp://*:5560").
func NewPublisher(bindAddress string, logger customlog.Logger) (*Publisher, error) {
	ctx, err := zmq4.NewContext()
	if err != nil {
		return nil, fmt.Errorf("failed to create ZMQ context: %w", err)
	}

	socket, err := ctx.NewSocket(zmq4.PUB)
	if err != nil {
		ctx.Term()
		return nil, fmt.Errorf("failed to create PUB socket: %w", err)
	}
	if err := socket.SetLinger(0); err != nil {
		socket.Close()
		ctx.Term()
		return nil, fmt.Errorf("failed to set linger option: %w", err)
	}
	if err := socket.Bind(bindAddress); err != nil {
		socket.Close()
		ctx.Term()
		return nil, fmt.Errorf("failed to bind to %s: %w", bindAddress, err)
	}

	logger.Infof("Telemetry publisher bound on %s", bindAddress)
	return &Publisher{
		ctx:     ctx,
		socket:  socket,
		logger:  logger,
		running: true,
	}, nil
}

// PublishMessage sends topic and data as a two-part message.
func (p *Publisher) PublishMessage(topic string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return ErrPublisherClosed
	}
	if _, err := p.socket.Send(topic, zmq4.SNDMORE); err != nil {
		return fmt.Errorf("failed to send topic: %w", err)
	}
	if _, err := p.socket.SendBytes(data, 0); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// Close releases the socket and the context.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	p.running = false
	if err := p.socket.Close(); err != nil {
		p.logger.Warnf("Closing telemetry socket: %v", err)
	}
	if err := p.ctx.Term(); err != nil {
		p.logger.Warnf("Terminating ZMQ context: %v", err)
	}
	p.logger.Infof("Telemetry publisher stopped")
}
