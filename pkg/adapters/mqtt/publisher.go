// Package mqtt streams interpreter lifecycle events to an MQTT broker.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/aretw0/roboflow/internal/logging"
	"github.com/aretw0/roboflow/pkg/domain"
)

// DefaultTopicPrefix is the root of every published topic.
const DefaultTopicPrefix = "roboflow"

// ErrPublishTimeout is returned when the broker does not acknowledge in time.
var ErrPublishTimeout = errors.New("mqtt publish timeout")

// Publisher publishes events as JSON to <prefix>/runs/<run_id>/<event_type>.
type Publisher struct {
	client  paho.Client
	prefix  string
	qos     byte
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithTopicPrefix sets the topic root.
func WithTopicPrefix(prefix string) Option {
	return func(p *Publisher) {
		p.prefix = prefix
	}
}

// WithQoS sets the MQTT quality of service (0, 1 or 2).
func WithQoS(qos byte) Option {
	return func(p *Publisher) {
		p.qos = qos
	}
}

// WithTimeout bounds the wait for each publish acknowledgement.
func WithTimeout(d time.Duration) Option {
	return func(p *Publisher) {
		p.timeout = d
	}
}

// WithLogger sets the logger for publish failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher wraps a connected client.
func NewPublisher(client paho.Client, opts ...Option) *Publisher {
	p := &Publisher{
		client:  client,
		prefix:  DefaultTopicPrefix,
		qos:     1,
		timeout: 5 * time.Second,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Dial connects to brokerURL (e.g. tcp://localhost:1883) with automatic reconnects.
func Dial(brokerURL, clientID string) (paho.Client, error) {
	opts := paho.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(false).
		SetKeepAlive(30 * time.Second)

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect to %s: timeout", brokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", brokerURL, err)
	}
	return client, nil
}

// Topic returns the topic an event of type t for run runID is published to.
func (p *Publisher) Topic(runID string, t domain.EventType) string {
	return fmt.Sprintf("%s/runs/%s/%s", p.prefix, runID, t)
}

// Publish sends one event.
func (p *Publisher) Publish(runID string, t domain.EventType, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", t, err)
	}
	token := p.client.Publish(p.Topic(runID, t), p.qos, false, payload)
	if !token.WaitTimeout(p.timeout) {
		return ErrPublishTimeout
	}
	return token.Error()
}

func (p *Publisher) publish(ctx context.Context, base domain.EventBase, event any) {
	if err := p.Publish(base.RunID, base.Type, event); err != nil {
		p.logger.WarnContext(ctx, "failed to publish event", "run_id", base.RunID, "type", base.Type, "err", err)
	}
}

// Hooks returns lifecycle hooks that publish every event.
// Publish failures are logged and never abort the run.
func (p *Publisher) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStateEnter:   func(ctx context.Context, e *domain.StateEvent) { p.publish(ctx, e.EventBase, e) },
		OnStateLeave:   func(ctx context.Context, e *domain.StateEvent) { p.publish(ctx, e.EventBase, e) },
		OnActionCall:   func(ctx context.Context, e *domain.ActionEvent) { p.publish(ctx, e.EventBase, e) },
		OnActionReturn: func(ctx context.Context, e *domain.ActionEvent) { p.publish(ctx, e.EventBase, e) },
		OnGuard:        func(ctx context.Context, e *domain.GuardEvent) { p.publish(ctx, e.EventBase, e) },
		OnRunFinish:    func(ctx context.Context, e *domain.RunEvent) { p.publish(ctx, e.EventBase, e) },
	}
}
