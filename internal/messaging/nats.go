// Package messaging provides a NATS client wrapper for publishing battle
// and subscriber lifecycle events to other services. It handles connection
// lifecycle, subject-based subscriptions, and typed event helpers.
package messaging

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/whisper/battlewatch/internal/battle"
)

// NATS subjects published by battlewatch.
const (
	SubjectBattleStarted     = "battle.started"
	SubjectSubscriberRemoved = "subscriber.removed"
)

// SubscriberRemoved is the payload of SubjectSubscriberRemoved.
type SubscriberRemoved struct {
	Handle    string    `json:"handle"`
	Reason    string    `json:"reason"`
	RemovedAt time.Time `json:"removed_at"`
}

// conn is the subset of *nats.Conn the client uses.
type conn interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, handler nats.MsgHandler) (*nats.Subscription, error)
	Drain() error
	IsConnected() bool
}

// NATSClient wraps the NATS connection with helper methods for pub/sub.
// A nil *NATSClient is valid and publishes nothing, so callers can run
// without a broker.
type NATSClient struct {
	conn   conn
	logger *zap.Logger
	now    func() time.Time
	mu     sync.Mutex
	subs   map[string]*nats.Subscription
}

// NATSConfig holds NATS connection settings.
type NATSConfig struct {
	URL           string        // nats://localhost:4222
	Name          string        // client name for identification
	ReconnectWait time.Duration // time between reconnect attempts
	MaxReconnects int           // max reconnect attempts (-1 for infinite)
}

// DefaultNATSConfig returns sensible defaults.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           "nats://localhost:4222",
		Name:          "battlewatch",
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1, // infinite reconnects
	}
}

// NewNATSClient connects to NATS with the given config and returns a ready client.
// It returns an error if the initial connection fails.
func NewNATSClient(config NATSConfig, logger *zap.Logger) (*NATSClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("nats")

	opts := []nats.Option{
		nats.Name(config.Name),
		nats.ReconnectWait(config.ReconnectWait),
		nats.MaxReconnects(config.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("disconnected", zap.Error(err))
			} else {
				logger.Info("disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			logger.Info("connection closed")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	logger.Info("connected", zap.String("url", nc.ConnectedUrl()))

	return newClient(nc, logger), nil
}

func newClient(c conn, logger *zap.Logger) *NATSClient {
	return &NATSClient{
		conn:   c,
		logger: logger,
		now:    time.Now,
		subs:   make(map[string]*nats.Subscription),
	}
}

// Publish sends data to the given NATS subject.
func (c *NATSClient) Publish(subject string, data []byte) error {
	if c == nil {
		return nil
	}
	return c.conn.Publish(subject, data)
}

// PublishBattleStarted announces a newly detected battle.
func (c *NATSClient) PublishBattleStarted(details battle.Details) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("nats: encode battle %s: %w", details.BattleID, err)
	}
	return c.Publish(SubjectBattleStarted, data)
}

// PublishSubscriberRemoved announces an automatic unsubscription.
func (c *NATSClient) PublishSubscriberRemoved(handle, reason string) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(SubscriberRemoved{
		Handle:    handle,
		Reason:    reason,
		RemovedAt: c.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("nats: encode removal of %s: %w", handle, err)
	}
	return c.Publish(SubjectSubscriberRemoved, data)
}

// Subscribe registers a handler for the given subject and stores the
// subscription internally for later cleanup.
func (c *NATSClient) Subscribe(subject string, handler func(data []byte)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", subject, err)
	}

	c.mu.Lock()
	c.subs[subject] = sub
	c.mu.Unlock()

	return nil
}

// IsConnected reports whether the underlying connection is up. A nil
// client is never connected.
func (c *NATSClient) IsConnected() bool {
	return c != nil && c.conn.IsConnected()
}

// Close drains all active subscriptions and closes the NATS connection.
func (c *NATSClient) Close() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	for subject, sub := range c.subs {
		if err := sub.Drain(); err != nil {
			c.logger.Warn("drain subscription", zap.String("subject", subject), zap.Error(err))
		}
	}
	c.subs = make(map[string]*nats.Subscription)

	if err := c.conn.Drain(); err != nil {
		c.logger.Warn("connection drain", zap.Error(err))
	}

	c.logger.Info("client closed")
}
