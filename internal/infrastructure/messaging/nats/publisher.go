package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/dreschagin/jenkins-collector/pkg/logger"
)

// IngestionPublisher implements EventPublisher for NATS JetStream.
// Publishes are synchronous: the collector is a one-shot batch process
// and unacknowledged events would be lost at exit.
type IngestionPublisher struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	logger *logger.Logger
}

// NewIngestionPublisher creates a new NATS publisher.
func NewIngestionPublisher(natsURL string, log *logger.Logger) (*IngestionPublisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(3),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", "error", err.Error())
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	log.Info("Connected to NATS", "url", natsURL)

	return &IngestionPublisher{
		nc:     nc,
		js:     js,
		logger: log,
	}, nil
}

// PublishEvent publishes an event to the given subject and waits for the
// stream acknowledgement.
func (p *IngestionPublisher) PublishEvent(ctx context.Context, subject string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := p.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("Event published",
		"subject", subject,
		"size", len(data),
	)

	return nil
}

// Close drains and closes the NATS connection.
func (p *IngestionPublisher) Close() error {
	if p.nc != nil {
		p.logger.Info("Closing NATS connection")
		if err := p.nc.Drain(); err != nil {
			p.nc.Close()
			return fmt.Errorf("failed to drain NATS connection: %w", err)
		}
	}
	return nil
}
