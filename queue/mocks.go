package queue

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/sksmith/inventory-allocation/test"
)

// MockPublisher drops every message. It stands in for RabbitMQ when rabbitmq.mock is set.
type MockPublisher struct {
	PublishFunc func(ctx context.Context, exchange string, body []byte) error
	*test.CallWatcher
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		PublishFunc: func(ctx context.Context, exchange string, body []byte) error {
			log.Debug().Str("exchange", exchange).Int("size", len(body)).Msg("mock publish")
			return nil
		},
		CallWatcher: test.NewCallWatcher(),
	}
}

func (m *MockPublisher) Publish(ctx context.Context, exchange string, body []byte) error {
	m.AddCall(ctx, exchange, body)
	return m.PublishFunc(ctx, exchange, body)
}
