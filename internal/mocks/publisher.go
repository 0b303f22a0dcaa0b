package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"marketplace-chat/internal/services"
	"marketplace-chat/internal/telemetry"
)

// PublisherMock stands in for the event publisher behind audit and ws events.
type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *PublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

// FanoutPublisherMock stands in for per-user notice delivery.
type FanoutPublisherMock struct {
	mock.Mock
}

func (m *FanoutPublisherMock) Publish(ctx context.Context, userID int64, channel string, payload any) error {
	args := m.Called(ctx, userID, channel, payload)
	return args.Error(0)
}

var _ telemetry.Publisher = (*PublisherMock)(nil)
var _ services.Publisher = (*FanoutPublisherMock)(nil)
