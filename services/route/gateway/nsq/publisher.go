package gateway_nsq

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/piresc/navieta/internal/pkg/models"
	nsqpkg "github.com/piresc/navieta/internal/pkg/nsq"
)

// Publisher pushes route results to an NSQ topic after every successful
// poll cycle, so downstream consumers ingest updates instead of polling
// the sensor API.
type Publisher struct {
	producer *nsqpkg.Producer
	topic    string
}

// NewPublisher creates a route result publisher.
func NewPublisher(producer *nsqpkg.Producer, topic string) *Publisher {
	return &Publisher{
		producer: producer,
		topic:    topic,
	}
}

// RouteUpdatedEvent is the published message shape.
type RouteUpdatedEvent struct {
	RouteID     uuid.UUID           `json:"route_id"`
	Name        string              `json:"name"`
	Result      *models.RouteResult `json:"result"`
	PublishedAt time.Time           `json:"published_at"`
}

// PublishRouteResult publishes one route update.
func (p *Publisher) PublishRouteResult(_ context.Context, routeID uuid.UUID, name string, result *models.RouteResult) error {
	event := RouteUpdatedEvent{
		RouteID:     routeID,
		Name:        name,
		Result:      result,
		PublishedAt: time.Now().UTC(),
	}
	return p.producer.Publish(p.topic, event)
}
