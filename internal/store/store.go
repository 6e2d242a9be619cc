// Package store persists plans, zones, webhook subscriptions and queued
// webhook deliveries. Memory is the default backend; Postgres is selected
// when a database URL is configured.
package store

import (
	"context"
	"errors"

	"fleetroute/internal/model"
)

var ErrNotFound = errors.New("not found")

// Webhook delivery states.
const (
	DeliveryPending   = "pending"
	DeliveryDelivered = "delivered"
	DeliveryFailed    = "failed"
)

// WebhookDelivery is one queued webhook POST.
type WebhookDelivery struct {
	ID             string
	Tenant         string
	SubscriptionID string
	EventType      string
	URL            string
	Secret         string
	Payload        []byte
	Status         string
	Attempts       int
}

type Store interface {
	Ping(ctx context.Context) error

	SavePlan(ctx context.Context, p model.Plan) error
	GetPlan(ctx context.Context, tenant, id string) (model.Plan, error)
	// ListPlans returns newest-first pages; cursor is the last plan id of
	// the previous page, empty for the first.
	ListPlans(ctx context.Context, tenant string, limit int, cursor string) ([]model.Plan, string, error)

	CreateZone(ctx context.Context, z model.Zone) error
	GetZone(ctx context.Context, tenant, id string) (model.Zone, error)
	UpdateZone(ctx context.Context, z model.Zone) error
	DeleteZone(ctx context.Context, tenant, id string) error
	ListZones(ctx context.Context, tenant string) ([]model.Zone, error)

	CreateSubscription(ctx context.Context, sub model.Subscription) error
	ListSubscriptions(ctx context.Context, tenant string) ([]model.Subscription, error)
	DeleteSubscription(ctx context.Context, tenant, id string) error

	EnqueueDelivery(ctx context.Context, d WebhookDelivery) error
	PendingDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
	MarkDelivery(ctx context.Context, id, status string, attempts int) error

	Close() error
}
