// Package webhooks queues and delivers signed event callbacks to subscriber
// endpoints.
package webhooks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"fleetroute/internal/model"
	"fleetroute/internal/store"
)

// Publisher fans one event out to every matching subscription as a queued
// delivery; the Worker drains the queue.
type Publisher struct {
	Store store.Store
}

func (p *Publisher) Publish(ctx context.Context, tenant, eventType string, payload any) error {
	subs, err := p.Store.ListSubscriptions(ctx, tenant)
	if err != nil {
		return fmt.Errorf("list subscriptions: %w", err)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	for _, sub := range subs {
		if !subscribed(sub, eventType) {
			continue
		}
		d := store.WebhookDelivery{
			ID:             uuid.New().String(),
			Tenant:         tenant,
			SubscriptionID: sub.ID,
			EventType:      eventType,
			URL:            sub.URL,
			Secret:         sub.Secret,
			Payload:        body,
			Status:         store.DeliveryPending,
		}
		if err := p.Store.EnqueueDelivery(ctx, d); err != nil {
			return fmt.Errorf("enqueue delivery: %w", err)
		}
	}
	return nil
}

// An empty event list subscribes to everything.
func subscribed(sub model.Subscription, eventType string) bool {
	if len(sub.Events) == 0 {
		return true
	}
	for _, e := range sub.Events {
		if e == eventType || e == "*" {
			return true
		}
	}
	return false
}
