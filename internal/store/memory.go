package store

import (
	"context"
	"sync"

	"fleetroute/internal/model"
)

// Memory is the in-process backend used when no database is configured.
type Memory struct {
	mu            sync.Mutex
	plans         map[string]model.Plan // key tenant|id
	planOrder     []string              // insertion order of keys
	zones         map[string]model.Zone
	subs          map[string]model.Subscription
	deliveries    map[string]WebhookDelivery
	deliveryOrder []string
}

func NewMemory() *Memory {
	return &Memory{
		plans:      map[string]model.Plan{},
		zones:      map[string]model.Zone{},
		subs:       map[string]model.Subscription{},
		deliveries: map[string]WebhookDelivery{},
	}
}

func planKey(tenant, id string) string { return tenant + "|" + id }

func (m *Memory) Ping(context.Context) error { return nil }
func (m *Memory) Close() error               { return nil }

func (m *Memory) SavePlan(_ context.Context, p model.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := planKey(p.Tenant, p.ID)
	if _, exists := m.plans[k]; !exists {
		m.planOrder = append(m.planOrder, k)
	}
	m.plans[k] = p
	return nil
}

func (m *Memory) GetPlan(_ context.Context, tenant, id string) (model.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[planKey(tenant, id)]
	if !ok {
		return model.Plan{}, ErrNotFound
	}
	return p, nil
}

func (m *Memory) ListPlans(_ context.Context, tenant string, limit int, cursor string) ([]model.Plan, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 20
	}
	out := []model.Plan{}
	started := cursor == ""
	next := ""
	for i := len(m.planOrder) - 1; i >= 0; i-- {
		p, ok := m.plans[m.planOrder[i]]
		if !ok || p.Tenant != tenant {
			continue
		}
		if !started {
			if p.ID == cursor {
				started = true
			}
			continue
		}
		if len(out) == limit {
			next = out[len(out)-1].ID
			break
		}
		out = append(out, p)
	}
	return out, next, nil
}

func (m *Memory) CreateZone(_ context.Context, z model.Zone) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.zones[planKey(z.Tenant, z.ID)] = z
	return nil
}

func (m *Memory) GetZone(_ context.Context, tenant, id string) (model.Zone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	z, ok := m.zones[planKey(tenant, id)]
	if !ok {
		return model.Zone{}, ErrNotFound
	}
	return z, nil
}

func (m *Memory) UpdateZone(_ context.Context, z model.Zone) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := planKey(z.Tenant, z.ID)
	if _, ok := m.zones[k]; !ok {
		return ErrNotFound
	}
	m.zones[k] = z
	return nil
}

func (m *Memory) DeleteZone(_ context.Context, tenant, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := planKey(tenant, id)
	if _, ok := m.zones[k]; !ok {
		return ErrNotFound
	}
	delete(m.zones, k)
	return nil
}

func (m *Memory) ListZones(_ context.Context, tenant string) ([]model.Zone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Zone{}
	for _, z := range m.zones {
		if z.Tenant == tenant {
			out = append(out, z)
		}
	}
	return out, nil
}

func (m *Memory) CreateSubscription(_ context.Context, sub model.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[planKey(sub.Tenant, sub.ID)] = sub
	return nil
}

func (m *Memory) ListSubscriptions(_ context.Context, tenant string) ([]model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Subscription{}
	for _, s := range m.subs {
		if s.Tenant == tenant {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *Memory) DeleteSubscription(_ context.Context, tenant, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := planKey(tenant, id)
	if _, ok := m.subs[k]; !ok {
		return ErrNotFound
	}
	delete(m.subs, k)
	return nil
}

func (m *Memory) EnqueueDelivery(_ context.Context, d WebhookDelivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.deliveries[d.ID]; !exists {
		m.deliveryOrder = append(m.deliveryOrder, d.ID)
	}
	m.deliveries[d.ID] = d
	return nil
}

func (m *Memory) PendingDeliveries(_ context.Context, limit int) ([]WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 20
	}
	out := []WebhookDelivery{}
	for _, id := range m.deliveryOrder {
		d, ok := m.deliveries[id]
		if !ok || d.Status != DeliveryPending {
			continue
		}
		out = append(out, d)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) MarkDelivery(_ context.Context, id, status string, attempts int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.Status = status
	d.Attempts = attempts
	m.deliveries[id] = d
	return nil
}
