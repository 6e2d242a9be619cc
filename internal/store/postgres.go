package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"fleetroute/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS plans (
	id         TEXT PRIMARY KEY,
	tenant     TEXT NOT NULL,
	status     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	result     JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS plans_tenant_created_idx ON plans (tenant, created_at DESC);

CREATE TABLE IF NOT EXISTS zones (
	id      TEXT PRIMARY KEY,
	tenant  TEXT NOT NULL,
	name    TEXT NOT NULL DEFAULT '',
	ztype   TEXT NOT NULL,
	polygon JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS zones_tenant_idx ON zones (tenant);

CREATE TABLE IF NOT EXISTS subscriptions (
	id         TEXT PRIMARY KEY,
	tenant     TEXT NOT NULL,
	url        TEXT NOT NULL,
	secret     TEXT NOT NULL DEFAULT '',
	events     JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS subscriptions_tenant_idx ON subscriptions (tenant);

CREATE TABLE IF NOT EXISTS webhook_deliveries (
	id              TEXT PRIMARY KEY,
	tenant          TEXT NOT NULL,
	subscription_id TEXT NOT NULL,
	event_type      TEXT NOT NULL,
	url             TEXT NOT NULL,
	secret          TEXT NOT NULL DEFAULT '',
	payload         JSONB NOT NULL,
	status          TEXT NOT NULL,
	attempts        INT NOT NULL DEFAULT 0,
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS webhook_deliveries_status_idx ON webhook_deliveries (status, updated_at);
`

// Postgres backs the store with a database reached through the pgx stdlib
// driver.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(ctx context.Context, url string) (*Postgres, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	p := &Postgres{db: db}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return p, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }
func (p *Postgres) Close() error                   { return p.db.Close() }

func (p *Postgres) SavePlan(ctx context.Context, plan model.Plan) error {
	result, err := json.Marshal(plan.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO plans (id, tenant, status, created_at, result)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, result = EXCLUDED.result`,
		plan.ID, plan.Tenant, plan.Status, plan.CreatedAt, result)
	if err != nil {
		return fmt.Errorf("save plan: %w", err)
	}
	return nil
}

func (p *Postgres) GetPlan(ctx context.Context, tenant, id string) (model.Plan, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, tenant, status, created_at, result
		FROM plans WHERE tenant = $1 AND id = $2`, tenant, id)
	return scanPlan(row)
}

func (p *Postgres) ListPlans(ctx context.Context, tenant string, limit int, cursor string) ([]model.Plan, string, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, tenant, status, created_at, result
		FROM plans
		WHERE tenant = $1
		  AND ($2 = '' OR created_at < (SELECT created_at FROM plans WHERE id = $2))
		ORDER BY created_at DESC, id
		LIMIT $3`, tenant, cursor, limit+1)
	if err != nil {
		return nil, "", fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()
	out := []model.Plan{}
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, "", err
		}
		out = append(out, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("list plans: %w", err)
	}
	next := ""
	if len(out) > limit {
		out = out[:limit]
		next = out[len(out)-1].ID
	}
	return out, next, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (model.Plan, error) {
	var plan model.Plan
	var result []byte
	if err := row.Scan(&plan.ID, &plan.Tenant, &plan.Status, &plan.CreatedAt, &result); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Plan{}, ErrNotFound
		}
		return model.Plan{}, fmt.Errorf("scan plan: %w", err)
	}
	if err := json.Unmarshal(result, &plan.Result); err != nil {
		return model.Plan{}, fmt.Errorf("decode plan result: %w", err)
	}
	return plan, nil
}

func (p *Postgres) CreateZone(ctx context.Context, z model.Zone) error {
	polygon, err := json.Marshal(z.Polygon)
	if err != nil {
		return fmt.Errorf("marshal polygon: %w", err)
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO zones (id, tenant, name, ztype, polygon) VALUES ($1, $2, $3, $4, $5)`,
		z.ID, z.Tenant, z.Name, z.Type, polygon)
	if err != nil {
		return fmt.Errorf("create zone: %w", err)
	}
	return nil
}

func (p *Postgres) GetZone(ctx context.Context, tenant, id string) (model.Zone, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, tenant, name, ztype, polygon FROM zones WHERE tenant = $1 AND id = $2`, tenant, id)
	return scanZone(row)
}

func (p *Postgres) UpdateZone(ctx context.Context, z model.Zone) error {
	polygon, err := json.Marshal(z.Polygon)
	if err != nil {
		return fmt.Errorf("marshal polygon: %w", err)
	}
	res, err := p.db.ExecContext(ctx, `
		UPDATE zones SET name = $3, ztype = $4, polygon = $5 WHERE tenant = $1 AND id = $2`,
		z.Tenant, z.ID, z.Name, z.Type, polygon)
	if err != nil {
		return fmt.Errorf("update zone: %w", err)
	}
	return requireRow(res)
}

func (p *Postgres) DeleteZone(ctx context.Context, tenant, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM zones WHERE tenant = $1 AND id = $2`, tenant, id)
	if err != nil {
		return fmt.Errorf("delete zone: %w", err)
	}
	return requireRow(res)
}

func (p *Postgres) ListZones(ctx context.Context, tenant string) ([]model.Zone, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, tenant, name, ztype, polygon FROM zones WHERE tenant = $1 ORDER BY id`, tenant)
	if err != nil {
		return nil, fmt.Errorf("list zones: %w", err)
	}
	defer rows.Close()
	out := []model.Zone{}
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, z)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list zones: %w", err)
	}
	return out, nil
}

func scanZone(row rowScanner) (model.Zone, error) {
	var z model.Zone
	var polygon []byte
	if err := row.Scan(&z.ID, &z.Tenant, &z.Name, &z.Type, &polygon); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Zone{}, ErrNotFound
		}
		return model.Zone{}, fmt.Errorf("scan zone: %w", err)
	}
	if err := json.Unmarshal(polygon, &z.Polygon); err != nil {
		return model.Zone{}, fmt.Errorf("decode polygon: %w", err)
	}
	return z, nil
}

func (p *Postgres) CreateSubscription(ctx context.Context, sub model.Subscription) error {
	events, err := json.Marshal(sub.Events)
	if err != nil {
		return fmt.Errorf("marshal events: %w", err)
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO subscriptions (id, tenant, url, secret, events, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		sub.ID, sub.Tenant, sub.URL, sub.Secret, events, sub.CreatedAt)
	if err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}
	return nil
}

func (p *Postgres) ListSubscriptions(ctx context.Context, tenant string) ([]model.Subscription, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, tenant, url, secret, events, created_at
		FROM subscriptions WHERE tenant = $1 ORDER BY created_at`, tenant)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()
	out := []model.Subscription{}
	for rows.Next() {
		var sub model.Subscription
		var events []byte
		if err := rows.Scan(&sub.ID, &sub.Tenant, &sub.URL, &sub.Secret, &events, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		if err := json.Unmarshal(events, &sub.Events); err != nil {
			return nil, fmt.Errorf("decode events: %w", err)
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return out, nil
}

func (p *Postgres) DeleteSubscription(ctx context.Context, tenant, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE tenant = $1 AND id = $2`, tenant, id)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	return requireRow(res)
}

func (p *Postgres) EnqueueDelivery(ctx context.Context, d WebhookDelivery) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO webhook_deliveries (id, tenant, subscription_id, event_type, url, secret, payload, status, attempts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		d.ID, d.Tenant, d.SubscriptionID, d.EventType, d.URL, d.Secret, d.Payload, d.Status, d.Attempts)
	if err != nil {
		return fmt.Errorf("enqueue delivery: %w", err)
	}
	return nil
}

func (p *Postgres) PendingDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, tenant, subscription_id, event_type, url, secret, payload, status, attempts
		FROM webhook_deliveries WHERE status = $1 ORDER BY updated_at LIMIT $2`,
		DeliveryPending, limit)
	if err != nil {
		return nil, fmt.Errorf("pending deliveries: %w", err)
	}
	defer rows.Close()
	out := []WebhookDelivery{}
	for rows.Next() {
		var d WebhookDelivery
		if err := rows.Scan(&d.ID, &d.Tenant, &d.SubscriptionID, &d.EventType, &d.URL, &d.Secret, &d.Payload, &d.Status, &d.Attempts); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pending deliveries: %w", err)
	}
	return out, nil
}

func (p *Postgres) MarkDelivery(ctx context.Context, id, status string, attempts int) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE webhook_deliveries SET status = $2, attempts = $3, updated_at = now() WHERE id = $1`,
		id, status, attempts)
	if err != nil {
		return fmt.Errorf("mark delivery: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
