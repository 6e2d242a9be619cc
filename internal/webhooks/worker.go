package webhooks

import (
	"bytes"
	"context"
	"io"
	"log"
	"net/http"
	"time"

	"fleetroute/internal/store"
)

// Worker polls for pending deliveries and POSTs them with an HMAC
// signature header. A failed POST stays pending until MaxAttempts, then is
// marked failed.
type Worker struct {
	Store       store.Store
	HTTP        *http.Client
	Interval    time.Duration
	MaxAttempts int
	OnResult    func(status string)
}

func (w *Worker) Run(ctx context.Context) {
	interval := w.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.Drain(ctx)
		}
	}
}

// Drain attempts every currently-pending delivery once.
func (w *Worker) Drain(ctx context.Context) {
	deliveries, err := w.Store.PendingDeliveries(ctx, 20)
	if err != nil {
		log.Printf("webhooks: list pending: %v", err)
		return
	}
	for _, d := range deliveries {
		w.attempt(ctx, d)
	}
}

func (w *Worker) attempt(ctx context.Context, d store.WebhookDelivery) {
	client := w.HTTP
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	ok := false
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.URL, bytes.NewReader(d.Payload))
	if err == nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Event-Type", d.EventType)
		req.Header.Set("X-Delivery-Id", d.ID)
		if d.Secret != "" {
			req.Header.Set("X-Signature", Sign(d.Secret, d.Payload))
		}
		resp, derr := client.Do(req)
		if derr == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			ok = resp.StatusCode >= 200 && resp.StatusCode < 300
		}
	}

	attempts := d.Attempts + 1
	status := store.DeliveryDelivered
	if !ok {
		status = store.DeliveryPending
		max := w.MaxAttempts
		if max <= 0 {
			max = 5
		}
		if attempts >= max {
			status = store.DeliveryFailed
		}
	}
	if err := w.Store.MarkDelivery(ctx, d.ID, status, attempts); err != nil {
		log.Printf("webhooks: mark delivery %s: %v", d.ID, err)
	}
	if w.OnResult != nil && status != store.DeliveryPending {
		w.OnResult(status)
	}
}
