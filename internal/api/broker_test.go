package api

import (
	"context"
	"testing"
	"time"
)

func recv(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for message")
		return nil
	}
}

func TestMemoryBrokerFanOut(t *testing.T) {
	b := NewMemoryBroker()
	ch1, cancel1 := b.Subscribe("plans:t1")
	defer cancel1()
	ch2, cancel2 := b.Subscribe("plans:t1")
	defer cancel2()
	other, cancelOther := b.Subscribe("plans:t2")
	defer cancelOther()

	if err := b.Publish(context.Background(), "plans:t1", []byte("hello")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got := string(recv(t, ch1)); got != "hello" {
		t.Fatalf("sub1 got %q", got)
	}
	if got := string(recv(t, ch2)); got != "hello" {
		t.Fatalf("sub2 got %q", got)
	}
	select {
	case msg := <-other:
		t.Fatalf("topic isolation broken, got %q", msg)
	default:
	}
}

func TestMemoryBrokerCancelClosesChannel(t *testing.T) {
	b := NewMemoryBroker()
	ch, cancel := b.Subscribe("plan:p1")
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("channel should be closed after cancel")
	}
	// Publishing after cancel must not panic or block.
	if err := b.Publish(context.Background(), "plan:p1", []byte("x")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	cancel() // idempotent
}

func TestMemoryBrokerDropsWhenSubscriberIsFull(t *testing.T) {
	b := NewMemoryBroker()
	ch, cancel := b.Subscribe("plan:p1")
	defer cancel()
	for i := 0; i < 32; i++ {
		if err := b.Publish(context.Background(), "plan:p1", []byte("x")); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}
	// Buffer is 16; the rest were dropped rather than blocking.
	if got := len(ch); got != 16 {
		t.Fatalf("buffered %d, want 16", got)
	}
}
