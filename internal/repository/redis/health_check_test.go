package redis

import (
	"context"
	"testing"
	"time"
)

func TestProbePaymentRoundTrip(t *testing.T) {
	c, _ := newTestClient(t)
	repo := NewHealthCheckRepository(c, time.Second)
	ctx := context.Background()

	got, err := repo.GetProbePayment(ctx)
	if err != nil || got != nil {
		t.Fatalf("expected no probe payment, got %+v err=%v", got, err)
	}

	p := testPayment(t, "abc-1", "19.90")
	if err := repo.SaveProbePayment(ctx, p); err != nil {
		t.Fatalf("SaveProbePayment: %v", err)
	}

	got, err = repo.GetProbePayment(ctx)
	if err != nil || got == nil {
		t.Fatalf("GetProbePayment: %+v %v", got, err)
	}
	if got.CorrelationId != "abc-1" {
		t.Errorf("expected abc-1, got %s", got.CorrelationId)
	}
	if !got.Amount.Equal(p.Amount.Decimal) {
		t.Errorf("expected amount %s, got %s", p.Amount, got.Amount)
	}
	if !got.RequestedAt.Equal(p.RequestedAt) {
		t.Errorf("expected requestedAt %s, got %s", p.RequestedAt, got.RequestedAt)
	}
}

func TestHealthCheckPing(t *testing.T) {
	c, m := newTestClient(t)
	repo := NewHealthCheckRepository(c, 50*time.Millisecond)

	if err := repo.HealthCheck(context.Background()); err != nil {
		t.Fatalf("expected healthy store, got %v", err)
	}
	m.SetError("ERR down")
	if err := repo.HealthCheck(context.Background()); err == nil {
		t.Error("expected ping failure")
	}
}
