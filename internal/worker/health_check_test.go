package worker

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func TestHealthCheckSkipsWhenHealthy(t *testing.T) {
	f := newFixture(t, http.StatusOK)
	hc := NewHealthCheckWorker(f.repoHealth, f.client, f.breaker, f.processor.srv.URL, time.Second)

	if !hc.PerformHealthCheck(context.Background()) {
		t.Error("expected healthy breaker to report healthy")
	}
	if calls := f.processor.calls.Load(); calls != 0 {
		t.Errorf("healthy breaker must not probe, got %d calls", calls)
	}
}

func TestHealthCheckNeedsLastGoodPayment(t *testing.T) {
	f := newFixture(t, http.StatusOK)
	hc := NewHealthCheckWorker(f.repoHealth, f.client, f.breaker, f.processor.srv.URL, time.Second)
	f.breaker.Trip()

	if hc.PerformHealthCheck(context.Background()) {
		t.Error("expected no recovery without a probe payload")
	}
	if f.breaker.Healthy() {
		t.Error("breaker must stay open")
	}
	if calls := f.processor.calls.Load(); calls != 0 {
		t.Errorf("expected no probe, got %d calls", calls)
	}
}

func TestHealthCheckStaysOpenOnServerError(t *testing.T) {
	f := newFixture(t, http.StatusInternalServerError)
	hc := NewHealthCheckWorker(f.repoHealth, f.client, f.breaker, f.processor.srv.URL, time.Second)
	f.breaker.RememberGood(newPayment(t, "probe-1", "1"))
	f.breaker.Trip()

	if hc.PerformHealthCheck(context.Background()) {
		t.Error("expected probe to fail")
	}
	if f.breaker.Healthy() {
		t.Error("breaker must stay open after a failed probe")
	}

	f.processor.status.Store(http.StatusOK)
	if !hc.PerformHealthCheck(context.Background()) {
		t.Error("expected probe to succeed")
	}
	if !f.breaker.Healthy() {
		t.Error("breaker must close after a successful probe")
	}
	if calls := f.processor.calls.Load(); calls != 2 {
		t.Errorf("expected 2 probes, got %d", calls)
	}
}

func TestHealthCheckRestoresPersistedProbe(t *testing.T) {
	f := newFixture(t, http.StatusOK)
	ctx := context.Background()
	if err := f.repoHealth.SaveProbePayment(ctx, newPayment(t, "persisted-1", "3.50")); err != nil {
		t.Fatalf("SaveProbePayment: %v", err)
	}

	hc := NewHealthCheckWorker(f.repoHealth, f.client, f.breaker, f.processor.srv.URL, time.Second)
	f.breaker.Trip()

	if !hc.PerformHealthCheck(ctx) {
		t.Fatal("expected recovery using the persisted probe")
	}
	lg := f.breaker.LastGood()
	if lg == nil || lg.CorrelationId != "persisted-1" || lg.Amount.String() != "3.50" {
		t.Errorf("unexpected restored probe %+v", lg)
	}
}

func TestHealthCheckRunStopsOnCancel(t *testing.T) {
	f := newFixture(t, http.StatusOK)
	hc := NewHealthCheckWorker(nil, f.client, f.breaker, f.processor.srv.URL, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hc.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("health check worker did not stop")
	}
}

func TestHealthCheckColdStartUsesTrippingPayment(t *testing.T) {
	f := newFixture(t, http.StatusInternalServerError)
	hc := NewHealthCheckWorker(f.repoHealth, f.client, f.breaker, f.processor.srv.URL, time.Second)
	f.breaker.TripWith(newPayment(t, "cold-1", "1"))

	if hc.PerformHealthCheck(context.Background()) {
		t.Fatal("expected probe to fail while the processor errors")
	}
	f.processor.status.Store(http.StatusOK)
	if !hc.PerformHealthCheck(context.Background()) {
		t.Fatal("expected recovery using the payment that opened the breaker")
	}
	if !f.breaker.Healthy() {
		t.Error("breaker must close")
	}
	if calls := f.processor.calls.Load(); calls != 2 {
		t.Errorf("expected 2 probes, got %d", calls)
	}
}
