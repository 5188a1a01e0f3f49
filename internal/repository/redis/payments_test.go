package redis

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	json "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/nicolasmmb/go-rinha-payment-dispatcher/internal/domain"
)

func newTestClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	m := miniredis.RunT(t)
	c := redis.NewClient(&redis.Options{
		Addr:                  m.Addr(),
		MaxRetries:            -1,
		ContextTimeoutEnabled: true,
	})
	t.Cleanup(func() { _ = c.Close() })
	return c, m
}

func testPayment(t *testing.T, id, amount string) domain.Payment {
	t.Helper()
	m, err := domain.ParseAmount(amount)
	if err != nil {
		t.Fatalf("ParseAmount(%s): %v", amount, err)
	}
	p, err := domain.NewPayment(id, m, time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("NewPayment: %v", err)
	}
	return p
}

func TestRecordIfAbsentIsIdempotent(t *testing.T) {
	c, m := newTestClient(t)
	repo := NewPaymentsRepository(c, time.Second)
	ctx := context.Background()
	p := testPayment(t, "abc-1", "19.90")

	exists, err := repo.Exists(ctx, "abc-1")
	if err != nil || exists {
		t.Fatalf("expected missing key, got exists=%v err=%v", exists, err)
	}

	created, err := repo.RecordIfAbsent(ctx, "abc-1", p.ToRecord())
	if err != nil || !created {
		t.Fatalf("expected first write to create, got created=%v err=%v", created, err)
	}
	created, err = repo.RecordIfAbsent(ctx, "abc-1", p.ToRecord())
	if err != nil || created {
		t.Fatalf("expected second write to be a no-op, got created=%v err=%v", created, err)
	}

	exists, err = repo.Exists(ctx, "abc-1")
	if err != nil || !exists {
		t.Fatalf("expected key to exist, got exists=%v err=%v", exists, err)
	}

	raw, err := m.Get("abc-1")
	if err != nil {
		t.Fatalf("miniredis get: %v", err)
	}
	var rec domain.PaymentRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		t.Fatalf("stored record is not JSON: %v", err)
	}
	if rec.Amount != "19.90" || rec.RequestedAt != "2025-07-15T12:00:00Z" {
		t.Errorf("unexpected record %+v", rec)
	}
}

func TestRecordIfAbsentConcurrentWritersCreateOnce(t *testing.T) {
	c, _ := newTestClient(t)
	repo := NewPaymentsRepository(c, time.Second)
	p := testPayment(t, "dup-1", "5")

	var created atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.RecordIfAbsent(context.Background(), p.CorrelationId, p.ToRecord())
			if err != nil {
				t.Errorf("RecordIfAbsent: %v", err)
			}
			if ok {
				created.Add(1)
			}
		}()
	}
	wg.Wait()

	if created.Load() != 1 {
		t.Errorf("expected exactly one creator, got %d", created.Load())
	}
}

func TestCounters(t *testing.T) {
	c, _ := newTestClient(t)
	repo := NewPaymentsRepository(c, time.Second)
	ctx := context.Background()

	count, err := repo.GetCount(ctx)
	if err != nil || count != 0 {
		t.Fatalf("expected 0 on empty store, got %d err=%v", count, err)
	}
	amount, err := repo.GetAmount(ctx)
	if err != nil || !amount.IsZero() {
		t.Fatalf("expected zero amount on empty store, got %s err=%v", amount, err)
	}

	if err := repo.IncrementSummary(ctx, decimal.RequireFromString("19.90")); err != nil {
		t.Fatalf("IncrementSummary: %v", err)
	}
	if _, err := repo.IncrementCount(ctx); err != nil {
		t.Fatalf("IncrementCount: %v", err)
	}
	total, err := repo.IncrementAmount(ctx, decimal.RequireFromString("0.10"))
	if err != nil {
		t.Fatalf("IncrementAmount: %v", err)
	}
	if total.StringFixed(2) != "20.00" {
		t.Errorf("expected running total 20.00, got %s", total.StringFixed(2))
	}

	count, _ = repo.GetCount(ctx)
	if count != 2 {
		t.Errorf("expected count 2, got %d", count)
	}
	amount, _ = repo.GetAmount(ctx)
	if amount.StringFixed(2) != "20.00" {
		t.Errorf("expected amount 20.00, got %s", amount.StringFixed(2))
	}
}

func TestStoreOutageReturnsFallbacks(t *testing.T) {
	c, m := newTestClient(t)
	repo := NewPaymentsRepository(c, 50*time.Millisecond)
	ctx := context.Background()
	p := testPayment(t, "abc-1", "1")

	_ = c.Ping(ctx).Err()
	m.SetError("LOADING Redis is loading the dataset in memory")

	if exists, err := repo.Exists(ctx, "abc-1"); err == nil || exists {
		t.Errorf("Exists: expected false with error, got %v %v", exists, err)
	}
	if created, err := repo.RecordIfAbsent(ctx, "abc-1", p.ToRecord()); err == nil || created {
		t.Errorf("RecordIfAbsent: expected false with error, got %v %v", created, err)
	}
	if n, err := repo.IncrementCount(ctx); err == nil || n != 0 {
		t.Errorf("IncrementCount: expected 0 with error, got %d %v", n, err)
	}
	if err := repo.IncrementSummary(ctx, decimal.NewFromInt(1)); err == nil {
		t.Error("IncrementSummary: expected error")
	}
	if n, err := repo.GetCount(ctx); err == nil || n != 0 {
		t.Errorf("GetCount: expected 0 with error, got %d %v", n, err)
	}
	if a, err := repo.GetAmount(ctx); err == nil || !a.IsZero() {
		t.Errorf("GetAmount: expected zero with error, got %s %v", a, err)
	}
}

func TestStoreUnreachableDoesNotHang(t *testing.T) {
	c, m := newTestClient(t)
	repo := NewPaymentsRepository(c, 50*time.Millisecond)
	m.Close()

	start := time.Now()
	if _, err := repo.GetCount(context.Background()); err == nil {
		t.Error("expected error from closed store")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("GetCount took %s on an unreachable store", elapsed)
	}
}

func TestGetRecordAndResetState(t *testing.T) {
	c, m := newTestClient(t)
	repo := NewPaymentsRepository(c, time.Second)
	ctx := context.Background()
	p := testPayment(t, "abc-1", "19.9")

	rec, err := repo.GetRecord(ctx, "abc-1")
	if err != nil || rec != nil {
		t.Fatalf("expected nil record, got %+v err=%v", rec, err)
	}

	_, _ = repo.RecordIfAbsent(ctx, "abc-1", p.ToRecord())
	_ = repo.IncrementSummary(ctx, p.Amount.Decimal)

	rec, err = repo.GetRecord(ctx, "abc-1")
	if err != nil || rec == nil {
		t.Fatalf("expected record, got %+v err=%v", rec, err)
	}
	if rec.Amount != "19.90" {
		t.Errorf("expected amount 19.90, got %s", rec.Amount)
	}

	if err := repo.ResetState(ctx); err != nil {
		t.Fatalf("ResetState: %v", err)
	}
	if len(m.Keys()) != 0 {
		t.Errorf("expected empty store after reset, got keys %v", m.Keys())
	}
}
