package core

import (
	"context"

	"github.com/nicolasmmb/go-rinha-payment-dispatcher/internal/domain"
	"github.com/shopspring/decimal"
)

// PaymentRepositoryInterface is the dedup/counter store. Every method returns
// its fallback value together with the error, so callers may ignore err.
type PaymentRepositoryInterface interface {
	Exists(ctx context.Context, correlationId string) (bool, error)
	RecordIfAbsent(ctx context.Context, correlationId string, record domain.PaymentRecord) (bool, error)
	IncrementCount(ctx context.Context) (int64, error)
	IncrementAmount(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error)
	IncrementSummary(ctx context.Context, amount decimal.Decimal) error
	GetCount(ctx context.Context) (int64, error)
	GetAmount(ctx context.Context) (decimal.Decimal, error)
	GetRecord(ctx context.Context, correlationId string) (*domain.PaymentRecord, error)
	ResetState(ctx context.Context) error
}

type HealthCheckRepositoryInterface interface {
	HealthCheck(ctx context.Context) error
	SaveProbePayment(ctx context.Context, payment domain.Payment) error
	GetProbePayment(ctx context.Context) (*domain.Payment, error)
}

// ProcessorClientInterface posts payments to the payment processor.
type ProcessorClientInterface interface {
	Send(ctx context.Context, payment domain.Payment, endpoint string) bool
	Probe(ctx context.Context, payment domain.Payment, endpoint string) bool
}
