package service

import (
	"context"
	"log/slog"

	"github.com/nicolasmmb/go-rinha-payment-dispatcher/internal/core"
	"github.com/nicolasmmb/go-rinha-payment-dispatcher/internal/domain"
)

// PaymentService is what the HTTP layer sees of the pipeline.
type PaymentService struct {
	repoPayment core.PaymentRepositoryInterface
	repoHealth  core.HealthCheckRepositoryInterface
	queue       *AdmissionQueue
	breaker     *CircuitBreaker
	summary     *SummaryAggregator
}

func NewPaymentService(
	repoPayment core.PaymentRepositoryInterface,
	repoHealth core.HealthCheckRepositoryInterface,
	queue *AdmissionQueue,
	breaker *CircuitBreaker,
	summary *SummaryAggregator,
) *PaymentService {
	return &PaymentService{
		repoPayment: repoPayment,
		repoHealth:  repoHealth,
		queue:       queue,
		breaker:     breaker,
		summary:     summary,
	}
}

func (ps *PaymentService) Enqueue(payment domain.Payment) bool {
	if !ps.queue.Enqueue(payment) {
		slog.Warn("[SV:Payment:Enqueue] - Queue full, payment dropped", "correlation_id", payment.CorrelationId, "capacity", ps.queue.Cap())
		return false
	}
	return true
}

func (ps *PaymentService) GetSummary(ctx context.Context) domain.Summary {
	return ps.summary.Get(ctx)
}

func (ps *PaymentService) GetPayment(ctx context.Context, correlationId string) (*domain.PaymentRecord, error) {
	return ps.repoPayment.GetRecord(ctx, correlationId)
}

func (ps *PaymentService) ResetState(ctx context.Context) error {
	defer ps.summary.Invalidate()
	return ps.repoPayment.ResetState(ctx)
}

func (ps *PaymentService) BackendHealthy() bool {
	return ps.breaker.Healthy()
}

func (ps *PaymentService) StoreHealthy(ctx context.Context) bool {
	return ps.repoHealth.HealthCheck(ctx) == nil
}

func (ps *PaymentService) Queued() int {
	return ps.queue.Len()
}
