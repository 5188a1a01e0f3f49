package worker

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nicolasmmb/go-rinha-payment-dispatcher/internal/config/env"
	"github.com/nicolasmmb/go-rinha-payment-dispatcher/internal/core"
	"github.com/nicolasmmb/go-rinha-payment-dispatcher/internal/domain"
	"github.com/nicolasmmb/go-rinha-payment-dispatcher/internal/service"
)

const (
	DEFAULT_POLL_TIMEOUT = 500 * time.Millisecond
	DEFAULT_GATE_BACKOFF = 5 * time.Millisecond
)

// Outcome is the terminal decision taken for one dequeued payment.
type Outcome int

const (
	OutcomeRecorded Outcome = iota
	OutcomeDuplicate
	OutcomeDeliveredNotRecorded
	OutcomeRequeued
	OutcomeDropped
	OutcomePanicked
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRecorded:
		return "recorded"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeDeliveredNotRecorded:
		return "delivered_not_recorded"
	case OutcomeRequeued:
		return "requeued"
	case OutcomeDropped:
		return "dropped"
	case OutcomePanicked:
		return "panicked"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

type PaymentWorkerOptions struct {
	Workers     int
	Endpoint    string
	PollTimeout time.Duration
	// GateBackoff is the pause after requeueing a payment blocked by an open breaker.
	GateBackoff time.Duration
	// RequeueOnFailure puts blocked or failed payments back on the queue instead of dropping them.
	RequeueOnFailure bool
	// DuplicateCheckPolicy decides what a failed existence check means:
	// env.DUPLICATE_POLICY_OPTIMISTIC proceeds, env.DUPLICATE_POLICY_CONSERVATIVE drops.
	DuplicateCheckPolicy string
	// OnOutcome, when set, observes every processed payment.
	OnOutcome func(domain.Payment, Outcome)
}

type paymentWorker struct {
	id         string
	queue      *service.AdmissionQueue
	breaker    *service.CircuitBreaker
	client     core.ProcessorClientInterface
	repo       core.PaymentRepositoryInterface
	repoHealth core.HealthCheckRepositoryInterface
	opts       PaymentWorkerOptions

	wg sync.WaitGroup
}

func NewPaymentWorker(
	queue *service.AdmissionQueue,
	breaker *service.CircuitBreaker,
	client core.ProcessorClientInterface,
	repo core.PaymentRepositoryInterface,
	repoHealth core.HealthCheckRepositoryInterface,
	opts PaymentWorkerOptions,
) *paymentWorker {
	if opts.Workers <= 0 {
		opts.Workers = env.DefaultWorkerPool()
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = DEFAULT_POLL_TIMEOUT
	}
	if opts.GateBackoff <= 0 {
		opts.GateBackoff = DEFAULT_GATE_BACKOFF
	}
	if opts.DuplicateCheckPolicy != env.DUPLICATE_POLICY_CONSERVATIVE {
		opts.DuplicateCheckPolicy = env.DUPLICATE_POLICY_OPTIMISTIC
	}
	return &paymentWorker{
		id:         uuid.NewString()[:8],
		queue:      queue,
		breaker:    breaker,
		client:     client,
		repo:       repo,
		repoHealth: repoHealth,
		opts:       opts,
	}
}

// Run starts the pool and returns; Wait blocks until ctx is done and all workers exit.
func (w *paymentWorker) Run(ctx context.Context) {
	slog.Info("[WK:Payment:Run] - Starting payment workers",
		"pool", w.id,
		"workers", w.opts.Workers,
		"requeue_on_failure", w.opts.RequeueOnFailure,
		"duplicate_check_policy", w.opts.DuplicateCheckPolicy,
	)
	for i := 0; i < w.opts.Workers; i++ {
		w.wg.Add(1)
		go w.processPayments(ctx, i)
	}
}

func (w *paymentWorker) Wait() {
	w.wg.Wait()
}

func (w *paymentWorker) processPayments(ctx context.Context, n int) {
	defer w.wg.Done()
	for {
		if ctx.Err() != nil {
			slog.Debug("[WK:Payment:processPayments] - Worker stopped", "pool", w.id, "worker", n)
			return
		}
		payment, ok := w.queue.Dequeue(ctx, w.opts.PollTimeout)
		if !ok {
			continue
		}

		outcome := w.safeProcess(ctx, payment)
		if outcome == OutcomeRequeued && !w.breaker.Healthy() && w.opts.GateBackoff > 0 {
			sleepCtx(ctx, w.opts.GateBackoff)
		}
	}
}

// safeProcess mantém o worker vivo mesmo que process entre em pânico.
func (w *paymentWorker) safeProcess(ctx context.Context, payment domain.Payment) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("[WK:Payment:safeProcess] - Recovered from panic while processing payment",
				"correlation_id", payment.CorrelationId,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			outcome = OutcomePanicked
		}
		if w.opts.OnOutcome != nil {
			w.opts.OnOutcome(payment, outcome)
		}
	}()
	return w.process(ctx, payment)
}

func (w *paymentWorker) process(ctx context.Context, payment domain.Payment) Outcome {
	// 1. Circuito aberto: não tenta o processador.
	if !w.breaker.Healthy() {
		return w.retryOrDrop(payment, "backend_unhealthy")
	}

	// 2. Duplicidade.
	exists, err := w.repo.Exists(ctx, payment.CorrelationId)
	if err != nil && w.opts.DuplicateCheckPolicy == env.DUPLICATE_POLICY_CONSERVATIVE {
		slog.Warn("[WK:Payment:process:02] - Duplicate check failed, dropping payment", "correlation_id", payment.CorrelationId, "error", err)
		return OutcomeDropped
	}
	if exists {
		slog.Debug("[WK:Payment:process:02] - Payment already processed", "correlation_id", payment.CorrelationId)
		return OutcomeDuplicate
	}

	// 3. Envio.
	if !w.client.Send(ctx, payment, w.opts.Endpoint) {
		if w.breaker.TripWith(payment) {
			slog.Warn("[WK:Payment:process:03] - Payment processor marked unhealthy", "correlation_id", payment.CorrelationId)
		}
		return w.retryOrDrop(payment, "backend_call_failed")
	}

	// 4. Registro idempotente; só quem cria a chave incrementa os contadores.
	created, err := w.repo.RecordIfAbsent(ctx, payment.CorrelationId, payment.ToRecord())
	if err != nil {
		slog.Error("[WK:Payment:process:04] - Payment delivered but not recorded", "correlation_id", payment.CorrelationId, "error", err)
		return OutcomeDeliveredNotRecorded
	}
	if !created {
		return OutcomeDuplicate
	}
	if err := w.repo.IncrementSummary(ctx, payment.Amount.Decimal); err != nil {
		slog.Error("[WK:Payment:process:05] - Payment recorded but summary not incremented", "correlation_id", payment.CorrelationId, "error", err)
	}

	if w.breaker.RememberGood(payment) && w.repoHealth != nil {
		if err := w.repoHealth.SaveProbePayment(ctx, payment); err != nil {
			slog.Warn("[WK:Payment:process:06] - Probe payment not persisted", "correlation_id", payment.CorrelationId, "error", err)
		}
	}
	return OutcomeRecorded
}

func (w *paymentWorker) retryOrDrop(payment domain.Payment, reason string) Outcome {
	if !w.opts.RequeueOnFailure {
		slog.Debug("[WK:Payment:retryOrDrop] - Payment dropped", "correlation_id", payment.CorrelationId, "reason", reason)
		return OutcomeDropped
	}
	if !w.queue.Enqueue(payment) {
		slog.Warn("[WK:Payment:retryOrDrop] - Queue full, payment dropped instead of requeued", "correlation_id", payment.CorrelationId, "reason", reason)
		return OutcomeDropped
	}
	return OutcomeRequeued
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
