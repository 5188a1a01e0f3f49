package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/nicolasmmb/go-rinha-payment-dispatcher/internal/core"
	"github.com/nicolasmmb/go-rinha-payment-dispatcher/internal/service"
)

const HEALTH_CHECK_INTERVAL = 200 * time.Millisecond

type healthCheckWorker struct {
	repo     core.HealthCheckRepositoryInterface
	client   core.ProcessorClientInterface
	breaker  *service.CircuitBreaker
	endpoint string
	interval time.Duration
}

func NewHealthCheckWorker(
	repo core.HealthCheckRepositoryInterface,
	client core.ProcessorClientInterface,
	breaker *service.CircuitBreaker,
	endpoint string,
	interval time.Duration,
) *healthCheckWorker {
	if interval <= 0 {
		interval = HEALTH_CHECK_INTERVAL
	}
	return &healthCheckWorker{
		repo:     repo,
		client:   client,
		breaker:  breaker,
		endpoint: endpoint,
		interval: interval,
	}
}

func (w *healthCheckWorker) Run(ctx context.Context) {
	w.restoreProbe(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("[WK:HealthCheck:Run] - Health check worker stopped")
			return
		case <-ticker.C:
			w.PerformHealthCheck(ctx)
		}
	}
}

// restoreProbe recupera o último pagamento bom persistido por outra instância ou execução anterior.
func (w *healthCheckWorker) restoreProbe(ctx context.Context) {
	if w.repo == nil || w.breaker.LastGood() != nil {
		return
	}
	probe, err := w.repo.GetProbePayment(ctx)
	if err != nil {
		slog.Warn("[WK:HealthCheck:restoreProbe] - Could not load probe payment", "error", err)
		return
	}
	if probe != nil && w.breaker.RememberGood(*probe) {
		slog.Info("[WK:HealthCheck:restoreProbe] - Probe payment restored", "correlation_id", probe.CorrelationId)
	}
}

// PerformHealthCheck reenvia o último pagamento aceito quando o circuito está aberto.
// Sem nenhum pagamento aceito ainda, sonda com o pagamento que abriu o circuito.
// Retorna true se o processador está (ou voltou a ficar) saudável.
func (w *healthCheckWorker) PerformHealthCheck(ctx context.Context) bool {
	if w.breaker.Healthy() {
		return true
	}

	if w.breaker.LastGood() == nil {
		w.restoreProbe(ctx)
	}
	probe := w.breaker.ProbePayment()
	if probe == nil {
		slog.Debug("[WK:HealthCheck:PerformHealthCheck] - No probe payment known yet")
		return false
	}

	if !w.client.Probe(ctx, *probe, w.endpoint) {
		slog.Debug("[WK:HealthCheck:PerformHealthCheck] - Payment processor still unhealthy")
		return false
	}

	if w.breaker.Reset() {
		slog.Info("[WK:HealthCheck:PerformHealthCheck] - Payment processor healthy again")
	}
	return true
}
