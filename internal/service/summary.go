package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nicolasmmb/go-rinha-payment-dispatcher/internal/core"
	"github.com/nicolasmmb/go-rinha-payment-dispatcher/internal/domain"
)

// SummaryAggregator reads the counters and absorbs read bursts with a short-lived snapshot.
// Only one refresh hits the store at a time; concurrent readers share its result.
type SummaryAggregator struct {
	repo core.PaymentRepositoryInterface
	ttl  time.Duration
	now  func() time.Time

	mu       sync.Mutex
	lastGood *domain.Summary
	cached   *domain.Summary
	cachedAt time.Time
	inflight *summaryRefresh
	gen      uint64
}

type summaryRefresh struct {
	done   chan struct{}
	result domain.Summary
}

func NewSummaryAggregator(repo core.PaymentRepositoryInterface, ttl time.Duration) *SummaryAggregator {
	return &SummaryAggregator{repo: repo, ttl: ttl, now: time.Now}
}

// Get nunca falha: com o Redis fora devolve o último snapshot bom ou zeros.
func (a *SummaryAggregator) Get(ctx context.Context) domain.Summary {
	a.mu.Lock()
	if a.cached != nil && a.ttl > 0 && a.now().Sub(a.cachedAt) < a.ttl {
		summary := *a.cached
		a.mu.Unlock()
		return summary
	}
	if call := a.inflight; call != nil {
		a.mu.Unlock()
		select {
		case <-call.done:
			return call.result
		case <-ctx.Done():
			return a.lastKnown()
		}
	}
	call := &summaryRefresh{done: make(chan struct{})}
	a.inflight = call
	gen := a.gen
	a.mu.Unlock()

	summary, err := a.load(ctx)

	a.mu.Lock()
	if err != nil {
		summary = a.fallbackLocked(err)
	} else {
		a.lastGood = &summary
	}
	if gen == a.gen {
		a.cached = &summary
		a.cachedAt = a.now()
	}
	a.inflight = nil
	a.mu.Unlock()

	call.result = summary
	close(call.done)
	return summary
}

// Invalidate descarta o snapshot em cache; um refresh em andamento não repovoa o cache.
func (a *SummaryAggregator) Invalidate() {
	a.mu.Lock()
	a.cached = nil
	a.gen++
	a.mu.Unlock()
}

func (a *SummaryAggregator) load(ctx context.Context) (domain.Summary, error) {
	count, err := a.repo.GetCount(ctx)
	if err != nil {
		return domain.Summary{}, err
	}
	amount, err := a.repo.GetAmount(ctx)
	if err != nil {
		return domain.Summary{}, err
	}
	return domain.Summary{
		Default: domain.SummaryItem{
			TotalRequests: count,
			TotalAmount:   domain.NewMoney(amount.Round(2)),
		},
	}, nil
}

func (a *SummaryAggregator) lastKnown() domain.Summary {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.lastGood != nil {
		return *a.lastGood
	}
	return domain.Summary{}
}

func (a *SummaryAggregator) fallbackLocked(err error) domain.Summary {
	if a.lastGood != nil {
		slog.Warn("[SV:Summary:Get] - Store unavailable, serving last snapshot", "error", err)
		return *a.lastGood
	}
	slog.Warn("[SV:Summary:Get] - Store unavailable, serving empty summary", "error", err)
	return domain.Summary{}
}
