package service

import (
	"sync/atomic"

	"github.com/nicolasmmb/go-rinha-payment-dispatcher/internal/domain"
)

// CircuitBreaker guarda o estado de saúde do processador compartilhado entre
// os workers (que abrem o circuito) e o health check (que fecha).
// Leituras podem ficar até um intervalo de health check desatualizadas.
type CircuitBreaker struct {
	healthy  atomic.Bool
	lastGood atomic.Pointer[domain.Payment]
	// failed é o pagamento que abriu o circuito; só serve de sonda enquanto não há lastGood.
	failed atomic.Pointer[domain.Payment]
}

func NewCircuitBreaker() *CircuitBreaker {
	cb := &CircuitBreaker{}
	cb.healthy.Store(true)
	return cb
}

func (cb *CircuitBreaker) Healthy() bool {
	return cb.healthy.Load()
}

// Trip marks the processor unhealthy and reports whether this call changed the state.
func (cb *CircuitBreaker) Trip() bool {
	return cb.healthy.CompareAndSwap(true, false)
}

// TripWith is Trip that also keeps p as a probe payload for a cold start.
func (cb *CircuitBreaker) TripWith(p domain.Payment) bool {
	cb.failed.CompareAndSwap(nil, &p)
	return cb.Trip()
}

// Reset marks the processor healthy and reports whether this call changed the state.
func (cb *CircuitBreaker) Reset() bool {
	changed := cb.healthy.CompareAndSwap(false, true)
	if changed {
		cb.failed.Store(nil)
	}
	return changed
}

func (cb *CircuitBreaker) LastGood() *domain.Payment {
	return cb.lastGood.Load()
}

// RememberGood stores p as the probe payload only if none is known yet.
func (cb *CircuitBreaker) RememberGood(p domain.Payment) bool {
	return cb.lastGood.CompareAndSwap(nil, &p)
}

// ProbePayment prefere o último pagamento aceito; sem ele, usa o que abriu o circuito.
func (cb *CircuitBreaker) ProbePayment() *domain.Payment {
	if p := cb.lastGood.Load(); p != nil {
		return p
	}
	return cb.failed.Load()
}
