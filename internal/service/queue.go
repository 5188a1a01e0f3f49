package service

import (
	"context"
	"errors"
	"time"

	"github.com/nicolasmmb/go-rinha-payment-dispatcher/internal/domain"
)

const DEFAULT_QUEUE_SIZE = 10000

var ErrQueueFull = errors.New("payment queue is full")

// AdmissionQueue é o buffer limitado entre o HTTP e os workers.
// Enqueue nunca bloqueia: com a fila cheia o pagamento é descartado.
type AdmissionQueue struct {
	payments chan domain.Payment
}

func NewAdmissionQueue(size int) *AdmissionQueue {
	if size <= 0 {
		size = DEFAULT_QUEUE_SIZE
	}
	return &AdmissionQueue{payments: make(chan domain.Payment, size)}
}

func (q *AdmissionQueue) Enqueue(payment domain.Payment) bool {
	select {
	case q.payments <- payment:
		return true
	default:
		return false
	}
}

// Dequeue waits at most wait for a payment. ok is false on timeout or when ctx is done.
func (q *AdmissionQueue) Dequeue(ctx context.Context, wait time.Duration) (payment domain.Payment, ok bool) {
	select {
	case payment = <-q.payments:
		return payment, true
	default:
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case payment = <-q.payments:
		return payment, true
	case <-timer.C:
		return domain.Payment{}, false
	case <-ctx.Done():
		return domain.Payment{}, false
	}
}

func (q *AdmissionQueue) Len() int {
	return len(q.payments)
}

func (q *AdmissionQueue) Cap() int {
	return cap(q.payments)
}
