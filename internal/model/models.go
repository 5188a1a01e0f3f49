package model

import (
	"strings"
	"time"

	"github.com/nicolasmmb/go-rinha-payment-dispatcher/internal/domain"
)

type PaymentRequest struct {
	CorrelationID string       `json:"correlationId"`
	Amount        domain.Money `json:"amount"`
}

// ToPayment valida o corpo recebido e carimba o requestedAt da admissão.
func (r *PaymentRequest) ToPayment(now time.Time, strictCorrelationId bool) (domain.Payment, error) {
	payment, err := domain.NewPayment(strings.TrimSpace(r.CorrelationID), r.Amount, now)
	if err != nil {
		return domain.Payment{}, err
	}
	if strictCorrelationId && !payment.ValidateCorrelationId() {
		return domain.Payment{}, domain.ErrInvalidCorrelationId
	}
	return payment, nil
}

type HealthResponse struct {
	BackendHealthy bool `json:"backendHealthy"`
	StoreHealthy   bool `json:"storeHealthy"`
	Queued         int  `json:"queued"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
