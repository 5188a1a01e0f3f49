package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Layout used for requestedAt on the wire and in stored records.
const REQUESTED_AT_LAYOUT = time.RFC3339Nano

var (
	ErrInvalidCorrelationId = errors.New("invalid correlation id")
	ErrInvalidAmount        = errors.New("invalid amount")
)

// Money é um valor decimal exato. Serializa como número JSON com duas casas.
type Money struct {
	decimal.Decimal
}

func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d}
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.StringFixed(2)), nil
}

func (m Money) String() string {
	return m.StringFixed(2)
}

// ParseAmount aceita "19.90", "19.9" ou "19".
func ParseAmount(raw string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	return Money{Decimal: d}, nil
}

// Payment is immutable once built by NewPayment.
type Payment struct {
	CorrelationId string
	Amount        Money
	RequestedAt   time.Time
}

func NewPayment(correlationId string, amount Money, requestedAt time.Time) (Payment, error) {
	if strings.TrimSpace(correlationId) == "" {
		return Payment{}, ErrInvalidCorrelationId
	}
	if !amount.IsPositive() {
		return Payment{}, fmt.Errorf("%w: must be greater than zero", ErrInvalidAmount)
	}
	// Wire, registro e contador usam o mesmo valor: nada de frações de centavo.
	if !amount.Equal(amount.Truncate(2)) {
		return Payment{}, fmt.Errorf("%w: more than 2 decimal places", ErrInvalidAmount)
	}
	return Payment{
		CorrelationId: correlationId,
		Amount:        NewMoney(amount.Truncate(2)),
		RequestedAt:   requestedAt.UTC(),
	}, nil
}

func (p *Payment) ValidateCorrelationId() bool {
	_, err := uuid.Parse(p.CorrelationId)
	return err == nil
}

func (p *Payment) RequestedAtString() string {
	return p.RequestedAt.UTC().Format(REQUESTED_AT_LAYOUT)
}

// ProcessorPayment is the body posted to the payment processor.
type ProcessorPayment struct {
	CorrelationId string `json:"correlationId"`
	Amount        Money  `json:"amount"`
	RequestedAt   string `json:"requestedAt"`
}

func (p *Payment) ToProcessorPayment() ProcessorPayment {
	return ProcessorPayment{
		CorrelationId: p.CorrelationId,
		Amount:        p.Amount,
		RequestedAt:   p.RequestedAtString(),
	}
}

// PaymentRecord is the value stored under the correlation id.
type PaymentRecord struct {
	RequestedAt string `json:"requestedAt"`
	Amount      string `json:"amount"`
}

func (p *Payment) ToRecord() PaymentRecord {
	return PaymentRecord{
		RequestedAt: p.RequestedAtString(),
		Amount:      p.Amount.String(),
	}
}
