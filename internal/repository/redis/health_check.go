package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/nicolasmmb/go-rinha-payment-dispatcher/internal/domain"
)

const RD_KEY_PROBE_PAYMENT = "health:default:probe"

// probePayment is the msgpack shape of the last known good payment.
type probePayment struct {
	CorrelationId string `msgpack:"c"`
	Amount        string `msgpack:"a"`
	RequestedAt   int64  `msgpack:"t"`
}

type healthCheckRedisRepository struct {
	db      *redis.Client
	timeout time.Duration
}

func NewHealthCheckRepository(db *redis.Client, timeout time.Duration) *healthCheckRedisRepository {
	if timeout <= 0 {
		timeout = DEFAULT_STORE_TIMEOUT
	}
	return &healthCheckRedisRepository{db: db, timeout: timeout}
}

func (r *healthCheckRedisRepository) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.db.Ping(ctx).Err(); err != nil {
		slog.Warn("[RP:HealthCheck:Ping] - Redis health check failed", "error", err)
		return err
	}
	return nil
}

// SaveProbePayment guarda o pagamento usado como payload do health check,
// para que uma nova instância consiga sondar o processador logo ao subir.
func (r *healthCheckRedisRepository) SaveProbePayment(ctx context.Context, payment domain.Payment) error {
	b, err := msgpack.Marshal(probePayment{
		CorrelationId: payment.CorrelationId,
		Amount:        payment.Amount.Decimal.String(),
		RequestedAt:   payment.RequestedAt.UnixNano(),
	})
	if err != nil {
		slog.Error("[RP:HealthCheck:SaveProbePayment:01] - Failed to marshal probe payment", "error", err)
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.db.Set(ctx, RD_KEY_PROBE_PAYMENT, b, 0).Err(); err != nil {
		slog.Warn("[RP:HealthCheck:SaveProbePayment:02] - Failed to save probe payment", "error", err)
		return err
	}
	slog.Debug("[RP:HealthCheck:SaveProbePayment] - Probe payment saved", "correlation_id", payment.CorrelationId)
	return nil
}

func (r *healthCheckRedisRepository) GetProbePayment(ctx context.Context) (*domain.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	data, err := r.db.Get(ctx, RD_KEY_PROBE_PAYMENT).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		slog.Warn("[RP:HealthCheck:GetProbePayment:01] - Failed to read probe payment", "error", err)
		return nil, err
	}

	var probe probePayment
	if err := msgpack.Unmarshal(data, &probe); err != nil {
		slog.Error("[RP:HealthCheck:GetProbePayment:02] - Failed to unmarshal probe payment", "error", err)
		return nil, err
	}

	amount, err := domain.ParseAmount(probe.Amount)
	if err != nil {
		return nil, err
	}
	payment, err := domain.NewPayment(probe.CorrelationId, amount, time.Unix(0, probe.RequestedAt))
	if err != nil {
		return nil, fmt.Errorf("stored probe payment is invalid: %w", err)
	}
	return &payment, nil
}
