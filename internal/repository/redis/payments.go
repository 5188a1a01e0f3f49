package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	json "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/nicolasmmb/go-rinha-payment-dispatcher/internal/domain"
)

const (
	RD_KEY_TOTAL_REQUESTS = "summary:default:totalRequests"
	RD_KEY_TOTAL_AMOUNT   = "summary:default:totalAmount"

	DEFAULT_STORE_TIMEOUT = 100 * time.Millisecond
	resetScanCount        = 500
)

type paymentsRedisRepository struct {
	db      *redis.Client
	timeout time.Duration
}

func NewPaymentsRepository(db *redis.Client, timeout time.Duration) *paymentsRedisRepository {
	if timeout <= 0 {
		timeout = DEFAULT_STORE_TIMEOUT
	}
	return &paymentsRedisRepository{db: db, timeout: timeout}
}

func (r *paymentsRedisRepository) Exists(ctx context.Context, correlationId string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	n, err := r.db.Exists(ctx, correlationId).Result()
	if err != nil {
		slog.Warn("[RP:Payment:Exists] - Failed to check payment", "correlation_id", correlationId, "error", err)
		return false, err
	}
	return n > 0, nil
}

// RecordIfAbsent grava o registro com SETNX. created só é true para quem criou a chave.
func (r *paymentsRedisRepository) RecordIfAbsent(ctx context.Context, correlationId string, record domain.PaymentRecord) (bool, error) {
	b, err := json.Marshal(record)
	if err != nil {
		slog.Error("[RP:Payment:RecordIfAbsent:01] - Failed to marshal record", "correlation_id", correlationId, "error", err)
		return false, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	created, err := r.db.SetNX(ctx, correlationId, b, 0).Result()
	if err != nil {
		slog.Error("[RP:Payment:RecordIfAbsent:02] - Failed to save payment to Redis", "correlation_id", correlationId, "error", err)
		return false, err
	}
	return created, nil
}

func (r *paymentsRedisRepository) IncrementCount(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	n, err := r.db.Incr(ctx, RD_KEY_TOTAL_REQUESTS).Result()
	if err != nil {
		slog.Warn("[RP:Payment:IncrementCount] - Failed to increment request counter", "error", err)
		return 0, err
	}
	return n, nil
}

// IncrementAmount envia o decimal como string para o INCRBYFLOAT, sem passar por float64.
func (r *paymentsRedisRepository) IncrementAmount(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	raw, err := r.db.Do(ctx, "INCRBYFLOAT", RD_KEY_TOTAL_AMOUNT, amount.String()).Text()
	if err != nil {
		slog.Warn("[RP:Payment:IncrementAmount:01] - Failed to increment amount counter", "error", err)
		return decimal.Zero, err
	}
	total, err := decimal.NewFromString(raw)
	if err != nil {
		slog.Warn("[RP:Payment:IncrementAmount:02] - Unparseable amount counter", "value", raw, "error", err)
		return decimal.Zero, err
	}
	return total, nil
}

// IncrementSummary aplica os dois contadores numa única transação MULTI/EXEC.
func (r *paymentsRedisRepository) IncrementSummary(ctx context.Context, amount decimal.Decimal) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, RD_KEY_TOTAL_REQUESTS)
		pipe.Do(ctx, "INCRBYFLOAT", RD_KEY_TOTAL_AMOUNT, amount.String())
		return nil
	})
	if err != nil {
		slog.Warn("[RP:Payment:IncrementSummary] - Failed to increment summary", "amount", amount.String(), "error", err)
		return err
	}
	return nil
}

func (r *paymentsRedisRepository) GetCount(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	n, err := r.db.Get(ctx, RD_KEY_TOTAL_REQUESTS).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		slog.Warn("[RP:Payment:GetCount] - Failed to read request counter", "error", err)
		return 0, err
	}
	return n, nil
}

func (r *paymentsRedisRepository) GetAmount(ctx context.Context) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	raw, err := r.db.Get(ctx, RD_KEY_TOTAL_AMOUNT).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return decimal.Zero, nil
		}
		slog.Warn("[RP:Payment:GetAmount:01] - Failed to read amount counter", "error", err)
		return decimal.Zero, err
	}
	total, err := decimal.NewFromString(raw)
	if err != nil {
		slog.Warn("[RP:Payment:GetAmount:02] - Unparseable amount counter", "value", raw, "error", err)
		return decimal.Zero, err
	}
	return total, nil
}

func (r *paymentsRedisRepository) GetRecord(ctx context.Context, correlationId string) (*domain.PaymentRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	data, err := r.db.Get(ctx, correlationId).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		slog.Error("[RP:Payment:GetRecord:01] - Failed to get payment from Redis", "correlation_id", correlationId, "error", err)
		return nil, err
	}

	var record domain.PaymentRecord
	if err := json.Unmarshal(data, &record); err != nil {
		slog.Error("[RP:Payment:GetRecord:02] - Failed to unmarshal payment data", "correlation_id", correlationId, "error", err)
		return nil, fmt.Errorf("decode record %s: %w", correlationId, err)
	}
	return &record, nil
}

// ResetState apaga todas as chaves do banco atual: registros e contadores.
// Não usa o timeout curto das demais operações.
func (r *paymentsRedisRepository) ResetState(ctx context.Context) error {
	slog.Info("[RP:Payment:ResetState] - Resetting payment state in Redis")

	var cursor uint64
	deleted := 0
	for {
		keys, next, err := r.db.Scan(ctx, cursor, "*", resetScanCount).Result()
		if err != nil {
			slog.Error("[RP:Payment:ResetState:01] - Error during Redis SCAN", "error", err)
			return err
		}
		if len(keys) > 0 {
			if err := r.db.Del(ctx, keys...).Err(); err != nil {
				slog.Error("[RP:Payment:ResetState:02] - Failed to delete keys from Redis", "count", len(keys), "error", err)
				return err
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	slog.Info("[RP:Payment:ResetState:03] - Payment state purged", "deleted", deleted)
	return nil
}
