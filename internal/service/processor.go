package service

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	json "github.com/json-iterator/go"

	"github.com/nicolasmmb/go-rinha-payment-dispatcher/internal/domain"
)

const (
	PATH_PAYMENTS = "/payments"

	DEFAULT_PAYMENT_TIMEOUT     = 1 * time.Second
	DEFAULT_HEALTH_TIMEOUT      = 200 * time.Millisecond
	DEFAULT_DIAL_TIMEOUT        = 250 * time.Millisecond
	DEFAULT_ACCEPTED_STATUS_MAX = http.StatusInternalServerError
)

var HackBufferPool = sync.Pool{
	New: func() interface{} { return &bytes.Buffer{} },
}

type ProcessorClientOptions struct {
	PaymentTimeout time.Duration
	HealthTimeout  time.Duration
	DialTimeout    time.Duration
	// Status codes in [200, AcceptedStatusMax) count as handled by the processor.
	AcceptedStatusMax int
}

type ProcessorClient struct {
	httpClient        *http.Client
	paymentTimeout    time.Duration
	healthTimeout     time.Duration
	acceptedStatusMax int
}

func NewProcessorClient(opts ProcessorClientOptions) *ProcessorClient {
	if opts.PaymentTimeout <= 0 {
		opts.PaymentTimeout = DEFAULT_PAYMENT_TIMEOUT
	}
	if opts.HealthTimeout <= 0 {
		opts.HealthTimeout = DEFAULT_HEALTH_TIMEOUT
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = DEFAULT_DIAL_TIMEOUT
	}
	if opts.AcceptedStatusMax <= http.StatusOK {
		opts.AcceptedStatusMax = DEFAULT_ACCEPTED_STATUS_MAX
	}

	tr := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   opts.DialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		IdleConnTimeout:     60 * time.Second,
		MaxIdleConns:        256,
		MaxIdleConnsPerHost: 256,
		DisableKeepAlives:   false,
		DisableCompression:  true,
		ForceAttemptHTTP2:   false,
	}

	return &ProcessorClient{
		httpClient:        &http.Client{Transport: tr},
		paymentTimeout:    opts.PaymentTimeout,
		healthTimeout:     opts.HealthTimeout,
		acceptedStatusMax: opts.AcceptedStatusMax,
	}
}

// Send posta o pagamento em <endpoint>/payments. Timeout, erro de conexão e
// status fora da faixa aceita são todos tratados como falha.
func (pc *ProcessorClient) Send(ctx context.Context, payment domain.Payment, endpoint string) bool {
	return pc.post(ctx, payment, endpoint, pc.paymentTimeout)
}

// Probe is Send with the shorter health-check timeout.
func (pc *ProcessorClient) Probe(ctx context.Context, payment domain.Payment, endpoint string) bool {
	return pc.post(ctx, payment, endpoint, pc.healthTimeout)
}

func (pc *ProcessorClient) Accepted(status int) bool {
	return status >= http.StatusOK && status < pc.acceptedStatusMax
}

func (pc *ProcessorClient) post(ctx context.Context, payment domain.Payment, endpoint string, timeout time.Duration) bool {
	buf := HackBufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer HackBufferPool.Put(buf)

	if err := json.NewEncoder(buf).Encode(payment.ToProcessorPayment()); err != nil {
		slog.Error("[SV:Processor:post:01] - Failed to encode payment", "correlation_id", payment.CorrelationId, "error", err)
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := strings.TrimRight(endpoint, "/") + PATH_PAYMENTS
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, buf)
	if err != nil {
		slog.Error("[SV:Processor:post:02] - Failed to build request", "url", url, "error", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := pc.httpClient.Do(req)
	if err != nil {
		slog.Debug("[SV:Processor:post:03] - Request failed", "correlation_id", payment.CorrelationId, "error", err)
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if !pc.Accepted(resp.StatusCode) {
		slog.Debug("[SV:Processor:post:04] - Processor rejected payment", "correlation_id", payment.CorrelationId, "status", resp.StatusCode)
		return false
	}
	return true
}
