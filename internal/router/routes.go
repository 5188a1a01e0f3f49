package router

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	json "github.com/json-iterator/go"

	"github.com/nicolasmmb/go-rinha-payment-dispatcher/internal/domain"
	"github.com/nicolasmmb/go-rinha-payment-dispatcher/internal/model"
	"github.com/nicolasmmb/go-rinha-payment-dispatcher/internal/service"
)

const (
	ROUTE_PAYMENT_SUMMARY = "GET /payments-summary"
	ROUTE_PAYMENT_GET     = "GET /payments" // Uses query param `correlation_id`
	ROUTE_PAYMENT_SAVE    = "POST /payments"
	ROUTE_PAYMENT_PURGE   = "POST /purge-payments"
	ROUTE_HEALTH_CHECK    = "GET /health"

	MAX_BODY_BYTES = 64 << 10
)

var errStoreUnavailable = errors.New("store unavailable")

type paymentHandler struct {
	Svc    *service.PaymentService
	strict bool
	now    func() time.Time
}

// NewPaymentHandler serve tanto net/http quanto fasthttp.
// strictCorrelationId exige que o correlationId seja um UUID.
func NewPaymentHandler(svc *service.PaymentService, strictCorrelationId bool) *paymentHandler {
	return &paymentHandler{Svc: svc, strict: strictCorrelationId, now: time.Now}
}

// admit decodifica o corpo e tenta enfileirar; devolve o status HTTP da resposta.
func (h *paymentHandler) admit(body []byte) (int, error) {
	var req model.PaymentRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return http.StatusBadRequest, errors.New("invalid request body")
	}
	payment, err := req.ToPayment(h.now(), h.strict)
	if err != nil {
		return http.StatusBadRequest, err
	}
	if !h.Svc.Enqueue(payment) {
		return http.StatusServiceUnavailable, service.ErrQueueFull
	}
	return http.StatusAccepted, nil
}

func (h *paymentHandler) lookup(record *domain.PaymentRecord, err error) (int, any) {
	if err != nil {
		return http.StatusServiceUnavailable, model.ErrorResponse{Error: errStoreUnavailable.Error()}
	}
	if record == nil {
		return http.StatusNotFound, model.ErrorResponse{Error: "payment not found"}
	}
	return http.StatusOK, record
}

func (h *paymentHandler) SavePayment(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, MAX_BODY_BYTES))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: "invalid request body"})
		return
	}

	status, err := h.admit(body)
	if err != nil {
		slog.Debug("[RT:Payment:SavePayment] - Payment not admitted", "status", status, "error", err)
		writeJSON(w, status, model.ErrorResponse{Error: err.Error()})
		return
	}
	w.WriteHeader(status)
}

// GetSummary aceita from/to mas os ignora: os contadores não são particionados por tempo.
func (h *paymentHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Svc.GetSummary(r.Context()))
}

func (h *paymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	correlationID := r.URL.Query().Get("correlation_id")
	if correlationID == "" {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: "correlation_id is required"})
		return
	}

	status, body := h.lookup(h.Svc.GetPayment(r.Context(), correlationID))
	writeJSON(w, status, body)
}

func (h *paymentHandler) ResetPayments(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.ResetState(r.Context()); err != nil {
		slog.Error("[RT:Payment:ResetPayments] - Failed to reset payments", "error", err)
		writeJSON(w, http.StatusInternalServerError, model.ErrorResponse{Error: "failed to reset payments"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *paymentHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.HealthResponse{
		BackendHealthy: h.Svc.BackendHealthy(),
		StoreHealthy:   h.Svc.StoreHealthy(r.Context()),
		Queued:         h.Svc.Queued(),
	})
}

func Routes(handler *paymentHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc(ROUTE_PAYMENT_SAVE, handler.SavePayment)
	mux.HandleFunc(ROUTE_PAYMENT_SUMMARY, handler.GetSummary)
	mux.HandleFunc(ROUTE_PAYMENT_GET, handler.GetPayment)
	mux.HandleFunc(ROUTE_PAYMENT_PURGE, handler.ResetPayments)
	mux.HandleFunc(ROUTE_HEALTH_CHECK, handler.HealthCheck)

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("[RT:writeJSON] - Failed to encode response", "error", err)
	}
}
