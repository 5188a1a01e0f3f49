package router

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/fasthttp/router"
	json "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"

	"github.com/nicolasmmb/go-rinha-payment-dispatcher/internal/model"
)

const CONTENT_TYPE_JSON = "application/json"

// FastRoutes registra as mesmas rotas de Routes para o engine fasthttp.
func FastRoutes(handler *paymentHandler) *router.Router {
	r := router.New()
	r.POST("/payments", handler.FastSavePayment)
	r.GET("/payments-summary", handler.FastGetSummary)
	r.GET("/payments", handler.FastGetPayment)
	r.POST("/purge-payments", handler.FastResetPayments)
	r.GET("/health", handler.FastHealthCheck)
	return r
}

// O RequestCtx é reciclado pelo servidor depois do handler; as chamadas ao
// store usam um contexto próprio, já limitado pelo timeout do repositório.
func storeContext() context.Context {
	return context.Background()
}

func (h *paymentHandler) FastSavePayment(ctx *fasthttp.RequestCtx) {
	status, err := h.admit(ctx.PostBody())
	if err != nil {
		slog.Debug("[RT:Payment:FastSavePayment] - Payment not admitted", "status", status, "error", err)
		writeFastJSON(ctx, status, model.ErrorResponse{Error: err.Error()})
		return
	}
	ctx.SetStatusCode(status)
}

func (h *paymentHandler) FastGetSummary(ctx *fasthttp.RequestCtx) {
	writeFastJSON(ctx, http.StatusOK, h.Svc.GetSummary(storeContext()))
}

func (h *paymentHandler) FastGetPayment(ctx *fasthttp.RequestCtx) {
	correlationID := string(ctx.QueryArgs().Peek("correlation_id"))
	if correlationID == "" {
		writeFastJSON(ctx, http.StatusBadRequest, model.ErrorResponse{Error: "correlation_id is required"})
		return
	}

	status, body := h.lookup(h.Svc.GetPayment(storeContext(), correlationID))
	writeFastJSON(ctx, status, body)
}

func (h *paymentHandler) FastResetPayments(ctx *fasthttp.RequestCtx) {
	if err := h.Svc.ResetState(storeContext()); err != nil {
		slog.Error("[RT:Payment:FastResetPayments] - Failed to reset payments", "error", err)
		writeFastJSON(ctx, http.StatusInternalServerError, model.ErrorResponse{Error: "failed to reset payments"})
		return
	}
	ctx.SetStatusCode(http.StatusNoContent)
}

func (h *paymentHandler) FastHealthCheck(ctx *fasthttp.RequestCtx) {
	writeFastJSON(ctx, http.StatusOK, model.HealthResponse{
		BackendHealthy: h.Svc.BackendHealthy(),
		StoreHealthy:   h.Svc.StoreHealthy(storeContext()),
		Queued:         h.Svc.Queued(),
	})
}

func writeFastJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		slog.Error("[RT:writeFastJSON] - Failed to encode response", "error", err)
		ctx.SetStatusCode(http.StatusInternalServerError)
		return
	}
	ctx.SetContentType(CONTENT_TYPE_JSON)
	ctx.SetStatusCode(status)
	ctx.SetBody(body)
}
