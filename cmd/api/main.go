package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"os"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/nicolasmmb/go-rinha-payment-dispatcher/internal/config/env"
	"github.com/nicolasmmb/go-rinha-payment-dispatcher/internal/database"
	"github.com/nicolasmmb/go-rinha-payment-dispatcher/internal/repository/redis"
	"github.com/nicolasmmb/go-rinha-payment-dispatcher/internal/router"
	"github.com/nicolasmmb/go-rinha-payment-dispatcher/internal/service"
	"github.com/nicolasmmb/go-rinha-payment-dispatcher/internal/worker"
	"github.com/nicolasmmb/go-rinha-payment-dispatcher/libs"
)

func main() {
	if err := env.Load(); err != nil {
		log.Printf("Configuração parcialmente inválida, usando defaults: %v", err)
	}
	env.ShowEnvValues()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: env.Values.SlogLevel()})))

	rds, err := database.ConnectToRedisClient(env.Values.REDIS_URI, env.Values.STORE_TIMEOUT)
	if err != nil {
		log.Fatalf("Erro ao obter o cliente Redis: %v", err)
	}
	defer database.CloseRedisClient()

	// Repositories
	healthCheckRepo := redis.NewHealthCheckRepository(rds, env.Values.STORE_TIMEOUT)
	paymentRepo := redis.NewPaymentsRepository(rds, env.Values.STORE_TIMEOUT)

	// Pipeline
	breaker := service.NewCircuitBreaker()
	queue := service.NewAdmissionQueue(env.Values.PAYMENT_CHAN_SIZE)
	processor := service.NewProcessorClient(service.ProcessorClientOptions{
		PaymentTimeout:    env.Values.PAYMENT_TIMEOUT,
		HealthTimeout:     env.Values.HEALTH_TIMEOUT,
		DialTimeout:       env.Values.DIAL_TIMEOUT,
		AcceptedStatusMax: env.Values.ACCEPTED_STATUS_MAX,
	})
	summary := service.NewSummaryAggregator(paymentRepo, env.Values.SUMMARY_CACHE_TTL)
	paymentSvc := service.NewPaymentService(paymentRepo, healthCheckRepo, queue, breaker, summary)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Workers
	healthWorker := worker.NewHealthCheckWorker(healthCheckRepo, processor, breaker, env.Values.PAYMENT_PROCESSOR_URL_DEFAULT, env.Values.HEALTH_CHECK_INTERVAL)
	go healthWorker.Run(ctx)

	paymentWorker := worker.NewPaymentWorker(queue, breaker, processor, paymentRepo, healthCheckRepo, worker.PaymentWorkerOptions{
		Workers:              env.Values.WORKER_POOL,
		Endpoint:             env.Values.PAYMENT_PROCESSOR_URL_DEFAULT,
		PollTimeout:          env.Values.QUEUE_POLL_TIMEOUT,
		GateBackoff:          env.Values.GATE_BACKOFF,
		RequeueOnFailure:     env.Values.REQUEUE_ON_FAILURE,
		DuplicateCheckPolicy: env.Values.DUPLICATE_CHECK_POLICY,
	})
	paymentWorker.Run(ctx)

	paymentHandler := router.NewPaymentHandler(paymentSvc, env.Values.STRICT_CORRELATION_ID)
	SERVER_HOST := env.Values.ServerHost()

	switch env.Values.HTTP_ENGINE {
	case env.HTTP_ENGINE_FASTHTTP:
		server := &fasthttp.Server{
			Handler:      router.FastRoutes(paymentHandler).Handler,
			ReadTimeout:  1 * time.Second,
			WriteTimeout: 1 * time.Second,
			IdleTimeout:  30 * time.Second,
		}
		libs.GracefulShutdownFast(server, SERVER_HOST, time.Second*10)
	default:
		paymentRoutes := router.Routes(paymentHandler)
		paymentRoutes.HandleFunc("/debug/pprof/", pprof.Index)
		paymentRoutes.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		paymentRoutes.HandleFunc("/debug/pprof/profile", pprof.Profile)
		paymentRoutes.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		paymentRoutes.HandleFunc("/debug/pprof/trace", pprof.Trace)

		server := &http.Server{
			Addr:           SERVER_HOST,
			Handler:        paymentRoutes,
			ReadTimeout:    1 * time.Second,
			WriteTimeout:   1 * time.Second,
			IdleTimeout:    30 * time.Second,
			MaxHeaderBytes: 256 << 10, // 256 KB
		}
		libs.GracefulShutdown(server, time.Second*10)
	}

	cancel()
	paymentWorker.Wait()
	slog.Info("[MAIN] - Workers stopped", "queued", queue.Len())
}
