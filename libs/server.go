package libs

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/valyala/fasthttp"
)

// waitForSignal bloqueia até receber SIGINT ou SIGTERM.
func waitForSignal() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
}

// GracefulShutdown inicia o servidor HTTP e gerencia seu desligamento gracioso.
// Ele escuta por sinais de interrupção (SIGINT, SIGTERM) e, quando recebidos,
// tenta desligar o servidor de forma segura em um tempo limite.
func GracefulShutdown(server *http.Server, timeout time.Duration) {
	go func() {
		log.Printf("🚀 Servidor HTTP (net/http) escutando em: %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Falha ao iniciar o servidor: %v", err)
		}
	}()

	waitForSignal()
	log.Println("🔌 Desligando o servidor...")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Erro no desligamento do servidor: %v", err)
		return
	}

	log.Println("✅ Servidor desligado com sucesso.")
}

// GracefulShutdownFast faz o mesmo para o engine fasthttp.
func GracefulShutdownFast(server *fasthttp.Server, addr string, timeout time.Duration) {
	go func() {
		log.Printf("🚀 Servidor HTTP (fasthttp) escutando em: %s", addr)
		if err := server.ListenAndServe(addr); err != nil {
			log.Fatalf("Falha ao iniciar o servidor: %v", err)
		}
	}()

	waitForSignal()
	log.Println("🔌 Desligando o servidor...")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.ShutdownWithContext(ctx); err != nil {
		log.Printf("Erro no desligamento do servidor: %v", err)
		return
	}

	log.Println("✅ Servidor desligado com sucesso.")
}
