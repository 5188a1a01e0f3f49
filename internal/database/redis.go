package database

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	client *redis.Client
	once   sync.Once

	err error
)

// NewRedisOptions monta as opções do cliente a partir de uma URI redis://.
// Os timeouts curtos fazem um Redis lento falhar rápido em vez de travar os workers.
func NewRedisOptions(uri string, timeout time.Duration) (*redis.Options, error) {
	opts, err := redis.ParseURL(uri)
	if err != nil {
		return nil, fmt.Errorf("URI do Redis inválida %q: %w", uri, err)
	}
	opts.PoolSize = 128
	opts.MinIdleConns = 16
	opts.MaxRetries = 0
	opts.DialTimeout = 4 * timeout
	opts.ReadTimeout = timeout
	opts.WriteTimeout = timeout
	opts.PoolTimeout = 4 * timeout
	opts.ContextTimeoutEnabled = true
	return opts, nil
}

// ConnectToRedisClient cria o cliente uma única vez. Uma falha no Ping não
// impede a inicialização: o pipeline degrada para os valores de fallback.
func ConnectToRedisClient(uri string, timeout time.Duration) (*redis.Client, error) {
	once.Do(func() {
		log.Println("⚙️  Iniciando conexão com o Redis...")

		if uri == "" {
			err = fmt.Errorf("cliente Redis não configurado: REDIS_URI vazio")
			log.Printf("❌ %s", err)
			return
		}

		opts, parseErr := NewRedisOptions(uri, timeout)
		if parseErr != nil {
			err = parseErr
			log.Printf("❌ %s", err)
			return
		}

		c := redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if pingErr := c.Ping(ctx).Err(); pingErr != nil {
			log.Printf("⚠️  Redis indisponível em %s, seguindo em modo degradado: %v", opts.Addr, pingErr)
		} else {
			log.Println("✅ Cliente Redis conectado e pronto para uso!")
		}
		client = c
	})

	return client, err
}

func CloseRedisClient() {
	if client != nil {
		if err := client.Close(); err != nil {
			log.Printf("Erro ao fechar o cliente Redis: %v", err)
		}
	}
}
