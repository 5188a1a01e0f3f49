package env

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DUPLICATE_POLICY_OPTIMISTIC   = "optimistic"
	DUPLICATE_POLICY_CONSERVATIVE = "conservative"

	HTTP_ENGINE_NETHTTP  = "nethttp"
	HTTP_ENGINE_FASTHTTP = "fasthttp"
)

type values struct {
	SERVER_ADDR                   string
	SERVER_PORT                   int
	HTTP_ENGINE                   string
	REDIS_URI                     string
	PAYMENT_PROCESSOR_URL_DEFAULT string
	WORKER_POOL                   int
	PAYMENT_CHAN_SIZE             int
	PAYMENT_TIMEOUT               time.Duration
	DIAL_TIMEOUT                  time.Duration
	HEALTH_TIMEOUT                time.Duration
	HEALTH_CHECK_INTERVAL         time.Duration
	STORE_TIMEOUT                 time.Duration
	QUEUE_POLL_TIMEOUT            time.Duration
	GATE_BACKOFF                  time.Duration
	SUMMARY_CACHE_TTL             time.Duration
	ACCEPTED_STATUS_MAX           int
	REQUEUE_ON_FAILURE            bool
	DUPLICATE_CHECK_POLICY        string
	STRICT_CORRELATION_ID         bool
	LOG_LEVEL                     string
}

var Values = Defaults()

var durationType = reflect.TypeOf(time.Duration(0))

// Defaults devolve a configuração usada quando nenhuma variável está presente.
func Defaults() *values {
	return &values{
		SERVER_ADDR:                   "0.0.0.0",
		SERVER_PORT:                   9999,
		HTTP_ENGINE:                   HTTP_ENGINE_NETHTTP,
		REDIS_URI:                     "redis://localhost:6379",
		PAYMENT_PROCESSOR_URL_DEFAULT: "http://localhost:8001",
		WORKER_POOL:                   0,
		PAYMENT_CHAN_SIZE:             10000,
		PAYMENT_TIMEOUT:               1 * time.Second,
		DIAL_TIMEOUT:                  250 * time.Millisecond,
		HEALTH_TIMEOUT:                200 * time.Millisecond,
		HEALTH_CHECK_INTERVAL:         200 * time.Millisecond,
		STORE_TIMEOUT:                 100 * time.Millisecond,
		QUEUE_POLL_TIMEOUT:            500 * time.Millisecond,
		GATE_BACKOFF:                  5 * time.Millisecond,
		SUMMARY_CACHE_TTL:             50 * time.Millisecond,
		ACCEPTED_STATUS_MAX:           500,
		REQUEUE_ON_FAILURE:            true,
		DUPLICATE_CHECK_POLICY:        DUPLICATE_POLICY_OPTIMISTIC,
		STRICT_CORRELATION_ID:         false,
		LOG_LEVEL:                     "info",
	}
}

// DefaultWorkerPool follows the available parallelism, never below 8.
func DefaultWorkerPool() int {
	return max(8, runtime.GOMAXPROCS(0)*2)
}

func Load() error {
	// Carrega o arquivo .env, se existir.
	if err := godotenv.Load(); err != nil {
		log.Println("Aviso: Não foi possível carregar o arquivo .env. Usando variáveis de ambiente do sistema.")
	}
	return load(Values)
}

// load preenche dst a partir do ambiente; campos ausentes mantêm o default.
func load(dst *values) error {
	v := reflect.ValueOf(dst).Elem()
	t := v.Type()

	var invalid []string

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		envVarName := t.Field(i).Name // O nome do campo da struct é o nome da variável de ambiente.

		envVarValue, ok := os.LookupEnv(envVarName)
		if !ok || strings.TrimSpace(envVarValue) == "" {
			continue
		}
		envVarValue = strings.TrimSpace(envVarValue)

		// Duration é um int64 para o reflect, então precisa vir antes do switch.
		if field.Type() == durationType {
			d, err := parseDuration(envVarValue)
			if err != nil {
				invalid = append(invalid, envVarName)
				continue
			}
			field.SetInt(int64(d))
			continue
		}

		switch field.Kind() {
		case reflect.String:
			field.SetString(envVarValue)

		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			intValue, err := strconv.ParseInt(envVarValue, 10, 64)
			if err != nil {
				invalid = append(invalid, envVarName)
				continue
			}
			field.SetInt(intValue)

		case reflect.Bool:
			boolValue, err := strconv.ParseBool(envVarValue)
			if err != nil {
				invalid = append(invalid, envVarName)
				continue
			}
			field.SetBool(boolValue)
		}
	}

	if dst.WORKER_POOL <= 0 {
		dst.WORKER_POOL = DefaultWorkerPool()
	}
	if dst.PAYMENT_CHAN_SIZE <= 0 {
		dst.PAYMENT_CHAN_SIZE = Defaults().PAYMENT_CHAN_SIZE
	}
	dst.DUPLICATE_CHECK_POLICY = strings.ToLower(dst.DUPLICATE_CHECK_POLICY)
	if dst.DUPLICATE_CHECK_POLICY != DUPLICATE_POLICY_CONSERVATIVE {
		dst.DUPLICATE_CHECK_POLICY = DUPLICATE_POLICY_OPTIMISTIC
	}
	dst.HTTP_ENGINE = strings.ToLower(dst.HTTP_ENGINE)
	if dst.HTTP_ENGINE != HTTP_ENGINE_FASTHTTP {
		dst.HTTP_ENGINE = HTTP_ENGINE_NETHTTP
	}

	if len(invalid) > 0 {
		for i, v := range invalid {
			invalid[i] = "- " + v
		}
		return fmt.Errorf("some environment variables could not be parsed, defaults kept:\n%s", strings.Join(invalid, "\n"))
	}

	return nil
}

// parseDuration aceita "250ms", "1s" ou um inteiro em milissegundos.
func parseDuration(raw string) (time.Duration, error) {
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(raw)
}

func (v *values) ServerHost() string {
	return v.SERVER_ADDR + ":" + strconv.Itoa(v.SERVER_PORT)
}

func (v *values) SlogLevel() slog.Level {
	switch strings.ToLower(v.LOG_LEVEL) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func ShowEnvValues() {
	log.SetPrefix("Env: ")
	log.SetFlags(0)
	defer log.SetPrefix("")
	defer log.SetFlags(log.LstdFlags)
	defer log.Println("---------------------------------------------------------------------------------------------")

	log.Println("---------------------------------------------------------------------------------------------")
	v := reflect.ValueOf(Values).Elem()
	t := v.Type()

	// Encontra o comprimento do nome do campo mais longo para alinhamento.
	maxLength := 0
	for i := 0; i < t.NumField(); i++ {
		if len(t.Field(i).Name) > maxLength {
			maxLength = len(t.Field(i).Name)
		}
	}

	format := fmt.Sprintf("%%-%ds: %%v", maxLength)

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		log.Printf(format, t.Field(i).Name, field.Interface())
	}
}
