package config // package config loads application configuration from environment variables

import (
	"log"     // log reports configuration errors and halts execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"    // time parses duration values
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The booking core deliberately has no lazily
// initialized globals: main loads this once and wires every service from it.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	DBUser     string // database username
	DBPass     string // database password (optional)
	DBHost     string // primary (write) database host
	DBPort     string // primary database port
	DBReadHost string // replica (read) host; defaults to the primary host
	DBReadPort string // replica port; defaults to the primary port
	DBName     string // database name

	WritePoolSize int // warm connection handles in the WRITE pool
	ReadPoolSize  int // warm connection handles in the READ pool

	SeatLockTTL time.Duration // reservation lock TTL; abandoned holds self-heal after this
	BloomFPRate float64       // admission filter target false-positive rate
	BloomSpare  int           // extra filter capacity beyond the seats loaded at startup

	IdempotencyTTL time.Duration // how long replayable responses are kept

	AMQPURL string // broker URL; empty disables the async hand-off
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:  must("APP_ENV"),
		Port: must("APP_PORT"),

		DBUser:     must("DB_USER"),
		DBPass:     os.Getenv("DB_PASS"),
		DBHost:     must("DB_HOST"),
		DBPort:     must("DB_PORT"),
		DBReadHost: envStr("DB_READ_HOST", os.Getenv("DB_HOST")),
		DBReadPort: envStr("DB_READ_PORT", os.Getenv("DB_PORT")),
		DBName:     must("DB_NAME"),

		WritePoolSize: envInt("DB_WRITE_POOL_SIZE", 5),
		ReadPoolSize:  envInt("DB_READ_POOL_SIZE", 20),

		SeatLockTTL: envDur("SEAT_LOCK_TTL", 120*time.Second),
		BloomFPRate: envFloat("BLOOM_FP_RATE", 0.001),
		BloomSpare:  envInt("BLOOM_SPARE_CAPACITY", 1000),

		IdempotencyTTL: envDur("IDEMPOTENCY_TTL", 24*time.Hour),

		AMQPURL: amqpURL(),
	}
}

// amqpURL resolves the broker URL from either of the two conventional
// variables.  An empty result is valid: the payment path then falls back to
// synchronous booking creation.
func amqpURL() string {
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		return v
	}
	return os.Getenv("AMQP_URL")
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envFloat(k string, d float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 && f < 1 {
		return f
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
