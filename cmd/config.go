package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string

	PollInterval    time.Duration
	StaleAfter      time.Duration
	SendTimeout     time.Duration
	LedgerRetention time.Duration
	// LedgerStore is "postgres" or "memory". The memory ledger only
	// deduplicates within one process.
	LedgerStore     string

	RabbitMQURL      string
	RabbitMQExchange string

	KafkaBrokers          []string
	KafkaOrderStatusTopic string

	CloudPrintBaseURL string
	LogLevel          string
	CurrencySymbol    string
}

// LoadEnvFile loads variables from path into the environment. A missing file
// is not an error; variables already set win over the file.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() (Config, error) {
	cfg := Config{
		HTTPPort:              envDefault("HTTP_PORT", "8080"),
		DBHost:                envDefault("DB_HOST", "localhost"),
		DBPort:                envDefault("DB_PORT", "5432"),
		DBUser:                os.Getenv("DB_USER"),
		DBPassword:            os.Getenv("DB_PASSWORD"),
		DBName:                os.Getenv("DB_NAME"),
		DBSslMode:             envDefault("DB_SSLMODE", "disable"),
		RabbitMQURL:           os.Getenv("RABBITMQ_URL"),
		RabbitMQExchange:      envDefault("RABBITMQ_LOYALTY_EXCHANGE", "loyalty"),
		KafkaBrokers:          csv(os.Getenv("KAFKA_BROKERS")),
		KafkaOrderStatusTopic: envDefault("KAFKA_ORDER_STATUS_TOPIC", "cafe.order-status"),
		CloudPrintBaseURL:     os.Getenv("CLOUD_PRINT_BASE_URL"),
		LedgerStore:           envDefault("PRINT_LEDGER_STORE", "postgres"),
		LogLevel:              envDefault("LOG_LEVEL", "info"),
		CurrencySymbol:        envDefault("CURRENCY_SYMBOL", "Rs."),
	}

	var errList []error
	var err error
	if cfg.PollInterval, err = envDuration("POLL_INTERVAL", 3*time.Second); err != nil {
		errList = append(errList, err)
	}
	if cfg.StaleAfter, err = envDuration("PRINT_STALE_AFTER", 5*time.Minute); err != nil {
		errList = append(errList, err)
	}
	if cfg.SendTimeout, err = envDuration("PRINT_SEND_TIMEOUT", 5*time.Second); err != nil {
		errList = append(errList, err)
	}
	if cfg.LedgerRetention, err = envDuration("PRINT_LEDGER_RETENTION", 24*time.Hour); err != nil {
		errList = append(errList, err)
	}
	if _, err := strconv.Atoi(cfg.HTTPPort); err != nil {
		errList = append(errList, fmt.Errorf("HTTP_PORT: %q is not a port", cfg.HTTPPort))
	}
	if cfg.LedgerStore != "postgres" && cfg.LedgerStore != "memory" {
		errList = append(errList, fmt.Errorf("PRINT_LEDGER_STORE: %q is neither postgres nor memory", cfg.LedgerStore))
	}
	if cfg.DBUser == "" || cfg.DBName == "" {
		errList = append(errList, errors.New("DB_USER and DB_NAME are required"))
	}

	if err := errors.Join(errList...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DSN is the postgres connection string shared by gorm, migrations and the
// LISTEN connection.
func (c Config) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     c.DBHost + ":" + c.DBPort,
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": []string{c.DBSslMode}}.Encode(),
	}
	return u.String()
}

func envDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %s", key, d)
	}
	return d, nil
}

func csv(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
