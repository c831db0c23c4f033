package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Configはアプリ全体の設定
type Config struct {
	Port     string // サーバーポート（8080）
	Storage  string // postgres / memory
	LogLevel string // DEBUG / INFO / WARN / ERROR

	Database DatabaseConfig

	JWTSecret string // JWT署名シークレット

	//注文1件あたりの送料
	ShippingFee decimal.Decimal

	//APPROVED からのキャンセルで在庫を戻すか
	RestoreStockOnCancel bool

	PaymentGatewayURL     string
	PaymentGatewayTimeout time.Duration

	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	URL string

	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

// DSN は DATABASE_URL があればそれを、無ければ POSTGRES_* から組み立てる。
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// Loadは環境変数から読む。.env の読み込みは main で行う。
func Load() (Config, error) {
	pgPort, err := getEnvInt("POSTGRES_PORT", 5432)
	if err != nil {
		return Config{}, err
	}
	maxOpen, err := getEnvInt("DATABASE_MAX_OPEN_CONNS", 25)
	if err != nil {
		return Config{}, err
	}
	maxIdle, err := getEnvInt("DATABASE_MAX_IDLE_CONNS", 5)
	if err != nil {
		return Config{}, err
	}
	lifetime, err := getEnvDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return Config{}, err
	}
	autoMigrate, err := getEnvBool("DB_AUTO_MIGRATE", false)
	if err != nil {
		return Config{}, err
	}
	restore, err := getEnvBool("RESTORE_STOCK_ON_CANCEL", false)
	if err != nil {
		return Config{}, err
	}
	gwTimeout, err := getEnvDuration("PAYMENT_GATEWAY_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, err
	}
	shutdown, err := getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, err
	}
	fee, err := decimal.NewFromString(getEnv("SHIPPING_FEE", "0"))
	if err != nil {
		return Config{}, fmt.Errorf("SHIPPING_FEE must be decimal: %w", err)
	}

	cfg := Config{
		Port:     getEnv("PORT", "8080"),
		Storage:  strings.ToLower(getEnv("STORAGE", StoragePostgres)),
		LogLevel: strings.ToUpper(getEnv("LOG_LEVEL", "INFO")),

		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			Host:            getEnv("POSTGRES_HOST", "localhost"),
			Port:            pgPort,
			User:            getEnv("POSTGRES_USER", "postgres"),
			Password:        getEnv("POSTGRES_PASSWORD", "postgres"),
			Name:            getEnv("POSTGRES_DB", "bookstore"),
			SSLMode:         getEnv("POSTGRES_SSLMODE", "disable"),
			MaxOpenConns:    maxOpen,
			MaxIdleConns:    maxIdle,
			ConnMaxLifetime: lifetime,
			AutoMigrate:     autoMigrate,
		},

		JWTSecret: os.Getenv("JWT_SECRET"),

		ShippingFee:          fee,
		RestoreStockOnCancel: restore,

		PaymentGatewayURL:     os.Getenv("PAYMENT_GATEWAY_URL"),
		PaymentGatewayTimeout: gwTimeout,

		ShutdownTimeout: shutdown,
	}

	//必須チェック
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.Storage != StoragePostgres && cfg.Storage != StorageMemory {
		return Config{}, fmt.Errorf("STORAGE must be %q or %q", StoragePostgres, StorageMemory)
	}
	if cfg.ShippingFee.IsNegative() {
		return Config{}, fmt.Errorf("SHIPPING_FEE must not be negative")
	}
	if cfg.PaymentGatewayURL != "" {
		if _, err := url.ParseRequestURI(cfg.PaymentGatewayURL); err != nil {
			return Config{}, fmt.Errorf("PAYMENT_GATEWAY_URL is invalid: %w", err)
		}
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func getEnvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be bool: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be duration: %w", key, err)
	}
	return d, nil
}
