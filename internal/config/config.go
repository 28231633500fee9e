package config

import (
	"fmt"
	"os"
	"strconv"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	DatabaseURL      string // 設定されていればこちらを優先
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     int
	PostgresSSLMode  string

	JWTSecret string // JWT署名シークレット

	TaxRateBP             int64  // 税率（basis points。1000 = 10%）
	ShippingFeeCents      int64  // 固定送料
	FreeShippingThreshold int64  // この金額以上で送料無料
	Currency              string // 通貨コード
	DefaultLang           string // スナップショットに使う言語

	KafkaBrokers string // カンマ区切り。空ならイベント発行しない
}

// Loadは環境変数
func Load() (Config, error) {
	cfg := Config{
		Port: getenv("PORT", "8080"),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PostgresUser:     getenv("POSTGRES_USER", "postgres"),
		PostgresPassword: getenv("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:       getenv("POSTGRES_DB", "app"),
		PostgresHost:     getenv("POSTGRES_HOST", "localhost"),
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		Currency:    getenv("CURRENCY", "USD"),
		DefaultLang: getenv("DEFAULT_LANG", "en"),

		KafkaBrokers: os.Getenv("KAFKA_BROKERS"),
	}

	pgPort, err := atoiDefault("POSTGRES_PORT", 5432)
	if err != nil {
		return Config{}, err
	}
	cfg.PostgresPort = pgPort

	cfg.TaxRateBP, err = int64Default("TAX_RATE_BP", 1000)
	if err != nil {
		return Config{}, err
	}
	cfg.ShippingFeeCents, err = int64Default("SHIPPING_FEE_CENTS", 1000)
	if err != nil {
		return Config{}, err
	}
	cfg.FreeShippingThreshold, err = int64Default("FREE_SHIPPING_THRESHOLD_CENTS", 10000)
	if err != nil {
		return Config{}, err
	}

	//必須チェック
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func atoiDefault(key string, def int) (int, error) {
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

func int64Default(key string, def int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}
