package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// Configはアプリ全体の設定
type Config struct {
	Port string `validate:"required"` // サーバーポート

	//DATABASE_URLがあるときは個別のPOSTGRES_*より優先する
	DatabaseURL string

	PostgresHost     string `validate:"required_without=DatabaseURL"`
	PostgresPort     int    `validate:"gte=0,lte=65535"`
	PostgresUser     string `validate:"required_without=DatabaseURL"`
	PostgresPassword string `validate:"required_without=DatabaseURL"`
	PostgresDB       string `validate:"required_without=DatabaseURL"`
	PostgresSSLMode  string `validate:"oneof=disable require verify-ca verify-full"`

	JWTSecret string `validate:"required"` // JWT署名シークレット

	GoEnv    string `validate:"oneof=dev stage prod"`
	LogLevel string `validate:"oneof=debug info warn error"`
}

// Loadは環境変数から設定を組み立てて検証する
func Load() (Config, error) {
	pgPort, err := atoiOr("POSTGRES_PORT", 5432)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port: getenv("PORT", "8080"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		PostgresHost:     getenv("POSTGRES_HOST", "localhost"),
		PostgresPort:     pgPort,
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		GoEnv:    getenv("GO_ENV", "dev"),
		LogLevel: getenv("LOG_LEVEL", "info"),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
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

func atoiOr(key string, def int) (int, error) {
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
