package config

import (
	"fmt"
	"os"
)

type Config struct {
	DBSource            string
	Port                string
	Env                 string
	BaseURL             string
	StripeSecretKey     string
	StripeWebhookSecret string
	LogLevel            string
	LogFormat           string
}

func Load() (*Config, error) {
	dbSource := os.Getenv("DB_SOURCE")
	if dbSource == "" {
		return nil, fmt.Errorf("DB_SOURCE environment variable is required")
	}

	stripeKey := os.Getenv("STRIPE_SECRET_KEY")
	if stripeKey == "" {
		return nil, fmt.Errorf("STRIPE_SECRET_KEY environment variable is required")
	}

	webhookSecret := os.Getenv("STRIPE_WEBHOOK_SECRET")
	if webhookSecret == "" {
		return nil, fmt.Errorf("STRIPE_WEBHOOK_SECRET environment variable is required")
	}

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:" + port
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	logFormat := os.Getenv("LOG_FORMAT")
	if logFormat == "" {
		logFormat = "text"
	}

	return &Config{
		DBSource:            dbSource,
		Port:                port,
		Env:                 env,
		BaseURL:             baseURL,
		StripeSecretKey:     stripeKey,
		StripeWebhookSecret: webhookSecret,
		LogLevel:            logLevel,
		LogFormat:           logFormat,
	}, nil
}
