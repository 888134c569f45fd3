// Package config defines the configuration for the EcoShore risk service.
// Configuration is loaded once at process initialization and is immutable
// thereafter. Values come from the OS environment with a .env overlay
// (environment wins); any missing required value or invalid format fails
// startup immediately.
package config

import "time"

// Config is the top-level configuration struct. It is populated once during
// process initialization and never modified. Sub-components receive only the
// subsets they require.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"ecoshore-risk-service"`
	Version     string `envconfig:"SERVICE_VERSION" default:"1.0.0"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	Server   ServerConfig
	Database DatabaseConfig
	Models   ModelsConfig
	Training TrainingConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port               string        `envconfig:"PORT" default:"5001"`
	ReadTimeout        time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"10s"`
	WriteTimeout       time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout    time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`
	CorsAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:4000,http://localhost:5173,http://localhost:3000"`
}

// DatabaseConfig holds the historical-store connection and pool tuning
// parameters. The URL may be empty: the service then runs without a store
// and training falls back to synthetic data.
type DatabaseConfig struct {
	URL string `envconfig:"DATABASE_URL"`

	MaxConns        int           `envconfig:"DB_MAX_CONNS" default:"4"`
	MinConns        int           `envconfig:"DB_MIN_CONNS" default:"0"`
	MaxConnLifetime time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	ConnectTimeout  time.Duration `envconfig:"DB_CONNECT_TIMEOUT" default:"5s"`
}

// ModelsConfig holds the durable model artifact store configuration.
type ModelsConfig struct {
	Dir string `envconfig:"MODELS_DIR" default:"models" validate:"required"`
}

// TrainingConfig holds training trigger and synthesis parameters.
//
// SecretHash is the bcrypt hash of the X-Train-Secret value authorized to
// trigger retraining. Storing a hash rather than the plaintext keeps the
// credential out of process listings and logs.
type TrainingConfig struct {
	SecretHash       string `envconfig:"ML_TRAIN_SECRET_HASH" validate:"required"`
	SyntheticSamples int    `envconfig:"TRAINING_SYNTHETIC_SAMPLES" default:"500" validate:"gte=50"`
}
