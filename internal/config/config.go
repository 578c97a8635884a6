package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	BotToken     string        `envconfig:"BOT_TOKEN" required:"true"`
	DBPath       string        `envconfig:"DB_PATH" default:"./data/tabex.db"`
	TickInterval time.Duration `envconfig:"TICK_INTERVAL" default:"60s"`
	LogLevel     string        `envconfig:"LOG_LEVEL" default:"info"` // debug|info|warn|error
	HTTPAddr     string        `envconfig:"HTTP_ADDR" default:":8080"`
}

// Load reads an optional .env file, then environment variables.
func Load() (Config, error) {
	// .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
