package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port int    `env:"PORT" envDefault:"8000"`
	Host string `env:"HOST" envDefault:"0.0.0.0"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &cfg, nil
}
