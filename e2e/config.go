package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// OHTALK_ADDR targets a running server, an in-process one is started when empty
	Addr string `envconfig:"OHTALK_ADDR"`
	// E2E_COLOURS enables colorized step headers for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
	// E2E_LOG_LEVEL applies to the in-process server and the clients
	LogLevel string `envconfig:"E2E_LOG_LEVEL" default:"WARN"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
