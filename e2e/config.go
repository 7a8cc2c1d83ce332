package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_SERVER_ADDR is a running chat-gate gRPC endpoint. Suites skip when empty.
	ServerAddr string `envconfig:"E2E_SERVER_ADDR"`
	JWTSecret  string `envconfig:"E2E_JWT_SECRET"`
	JWTIssuer  string `envconfig:"E2E_JWT_ISSUER" default:"chat-gate"`
	// E2E_DEBUG_JSON allows dumping full gRPC request/response bodies as JSON
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
