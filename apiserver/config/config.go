// Package config loads the submission endpoint's own bind address from the
// environment, optionally via a .env file, the way the teacher's
// walletserver config loader does.
package config

import (
	"github.com/joho/godotenv"

	"github.com/Crypto1-dev/CaciaCC/internal/envutil"
)

// ServerConfig holds the submission endpoint's listen address.
type ServerConfig struct {
	Addr string
}

// Load reads apiserver/.env if present, ignoring the error when the file is
// absent, and returns the resolved config, defaulting API_ADDR to
// 127.0.0.1:8000.
func Load() ServerConfig {
	_ = godotenv.Load("apiserver/.env")
	return ServerConfig{
		Addr: envutil.EnvOrDefault("API_ADDR", "127.0.0.1:8000"),
	}
}
