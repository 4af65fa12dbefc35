package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads .env.local then .env from the working directory.
// Already-set variables are never overwritten, so the process environment
// wins over .env.local, which wins over .env. Returns the files loaded.
func LoadDotEnv() []string {
	var loaded []string
	for _, f := range []string{".env.local", ".env"} {
		if _, err := os.Stat(f); err == nil {
			loaded = append(loaded, f)
		}
	}
	if len(loaded) > 0 {
		_ = godotenv.Load(loaded...)
	}
	return loaded
}

// Env returns APP_ENV, defaulting to "local"
func Env() string {
	if env := os.Getenv("APP_ENV"); env != "" {
		return env
	}
	return "local"
}

// Path returns the config file path for the given environment
func Path(env string) string {
	return fmt.Sprintf("configs/config.%s.yaml", env)
}
