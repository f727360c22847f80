// Package config loads runtime configuration from the environment. A .env
// file is honored when present so local development needs no exported vars.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds every runtime knob of the server.
type Config struct {
	Port      string
	DataDir   string // JSON persistence and uploaded media
	LogFile   string // empty disables file logging
	Debug     bool
	JWTSecret string

	// Storage selects the persistence backend: "file" or "mongo".
	Storage string

	// Recognizer selects the speech engine: "script" or "google".
	Recognizer string

	// Language is the default recognition language code.
	Language string

	// VADFallbackSplits is the number of uniform intervals to emit when
	// energy gating finds no speech. Minimum 1.
	VADFallbackSplits int
}

// Load reads configuration, applying defaults for anything unset.
func Load() *Config {
	godotenv.Load()

	return &Config{
		Port:              getEnv("PORT", "8080"),
		DataDir:           getEnv("DATA_DIR", "data"),
		LogFile:           os.Getenv("LOG_FILE"),
		Debug:             getBool("DEBUG", false),
		JWTSecret:         getEnv("JWT_SECRET", "dev-secret-change-me"),
		Storage:           getEnv("STORAGE", "file"),
		Recognizer:        getEnv("RECOGNIZER", "script"),
		Language:          getEnv("LANGUAGE", "en-US"),
		VADFallbackSplits: getInt("VAD_FALLBACK_SPLITS", 3),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
