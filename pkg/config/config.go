package config

import "os"

// Config holds server settings. The JWT secret is read from the environment
// where it is used, by the auth handler and middleware.
type Config struct {
	Port      string
	Env       string
	MediaRoot string
}

func Load() *Config {
	return &Config{
		Port:      getEnv("PORT", "8080"),
		Env:       getEnv("ENV", "development"),
		MediaRoot: getEnv("MEDIA_ROOT", "./static/users"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
