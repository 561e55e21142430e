package config

import (
	"os"
	"strconv"
)

// GetEnv returns the value of an environment variable, or the fallback if unset
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// GetEnvInt returns an integer environment variable, or the fallback if unset or invalid
func GetEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// GetEnvUint64 returns a uint64 environment variable, or the fallback if unset or invalid
// Used for amounts expressed in smallest currency units (e.g. the listing fee)
func GetEnvUint64(key string, fallback uint64) uint64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseUint(value, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
