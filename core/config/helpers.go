package config

import (
	"os"
	"strconv"
	"strings"
)

// GetAllSettings returns the effective typing settings, for status output.
func GetAllSettings() map[string]any {
	if Global == nil {
		return map[string]any{}
	}
	return map[string]any{
		"typing_idle_timeout_ms":     Global.Typing.IdleTimeoutMs,
		"typing_expiry_timeout_ms":   Global.Typing.ExpiryTimeoutMs,
		"typing_refresh_interval_ms": Global.Typing.RefreshIntervalMs,
		"typing_topic_case_fold":     Global.Typing.TopicCaseFold,
		"typing_store":               Global.Typing.Store,
		"app_debug":                  Global.App.Debug,
		"app_version":                Global.App.Version,
	}
}

// Helpers
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		vLower := strings.ToLower(v)
		return vLower == "1" || vLower == "true" || vLower == "yes" || vLower == "on"
	}
	return fallback
}
