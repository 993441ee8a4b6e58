// Package config provides configuration management for Crewdeck.
package config

import (
	"os"
	"strconv"
	"strings"
)

// Environment represents the deployment environment.
type Environment string

const (
	// EnvDevelopment is the default local development environment.
	EnvDevelopment Environment = "development"
	// EnvStaging is the staging/pre-production environment.
	EnvStaging Environment = "staging"
	// EnvProduction is the production environment.
	EnvProduction Environment = "production"
)

// ServerConfig holds server-level configuration loaded from environment variables.
type ServerConfig struct {
	Environment        Environment
	Port               int
	DatabaseURL        string
	BaseURL            string // external base URL used in invite links
	CORSOrigins        []string
	RateLimitRequests  int64
	RateLimitPeriod    string
	AuditRetentionDays int
	SettingsPath       string // optional YAML settings file (SMTP, invite tuning)
}

// LoadServerConfig reads server configuration from environment variables.
func LoadServerConfig() ServerConfig {
	env := Environment(os.Getenv("ENV"))
	switch env {
	case EnvDevelopment, EnvStaging, EnvProduction:
		// valid
	default:
		env = EnvDevelopment
	}

	port := getEnvInt("PORT", 8080)
	if port <= 0 || port > 65535 {
		port = 8080
	}

	retention := getEnvInt("AUDIT_RETENTION_DAYS", 365)
	if retention < 0 {
		retention = 365
	}

	rateRequests := int64(getEnvInt("RATE_LIMIT_REQUESTS", 100))
	if rateRequests <= 0 {
		rateRequests = 100
	}

	ratePeriod := os.Getenv("RATE_LIMIT_PERIOD")
	if ratePeriod == "" {
		ratePeriod = "1m"
	}

	var corsOrigins []string
	for _, origin := range strings.Split(os.Getenv("CORS_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			corsOrigins = append(corsOrigins, origin)
		}
	}

	return ServerConfig{
		Environment:        env,
		Port:               port,
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		BaseURL:            strings.TrimSuffix(os.Getenv("BASE_URL"), "/"),
		CORSOrigins:        corsOrigins,
		RateLimitRequests:  rateRequests,
		RateLimitPeriod:    ratePeriod,
		AuditRetentionDays: retention,
		SettingsPath:       os.Getenv("SETTINGS_PATH"),
	}
}

// getEnvInt reads an integer from an environment variable, returning the default if unset or invalid.
func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
