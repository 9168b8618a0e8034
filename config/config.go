// Package config provides environment-driven configuration for the fieldmon
// auth core: database location, logging, token policy and cache lifetimes.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const name = "fieldmon"

type LogLevel string

const (
	Debug  LogLevel = "debug"
	Info   LogLevel = "info"
	Notice LogLevel = "notice"
	Warn   LogLevel = "warn"
	Error  LogLevel = "error"
)

// LoadEnvFile loads variables from the given .env file (or "./.env" when
// empty). A missing file is not an error; explicit environment wins.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}

func GetName() string {
	return name
}

func GetLogLevel() LogLevel {
	if IsDebug() {
		return Debug
	}
	logLevel := os.Getenv("FM_LOG_LEVEL")
	if logLevel == "" {
		return Info
	}
	return LogLevel(logLevel)
}

func IsDebug() bool {
	return os.Getenv("FM_DEBUG") == "true"
}

func GetDBFolderPath() string {
	dbFolderPath := os.Getenv("FM_DB_FOLDER")
	if dbFolderPath == "" {
		dbFolderPath = "/etc/fieldmon"
	}
	return dbFolderPath
}

func GetDBPath() string {
	return fmt.Sprintf("%s/%s.db", GetDBFolderPath(), GetName())
}

func GetLogFolder() string {
	logFolderPath := os.Getenv("FM_LOG_FOLDER")
	if logFolderPath == "" {
		logFolderPath = "/var/log"
	}
	return logFolderPath
}

// GetTokenSecret returns the HMAC key used to sign session tokens. The
// fallback is only suitable for development.
func GetTokenSecret() []byte {
	secret := os.Getenv("FM_TOKEN_SECRET")
	if secret == "" {
		secret = "dev-secret-change-me"
	}
	return []byte(secret)
}

// GetTokenLifetime returns the rolling validity window for session tokens.
// FM_TOKEN_HOURS overrides the default of 168 hours (7 days).
func GetTokenLifetime() time.Duration {
	if h := os.Getenv("FM_TOKEN_HOURS"); h != "" {
		if hours, err := strconv.Atoi(h); err == nil && hours > 0 {
			return time.Duration(hours) * time.Hour
		}
	}
	return 168 * time.Hour
}
