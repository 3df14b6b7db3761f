// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir                string  // Base directory for all databases (defaults to "./data", always absolute)
	Port                   int
	LogLevel               string
	DevMode                bool
	CropCatalogFile        string  // Optional YAML file overriding the built-in crop catalog
	DefaultRegion          string  // Region label stamped on reports when the caller gives none
	PriceAlertThresholdPct float64 // Deviation from baseline price that raises an alert
	RetentionDays          int     // Weather and price observations older than this are pruned
	SnapshotKeep           int     // Advisory snapshots retained per farmer
	Backup                 *BackupConfig
}

// BackupConfig holds off-site database backup settings. Archives are uploaded
// to any S3-compatible object store (R2, MinIO, AWS).
type BackupConfig struct {
	Enabled         bool
	Endpoint        string // Custom endpoint URL; empty means plain AWS S3
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Retain          int // Number of remote archives to keep
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Determine data directory with fallback logic
	// 1. Check AGRISAGE_DATA_DIR environment variable
	// 2. If not set, default to ./data
	// 3. Always resolve to absolute path
	// 4. Ensure directory exists
	dataDir := getEnv("AGRISAGE_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:                absDataDir,
		Port:                   getEnvAsInt("AGRISAGE_PORT", 8080),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		DevMode:                getEnvAsBool("DEV_MODE", false),
		CropCatalogFile:        getEnv("CROP_CATALOG_FILE", ""),
		DefaultRegion:          getEnv("DEFAULT_REGION", "Vijayawada"),
		PriceAlertThresholdPct: getEnvAsFloat("PRICE_ALERT_THRESHOLD_PCT", 10.0),
		RetentionDays:          getEnvAsInt("RETENTION_DAYS", 365),
		SnapshotKeep:           getEnvAsInt("SNAPSHOT_KEEP", 30),
		Backup:                 loadBackupConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.PriceAlertThresholdPct <= 0 {
		return fmt.Errorf("price alert threshold must be positive, got %.2f", c.PriceAlertThresholdPct)
	}
	if c.RetentionDays < 1 {
		return fmt.Errorf("retention must be at least one day, got %d", c.RetentionDays)
	}
	if c.SnapshotKeep < 1 {
		return fmt.Errorf("snapshot keep must be at least one, got %d", c.SnapshotKeep)
	}

	// Backup settings are only checked when backups are switched on
	if c.Backup != nil && c.Backup.Enabled {
		if c.Backup.Bucket == "" {
			return fmt.Errorf("BACKUP_S3_BUCKET is required when backups are enabled")
		}
		if c.Backup.AccessKeyID == "" || c.Backup.SecretAccessKey == "" {
			return fmt.Errorf("backup S3 credentials are required when backups are enabled")
		}
	}

	return nil
}

// loadBackupConfig loads backup settings; disabled unless BACKUP_ENABLED is set
func loadBackupConfig() *BackupConfig {
	return &BackupConfig{
		Enabled:         getEnvAsBool("BACKUP_ENABLED", false),
		Endpoint:        getEnv("BACKUP_S3_ENDPOINT", ""),
		Region:          getEnv("BACKUP_S3_REGION", "auto"),
		Bucket:          getEnv("BACKUP_S3_BUCKET", ""),
		AccessKeyID:     getEnv("BACKUP_S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("BACKUP_S3_SECRET_ACCESS_KEY", ""),
		Retain:          getEnvAsInt("BACKUP_RETAIN", 14),
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
