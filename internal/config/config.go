package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the ODCV analytics service
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Analysis AnalysisConfig `yaml:"analysis"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port        int    `yaml:"port"`
	Environment string `yaml:"environment"`
}

// StorageConfig holds dataset storage configuration
type StorageConfig struct {
	Type     string `yaml:"type"` // memory, sqlite
	DataPath string `yaml:"data_path"`
}

// IngestConfig holds CSV ingestion configuration
type IngestConfig struct {
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

// AnalysisConfig holds analysis defaults
type AnalysisConfig struct {
	DefaultPeriod  string        `yaml:"default_period"`
	DefaultProfile string        `yaml:"default_profile"`
	GapThreshold   time.Duration `yaml:"gap_threshold"`

	// Correlation band treated as healthy coupling, in percent.
	CorrelationGoodMin float64 `yaml:"correlation_good_min"`
	CorrelationGoodMax float64 `yaml:"correlation_good_max"`

	// Assumed VAV airflow cutback while a zone sits in standby.
	AirflowReductionFactor float64 `yaml:"airflow_reduction_factor"`

	// Expected reporting cadence used for data-quality scoring.
	SensorPointsPerMinute float64 `yaml:"sensor_points_per_minute"`
	ZonePointsPerMinute   float64 `yaml:"zone_points_per_minute"`

	// Explicit sensor-to-zone mapping. When set it overrides the automatic
	// name-based pairing.
	Pairs map[string]string `yaml:"pairs"`
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := LoadFromEnv()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        getEnvInt("PORT", 8000),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Storage: StorageConfig{
			Type:     getEnv("STORAGE_TYPE", "memory"),
			DataPath: getEnv("STORAGE_DATA_PATH", "./data"),
		},
		Ingest: IngestConfig{
			MaxUploadBytes: int64(getEnvInt("INGEST_MAX_UPLOAD_BYTES", 64<<20)),
		},
		Analysis: AnalysisConfig{
			DefaultPeriod:          getEnv("ANALYSIS_DEFAULT_PERIOD", "24h"),
			DefaultProfile:         getEnv("ANALYSIS_DEFAULT_PROFILE", "default"),
			GapThreshold:           getEnvDuration("ANALYSIS_GAP_THRESHOLD", 5*time.Minute),
			CorrelationGoodMin:     getEnvFloat("ANALYSIS_CORRELATION_GOOD_MIN", 80),
			CorrelationGoodMax:     getEnvFloat("ANALYSIS_CORRELATION_GOOD_MAX", 120),
			AirflowReductionFactor: getEnvFloat("ANALYSIS_AIRFLOW_FACTOR", 0.75),
			SensorPointsPerMinute:  getEnvFloat("ANALYSIS_SENSOR_POINTS_PER_MIN", 2),
			ZonePointsPerMinute:    getEnvFloat("ANALYSIS_ZONE_POINTS_PER_MIN", 1),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
