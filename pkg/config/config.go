package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/dreschagin/jenkins-collector/internal/domain/valueobject"
)

type Config struct {
	Jenkins   JenkinsConfig
	Influx    InfluxConfig
	Collector CollectorConfig
	Redis     RedisConfig
	NATS      NATSConfig
}

type JenkinsConfig struct {
	URL            string
	User           string
	Token          string
	Instance       string
	RequestTimeout time.Duration
	RateLimit      float64
	RateBurst      int
}

type InfluxConfig struct {
	URL            string
	Database       string
	Measurement    string
	RequestTimeout time.Duration
}

type CollectorConfig struct {
	Profile           valueobject.Profile
	ExcludedViews     []string
	MaxConcurrentJobs int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	TTL      time.Duration
}

type NATSConfig struct {
	Enabled bool
	URL     string
	Subject string
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	jenkinsTimeout, err := time.ParseDuration(getEnv("JENKINS_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid JENKINS_TIMEOUT: %w", err)
	}

	influxTimeout, err := time.ParseDuration(getEnv("INFLUX_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid INFLUX_TIMEOUT: %w", err)
	}

	rateLimit, err := strconv.ParseFloat(getEnv("JENKINS_RATE_LIMIT", "10"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid JENKINS_RATE_LIMIT: %w", err)
	}

	maxConcurrentJobs, err := strconv.Atoi(getEnv("MAX_CONCURRENT_JOBS", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_CONCURRENT_JOBS: %w", err)
	}
	if maxConcurrentJobs < 1 {
		maxConcurrentJobs = 1
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	redisTTL, err := time.ParseDuration(getEnv("REDIS_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_TTL: %w", err)
	}

	cfg := &Config{
		Jenkins: JenkinsConfig{
			URL:            strings.TrimRight(getEnv("JENKINS_URL", ""), "/"),
			User:           getEnv("JENKINS_USER", ""),
			Token:          getEnv("JENKINS_TOKEN", ""),
			Instance:       getEnv("JENKINS_INSTANCE", ""),
			RequestTimeout: jenkinsTimeout,
			RateLimit:      rateLimit,
			RateBurst:      1,
		},
		Influx: InfluxConfig{
			URL:            strings.TrimRight(getEnv("INFLUX_URL", ""), "/"),
			Database:       getEnv("INFLUX_DB", "jenkins"),
			Measurement:    getEnv("MEASUREMENT", "jenkins_custom_data"),
			RequestTimeout: influxTimeout,
		},
		Collector: CollectorConfig{
			Profile:           valueobject.Profile(getEnv("COLLECTOR_PROFILE", string(valueobject.ProfileUserDetail))),
			ExcludedViews:     splitCSV(getEnv("EXCLUDED_VIEWS", "monitoring")),
			MaxConcurrentJobs: maxConcurrentJobs,
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
			TTL:      redisTTL,
		},
		NATS: NATSConfig{
			Enabled: getEnvBool("NATS_ENABLED", false),
			URL:     getEnv("NATS_URL", "nats://localhost:4222"),
			Subject: getEnv("NATS_SUBJECT", "builds.ingested"),
		},
	}

	// Обязательные параметры: без них не делаем ни одного сетевого вызова
	if cfg.Jenkins.URL == "" {
		return nil, fmt.Errorf("JENKINS_URL environment variable is required but not set")
	}
	if cfg.Jenkins.User == "" {
		return nil, fmt.Errorf("JENKINS_USER environment variable is required but not set")
	}
	if cfg.Jenkins.Token == "" {
		return nil, fmt.Errorf("JENKINS_TOKEN environment variable is required but not set")
	}
	if cfg.Influx.URL == "" {
		return nil, fmt.Errorf("INFLUX_URL environment variable is required but not set")
	}

	if err := cfg.Collector.Profile.Validate(); err != nil {
		return nil, fmt.Errorf("invalid COLLECTOR_PROFILE: %w", err)
	}
	if cfg.Collector.Profile == valueobject.ProfileMultiInstance && cfg.Jenkins.Instance == "" {
		return nil, fmt.Errorf("JENKINS_INSTANCE is required when COLLECTOR_PROFILE=multi-instance")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}

func splitCSV(raw string) []string {
	items := make([]string, 0)

	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			items = append(items, part)
		}
	}

	return items
}
