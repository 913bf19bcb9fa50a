package config

import (
	"fmt"
	"os"
)

type Config struct {
	Env             string
	ListenAddr      string
	DatabaseURL     string
	LogLevel        string
	DetectorWorkers int
	// AnalyzeSchedule is a cron expression for periodic runs in serve mode;
	// empty disables scheduling.
	AnalyzeSchedule string
	// ScoringConfigPath points to an optional YAML file overriding scoring
	// weights and detector thresholds.
	ScoringConfigPath string
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func Load() (Config, error) {
	cfg := Config{
		Env:               getenv("APP_ENV", "development"),
		ListenAddr:        getenv("LISTEN_ADDR", ":8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		LogLevel:          getenv("LOG_LEVEL", "info"),
		DetectorWorkers:   getenvInt("DETECTOR_WORKERS", 4),
		AnalyzeSchedule:   os.Getenv("ANALYZE_SCHEDULE"),
		ScoringConfigPath: os.Getenv("SCORING_CONFIG"),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL not set")
	}
	return cfg, nil
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var out int
		_, err := fmt.Sscanf(v, "%d", &out)
		if err == nil {
			return out
		}
	}
	return def
}
