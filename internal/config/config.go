package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Challenge struct {
		TTL string `yaml:"ttl"`
	} `yaml:"challenge"`
	Gauntlet struct {
		ExerciseLevel    string `yaml:"exercise_level"`
		RateWindow       string `yaml:"rate_window"`
		MaxPerWindow     int    `yaml:"max_attempts"`
		LockoutThreshold int    `yaml:"lockout_threshold"`
		LockoutDuration  string `yaml:"lockout_duration"`
		SuspiciousGap    string `yaml:"suspicious_gap"`
		HintAfter        int    `yaml:"hint_after"`
	} `yaml:"gauntlet"`
	Analytics struct {
		StuckAttempts int    `yaml:"stuck_attempts"`
		AbuseFailures int    `yaml:"abuse_failures"`
		MinCompletion string `yaml:"min_completion"`
	} `yaml:"analytics"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty or invalid.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// IntOr returns v unless it is zero, in which case fallback applies.
func IntOr(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}

// StringOr returns v unless it is empty, in which case fallback applies.
func StringOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
