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
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Profiles struct {
		TTL string `yaml:"ttl"`
	} `yaml:"profiles"`
	Marking struct {
		TTL              string `yaml:"ttl"`
		MaxRetries       int    `yaml:"maxRetries"`
		SubscriberBuffer int    `yaml:"subscriberBuffer"`
	} `yaml:"marking"`
	Leaderboard struct {
		MinQuizzes       int `yaml:"minQuizzes"`
		FetchConcurrency int `yaml:"fetchConcurrency"`
	} `yaml:"leaderboard"`
	CORS struct {
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"cors"`
}

// Load reads YAML config from path and fills unset tunables.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Marking.MaxRetries <= 0 {
		c.Marking.MaxRetries = 5
	}
	if c.Marking.SubscriberBuffer <= 0 {
		c.Marking.SubscriberBuffer = 8
	}
	if c.Leaderboard.MinQuizzes <= 0 {
		c.Leaderboard.MinQuizzes = 1
	}
	if c.Leaderboard.FetchConcurrency <= 0 {
		c.Leaderboard.FetchConcurrency = 8
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
}

// MarkingTTL is the expiry of stored task sets; zero keeps them until superseded.
func (c Config) MarkingTTL() time.Duration {
	return TTLDuration(c.Marking.TTL, 0)
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
