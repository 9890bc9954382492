package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/cybergodev/rsajwt"
)

const (
	defaultConfigPath = "rsajwt.toml"
	defaultKeyFile    = "keys.key"
	defaultOutputDir  = "output"
)

// appConfig is the rsajwt.toml layout. Environment variables override it.
type appConfig struct {
	KeyFile    string `toml:"key_file"`
	ListenAddr string `toml:"listen_addr"`
	PeerURL    string `toml:"peer_url"`
	Username   string `toml:"username"`
	OutputDir  string `toml:"output_dir"`
	LogLevel   string `toml:"log_level"`

	Processor  rsajwt.Config           `toml:"processor"`
	Revocation rsajwt.RevocationConfig `toml:"revocation"`
	RateLimit  rateLimitConfig         `toml:"rate_limit"`
}

type rateLimitConfig struct {
	Requests     int           `toml:"requests"`
	Window       time.Duration `toml:"window"`
	ReplayWindow time.Duration `toml:"replay_window"`
}

func defaultAppConfig() appConfig {
	return appConfig{
		KeyFile:    defaultKeyFile,
		ListenAddr: "127.0.0.1:8080",
		OutputDir:  defaultOutputDir,
		LogLevel:   "info",
		Processor:  rsajwt.DefaultConfig(),
		Revocation: rsajwt.DefaultRevocationConfig(),
		RateLimit: rateLimitConfig{
			Requests:     60,
			Window:       time.Minute,
			ReplayWindow: 24 * time.Hour,
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// loadConfig reads envFile into the environment, decodes the TOML file at path
// over the defaults and applies environment overrides. A missing file is only
// an error when required is set.
func loadConfig(path, envFile string, required bool) (appConfig, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return appConfig{}, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	config := defaultAppConfig()

	if _, err := os.Stat(path); err != nil {
		if required || !errors.Is(err, fs.ErrNotExist) {
			return appConfig{}, fmt.Errorf("config file: %w", err)
		}
		logrus.WithFields(logrus.Fields{
			"function": "loadConfig",
			"path":     path,
		}).Debug("No config file, using defaults and environment")
	} else if _, err := toml.DecodeFile(path, &config); err != nil {
		return appConfig{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := applyEnv(&config); err != nil {
		return appConfig{}, err
	}
	return config, nil
}

func applyEnv(config *appConfig) error {
	config.KeyFile = getEnv("RSAJWT_KEY_FILE", config.KeyFile)
	config.ListenAddr = getEnv("RSAJWT_LISTEN_ADDR", config.ListenAddr)
	config.PeerURL = getEnv("RSAJWT_PEER_URL", config.PeerURL)
	config.Username = getEnv("RSAJWT_USERNAME", config.Username)
	config.OutputDir = getEnv("RSAJWT_OUTPUT_DIR", config.OutputDir)
	config.LogLevel = getEnv("RSAJWT_LOG_LEVEL", config.LogLevel)

	if redisURL := os.Getenv("RSAJWT_REDIS_URL"); redisURL != "" {
		config.Revocation.StoreType = "redis"
		config.Revocation.RedisURL = redisURL
	}

	if v := os.Getenv("RSAJWT_ENABLE_REVOCATION"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("RSAJWT_ENABLE_REVOCATION: %w", err)
		}
		config.Processor.EnableRevocation = enabled
	}
	return nil
}

func (c *appConfig) validate() error {
	if c.KeyFile == "" {
		return errors.New("key_file cannot be empty")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if err := c.Processor.Validate(); err != nil {
		return fmt.Errorf("processor: %w", err)
	}
	if err := c.Revocation.Validate(); err != nil {
		return fmt.Errorf("revocation: %w", err)
	}
	if c.RateLimit.Requests < 0 || c.RateLimit.Window < 0 || c.RateLimit.ReplayWindow < 0 {
		return errors.New("rate_limit values cannot be negative")
	}
	return nil
}
