package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	appName    = "keyfetch"
	configFile = "config.json"

	DefaultUserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	DefaultTimeout       = 15
	DefaultChallengeBase = "https://sentry.platorelay.com/.gs/pow/captcha"
	DefaultVariation     = 0.1
	DefaultLogLevel      = "info"
)

// Config is the top-level configuration.
type Config struct {
	UserAgent     string  `json:"user_agent,omitempty"`
	Timeout       int     `json:"timeout,omitempty"`
	ChallengeBase string  `json:"challenge_base,omitempty"`
	Variation     float64 `json:"variation,omitempty"`
	LogLevel      string  `json:"log_level,omitempty"`
	Verbose       bool    `json:"verbose,omitempty"`
	Footer        string  `json:"footer,omitempty"`
	ImportCookies bool    `json:"import_cookies,omitempty"`
}

// Load reads config from the XDG config file, then applies .env and
// environment overrides, then defaults.
func Load() *Config {
	cfg := &Config{}

	if data, err := os.ReadFile(FilePath()); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			log.Warn().Err(err).Str("path", FilePath()).Msg("Ignoring malformed config file")
			cfg = &Config{}
		}
	}

	// A missing .env is the normal case.
	_ = godotenv.Load()
	cfg.applyEnv()
	cfg.applyDefaults()

	return cfg
}

func (c *Config) applyEnv() {
	if v := os.Getenv("KEYFETCH_USER_AGENT"); v != "" {
		c.UserAgent = v
	}
	if v := os.Getenv("KEYFETCH_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Timeout = n
		} else {
			log.Warn().Str("value", v).Msg("Invalid KEYFETCH_TIMEOUT, ignoring")
		}
	}
	if v := os.Getenv("KEYFETCH_CHALLENGE_BASE"); v != "" {
		c.ChallengeBase = v
	}
	if v := os.Getenv("KEYFETCH_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("KEYFETCH_FOOTER"); v != "" {
		c.Footer = v
	}
}

func (c *Config) applyDefaults() {
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.ChallengeBase == "" {
		c.ChallengeBase = DefaultChallengeBase
	}
	if c.Variation == 0 {
		c.Variation = DefaultVariation
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}

// Validate corrects out-of-range values, logging a warning for each.
func (c *Config) Validate() {
	if c.Timeout < 1 {
		log.Warn().Int("timeout", c.Timeout).Msg("Invalid timeout, using default 15s")
		c.Timeout = DefaultTimeout
	}
	if c.Variation < 0 || c.Variation > 1 {
		log.Warn().Float64("variation", c.Variation).Msg("Variation out of range, using default 0.1")
		c.Variation = DefaultVariation
	}
}

// Save writes the config to the XDG config file.
func Save(cfg *Config) error {
	path := FilePath()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}

// FilePath returns the path to the config file.
func FilePath() string {
	return filePathForApp(appName, configFile)
}

func filePathForApp(app, file string) string {
	return filepath.Join(configBaseDir(), app, file)
}

func configBaseDir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "."
		}
		dir = filepath.Join(home, ".config")
	}
	return dir
}
