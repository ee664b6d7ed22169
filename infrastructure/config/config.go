// Package config reads runtime settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"page_objects/application/pageobject"
	"page_objects/application/wait"
	"page_objects/infrastructure/browser"
	"page_objects/infrastructure/storage"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds everything needed to open a session
type Config struct {
	Browser     browser.Options
	ViewTimeout time.Duration
	PollPeriod  time.Duration
	Highlight   string
	LogLevel    logrus.Level
	JournalPath string
	MetricsAddr string
}

// Load - reads an optional .env file, then the environment
func Load(files ...string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load(files...)
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Browser: browser.Options{
			Backend:      browser.BackendStatic,
			DriverPath:   getenv("BROWSER_DRIVER_PATH"),
			ChromeBinary: getenv("CHROME_BINARY_PATH"),
			SeleniumPort: browser.DefaultSeleniumPort,
			ProfileDir:   getenv("BROWSER_PROFILE_DIR"),
			RemoteURL:    getenv("BROWSER_REMOTE_URL"),
		},
		ViewTimeout: pageobject.DefaultTimeout,
		PollPeriod:  wait.DefaultPeriod,
		LogLevel:    logrus.InfoLevel,
		JournalPath: getenv("JOURNAL_PATH"),
		MetricsAddr: getenv("METRICS_ADDR"),
	}

	if v := getenv("PAGE_DRIVER"); v != "" {
		switch strings.ToLower(v) {
		case browser.BackendStatic, browser.BackendSelenium, browser.BackendPlaywright, browser.BackendRod:
			cfg.Browser.Backend = strings.ToLower(v)
		default:
			return nil, fmt.Errorf("PAGE_DRIVER: unknown backend %q (expected static, selenium, playwright or rod)", v)
		}
	}

	var err error
	if v := getenv("SELENIUM_PORT"); v != "" {
		if cfg.Browser.SeleniumPort, err = strconv.Atoi(v); err != nil || cfg.Browser.SeleniumPort <= 0 {
			return nil, fmt.Errorf("SELENIUM_PORT: invalid port %q", v)
		}
	}
	if cfg.Browser.Headless, err = boolean(getenv, "HEADLESS", false); err != nil {
		return nil, err
	}
	if cfg.Browser.Stealth, err = boolean(getenv, "STEALTH", false); err != nil {
		return nil, err
	}
	if cfg.ViewTimeout, err = duration(getenv, "VIEW_TIMEOUT", cfg.ViewTimeout); err != nil {
		return nil, err
	}
	if cfg.PollPeriod, err = duration(getenv, "POLL_PERIOD", cfg.PollPeriod); err != nil {
		return nil, err
	}
	if cfg.PollPeriod <= 0 {
		return nil, fmt.Errorf("POLL_PERIOD: must be positive")
	}

	switch v := getenv("HIGHLIGHT"); strings.ToLower(v) {
	case "", "0", "false", "off":
	case "1", "true", "on":
		cfg.Highlight = pageobject.DefaultHighlight
	default:
		cfg.Highlight = v
	}

	if v := getenv("LOG_LEVEL"); v != "" {
		if cfg.LogLevel, err = logrus.ParseLevel(v); err != nil {
			return nil, fmt.Errorf("LOG_LEVEL: %w", err)
		}
	}
	if cfg.JournalPath == "" {
		cfg.JournalPath = storage.DefaultJournalPath()
	}
	return cfg, nil
}

// Logger - builds the logger configured by LOG_LEVEL
func (c *Config) Logger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.LogLevel)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return logger
}

// SessionOptions translates the config into session options
func (c *Config) SessionOptions() []pageobject.SessionOption {
	return []pageobject.SessionOption{
		pageobject.WithDefaultTimeout(c.ViewTimeout),
		pageobject.WithPollPeriod(c.PollPeriod),
		pageobject.WithSessionHighlight(c.Highlight),
	}
}

func boolean(getenv func(string) string, key string, fallback bool) (bool, error) {
	v := getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q", key, v)
	}
	return b, nil
}

// duration accepts Go durations ("2s") and bare seconds ("2", "0.5")
func duration(getenv func(string) string, key string, fallback time.Duration) (time.Duration, error) {
	v := getenv(key)
	if v == "" {
		return fallback, nil
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	seconds, err := strconv.ParseFloat(v, 64)
	if err != nil || seconds < 0 {
		return 0, fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}
