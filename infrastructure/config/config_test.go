package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"page_objects/application/pageobject"
	"page_objects/infrastructure/browser"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(env(nil))
	require.NoError(t, err)

	assert.Equal(t, browser.BackendStatic, cfg.Browser.Backend)
	assert.Equal(t, browser.DefaultSeleniumPort, cfg.Browser.SeleniumPort)
	assert.Equal(t, pageobject.DefaultTimeout, cfg.ViewTimeout)
	assert.Equal(t, logrus.InfoLevel, cfg.LogLevel)
	assert.Empty(t, cfg.Highlight)
	assert.NotEmpty(t, cfg.JournalPath)
}

func TestFromEnvParsesValues(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"PAGE_DRIVER":   "Rod",
		"SELENIUM_PORT": "4444",
		"HEADLESS":      "true",
		"STEALTH":       "1",
		"VIEW_TIMEOUT":  "2.5",
		"POLL_PERIOD":   "50ms",
		"HIGHLIGHT":     "on",
		"LOG_LEVEL":     "debug",
		"JOURNAL_PATH":  "/tmp/j.json",
		"METRICS_ADDR":  ":9090",
	}))
	require.NoError(t, err)

	assert.Equal(t, browser.BackendRod, cfg.Browser.Backend)
	assert.Equal(t, 4444, cfg.Browser.SeleniumPort)
	assert.True(t, cfg.Browser.Headless)
	assert.True(t, cfg.Browser.Stealth)
	assert.Equal(t, 2500*time.Millisecond, cfg.ViewTimeout)
	assert.Equal(t, 50*time.Millisecond, cfg.PollPeriod)
	assert.Equal(t, pageobject.DefaultHighlight, cfg.Highlight)
	assert.Equal(t, logrus.DebugLevel, cfg.LogLevel)
	assert.Equal(t, "/tmp/j.json", cfg.JournalPath)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Len(t, cfg.SessionOptions(), 3)
	assert.Equal(t, logrus.DebugLevel, cfg.Logger().GetLevel())
}

func TestFromEnvCustomHighlight(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{"HIGHLIGHT": "dashed 2px blue"}))
	require.NoError(t, err)
	assert.Equal(t, "dashed 2px blue", cfg.Highlight)
}

func TestFromEnvRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
		want   string
	}{
		{"backend", map[string]string{"PAGE_DRIVER": "lynx"}, "PAGE_DRIVER"},
		{"port", map[string]string{"SELENIUM_PORT": "abc"}, "SELENIUM_PORT"},
		{"headless", map[string]string{"HEADLESS": "maybe"}, "HEADLESS"},
		{"timeout", map[string]string{"VIEW_TIMEOUT": "soon"}, "VIEW_TIMEOUT"},
		{"period", map[string]string{"POLL_PERIOD": "0"}, "POLL_PERIOD"},
		{"level", map[string]string{"LOG_LEVEL": "loud"}, "LOG_LEVEL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromEnv(env(tt.values))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PAGE_DRIVER=selenium\nSELENIUM_PORT=9999\n"), 0644))
	t.Setenv("PAGE_DRIVER", "")
	os.Unsetenv("PAGE_DRIVER")
	t.Setenv("SELENIUM_PORT", "")
	os.Unsetenv("SELENIUM_PORT")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, browser.BackendSelenium, cfg.Browser.Backend)
	assert.Equal(t, 9999, cfg.Browser.SeleniumPort)
}
