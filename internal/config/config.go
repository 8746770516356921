package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds all server settings in correct types
type Config struct {
	Port                   string
	TempDir                string
	CookiesPath            string
	CookieFileFound        bool
	CookieBrowser          string
	UserAgent              string
	MaxConcurrentDownloads int
	QueueTimeout           time.Duration
	CleanupAfter           time.Duration
	AllowedOrigins         []string
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Load: the only way to get config in the app
func Load() *Config {
	cfg := &Config{
		Port:                   normalizePort(getEnv("PORT", "8080")),
		TempDir:                getEnv("TEMP_DIR", "temp"),
		CookiesPath:            getEnv("YOUTUBE_COOKIES_PATH", ""),
		CookieBrowser:          getEnv("COOKIE_BROWSER", ""),
		UserAgent:              getEnv("USER_AGENT", defaultUserAgent),
		MaxConcurrentDownloads: getEnvAsInt("MAX_CONCURRENT_DOWNLOADS", 3),
		QueueTimeout:           time.Duration(getEnvAsInt("QUEUE_TIMEOUT_SECONDS", 10)) * time.Second,
		CleanupAfter:           time.Duration(getEnvAsInt("CLEAN_UP_AFTER_MINUTES", 15)) * time.Minute,
		AllowedOrigins:         splitOrigins(getEnv("ALLOWED_ORIGINS", "*")),
	}

	validate(cfg)

	return cfg
}

// CookieAuthMode reports how the extractor authenticates, for /health.
func (c *Config) CookieAuthMode() string {
	switch {
	case c.CookieFileFound:
		return "file: " + c.CookiesPath
	case c.CookieBrowser != "":
		return "browser: " + c.CookieBrowser
	default:
		return "none"
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	str := getEnv(key, "")
	if val, err := strconv.Atoi(str); err == nil {
		return val
	}
	return fallback
}

func normalizePort(p string) string {
	if p == "" {
		return ":8080"
	}
	if !strings.HasPrefix(p, ":") {
		return ":" + p
	}
	return p
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// validate ensures the server won't crash due to misconfiguration.
// A configured-but-missing cookie file is an operational warning, not a
// fatal error: many platforms work without cookies at all.
func validate(cfg *Config) {
	if cfg.MaxConcurrentDownloads < 1 {
		logrus.Warn("MAX_CONCURRENT_DOWNLOADS must be at least 1, resetting to 3")
		cfg.MaxConcurrentDownloads = 3
	}
	if cfg.TempDir == "" {
		cfg.TempDir = "temp"
	}
	if cfg.CookiesPath != "" {
		if _, err := os.Stat(cfg.CookiesPath); err == nil {
			cfg.CookieFileFound = true
			logrus.WithField("path", cfg.CookiesPath).Info("cookie file configured and found")
		} else {
			logrus.WithField("path", cfg.CookiesPath).Warn("cookie file configured but not found")
		}
	}
}
