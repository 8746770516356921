package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "TEMP_DIR", "YOUTUBE_COOKIES_PATH", "COOKIE_BROWSER",
		"USER_AGENT", "MAX_CONCURRENT_DOWNLOADS", "QUEUE_TIMEOUT_SECONDS",
		"CLEAN_UP_AFTER_MINUTES", "ALLOWED_ORIGINS",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad(t *testing.T) {
	Convey("Load", t, func() {
		clearEnv(t)

		Convey("applies defaults when the environment is empty", func() {
			cfg := Load()
			So(cfg.Port, ShouldEqual, ":8080")
			So(cfg.TempDir, ShouldEqual, "temp")
			So(cfg.MaxConcurrentDownloads, ShouldEqual, 3)
			So(cfg.QueueTimeout, ShouldEqual, 10*time.Second)
			So(cfg.CleanupAfter, ShouldEqual, 15*time.Minute)
			So(cfg.AllowedOrigins, ShouldResemble, []string{"*"})
			So(cfg.CookieAuthMode(), ShouldEqual, "none")
		})

		Convey("normalizes a bare port number", func() {
			t.Setenv("PORT", "9090")
			cfg := Load()
			So(cfg.Port, ShouldEqual, ":9090")
		})

		Convey("keeps an already prefixed port", func() {
			t.Setenv("PORT", ":7070")
			cfg := Load()
			So(cfg.Port, ShouldEqual, ":7070")
		})

		Convey("resets a nonsensical concurrency bound", func() {
			t.Setenv("MAX_CONCURRENT_DOWNLOADS", "0")
			cfg := Load()
			So(cfg.MaxConcurrentDownloads, ShouldEqual, 3)
		})

		Convey("parses a comma separated origin list", func() {
			t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
			cfg := Load()
			So(cfg.AllowedOrigins, ShouldResemble, []string{"https://a.example", "https://b.example"})
		})
	})
}

func TestCookieConfiguration(t *testing.T) {
	Convey("cookie configuration", t, func() {
		clearEnv(t)

		Convey("an existing cookie file is picked up", func() {
			path := filepath.Join(t.TempDir(), "cookies.txt")
			So(os.WriteFile(path, []byte("# Netscape HTTP Cookie File\n"), 0600), ShouldBeNil)

			t.Setenv("YOUTUBE_COOKIES_PATH", path)
			cfg := Load()
			So(cfg.CookieFileFound, ShouldBeTrue)
			So(cfg.CookieAuthMode(), ShouldEqual, "file: "+path)
		})

		Convey("a configured but missing cookie file is not fatal", func() {
			t.Setenv("YOUTUBE_COOKIES_PATH", filepath.Join(t.TempDir(), "nope.txt"))
			cfg := Load()
			So(cfg.CookieFileFound, ShouldBeFalse)
			So(cfg.CookieAuthMode(), ShouldEqual, "none")
		})

		Convey("browser cookies are the fallback auth mode", func() {
			t.Setenv("YOUTUBE_COOKIES_PATH", filepath.Join(t.TempDir(), "nope.txt"))
			t.Setenv("COOKIE_BROWSER", "chrome")
			cfg := Load()
			So(cfg.CookieAuthMode(), ShouldEqual, "browser: chrome")
		})
	})
}
