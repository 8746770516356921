package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lrstanley/go-ytdlp"
	"github.com/sirupsen/logrus"

	"github.com/kenechiaugustine/Justdownloads4u-server/internal/api"
	"github.com/kenechiaugustine/Justdownloads4u-server/internal/config"
	"github.com/kenechiaugustine/Justdownloads4u-server/internal/downloader"
	"github.com/kenechiaugustine/Justdownloads4u-server/internal/server"
	"github.com/kenechiaugustine/Justdownloads4u-server/internal/tempstore"
)

const (
	janitorInterval = 5 * time.Minute
	shutdownTimeout = 10 * time.Second
)

func main() {
	godotenv.Load()
	cfg := config.Load()

	if err := server.PrepareFilesystem(cfg); err != nil {
		logrus.Fatalf("error preparing filesystem: %v", err)
	}

	// Resolve the yt-dlp binary, downloading it when absent. ffmpeg is
	// only needed for mux-path downloads, so its absence is a warning.
	if _, err := ytdlp.Install(context.Background(), nil); err != nil {
		logrus.Warnf("yt-dlp not available, extraction will fail: %v", err)
	}

	store := tempstore.New(cfg.TempDir)
	stopJanitor := store.StartJanitor(janitorInterval, cfg.CleanupAfter)
	defer stopJanitor()

	extractor := downloader.NewYtDlpExtractor(cfg)
	engine := downloader.NewEngine(extractor, downloader.NewFFmpegMuxer(), store)
	limiter := downloader.NewLimiter(cfg.MaxConcurrentDownloads, cfg.QueueTimeout)

	handler := api.NewHandler(engine, limiter, cfg)
	router := api.NewRouter(handler, cfg.AllowedOrigins)

	srv := &http.Server{
		Addr:    cfg.Port,
		Handler: router,
	}

	go func() {
		logrus.WithFields(logrus.Fields{
			"port":        cfg.Port,
			"temp_dir":    cfg.TempDir,
			"cookie_auth": cfg.CookieAuthMode(),
		}).Info("server started")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Fatalf("forced shutdown: %v", err)
	}
}
