package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/kenechiaugustine/Justdownloads4u-server/internal/config"
	"github.com/kenechiaugustine/Justdownloads4u-server/internal/downloader"
	"github.com/kenechiaugustine/Justdownloads4u-server/internal/models"
)

type Handler struct {
	engine  *downloader.Engine
	limiter *downloader.Limiter
	cfg     *config.Config
}

func NewHandler(engine *downloader.Engine, limiter *downloader.Limiter, cfg *config.Config) *Handler {
	return &Handler{engine: engine, limiter: limiter, cfg: cfg}
}

// Info handles POST /info.
func (h *Handler) Info(c *gin.Context) {
	var req models.InfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body."})
		return
	}

	logrus.WithField("url", req.URL).Info("info requested")

	info, err := h.engine.Info(c.Request.Context(), req.URL)
	if err != nil {
		writeError(c, err, "Failed to fetch video information.")
		return
	}

	c.JSON(http.StatusOK, info)
}

// Download handles GET /download. Headers are committed only after the
// whole file is on disk, so every pre-stream failure still yields a
// clean JSON error. Once streaming starts, a failure only gets logged.
func (h *Handler) Download(c *gin.Context) {
	rawURL := c.Query("url")
	quality := c.Query("quality")

	log := logrus.WithFields(logrus.Fields{"url": rawURL, "quality": quality})
	log.Info("download requested")

	if err := h.limiter.Acquire(c.Request.Context()); err != nil {
		writeError(c, err, "Server is at capacity.")
		return
	}
	defer h.limiter.Release()

	res, err := h.engine.Download(c.Request.Context(), rawURL, quality)
	if err != nil {
		writeError(c, err, "Failed to process the video.")
		return
	}
	defer res.Close()

	c.Header("Content-Type", res.ContentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
	c.Status(http.StatusOK)

	if _, err := io.Copy(c.Writer, res); err != nil {
		// Mid-stream failure: no response can be amended, the client
		// must retry from scratch.
		log.Warnf("stream interrupted: %v", err)
	}
}

// Health handles GET /health, the operational liveness probe.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"service":     "Justdownloads4u",
		"cookie_auth": h.cfg.CookieAuthMode(),
		"temp_dir":    h.cfg.TempDir,
	})
}

// Docs handles GET /docs: a minimal self-description that doubles as a
// readiness probe for health checks.
func (h *Handler) Docs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "Justdownloads4u",
		"endpoints": gin.H{
			"POST /info":    `body {"url": string} -> video metadata and available formats`,
			"GET /download": `query url=<urlencoded>&quality=<label|format_id|audio> -> media stream`,
			"GET /health":   "liveness probe",
		},
	})
}

// writeError maps the failure taxonomy onto HTTP statuses. The
// underlying cause is forwarded in details for diagnostics.
func writeError(c *gin.Context, err error, message string) {
	status := http.StatusInternalServerError
	if cat, ok := downloader.CategoryOf(err); ok {
		switch cat {
		case downloader.CategoryInvalidInput:
			status = http.StatusBadRequest
		case downloader.CategoryExtraction:
			status = http.StatusBadGateway
		case downloader.CategoryMux:
			status = http.StatusInternalServerError
		case downloader.CategoryBusy:
			status = http.StatusServiceUnavailable
		}
	}

	if status >= http.StatusInternalServerError {
		logrus.Errorf("%s: %v", message, err)
	}

	c.JSON(status, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}
