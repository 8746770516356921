package api

import (
	"github.com/gin-gonic/gin"
)

// NewRouter sets up routes and applies global middleware.
func NewRouter(h *Handler, allowedOrigins []string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger())
	r.Use(CORSMiddleware(allowedOrigins))

	r.POST("/info", h.Info)
	r.GET("/download", h.Download)
	r.GET("/docs", h.Docs)
	r.GET("/health", h.Health)

	return r
}
