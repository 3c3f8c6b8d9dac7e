package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"tipnet/internal"
)

// NewRouter builds the gin engine serving h.
func NewRouter(h *NetworkHandler, mode string, logger *internal.Logger) *gin.Engine {
	if mode != "" {
		gin.SetMode(mode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))
	h.Register(r)
	return r
}

func requestLogger(logger *internal.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	logger = logger.WithComponent("HTTP")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("%s %s %d %.2fms", c.Request.Method, c.Request.URL.Path, c.Writer.Status(),
			float64(time.Since(start).Nanoseconds())/1e6)
	}
}
