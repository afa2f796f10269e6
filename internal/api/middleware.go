package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	// TenantHeader carries the tenant id set by the tenant-context layer in
	// front of this service.
	TenantHeader = "X-Tenant-ID"

	tenantKey = "tenant_id"
)

// TenantContext rejects requests without a valid tenant id and stores it for
// the handlers.
func TenantContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.GetHeader(TenantHeader), 10, 64)
		if err != nil || id == 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": "Missing or invalid " + TenantHeader + " header",
			})
			return
		}
		c.Set(tenantKey, uint(id))
		c.Next()
	}
}

func tenantID(c *gin.Context) uint {
	return c.GetUint(tenantKey)
}

// RequestLogger logs one line per request.
func RequestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    c.Writer.Status(),
			"duration":  time.Since(start).String(),
			"tenant_id": tenantID(c),
		}).Info("Handled request")
	}
}
