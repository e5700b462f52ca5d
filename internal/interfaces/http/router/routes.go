package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/erp/acquisitions/internal/interfaces/http/handler"
)

// InvoiceRoutes builds the route group for the invoice workflow endpoints
func InvoiceRoutes(h *handler.InvoiceHandler) *DomainGroup {
	routes := NewDomainGroup("/invoices")

	routes.POST("", h.Create)
	routes.GET("", h.List)
	routes.GET("/:id", h.GetByID)
	routes.DELETE("/:id", h.Delete)

	// Workflow transitions
	routes.POST("/:id/approve", h.Approve)
	routes.POST("/:id/pay", h.Pay)
	routes.POST("/:id/cancel", h.Cancel)

	return routes
}

// SystemRoutes builds the route group for system endpoints
func SystemRoutes(h *handler.SystemHandler) *DomainGroup {
	routes := NewDomainGroup("/system")

	routes.GET("/info", h.GetSystemInfo)
	routes.GET("/ping", h.Ping)

	return routes
}

// HealthCheck registers the unversioned health endpoint used by load
// balancers and readiness probes.
func HealthCheck(engine *gin.Engine, ping func() error) {
	engine.GET("/health", func(c *gin.Context) {
		if ping != nil {
			if err := ping(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status": "unhealthy",
					"error":  err.Error(),
				})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
