package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/checkoutdesk/internal/demo"
)

type DemoController struct {
	middleware *demo.Middleware
}

func NewDemoController(middleware *demo.Middleware) *DemoController {
	return &DemoController{middleware: middleware}
}

// GetStatus handles GET /api/demo/status
func (dc *DemoController) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"demo_mode": dc.middleware.IsEnabled()})
}
