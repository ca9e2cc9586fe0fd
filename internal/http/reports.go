package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/checkoutdesk/internal/auth"
	"github.com/mrlokans/checkoutdesk/internal/circulation"
)

// ReportsController serves the librarian dashboards.
type ReportsController struct {
	engine *circulation.Engine
}

func NewReportsController(engine *circulation.Engine) *ReportsController {
	return &ReportsController{engine: engine}
}

// Stats handles GET /api/stats
func (rc *ReportsController) Stats(c *gin.Context) {
	stats, err := rc.engine.Stats(c.Request.Context(), auth.GetActor(c))
	if err != nil {
		respondError(c, err, "stats")
		return
	}
	respondOK(c, http.StatusOK, gin.H{"stats": stats})
}

// Analytics handles GET /api/analytics
func (rc *ReportsController) Analytics(c *gin.Context) {
	analytics, err := rc.engine.Analytics(c.Request.Context(), auth.GetActor(c))
	if err != nil {
		respondError(c, err, "analytics")
		return
	}
	respondOK(c, http.StatusOK, gin.H{"analytics": analytics})
}
