package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/checkoutdesk/internal/database/audit"
	"github.com/mrlokans/checkoutdesk/internal/entities"
)

type AuditController struct {
	reader AuditReader
}

func NewAuditController(reader AuditReader) *AuditController {
	return &AuditController{reader: reader}
}

// GetAuditEvents returns paginated audit events as JSON
// GET /api/audit?type=circulation&actor=john&limit=50&offset=0
func (ac *AuditController) GetAuditEvents(c *gin.Context) {
	limit, offset := parsePagination(c, 50, 200)
	filter := audit.Filter{
		Actor:     c.Query("actor"),
		EventType: entities.AuditEventType(c.Query("type")),
	}

	events, total, err := ac.reader.GetEvents(filter, limit, offset)
	if err != nil {
		respondInternalError(c, err, "get audit events")
		return
	}

	c.JSON(http.StatusOK, PaginatedResponse{
		Success: true,
		Data:    events,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+len(events)) < total,
	})
}
