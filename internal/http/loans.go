package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/checkoutdesk/internal/auth"
	"github.com/mrlokans/checkoutdesk/internal/circulation"
)

// LoansController serves a borrower's own loans and fines.
type LoansController struct {
	engine *circulation.Engine
}

func NewLoansController(engine *circulation.Engine) *LoansController {
	return &LoansController{engine: engine}
}

// MyCheckouts handles GET /api/loans/mine
func (lc *LoansController) MyCheckouts(c *gin.Context) {
	checkouts, err := lc.engine.MyCheckouts(c.Request.Context(), auth.GetActor(c))
	if err != nil {
		respondError(c, err, "list own checkouts")
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"checkouts": checkouts,
		"count":     len(checkouts),
		"today":     lc.engine.Today().Format("2006-01-02"),
	})
}

// MyFines handles GET /api/fines/mine
func (lc *LoansController) MyFines(c *gin.Context) {
	fines, total, err := lc.engine.MyFines(c.Request.Context(), auth.GetActor(c))
	if err != nil {
		respondError(c, err, "list own fines")
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"fines": fines,
		"total": total,
	})
}
