package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/checkoutdesk/internal/auth"
	"github.com/mrlokans/checkoutdesk/internal/circulation"
)

// SettingsController exposes runtime-adjustable circulation settings.
type SettingsController struct {
	engine  *circulation.Engine
	auditor Auditor
}

func NewSettingsController(engine *circulation.Engine, auditor Auditor) *SettingsController {
	return &SettingsController{engine: engine, auditor: auditorOrNoop(auditor)}
}

type loanPeriodRequest struct {
	Days int `json:"days"`
}

// ListSettings handles GET /api/settings
func (sc *SettingsController) ListSettings(c *gin.Context) {
	values, err := sc.engine.Settings(c.Request.Context(), auth.GetActor(c))
	if err != nil {
		respondError(c, err, "list settings")
		return
	}
	respondOK(c, http.StatusOK, gin.H{"settings": values})
}

// GetLoanPeriod handles GET /api/settings/loan-period
func (sc *SettingsController) GetLoanPeriod(c *gin.Context) {
	days, err := sc.engine.LoanPeriod(c.Request.Context())
	if err != nil {
		respondError(c, err, "get loan period")
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"days":         days,
		"default_days": sc.engine.Policy().LoanPeriodDays,
		"max_days":     circulation.MaxLoanPeriodDays,
	})
}

// UpdateLoanPeriod handles PUT /api/settings/loan-period
func (sc *SettingsController) UpdateLoanPeriod(c *gin.Context) {
	var req loanPeriodRequest
	if !bindJSON(c, &req) {
		return
	}
	actor := auth.GetActor(c)
	if err := sc.engine.SetLoanPeriod(c.Request.Context(), actor, req.Days); err != nil {
		respondError(c, err, "set loan period")
		return
	}
	sc.auditor.LogSettings(actor.Username, "loan_period_update", fmt.Sprintf("Loan period set to %d days", req.Days))
	respondOK(c, http.StatusOK, gin.H{"days": req.Days})
}
