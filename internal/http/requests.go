package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/checkoutdesk/internal/auth"
	"github.com/mrlokans/checkoutdesk/internal/circulation"
	"github.com/mrlokans/checkoutdesk/internal/entities"
)

// RequestsController serves the checkout and return request workflow.
type RequestsController struct {
	engine  *circulation.Engine
	auditor Auditor
}

func NewRequestsController(engine *circulation.Engine, auditor Auditor) *RequestsController {
	return &RequestsController{engine: engine, auditor: auditorOrNoop(auditor)}
}

type submitRequest struct {
	BookID uint `json:"book_id"`
}

type decisionRequest struct {
	Approve *bool `json:"approve"`
}

// SubmitCheckout handles POST /api/requests/checkout
func (rc *RequestsController) SubmitCheckout(c *gin.Context) {
	rc.submit(c, entities.RequestTypeCheckout)
}

// SubmitReturn handles POST /api/requests/return
func (rc *RequestsController) SubmitReturn(c *gin.Context) {
	rc.submit(c, entities.RequestTypeReturn)
}

func (rc *RequestsController) submit(c *gin.Context, reqType entities.RequestType) {
	var body submitRequest
	if !bindJSON(c, &body) {
		return
	}
	if body.BookID == 0 {
		respondBadRequest(c, "book_id is required")
		return
	}

	actor := auth.GetActor(c)
	ctx := c.Request.Context()

	var (
		req *entities.Request
		err error
	)
	if reqType == entities.RequestTypeCheckout {
		req, err = rc.engine.SubmitCheckoutRequest(ctx, actor, body.BookID)
	} else {
		req, err = rc.engine.SubmitReturnRequest(ctx, actor, body.BookID)
	}
	if err != nil {
		respondError(c, err, "submit "+string(reqType)+" request")
		return
	}

	rc.auditor.LogRequest(actor.Username, "submit_"+string(reqType), req, nil)
	respondOK(c, http.StatusCreated, gin.H{"request": req})
}

// Mine handles GET /api/requests/mine
func (rc *RequestsController) Mine(c *gin.Context) {
	views, err := rc.engine.MyRequests(c.Request.Context(), auth.GetActor(c))
	if err != nil {
		respondError(c, err, "list own requests")
		return
	}
	respondOK(c, http.StatusOK, gin.H{"requests": views, "count": len(views)})
}

// Pending handles GET /api/requests/pending
func (rc *RequestsController) Pending(c *gin.Context) {
	views, err := rc.engine.ListPendingRequests(c.Request.Context(), auth.GetActor(c))
	if err != nil {
		respondError(c, err, "list pending requests")
		return
	}
	respondOK(c, http.StatusOK, gin.H{"requests": views, "count": len(views)})
}

// DecideCheckout handles POST /api/requests/:id/checkout-decision
func (rc *RequestsController) DecideCheckout(c *gin.Context) {
	rc.decide(c, entities.RequestTypeCheckout)
}

// DecideReturn handles POST /api/requests/:id/return-decision
func (rc *RequestsController) DecideReturn(c *gin.Context) {
	rc.decide(c, entities.RequestTypeReturn)
}

func (rc *RequestsController) decide(c *gin.Context, reqType entities.RequestType) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var body decisionRequest
	if !bindJSON(c, &body) {
		return
	}
	if body.Approve == nil {
		respondBadRequest(c, "approve is required")
		return
	}

	actor := auth.GetActor(c)
	ctx := c.Request.Context()

	var (
		decision *circulation.Decision
		err      error
	)
	if reqType == entities.RequestTypeCheckout {
		decision, err = rc.engine.DecideCheckout(ctx, actor, id, *body.Approve)
	} else {
		decision, err = rc.engine.DecideReturn(ctx, actor, id, *body.Approve)
	}

	if decision == nil {
		respondError(c, err, "decide "+string(reqType)+" request")
		return
	}

	action := "deny_" + string(reqType)
	if decision.Request.Status == entities.RequestStatusApproved {
		action = "approve_" + string(reqType)
	}
	rc.auditor.LogRequest(actor.Username, action, &decision.Request, err)

	if err != nil {
		// The approval was turned into a denial; report why along with it.
		respondDenied(c, err, decision)
		return
	}

	if decision.Loan != nil && decision.Fine.IsPositive() {
		rc.auditor.LogFine(actor.Username, &entities.FineRecord{
			Requester: decision.Request.Requester,
			LoanID:    decision.Loan.ID,
			BookID:    decision.Loan.BookID,
			DaysLate:  decision.DaysLate,
			Amount:    decision.Fine,
		})
	}
	respondOK(c, http.StatusOK, gin.H{"decision": decision})
}

// Deny handles POST /api/requests/:id/deny
func (rc *RequestsController) Deny(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	actor := auth.GetActor(c)
	req, err := rc.engine.DenyRequest(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err, "deny request")
		return
	}
	rc.auditor.LogRequest(actor.Username, "deny_"+string(req.Type), req, nil)
	respondOK(c, http.StatusOK, gin.H{"request": req})
}

func respondDenied(c *gin.Context, err error, decision *circulation.Decision) {
	var werr *circulation.Error
	if !errors.As(err, &werr) {
		respondInternalError(c, err, "decide request")
		return
	}
	details := werr.Fields()
	details["decision"] = decision
	c.JSON(statusForKind(werr.Kind), ErrorResponse{
		Error:   werr.Error(),
		Code:    string(werr.Kind),
		Details: details,
	})
}
