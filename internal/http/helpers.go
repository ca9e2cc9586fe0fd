package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/checkoutdesk/internal/circulation"
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`    // circulation.Kind
	Details any    `json:"details,omitempty"` // identifiers the error concerns
}

// PaginatedResponse wraps paginated data with metadata.
type PaginatedResponse struct {
	Success bool  `json:"success"`
	Data    any   `json:"data"`
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasMore bool  `json:"has_more"`
}

// statusForKind maps workflow failures to HTTP status codes.
func statusForKind(kind circulation.Kind) int {
	switch kind {
	case circulation.KindNotAuthenticated, circulation.KindInvalidCredentials:
		return http.StatusUnauthorized
	case circulation.KindForbidden:
		return http.StatusForbidden
	case circulation.KindNotFound:
		return http.StatusNotFound
	case circulation.KindValidationFailed:
		return http.StatusBadRequest
	case circulation.KindBookUnavailable,
		circulation.KindBookNoLongerAvailable,
		circulation.KindLimitExceeded,
		circulation.KindDuplicateRequest,
		circulation.KindNoActiveLoan:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// --- Error Response Helpers ---

// respondError writes err as JSON. Workflow errors keep their message and
// identifiers; anything else is logged and reported as a generic 500.
func respondError(c *gin.Context, err error, context string) {
	var werr *circulation.Error
	if !errors.As(err, &werr) {
		respondInternalError(c, err, context)
		return
	}

	resp := ErrorResponse{
		Error: werr.Error(),
		Code:  string(werr.Kind),
	}
	if fields := werr.Fields(); len(fields) > 0 {
		resp.Details = fields
	}
	c.JSON(statusForKind(werr.Kind), resp)
}

// respondBadRequest sends a 400 validation failure.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error: message,
		Code:  string(circulation.KindValidationFailed),
	})
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// --- Success Response Helpers ---

// respondOK sends a success envelope: payload keys plus "success": true.
func respondOK(c *gin.Context, status int, payload gin.H) {
	if payload == nil {
		payload = gin.H{}
	}
	payload["success"] = true
	c.JSON(status, payload)
}

// --- Parameter Parsing ---

// parseIDParam extracts and validates an unsigned integer ID from URL parameters.
// Returns the parsed ID or responds with a 400 error and returns 0, false.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(paramName), 10, 32)
	if err != nil || id == 0 {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return uint(id), true
}

// parsePagination reads limit and offset query parameters.
func parsePagination(c *gin.Context, defaultLimit, maxLimit int) (limit, offset int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

// bindJSON decodes the request body or responds with 400.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondBadRequest(c, "invalid request body")
		return false
	}
	return true
}
