package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/ebooklib/internal/logging"
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"` // additional context (validation errors, etc.)
}

// PaginatedResponse wraps paginated data with metadata.
type PaginatedResponse struct {
	Data    any   `json:"data"`
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasMore bool  `json:"has_more"`
}

// --- Error Response Helpers ---

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// respondValidation sends a 400 with per-field details.
func respondValidation(c *gin.Context, message string, details any) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message, Details: details})
}

// respondNotFound sends a 404 Not Found response with the given message.
func respondNotFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: message})
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	logging.WithFields(logging.Fields{
		"context": context,
		"path":    c.Request.URL.Path,
	}).WithError(err).Error("Internal error")
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// respondError sends an error response with the given status code.
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

// --- Parameter Parsing ---

// parseIDParam extracts and validates an unsigned integer ID from URL parameters.
// Returns the parsed ID or responds with a 400 error and returns 0, false.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	idStr := c.Param(paramName)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return uint(id), true
}

// parseIntQuery reads a non-negative integer query parameter.
// Returns def when absent, or responds with 400 and false when malformed.
func parseIntQuery(c *gin.Context, name string, def int) (int, bool) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		respondBadRequest(c, name+" must be a non-negative integer")
		return 0, false
	}
	return v, true
}

// parsePage reads skip and limit, capping limit at maxLimit. An explicit
// limit=0 is kept as 0; callers answer it with respondEmptyPage.
func parsePage(c *gin.Context, defLimit, maxLimit int) (skip, limit int, ok bool) {
	if skip, ok = parseIntQuery(c, "skip", 0); !ok {
		return 0, 0, false
	}
	if limit, ok = parseIntQuery(c, "limit", defLimit); !ok {
		return 0, 0, false
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return skip, limit, true
}

func respondEmptyPage(c *gin.Context) {
	c.JSON(http.StatusOK, []struct{}{})
}
