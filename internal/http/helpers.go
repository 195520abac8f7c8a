package http

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/goodreads/internal/apperr"
)

// --- Response Types ---

// ErrorResponse is the error body for everything except validation failures.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ValidationResponse carries field-level messages, keyed by input name.
type ValidationResponse struct {
	Errors map[string]string `json:"errors"`
}

// --- Error Response Helpers ---

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

func respondValidation(c *gin.Context, verr *apperr.ValidationError) {
	c.JSON(http.StatusBadRequest, ValidationResponse{Errors: verr.Fields})
}

// respondAPIError maps a service error onto the API status codes.
func respondAPIError(c *gin.Context, err error, context string) {
	if verr, ok := apperr.AsValidation(err); ok {
		respondValidation(c, verr)
		return
	}

	if apperr.IsNotFound(err) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}

	if authz, ok := apperr.AsAuthorization(err); ok {
		if !authz.Authenticated {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error()})
		return
	}

	if apperr.IsAuthentication(err) {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: err.Error()})
		return
	}

	respondInternalError(c, err, context)
}

// --- Parameter Parsing ---

// parseIDParam extracts and validates an unsigned integer ID from URL parameters.
// Malformed IDs cannot name an existing row, so they are reported as not found.
func parseIDParam(c *gin.Context, paramName string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(paramName), 10, 32)
	if err != nil || id == 0 {
		return 0, apperr.NotFound(paramName, c.Param(paramName))
	}
	return uint(id), nil
}
