package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/feral-file/ff-ip-ledger/internal/domain"
	"github.com/feral-file/ff-ip-ledger/internal/logger"
)

// ErrorCode represents a standardized error code
type ErrorCode string

const (
	// Client errors (4xx)
	errCodeBadRequest       ErrorCode = "bad_request"
	errCodeNotFound         ErrorCode = "not_found"
	errCodeValidationFailed ErrorCode = "validation_failed"
	errCodeForbidden        ErrorCode = "forbidden"
	errCodeConflict         ErrorCode = "conflict"
	errCodeImmutable        ErrorCode = "immutable_field"

	// Server errors (5xx)
	errCodeInternalError ErrorCode = "internal_error"
)

// errorResponse represents a standardized error response
type errorResponse struct {
	Error errorDetail `json:"error"`
}

// errorDetail contains error information
type errorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

// respondWithError sends a standardized error response
func respondWithError(c *gin.Context, statusCode int, code ErrorCode, message string, details ...string) {
	response := errorResponse{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	}

	if len(details) > 0 {
		response.Error.Details = details[0]
	}

	c.JSON(statusCode, response)
}

// respondBadRequest sends a 400 Bad Request response
func respondBadRequest(c *gin.Context, message string, details ...string) {
	respondWithError(c, http.StatusBadRequest, errCodeBadRequest, message, details...)
}

// respondValidationError sends a 422 Unprocessable Entity response
func respondValidationError(c *gin.Context, details string) {
	respondWithError(c, http.StatusUnprocessableEntity, errCodeValidationFailed, "Validation failed", details)
}

// respondInternalError sends a 500 Internal Server Error response and logs the error
func respondInternalError(c *gin.Context, err error, message string, fields ...zap.Field) {
	logger.Error(err, fields...)
	respondWithError(c, http.StatusInternalServerError, errCodeInternalError, message)
}

// respondDomainError maps a domain error to its HTTP representation.
// Anything outside the domain taxonomy is a 500.
func respondDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidSplit),
		errors.Is(err, domain.ErrInvalidRequest):
		respondValidationError(c, err.Error())
	case errors.Is(err, domain.ErrAssetNotFound),
		errors.Is(err, domain.ErrCreatorNotFound),
		errors.Is(err, domain.ErrRecordNotFound):
		respondWithError(c, http.StatusNotFound, errCodeNotFound, err.Error())
	case errors.Is(err, domain.ErrNotAuthorized):
		respondWithError(c, http.StatusForbidden, errCodeForbidden, err.Error())
	case errors.Is(err, domain.ErrImmutableOwnership):
		respondWithError(c, http.StatusConflict, errCodeImmutable, err.Error())
	case errors.Is(err, domain.ErrOwnershipConflict),
		errors.Is(err, domain.ErrInsufficientOwnership),
		errors.Is(err, domain.ErrAlreadyDisputed),
		errors.Is(err, domain.ErrDisputeResolved),
		errors.Is(err, domain.ErrNotDisputed):
		respondWithError(c, http.StatusConflict, errCodeConflict, err.Error())
	default:
		respondInternalError(c, err, "Internal server error")
	}
}
