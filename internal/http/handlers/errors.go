// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes symbolic error code constants and the mapping from
// service and chain sentinel errors to (status, code) pairs. Codes give
// clients a stable, machine-readable taxonomy next to the human-readable
// message.
//
// Conventions:
//   - Codes are lowercase snake_case.
//   - Generic codes mirror HTTP status semantics; domain codes name the
//     rule that was broken (for example not_your_turn) so clients can show
//     a precise message without parsing text.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "not_your_turn",
//	  "message": "not your turn"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-claims-backend/internal/chain"
	"github.com/tbourn/go-claims-backend/internal/filestore"
	"github.com/tbourn/go-claims-backend/internal/services"
)

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeTooLarge         = "payload_too_large"

	// Domain-specific:
	ErrCodeValidation         = "validation_failed"
	ErrCodeDraft              = "approval_is_draft"
	ErrCodeInvalidAction      = "invalid_action"
	ErrCodeManagerUnresolved  = "manager_unresolved"
	ErrCodeNotApprover        = "not_an_approver"
	ErrCodeNotYourTurn        = "not_your_turn"
	ErrCodeDuplicateID        = "duplicate_id"
	ErrCodeUserExists         = "user_exists"
	ErrCodeInvalidCredentials = "invalid_credentials"
	ErrCodeOTPExpired         = "otp_expired"
	ErrCodeOTPIncorrect       = "otp_incorrect"
	ErrCodeEmptyMessage       = "empty_message"
	ErrCodeMessageTooLong     = "message_too_long"
)

// errorStatus maps err onto its HTTP status and code. Unknown errors are
// internal.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, chain.ErrDraft):
		return http.StatusBadRequest, ErrCodeDraft
	case errors.Is(err, chain.ErrInvalidAction):
		return http.StatusBadRequest, ErrCodeInvalidAction
	case errors.Is(err, chain.ErrManagerUnresolved):
		return http.StatusBadRequest, ErrCodeManagerUnresolved
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest, ErrCodeValidation
	case errors.Is(err, services.ErrEmptyMessage):
		return http.StatusBadRequest, ErrCodeEmptyMessage
	case errors.Is(err, services.ErrMessageTooLong):
		return http.StatusBadRequest, ErrCodeMessageTooLong
	case errors.Is(err, services.ErrOTPExpired):
		return http.StatusBadRequest, ErrCodeOTPExpired
	case errors.Is(err, services.ErrOTPIncorrect):
		return http.StatusBadRequest, ErrCodeOTPIncorrect

	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized, ErrCodeInvalidCredentials

	case errors.Is(err, chain.ErrNotApprover):
		return http.StatusForbidden, ErrCodeNotApprover
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, ErrCodeForbidden

	case errors.Is(err, services.ErrApprovalNotFound),
		errors.Is(err, services.ErrDraftNotFound),
		errors.Is(err, services.ErrStepNotFound),
		errors.Is(err, filestore.ErrNotFound):
		return http.StatusNotFound, ErrCodeNotFound

	case errors.Is(err, chain.ErrNotYourTurn):
		return http.StatusConflict, ErrCodeNotYourTurn
	case errors.Is(err, services.ErrDuplicateID):
		return http.StatusConflict, ErrCodeDuplicateID
	case errors.Is(err, services.ErrUserExists):
		return http.StatusConflict, ErrCodeUserExists

	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return http.StatusRequestEntityTooLarge, ErrCodeTooLarge
		}
		return http.StatusInternalServerError, ErrCodeInternal
	}
}

// failErr writes the envelope for err. Internal errors get a generic message
// so driver or filesystem details never reach clients; the cause is logged.
func failErr(c *gin.Context, err error) {
	status, code := errorStatus(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		msg = "internal server error"
	}
	fail(c, status, code, msg)
}
