// Package services defines the business logic for approvals, their chains,
// chat, accounts and administration. This file centralizes service-level
// error values so that they can be consistently returned by service methods
// and checked by callers.
//
// Chain rule violations are reported with the sentinels of the chain
// package (chain.ErrDraft, chain.ErrNotYourTurn, ...) and are not repeated
// here. Translation into HTTP status codes or HTML pages happens at the
// handler layer.
package services

import (
	"errors"

	"github.com/tbourn/go-claims-backend/internal/tokens"
)

// Approval errors.
var (
	// ErrApprovalNotFound indicates that the requested approval does not exist.
	ErrApprovalNotFound = errors.New("approval not found")

	// ErrDraftNotFound indicates that the requested draft does not exist or
	// has already been submitted.
	ErrDraftNotFound = errors.New("draft not found")

	// ErrForbidden is returned when the caller may not see or change the
	// approval.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation wraps malformed input that is not a chain rule, such as a
	// missing reimbursement type or an empty approver list.
	ErrValidation = errors.New("validation failed")

	// ErrDuplicateID is returned when a new approval reuses a unique number.
	ErrDuplicateID = errors.New("unique number already in use")

	// ErrStepNotFound is returned by overrides naming an approver that is not
	// on the chain.
	ErrStepNotFound = errors.New("approver not found on chain")
)

// Chat errors.
var (
	// ErrEmptyMessage is returned when a chat message is blank after trimming.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrMessageTooLong is returned when a chat message exceeds the limit.
	ErrMessageTooLong = errors.New("message too long")
)

// One-click token errors. Each maps to its own HTML page.
var (
	// ErrInvalidToken covers bad signatures, wrong kinds and expiry.
	ErrInvalidToken = tokens.ErrInvalidToken

	// ErrAlreadyUsed is returned when the token's jti was already redeemed.
	ErrAlreadyUsed = errors.New("this link was already used")

	// ErrTokenApprovalNotFound is returned when the token names an approval
	// that no longer exists.
	ErrTokenApprovalNotFound = errors.New("request not found")

	// ErrNotAnApprover is returned when the token's approver is not on the
	// chain any more.
	ErrNotAnApprover = errors.New("not an approver for this request")
)

// Account errors.
var (
	// ErrUserExists is returned by signup for an already registered email.
	ErrUserExists = errors.New("user already exists")

	// ErrInvalidCredentials is returned by login for unknown users and wrong
	// passwords alike.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrOTPExpired is returned when no pending signup exists for the email.
	ErrOTPExpired = errors.New("verification code expired or not requested")

	// ErrOTPIncorrect is returned for a wrong verification code.
	ErrOTPIncorrect = errors.New("verification code incorrect")

	// ErrUnresolved is returned by the directory when a name has no email.
	ErrUnresolved = errors.New("identity could not be resolved")
)
