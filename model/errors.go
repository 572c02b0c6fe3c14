package model

import "fmt"

// Standard error codes.
const (
	ErrBadRequest         = "BAD_REQUEST"
	ErrUnauthorized       = "UNAUTHORIZED"
	ErrForbidden          = "FORBIDDEN"
	ErrNotFound           = "NOT_FOUND"
	ErrConflict           = "CONFLICT"
	ErrValidationError    = "VALIDATION_ERROR"
	ErrInvalidTransition  = "INVALID_TRANSITION"
	ErrInternalError      = "INTERNAL_ERROR"
	ErrBackendUnavailable = "BACKEND_UNAVAILABLE"
	ErrBackendTimeout     = "BACKEND_TIMEOUT"
	ErrSessionExpired     = "SESSION_EXPIRED"
)

// Wizard and payment error codes.
const (
	ErrWizardNotFound  = "WIZARD_NOT_FOUND"
	ErrWizardNotActive = "WIZARD_NOT_ACTIVE"
	ErrPaymentDeclined = "PAYMENT_DECLINED"

	// ErrSubmissionAfterPayment marks the partial-success case: the charge
	// went through but the submission record could not be created. There is
	// no client-side compensation (refund is a backend concern), so the code
	// is distinct and surfaced as-is.
	ErrSubmissionAfterPayment = "PAYMENT_RECORDED_SUBMISSION_FAILED"
)

// ErrorEnvelope is the standard error response envelope returned by the BFF.
// It implements the error interface.
type ErrorEnvelope struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
	TraceID string       `json:"trace_id"`
}

// Error implements the error interface.
func (e *ErrorEnvelope) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// FieldError describes a field-level validation error.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewBadRequestError returns a BAD_REQUEST error.
func NewBadRequestError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrBadRequest, Message: msg}
}

// NewUnauthorizedError returns an UNAUTHORIZED error.
func NewUnauthorizedError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrUnauthorized, Message: msg}
}

// NewForbiddenError returns a FORBIDDEN error.
func NewForbiddenError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrForbidden, Message: msg}
}

// NewNotFoundError returns a NOT_FOUND error.
func NewNotFoundError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrNotFound, Message: msg}
}

// NewConflictError returns a CONFLICT error.
func NewConflictError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrConflict, Message: msg}
}

// NewValidationError returns a VALIDATION_ERROR with field-level details.
func NewValidationError(details []FieldError) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrValidationError,
		Message: "One or more fields are invalid",
		Details: details,
	}
}

// NewInvalidTransitionError returns an INVALID_TRANSITION error.
func NewInvalidTransitionError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrInvalidTransition, Message: msg}
}

// NewInternalError returns an INTERNAL_ERROR.
func NewInternalError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrInternalError,
		Message: "An unexpected error occurred",
	}
}

// NewBackendUnavailableError returns a BACKEND_UNAVAILABLE error.
func NewBackendUnavailableError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrBackendUnavailable,
		Message: "The backend service is temporarily unavailable",
	}
}

// NewBackendTimeoutError returns a BACKEND_TIMEOUT error.
func NewBackendTimeoutError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrBackendTimeout,
		Message: "The backend service did not respond in time",
	}
}

// NewSessionExpiredError returns a SESSION_EXPIRED error. It is raised when
// the platform backend rejects the bearer token; the caller must discard
// stored credentials and re-authenticate.
func NewSessionExpiredError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrSessionExpired,
		Message: "Your session has expired. Please sign in again.",
	}
}

// NewWizardNotFoundError returns a WIZARD_NOT_FOUND error.
func NewWizardNotFoundError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrWizardNotFound, Message: msg}
}

// NewWizardNotActiveError returns a WIZARD_NOT_ACTIVE error.
func NewWizardNotActiveError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrWizardNotActive, Message: msg}
}

// NewPaymentDeclinedError returns a PAYMENT_DECLINED error carrying the
// gateway's error note verbatim, per the payment collaborator contract.
func NewPaymentDeclinedError(note string) *ErrorEnvelope {
	if note == "" {
		note = "The payment was declined"
	}
	return &ErrorEnvelope{Code: ErrPaymentDeclined, Message: note}
}

// NewSubmissionAfterPaymentError returns the partial-success error for a
// charge that completed before the submission create failed.
func NewSubmissionAfterPaymentError(transactionID string) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code: ErrSubmissionAfterPayment,
		Message: fmt.Sprintf(
			"Payment went through (transaction %s), but we could not record your submission. Please retry; you will not be charged again.",
			transactionID,
		),
	}
}
