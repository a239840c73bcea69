package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrInvalidPersonIdent  = errors.New("invalid person identifier")
	ErrInvalidPeriod       = errors.New("tom must not be before fom")
	ErrUnknownGroupingKey  = errors.New("unknown grouping key")
	ErrUpstreamUnavailable = errors.New("upstream system unavailable")
	ErrUnknownPeriodCode   = errors.New("unrecognized period-type code")
	ErrEmptyReversal       = errors.New("reversal carries no payment reference")
	ErrEmptySettlement     = errors.New("settlement carries no payment lines")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeUpstreamFailure  = "UPSTREAM_FAILURE"
	ErrCodeDatabaseError    = "DATABASE_ERROR"
	ErrCodeUnknownGrouping  = "UNKNOWN_GROUPING_KEY"
	ErrCodeEventBusError    = "EVENT_BUS_ERROR"
	ErrCodeTokenAcquisition = "TOKEN_ACQUISITION_FAILED"
)

// Wrap common errors with business context
func WrapValidationError(message string, err error) *BusinessError {
	return NewBusinessError(ErrCodeValidation, message, err)
}

func WrapUpstreamFailure(system string, err error) *BusinessError {
	return NewBusinessError(
		ErrCodeUpstreamFailure,
		fmt.Sprintf("call to %s failed", system),
		errors.Join(ErrUpstreamUnavailable, err),
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(ErrCodeDatabaseError, "database operation failed", err)
}

func WrapUnknownGroupingKey(name string) *BusinessError {
	return NewBusinessError(
		ErrCodeUnknownGrouping,
		fmt.Sprintf("grouping key %q is not supported", name),
		ErrUnknownGroupingKey,
	)
}

func WrapEventBusError(err error) *BusinessError {
	return NewBusinessError(ErrCodeEventBusError, "event bus operation failed", err)
}

func WrapTokenError(scope string, err error) *BusinessError {
	return NewBusinessError(
		ErrCodeTokenAcquisition,
		fmt.Sprintf("could not acquire token for scope %s", scope),
		err,
	)
}

// IsValidation reports whether err is a boundary validation failure.
func IsValidation(err error) bool {
	var be *BusinessError
	return errors.As(err, &be) && be.Code == ErrCodeValidation
}

// IsUpstream reports whether err stems from a remote dependency failure.
func IsUpstream(err error) bool {
	if errors.Is(err, ErrUpstreamUnavailable) {
		return true
	}
	var be *BusinessError
	return errors.As(err, &be) && be.Code == ErrCodeUpstreamFailure
}
