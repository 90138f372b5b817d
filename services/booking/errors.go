package booking

import "fmt"

// Code is the stable, machine-readable kind of a booking error.
type Code string

const (
	CodeSlotUnavailable          Code = "slot_unavailable"
	CodeDuplicateActiveBooking   Code = "duplicate_active_booking"
	CodeDuplicateActiveEmergency Code = "duplicate_active_emergency"
	CodeEmergencyNotAccepted     Code = "emergency_not_accepted"
	CodeInsufficientBalance      Code = "insufficient_balance"
	CodeEmergencyExpired         Code = "emergency_expired"
	CodeUnauthorized             Code = "unauthorized"
	CodeCallNotReady             Code = "call_not_ready"
	CodeSessionJoinTimeout       Code = "session_join_timeout"
	CodeBookingNotFound          Code = "booking_not_found"
	CodeProfessionalNotFound     Code = "professional_not_found"
	CodeIllegalTransition        Code = "illegal_transition"
	CodeInvalidRequest           Code = "invalid_request"
)

// Error is returned by every booking command. Two errors match under
// errors.Is when their codes are equal.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrSlotUnavailable          = &Error{Code: CodeSlotUnavailable, Message: "requested slot is not available"}
	ErrDuplicateActiveBooking   = &Error{Code: CodeDuplicateActiveBooking, Message: "patient already has an active booking with this professional"}
	ErrDuplicateActiveEmergency = &Error{Code: CodeDuplicateActiveEmergency, Message: "patient already has an active emergency"}
	ErrEmergencyNotAccepted     = &Error{Code: CodeEmergencyNotAccepted, Message: "professional is not accepting emergencies"}
	ErrInsufficientBalance      = &Error{Code: CodeInsufficientBalance, Message: "wallet balance does not cover the fee"}
	ErrEmergencyExpired         = &Error{Code: CodeEmergencyExpired, Message: "emergency response window has passed"}
	ErrUnauthorized             = &Error{Code: CodeUnauthorized, Message: "caller is not a party to this booking"}
	ErrCallNotReady             = &Error{Code: CodeCallNotReady, Message: "call is not ready to join"}
	ErrSessionJoinTimeout       = &Error{Code: CodeSessionJoinTimeout, Message: "call session did not become joinable in time"}
	ErrBookingNotFound          = &Error{Code: CodeBookingNotFound, Message: "booking not found"}
	ErrProfessionalNotFound     = &Error{Code: CodeProfessionalNotFound, Message: "professional not found"}
	ErrIllegalTransition        = &Error{Code: CodeIllegalTransition, Message: "transition not allowed from current state"}
	ErrInvalidRequest           = &Error{Code: CodeInvalidRequest, Message: "invalid request"}
)

// withDetail copies base with a more specific message or cause.
func withDetail(base *Error, message string, cause error) *Error {
	e := *base
	if message != "" {
		e.Message = message
	}
	e.Err = cause
	return &e
}
