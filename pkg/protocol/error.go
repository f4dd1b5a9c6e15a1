package protocol

import (
	"errors"
	"fmt"
)

// Error exposes methods useful for categorizing errors.
type Error interface {
	error

	// MayHaveSucceeded returns true if the Error was triggered by a command that might have been
	// executed. For example, if a characteristic write times out, the client cannot tell whether the
	// controller received the frame.
	MayHaveSucceeded() bool

	// Temporary returns true if the Error might be the result of a transient condition, such as the
	// controller briefly refusing writes while it reconfigures its LED driver.
	Temporary() bool
}

var (
	// ErrOutOfRange is matched (using errors.Is) by every *OutOfRangeError.
	ErrOutOfRange = errors.New("parameter out of range")
	// ErrMalformed is matched (using errors.Is) by every *MalformedError.
	ErrMalformed = errors.New("malformed notification")
	// ErrUnsupportedIntent indicates Encode was called with a nil or foreign Intent.
	ErrUnsupportedIntent = errors.New("unsupported intent")

	// ErrNotConnected indicates the controller could not be reached.
	ErrNotConnected = NewError("controller not connected", false, false)
	// ErrNoResponse indicates the controller did not send a notification in reply to a request.
	// The request itself may have been executed.
	ErrNoResponse = NewError("controller did not respond", true, true)
	// ErrWriteFailed indicates the BLE stack rejected a characteristic write.
	ErrWriteFailed = NewError("characteristic write failed", true, true)
	// ErrBadHandshake indicates the controller replied to Hello with something other than the
	// expected acknowledgement.
	ErrBadHandshake = NewError("controller sent an unexpected handshake reply", false, false)
)

// CommandError is a transport-level error annotated with retry hints.
type CommandError struct {
	Err               error
	PossibleSuccess   bool
	PossibleTemporary bool
}

func NewError(message string, mayHaveSucceeded bool, temporary bool) error {
	return &CommandError{Err: errors.New(message), PossibleSuccess: mayHaveSucceeded, PossibleTemporary: temporary}
}

func (e *CommandError) Error() string {
	return e.Err.Error()
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func (e *CommandError) MayHaveSucceeded() bool {
	return e.PossibleSuccess
}

func (e *CommandError) Temporary() bool {
	return e.PossibleTemporary
}

// Range is an inclusive interval of accepted parameter values.
type Range struct {
	Min int
	Max int
}

// Contains reports whether v lies within r.
func (r Range) Contains(v int) bool {
	return v >= r.Min && v <= r.Max
}

func (r Range) String() string {
	return fmt.Sprintf("%d..=%d", r.Min, r.Max)
}

// OutOfRangeError indicates the caller supplied a parameter outside the range the controller
// accepts. The Encoder never clamps; correct the input and encode again.
type OutOfRangeError struct {
	Field   string
	Value   int
	Allowed Range
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("%s: value %d outside allowed range %s", e.Field, e.Value, e.Allowed)
}

func (e *OutOfRangeError) Is(target error) bool {
	return target == ErrOutOfRange
}

func (e *OutOfRangeError) MayHaveSucceeded() bool {
	return false
}

func (e *OutOfRangeError) Temporary() bool {
	return false
}

// MalformedError indicates a notification payload could not be decoded at all.
type MalformedError struct {
	Reason string
}

func (e *MalformedError) Error() string {
	return "malformed notification: " + e.Reason
}

func (e *MalformedError) Is(target error) bool {
	return target == ErrMalformed
}

func (e *MalformedError) MayHaveSucceeded() bool {
	return false
}

func (e *MalformedError) Temporary() bool {
	return false
}

// MayHaveSucceeded returns true if err is an Error that indicates the command may have been
// executed but the client did not receive a confirmation from the controller.
func MayHaveSucceeded(err error) bool {
	var commErr Error
	if errors.As(err, &commErr) && commErr.MayHaveSucceeded() {
		return true
	}
	return false
}

// Temporary returns true if err is an Error that indicates the command failed due to possibly
// transient conditions that do not require user action to resolve.
func Temporary(err error) bool {
	var commErr Error
	if errors.As(err, &commErr) && commErr.Temporary() {
		return true
	}
	return false
}

// ShouldRetry returns true if the client should retry the command that triggered err.
//
// Frames are deterministic and every frame fully determines the resulting device state, so a
// retransmission is harmless even when the original write MayHaveSucceeded.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	return Temporary(err)
}
