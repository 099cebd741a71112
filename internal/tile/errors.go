package tile

import (
	"fmt"

	"github.com/jmgilman/go/errors"
)

// Sentinel errors for the outcome of a backend fetch. Every error leaving a store
// wraps exactly one of the reason sentinels. Their error codes carry the retry
// classification: only ErrTransient is retryable.
var (
	// ErrNotFound means the tile legitimately does not exist. Terminal.
	ErrNotFound = errors.New(errors.CodeNotFound, "tile not found")

	// ErrTransient means a network or IO hiccup. Retried with backoff.
	ErrTransient = errors.New(errors.CodeUnavailable, "transient tile fetch failure")

	// ErrCorrupt means bytes were present but could not be decoded. Terminal.
	ErrCorrupt = errors.New(errors.CodeInvalidInput, "tile data corrupt")

	// ErrBackendUnusable is wrapped together with ErrCorrupt by a backend that has
	// given up on its underlying resource.
	ErrBackendUnusable = errors.New(errors.CodeInvalidConfig, "tile backend unusable")
)

// Reason is the classification carried by a failed result.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonNotFound
	ReasonTransient
	ReasonCorrupt
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonNotFound:
		return "not_found"
	case ReasonTransient:
		return "transient"
	case ReasonCorrupt:
		return "corrupt"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// Terminal reports whether a failure with this reason must not be retried.
func (r Reason) Terminal() bool {
	return r != ReasonNone && !errors.IsRetryable(r.sentinel())
}

// Code is the platform error code of the reason.
func (r Reason) Code() errors.ErrorCode {
	if r == ReasonNone {
		return errors.CodeUnknown
	}
	return errors.GetCode(r.sentinel())
}

func (r Reason) sentinel() error {
	switch r {
	case ReasonNotFound:
		return ErrNotFound
	case ReasonTransient:
		return ErrTransient
	default:
		return ErrCorrupt
	}
}

// FetchError carries the context of a classified backend failure.
type FetchError struct {
	Op     string
	Key    Key
	Reason Reason
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Key, e.Reason.sentinel())
	}
	return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Key, e.Reason.sentinel(), e.Err)
}

// Unwrap exposes both the reason sentinel and the underlying cause.
func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Reason.sentinel()}
	}
	return []error{e.Reason.sentinel(), e.Err}
}

func NewFetchError(op string, key Key, reason Reason, err error) *FetchError {
	return &FetchError{Op: op, Key: key, Reason: reason, Err: err}
}

// NotFound, Transient and Corrupt are shorthands used at backend boundaries.
func NotFound(op string, key Key, err error) error {
	return NewFetchError(op, key, ReasonNotFound, err)
}

func Transient(op string, key Key, err error) error {
	return NewFetchError(op, key, ReasonTransient, err)
}

func Corrupt(op string, key Key, err error) error {
	return NewFetchError(op, key, ReasonCorrupt, err)
}

// Classify maps any error to a reason. Platform errors are classified by their
// code and retry classification, anything else is transient.
func Classify(err error) Reason {
	if err == nil {
		return ReasonNone
	}

	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Reason
	}

	var pe errors.PlatformError
	switch {
	case !errors.As(err, &pe):
		return ReasonTransient
	case errors.IsRetryable(err):
		return ReasonTransient
	case errors.GetCode(err) == errors.CodeNotFound:
		return ReasonNotFound
	default:
		return ReasonCorrupt
	}
}
