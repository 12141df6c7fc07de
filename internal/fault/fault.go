// Package fault tags errors from external collaborators as transient or
// permanent, so callers decide between retry-next-cycle and permanent skip
// without inspecting error strings.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a collaborator failure.
type Kind int

const (
	// KindTransient failures (timeouts, rate limits, upstream blips) are
	// retried on a later poll cycle.
	KindTransient Kind = iota + 1
	// KindPermanent failures (content gone, captions disabled) are never
	// retried; the item is recorded as handled.
	KindPermanent
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error wraps an underlying error with its retry classification.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transient tags err as retryable. Returns nil for a nil err.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindTransient, Err: err}
}

// Permanent tags err as not retryable. Returns nil for a nil err.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindPermanent, Err: err}
}

// Transientf tags a formatted error as retryable.
func Transientf(format string, args ...any) error {
	return &Error{Kind: KindTransient, Err: fmt.Errorf(format, args...)}
}

// Permanentf tags a formatted error as not retryable.
func Permanentf(format string, args ...any) error {
	return &Error{Kind: KindPermanent, Err: fmt.Errorf(format, args...)}
}

// IsPermanent reports whether err is tagged permanent.
func IsPermanent(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == KindPermanent
}

// IsTransient reports whether err should be retried. Untagged errors count
// as transient: retrying costs one extra look next cycle, while wrongly
// treating a network blip as permanent silently drops the item.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind == KindTransient
	}
	return true
}
