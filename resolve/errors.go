/*
errors.go - Tagged error kinds for resolution failures

PURPOSE:
  All resolver error types in one place. Every failure is tagged with a
  Kind AT THE POINT OF CREATION — callers branch on the tag with
  errors.As, never by inspecting message text.

ERROR CATEGORIES:
  KindAuthorization - missing/invalid credential, insufficient rights
  KindConfiguration - upstream endpoint not found
  KindUpstream      - any other non-success upstream status
  KindDataFormat    - payload missing the expected numeric field

PROPAGATION:
  The date resolver never surfaces these — it degrades to sentinel
  Hijri dates. The threshold resolver propagates them upward, and the
  orchestrator aborts the run atomically. Authorization failures render
  with a distinguishing prefix so the caller can show a specific
  "check your credential" message.

SEE ALSO:
  - nisab.go: Primary producer of these errors
  - api/handlers.go: Maps kinds to HTTP responses
*/
package resolve

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNoCredential is returned when no price-source credential is
	// configured and the threshold is not cached.
	ErrNoCredential = errors.New("no price source credential configured")

	// ErrUnconvertible is returned by date clients when the upstream
	// recognized the request but could not convert the date. The date
	// resolver maps it to the "N/A" sentinel.
	ErrUnconvertible = errors.New("date not convertible")
)

// =============================================================================
// TAGGED RESOLUTION ERRORS
// =============================================================================

// Kind classifies a resolution failure. Set where the error is created.
type Kind int

const (
	KindUpstream Kind = iota
	KindAuthorization
	KindConfiguration
	KindDataFormat
)

func (k Kind) String() string {
	switch k {
	case KindAuthorization:
		return "authorization"
	case KindConfiguration:
		return "configuration"
	case KindDataFormat:
		return "data-format"
	default:
		return "upstream"
	}
}

// Error is a classified resolution failure. Authorization-kind errors
// render with a distinguishing prefix; all other kinds pass their
// message through unchanged.
type Error struct {
	Kind    Kind
	Status  int // upstream HTTP status, 0 when not applicable
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Kind == KindAuthorization {
		return "authorization: " + msg
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the Kind from err, defaulting to KindUpstream for
// untagged errors.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindUpstream
}

// IsAuthorization reports whether err is a credential problem.
func IsAuthorization(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Kind == KindAuthorization
}
