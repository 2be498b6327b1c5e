package dispatch

import (
	"errors"
	"strings"
)

// ErrRecipientGone marks a delivery failure after which the recipient can
// never be reached again. Channels wrap their structured "blocked" and
// "not found" errors with it.
var ErrRecipientGone = errors.New("recipient unreachable")

// Failure is the class of a delivery error.
type Failure int

const (
	// FailureTransient may succeed on a later cycle.
	FailureTransient Failure = iota
	// FailurePermanent means the recipient is gone.
	FailurePermanent
)

// String returns the metric label for f.
func (f Failure) String() string {
	if f == FailurePermanent {
		return "permanent"
	}
	return "transient"
}

// permanentIndicators are matched against error text only when the
// channel did not report a structured reason.
var permanentIndicators = []string{
	"blocked",
	"not found",
	"deactivated",
	"kicked",
}

// Classify decides whether err is permanent or transient. Structured
// ErrRecipientGone wins; otherwise the error text is searched for known
// indicators; everything else is transient.
func Classify(err error) Failure {
	if err == nil {
		return FailureTransient
	}
	if errors.Is(err, ErrRecipientGone) {
		return FailurePermanent
	}

	text := strings.ToLower(err.Error())
	for _, s := range permanentIndicators {
		if strings.Contains(text, s) {
			return FailurePermanent
		}
	}
	return FailureTransient
}
