package aggregate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/yungbote/flightwx/internal/platform/httpx"
)

var (
	// ErrDirectoryUnavailable wraps any failure of Directory.List.
	ErrDirectoryUnavailable = errors.New("directory unavailable")

	// ErrDetailTimeout marks a detail attempt that ran past the per-item timeout.
	ErrDetailTimeout = errors.New("detail timeout")

	ErrCanceled = errors.New("aggregation canceled")
)

// DetailError is returned by detail providers that know the upstream status.
type DetailError struct {
	Code    int
	Message string

	// Err is the underlying transport error, when any.
	Err error
}

func (e *DetailError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.Code)
	}
	return fmt.Sprintf("detail error: status=%d message=%s", e.Code, msg)
}

func (e *DetailError) HTTPStatusCode() int { return e.Code }

func (e *DetailError) Unwrap() error { return e.Err }

// Classify maps a detail failure onto an ErrorKind. parent is the context the
// fetch runs under; once it is done every failure is a cancellation.
func Classify(parent context.Context, err error) ErrorKind {
	if parent != nil && parent.Err() != nil {
		return KindCanceled
	}
	if errors.Is(err, ErrDetailTimeout) || httpx.IsTimeout(err) {
		return KindTransient
	}
	if errors.Is(err, context.Canceled) {
		// Cancelled by the provider itself, not by the caller.
		return KindTransient
	}
	if httpx.IsRetryableError(err) {
		return KindTransient
	}
	return KindPermanent
}
