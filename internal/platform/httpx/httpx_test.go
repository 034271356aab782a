package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

type statusErr int

func (e statusErr) Error() string       { return fmt.Sprintf("status %d", int(e)) }
func (e statusErr) HTTPStatusCode() int { return int(e) }

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsRetryableError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline", context.DeadlineExceeded, true},
		{"wrapped deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), true},
		{"net timeout", timeoutErr{}, true},
		{"500", statusErr(500), true},
		{"503 wrapped", fmt.Errorf("x: %w", statusErr(503)), true},
		{"429", statusErr(http.StatusTooManyRequests), true},
		{"408", statusErr(http.StatusRequestTimeout), true},
		{"404", statusErr(404), false},
		{"400", statusErr(400), false},
		{"unknown", errors.New("connection reset"), true},
	}
	for _, tc := range cases {
		if got := IsRetryableError(tc.err); got != tc.want {
			t.Fatalf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}
}

func TestStatusCode(t *testing.T) {
	if got := StatusCode(fmt.Errorf("wrap: %w", statusErr(404))); got != 404 {
		t.Fatalf("got %d", got)
	}
	if got := StatusCode(errors.New("x")); got != 0 {
		t.Fatalf("got %d", got)
	}
}

func TestJitterSleepBounds(t *testing.T) {
	base := 100 * time.Millisecond
	for i := 0; i < 100; i++ {
		d := JitterSleep(base)
		if d < 80*time.Millisecond || d > 120*time.Millisecond {
			t.Fatalf("out of bounds: %v", d)
		}
	}
	if JitterSleep(0) != 0 {
		t.Fatalf("expected 0")
	}
}

func TestSleepCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if err := Sleep(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("sleep did not abort")
	}
}

func TestRetryAfterDuration(t *testing.T) {
	resp := &http.Response{Header: http.Header{"Retry-After": []string{"3"}}}
	if got := RetryAfterDuration(resp, time.Second, 2*time.Second); got != 2*time.Second {
		t.Fatalf("got %v", got)
	}
	if got := RetryAfterDuration(nil, time.Second, 0); got != time.Second {
		t.Fatalf("got %v", got)
	}
}

func TestCheckResponse(t *testing.T) {
	ok := &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("{}"))}
	if err := CheckResponse(ok); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	resp := &http.Response{
		StatusCode: http.StatusTooManyRequests,
		Header:     http.Header{"Retry-After": []string{"2"}},
		Body:       io.NopCloser(strings.NewReader("  slow down \n")),
	}
	err := CheckResponse(resp)
	var he *HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *HTTPError, got %T", err)
	}
	if he.Body != "slow down" || he.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("got %+v", he)
	}
	if got := RetryAfter(fmt.Errorf("wrapped: %w", err)); got != 2*time.Second {
		t.Fatalf("retry after=%v", got)
	}
	if StatusCode(err) != http.StatusTooManyRequests || !IsRetryableError(err) {
		t.Fatalf("classification mismatch for %v", err)
	}
}
