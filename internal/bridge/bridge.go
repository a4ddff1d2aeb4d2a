// Package bridge adapts the callback-based inference runtime into a single
// blocking call with a bounded wait.
package bridge

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"inferd/internal/runtime"
)

// DefaultTimeout bounds one completion end to end.
const DefaultTimeout = 300 * time.Second

// inferenceError carries the runtime's error message; mapped to 500
// api_error at the router.
type inferenceError struct{ msg string }

func (e inferenceError) Error() string   { return "inference error: " + e.msg }
func (e inferenceError) StatusCode() int { return http.StatusInternalServerError }
func (e inferenceError) Kind() string    { return "api_error" }

// IsInferenceError reports whether err is a runtime-signaled failure.
func IsInferenceError(err error) bool {
	_, ok := err.(inferenceError)
	return ok
}

// timeoutError signals that neither done nor error arrived in time.
type timeoutError struct{ after time.Duration }

func (e timeoutError) Error() string   { return fmt.Sprintf("inference timed out after %s", e.after) }
func (e timeoutError) StatusCode() int { return http.StatusInternalServerError }
func (e timeoutError) Kind() string    { return "api_error" }

// IsTimeout reports whether err is a bridge timeout.
func IsTimeout(err error) bool {
	_, ok := err.(timeoutError)
	return ok
}

// Bridge turns the runtime's delta stream into one synchronous completion.
// It is stateless per call.
type Bridge struct {
	rt      runtime.Runtime
	timeout time.Duration
}

// New wraps rt; timeout <= 0 uses DefaultTimeout.
func New(rt runtime.Runtime, timeout time.Duration) *Bridge {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Bridge{rt: rt, timeout: timeout}
}

// Complete submits one generation and blocks until the runtime signals
// done (returns the deltas concatenated in arrival order), signals an
// error, or the timeout elapses. ctx is the server's base context used for
// host shutdown; client disconnects are deliberately not wired here because
// the runtime is non-preemptible and an admitted request runs to its outcome.
func (b *Bridge) Complete(ctx context.Context, prompt string, images [][]byte, audio []byte, params runtime.Params) (string, error) {
	var (
		mu sync.Mutex
		sb strings.Builder
	)
	outcome := make(chan error, 1)
	settle := func(err error) {
		select {
		case outcome <- err:
		default:
			// A second signal after the first is dropped.
		}
	}

	b.rt.Run(prompt, images, audio, params, runtime.Handler{
		OnDelta: func(delta string) {
			mu.Lock()
			sb.WriteString(delta)
			mu.Unlock()
		},
		OnDone:  func() { settle(nil) },
		OnError: func(err error) { settle(err) },
	})

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()
	select {
	case err := <-outcome:
		if err != nil {
			return "", inferenceError{msg: err.Error()}
		}
		mu.Lock()
		defer mu.Unlock()
		return sb.String(), nil
	case <-timer.C:
		return "", timeoutError{after: b.timeout}
	case <-ctx.Done():
		return "", inferenceError{msg: ctx.Err().Error()}
	}
}
