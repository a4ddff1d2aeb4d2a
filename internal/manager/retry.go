package manager

import (
	"errors"
	"syscall"
	"time"
)

// retry runs fn up to attempts times. After a failure, classify decides
// whether the next attempt happens: non-retryable errors abort immediately.
// Attempts are sequential so attempted-port accounting stays deterministic.
func retry(attempts int, delay time.Duration, classify func(error) bool, fn func(attempt int) error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(i); err == nil {
			return nil
		}
		if !classify(err) {
			return err
		}
		if i < attempts-1 && delay > 0 {
			time.Sleep(delay)
		}
	}
	return err
}

// isAddrInUse classifies bind failures worth retrying on the next port.
func isAddrInUse(err error) bool {
	return errors.Is(err, syscall.EADDRINUSE)
}
