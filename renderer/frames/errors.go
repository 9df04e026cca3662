package frames

import (
	"github.com/pkg/errors"
)

// Recoverable conditions of the frame loop. They cost at most a dropped frame and never end the process.
var (
	// ErrOutOfDate reports a swapchain that no longer matches its surface (resize, minimize, display change).
	ErrOutOfDate = errors.New("swapchain out of date")
	// ErrTimeout reports a bounded GPU wait (fence or acquire) that ran out.
	ErrTimeout = errors.New("timed out waiting for the GPU")
	// ErrQueueBusy reports an export that could not get the queue between interactive frames.
	ErrQueueBusy = errors.New("device queue busy with interactive frames")
)

// IsRecoverable tells the frame loop whether err is one of the expected conditions above, possibly wrapped.
func IsRecoverable(err error) bool {
	switch errors.Cause(err) {
	case ErrOutOfDate, ErrTimeout, ErrQueueBusy:
		return true
	}
	return false
}
