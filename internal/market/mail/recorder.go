package mail

import (
	"context"
	"sync"
)

// Recorder is an in-memory Notifier. It keeps every message it is asked to
// send, and fails with Err when Err is set.
type Recorder struct {
	Unconfigured bool
	Err          error

	mu   sync.Mutex
	sent []ResetCodeMessage
}

func (r *Recorder) Configured() bool { return !r.Unconfigured }

func (r *Recorder) SendResetCode(_ context.Context, msg ResetCodeMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.sent = append(r.sent, msg)
	return nil
}

// Sent returns a copy of the delivered messages.
func (r *Recorder) Sent() []ResetCodeMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ResetCodeMessage(nil), r.sent...)
}

// Last returns the most recent message.
func (r *Recorder) Last() (ResetCodeMessage, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return ResetCodeMessage{}, false
	}
	return r.sent[len(r.sent)-1], true
}
