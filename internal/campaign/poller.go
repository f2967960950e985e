package campaign

import (
	"context"
	"errors"
	"time"

	"dialscout/internal/logging"
	"dialscout/internal/telephony"
)

// ErrPollTimeout means the local deadline expired before the provider
// reported a terminal status. The remote call may still be running; the
// pipeline stops waiting but does not cancel it.
var ErrPollTimeout = errors.New("call did not reach a terminal state in time")

// Poller waits for a dispatched call to reach a terminal state.
type Poller struct {
	dialer   Dialer
	interval time.Duration
	timeout  time.Duration
}

// NewPoller creates a poller querying dialer at the given fixed interval
// for at most timeout per call.
func NewPoller(dialer Dialer, interval, timeout time.Duration) *Poller {
	return &Poller{dialer: dialer, interval: interval, timeout: timeout}
}

// Await polls until the call is terminal, the timeout elapses, or ctx is
// cancelled. On timeout it returns ErrPollTimeout; the caller classifies
// the attempt TimedOut locally. Transient status-query failures do not
// end the wait.
func (p *Poller) Await(ctx context.Context, callID string) (*telephony.CallStatus, error) {
	log := logging.Get(logging.CategoryTelephony)
	deadline := time.Now().Add(p.timeout)

	for {
		status, err := p.dialer.GetCallStatus(ctx, callID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("status query for %s failed, will retry: %v", callID, err)
		} else if status.IsTerminal() {
			logging.Telephony("call %s terminal: %s (%.1fs)", callID, status.Status, status.Duration)
			return status, nil
		} else {
			log.Debug("call %s still %s", callID, status.Status)
		}

		if time.Now().After(deadline) {
			return nil, ErrPollTimeout
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.interval):
		}
	}
}
