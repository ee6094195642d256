package session

import (
	"context"
	"time"
)

// Watch refreshes the session every interval while a user is signed in,
// until ctx is done. Network failures keep the session and are retried on
// the next tick; any other failure signs the user out locally.
func (m *Manager) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if m.confirmedUserID() == "" {
				continue
			}
			rctx, cancel := context.WithTimeout(ctx, interval)
			err := m.refresh(rctx, true)
			cancel()
			if err != nil {
				m.log.Warn(ctx, "periodic session refresh failed", "error", err)
			}

		case <-ctx.Done():
			return
		}
	}
}
