package jobs

import (
	"context"
	"log/slog"
	"time"

	"certgen/frontend/internal/config"
)

// Expirer is satisfied by *session.Store.
type Expirer interface {
	ExpireIfNeeded(ctx context.Context) (bool, error)
}

// StartSessionExpiryJob logs the session out once its token's exp passes.
func StartSessionExpiryJob(ctx context.Context, cfg config.Config, sessions Expirer, logger *slog.Logger) {
	if sessions == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	interval := cfg.SessionCheckInterval
	if interval <= 0 {
		interval = time.Minute
	}
	timeout := 5 * time.Second
	if interval < timeout {
		timeout = interval
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tickCtx, cancel := context.WithTimeout(ctx, timeout)
				expired, err := sessions.ExpireIfNeeded(tickCtx)
				cancel()
				if err != nil {
					logger.Warn("session expiry job error", "error", err)
					continue
				}
				if expired {
					logger.Info("session expiry job logged out expired session")
				}
			}
		}
	}()
}
