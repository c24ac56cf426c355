package services

import (
	"context"
	"time"

	"docqa-service/internal/logger"
	"docqa-service/internal/scheduler"
)

const expiryJobTag = "session-expiry"

// ExpiryService periodically deletes sessions older than the configured TTL.
type ExpiryService struct {
	sessions  *SessionService
	scheduler *scheduler.Scheduler
	ttl       time.Duration
	interval  time.Duration
}

func NewExpiryService(sessions *SessionService, sched *scheduler.Scheduler, ttl, interval time.Duration) *ExpiryService {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &ExpiryService{
		sessions:  sessions,
		scheduler: sched,
		ttl:       ttl,
		interval:  interval,
	}
}

// Start registers the sweep. A zero TTL disables expiry.
func (e *ExpiryService) Start() error {
	if e.ttl <= 0 {
		logger.Info("Session expiry disabled")
		return nil
	}
	if err := e.scheduler.ScheduleInterval(expiryJobTag, e.interval, e.Sweep); err != nil {
		return err
	}
	logger.Info("Session expiry scheduled", "ttl", e.ttl.String(), "interval", e.interval.String())
	return nil
}

func (e *ExpiryService) Stop() {
	if err := e.scheduler.RemoveJob(expiryJobTag); err != nil {
		logger.Debug("Expiry job not registered", "error", err)
	}
}

// Sweep runs one expiry pass.
func (e *ExpiryService) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	n, err := e.sessions.ExpireSessions(ctx, e.ttl)
	if err != nil {
		logger.Error("Session expiry sweep failed", "expired", n, "error", err)
		return
	}
	if n > 0 {
		logger.Info("Expired sessions", "count", n)
	}
}
