// Package scheduler runs periodic maintenance jobs such as session expiry.
package scheduler

import (
	"time"

	"github.com/go-co-op/gocron"
)

// Scheduler manages scheduled jobs
type Scheduler struct {
	scheduler *gocron.Scheduler
}

// NewScheduler creates a UTC scheduler with unique job tags
func NewScheduler() *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()
	s.SingletonModeAll()

	return &Scheduler{scheduler: s}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// ScheduleInterval schedules a job to run at regular intervals, starting immediately
func (s *Scheduler) ScheduleInterval(tag string, every time.Duration, job func()) error {
	_, err := s.scheduler.Every(every).Tag(tag).Do(job)
	return err
}

// RemoveJob removes a scheduled job by tag
func (s *Scheduler) RemoveJob(tag string) error {
	return s.scheduler.RemoveByTag(tag)
}

// Len returns the number of scheduled jobs
func (s *Scheduler) Len() int {
	return s.scheduler.Len()
}
