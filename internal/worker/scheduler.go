package worker

import (
	"context"
	"log/slog"
	"time"
)

// JobScheduler submits its jobs to the pool on every tick.
type JobScheduler struct {
	Name   string
	Ticker *time.Ticker
	Jobs   []Job
	Pool   *WorkingPool
}

func NewJobScheduler(name string, interval time.Duration, pool *WorkingPool) *JobScheduler {
	return &JobScheduler{
		Name:   name,
		Ticker: time.NewTicker(interval),
		Jobs:   make([]Job, 0),
		Pool:   pool,
	}
}

func (s *JobScheduler) AddJob(job Job) {
	s.Jobs = append(s.Jobs, job)
}

func (s *JobScheduler) Run(ctx context.Context) {
	slog.Info("Scheduler started", "scheduler", s.Name, "jobs", len(s.Jobs))
	defer s.Ticker.Stop()

	for {
		select {
		case <-s.Ticker.C:
			for _, job := range s.Jobs {
				s.Pool.SubmitJob(job)
			}

		case <-ctx.Done():
			slog.Info("Scheduler shutting down", "scheduler", s.Name)
			return
		}
	}
}
