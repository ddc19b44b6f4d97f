package worker

import (
	"context"
	"log/slog"
	"sync"
)

// Job is a unit of background work. Jobs must tolerate being run more than
// once: every sweep action lands on a compare-and-swap guarded transition, so
// duplicate execution is harmless.
type Job func(ctx context.Context) error

type WorkingPool struct {
	NumWorkers int
	jobChan    chan Job
}

func NewWorkingPool(numWorkers int, queueSize int) *WorkingPool {
	return &WorkingPool{
		NumWorkers: numWorkers,
		jobChan:    make(chan Job, queueSize),
	}
}

func (p *WorkingPool) SubmitJob(job Job) {
	p.jobChan <- job
}

func (p *WorkingPool) Start(ctx context.Context, managerWg *sync.WaitGroup) {
	defer managerWg.Done()

	var workerWg sync.WaitGroup

	for i := range p.NumWorkers {
		workerWg.Add(1)
		go p.worker(ctx, &workerWg, i+1)
	}

	// Wait for shutdown, then drain
	<-ctx.Done()

	slog.Info("Working pool shutdown signaled, closing job channel")
	close(p.jobChan)

	workerWg.Wait()
	slog.Info("All workers stopped")
}

// worker is the internal goroutine for a single worker
func (p *WorkingPool) worker(ctx context.Context, wg *sync.WaitGroup, id int) {
	defer wg.Done()

	for {
		select {
		case job, ok := <-p.jobChan:
			if !ok {
				slog.Debug("Job channel closed, worker exiting", "worker_id", id)
				return
			}
			p.safeExecution(ctx, job, id)

		case <-ctx.Done():
			// Exit immediately, even if the job channel is not closed.
			slog.Debug("Context canceled, worker exiting", "worker_id", id)
			return
		}
	}
}

func (p *WorkingPool) safeExecution(ctx context.Context, job Job, workerID int) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic recovered in background job", "worker_id", workerID, "panic", r)
		}
	}()

	if err := job(ctx); err != nil {
		slog.Error("Background job failed", "worker_id", workerID, "error", err)
	}
}
