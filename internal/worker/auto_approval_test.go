package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"policy-lifecycle/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClock struct{ now time.Time }

func (c stubClock) Now() time.Time { return c.now }

type stubDeadlineLister struct {
	ids []uuid.UUID
	err error
}

func (l *stubDeadlineLister) ListPendingDeadlines(_ context.Context, _ int64) ([]uuid.UUID, error) {
	return l.ids, l.err
}

type stubApprover struct {
	mu       sync.Mutex
	approved []uuid.UUID
	errs     map[uuid.UUID]error
}

func (a *stubApprover) AutoApprove(_ context.Context, claimID uuid.UUID) (*models.Claim, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err, ok := a.errs[claimID]; ok {
		return nil, err
	}
	a.approved = append(a.approved, claimID)
	return &models.Claim{ID: claimID, Status: models.ClaimApproved, AutoApproved: true}, nil
}

type stubLock struct {
	acquired bool
	err      error
	calls    int
}

func (l *stubLock) TryAcquire(_ context.Context, _ string, _ time.Duration) (bool, error) {
	l.calls++
	return l.acquired, l.err
}

func TestAutoApprovalSweepApprovesOverdueClaims(t *testing.T) {
	overdue := []uuid.UUID{uuid.New(), uuid.New()}
	lister := &stubDeadlineLister{ids: overdue}
	approver := &stubApprover{}
	clock := stubClock{now: time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)}

	sweep := NewAutoApprovalSweep(lister, approver, nil, clock, time.Minute)
	require.NoError(t, sweep(context.Background()))

	assert.ElementsMatch(t, overdue, approver.approved)
}

func TestAutoApprovalSweepDropsDecidedClaims(t *testing.T) {
	decided := uuid.New()
	remaining := uuid.New()
	lister := &stubDeadlineLister{ids: []uuid.UUID{decided, remaining}}
	approver := &stubApprover{errs: map[uuid.UUID]error{
		decided: fmt.Errorf("claim no longer pending: %w", models.ErrConflict),
	}}
	clock := stubClock{now: time.Now()}

	sweep := NewAutoApprovalSweep(lister, approver, nil, clock, time.Minute)
	require.NoError(t, sweep(context.Background()))

	assert.Equal(t, []uuid.UUID{remaining}, approver.approved)
}

func TestAutoApprovalSweepSkipsWhenLockNotAcquired(t *testing.T) {
	lister := &stubDeadlineLister{ids: []uuid.UUID{uuid.New()}}
	approver := &stubApprover{}
	lock := &stubLock{acquired: false}

	sweep := NewAutoApprovalSweep(lister, approver, lock, stubClock{now: time.Now()}, time.Minute)
	require.NoError(t, sweep(context.Background()))

	assert.Equal(t, 1, lock.calls)
	assert.Empty(t, approver.approved)
}

func TestAutoApprovalSweepRunsWhenLockErrors(t *testing.T) {
	id := uuid.New()
	lister := &stubDeadlineLister{ids: []uuid.UUID{id}}
	approver := &stubApprover{}
	lock := &stubLock{err: errors.New("redis unavailable")}

	sweep := NewAutoApprovalSweep(lister, approver, lock, stubClock{now: time.Now()}, time.Minute)
	require.NoError(t, sweep(context.Background()))

	assert.Equal(t, []uuid.UUID{id}, approver.approved)
}

func TestAutoApprovalSweepPropagatesListError(t *testing.T) {
	lister := &stubDeadlineLister{err: errors.New("connection refused")}
	sweep := NewAutoApprovalSweep(lister, &stubApprover{}, nil, stubClock{now: time.Now()}, time.Minute)

	assert.Error(t, sweep(context.Background()))
}

func TestWorkingPoolRunsSubmittedJobs(t *testing.T) {
	pool := NewWorkingPool(2, 8)

	ctx, cancel := context.WithCancel(context.Background())
	var managerWg sync.WaitGroup
	managerWg.Add(1)
	go pool.Start(ctx, &managerWg)

	var mu sync.Mutex
	ran := 0
	done := make(chan struct{}, 3)
	for range 3 {
		pool.SubmitJob(func(context.Context) error {
			mu.Lock()
			ran++
			mu.Unlock()
			done <- struct{}{}
			return nil
		})
	}
	for range 3 {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("job did not run")
		}
	}

	// A panicking job must not take a worker down.
	pool.SubmitJob(func(context.Context) error { panic("boom") })
	pool.SubmitJob(func(context.Context) error {
		done <- struct{}{}
		return nil
	})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pool stopped running jobs after panic")
	}

	cancel()
	managerWg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, ran)
}
