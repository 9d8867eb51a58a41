package processflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	snap      *Snapshot
	err       error
	companies []int64
	calls     atomic.Int32
	delay     time.Duration
}

func (m *mockRepo) LoadSnapshot(ctx context.Context, companyID int64) (*Snapshot, error) {
	m.calls.Add(1)
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.err != nil {
		return nil, m.err
	}
	snap := *m.snap
	snap.CompanyID = companyID
	return &snap, nil
}

func (m *mockRepo) ListCompanyIDs(ctx context.Context) ([]int64, error) {
	return m.companies, m.err
}

type fakeRecorder struct {
	mu      sync.Mutex
	loads   map[string]int
	unknown []string
}

func (f *fakeRecorder) SnapshotLoaded(source string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loads == nil {
		f.loads = map[string]int{}
	}
	result := source + ":ok"
	if err != nil {
		result = source + ":error"
	}
	f.loads[result]++
}

func (f *fakeRecorder) UnknownStatus(status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unknown = append(f.unknown, status)
}

func newTestService(t *testing.T, repo Repository) (*Service, *fakeRecorder, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	recorder := &fakeRecorder{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, NewCache(client, time.Minute), logger, recorder, 3), recorder, mr
}

func TestServiceStateUsesCache(t *testing.T) {
	repo := &mockRepo{snap: newDealSnapshot(QuotationStatusSent)}
	svc, recorder, _ := newTestService(t, repo)
	ctx := context.Background()

	first, err := svc.State(ctx, 1, Query{CustomerID: "c1"})
	require.NoError(t, err)
	second, err := svc.State(ctx, 1, Query{CustomerID: "c1"})
	require.NoError(t, err)

	assert.Equal(t, StepCustomerAcceptance, first.CurrentStep)
	assert.Equal(t, first.CompletedSteps, second.CompletedSteps)
	assert.Equal(t, int32(1), repo.calls.Load())
	assert.Equal(t, 1, recorder.loads["database:ok"])
	assert.Equal(t, 1, recorder.loads["cache:ok"])
}

func TestServiceRefreshReloads(t *testing.T) {
	repo := &mockRepo{snap: newDealSnapshot(QuotationStatusSent)}
	svc, _, _ := newTestService(t, repo)
	ctx := context.Background()

	_, err := svc.Pipeline(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, svc.Refresh(ctx, 1))
	_, err = svc.Pipeline(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, int32(2), repo.calls.Load())
}

func TestServiceWarmLoadsFreshSnapshot(t *testing.T) {
	repo := &mockRepo{snap: newDealSnapshot(QuotationStatusSent)}
	svc, _, _ := newTestService(t, repo)

	require.NoError(t, svc.Warm(context.Background(), 4))
	require.NoError(t, svc.Warm(context.Background(), 4))
	assert.Equal(t, int32(2), repo.calls.Load())
}

func TestServiceRepositoryError(t *testing.T) {
	repo := &mockRepo{err: ErrSnapshotUnavailable}
	svc, recorder, _ := newTestService(t, repo)

	_, err := svc.State(context.Background(), 1, Query{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSnapshotUnavailable)
	assert.Equal(t, 1, recorder.loads["database:error"])
}

func TestServiceInvalidCompany(t *testing.T) {
	svc, _, _ := newTestService(t, &mockRepo{snap: &Snapshot{}})

	_, err := svc.State(context.Background(), 0, Query{})
	assert.ErrorIs(t, err, ErrInvalidCompany)
	assert.ErrorIs(t, svc.Refresh(context.Background(), -1), ErrInvalidCompany)
}

func TestServiceFallsBackWhenRedisIsDown(t *testing.T) {
	repo := &mockRepo{snap: newDealSnapshot(QuotationStatusAccepted)}
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	recorder := &fakeRecorder{}
	svc := NewService(repo, NewCache(client, time.Minute), slog.New(slog.NewTextHandler(io.Discard, nil)), recorder, 3)

	state, err := svc.State(context.Background(), 1, Query{CustomerID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, StepSalesOrder, state.CurrentStep)
	assert.Equal(t, 1, recorder.loads["cache:error"])
	assert.Equal(t, 1, recorder.loads["database:ok"])
}

func TestServiceRecordsUnknownStatus(t *testing.T) {
	repo := &mockRepo{snap: newDealSnapshot(QuotationStatus("On Hold"))}
	svc, recorder, _ := newTestService(t, repo)

	state, err := svc.State(context.Background(), 1, Query{CustomerID: "c1"})
	require.NoError(t, err)
	assert.True(t, state.UnknownStatus)
	assert.Equal(t, []string{"On Hold"}, recorder.unknown)
}

func TestServiceUrgentTasksAppliesAcknowledgementsBeforeLimit(t *testing.T) {
	snap := &Snapshot{Quotations: []Quotation{
		fixtureQuotation("q1", "c1", QuotationStatusDraft, day("2024-01-01")),
		fixtureQuotation("q2", "c2", QuotationStatusUnderReview, day("2024-01-02")),
		fixtureQuotation("q3", "c3", QuotationStatusSent, day("2024-01-03")),
		fixtureQuotation("q4", "c4", QuotationStatusExpired, day("2024-01-04")),
	}}
	svc, _, _ := newTestService(t, &mockRepo{snap: snap})
	ctx := context.Background()

	all, err := svc.UrgentTasks(ctx, 1, nil, 10)
	require.NoError(t, err)
	require.Len(t, all, 4)

	tasks, err := svc.UrgentTasks(ctx, 1, map[string]struct{}{all[0].ID: {}}, 0)
	require.NoError(t, err)
	require.Len(t, tasks, 3, "default limit applies after filtering")
	assert.Equal(t, "q2", tasks[0].EntityID)
	assert.Equal(t, "q4", tasks[2].EntityID)
}

func TestServiceSharesConcurrentLoads(t *testing.T) {
	repo := &mockRepo{snap: newDealSnapshot(QuotationStatusSent), delay: 50 * time.Millisecond}
	svc, _, _ := newTestService(t, repo)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Timeline(context.Background(), 1, Query{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), repo.calls.Load())
}

func TestServiceSnapshotHonoursCancellation(t *testing.T) {
	repo := &mockRepo{snap: newDealSnapshot(QuotationStatusSent), delay: 200 * time.Millisecond}
	svc, _, _ := newTestService(t, repo)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := svc.Snapshot(ctx, 1)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
