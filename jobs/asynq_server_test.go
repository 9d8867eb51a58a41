package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEnqueuer struct {
	companies []int64
	err       error
}

func (s *stubEnqueuer) EnqueueSnapshotWarmup(ctx context.Context, companyIDs ...int64) (*asynq.TaskInfo, error) {
	s.companies = companyIDs
	if s.err != nil {
		return nil, s.err
	}
	return &asynq.TaskInfo{ID: "task-1", Queue: QueueDefault}, nil
}

func newJobsRouter(enqueuer Enqueuer) http.Handler {
	r := chi.NewRouter()
	NewHandler(nil, enqueuer, slog.New(slog.NewTextHandler(io.Discard, nil))).MountRoutes(r)
	return r
}

func TestHealthWithoutInspector(t *testing.T) {
	rr := httptest.NewRecorder()
	newJobsRouter(nil).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var body queueHealth
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, QueueDefault, body.Queue)
}

func TestEnqueueWarmup(t *testing.T) {
	enqueuer := &stubEnqueuer{}
	rr := httptest.NewRecorder()
	newJobsRouter(enqueuer).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/snapshot-warmup?company_id=4&company_id=9", nil))

	require.Equal(t, http.StatusAccepted, rr.Code)
	assert.Equal(t, []int64{4, 9}, enqueuer.companies)
	assert.JSONEq(t, `{"task_id":"task-1","queue":"default"}`, rr.Body.String())
}

func TestEnqueueWarmupErrors(t *testing.T) {
	rr := httptest.NewRecorder()
	newJobsRouter(&stubEnqueuer{}).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/snapshot-warmup?company_id=x", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	newJobsRouter(&stubEnqueuer{err: errors.New("redis down")}).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/snapshot-warmup", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr = httptest.NewRecorder()
	newJobsRouter(nil).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/snapshot-warmup", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestRedisConnOptForms(t *testing.T) {
	opt, err := RedisConnOpt("cache:6379")
	require.NoError(t, err)
	assert.Equal(t, asynq.RedisClientOpt{Addr: "cache:6379"}, opt)

	opt, err = RedisConnOpt("redis://:secret@cache:6380/3")
	require.NoError(t, err)
	client, ok := opt.(asynq.RedisClientOpt)
	require.True(t, ok)
	assert.Equal(t, "cache:6380", client.Addr)
	assert.Equal(t, "secret", client.Password)
	assert.Equal(t, 3, client.DB)

	_, err = RedisConnOpt("")
	assert.Error(t, err)
	_, err = RedisConnOpt("ftp://cache:6379")
	assert.Error(t, err)
}

func TestClientEnqueuesThroughRedisURL(t *testing.T) {
	mr := miniredis.RunT(t)
	opt, err := RedisConnOpt("redis://" + mr.Addr() + "/0")
	require.NoError(t, err)

	client, err := NewClient(opt)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	info, err := client.EnqueueSnapshotWarmup(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, QueueDefault, info.Queue)
	assert.Equal(t, TaskSnapshotWarmup, info.Type)
}
