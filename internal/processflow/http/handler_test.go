package processflowhttp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/salesflow/internal/processflow"
)

type stubService struct {
	state      processflow.State
	activities []processflow.Activity
	tasks      []processflow.Task
	overview   processflow.PipelineOverview
	err        error

	lastCompany int64
	lastQuery   processflow.Query
	lastAck     map[string]struct{}
	lastLimit   int
	refreshed   []int64
}

func (s *stubService) State(ctx context.Context, companyID int64, q processflow.Query) (processflow.State, error) {
	s.lastCompany, s.lastQuery = companyID, q
	return s.state, s.err
}

func (s *stubService) Timeline(ctx context.Context, companyID int64, q processflow.Query) ([]processflow.Activity, error) {
	s.lastCompany, s.lastQuery = companyID, q
	return s.activities, s.err
}

func (s *stubService) UrgentTasks(ctx context.Context, companyID int64, acknowledged map[string]struct{}, limit int) ([]processflow.Task, error) {
	s.lastCompany, s.lastAck, s.lastLimit = companyID, acknowledged, limit
	return s.tasks, s.err
}

func (s *stubService) Pipeline(ctx context.Context, companyID int64) (processflow.PipelineOverview, error) {
	s.lastCompany = companyID
	return s.overview, s.err
}

func (s *stubService) Refresh(ctx context.Context, companyID int64) error {
	s.refreshed = append(s.refreshed, companyID)
	return s.err
}

func newTestRouter(svc Service) http.Handler {
	r := chi.NewRouter()
	NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).MountRoutes(r)
	return r
}

func serve(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHandleStateReturnsJSON(t *testing.T) {
	svc := &stubService{state: processflow.State{
		Progress: processflow.Progress{
			CurrentStep:    processflow.StepCustomerAcceptance,
			CompletedSteps: []processflow.Step{1, 2, 3, 4},
		},
	}}
	rr := serve(t, newTestRouter(svc), http.MethodGet, "/process-flow?company_id=3&customer_id=%20c1%20&quotation_id=QUO-1")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, int64(3), svc.lastCompany)
	assert.Equal(t, processflow.Query{CustomerID: "c1", QuotationID: "QUO-1"}, svc.lastQuery)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.EqualValues(t, 5, body["current_step"])
	assert.Len(t, body["completed_steps"], 4)
}

func TestHandleStateValidation(t *testing.T) {
	router := newTestRouter(&stubService{})
	for _, target := range []string{
		"/process-flow",
		"/process-flow?company_id=abc",
		"/process-flow?company_id=-2",
		"/process-flow/pipeline?company_id=0",
		"/process-flow/tasks?company_id=1&limit=1000",
		"/process-flow/tasks?company_id=1&limit=ten",
	} {
		rr := serve(t, router, http.MethodGet, target)
		assert.Equal(t, http.StatusBadRequest, rr.Code, target)
		assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"), target)
	}
}

func TestHandleTasksParsesAcknowledgements(t *testing.T) {
	svc := &stubService{}
	rr := serve(t, newTestRouter(svc), http.MethodGet, "/process-flow/tasks?company_id=1&limit=5&ack=a,b&ack=c")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 5, svc.lastLimit)
	assert.Equal(t, map[string]struct{}{"a": {}, "b": {}, "c": {}}, svc.lastAck)
	assert.JSONEq(t, `{"tasks":[]}`, rr.Body.String())
}

func TestHandleTimeline(t *testing.T) {
	svc := &stubService{activities: []processflow.Activity{{Action: processflow.ActivityQuotationCreated}}}
	rr := serve(t, newTestRouter(svc), http.MethodGet, "/process-flow/timeline?company_id=1")

	require.Equal(t, http.StatusOK, rr.Code)
	var body timelineResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Activities, 1)
	assert.Equal(t, processflow.ActivityQuotationCreated, body.Activities[0].Action)
}

func TestHandleSteps(t *testing.T) {
	rr := serve(t, newTestRouter(&stubService{}), http.MethodGet, "/process-flow/steps")

	require.Equal(t, http.StatusOK, rr.Code)
	var body stepsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Len(t, body.Steps, 8)
}

func TestHandleRefresh(t *testing.T) {
	svc := &stubService{}
	rr := serve(t, newTestRouter(svc), http.MethodPost, "/process-flow/refresh?company_id=9")

	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.Equal(t, []int64{9}, svc.refreshed)
}

func TestHandleRefreshIsRateLimited(t *testing.T) {
	router := newTestRouter(&stubService{})
	var last int
	for i := 0; i < 7; i++ {
		last = serve(t, router, http.MethodPost, "/process-flow/refresh?company_id=9").Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestServiceErrorsAreMapped(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{processflow.ErrSnapshotUnavailable, http.StatusServiceUnavailable},
		{processflow.ErrInvalidCompany, http.StatusBadRequest},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rr := serve(t, newTestRouter(&stubService{err: tc.err}), http.MethodGet, "/process-flow/pipeline?company_id=1")
		assert.Equal(t, tc.status, rr.Code, tc.err.Error())
	}
}
