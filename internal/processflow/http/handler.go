package processflowhttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/salesflow/internal/platform/httpx"
	"github.com/odyssey-erp/salesflow/internal/processflow"
)

const requestTimeout = 5 * time.Second

// Service defines the process-flow queries used by the handler.
type Service interface {
	State(ctx context.Context, companyID int64, q processflow.Query) (processflow.State, error)
	Timeline(ctx context.Context, companyID int64, q processflow.Query) ([]processflow.Activity, error)
	UrgentTasks(ctx context.Context, companyID int64, acknowledged map[string]struct{}, limit int) ([]processflow.Task, error)
	Pipeline(ctx context.Context, companyID int64) (processflow.PipelineOverview, error)
	Refresh(ctx context.Context, companyID int64) error
}

// Handler serves the process-flow JSON endpoints.
type Handler struct {
	logger    *slog.Logger
	service   Service
	validator *validator.Validate
}

// NewHandler constructs the process-flow HTTP handler.
func NewHandler(logger *slog.Logger, service Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

type dealParams struct {
	CompanyID   int64  `validate:"required,gt=0"`
	CustomerID  string `validate:"omitempty,max=64"`
	QuotationID string `validate:"omitempty,max=64"`
}

type taskParams struct {
	CompanyID    int64    `validate:"required,gt=0"`
	Limit        int      `validate:"gte=0,lte=100"`
	Acknowledged []string `validate:"max=500,dive,max=64"`
}

type timelineResponse struct {
	Activities []processflow.Activity `json:"activities"`
}

type tasksResponse struct {
	Tasks []processflow.Task `json:"tasks"`
}

type stepsResponse struct {
	Steps []processflow.StepInfo `json:"steps"`
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	params, err := h.parseDeal(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	state, err := h.service.State(ctx, params.CompanyID, params.query())
	if err != nil {
		h.respondServiceError(w, "compute state", err)
		return
	}
	httpx.JSON(w, http.StatusOK, state)
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	params, err := h.parseDeal(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	activities, err := h.service.Timeline(ctx, params.CompanyID, params.query())
	if err != nil {
		h.respondServiceError(w, "build timeline", err)
		return
	}
	httpx.JSON(w, http.StatusOK, timelineResponse{Activities: activities})
}

func (h *Handler) handleTasks(w http.ResponseWriter, r *http.Request) {
	params, err := h.parseTasks(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	acknowledged := make(map[string]struct{}, len(params.Acknowledged))
	for _, id := range params.Acknowledged {
		acknowledged[id] = struct{}{}
	}
	tasks, err := h.service.UrgentTasks(ctx, params.CompanyID, acknowledged, params.Limit)
	if err != nil {
		h.respondServiceError(w, "derive tasks", err)
		return
	}
	if tasks == nil {
		tasks = []processflow.Task{}
	}
	httpx.JSON(w, http.StatusOK, tasksResponse{Tasks: tasks})
}

func (h *Handler) handlePipeline(w http.ResponseWriter, r *http.Request) {
	companyID, err := h.parseCompany(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	overview, err := h.service.Pipeline(ctx, companyID)
	if err != nil {
		h.respondServiceError(w, "pipeline overview", err)
		return
	}
	httpx.JSON(w, http.StatusOK, overview)
}

func (h *Handler) handleSteps(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, stepsResponse{Steps: processflow.Steps()})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	companyID, err := h.parseCompany(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.service.Refresh(ctx, companyID); err != nil {
		h.respondServiceError(w, "refresh snapshot", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) parseDeal(r *http.Request) (dealParams, error) {
	query := r.URL.Query()
	companyID, err := parseInt64(query.Get("company_id"))
	if err != nil {
		return dealParams{}, err
	}
	params := dealParams{
		CompanyID:   companyID,
		CustomerID:  strings.TrimSpace(query.Get("customer_id")),
		QuotationID: strings.TrimSpace(query.Get("quotation_id")),
	}
	if err := h.validate(params); err != nil {
		return dealParams{}, err
	}
	return params, nil
}

func (p dealParams) query() processflow.Query {
	return processflow.Query{CustomerID: p.CustomerID, QuotationID: p.QuotationID}
}

func (h *Handler) parseTasks(r *http.Request) (taskParams, error) {
	query := r.URL.Query()
	companyID, err := parseInt64(query.Get("company_id"))
	if err != nil {
		return taskParams{}, err
	}
	params := taskParams{CompanyID: companyID, Acknowledged: splitList(query["ack"])}
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return taskParams{}, fmt.Errorf("%w: limit must be a number", httpx.ErrValidation)
		}
		params.Limit = limit
	}
	if err := h.validate(params); err != nil {
		return taskParams{}, err
	}
	return params, nil
}

func (h *Handler) parseCompany(r *http.Request) (int64, error) {
	companyID, err := parseInt64(r.URL.Query().Get("company_id"))
	if err != nil {
		return 0, err
	}
	if companyID <= 0 {
		return 0, fmt.Errorf("%w: company_id must be positive", httpx.ErrValidation)
	}
	return companyID, nil
}

func (h *Handler) validate(params any) error {
	err := h.validator.Struct(params)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error())
	}
	fields := make([]string, 0, len(fieldErrs))
	for _, fieldErr := range fieldErrs {
		fields = append(fields, fmt.Sprintf("%s failed %s", fieldErr.Field(), fieldErr.Tag()))
	}
	return fmt.Errorf("%w: %s", httpx.ErrValidation, strings.Join(fields, "; "))
}

func (h *Handler) respondServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, processflow.ErrInvalidCompany):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error()))
	case errors.Is(err, processflow.ErrSnapshotUnavailable):
		h.logger.Warn(op, slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUnavailable)
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func parseInt64(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%w: company_id is required", httpx.ErrValidation)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: company_id must be a number", httpx.ErrValidation)
	}
	return v, nil
}

// splitList flattens repeated and comma separated values.
func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
