package processflowhttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/odyssey-erp/salesflow/internal/platform/httpx"
)

// MountRoutes registers process-flow endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(6, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP, companyKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "snapshot refresh is rate limited")
		}),
	)

	r.Route("/process-flow", func(r chi.Router) {
		r.Get("/", h.handleState)
		r.Get("/timeline", h.handleTimeline)
		r.Get("/tasks", h.handleTasks)
		r.Get("/pipeline", h.handlePipeline)
		r.Get("/steps", h.handleSteps)
		r.With(limiter).Post("/refresh", h.handleRefresh)
	})
}

func companyKey(r *http.Request) (string, error) {
	return "company:" + r.URL.Query().Get("company_id"), nil
}
