// Package v1alpha1 implements the REST handlers of the audit planner API.
package v1alpha1

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	api "github.com/kompaudit/audit-planner/api/v1alpha1"
	"github.com/kompaudit/audit-planner/internal/service"
)

type ServiceHandler struct {
	scanSrv    *service.ScanService
	reviewSrv  *service.ReviewService
	catalogSrv *service.CatalogService
	healthSrv  *service.HealthService
}

func NewServiceHandler(
	scanSrv *service.ScanService,
	reviewSrv *service.ReviewService,
	catalogSrv *service.CatalogService,
	healthSrv *service.HealthService,
) *ServiceHandler {
	return &ServiceHandler{
		scanSrv:    scanSrv,
		reviewSrv:  reviewSrv,
		catalogSrv: catalogSrv,
		healthSrv:  healthSrv,
	}
}

// RegisterRoutes mounts every API route on the router.
func (h *ServiceHandler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/scans", func(r chi.Router) {
			r.Post("/", h.CreateScan)
			r.Get("/", h.ListScans)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetScan)
				r.Delete("/", h.CancelScan)
				r.Get("/results", h.ListScanResults)
				r.Get("/report", h.GetScanReport)
			})
		})

		r.Route("/reviews", func(r chi.Router) {
			r.Get("/", h.ListPendingReviews)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.ListReviewDecisions)
				r.Post("/decisions", h.RecordReviewDecision)
			})
		})

		r.Route("/rulesources", func(r chi.Router) {
			r.Post("/", h.CreateRuleSource)
			r.Get("/", h.ListRuleSources)
			r.Get("/{id}", h.GetRuleSource)
		})

		r.Route("/artifacts", func(r chi.Router) {
			r.Post("/", h.CreateArtifact)
			r.Get("/", h.ListArtifacts)
		})
	})
}

func (h *ServiceHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.healthSrv.Ping(r.Context()); err != nil {
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, api.Error{Message: err.Error()})
		return
	}
	w.WriteHeader(http.StatusOK)
}

// renderError maps service errors onto HTTP status codes and renders the
// uniform error payload.
func renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError

	var notFound *service.ErrResourceNotFound
	var invalid *service.ErrInvalidRequest
	var notCancellable *service.ErrScanNotCancellable
	var notReviewable *service.ErrFindingNotReviewable
	switch {
	case errors.As(err, &notFound):
		status = http.StatusNotFound
	case errors.As(err, &invalid):
		status = http.StatusBadRequest
	case errors.As(err, &notCancellable), errors.As(err, &notReviewable):
		status = http.StatusConflict
	}

	render.Status(r, status)
	render.JSON(w, r, api.Error{Message: err.Error()})
}

// pathUUID parses the {id} url parameter.
func pathUUID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}
