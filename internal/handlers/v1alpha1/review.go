package v1alpha1

import (
	"net/http"
	"strconv"

	"github.com/go-chi/render"
	"github.com/google/uuid"

	api "github.com/kompaudit/audit-planner/api/v1alpha1"
	"github.com/kompaudit/audit-planner/internal/service"
	"github.com/kompaudit/audit-planner/internal/service/mappers"
	"github.com/kompaudit/audit-planner/internal/store"
	"github.com/kompaudit/audit-planner/internal/store/model"
)

// (GET /api/v1/reviews)
func (h *ServiceHandler) ListPendingReviews(w http.ResponseWriter, r *http.Request) {
	filter := store.NewFindingQueryFilter()
	if scanID := r.URL.Query().Get("scan_id"); scanID != "" {
		id, err := uuid.Parse(scanID)
		if err != nil {
			renderError(w, r, service.NewErrInvalidRequest("invalid scan_id"))
			return
		}
		filter = filter.ByScanID(id)
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 {
			renderError(w, r, service.NewErrInvalidRequest("limit must be a positive integer"))
			return
		}
		filter = filter.WithLimit(n)
	}

	findings, err := h.reviewSrv.ListPending(r.Context(), filter)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, mappers.FindingListToApi(findings))
}

// (GET /api/v1/reviews/{id})
func (h *ServiceHandler) ListReviewDecisions(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		renderError(w, r, service.NewErrInvalidRequest("invalid finding id"))
		return
	}

	decisions, err := h.reviewSrv.ListDecisions(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}

	out := make([]api.ReviewDecision, 0, len(decisions))
	for _, d := range decisions {
		out = append(out, mappers.DecisionToApi(d))
	}
	render.JSON(w, r, out)
}

// (POST /api/v1/reviews/{id}/decisions)
func (h *ServiceHandler) RecordReviewDecision(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		renderError(w, r, service.NewErrInvalidRequest("invalid finding id"))
		return
	}

	var req api.ReviewDecisionRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		renderError(w, r, service.NewErrInvalidRequest("invalid json body"))
		return
	}

	decision, err := h.reviewSrv.RecordDecision(r.Context(), mappers.ReviewDecisionForm{
		FindingID: id,
		Decision:  model.ReviewDecisionType(req.Decision),
		Reviewer:  req.Reviewer,
		Comment:   req.Comment,
	})
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, mappers.DecisionToApi(*decision))
}
