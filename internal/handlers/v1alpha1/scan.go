package v1alpha1

import (
	"net/http"
	"strconv"

	"github.com/go-chi/render"

	api "github.com/kompaudit/audit-planner/api/v1alpha1"
	"github.com/kompaudit/audit-planner/internal/service"
	"github.com/kompaudit/audit-planner/internal/service/mappers"
	"github.com/kompaudit/audit-planner/internal/store"
	"github.com/kompaudit/audit-planner/internal/store/model"
)

// (POST /api/v1/scans)
func (h *ServiceHandler) CreateScan(w http.ResponseWriter, r *http.Request) {
	var req api.ScanCreateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		renderError(w, r, service.NewErrInvalidRequest("invalid json body"))
		return
	}

	scan, err := h.scanSrv.CreateScan(r.Context(), mappers.ScanCreateForm{
		TargetURL:     req.TargetURL,
		RuleSourceIDs: req.RuleSourceIDs,
	})
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, mappers.ScanToApi(*scan, nil))
}

// (GET /api/v1/scans)
func (h *ServiceHandler) ListScans(w http.ResponseWriter, r *http.Request) {
	filter := store.NewScanQueryFilter()
	if status := r.URL.Query().Get("status"); status != "" {
		filter = filter.ByStatus(model.ScanStatus(status))
	}
	if target := r.URL.Query().Get("target"); target != "" {
		filter = filter.ByTarget(target)
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 {
			renderError(w, r, service.NewErrInvalidRequest("limit must be a positive integer"))
			return
		}
		filter = filter.WithLimit(n)
	}

	scans, err := h.scanSrv.ListScans(r.Context(), filter)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, mappers.ScanListToApi(scans))
}

// (GET /api/v1/scans/{id})
func (h *ServiceHandler) GetScan(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		renderError(w, r, service.NewErrInvalidRequest("invalid scan id"))
		return
	}

	scan, progress, err := h.scanSrv.GetScan(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, mappers.ScanToApi(*scan, progress))
}

// (DELETE /api/v1/scans/{id})
func (h *ServiceHandler) CancelScan(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		renderError(w, r, service.NewErrInvalidRequest("invalid scan id"))
		return
	}

	if err := h.scanSrv.CancelScan(r.Context(), id); err != nil {
		renderError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// (GET /api/v1/scans/{id}/results)
func (h *ServiceHandler) ListScanResults(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		renderError(w, r, service.NewErrInvalidRequest("invalid scan id"))
		return
	}

	findings, err := h.scanSrv.ListResults(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, mappers.FindingListToApi(findings))
}

// (GET /api/v1/scans/{id}/report)
func (h *ServiceHandler) GetScanReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		renderError(w, r, service.NewErrInvalidRequest("invalid scan id"))
		return
	}

	report, content, err := h.scanSrv.GetReport(r.Context(), id, r.URL.Query().Get("format"))
	if err != nil {
		renderError(w, r, err)
		return
	}

	out := mappers.ReportToApi(*report)
	out.Content = content
	render.JSON(w, r, out)
}
