package v1alpha1

import (
	"net/http"

	"github.com/go-chi/render"
	"github.com/google/uuid"

	api "github.com/kompaudit/audit-planner/api/v1alpha1"
	"github.com/kompaudit/audit-planner/internal/service"
	"github.com/kompaudit/audit-planner/internal/service/mappers"
	"github.com/kompaudit/audit-planner/internal/store/model"
)

// (POST /api/v1/rulesources)
func (h *ServiceHandler) CreateRuleSource(w http.ResponseWriter, r *http.Request) {
	var req api.RuleSourceCreateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		renderError(w, r, service.NewErrInvalidRequest("invalid json body"))
		return
	}

	items := make([]model.RuleItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, model.RuleItem{
			ID:       uuid.New(),
			Text:     item.Text,
			Category: item.Category,
			Severity: item.Severity,
			Section:  item.Section,
		})
	}

	source, err := h.catalogSrv.CreateRuleSource(r.Context(), mappers.RuleSourceCreateForm{
		Name:         req.Name,
		Version:      req.Version,
		Jurisdiction: req.Jurisdiction,
		Description:  req.Description,
		Items:        items,
	})
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, mappers.RuleSourceToApi(*source))
}

// (GET /api/v1/rulesources)
func (h *ServiceHandler) ListRuleSources(w http.ResponseWriter, r *http.Request) {
	sources, err := h.catalogSrv.ListRuleSources(r.Context())
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, mappers.RuleSourceListToApi(sources))
}

// (GET /api/v1/rulesources/{id})
func (h *ServiceHandler) GetRuleSource(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		renderError(w, r, service.NewErrInvalidRequest("invalid rule source id"))
		return
	}

	source, err := h.catalogSrv.GetRuleSource(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, mappers.RuleSourceToApi(*source))
}

// (POST /api/v1/artifacts)
func (h *ServiceHandler) CreateArtifact(w http.ResponseWriter, r *http.Request) {
	var req api.ArtifactCreateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		renderError(w, r, service.NewErrInvalidRequest("invalid json body"))
		return
	}

	artifact, err := h.catalogSrv.CreateArtifact(r.Context(), mappers.ArtifactCreateForm{
		Name:          req.Name,
		Kind:          model.ArtifactKind(req.Kind),
		Locator:       req.Locator,
		RuleSourceIDs: req.RuleSourceIDs,
	})
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, mappers.ArtifactToApi(*artifact))
}

// (GET /api/v1/artifacts)
func (h *ServiceHandler) ListArtifacts(w http.ResponseWriter, r *http.Request) {
	artifacts, err := h.catalogSrv.ListArtifacts(r.Context())
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, mappers.ArtifactListToApi(artifacts))
}
