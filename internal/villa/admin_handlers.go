package villa

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/amarastays/backend-villa/internal/common"
	"github.com/amarastays/backend-villa/internal/store"
)

// AdminHandler serves the villa CMS endpoints.
type AdminHandler struct {
	svc *Service
}

func NewAdminHandler(svc *Service) *AdminHandler {
	return &AdminHandler{svc: svc}
}

type villaRequest struct {
	Slug        string         `json:"slug" validate:"required,min=3,max=80,lowercase"`
	Name        string         `json:"name" validate:"required,min=3,max=160"`
	Description string         `json:"description" validate:"max=10000"`
	BaseRate    int64          `json:"base_rate" validate:"required,gt=0"`
	Bedrooms    int32          `json:"bedrooms" validate:"gte=0,lte=50"`
	Bathrooms   int32          `json:"bathrooms" validate:"gte=0,lte=50"`
	HasPool     bool           `json:"has_pool"`
	Available   bool           `json:"available"`
	Images      []string       `json:"images" validate:"dive,url"`
	I18n        map[string]any `json:"i18n"`
}

// Create serves POST /admin/villas. A non-positive base rate is rejected
// here so the pricing engine never sees one.
func (h *AdminHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req villaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON", nil)
		return
	}
	if err := common.ValidateStruct(req); err != nil {
		common.WriteError(w, err)
		return
	}

	row, err := h.svc.Q.CreateVilla(r.Context(), store.CreateVillaParams{
		Slug:        req.Slug,
		Name:        req.Name,
		Description: req.Description,
		BaseRate:    req.BaseRate,
		Bedrooms:    req.Bedrooms,
		Bathrooms:   req.Bathrooms,
		HasPool:     req.HasPool,
		Available:   req.Available,
		Images:      req.Images,
		I18n:        req.I18n,
	})
	if err != nil {
		h.svc.Logger.Error().Err(err).Str("slug", req.Slug).Msg("create villa")
		common.WriteError(w, err)
		return
	}

	h.svc.Cache.InvalidateLists(r.Context())
	common.JSON(w, http.StatusCreated, toDetail(row, h.svc.Now()))
}

// Update serves PUT /admin/villas/{id}.
func (h *AdminHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := store.ParseUUID(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_ID", "villa id must be a UUID", nil)
		return
	}

	var req villaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON", nil)
		return
	}
	if err := common.ValidateStruct(req); err != nil {
		common.WriteError(w, err)
		return
	}

	row, err := h.svc.Q.UpdateVilla(r.Context(), store.UpdateVillaParams{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		BaseRate:    req.BaseRate,
		Bedrooms:    req.Bedrooms,
		Bathrooms:   req.Bathrooms,
		HasPool:     req.HasPool,
		Available:   req.Available,
		Images:      req.Images,
		I18n:        req.I18n,
	})
	if errors.Is(err, store.ErrNotFound) {
		common.JSONError(w, http.StatusNotFound, "VILLA_NOT_FOUND", "villa not found", nil)
		return
	}
	if err != nil {
		h.svc.Logger.Error().Err(err).Str("villa_id", store.UUIDString(id)).Msg("update villa")
		common.WriteError(w, err)
		return
	}

	h.svc.Cache.InvalidateLists(r.Context())
	h.svc.Cache.InvalidateVilla(r.Context(), row.Slug)
	common.JSON(w, http.StatusOK, toDetail(row, h.svc.Now()))
}
