package villa

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/amarastays/backend-villa/internal/common"
	"github.com/amarastays/backend-villa/internal/store"
)

// Handler serves the public catalogue endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// List serves GET /villas.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.List(r.Context(), ParseListParams(r))
	if err != nil {
		h.svc.Logger.Error().Err(err).Msg("list villas")
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, result)
}

// Get serves GET /villas/{slug}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if errors.Is(err, store.ErrNotFound) {
		common.JSONError(w, http.StatusNotFound, "VILLA_NOT_FOUND", "villa not found", nil)
		return
	}
	if err != nil {
		h.svc.Logger.Error().Err(err).Msg("get villa")
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, detail)
}

// Availability serves GET /villas/{slug}/availability. The window
// defaults to the next twelve months.
func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	from, to := availabilityWindow(r, h.svc.Now())

	ranges, err := h.svc.Availability(r.Context(), chi.URLParam(r, "slug"), from, to)
	if errors.Is(err, store.ErrNotFound) {
		common.JSONError(w, http.StatusNotFound, "VILLA_NOT_FOUND", "villa not found", nil)
		return
	}
	if err != nil {
		h.svc.Logger.Error().Err(err).Msg("villa availability")
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"from":          from.Format("2006-01-02"),
		"to":            to.Format("2006-01-02"),
		"booked_ranges": ranges,
	})
}

func availabilityWindow(r *http.Request, now time.Time) (time.Time, time.Time) {
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)
	if raw := r.URL.Query().Get("from"); raw != "" {
		if parsed, err := time.Parse("2006-01-02", raw); err == nil {
			from = parsed
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if parsed, err := time.Parse("2006-01-02", raw); err == nil && parsed.After(from) {
			to = parsed
		}
	}
	return from, to
}
