package analytics

import (
	"net/http"
	"time"

	"github.com/amarastays/backend-villa/internal/common"
)

// Handler serves the admin analytics endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Revenue serves GET /analytics/revenue.
func (h *Handler) Revenue(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseWindow(r)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_WINDOW", err.Error(), nil)
		return
	}
	report, err := h.svc.Revenue(r.Context(), from, to)
	if err != nil {
		h.svc.Logger.Error().Err(err).Msg("revenue report")
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, report)
}

// Occupancy serves GET /analytics/occupancy.
func (h *Handler) Occupancy(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseWindow(r)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_WINDOW", err.Error(), nil)
		return
	}
	report, err := h.svc.Occupancy(r.Context(), from, to)
	if err != nil {
		h.svc.Logger.Error().Err(err).Msg("occupancy report")
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, report)
}

// parseWindow reads from/to query dates; the default window is the last
// 30 days.
func parseWindow(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	from := to.AddDate(0, 0, -30)

	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = parsed
	}
	return from, to, nil
}
