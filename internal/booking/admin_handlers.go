package booking

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/amarastays/backend-villa/internal/common"
	"github.com/amarastays/backend-villa/internal/store"
)

// AdminHandler serves the back-office booking endpoints.
type AdminHandler struct {
	svc *Service
}

func NewAdminHandler(svc *Service) *AdminHandler {
	return &AdminHandler{svc: svc}
}

type transitionRequest struct {
	Status string `json:"status" validate:"required,oneof=PENDING CONFIRMED CHECKED_IN COMPLETED CANCELLED"`
}

// Transition serves PATCH /admin/bookings/{id}/status.
func (h *AdminHandler) Transition(w http.ResponseWriter, r *http.Request) {
	bookingID, err := store.ParseUUID(chi.URLParam(r, "bookingID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_ID", "booking id must be a UUID", nil)
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON", nil)
		return
	}
	if err := common.ValidateStruct(req); err != nil {
		common.WriteError(w, err)
		return
	}

	b, err := h.svc.AdminTransition(r.Context(), bookingID, req.Status)
	if errors.Is(err, store.ErrNotFound) {
		common.JSONError(w, http.StatusNotFound, "BOOKING_NOT_FOUND", "booking not found", nil)
		return
	}
	if err != nil {
		if !common.IsAppError(err) {
			h.svc.Logger.Error().Err(err).Msg("admin booking transition")
		}
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, toBookingResponse(b))
}
