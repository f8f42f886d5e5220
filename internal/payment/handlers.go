package payment

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/amarastays/backend-villa/internal/common"
	"github.com/amarastays/backend-villa/internal/store"
)

// Handler serves the payment intent endpoint.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type intentRequest struct {
	BookingID string `json:"booking_id" validate:"required,uuid4"`
}

type intentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
}

// CreateIntent serves POST /payments/intent.
func (h *Handler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	raw, ok := common.GuestID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required", nil)
		return
	}
	guestID, err := store.ParseUUID(raw)
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required", nil)
		return
	}

	var req intentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON", nil)
		return
	}
	if err := common.ValidateStruct(req); err != nil {
		common.WriteError(w, err)
		return
	}
	bookingID, err := store.ParseUUID(req.BookingID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_ID", "booking_id must be a UUID", nil)
		return
	}

	intent, err := h.svc.CreateIntent(r.Context(), guestID, bookingID)
	if errors.Is(err, store.ErrNotFound) {
		common.JSONError(w, http.StatusNotFound, "BOOKING_NOT_FOUND", "booking not found", nil)
		return
	}
	if err != nil {
		if !common.IsAppError(err) {
			h.svc.Logger.Error().Err(err).Msg("create payment intent")
		}
		common.WriteError(w, err)
		return
	}

	common.JSON(w, http.StatusCreated, intentResponse{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Amount:       intent.Amount,
		Currency:     intent.Currency,
		Status:       intent.Status,
	})
}
