package booking

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/amarastays/backend-villa/internal/common"
	"github.com/amarastays/backend-villa/internal/store"
)

// Handler serves the authenticated guest booking endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type createBookingRequest struct {
	BasketID       string `json:"basket_id" validate:"required,uuid4"`
	GuestFirstName string `json:"guest_first_name" validate:"required,min=1,max=120"`
	GuestEmail     string `json:"guest_email" validate:"required,email"`
	TermsAccepted  bool   `json:"terms_accepted"`
}

type bookingResponse struct {
	ID          string `json:"id"`
	VillaID     string `json:"villa_id"`
	CheckIn     string `json:"check_in"`
	CheckOut    string `json:"check_out"`
	Nights      int32  `json:"nights"`
	Subtotal    int64  `json:"subtotal"`
	CleaningFee int64  `json:"cleaning_fee"`
	Tax         int64  `json:"tax"`
	Discount    int64  `json:"discount"`
	Total       int64  `json:"total"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
}

func toBookingResponse(b store.Booking) bookingResponse {
	return bookingResponse{
		ID:          store.UUIDString(b.ID),
		VillaID:     store.UUIDString(b.VillaID),
		CheckIn:     b.CheckIn.Time.Format("2006-01-02"),
		CheckOut:    b.CheckOut.Time.Format("2006-01-02"),
		Nights:      b.Nights,
		Subtotal:    b.Subtotal,
		CleaningFee: b.CleaningFee,
		Tax:         b.Tax,
		Discount:    b.Discount,
		Total:       b.Total,
		Currency:    b.Currency,
		Status:      b.Status,
	}
}

// Create serves POST /bookings, confirming the guest's basket.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	guestID, ok := h.guestID(w, r)
	if !ok {
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON", nil)
		return
	}
	if err := common.ValidateStruct(req); err != nil {
		common.WriteError(w, err)
		return
	}
	basketID, err := store.ParseUUID(req.BasketID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_ID", "basket_id must be a UUID", nil)
		return
	}

	bookings, err := h.svc.CreateFromBasket(r.Context(), CreateParams{
		BasketID:       basketID,
		GuestID:        guestID,
		GuestFirstName: req.GuestFirstName,
		GuestEmail:     req.GuestEmail,
		TermsAccepted:  req.TermsAccepted,
	})
	if errors.Is(err, store.ErrNotFound) {
		common.JSONError(w, http.StatusNotFound, "BASKET_NOT_FOUND", "basket not found", nil)
		return
	}
	if err != nil {
		if !common.IsAppError(err) {
			h.svc.Logger.Error().Err(err).Msg("create bookings")
		}
		common.WriteError(w, err)
		return
	}

	out := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBookingResponse(b))
	}
	common.JSON(w, http.StatusCreated, map[string]any{"bookings": out})
}

// List serves GET /bookings.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	guestID, ok := h.guestID(w, r)
	if !ok {
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	bookings, err := h.svc.List(r.Context(), guestID, page, perPage)
	if err != nil {
		h.svc.Logger.Error().Err(err).Msg("list bookings")
		common.WriteError(w, err)
		return
	}
	out := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBookingResponse(b))
	}
	common.JSON(w, http.StatusOK, map[string]any{"bookings": out, "page": page, "per_page": perPage})
}

// Get serves GET /bookings/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	guestID, ok := h.guestID(w, r)
	if !ok {
		return
	}
	bookingID, err := store.ParseUUID(chi.URLParam(r, "bookingID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_ID", "booking id must be a UUID", nil)
		return
	}
	b, err := h.svc.Get(r.Context(), guestID, bookingID)
	if errors.Is(err, store.ErrNotFound) {
		common.JSONError(w, http.StatusNotFound, "BOOKING_NOT_FOUND", "booking not found", nil)
		return
	}
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, toBookingResponse(b))
}

// Cancel serves POST /bookings/{id}/cancel.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	guestID, ok := h.guestID(w, r)
	if !ok {
		return
	}
	bookingID, err := store.ParseUUID(chi.URLParam(r, "bookingID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_ID", "booking id must be a UUID", nil)
		return
	}
	b, err := h.svc.Cancel(r.Context(), guestID, bookingID)
	if errors.Is(err, store.ErrNotFound) {
		common.JSONError(w, http.StatusNotFound, "BOOKING_NOT_FOUND", "booking not found", nil)
		return
	}
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, toBookingResponse(b))
}

func (h *Handler) guestID(w http.ResponseWriter, r *http.Request) (pgtype.UUID, bool) {
	raw, ok := common.GuestID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required", nil)
		return pgtype.UUID{}, false
	}
	id, err := store.ParseUUID(raw)
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required", nil)
		return pgtype.UUID{}, false
	}
	return id, true
}
