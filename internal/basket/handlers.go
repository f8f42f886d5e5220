package basket

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/amarastays/backend-villa/internal/common"
	"github.com/amarastays/backend-villa/internal/pricing"
	"github.com/amarastays/backend-villa/internal/store"
)

// Handler serves the basket HTTP endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type createBasketRequest struct {
	AnonID string `json:"anon_id" validate:"omitempty,max=128"`
}

// Create serves POST /baskets.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBasketRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if err := common.ValidateStruct(req); err != nil {
		common.WriteError(w, err)
		return
	}

	var guestID pgtype.UUID
	if id, ok := common.GuestID(r.Context()); ok {
		if parsed, err := store.ParseUUID(id); err == nil {
			guestID = parsed
		}
	}

	b, err := h.svc.Create(r.Context(), guestID, req.AnonID)
	if err != nil {
		h.svc.Logger.Error().Err(err).Msg("create basket")
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{
		"id":         store.UUIDString(b.ID),
		"expires_at": b.ExpiresAt.Time,
	})
}

// Get serves GET /baskets/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.basketID(w, r)
	if !ok {
		return
	}
	view, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeBasketError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, view)
}

type itemRequest struct {
	VillaID  string `json:"villa_id" validate:"required,uuid4"`
	CheckIn  string `json:"check_in" validate:"required,datetime=2006-01-02"`
	CheckOut string `json:"check_out" validate:"required,datetime=2006-01-02"`
}

// AddItem serves POST /baskets/{id}/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.basketID(w, r)
	if !ok {
		return
	}
	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON", nil)
		return
	}
	if err := common.ValidateStruct(req); err != nil {
		common.WriteError(w, err)
		return
	}
	villaID, err := store.ParseUUID(req.VillaID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_ID", "villa_id must be a UUID", nil)
		return
	}
	checkIn, checkOut := mustDate(req.CheckIn), mustDate(req.CheckOut)

	view, err := h.svc.AddItem(r.Context(), id, villaID, checkIn, checkOut)
	if err != nil {
		h.writeBasketError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, view)
}

type rangeRequest struct {
	CheckIn  string `json:"check_in" validate:"required,datetime=2006-01-02"`
	CheckOut string `json:"check_out" validate:"required,datetime=2006-01-02"`
}

// UpdateItem serves PATCH /baskets/{id}/items/{itemId}.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.basketID(w, r)
	if !ok {
		return
	}
	itemID, err := store.ParseUUID(chi.URLParam(r, "itemID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_ID", "item id must be a UUID", nil)
		return
	}
	var req rangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON", nil)
		return
	}
	if err := common.ValidateStruct(req); err != nil {
		common.WriteError(w, err)
		return
	}

	view, err := h.svc.UpdateItemRange(r.Context(), id, itemID, mustDate(req.CheckIn), mustDate(req.CheckOut))
	if err != nil {
		h.writeBasketError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, view)
}

// RemoveItem serves DELETE /baskets/{id}/items/{itemId}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.basketID(w, r)
	if !ok {
		return
	}
	itemID, err := store.ParseUUID(chi.URLParam(r, "itemID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_ID", "item id must be a UUID", nil)
		return
	}
	view, err := h.svc.RemoveItem(r.Context(), id, itemID)
	if err != nil {
		h.writeBasketError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, view)
}

type applyPromoRequest struct {
	Code string `json:"code" validate:"required,min=3,max=32"`
}

// ApplyPromo serves POST /baskets/{id}/apply-promo.
func (h *Handler) ApplyPromo(w http.ResponseWriter, r *http.Request) {
	id, ok := h.basketID(w, r)
	if !ok {
		return
	}
	var req applyPromoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON", nil)
		return
	}
	if err := common.ValidateStruct(req); err != nil {
		common.WriteError(w, err)
		return
	}
	view, err := h.svc.ApplyPromo(r.Context(), id, req.Code)
	if err != nil {
		h.writeBasketError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, view)
}

// RemovePromo serves DELETE /baskets/{id}/promo.
func (h *Handler) RemovePromo(w http.ResponseWriter, r *http.Request) {
	id, ok := h.basketID(w, r)
	if !ok {
		return
	}
	view, err := h.svc.RemovePromo(r.Context(), id)
	if err != nil {
		h.writeBasketError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, view)
}

type quoteRequest struct {
	InProgress *itemRequest `json:"in_progress" validate:"omitempty"`
}

// Quote serves POST /baskets/{id}/quote. The optional in-progress
// selection is priced alongside the committed items without persisting.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	id, ok := h.basketID(w, r)
	if !ok {
		return
	}
	var req quoteRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	var inProgress *pricing.Selection
	if req.InProgress != nil {
		if err := common.ValidateStruct(*req.InProgress); err != nil {
			common.WriteError(w, err)
			return
		}
		villaID, err := store.ParseUUID(req.InProgress.VillaID)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "INVALID_ID", "villa_id must be a UUID", nil)
			return
		}
		v, err := h.svc.Q.GetVillaByID(r.Context(), villaID)
		if errors.Is(err, store.ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "VILLA_NOT_FOUND", "villa not found", nil)
			return
		}
		if err != nil {
			common.WriteError(w, err)
			return
		}
		inProgress = &pricing.Selection{
			BaseRate: v.BaseRate,
			CheckIn:  mustDate(req.InProgress.CheckIn),
			CheckOut: mustDate(req.InProgress.CheckOut),
		}
	}

	view, err := h.svc.Quote(r.Context(), id, inProgress)
	if err != nil {
		h.writeBasketError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, view)
}

func (h *Handler) basketID(w http.ResponseWriter, r *http.Request) (pgtype.UUID, bool) {
	id, err := store.ParseUUID(chi.URLParam(r, "basketID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_ID", "basket id must be a UUID", nil)
		return pgtype.UUID{}, false
	}
	return id, true
}

func (h *Handler) writeBasketError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		common.JSONError(w, http.StatusNotFound, "BASKET_NOT_FOUND", "basket not found", nil)
		return
	}
	if !common.IsAppError(err) {
		h.svc.Logger.Error().Err(err).Msg("basket operation failed")
	}
	common.WriteError(w, err)
}

// mustDate parses a date already checked by the validator.
func mustDate(v string) time.Time {
	parsed, _ := time.Parse("2006-01-02", v)
	return parsed
}
