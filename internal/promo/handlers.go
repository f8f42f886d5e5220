package promo

import (
	"encoding/json"
	"net/http"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/amarastays/backend-villa/internal/common"
	"github.com/amarastays/backend-villa/internal/store"
)

// AdminHandler exposes the back-office promo code management endpoints.
type AdminHandler struct {
	svc    *Service
	logger zerolog.Logger
}

func NewAdminHandler(svc *Service, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{svc: svc, logger: logger}
}

type upsertPromoRequest struct {
	Code       string `json:"code" validate:"required,min=3,max=32"`
	Kind       string `json:"kind" validate:"required,oneof=percent fixed"`
	PercentBps *int32 `json:"percent_bps" validate:"omitempty,gt=0,lte=10000"`
	Amount     *int64 `json:"amount" validate:"omitempty,gt=0"`
	Active     bool   `json:"active"`
}

type promoResponse struct {
	Code       string `json:"code"`
	Kind       string `json:"kind"`
	PercentBps *int32 `json:"percent_bps,omitempty"`
	Amount     *int64 `json:"amount,omitempty"`
	Active     bool   `json:"active"`
}

func toPromoResponse(row store.PromoCode) promoResponse {
	resp := promoResponse{Code: row.Code, Kind: row.Kind, Active: row.Active}
	if row.PercentBps.Valid {
		v := row.PercentBps.Int32
		resp.PercentBps = &v
	}
	if row.Amount.Valid {
		v := row.Amount.Int64
		resp.Amount = &v
	}
	return resp
}

// Upsert creates or replaces a promo code definition.
func (h *AdminHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req upsertPromoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON", nil)
		return
	}
	if err := common.ValidateStruct(req); err != nil {
		common.WriteError(w, err)
		return
	}
	if Kind(req.Kind) == KindPercent && req.PercentBps == nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "percent codes require percent_bps", nil)
		return
	}
	if Kind(req.Kind) == KindFixed && req.Amount == nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "fixed codes require amount", nil)
		return
	}

	params := store.UpsertPromoCodeParams{
		Code:   NormalizeCode(req.Code),
		Kind:   req.Kind,
		Active: req.Active,
	}
	if req.PercentBps != nil {
		params.PercentBps = pgtype.Int4{Int32: *req.PercentBps, Valid: true}
	}
	if req.Amount != nil {
		params.Amount = pgtype.Int8{Int64: *req.Amount, Valid: true}
	}

	row, err := h.svc.Q.UpsertPromoCode(r.Context(), params)
	if err != nil {
		h.logger.Error().Err(err).Str("code", params.Code).Msg("upsert promo code")
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, toPromoResponse(row))
}

// List returns every promo code definition for the back office.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.Q.ListPromoCodes(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("list promo codes")
		common.WriteError(w, err)
		return
	}
	out := make([]promoResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, toPromoResponse(row))
	}
	common.JSON(w, http.StatusOK, map[string]any{"promo_codes": out})
}
