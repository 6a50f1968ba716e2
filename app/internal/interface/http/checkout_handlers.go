package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	domcheckout "example.com/storefront-checkout/app/internal/domain/checkout"
	authuc "example.com/storefront-checkout/app/internal/usecase/auth"
)

type contactRequest struct {
	RecipientName string `json:"recipient_name" validate:"max=120"`
	Phone         string `json:"phone" validate:"omitempty,max=20"`
	Email         string `json:"email" validate:"omitempty,email"`
	AddressLine1  string `json:"address_line1" validate:"max=255"`
}

type selectProvinceRequest struct {
	ProvinceID int `json:"province_id" validate:"required,gt=0"`
}

type selectDistrictRequest struct {
	DistrictID int `json:"district_id" validate:"required,gt=0"`
}

type selectWardRequest struct {
	WardCode string `json:"ward_code" validate:"required,max=16"`
}

type shipToDifferentRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type applyCouponRequest struct {
	Code string `json:"code" validate:"max=64"`
}

type submitRequest struct {
	PaymentMethod string `json:"payment_method" validate:"omitempty,max=32"`
}

func (a *API) handleBeginCheckout(w http.ResponseWriter, r *http.Request) {
	st, err := a.checkoutSvc.Begin(r.Context(), getSessionID(r.Context()), authuc.UserID(r.Context()))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (a *API) handleGetCheckout(w http.ResponseWriter, r *http.Request) {
	summary, err := a.checkoutSvc.Summary(r.Context(), getSessionID(r.Context()))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *API) handleLeaveCheckout(w http.ResponseWriter, r *http.Request) {
	if err := a.checkoutSvc.Leave(r.Context(), getSessionID(r.Context())); err != nil {
		handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func formParam(r *http.Request) (domcheckout.FormKind, error) {
	return domcheckout.ParseFormKind(chi.URLParam(r, "form"))
}

func (a *API) handleUpdateContact(w http.ResponseWriter, r *http.Request) {
	kind, err := formParam(r)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	var req contactRequest
	if err := a.decodeAndValidate(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	st, err := a.checkoutSvc.UpdateContact(r.Context(), getSessionID(r.Context()), kind, domcheckout.Contact{
		RecipientName: req.RecipientName,
		Phone:         req.Phone,
		Email:         req.Email,
		AddressLine1:  req.AddressLine1,
	})
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (a *API) handleSelectProvince(w http.ResponseWriter, r *http.Request) {
	kind, err := formParam(r)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	var req selectProvinceRequest
	if err := a.decodeAndValidate(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	st, err := a.checkoutSvc.SelectProvince(r.Context(), getSessionID(r.Context()), kind, req.ProvinceID)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (a *API) handleSelectDistrict(w http.ResponseWriter, r *http.Request) {
	kind, err := formParam(r)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	var req selectDistrictRequest
	if err := a.decodeAndValidate(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	st, err := a.checkoutSvc.SelectDistrict(r.Context(), getSessionID(r.Context()), kind, req.DistrictID)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (a *API) handleSelectWard(w http.ResponseWriter, r *http.Request) {
	kind, err := formParam(r)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	var req selectWardRequest
	if err := a.decodeAndValidate(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	st, err := a.checkoutSvc.SelectWard(r.Context(), getSessionID(r.Context()), kind, req.WardCode)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (a *API) handleShipToDifferent(w http.ResponseWriter, r *http.Request) {
	var req shipToDifferentRequest
	if err := a.decodeAndValidate(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	st, err := a.checkoutSvc.SetShipToDifferent(r.Context(), getSessionID(r.Context()), *req.Enabled)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (a *API) handleApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var req applyCouponRequest
	if err := a.decodeAndValidate(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	st, err := a.checkoutSvc.ApplyCoupon(r.Context(), getSessionID(r.Context()), req.Code)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (a *API) handleRemoveCoupon(w http.ResponseWriter, r *http.Request) {
	st, err := a.checkoutSvc.RemoveCoupon(r.Context(), getSessionID(r.Context()))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleCartEvent is called by the cart service after any cart mutation.
func (a *API) handleCartEvent(w http.ResponseWriter, r *http.Request) {
	obs, err := a.checkoutSvc.ObserveCart(r.Context(), getSessionID(r.Context()))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, obs)
}

func (a *API) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if r.ContentLength != 0 {
		if err := a.decodeAndValidate(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, err)
			return
		}
	}

	placement, err := a.checkoutSvc.Submit(r.Context(), getSessionID(r.Context()), req.PaymentMethod)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, placement)
}
