package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	domcart "example.com/storefront-checkout/app/internal/domain/cart"
	domcheckout "example.com/storefront-checkout/app/internal/domain/checkout"
	domcoupon "example.com/storefront-checkout/app/internal/domain/coupon"
	"example.com/storefront-checkout/app/internal/domain/geo"
	domorder "example.com/storefront-checkout/app/internal/domain/order"
	"example.com/storefront-checkout/app/internal/infra/observability"
	"example.com/storefront-checkout/app/internal/usecase/address"
	authuc "example.com/storefront-checkout/app/internal/usecase/auth"
	checkoutuc "example.com/storefront-checkout/app/internal/usecase/checkout"
)

// HealthCheck probes one backing dependency.
type HealthCheck func(ctx context.Context) error

type API struct {
	checkoutSvc *checkoutuc.Service
	addresses   *address.Resolver
	authSvc     *authuc.Service
	health      map[string]HealthCheck
	logger      *zap.Logger
	validator   *validator.Validate
}

type Dependencies struct {
	CheckoutService *checkoutuc.Service
	Addresses       *address.Resolver
	AuthService     *authuc.Service
	HealthChecks    map[string]HealthCheck
	Logger          *zap.Logger
}

func NewAPI(deps Dependencies) *API {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{
		checkoutSvc: deps.CheckoutService,
		addresses:   deps.Addresses,
		authSvc:     deps.AuthService,
		health:      deps.HealthChecks,
		logger:      logger,
		validator:   validator.New(),
	}
}

func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(observability.RequestLogger(a.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.AllowContentType("application/json", "text/plain"))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/{name}", a.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/geo", func(gr chi.Router) {
			gr.Get("/provinces", a.handleListProvinces)
			gr.Get("/provinces/{id}/districts", a.handleListDistricts)
			gr.Get("/districts/{id}/wards", a.handleListWards)
		})

		r.Group(func(cr chi.Router) {
			cr.Use(a.identityMiddleware)
			cr.Use(sessionMiddleware)

			cr.Route("/checkout", func(rr chi.Router) {
				rr.Post("/", a.handleBeginCheckout)
				rr.Get("/", a.handleGetCheckout)
				rr.Delete("/", a.handleLeaveCheckout)

				rr.Put("/addresses/{form}", a.handleUpdateContact)
				rr.Put("/addresses/{form}/province", a.handleSelectProvince)
				rr.Put("/addresses/{form}/district", a.handleSelectDistrict)
				rr.Put("/addresses/{form}/ward", a.handleSelectWard)
				rr.Put("/ship-to-different", a.handleShipToDifferent)

				rr.Post("/coupon", a.handleApplyCoupon)
				rr.Delete("/coupon", a.handleRemoveCoupon)
				rr.Post("/cart-events", a.handleCartEvent)

				rr.Post("/submit", a.handleSubmit)
			})
		})
	})

	return r
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	check, ok := a.health[name]
	if !ok {
		respondError(w, http.StatusNotFound, errors.New("unknown health check "+name))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := check(ctx); err != nil {
		respondError(w, http.StatusServiceUnavailable, errors.New(name+" ping error: "+err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": name + " ok"})
}

func (a *API) decodeAndValidate(r *http.Request, dst any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return err
	}
	return a.validator.Struct(dst)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func respondError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func respondErrorDetails(w http.ResponseWriter, status int, err error, details any) {
	writeJSON(w, status, errorResponse{Error: err.Error(), Details: details})
}

func parseIDParam(r *http.Request, key string) (int, error) {
	return strconv.Atoi(chi.URLParam(r, key))
}

func handleDomainError(w http.ResponseWriter, err error) {
	var (
		couponErr     *domcoupon.Error
		validationErr *domcheckout.ValidationError
	)
	switch {
	case errors.As(err, &couponErr):
		details := map[string]any{"reason": couponErr.Reason}
		if couponErr.Reason == domcoupon.ReasonMinOrderNotMet {
			details["required_amount"] = couponErr.RequiredAmount
		}
		status := http.StatusUnprocessableEntity
		if couponErr.Reason == domcoupon.ReasonUnknown {
			status = http.StatusBadGateway
		}
		respondErrorDetails(w, status, err, details)
	case errors.As(err, &validationErr):
		respondErrorDetails(w, http.StatusUnprocessableEntity, err, map[string]any{
			"form":  validationErr.Form,
			"field": validationErr.Field,
		})
	case errors.Is(err, authuc.ErrUnauthorized),
		errors.Is(err, authuc.ErrMalformedAuthorization):
		respondError(w, http.StatusUnauthorized, err)
	case errors.Is(err, domcheckout.ErrUnknownForm),
		errors.Is(err, domorder.ErrInvalidPayment):
		respondError(w, http.StatusBadRequest, err)
	case errors.Is(err, domcheckout.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, err)
	case errors.Is(err, domcheckout.ErrSessionConflict),
		errors.Is(err, domcheckout.ErrSubmissionInProgress),
		errors.Is(err, domcheckout.ErrInvalidTransition),
		errors.Is(err, domcheckout.ErrNotEditable),
		errors.Is(err, domcheckout.ErrCouponInvalidated):
		respondError(w, http.StatusConflict, err)
	case errors.Is(err, domcart.ErrCartEmpty),
		errors.Is(err, geo.ErrUnknownProvince),
		errors.Is(err, geo.ErrUnknownDistrict),
		errors.Is(err, geo.ErrUnknownWard),
		errors.Is(err, domorder.ErrOrderRejected):
		// Lỗi nghiệp vụ khi checkout → 422
		respondError(w, http.StatusUnprocessableEntity, err)
	case errors.Is(err, domorder.ErrOrderUnreachable),
		errors.Is(err, geo.ErrLookupFailed):
		respondError(w, http.StatusBadGateway, err)
	default:
		respondError(w, http.StatusInternalServerError, err)
	}
}
