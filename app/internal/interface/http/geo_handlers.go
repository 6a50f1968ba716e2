package http

import (
	"errors"
	"net/http"
)

var errInvalidID = errors.New("invalid id")

func (a *API) handleListProvinces(w http.ResponseWriter, r *http.Request) {
	list, err := a.addresses.ListProvinces(r.Context())
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": list})
}

func (a *API) handleListDistricts(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, errInvalidID)
		return
	}
	list, err := a.addresses.ListDistricts(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": list})
}

func (a *API) handleListWards(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, errInvalidID)
		return
	}
	list, err := a.addresses.ListWards(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": list})
}
