// Package handler implements the HTTP handlers for the offer service.
//
// Routes:
//
//	POST   /register                  → create a user
//	POST   /login                     → issue a JWT
//	POST   /offers                    → store a job offer
//	GET    /offers                    → list the user's offers
//	GET    /offers/{id}               → fetch a single offer
//	PUT    /offers/{id}               → replace an offer
//	DELETE /offers/{id}               → delete an offer
//	POST   /compare                   → rank offers by take-home pay
//	GET    /offers/{id}/compliance    → GSA per-diem compliance check
//	GET    /offers/{id}/savings       → stipend tax-savings estimate
//	GET    /per-diem                  → current GSA rate for a locality
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/travelcomp/offer-service/internal/engine"
	"github.com/travelcomp/offer-service/internal/models"
	"github.com/travelcomp/offer-service/internal/repository"
	"github.com/travelcomp/offer-service/internal/service"
	"github.com/travelcomp/offer-service/internal/taxes"
)

type Handler struct {
	svc *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username     string `json:"username"`
		Email        string `json:"email"`
		Password     string `json:"password"`
		TaxHomeState string `json:"tax_home_state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		jsonError(w, "username, email and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.svc.Register(req.Username, req.Email, req.Password, req.TaxHomeState)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

// Login handles user authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	token, err := h.svc.Login(req.Email, req.Password)
	if err != nil {
		jsonError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"token": token})
}

// CreateOffer stores a new job offer
func (h *Handler) CreateOffer(w http.ResponseWriter, r *http.Request) {
	var offer models.JobOffer
	if err := json.NewDecoder(r.Body).Decode(&offer); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	created, err := h.svc.CreateOffer(r.Context(), offer)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// ListOffers returns the authenticated user's offers
func (h *Handler) ListOffers(w http.ResponseWriter, r *http.Request) {
	offers, err := h.svc.ListOffers(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, offers)
}

// GetOffer returns a single offer
func (h *Handler) GetOffer(w http.ResponseWriter, r *http.Request) {
	offer, err := h.svc.GetOffer(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, offer)
}

// UpdateOffer replaces an offer's fields
func (h *Handler) UpdateOffer(w http.ResponseWriter, r *http.Request) {
	var offer models.JobOffer
	if err := json.NewDecoder(r.Body).Decode(&offer); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	offer.ID = mux.Vars(r)["id"]

	updated, err := h.svc.UpdateOffer(r.Context(), offer)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

// DeleteOffer removes an offer
func (h *Handler) DeleteOffer(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteOffer(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Compare ranks the user's offers by annual take-home pay
func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FederalRate decimal.Decimal `json:"federal_rate"`
		WeeksWorked int             `json:"weeks_worked"`
		OfferIDs    []string        `json:"offer_ids,omitempty"`
		EmailReport bool            `json:"email_report,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	report, err := h.svc.CompareOffers(r.Context(), req.FederalRate, req.WeeksWorked, req.OfferIDs, req.EmailReport)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// OfferCompliance checks an offer's stipend against the GSA ceiling
func (h *Handler) OfferCompliance(w http.ResponseWriter, r *http.Request) {
	result, rate, err := h.svc.OfferCompliance(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"compliance": result,
		"per_diem":   rate,
	})
}

// OfferSavings estimates an offer's stipend tax savings over a year
func (h *Handler) OfferSavings(w http.ResponseWriter, r *http.Request) {
	federalRate, err := decimal.NewFromString(r.URL.Query().Get("federal_rate"))
	if err != nil {
		jsonError(w, "federal_rate query parameter is required", http.StatusBadRequest)
		return
	}
	weeksWorked, err := strconv.Atoi(r.URL.Query().Get("weeks_worked"))
	if err != nil {
		jsonError(w, "weeks_worked query parameter is required", http.StatusBadRequest)
		return
	}

	savings, err := h.svc.OfferSavings(r.Context(), mux.Vars(r)["id"], federalRate, weeksWorked)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]decimal.Decimal{"annual_savings": savings})
}

// PerDiem returns the GSA rate for a locality
func (h *Handler) PerDiem(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	city := r.URL.Query().Get("city")
	if state == "" || city == "" {
		jsonError(w, "state and city query parameters are required", http.StatusBadRequest)
		return
	}

	rate, err := h.svc.PerDiemRate(state, city)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rate)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps domain failures to HTTP statuses. Unknown states and
// malformed inputs are caller errors; they must surface as such rather than
// being papered over with a default rate.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		jsonError(w, "not found", http.StatusNotFound)
	case errors.Is(err, taxes.ErrUnknownState), errors.Is(err, engine.ErrInvalidInput):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrPerDiemUnavailable):
		jsonError(w, err.Error(), http.StatusBadGateway)
	default:
		jsonError(w, "internal server error", http.StatusInternalServerError)
	}
}
