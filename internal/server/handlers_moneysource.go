package server

import (
	"net/http"
	"strconv"

	"github.com/cyrmee/centime/internal/models"
)

// handleMoneySourceRoot handles GET and POST /api/money-sources.
func (s *Server) handleMoneySourceRoot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		views, err := s.app.MoneySourceService.List(r.Context())
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{"money_sources": views})

	case http.MethodPost:
		var req struct {
			Name      string  `json:"name"`
			Currency  string  `json:"currency"`
			Balance   float64 `json:"balance"`
			Budget    float64 `json:"budget"`
			IsDefault bool    `json:"is_default"`
		}
		if !DecodeJSON(w, r, &req) {
			return
		}

		source, err := s.app.MoneySourceService.Create(r.Context(), &models.MoneySource{
			Name:      req.Name,
			Currency:  req.Currency,
			Balance:   req.Balance,
			Budget:    req.Budget,
			IsDefault: req.IsDefault,
		})
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, source)

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleMoneySource handles GET, PATCH, and DELETE /api/money-sources/{id}.
func (s *Server) handleMoneySource(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		view, err := s.app.MoneySourceService.Get(r.Context(), id)
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, view)

	case http.MethodPatch, http.MethodPut:
		var patch models.MoneySourcePatch
		if !DecodeJSON(w, r, &patch) {
			return
		}
		source, err := s.app.MoneySourceService.Update(r.Context(), id, patch)
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, source)

	case http.MethodDelete:
		if err := s.app.MoneySourceService.Remove(r.Context(), id); err != nil {
			WriteServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

// handleMoneySourceAddFunds handles POST /api/money-sources/{id}/funds.
func (s *Server) handleMoneySourceAddFunds(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Amount float64 `json:"amount"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	result, err := s.app.MoneySourceService.AddFunds(r.Context(), id, req.Amount)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// handleMoneySourceHistory handles GET /api/money-sources/{id}/history.
func (s *Server) handleMoneySourceHistory(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}

	history, err := s.app.MoneySourceService.History(r.Context(), id, limit)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"history": history})
}
