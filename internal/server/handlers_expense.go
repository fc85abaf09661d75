package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/cyrmee/centime/internal/models"
)

// handleExpenseRoot handles GET and POST /api/expenses.
func (s *Server) handleExpenseRoot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		filter := models.ExpenseFilter{
			CategoryID:    r.URL.Query().Get("category_id"),
			MoneySourceID: r.URL.Query().Get("money_source_id"),
			From:          QueryTime(r, "from", time.Time{}),
			To:            QueryTime(r, "to", time.Time{}),
		}
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if v, err := strconv.Atoi(raw); err == nil && v > 0 {
				filter.Limit = v
			}
		}

		expenses, err := s.app.ExpenseService.List(r.Context(), filter)
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{"expenses": expenses})

	case http.MethodPost:
		var req struct {
			CategoryID    string    `json:"category_id"`
			MoneySourceID string    `json:"money_source_id"`
			Amount        float64   `json:"amount"`
			Date          time.Time `json:"date"`
			Notes         string    `json:"notes"`
		}
		if !DecodeJSON(w, r, &req) {
			return
		}

		expense, err := s.app.ExpenseService.Create(r.Context(), &models.Expense{
			CategoryID:    req.CategoryID,
			MoneySourceID: req.MoneySourceID,
			Amount:        req.Amount,
			Date:          req.Date,
			Notes:         req.Notes,
		})
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, expense)

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleExpense handles GET, PATCH, and DELETE /api/expenses/{id}.
func (s *Server) handleExpense(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		view, err := s.app.ExpenseService.Get(r.Context(), id)
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, view)

	case http.MethodPatch, http.MethodPut:
		var patch models.ExpensePatch
		if !DecodeJSON(w, r, &patch) {
			return
		}
		expense, err := s.app.ExpenseService.Update(r.Context(), id, patch)
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, expense)

	case http.MethodDelete:
		if err := s.app.ExpenseService.Remove(r.Context(), id); err != nil {
			WriteServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

// handleExpenseParse handles POST /api/expenses/parse for natural-language
// expense entry.
func (s *Server) handleExpenseParse(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	expense, err := s.app.ExpenseService.CreateFromText(r.Context(), req.Text)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, expense)
}

// handleExpenseImport handles POST /api/expenses/import.
func (s *Server) handleExpenseImport(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Expenses []struct {
			CategoryID    string    `json:"category_id"`
			MoneySourceID string    `json:"money_source_id"`
			Amount        float64   `json:"amount"`
			Date          time.Time `json:"date"`
			Notes         string    `json:"notes"`
		} `json:"expenses"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	expenses := make([]*models.Expense, 0, len(req.Expenses))
	for _, row := range req.Expenses {
		expenses = append(expenses, &models.Expense{
			CategoryID:    row.CategoryID,
			MoneySourceID: row.MoneySourceID,
			Amount:        row.Amount,
			Date:          row.Date,
			Notes:         row.Notes,
		})
	}

	count, err := s.app.ExpenseService.Import(r.Context(), expenses)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]int{"imported": count})
}

// handleExpenseBulkDelete handles POST /api/expenses/bulk-delete.
func (s *Server) handleExpenseBulkDelete(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		IDs []string `json:"ids"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	if err := s.app.ExpenseService.BulkRemove(r.Context(), req.IDs); err != nil {
		WriteServiceError(w, err)
		return
	}

	distinct := make(map[string]bool, len(req.IDs))
	for _, id := range req.IDs {
		distinct[id] = true
	}
	WriteJSON(w, http.StatusOK, map[string]int{"deleted": len(distinct)})
}

// handleCategoryRoot handles GET and POST /api/categories.
func (s *Server) handleCategoryRoot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		categories, err := s.app.CategoryService.List(r.Context())
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{"categories": categories})

	case http.MethodPost:
		var req struct {
			Name string `json:"name"`
			Icon string `json:"icon"`
		}
		if !DecodeJSON(w, r, &req) {
			return
		}
		category, err := s.app.CategoryService.Create(r.Context(), &models.Category{
			Name: req.Name,
			Icon: req.Icon,
		})
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, category)

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleCategory handles DELETE /api/categories/{id}.
func (s *Server) handleCategory(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}
	if err := s.app.CategoryService.Remove(r.Context(), id); err != nil {
		WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
