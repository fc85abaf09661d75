package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/cyrmee/centime/internal/common"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)

	// Auth
	mux.HandleFunc("/api/auth/register", s.handleAuthRegister)
	mux.HandleFunc("/api/auth/login", s.handleAuthLogin)
	mux.HandleFunc("/api/auth/validate", s.handleAuthValidate)

	// User settings
	mux.HandleFunc("/api/settings/", s.routeSettings)

	// Money sources
	mux.HandleFunc("/api/money-sources/", s.routeMoneySources)
	mux.HandleFunc("/api/money-sources", s.handleMoneySourceRoot)

	// Expenses
	mux.HandleFunc("/api/expenses/parse", s.handleExpenseParse)
	mux.HandleFunc("/api/expenses/import", s.handleExpenseImport)
	mux.HandleFunc("/api/expenses/bulk-delete", s.handleExpenseBulkDelete)
	mux.HandleFunc("/api/expenses/", s.routeExpenses)
	mux.HandleFunc("/api/expenses", s.handleExpenseRoot)

	// Categories
	mux.HandleFunc("/api/categories/", s.routeCategories)
	mux.HandleFunc("/api/categories", s.handleCategoryRoot)

	// Dashboard
	mux.HandleFunc("/api/dashboard/overview", s.handleDashboardOverview)
	mux.HandleFunc("/api/dashboard/trends", s.handleDashboardTrends)
	mux.HandleFunc("/api/dashboard/composition", s.handleDashboardComposition)
	mux.HandleFunc("/api/dashboard/budget", s.handleDashboardBudget)

	// Benchmarking
	mux.HandleFunc("/api/benchmark", s.handleBenchmark)

	// Exchange rates
	mux.HandleFunc("/api/rates/refresh", s.handleRatesRefresh)
	mux.HandleFunc("/api/rates", s.handleRatesList)
}

// routeMoneySources dispatches /api/money-sources/{id}[/...] to the
// appropriate handler.
func (s *Server) routeMoneySources(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/money-sources/")
	if path == "" {
		s.handleMoneySourceRoot(w, r)
		return
	}

	parts := strings.SplitN(path, "/", 2)
	id := parts[0]
	subpath := ""
	if len(parts) > 1 {
		subpath = parts[1]
	}

	switch subpath {
	case "":
		s.handleMoneySource(w, r, id)
	case "funds":
		s.handleMoneySourceAddFunds(w, r, id)
	case "history":
		s.handleMoneySourceHistory(w, r, id)
	default:
		WriteError(w, http.StatusNotFound, "Not found")
	}
}

// routeExpenses dispatches /api/expenses/{id} to the expense handler.
func (s *Server) routeExpenses(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/expenses/")
	if id == "" || strings.Contains(id, "/") {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}
	s.handleExpense(w, r, id)
}

// routeCategories dispatches /api/categories/{id} to the category handler.
func (s *Server) routeCategories(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/categories/")
	if id == "" || strings.Contains(id, "/") {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}
	s.handleCategory(w, r, id)
}

// routeSettings dispatches /api/settings/{key} to the settings handler.
func (s *Server) routeSettings(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/api/settings/")
	if key == "" || strings.Contains(key, "/") {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}
	s.handleSetting(w, r, key)
}

// --- System handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"version": common.GetVersion(),
		"uptime":  time.Since(s.app.StartupTime).Round(time.Second).String(),
	})
}
