package server

import (
	"net/http"
	"time"
)

// reportWindow reads the from/to query parameters, defaulting to the current
// calendar month.
func reportWindow(r *http.Request) (time.Time, time.Time) {
	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	from := QueryTime(r, "from", monthStart)
	to := QueryTime(r, "to", now)
	return from, to
}

// handleDashboardOverview handles GET /api/dashboard/overview.
func (s *Server) handleDashboardOverview(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	from, to := reportWindow(r)

	overview, err := s.app.DashboardService.Overview(r.Context(), from, to)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, overview)
}

// handleDashboardTrends handles GET /api/dashboard/trends. The compare query
// parameter picks the historical date; defaults to 30 days ago.
func (s *Server) handleDashboardTrends(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	compare := QueryTime(r, "compare", time.Now().UTC().AddDate(0, 0, -30))

	trends, err := s.app.DashboardService.Trends(r.Context(), compare)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, trends)
}

// handleDashboardComposition handles GET /api/dashboard/composition.
func (s *Server) handleDashboardComposition(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	from, to := reportWindow(r)

	composition, err := s.app.DashboardService.Composition(r.Context(), from, to)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, composition)
}

// handleDashboardBudget handles GET /api/dashboard/budget.
func (s *Server) handleDashboardBudget(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	from, to := reportWindow(r)

	comparison, err := s.app.DashboardService.BudgetComparison(r.Context(), from, to)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, comparison)
}

// handleBenchmark handles GET /api/benchmark.
func (s *Server) handleBenchmark(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	from, to := reportWindow(r)

	report, err := s.app.BenchmarkService.Compare(r.Context(), from, to)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, report)
}

// handleRatesRefresh handles POST /api/rates/refresh, the manual trigger for
// the background refresh.
func (s *Server) handleRatesRefresh(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	count, err := s.app.ExchangeService.Refresh(r.Context())
	if err != nil {
		WriteError(w, http.StatusBadGateway, "Rate refresh failed: "+err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]int{"refreshed": count})
}

// handleRatesList handles GET /api/rates.
func (s *Server) handleRatesList(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	rates, err := s.app.Storage.Rates().List(r.Context())
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"rates": rates})
}
