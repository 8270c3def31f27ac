package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/id-scanner/internal/service"
)

const (
	maxRecentLimit = 500
	maxDailyDays   = 366
)

// intQuery reads a positive integer query parameter, falling back to def
// when absent and capping it at max.
func intQuery(r *http.Request, name string, def, max int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	if n > max {
		n = max
	}
	return n, nil
}

// handleRecentRecords handles GET /api/records?limit=
func (s *Server) handleRecentRecords(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", service.DefaultRecentLimit, maxRecentLimit)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, err.Error(), nil)
		return
	}

	entries, err := s.services.History.Recent(r.Context(), userIDFrom(r.Context()), limit)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"records": entries,
		"count":   len(entries),
	})
}

// handleSearchRecords handles GET /api/records/search?q=
func (s *Server) handleSearchRecords(w http.ResponseWriter, r *http.Request) {
	entries, err := s.services.History.Search(r.Context(), userIDFrom(r.Context()), r.URL.Query().Get("q"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"records": entries,
		"count":   len(entries),
	})
}

// handleRecordsForID handles GET /api/records/{idNumber}
func (s *Server) handleRecordsForID(w http.ResponseWriter, r *http.Request) {
	idNumber := mux.Vars(r)["idNumber"]

	entries, err := s.services.History.AllForIDNumber(r.Context(), userIDFrom(r.Context()), idNumber)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"idNumber": idNumber,
		"records":  entries,
		"count":    len(entries),
	})
}

// handleStatistics handles GET /api/statistics
func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.services.History.Statistics(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// handleDailyCounts handles GET /api/statistics/daily?days=
func (s *Server) handleDailyCounts(w http.ResponseWriter, r *http.Request) {
	days, err := intQuery(r, "days", 30, maxDailyDays)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, err.Error(), nil)
		return
	}

	counts, err := s.services.History.DailyCounts(r.Context(), days)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"days":   days,
		"counts": counts,
	})
}

// handleExport handles GET /api/export?format=json|csv
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := service.ParseExportFormat(r.URL.Query().Get("format"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	data, err := s.services.History.Export(r.Context(), userIDFrom(r.Context()), format)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	filename := fmt.Sprintf("id-scans-%s.%s", time.Now().UTC().Format("20060102"), format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.WithError(err).Warn("Failed to write export")
	}
}
