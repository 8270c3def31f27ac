package api

import (
	"net/http"
	"strings"

	"github.com/id-scanner/internal/types"
)

// maxRawLength bounds the scanned text accepted in one request
const maxRawLength = 8192

// scanRequest is the body of the parse, scan and verify endpoints
type scanRequest struct {
	Raw    string           `json:"raw"`
	Source types.ScanSource `json:"source"`
}

// decodeScanRequest reads and checks a scan body. Only qr and manual may
// be supplied by clients; an empty source means qr.
func decodeScanRequest(w http.ResponseWriter, r *http.Request, requireText bool) (*scanRequest, bool) {
	var req scanRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return nil, false
	}

	switch req.Source {
	case "":
		req.Source = types.SourceQR
	case types.SourceQR, types.SourceManual:
	default:
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "source must be 'qr' or 'manual'", map[string]interface{}{
			"source": req.Source,
		})
		return nil, false
	}

	if len(req.Raw) > maxRawLength {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Scanned text is too long", map[string]interface{}{
			"maxLength": maxRawLength,
		})
		return nil, false
	}
	if requireText && strings.TrimSpace(req.Raw) == "" {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "raw is required", nil)
		return nil, false
	}
	return &req, true
}

// handleParse handles POST /api/parse - parse without lookup or quota
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeScanRequest(w, r, false)
	if !ok {
		return
	}

	parsed, validation := s.services.Scans.Parse(req.Raw, req.Source)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"record":     parsed,
		"validation": validation,
	})
}

// handleScan handles POST /api/scans - one quota-checked scan
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeScanRequest(w, r, true)
	if !ok {
		return
	}

	outcome, err := s.services.Scans.Scan(r.Context(), userIDFrom(r.Context()), req.Raw, req.Source)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, outcome)
}

// handleVerify handles POST /api/verify - compare a scan with its stored record
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeScanRequest(w, r, true)
	if !ok {
		return
	}

	verification, err := s.services.Scans.Verify(r.Context(), userIDFrom(r.Context()), req.Raw, req.Source)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, verification)
}
