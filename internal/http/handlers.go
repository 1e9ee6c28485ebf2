package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"finquery/internal/core"
	"finquery/internal/engine"
	"finquery/internal/ingest"
	"finquery/internal/store"
)

const maxIngestBytes = 16 << 20 // 16 MiB CSV upload cap

type queryRequest struct {
	Question      string `json:"question"`
	Month         string `json:"month,omitempty"`
	LimitEvidence int    `json:"limit_evidence,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}
	if req.LimitEvidence < 0 || req.LimitEvidence > s.maxLimit {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("limit_evidence must be between 0 and %d", s.maxLimit))
		return
	}

	limit := req.LimitEvidence
	if limit == 0 {
		limit = s.defaultLimit
	}

	resp, err := s.engine.Query(r.Context(), engine.Request{
		Question:      req.Question,
		Month:         req.Month,
		LimitEvidence: limit,
	})
	if err != nil {
		s.log.ErrorContext(r.Context(), "Query failed", "error", err)
		if errors.Is(err, store.ErrUnavailable) {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusServiceUnavailable, "datastore unavailable, retry later")
			return
		}
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleIngest replaces the active dataset with the uploaded CSV.
// Accepts either a multipart form with a "file" field or a raw
// text/csv body. The swap is atomic: readers see the old dataset
// until the new one is fully loaded.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	body, err := s.ingestBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer body.Close()

	txns, result, err := ingest.Parse(io.LimitReader(body, maxIngestBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.Replace(r.Context(), result.IngestID, txns); err != nil {
		s.log.ErrorContext(r.Context(), "Replace failed", "error", err, "ingest_id", result.IngestID)
		writeError(w, http.StatusInternalServerError, "failed to store dataset")
		return
	}

	s.summaryCache.Flush()

	if err := s.events.PublishDatasetReplaced(r.Context(), result.IngestID, result.RowCount); err != nil {
		// The dataset is already live; a lost announcement is not
		// worth failing the request over.
		s.log.WarnContext(r.Context(), "Failed to publish dataset replaced event", "error", err)
	}

	s.log.InfoContext(r.Context(), "Dataset replaced",
		"ingest_id", result.IngestID,
		"row_count", result.RowCount)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) ingestBody(r *http.Request) (io.ReadCloser, error) {
	contentType := r.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = ""
	}

	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxIngestBytes); err != nil {
			return nil, fmt.Errorf("parse multipart form: %w", err)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("multipart form needs a %q file field", "file")
		}
		return file, nil
	}

	return r.Body, nil
}

func (s *Server) handleMonthlySummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	month := r.URL.Query().Get("month")
	if month == "" {
		writeError(w, http.StatusBadRequest, "month query parameter is required (YYYY-MM)")
		return
	}
	if err := core.ValidateMonth(month); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	topK := engine.DefaultTopMerchants
	if raw := r.URL.Query().Get("top_k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 50 {
			writeError(w, http.StatusBadRequest, "top_k must be an integer between 1 and 50")
			return
		}
		topK = n
	}

	cacheKey := month + "|" + strconv.Itoa(topK)
	if cached, ok := s.summaryCache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	summary, err := s.engine.Summarize(r.Context(), month, topK)
	if err != nil {
		s.log.ErrorContext(r.Context(), "Summary failed", "error", err, "month", month)
		if errors.Is(err, store.ErrUnavailable) {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusServiceUnavailable, "datastore unavailable, retry later")
			return
		}
		writeError(w, http.StatusInternalServerError, "summary failed")
		return
	}

	s.summaryCache.Set(cacheKey, summary)
	writeJSON(w, http.StatusOK, summary)
}
