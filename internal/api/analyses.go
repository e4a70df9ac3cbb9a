package api

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kamilpajak/redline/internal/analysis"
	"github.com/kamilpajak/redline/internal/catalog"
	"github.com/kamilpajak/redline/internal/extract"
	"github.com/kamilpajak/redline/internal/store"
	"github.com/kamilpajak/redline/pkg/models"
)

// analysisSummary is the list view of a result, without its changes.
type analysisSummary struct {
	ID               string           `json:"id"`
	ContractRef      string           `json:"contract_ref"`
	TemplateRef      string           `json:"template_ref"`
	SimilarityScore  float64          `json:"similarity_score"`
	OverallRiskLevel models.RiskLevel `json:"overall_risk_level"`
	Counts           models.Counts    `json:"counts"`
	CreatedAt        time.Time        `json:"created_at"`
}

func summarize(r *models.AnalysisResult) analysisSummary {
	return analysisSummary{
		ID:               r.ID,
		ContractRef:      filepath.Base(r.ContractRef),
		TemplateRef:      r.TemplateRef,
		SimilarityScore:  r.SimilarityScore,
		OverallRiskLevel: r.OverallRiskLevel,
		Counts:           r.Counts,
		CreatedAt:        r.CreatedAt,
	}
}

// handleCreateAnalysis accepts a multipart upload in the "contract" field and
// runs the pipeline synchronously. An optional "template" field bypasses
// template selection.
func (s *Server) handleCreateAnalysis(w http.ResponseWriter, r *http.Request) {
	path, name, ok := s.receiveUpload(w, r)
	if !ok {
		return
	}

	result, err := s.pipeline.Run(r.Context(), path, analysis.RunOptions{
		Template: r.FormValue("template"),
		Name:     name,
	})
	if err != nil {
		s.writeAnalysisError(w, name, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// handleStreamAnalysis is handleCreateAnalysis with progress streamed as
// Server-Sent Events. The last event is "done" with the result, or "error".
func (s *Server) handleStreamAnalysis(w http.ResponseWriter, r *http.Request) {
	path, name, ok := s.receiveUpload(w, r)
	if !ok {
		return
	}

	emitter := NewSSEEmitter(w)
	if emitter == nil {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	_, _ = s.pipeline.Run(r.Context(), path, analysis.RunOptions{
		Template: r.FormValue("template"),
		Name:     name,
		Emitter:  emitter,
	})
}

func (s *Server) receiveUpload(w http.ResponseWriter, r *http.Request) (path, name string, ok bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		writeError(w, http.StatusBadRequest, "file too large or invalid form")
		return "", "", false
	}

	file, header, err := r.FormFile("contract")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no contract file provided")
		return "", "", false
	}
	defer func() { _ = file.Close() }()

	name = filepath.Base(header.Filename)
	if name == "." || name == string(filepath.Separator) {
		writeError(w, http.StatusBadRequest, "invalid file name")
		return "", "", false
	}

	path, err = s.saveUpload(file, name)
	if err != nil {
		s.logger.Error("failed to store upload", "file", name, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return "", "", false
	}
	return path, name, true
}

func (s *Server) saveUpload(src io.Reader, name string) (string, error) {
	dir := filepath.Join(s.uploadDir, uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, src); err != nil {
		_ = f.Close()
		return "", err
	}
	return path, f.Close()
}

func (s *Server) writeAnalysisError(w http.ResponseWriter, name string, err error) {
	var (
		unmatched  *catalog.UnmatchedContractError
		extraction *extract.ExtractionError
		unknown    *analysis.UnknownTemplateError
	)
	switch {
	case errors.As(err, &unmatched):
		writeError(w, http.StatusUnprocessableEntity, unmatched.Error())
	case errors.As(err, &extraction):
		writeError(w, http.StatusUnprocessableEntity, "could not read "+name+": "+extraction.Err.Error())
	case errors.As(err, &unknown):
		writeError(w, http.StatusBadRequest, unknown.Error())
	default:
		s.logger.Error("analysis failed", "file", name, "error", err)
		writeError(w, http.StatusInternalServerError, "analysis failed")
	}
}

// handleListAnalyses returns stored results, newest first.
func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	params := store.ListParams{Limit: limit, Offset: offset}
	if v := r.URL.Query().Get("risk"); v != "" {
		risk := models.RiskLevel(strings.ToUpper(v))
		params.Risk = &risk
	}

	results, err := s.store.List(r.Context(), params)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list analyses")
		return
	}

	summaries := make([]analysisSummary, 0, len(results))
	for _, res := range results {
		summaries = append(summaries, summarize(res))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"analyses": summaries,
		"limit":    limit,
		"offset":   offset,
	})
}

// handleGetAnalysis returns a single result with its changes.
func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	result, ok := s.loadResult(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) loadResult(w http.ResponseWriter, r *http.Request) (*models.AnalysisResult, bool) {
	id, err := parseAnalysisID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid analysis ID")
		return nil, false
	}
	result, err := s.store.Get(r.Context(), id.String())
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "analysis not found")
		return nil, false
	}
	if err != nil {
		s.logger.Error("failed to load analysis", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load analysis")
		return nil, false
	}
	return result, true
}

// parseAnalysisID parses the analysis ID from the path parameter.
func parseAnalysisID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "analysisID"))
}

// parsePagination extracts limit and offset from query parameters with defaults.
func parsePagination(r *http.Request) (limit, offset int) {
	limit = 50
	offset = 0

	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	return limit, offset
}
