package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kamilpajak/redline/internal/report"
)

type generateReportsRequest struct {
	Formats []string `json:"formats"`
}

type reportOutcome struct {
	Location string `json:"location,omitempty"`
	URL      string `json:"url,omitempty"`
	Error    string `json:"error,omitempty"`
}

// handleGenerateReports renders reports for a stored result. The body is
// optional; without formats the server defaults are used. A failing format is
// reported alongside the ones that succeeded.
func (s *Server) handleGenerateReports(w http.ResponseWriter, r *http.Request) {
	result, ok := s.loadResult(w, r)
	if !ok {
		return
	}

	var req generateReportsRequest
	if r.ContentLength != 0 {
		if err := readJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	formats := s.formats
	if len(req.Formats) > 0 {
		var err error
		if formats, err = report.ParseFormats(req.Formats); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	outcomes := s.reports.Generate(r.Context(), result, formats)

	body := make(map[report.Format]reportOutcome, len(outcomes))
	failed := 0
	for f, o := range outcomes {
		if o.Err != nil {
			failed++
			body[f] = reportOutcome{Error: o.Err.Error()}
			continue
		}
		body[f] = reportOutcome{
			Location: o.Location,
			URL:      fmt.Sprintf("/api/analyses/%s/reports/%s", result.ID, f),
		}
	}

	status := http.StatusOK
	if failed == len(outcomes) && failed > 0 {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, map[string]any{"id": result.ID, "reports": body})
}

// handleDownloadReport streams a previously generated report.
func (s *Server) handleDownloadReport(w http.ResponseWriter, r *http.Request) {
	id, err := parseAnalysisID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid analysis ID")
		return
	}
	f, err := report.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rc, err := s.reports.Storage().Open(r.Context(), report.Key(id.String(), f))
	if errors.Is(err, report.ErrNotFound) {
		writeError(w, http.StatusNotFound, "report not generated")
		return
	}
	if err != nil {
		s.logger.Error("failed to open report", "id", id, "format", f, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to open report")
		return
	}
	defer func() { _ = rc.Close() }()

	name := "contract-review" + f.Extension()
	if result, err := s.store.Get(r.Context(), id.String()); err == nil {
		base := strings.TrimSuffix(filepath.Base(result.ContractRef), filepath.Ext(result.ContractRef))
		name = base + "-review" + f.Extension()
	}

	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, rc)
}
