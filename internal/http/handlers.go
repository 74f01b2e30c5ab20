package http

import (
	"errors"
	"html/template"
	"net/http"
	"os"
	"path/filepath"

	"bondsim/internal/core"
	"bondsim/internal/log"
	"bondsim/internal/report"
	"bondsim/internal/services"
	"bondsim/internal/storage"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type summaryResponse struct {
	core.Summary
	ReportLocation *string `json:"report_location"`
}

type simulateResponse struct {
	RunID       string               `json:"run_id"`
	Summary     summaryResponse      `json:"summary"`
	Records     []core.MonthlyRecord `json:"records"`
	ReportError string               `json:"report_error,omitempty"`
	Cached      bool                 `json:"cached"`
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports ready once the yield model is trained.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.sims.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("yield model not trained"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx).WithComponent(log.ComponentHTTP)

	params, err := ParseSimulationParams(r)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			FieldError(pe.Field, pe.Error()).Write(w)
			return
		}
		BadRequestError(err.Error()).Write(w)
		return
	}

	out, err := s.sims.Run(ctx, params)
	if err != nil {
		var fe *core.ParamError
		switch {
		case errors.As(err, &fe):
			FieldError(fe.Field, fe.Error()).Write(w)
		case errors.Is(err, core.ErrOracleUnavailable):
			logger.ErrorContext(ctx, "Simulation failed", log.FieldOperation, log.OpSimulate, log.FieldError, err)
			ServiceUnavailableError("Yield prediction is unavailable, try again later").Write(w)
		default:
			logger.ErrorContext(ctx, "Simulation failed", log.FieldOperation, log.OpSimulate, log.FieldError, err)
			InternalServerError("Simulation failed").Write(w)
		}
		return
	}

	resp := simulateResponse{
		RunID:   out.RunID,
		Summary: summaryResponse{Summary: out.Result.Summary},
		Records: out.Result.Records,
		Cached:  out.Cached,
	}
	if out.ReportName != "" {
		loc := reportURL(r, s.baseURL, out.ReportName)
		resp.Summary.ReportLocation = &loc
	}
	if out.ReportErr != nil {
		resp.ReportError = out.ReportErr.Error()
	}
	NewJSONResponse().Payload(resp).Write(w)
}

// handleDownload serves a report as an attachment, by ?run=<id> or ?file=<name>.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := sanitizeInput(r.URL.Query().Get("file"))
	if id := sanitizeInput(r.URL.Query().Get("run")); id != "" {
		run, err := s.sims.GetRun(r.Context(), id)
		if err != nil {
			s.notFoundOrError(w, r, err, "File not found")
			return
		}
		name = run.ReportName
	}

	path, ok := s.reportPath(name)
	if !ok {
		NotFoundError("File not found").Write(w)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(path)+`"`)
	http.ServeFile(w, r, path)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	path, ok := s.reportPath(r.PathValue("name"))
	if !ok {
		NotFoundError("File not found").Write(w)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	http.ServeFile(w, r, path)
}

// reportPath resolves name to an existing file in the reports directory.
func (s *Server) reportPath(name string) (string, bool) {
	if s.reports == nil {
		return "", false
	}
	path, ok := s.reports.Path(name)
	if !ok {
		return "", false
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return "", false
	}
	return path, true
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.sims.ListRuns(r.Context(), parseLimit(r, 50, 500))
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "List runs failed", log.FieldOperation, log.OpList, log.FieldError, err)
		InternalServerError("Failed to list runs").Write(w)
		return
	}
	if runs == nil {
		runs = []storage.Run{}
	}
	NewJSONResponse().Payload(map[string]any{"runs": runs}).Write(w)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.sims.GetRun(r.Context(), r.PathValue("id"))
	if err != nil {
		s.notFoundOrError(w, r, err, "Run not found")
		return
	}
	NewJSONResponse().Payload(run).Write(w)
}

// handleRunSummary renders the stored run as an HTML page.
func (s *Server) handleRunSummary(w http.ResponseWriter, r *http.Request) {
	run, err := s.sims.GetRun(r.Context(), r.PathValue("id"))
	if err != nil {
		s.notFoundOrError(w, r, err, "Run not found")
		return
	}
	body, err := report.HTML(report.Document{RunID: run.ID, Params: run.Params, Result: run.Result()}, s.currency)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Render summary failed", log.FieldOperation, log.OpRender, log.FieldRunID, run.ID, log.FieldError, err)
		InternalServerError("Failed to render summary").Write(w)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if s.templates == nil {
		_, _ = w.Write(body)
		return
	}
	data := struct {
		RunID     string
		ReportURL string
		Body      template.HTML
	}{
		RunID:     run.ID,
		ReportURL: reportURL(r, s.baseURL, run.ReportName),
		// goldmark escapes raw HTML in the markdown it renders
		Body: template.HTML(body),
	}
	if err := s.templates.ExecuteTemplate(w, "summary.html", data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Execute summary template failed", log.FieldRunID, run.ID, log.FieldError, err)
	}
}

func (s *Server) handleRunExport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.sims.RequestExport(r.Context(), id)
	switch {
	case err == nil:
		NewJSONResponse().Status(http.StatusAccepted).Payload(map[string]string{"run_id": id, "status": "queued"}).Write(w)
	case errors.Is(err, services.ErrExportUnavailable):
		ServiceUnavailableError("Report export is not configured").Write(w)
	default:
		s.notFoundOrError(w, r, err, "Run not found")
	}
}

func (s *Server) notFoundOrError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	if errors.Is(err, core.ErrRunNotFound) {
		NotFoundError(notFound).Write(w)
		return
	}
	log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed", log.FieldPath, r.URL.Path, log.FieldError, err)
	InternalServerError("Internal error").Write(w)
}
