package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/stagetower/pkg/buildinfo"
	"github.com/matzehuels/stagetower/pkg/errors"
	reportio "github.com/matzehuels/stagetower/pkg/io"
	"github.com/matzehuels/stagetower/pkg/pipeline"
	"github.com/matzehuels/stagetower/pkg/stages"
	"github.com/matzehuels/stagetower/pkg/store"
)

var contentTypes = map[string]string{
	pipeline.FormatDOT:  "text/vnd.graphviz; charset=utf-8",
	pipeline.FormatSVG:  "image/svg+xml",
	pipeline.FormatJSON: "application/json",
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Status string         `json:"status"`
		Build  buildinfo.Info `json:"build"`
	}{"ok", buildinfo.Get()})
}

type createResponse struct {
	ID         string `json:"id"`
	StageCount int    `json:"stageCount"`
}

func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	rep, err := reportio.ReadReport(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if id := r.URL.Query().Get("id"); id != "" {
		rep.ID = id
	}
	if _, err := rep.View().GraphInfos(); err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidReport, err, "%s", errors.UserMessage(err)))
		return
	}

	id, err := s.store.Save(r.Context(), rep)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("stored report", "id", id, "stages", len(rep.Stages))
	w.Header().Set("Location", "/api/v1/reports/"+id)
	writeJSON(w, http.StatusCreated, createResponse{ID: id, StageCount: len(rep.Stages)})
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	infos, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if infos == nil {
		infos = []store.Info{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": infos})
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.loadReport(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := errors.ValidateReportID(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.loadReport(w, r)
	if !ok {
		return
	}
	sum, hit, err := s.runner.Analyze(r.Context(), rep)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	setCacheHeader(w, hit)
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.loadReport(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	format := q.Get("format")
	if format == "" {
		format = pipeline.FormatSVG
	}
	opts := pipeline.RenderOptions{
		Formats:      []string{format},
		Detailed:     queryBool(q.Get("detailed")),
		ShowProgress: queryBool(q.Get("progress")),
	}

	artifacts, hit, err := s.runner.RenderGraph(r.Context(), rep, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	setCacheHeader(w, hit)
	w.Header().Set("Content-Type", contentTypes[format])
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifacts[format])
}

type partitionsResponse struct {
	Stage      int                        `json:"stage"`
	Direction  stages.Direction           `json:"direction"`
	Partitions []stages.PartitionCounters `json:"partitions"`
}

func (s *Server) handlePartitions(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.loadReport(w, r)
	if !ok {
		return
	}
	stage, err := stageParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	raw := r.URL.Query().Get("direction")
	dir, ok := stages.ParseDirection(raw)
	if !ok {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidDirection, "direction must be %q or %q, got %q", stages.DirectionIn, stages.DirectionOut, raw))
		return
	}

	rows, err := rep.View().ByPartitionCountersForStage(stage, dir)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, partitionsResponse{Stage: stage, Direction: dir, Partitions: rows})
}

func (s *Server) handleSortProgress(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.loadReport(w, r)
	if !ok {
		return
	}
	stage, err := stageParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	view := rep.View()
	if _, ok := view.Stage(stage); !ok {
		s.writeError(w, r, errors.New(errors.ErrCodeUnknownStage, "stage %d not found", stage))
		return
	}
	writeJSON(w, http.StatusOK, view.AggregatedSortProgress(stage))
}

// loadReport fetches the {id} report, writing the error response on failure.
func (s *Server) loadReport(w http.ResponseWriter, r *http.Request) (*stages.Report, bool) {
	id := chi.URLParam(r, "id")
	if err := errors.ValidateReportID(id); err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	rep, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return rep, true
}

func stageParam(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "stage")
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New(errors.ErrCodeInvalidInput, "stage must be a non-negative integer, got %q", raw)
	}
	return n, nil
}

func setCacheHeader(w http.ResponseWriter, hit bool) {
	if hit {
		w.Header().Set("X-Cache", "HIT")
		return
	}
	w.Header().Set("X-Cache", "MISS")
}

func queryBool(v string) bool {
	b, _ := strconv.ParseBool(v)
	return b
}

