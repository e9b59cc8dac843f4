package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"merchant-verdict/internal/analysis"
	"merchant-verdict/internal/product"
	"merchant-verdict/internal/source"
	"merchant-verdict/internal/version"
)

const (
	defaultReportLimit = 20
	maxReportLimit     = 500
	defaultBodyLimit   = 1 << 20
)

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "merchant-verdict",
		"version": version.Version,
	})
}

// analyze accepts one snapshot and returns its report. With ?save=true the
// report is also stored.
func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	snapshots, ok := s.decodeSnapshots(w, r)
	if !ok {
		return
	}
	if len(snapshots) != 1 {
		respondError(w, http.StatusBadRequest, "expected a single snapshot object")
		return
	}

	report, err := s.deps.Engine.Analyze(r.Context(), snapshots[0])
	if err != nil {
		s.deps.Metrics.IncAnalysis(false)
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("analysis failed: %v", err))
		return
	}
	s.deps.Metrics.IncAnalysis(true)

	if save, _ := strconv.ParseBool(r.URL.Query().Get("save")); save {
		if s.deps.Reports == nil {
			respondError(w, http.StatusServiceUnavailable, "storage not configured")
			return
		}
		if err := s.deps.Reports.SaveReport(r.Context(), report); err != nil {
			s.logger.Error().Err(err).Str("asin", report.ASIN).Msg("failed to persist report")
			respondError(w, http.StatusInternalServerError, "failed to persist report")
			return
		}
	}

	respondJSON(w, http.StatusOK, report)
}

// arbitrage accepts snapshots of one item across marketplaces.
func (s *Server) arbitrage(w http.ResponseWriter, r *http.Request) {
	snapshots, ok := s.decodeSnapshots(w, r)
	if !ok {
		return
	}

	result, err := s.deps.Finder.Find(snapshots)
	switch {
	case errors.Is(err, analysis.ErrMixedASINs):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.deps.Metrics.IncArbitrage(string(result.Outcome))
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) reportsForASIN(w http.ResponseWriter, r *http.Request) {
	if s.deps.Reports == nil {
		respondError(w, http.StatusServiceUnavailable, "storage not configured")
		return
	}
	asin := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "asin")))
	if asin == "" {
		respondError(w, http.StatusBadRequest, "asin is required")
		return
	}

	limit := defaultReportLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxReportLimit)
	}

	records, err := s.deps.Reports.ListReportsForASIN(r.Context(), asin, limit)
	if err != nil {
		s.logger.Error().Err(err).Str("asin", asin).Msg("failed to list reports")
		respondError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}

	reports := make([]*analysis.Report, 0, len(records))
	for _, rec := range records {
		if rec.Report != nil {
			reports = append(reports, rec.Report)
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"asin":    asin,
		"count":   len(reports),
		"reports": reports,
	})
}

func (s *Server) decodeSnapshots(w http.ResponseWriter, r *http.Request) ([]*product.Snapshot, bool) {
	limit := s.cfg.MaxBodyBytes
	if limit <= 0 {
		limit = defaultBodyLimit
	}
	body := http.MaxBytesReader(w, r.Body, limit)
	defer body.Close()

	snapshots, err := source.Decode(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return nil, false
	}
	return snapshots, true
}

// observe logs each request and records it under its route pattern.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		took := time.Since(started)
		s.deps.Metrics.ObserveHTTP(route, strconv.Itoa(status), took)
		s.logger.Debug().
			Str("method", r.Method).
			Str("route", route).
			Int("status", status).
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Dur("took", took).
			Msg("request served")
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

