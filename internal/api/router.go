package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/growctl/internal/controller"
	"github.com/nerrad567/growctl/internal/panel"
)

// backupFilename is the attachment name offered by the backup endpoint.
const backupFilename = "growctl-backup.json"

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Get(s.wsCfg.Path, s.hub.ServeHTTP)

	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/v1/health", s.handleHealth)
		r.Get("/v1/system", s.handleSystemInfo)

		r.Route("/config", func(r chi.Router) {
			r.Get("/backup", s.handleBackup)
			r.Post("/restore", s.handleRestore)
		})

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeNotFound(w, "no such endpoint: "+r.URL.Path)
		})
	})

	// Everything else is the dashboard.
	ui := panel.Handler(s.cfg.StaticDir)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			writeNotFound(w, "no such endpoint: "+r.URL.Path)
			return
		}
		ui.ServeHTTP(w, r)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}

// handleSystemInfo returns the controller status summary.
func (s *Server) handleSystemInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.core.SystemInfo(r.Context())
	if err != nil {
		s.writeCoreError(w, "system info", err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleBackup downloads the device, rule and sensor catalogs as one document.
func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	data, err := s.core.Backup(r.Context())
	if err != nil {
		s.writeCoreError(w, "backup", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+backupFilename+`"`)
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // Best-effort write to response; connection may be closed
	w.Write(data)
}

// handleRestore replaces the catalogs with the uploaded backup document.
func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, "backup document exceeds 32 KiB")
			return
		}
		writeBadRequest(w, "reading request body: "+err.Error())
		return
	}
	if len(data) == 0 {
		writeBadRequest(w, "request body is empty")
		return
	}

	if err := s.core.Restore(r.Context(), data); err != nil {
		if errors.Is(err, controller.ErrInvalidBackup) {
			writeError(w, http.StatusBadRequest, ErrCodeInvalidBackup, err.Error())
			return
		}
		s.writeCoreError(w, "restore", err)
		return
	}

	s.logger.Info("configuration restored from backup", "bytes", len(data))
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// writeCoreError maps a controller call failure to a response.
func (s *Server) writeCoreError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, controller.ErrStopped) || errors.Is(err, controller.ErrBusy) {
		writeUnavailable(w, op+": controller unavailable")
		return
	}
	s.logger.Error(op+" failed", "error", err)
	writeInternalError(w, op+" failed")
}
