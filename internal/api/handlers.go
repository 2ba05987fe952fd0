// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/ytgrab/internal/delivery"
	"github.com/ManuGH/ytgrab/internal/log"
	"github.com/ManuGH/ytgrab/internal/media"
)

type healthResponse struct {
	Status string       `json:"status"`
	FFmpeg ffmpegHealth `json:"ffmpeg"`
	Cookie cookieHealth `json:"cookie"`
}

type ffmpegHealth struct {
	Path    string `json:"path"`
	Version string `json:"version"`
}

type cookieHealth struct {
	HasCookie     bool   `json:"hasCookie"`
	Source        string `json:"source"`
	LastUpdatedMs int64  `json:"lastUpdatedMs,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status: "ok",
		FFmpeg: ffmpegHealth{Path: s.cfg.Engine.Path, Version: s.cfg.Engine.Version},
		Cookie: cookieHealth{Source: "none"},
	}
	if s.cfg.Cookies != nil {
		st := s.cfg.Cookies.Status()
		resp.Cookie = cookieHealth{HasCookie: st.HasCookie, Source: string(st.Source)}
		if !st.UpdatedAt.IsZero() {
			resp.Cookie.LastUpdatedMs = st.UpdatedAt.UnixMilli()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleInfo answers GET /api/info?url=.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	md, err := s.cfg.Deliverer.Info(r.Context(), r.URL.Query().Get("url"))
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Warn().Err(err).
			Str(log.FieldEvent, "info.failed").
			Str(log.FieldReason, media.Reason(err)).
			Msg("metadata lookup failed")
		writeErrorJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, md)
}

// handleDownload answers GET /api/download/{video|audio}?url=. The assembler
// owns the response from here on; errors are reported through it.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	target, ok := media.ParseTargetKind(chi.URLParam(r, "kind"))
	if !ok {
		http.Error(w, "Unknown download kind", http.StatusNotFound)
		return
	}

	start := time.Now()
	out := delivery.NewResponseOutbound(w)
	err := s.cfg.Deliverer.Deliver(r.Context(), r.URL.Query().Get("url"), target, out)

	logger := log.WithComponentFromContext(r.Context(), "api")
	logger.Debug().Err(err).
		Str(log.FieldTarget, string(target)).
		Bool("committed", out.Committed()).
		Dur("duration", time.Since(start)).
		Msg("download handler finished")

	out.Finish()
}
