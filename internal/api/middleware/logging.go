// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"net/http"
	"time"

	"github.com/ManuGH/ytgrab/internal/log"
)

// AccessLog writes one structured line per request. The query string is not
// logged; it carries user input.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
		defer func() {
			logger := log.WithComponentFromContext(r.Context(), "http")
			ev := logger.Info()
			if sw.statusCode >= http.StatusInternalServerError {
				ev = logger.Warn()
			}
			ev.Str(log.FieldEvent, "http.request").
				Str("method", r.Method).
				Str(log.FieldPath, r.URL.Path).
				Int("status", sw.statusCode).
				Int64(log.FieldBytes, sw.bytesWritten).
				Dur("duration", time.Since(start)).
				Msg("request served")
		}()
		next.ServeHTTP(sw, r)
	})
}
