// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"net/http"

	"github.com/ManuGH/ytgrab/internal/delivery"
	"github.com/ManuGH/ytgrab/internal/media"
)

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErrorJSON maps a pipeline error onto its status and client message.
func writeErrorJSON(w http.ResponseWriter, err error) {
	writeJSON(w, media.HTTPStatus(err), map[string]string{"error": delivery.ErrorMessage(err)})
}
