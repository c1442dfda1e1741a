// Package handlers provides HTTP handlers for the storefront API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/market-v/storefront/internal/assistant"
	"github.com/market-v/storefront/internal/catalog"
	"github.com/market-v/storefront/internal/domain"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, detail string) {
	resp := map[string]string{
		"error":   message,
		"message": message,
	}
	if detail != "" {
		resp["detail"] = detail
	}
	writeJSON(w, status, resp)
}

// statusFor maps a core error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, assistant.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrConflict), errors.Is(err, assistant.ErrTurnInProgress):
		return http.StatusConflict
	}

	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindUpstream, domain.KindParse:
		return http.StatusBadGateway
	case domain.KindTransport:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// messageFor returns the text shown to API clients for err.
func messageFor(err error, status int) string {
	if domain.KindOf(err) != "" {
		return domain.UserMessage(err)
	}
	if status == http.StatusInternalServerError {
		return "internal error"
	}
	return strings.ReplaceAll(err.Error(), "\n", ": ")
}

// fail writes err with its mapped status.
func fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	writeError(w, status, messageFor(err, status), "")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
}

func productsOrEmpty(p []catalog.Product) []catalog.Product {
	if p == nil {
		return []catalog.Product{}
	}
	return p
}
