package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/market-v/storefront/internal/assistant"
	"github.com/market-v/storefront/internal/catalog"
	"github.com/market-v/storefront/internal/domain"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"missing product", catalog.ErrNotFound, http.StatusNotFound},
		{"missing product inside validation", domain.ValidationError("one or both products not found", catalog.ErrNotFound), http.StatusNotFound},
		{"missing session", assistant.ErrSessionNotFound, http.StatusNotFound},
		{"busy session", assistant.ErrTurnInProgress, http.StatusConflict},
		{"duplicate product", fmt.Errorf("%w: p1", catalog.ErrConflict), http.StatusConflict},
		{"invalid product", errors.Join(catalog.ErrInvalid, errors.New("name is required")), http.StatusBadRequest},
		{"validation", domain.ValidationError("missing product IDs", nil), http.StatusBadRequest},
		{"upstream", domain.UpstreamError("invalid AI response", nil), http.StatusBadGateway},
		{"transport", domain.TransportFailure("product lookup failed", nil), http.StatusServiceUnavailable},
		{"unknown", errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestFail_HidesInternalErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	fail(rec, errors.New("pq: password authentication failed"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error","message":"internal error"}`, rec.Body.String())
}

func TestFail_UsesUserMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	fail(rec, domain.UpstreamError("invalid AI response", errors.New("unexpected end of JSON input")))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"error":"invalid AI response","message":"invalid AI response"}`, rec.Body.String())
}
