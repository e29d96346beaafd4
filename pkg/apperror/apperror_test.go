package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	slotTaken := New(ErrConflict, "slot is not available")

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"invalid input", New(ErrInvalidInput, "bad date"), http.StatusBadRequest},
		{"not found", New(ErrNotFound, "appointment not found"), http.StatusNotFound},
		{"conflict", slotTaken, http.StatusConflict},
		{"wrapped conflict", fmt.Errorf("book slot: %w", slotTaken), http.StatusConflict},
		{"forbidden", New(ErrForbidden, "not yours"), http.StatusForbidden},
		{"state", New(ErrStateViolation, "not captured"), http.StatusUnprocessableEntity},
		{"balance", New(ErrInsufficientBalance, "low"), http.StatusUnprocessableEntity},
		{"gateway", New(ErrExternalFailure, "gateway down"), http.StatusBadGateway},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestNewMatchesKindAndItself(t *testing.T) {
	err := New(ErrConflict, "slot is not available")

	assert.True(t, errors.Is(err, ErrConflict))
	assert.True(t, errors.Is(fmt.Errorf("wrap: %w", err), err))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "slot is not available", err.Error())
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(New(ErrForbidden, "x")))
	assert.True(t, IsClientError(New(ErrStateViolation, "x")))
	assert.False(t, IsClientError(New(ErrExternalFailure, "x")))
	assert.False(t, IsClientError(errors.New("db down")))
}
