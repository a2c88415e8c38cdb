package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructors_StatusAndSentinel(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		status   int
		sentinel error
	}{
		{"not found", NotFound("Product not found"), http.StatusNotFound, ErrNotFound},
		{"conflict", Conflict("taken"), http.StatusConflict, ErrConflict},
		{"already reviewed", AlreadyReviewed(), http.StatusBadRequest, ErrConflict},
		{"validation", ValidationFailed("bad"), http.StatusBadRequest, ErrValidation},
		{"unauthorized", Unauthorized("no"), http.StatusUnauthorized, ErrUnauthorized},
		{"forbidden", Forbidden("no"), http.StatusForbidden, ErrForbidden},
		{"unavailable", Unavailable("later"), http.StatusServiceUnavailable, ErrUnavailable},
		{"persistence", Persistence(errors.New("socket closed")), http.StatusInternalServerError, ErrPersistence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
			assert.ErrorIs(t, tt.err, tt.sentinel)
		})
	}
}

func TestPersistence_KeepsDriverErrorButHidesIt(t *testing.T) {
	driverErr := errors.New("connection reset")
	err := Persistence(driverErr)

	assert.ErrorIs(t, err, driverErr)
	assert.Equal(t, "an internal error occurred", Message(err))
}

func TestHTTPStatus_WrappedAppError(t *testing.T) {
	err := fmt.Errorf("get product: %w", NotFound("Product not found"))

	assert.Equal(t, http.StatusNotFound, HTTPStatus(err))
	assert.Equal(t, "Product not found", Message(err))
}

func TestHTTPStatus_PlainErrors(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
	assert.Equal(t, "an internal error occurred", Message(errors.New("boom")))
	assert.Equal(t, http.StatusConflict, HTTPStatus(fmt.Errorf("x: %w", ErrConflict)))
}
