package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"healthcare-booking-service/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"conflict", apperror.New(apperror.ErrConflict, "slot is not available"), http.StatusConflict, "slot is not available"},
		{"balance", apperror.New(apperror.ErrInsufficientBalance, "insufficient wallet balance"), http.StatusUnprocessableEntity, "insufficient wallet balance"},
		{"gateway", apperror.New(apperror.ErrExternalFailure, "payment gateway refund failed"), http.StatusBadGateway, "payment gateway refund failed"},
		{"internal", errors.New("pq: connection reset"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			FromError(rec, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			body := decode(t, rec)
			assert.False(t, body.Success)
			assert.Equal(t, tt.message, body.Message)
		})
	}
}

func TestPaginated(t *testing.T) {
	rec := httptest.NewRecorder()
	Paginated(rec, "ok", []int{1, 2}, 0, 10, 21)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	require.NotNil(t, body.Meta)
	assert.Equal(t, 1, body.Meta.Page)
	assert.Equal(t, 3, body.Meta.TotalPages)
	assert.EqualValues(t, 21, body.Meta.Total)
}
