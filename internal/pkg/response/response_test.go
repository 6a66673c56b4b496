package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	xerrors "fluencr-service/internal/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"quota", fmt.Errorf("consume: %w", xerrors.ErrQuotaExhausted), http.StatusPaymentRequired},
		{"transition", xerrors.ErrInvalidTransition, http.StatusConflict},
		{"not found", xerrors.ErrNotFound, http.StatusNotFound},
		{"timeout", xerrors.ErrPersistenceTimeout, http.StatusServiceUnavailable},
		{"io", fmt.Errorf("redis: %w", xerrors.ErrPersistenceIO), http.StatusServiceUnavailable},
		{"strength", xerrors.ErrInvalidStrength, http.StatusBadRequest},
		{"forbidden", xerrors.ErrForbidden, http.StatusForbidden},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestFromErrorWritesEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	FromError(c, "failed to consume quota", xerrors.ErrQuotaExhausted)

	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.True(t, c.IsAborted())

	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "failed to consume quota", body.Message)
	assert.Equal(t, xerrors.ErrQuotaExhausted.Error(), body.Error)
}
