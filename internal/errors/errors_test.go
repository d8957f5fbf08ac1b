package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError(t *testing.T) {
	err := NewWithDetails(http.StatusBadRequest, CodeValidationFailed, "page must be numeric", "page")

	assert.Equal(t, "page must be numeric", err.Error())
	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, "page", err.Details)

	media := UnsupportedMediaType("text/plain", []string{"application/json"})
	assert.Equal(t, CodeUnsupportedMediaType, media.ErrorCode)
	assert.Equal(t, `Unsupported content type "text/plain"`, media.Message)
	assert.Equal(t, "text/plain", media.Details.(map[string]interface{})["content_type"])

	upgrade := WebSocketUpgradeError(http.StatusBadRequest, stderrors.New("missing upgrade header"))
	assert.Equal(t, CodeWebSocketUpgrade, upgrade.ErrorCode)
	assert.Equal(t, "missing upgrade header", upgrade.Message)
}

func TestProblemDetails_MarshalJSON(t *testing.T) {
	pd := NewProblemDetails(http.StatusNotFound, TypeSessionNotFound, "Session Not Found", "", "/api/sessions/x").
		WithExtension("trace_id", "req-1").
		WithExtension("status", 999)

	data, err := json.Marshal(pd)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, "req-1", body["trace_id"])
	assert.Equal(t, float64(http.StatusNotFound), body["status"], "extensions never override standard members")
	assert.NotContains(t, body, "detail")
}

func TestAppError(t *testing.T) {
	cause := fmt.Errorf("wrapped: %w", ErrUnsupportedFormat)
	err := NewParsingError("read upload", cause).WithContext("filename", "data.ods")

	assert.Equal(t, "[PARSING] read upload: wrapped: unsupported upload format", err.Error())
	assert.True(t, stderrors.Is(err, ErrUnsupportedFormat))
	assert.Equal(t, "data.ods", err.Context["filename"])

	var appErr *AppError
	require.True(t, stderrors.As(fmt.Errorf("outer: %w", err), &appErr))
	assert.Equal(t, ErrTypeParsing, appErr.Type)

	assert.Equal(t, "[CONFIG] bad port", NewConfigError("bad port", nil).Error())
}
