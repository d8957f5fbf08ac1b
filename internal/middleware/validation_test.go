package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "github.com/davallejo/telco-churn-dashboard/internal/errors"
	"github.com/davallejo/telco-churn-dashboard/internal/shared/testutil"
	v1 "github.com/davallejo/telco-churn-dashboard/pkg/contracts/api/v1"
)

func validationFields(t *testing.T, err error) map[string]string {
	t.Helper()
	var apiErr *apierrors.APIError
	require.True(t, errors.As(err, &apiErr), "want *APIError, got %T", err)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)

	details, ok := apiErr.Details.(apierrors.ValidationErrors)
	require.True(t, ok, "details are %T", apiErr.Details)
	out := make(map[string]string, len(details.Errors))
	for _, e := range details.Errors {
		out[e.Field] = e.Message
	}
	return out
}

func TestValidator_DecodeJSON(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	v := NewValidator(logger)

	tests := []struct {
		name       string
		body       string
		wantFields map[string]string
		wantCode   string
	}{
		{
			name: "valid next",
			body: `{"action":"next"}`,
		},
		{
			name: "valid goto",
			body: `{"action":"goto","page":3}`,
		},
		{
			name:       "unknown action",
			body:       `{"action":"jump"}`,
			wantFields: map[string]string{"action": "action must be one of: next, prev, first, last, goto"},
		},
		{
			name:       "goto without page",
			body:       `{"action":"goto"}`,
			wantFields: map[string]string{"page": "page is required when Action is goto"},
		},
		{
			name:       "missing action",
			body:       `{}`,
			wantFields: map[string]string{"action": "action is required"},
		},
		{
			name:     "malformed json",
			body:     `{"action":`,
			wantCode: apierrors.CodeInvalidJSON,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/sessions/x/page", strings.NewReader(tt.body))
			var nav v1.NavigateRequest
			err := v.DecodeJSON(req, &nav)

			switch {
			case tt.wantFields != nil:
				assert.Equal(t, tt.wantFields, validationFields(t, err))
			case tt.wantCode != "":
				var apiErr *apierrors.APIError
				require.True(t, errors.As(err, &apiErr))
				assert.Equal(t, tt.wantCode, apiErr.ErrorCode)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidator_DecodeJSON_BodyLimit(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	v := NewValidator(logger)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/sessions/x/filters",
		strings.NewReader(`{"search":"`+strings.Repeat("a", 256)+`"}`))
	req.Body = http.MaxBytesReader(rec, req.Body, 32)

	var f v1.FilterRequest
	err := v.DecodeJSON(req, &f)
	var maxBytesErr *http.MaxBytesError
	assert.True(t, errors.As(err, &maxBytesErr))
}

func TestValidator_FilterRequestLimits(t *testing.T) {
	v := NewValidator(nil)

	assert.NoError(t, v.ValidateStruct(v1.FilterRequest{Contract: "Two year", Search: "fiber"}))

	err := v.ValidateStruct(v1.FilterRequest{Search: strings.Repeat("s", 1025)})
	assert.Equal(t, map[string]string{"search": "search must be at most 1024"}, validationFields(t, err))
}

func TestValidator_QueryInt(t *testing.T) {
	v := NewValidator(nil)

	tests := []struct {
		query   string
		want    int
		wantErr bool
	}{
		{"", 10, false},
		{"page_size=25", 25, false},
		{"page_size=0", 0, true},
		{"page_size=501", 0, true},
		{"page_size=ten", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/sessions/x/records?"+tt.query, nil)
			got, err := v.QueryInt(req, "page_size", 1, 500, 10)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidator_QueryEnum(t *testing.T) {
	v := NewValidator(nil)
	allowed := []string{"csv", "xlsx"}

	req := httptest.NewRequest(http.MethodGet, "/export", nil)
	got, err := v.QueryEnum(req, "format", allowed, "csv")
	require.NoError(t, err)
	assert.Equal(t, "csv", got)

	req = httptest.NewRequest(http.MethodGet, "/export?format=xlsx", nil)
	got, err = v.QueryEnum(req, "format", allowed, "csv")
	require.NoError(t, err)
	assert.Equal(t, "xlsx", got)

	req = httptest.NewRequest(http.MethodGet, "/export?format=pdf", nil)
	_, err = v.QueryEnum(req, "format", allowed, "csv")
	assert.Error(t, err)
}

func TestContentTypeValidator(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	h := ContentTypeValidator(apierrors.NewErrorHandler(logger, false), "application/json")(okHandler())

	tests := []struct {
		name        string
		method      string
		contentType string
		body        string
		want        int
	}{
		{"json body", http.MethodPut, "application/json; charset=utf-8", `{}`, http.StatusOK},
		{"form body", http.MethodPut, "application/x-www-form-urlencoded", `a=b`, http.StatusUnsupportedMediaType},
		{"get ignored", http.MethodGet, "text/plain", "", http.StatusOK},
		{"empty body ignored", http.MethodPost, "", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/sessions/x/filters", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusUnsupportedMediaType {
				var problem map[string]interface{}
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
				assert.Equal(t, apierrors.TypeUnsupportedMedia, problem["type"])
				assert.Equal(t, apierrors.CodeUnsupportedMediaType, problem["error_code"])
			}
		})
	}
}

func TestMaxBodySize(t *testing.T) {
	var readErr error
	h := MaxBodySize(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 64)
		for readErr == nil {
			_, readErr = r.Body.Read(buf)
		}
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("z", 32))))
	var maxBytesErr *http.MaxBytesError
	assert.True(t, errors.As(readErr, &maxBytesErr))
}
