package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/davallejo/telco-churn-dashboard/internal/infrastructure"
	"github.com/davallejo/telco-churn-dashboard/internal/shared/testutil"
)

func newRecordingOTel(t *testing.T) (*OTelMiddleware, *tracetest.SpanRecorder) {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	providers := &infrastructure.OTelProviders{
		Tracer: tp.Tracer("middleware-test"),
		Logger: logger,
	}
	return NewOTelMiddleware(providers, nil), recorder
}

func TestOTelMiddleware_NamesSpanByRoute(t *testing.T) {
	m, recorder := newRecordingOTel(t)

	var traceID string
	r := chi.NewRouter()
	r.Use(m.Handler)
	r.Get("/api/sessions/{id}/summary", func(w http.ResponseWriter, r *http.Request) {
		traceID = infrastructure.GetTraceID(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/abc/summary", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /api/sessions/{id}/summary", spans[0].Name())
	assert.Equal(t, spans[0].SpanContext().TraceID().String(), traceID)
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
}

func TestOTelMiddleware_ServerErrorMarksSpan(t *testing.T) {
	m, recorder := newRecordingOTel(t)

	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/sessions", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "POST /api/sessions", spans[0].Name())
}
