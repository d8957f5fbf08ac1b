package http

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "github.com/davallejo/telco-churn-dashboard/internal/errors"
	"github.com/davallejo/telco-churn-dashboard/internal/exporter"
	"github.com/davallejo/telco-churn-dashboard/internal/middleware"
	"github.com/davallejo/telco-churn-dashboard/internal/services"
	v1 "github.com/davallejo/telco-churn-dashboard/pkg/contracts/api/v1"
	"github.com/davallejo/telco-churn-dashboard/pkg/contracts/domain"
)

// multipartOverhead is the slack allowed on top of the upload limit for
// multipart boundaries and part headers.
const multipartOverhead = 1 << 20

// DashboardHandler handles dashboard session requests with RFC 7807 errors
type DashboardHandler struct {
	service        DashboardServiceInterface
	validator      *middleware.Validator
	logger         *slog.Logger
	errorHandler   *apierrors.ErrorHandler
	maxUploadBytes int64
}

// NewDashboardHandler creates a new dashboard handler. maxUploadBytes <= 0
// leaves the request body unbounded at this layer.
func NewDashboardHandler(service DashboardServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler, maxUploadBytes int64) *DashboardHandler {
	return &DashboardHandler{
		service:        service,
		validator:      middleware.NewValidator(logger),
		logger:         logger.With(slog.String("component", "dashboard_handler")),
		errorHandler:   errorHandler,
		maxUploadBytes: maxUploadBytes,
	}
}

// Routes returns the session routes, mounted under /api/sessions
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/", h.CreateSession)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.GetSnapshot)
		r.Delete("/", h.DeleteSession)
		r.Get("/info", h.GetSession)

		r.Post("/dataset", h.UploadDataset)

		r.Get("/filters", h.GetFilters)
		r.With(middleware.ContentTypeValidator(h.errorHandler, "application/json")).Put("/filters", h.SetFilters)
		r.Delete("/filters", h.ResetFilters)

		r.Get("/summary", h.GetSummary)
		r.Get("/churn/{dimension}", h.GetChurn)
		r.Get("/options", h.GetOptions)
		r.Get("/records", h.GetRecords)
		r.With(middleware.ContentTypeValidator(h.errorHandler, "application/json")).Post("/page", h.Navigate)

		r.Get("/export", h.Export)
		r.Get("/export.xlsx", h.ExportXLSX)
	})

	return r
}

// CreateSession handles POST /api/sessions
func (h *DashboardHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.CreateSession(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "session created",
		slog.String("session_id", info.ID),
		slog.String("request_id", chimiddleware.GetReqID(r.Context())),
	)

	w.Header().Set("Location", "/api/sessions/"+info.ID)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, info)
}

// GetSession handles GET /api/sessions/{id}/info
func (h *DashboardHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Session(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, info)
}

// GetSnapshot handles GET /api/sessions/{id}
func (h *DashboardHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Snapshot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, snap)
}

// DeleteSession handles DELETE /api/sessions/{id}
func (h *DashboardHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// UploadDataset handles POST /api/sessions/{id}/dataset. The file is read
// from the multipart field "file" or, for any other content type, from the
// raw body with the name taken from ?filename=.
func (h *DashboardHandler) UploadDataset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	}

	up, err := h.readUpload(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	report, err := h.service.Ingest(r.Context(), id, up)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "dataset upload handled",
		slog.String("session_id", id),
		slog.String("filename", up.Filename),
		slog.Bool("loaded", report.Loaded),
		slog.Int("rows", report.Rows),
		slog.String("request_id", chimiddleware.GetReqID(r.Context())),
	)
	render.JSON(w, r, report)
}

func (h *DashboardHandler) readUpload(r *http.Request) (services.Upload, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		if r.ContentLength == 0 {
			return services.Upload{}, nil
		}
		// Chunked bodies carry no length, so look for a first byte
		body := bufio.NewReader(r.Body)
		if _, err := body.Peek(1); err != nil {
			if errors.Is(err, io.EOF) {
				return services.Upload{}, nil
			}
			return services.Upload{}, err
		}
		return services.Upload{
			Filename:    r.URL.Query().Get("filename"),
			ContentType: r.Header.Get("Content-Type"),
			Body:        body,
		}, nil
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return services.Upload{}, apierrors.InvalidRequestWithError(err)
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			// no file field: nothing to load
			return services.Upload{}, nil
		}
		if err != nil {
			var maxBytesErr *http.MaxBytesError
			if errors.As(err, &maxBytesErr) {
				return services.Upload{}, err
			}
			return services.Upload{}, apierrors.InvalidRequestWithError(err)
		}
		if part.FormName() != "file" {
			continue
		}
		if part.FileName() == "" {
			return services.Upload{}, nil
		}
		return services.Upload{
			Filename:    part.FileName(),
			ContentType: part.Header.Get("Content-Type"),
			Body:        part,
		}, nil
	}
}

// GetFilters handles GET /api/sessions/{id}/filters
func (h *DashboardHandler) GetFilters(w http.ResponseWriter, r *http.Request) {
	filters, err := h.service.Filters(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, filters)
}

// SetFilters handles PUT /api/sessions/{id}/filters
func (h *DashboardHandler) SetFilters(w http.ResponseWriter, r *http.Request) {
	var req v1.FilterRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	snap, err := h.service.SetFilters(r.Context(), chi.URLParam(r, "id"), domain.FilterState{
		Contract:        req.Contract,
		InternetService: req.InternetService,
		Search:          req.Search,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, snap)
}

// ResetFilters handles DELETE /api/sessions/{id}/filters
func (h *DashboardHandler) ResetFilters(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.ResetFilters(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, snap)
}

// GetSummary handles GET /api/sessions/{id}/summary
func (h *DashboardHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"summary": summary,
		"display": summary.Display(),
	})
}

// GetChurn handles GET /api/sessions/{id}/churn/{dimension}
func (h *DashboardHandler) GetChurn(w http.ResponseWriter, r *http.Request) {
	req := v1.ChurnDimensionRequest{Dimension: chi.URLParam(r, "dimension")}
	if err := h.validator.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	grouped, err := h.service.GroupChurn(r.Context(), chi.URLParam(r, "id"), req.Dimension)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, grouped)
}

// GetOptions handles GET /api/sessions/{id}/options
func (h *DashboardHandler) GetOptions(w http.ResponseWriter, r *http.Request) {
	options, err := h.service.Options(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, options)
}

// GetRecords handles GET /api/sessions/{id}/records?page=&page_size=
func (h *DashboardHandler) GetRecords(w http.ResponseWriter, r *http.Request) {
	page, err := h.validator.QueryInt(r, "page", 1, math.MaxInt32, 0)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	pageSize, err := h.validator.QueryInt(r, "page_size", 1, 500, 0)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	window, err := h.service.Records(r.Context(), chi.URLParam(r, "id"), page, pageSize)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, NewPageResponse(window))
}

// Navigate handles POST /api/sessions/{id}/page
func (h *DashboardHandler) Navigate(w http.ResponseWriter, r *http.Request) {
	var req v1.NavigateRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	window, err := h.service.Navigate(r.Context(), chi.URLParam(r, "id"), req.Action, req.Page)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, NewPageResponse(window))
}

// Export handles GET /api/sessions/{id}/export, CSV unless ?format=xlsx
func (h *DashboardHandler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := h.validator.QueryEnum(r, "format", []string{exporter.FormatCSV, exporter.FormatXLSX}, exporter.FormatCSV)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.serveExport(w, r, format)
}

// ExportXLSX handles GET /api/sessions/{id}/export.xlsx
func (h *DashboardHandler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	h.serveExport(w, r, exporter.FormatXLSX)
}

func (h *DashboardHandler) serveExport(w http.ResponseWriter, r *http.Request, format string) {
	id := chi.URLParam(r, "id")
	file, err := h.service.Export(r.Context(), id, format)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("ETag", file.ETag)
	w.Header().Set("Cache-Control", "no-cache")
	if match := r.Header.Get("If-None-Match"); match != "" && etagMatches(match, file.ETag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Body)))
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(file.Body); err != nil {
		h.logger.WarnContext(r.Context(), "export write failed",
			slog.String("session_id", id),
			slog.String("error", err.Error()),
		)
	}
}

func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}

// PageResponse is a page window with navigation hints for the table pager.
type PageResponse struct {
	domain.PageWindow
	HasNext bool     `json:"has_next"`
	HasPrev bool     `json:"has_prev"`
	Rows    []RowDTO `json:"rows"`
}

// RowDTO is one table row as displayed: every column as text, with money
// columns at two decimals.
type RowDTO map[string]string

// NewPageResponse renders window for the records table.
func NewPageResponse(window domain.PageWindow) PageResponse {
	rows := make([]RowDTO, len(window.Records))
	for i, rec := range window.Records {
		row := make(RowDTO, len(rec.Fields)+len(domain.CanonicalFields))
		for k, v := range rec.Fields {
			row[k] = v
		}
		row[domain.FieldChurn] = string(rec.Churn)
		row[domain.FieldTenure] = domain.FormatNumber(rec.Tenure)
		row[domain.FieldMonthlyCharges] = exporter.FormatMoney(rec.MonthlyCharges)
		row[domain.FieldTotalCharges] = exporter.FormatMoney(rec.TotalCharges)
		rows[i] = row
	}
	return PageResponse{
		PageWindow: window,
		HasNext:    window.HasNext(),
		HasPrev:    window.HasPrev(),
		Rows:       rows,
	}
}
