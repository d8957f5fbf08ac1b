package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/davallejo/telco-churn-dashboard/internal/config"
	"github.com/davallejo/telco-churn-dashboard/internal/dataprocessing"
	apierrors "github.com/davallejo/telco-churn-dashboard/internal/errors"
	"github.com/davallejo/telco-churn-dashboard/internal/exporter"
	"github.com/davallejo/telco-churn-dashboard/internal/infrastructure"
	"github.com/davallejo/telco-churn-dashboard/pkg/contracts/domain"
)

// SnapshotPublisher receives the derived dashboard after every state change
// of a session.
type SnapshotPublisher interface {
	PublishSnapshot(ctx context.Context, sessionID string, snapshot domain.Snapshot)
	CloseSession(sessionID string)
}

type nopPublisher struct{}

func (nopPublisher) PublishSnapshot(context.Context, string, domain.Snapshot) {}
func (nopPublisher) CloseSession(string)                                     {}

// Upload is one file handed to Ingest. A nil Body means no file was chosen.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// session holds one dashboard. Writers serialize on mu and replace state
// wholesale; readers copy the current value.
type session struct {
	id        string
	createdAt time.Time

	mu       sync.Mutex
	state    domain.DashboardState
	lastSeen time.Time
}

func (s *session) current(now time.Time) domain.DashboardState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = now
	return s.state
}

func (s *session) info() domain.SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := domain.SessionInfo{
		ID:        s.id,
		CreatedAt: s.createdAt,
		LastSeen:  s.lastSeen,
		Records:   s.state.Dataset.Len(),
	}
	if s.state.Dataset != nil {
		info.DatasetID = s.state.Dataset.ID
	}
	return info
}

// DashboardOption customizes a DashboardService.
type DashboardOption func(*DashboardService)

// WithPublisher routes snapshots to p, typically the WebSocket hub.
func WithPublisher(p SnapshotPublisher) DashboardOption {
	return func(s *DashboardService) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithMetrics records business metrics on m.
func WithMetrics(m *infrastructure.BusinessMetrics) DashboardOption {
	return func(s *DashboardService) { s.metrics = m }
}

// WithTracer replaces the global tracer.
func WithTracer(t trace.Tracer) DashboardOption {
	return func(s *DashboardService) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) DashboardOption {
	return func(s *DashboardService) {
		if now != nil {
			s.now = now
		}
	}
}

// DashboardService owns the dashboard sessions and runs the churn pipeline
// for them: ingest, filter, aggregate, paginate and export.
type DashboardService struct {
	cfg       config.DashboardConfig
	logger    *slog.Logger
	metrics   *infrastructure.BusinessMetrics
	tracer    trace.Tracer
	publisher SnapshotPublisher
	cache     *ViewCache
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewDashboardService creates the service from the dashboard configuration.
func NewDashboardService(cfg config.DashboardConfig, logger *slog.Logger, opts ...DashboardOption) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = dataprocessing.DefaultPageSize
	}

	s := &DashboardService{
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "dashboard_service")),
		tracer:    otel.Tracer(infrastructure.MeterName),
		publisher: nopPublisher{},
		now:       time.Now,
		sessions:  make(map[string]*session),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cache = NewViewCache(cfg.ViewCacheSize, s.metrics)
	return s
}

// PageSize is the page size navigation and snapshots use.
func (s *DashboardService) PageSize() int {
	return s.cfg.PageSize
}

// CreateSession opens an empty dashboard: no dataset, default filters, page 1.
func (s *DashboardService) CreateSession(ctx context.Context) (domain.SessionInfo, error) {
	now := s.now().UTC()
	sess := &session{
		id:        uuid.NewString(),
		createdAt: now,
		lastSeen:  now,
		state:     domain.DashboardState{Page: 1},
	}

	s.mu.Lock()
	if s.cfg.MaxSessions > 0 && len(s.sessions) >= s.cfg.MaxSessions {
		s.mu.Unlock()
		s.logger.WarnContext(ctx, "session limit reached", slog.Int("max_sessions", s.cfg.MaxSessions))
		return domain.SessionInfo{}, apierrors.ErrSessionLimit
	}
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	s.metrics.RecordSessionChange(ctx, 1)
	s.logger.InfoContext(ctx, "session created", slog.String("session_id", sess.id))
	return sess.info(), nil
}

// Session describes an open session.
func (s *DashboardService) Session(ctx context.Context, id string) (domain.SessionInfo, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return domain.SessionInfo{}, err
	}
	sess.current(s.now().UTC())
	return sess.info(), nil
}

// DeleteSession closes a session and disconnects its subscribers.
func (s *DashboardService) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("session %s: %w", id, apierrors.ErrSessionNotFound)
	}

	s.release(ctx, sess)
	s.logger.InfoContext(ctx, "session closed", slog.String("session_id", id))
	return nil
}

// SessionCount reports the number of open sessions.
func (s *DashboardService) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep closes sessions idle for longer than the configured TTL and returns
// how many were closed.
func (s *DashboardService) Sweep(ctx context.Context, now time.Time) int {
	if s.cfg.SessionTTL <= 0 {
		return 0
	}
	cutoff := now.Add(-s.cfg.SessionTTL)

	var expired []*session
	s.mu.Lock()
	for id, sess := range s.sessions {
		sess.mu.Lock()
		idle := sess.lastSeen.Before(cutoff)
		sess.mu.Unlock()
		if idle {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		s.release(ctx, sess)
	}
	if len(expired) > 0 {
		s.logger.InfoContext(ctx, "expired idle sessions",
			slog.Int("closed", len(expired)),
			slog.Duration("ttl", s.cfg.SessionTTL))
	}
	return len(expired)
}

func (s *DashboardService) release(ctx context.Context, sess *session) {
	sess.mu.Lock()
	ds := sess.state.Dataset
	sess.mu.Unlock()
	if ds != nil {
		s.cache.Forget(ds.ID)
	}
	s.metrics.RecordSessionChange(ctx, -1)
	s.publisher.CloseSession(sess.id)
}

func (s *DashboardService) lookup(id string) (*session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, apierrors.ErrSessionNotFound)
	}
	return sess, nil
}

func (s *DashboardService) state(id string) (domain.DashboardState, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return domain.DashboardState{}, err
	}
	return sess.current(s.now().UTC()), nil
}

// update applies fn to the session state under the session lock and
// publishes the resulting snapshot.
func (s *DashboardService) update(ctx context.Context, id string, fn func(domain.DashboardState) (domain.DashboardState, error)) (domain.Snapshot, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return domain.Snapshot{}, err
	}

	sess.mu.Lock()
	next, err := fn(sess.state)
	if err != nil {
		sess.mu.Unlock()
		return domain.Snapshot{}, err
	}
	sess.state = next
	sess.lastSeen = s.now().UTC()
	sess.mu.Unlock()

	snap := s.derive(ctx, id, next)
	s.publisher.PublishSnapshot(ctx, id, snap)
	return snap, nil
}

func (s *DashboardService) derive(ctx context.Context, id string, state domain.DashboardState) domain.Snapshot {
	snap := dataprocessing.DeriveFromView(state, s.cache.View(ctx, state), s.cfg.PageSize)
	snap.SessionID = id
	return snap
}

// Snapshot derives every dashboard output for the session's current state.
func (s *DashboardService) Snapshot(ctx context.Context, id string) (domain.Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "dashboard.snapshot", trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	state, err := s.state(id)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return s.derive(ctx, id, state), nil
}

// Ingest parses an upload and makes it the session's dataset. Filters are
// kept and the page resets to 1. An upload without a body changes nothing.
func (s *DashboardService) Ingest(ctx context.Context, id string, up Upload) (domain.ParseReport, error) {
	ctx, span := s.tracer.Start(ctx, "dashboard.ingest", trace.WithAttributes(
		attribute.String("session.id", id),
		attribute.String("upload.filename", up.Filename),
	))
	defer span.End()

	if _, err := s.lookup(id); err != nil {
		return domain.ParseReport{}, err
	}
	if up.Body == nil {
		s.logger.DebugContext(ctx, "upload without file ignored", slog.String("session_id", id))
		return domain.ParseReport{Loaded: false}, nil
	}

	start := s.now()
	format, err := dataprocessing.DetectFormat(up.Filename, up.ContentType)
	if err != nil {
		s.metrics.RecordIngest(ctx, "unknown", 0, 0, 0, err)
		return domain.ParseReport{}, fmt.Errorf("upload %q: %w", up.Filename, err)
	}

	data, err := s.readUpload(up.Body)
	if err != nil {
		s.metrics.RecordIngest(ctx, string(format), 0, 0, s.now().Sub(start), err)
		infrastructure.RecordError(ctx, err)
		return domain.ParseReport{}, err
	}

	result, err := dataprocessing.ParseBytes(data, format)
	if err != nil {
		s.metrics.RecordIngest(ctx, string(format), 0, 0, s.now().Sub(start), err)
		infrastructure.RecordError(ctx, err)
		s.logger.WarnContext(ctx, "upload could not be parsed",
			slog.String("session_id", id),
			slog.String("filename", up.Filename),
			slog.String("error", err.Error()))
		return domain.ParseReport{}, err
	}

	ds := dataprocessing.Ingest(result, dataprocessing.IngestOptions{
		Source:      up.Filename,
		Fingerprint: dataprocessing.Fingerprint(data),
		Now:         s.now,
	})

	var previous *domain.Dataset
	if _, err := s.update(ctx, id, func(prev domain.DashboardState) (domain.DashboardState, error) {
		previous = prev.Dataset
		return dataprocessing.NewState(prev, ds), nil
	}); err != nil {
		return domain.ParseReport{}, err
	}
	if previous != nil {
		s.cache.Forget(previous.ID)
	}

	elapsed := s.now().Sub(start)
	s.metrics.RecordIngest(ctx, string(format), ds.Len(), len(result.Skipped), elapsed, nil)
	span.SetAttributes(
		attribute.Int("dataset.rows", ds.Len()),
		attribute.Int("dataset.skipped", len(result.Skipped)),
	)
	s.logger.InfoContext(ctx, "dataset loaded",
		slog.String("session_id", id),
		slog.String("dataset_id", ds.ID),
		slog.String("format", string(format)),
		slog.Int("rows", ds.Len()),
		slog.Int("skipped", len(result.Skipped)),
		slog.Duration("duration", elapsed))

	return domain.ParseReport{
		Loaded:    true,
		DatasetID: ds.ID,
		Source:    ds.Source,
		Format:    string(format),
		Rows:      ds.Len(),
		Columns:   ds.Columns,
		Skipped:   result.Skipped,
		Duration:  elapsed.String(),
	}, nil
}

func (s *DashboardService) readUpload(r io.Reader) ([]byte, error) {
	limit := s.cfg.MaxUploadBytes
	if limit <= 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read upload: %w", err)
		}
		return data, nil
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if n > limit {
		return nil, fmt.Errorf("upload exceeds %d bytes: %w", limit, apierrors.ErrUploadTooLarge)
	}
	return buf.Bytes(), nil
}

// Filters returns the session's filter state.
func (s *DashboardService) Filters(ctx context.Context, id string) (domain.FilterState, error) {
	state, err := s.state(id)
	if err != nil {
		return domain.FilterState{}, err
	}
	return state.Filters, nil
}

// SetFilters replaces the filter state. The current page is kept.
func (s *DashboardService) SetFilters(ctx context.Context, id string, filters domain.FilterState) (domain.Snapshot, error) {
	snap, err := s.update(ctx, id, func(prev domain.DashboardState) (domain.DashboardState, error) {
		prev.Filters = filters
		return prev, nil
	})
	if err != nil {
		return domain.Snapshot{}, err
	}
	s.metrics.RecordFilterChange(ctx)
	s.logger.DebugContext(ctx, "filters updated",
		slog.String("session_id", id),
		slog.String("contract", filters.Contract),
		slog.String("internet_service", filters.InternetService),
		slog.String("search", filters.Search),
		slog.Int("matches", snap.Summary.Count))
	return snap, nil
}

// ResetFilters restores the default (empty) filters.
func (s *DashboardService) ResetFilters(ctx context.Context, id string) (domain.Snapshot, error) {
	return s.SetFilters(ctx, id, domain.FilterState{})
}

// Summary returns the KPIs of the filtered view.
func (s *DashboardService) Summary(ctx context.Context, id string) (domain.KPISummary, error) {
	state, err := s.state(id)
	if err != nil {
		return domain.KPISummary{}, err
	}
	return dataprocessing.Summarize(s.cache.View(ctx, state)), nil
}

// GroupChurn returns churn rates of the filtered view grouped by dimension,
// either "contract" or "internet".
func (s *DashboardService) GroupChurn(ctx context.Context, id, dimension string) (domain.GroupedChurn, error) {
	field, err := dataprocessing.DimensionField(dimension)
	if err != nil {
		return domain.GroupedChurn{}, err
	}
	state, err := s.state(id)
	if err != nil {
		return domain.GroupedChurn{}, err
	}
	return dataprocessing.GroupChurnRate(s.cache.View(ctx, state), field), nil
}

// Options lists the filter choices offered by the full dataset.
func (s *DashboardService) Options(ctx context.Context, id string) (domain.FilterOptions, error) {
	state, err := s.state(id)
	if err != nil {
		return domain.FilterOptions{}, err
	}
	return dataprocessing.Options(state.Dataset), nil
}

// Records returns a page of the filtered view without moving the session's
// page. page <= 0 reads the current page; pageSize <= 0 uses the configured
// size.
func (s *DashboardService) Records(ctx context.Context, id string, page, pageSize int) (domain.PageWindow, error) {
	state, err := s.state(id)
	if err != nil {
		return domain.PageWindow{}, err
	}
	if page <= 0 {
		page = state.Page
	}
	if pageSize <= 0 {
		pageSize = s.cfg.PageSize
	}
	return dataprocessing.Paginate(s.cache.View(ctx, state), page, pageSize), nil
}

// Navigate moves the session's page and returns the new window.
func (s *DashboardService) Navigate(ctx context.Context, id, action string, target int) (domain.PageWindow, error) {
	snap, err := s.update(ctx, id, func(prev domain.DashboardState) (domain.DashboardState, error) {
		view := s.cache.View(ctx, prev)
		totalPages := dataprocessing.TotalPages(len(view), s.cfg.PageSize)
		page, err := dataprocessing.Navigate(prev.Page, totalPages, action, target)
		if err != nil {
			return prev, err
		}
		prev.Page = page
		return prev, nil
	})
	if err != nil {
		return domain.PageWindow{}, err
	}
	return snap.Page, nil
}

// Export renders the whole filtered view, ignoring pagination.
func (s *DashboardService) Export(ctx context.Context, id, format string) (domain.ExportFile, error) {
	ctx, span := s.tracer.Start(ctx, "dashboard.export", trace.WithAttributes(
		attribute.String("session.id", id),
		attribute.String("export.format", format),
	))
	defer span.End()

	state, err := s.state(id)
	if err != nil {
		return domain.ExportFile{}, err
	}

	var columns []string
	if state.Dataset != nil {
		columns = state.Dataset.Columns
	} else {
		columns = dataprocessing.DatasetColumns(nil)
	}

	opts := exporter.Options{BOMPrefix: s.cfg.ExportBOM}
	if format == exporter.FormatCSV || format == "" {
		opts.Filename = s.cfg.ExportFilename
	}

	file, err := exporter.Export(format, columns, s.cache.View(ctx, state), opts)
	s.metrics.RecordExport(ctx, format, len(file.Body), err)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return domain.ExportFile{}, err
	}

	span.SetAttributes(attribute.Int("export.rows", file.Rows), attribute.Int("export.bytes", len(file.Body)))
	s.logger.InfoContext(ctx, "export rendered",
		slog.String("session_id", id),
		slog.String("format", format),
		slog.Int("rows", file.Rows),
		slog.Int("bytes", len(file.Body)))
	return file, nil
}
