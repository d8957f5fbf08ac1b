package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/davallejo/telco-churn-dashboard/internal/config"
	"github.com/davallejo/telco-churn-dashboard/internal/shared/testutil"
	"github.com/davallejo/telco-churn-dashboard/pkg/contracts/domain"
)

// MockPublisher is a mock for the SnapshotPublisher interface
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishSnapshot(ctx context.Context, sessionID string, snapshot domain.Snapshot) {
	m.Called(ctx, sessionID, snapshot)
}

func (m *MockPublisher) CloseSession(sessionID string) {
	m.Called(sessionID)
}

// recordingPublisher keeps every published snapshot
type recordingPublisher struct {
	mu        sync.Mutex
	snapshots []domain.Snapshot
	closed    []string
}

func (p *recordingPublisher) PublishSnapshot(_ context.Context, _ string, snapshot domain.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshots = append(p.snapshots, snapshot)
}

func (p *recordingPublisher) CloseSession(sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = append(p.closed, sessionID)
}

func (p *recordingPublisher) last() domain.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshots[len(p.snapshots)-1]
}

// fakeClock is a settable time source
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestService(t *testing.T, opts ...DashboardOption) *DashboardService {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	return NewDashboardService(config.Default().Dashboard, logger, opts...)
}

// sessionWithSample opens a session and loads the sample customers into it.
func sessionWithSample(t *testing.T, svc *DashboardService) string {
	t.Helper()
	ctx := context.Background()
	info, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	report, err := svc.Ingest(ctx, info.ID, Upload{
		Filename: "telco.csv",
		Body:     strings.NewReader(testutil.TelcoCSV(testutil.SampleCustomers()...)),
	})
	require.NoError(t, err)
	require.True(t, report.Loaded)
	return info.ID
}
