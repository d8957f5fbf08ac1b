package http

import (
	"context"

	"github.com/davallejo/telco-churn-dashboard/internal/services"
	"github.com/davallejo/telco-churn-dashboard/pkg/contracts/domain"
)

// DashboardServiceInterface defines the dashboard operations the HTTP layer needs
type DashboardServiceInterface interface {
	CreateSession(ctx context.Context) (domain.SessionInfo, error)
	Session(ctx context.Context, id string) (domain.SessionInfo, error)
	DeleteSession(ctx context.Context, id string) error
	Snapshot(ctx context.Context, id string) (domain.Snapshot, error)

	Ingest(ctx context.Context, id string, up services.Upload) (domain.ParseReport, error)

	Filters(ctx context.Context, id string) (domain.FilterState, error)
	SetFilters(ctx context.Context, id string, filters domain.FilterState) (domain.Snapshot, error)
	ResetFilters(ctx context.Context, id string) (domain.Snapshot, error)

	Summary(ctx context.Context, id string) (domain.KPISummary, error)
	GroupChurn(ctx context.Context, id, dimension string) (domain.GroupedChurn, error)
	Options(ctx context.Context, id string) (domain.FilterOptions, error)
	Records(ctx context.Context, id string, page, pageSize int) (domain.PageWindow, error)
	Navigate(ctx context.Context, id, action string, target int) (domain.PageWindow, error)

	Export(ctx context.Context, id, format string) (domain.ExportFile, error)
}
