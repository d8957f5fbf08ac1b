// Package v1 contains the request contracts of the dashboard HTTP API.
package v1

// PaginationRequest represents pagination parameters. A zero Page means
// "the session's current page".
type PaginationRequest struct {
	Page     int `json:"page" query:"page" validate:"min=0"`
	PageSize int `json:"page_size" query:"page_size" validate:"min=0,max=500"`
}

// FilterRequest replaces the active filters of a session. Empty values
// clear the corresponding criterion.
type FilterRequest struct {
	Contract        string `json:"contract" validate:"max=256"`
	InternetService string `json:"internet_service" validate:"max=256"`
	Search          string `json:"search" validate:"max=1024"`
}

// NavigateRequest moves the current page of a session.
type NavigateRequest struct {
	Action string `json:"action" validate:"required,oneof=next prev first last goto"`
	Page   int    `json:"page,omitempty" validate:"required_if=Action goto"`
}

// ChurnDimensionRequest selects the category a churn breakdown groups by.
type ChurnDimensionRequest struct {
	Dimension string `param:"dimension" validate:"required,oneof=contract internet"`
}

// ExportRequest selects the export format.
type ExportRequest struct {
	Format string `query:"format" validate:"omitempty,oneof=csv xlsx"`
	BOM    bool   `query:"bom"`
}
