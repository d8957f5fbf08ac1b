// Package dataprocessing implements the churn dashboard core: ingestion of
// tokenized customer rows, field normalization, filtering, KPI
// aggregation and pagination.
//
// # Data Flow
//
//	CSV/XLSX → Parse → ParseResult → Ingest → Dataset
//	Dataset + FilterState → Apply → view → Summarize / GroupChurnRate / Paginate
//
// Every function past parsing is pure. A Dataset is never mutated once
// built; a new upload produces a new one. Derive bundles one full
// recomputation of a DashboardState into a Snapshot.
//
// # Degradation
//
// Nothing in the pipeline fails on bad data. Malformed numbers become 0,
// unrecognized churn values become "No", an empty view aggregates to
// zeros and out-of-range navigation is clamped.
package dataprocessing
