// Package exporter renders a filtered churn view as a downloadable file.
//
// CSV output is deterministic for a given view and column order: the
// header is the dataset's column list, rows follow view order, lines end
// in CRLF and there is no trailing line break. An empty view renders as an
// empty document. XLSX output writes the same table to a single sheet with
// numeric cells for the normalized columns.
//
//	file, err := exporter.Export(exporter.FormatCSV, ds.Columns, view, exporter.Options{})
//	w.Header().Set("Content-Type", file.ContentType)
//	w.Write(file.Body)
package exporter
