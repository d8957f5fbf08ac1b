// Package shared holds helpers used across the dashboard packages that do
// not belong to a single layer.
//
// The testutil subpackage provides a capturing slog handler and churn CSV
// fixtures for package tests:
//
//	logger, logs := testutil.NewTestLogger(t)
//	body := testutil.TelcoCSV(testutil.SampleCustomers()...)
//
// testutil must not import any internal package so it stays usable from
// internal tests of every package.
package shared
