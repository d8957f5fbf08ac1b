// Command churn-report loads a Telco customer file, applies the dashboard
// filters and prints the resulting snapshot as JSON. With -export it also
// writes the filtered rows to disk.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/schollz/progressbar/v3"

	"github.com/davallejo/telco-churn-dashboard/internal/config"
	"github.com/davallejo/telco-churn-dashboard/internal/dataprocessing"
	"github.com/davallejo/telco-churn-dashboard/internal/exporter"
	"github.com/davallejo/telco-churn-dashboard/internal/infrastructure"
	"github.com/davallejo/telco-churn-dashboard/internal/services"
	"github.com/davallejo/telco-churn-dashboard/internal/validation"
	"github.com/davallejo/telco-churn-dashboard/pkg/contracts/domain"
)

// options are the parsed command line flags.
type options struct {
	input    string
	contract string
	internet string
	search   string
	page     int
	export   string
	format   string
	logLevel string
	quiet    bool
}

// report is what gets printed to stdout.
type report struct {
	Parse    domain.ParseReport `json:"parse"`
	Snapshot domain.Snapshot    `json:"snapshot"`
	Export   *domain.ExportFile `json:"export,omitempty"`
}

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			slog.Error("churn-report failed", slog.String("error", err.Error()))
		}
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("churn-report", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.input, "in", "", "customer file to load (.csv or .xlsx)")
	fs.StringVar(&opts.contract, "contract", "", "contract filter, e.g. \"Month-to-month\"")
	fs.StringVar(&opts.internet, "internet", "", "internet service filter, e.g. \"Fiber optic\"")
	fs.StringVar(&opts.search, "search", "", "customer ID substring (case-insensitive)")
	fs.IntVar(&opts.page, "page", 1, "page of the filtered table to include")
	fs.StringVar(&opts.export, "export", "", "write the filtered rows to this file")
	fs.StringVar(&opts.format, "format", "", "export format: csv or xlsx (defaults to the -export extension)")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	fs.BoolVar(&opts.quiet, "quiet", false, "hide the read progress bar")

	if err := fs.Parse(args); err != nil {
		return opts, errUsage
	}
	if opts.input == "" {
		fmt.Fprintln(stderr, "churn-report: -in is required")
		fs.Usage()
		return opts, errUsage
	}
	if opts.page < 1 {
		return opts, fmt.Errorf("-page must be at least 1, got %d", opts.page)
	}
	if opts.export != "" && opts.format == "" {
		opts.format = exporter.FormatCSV
		if strings.EqualFold(filepath.Ext(opts.export), ".xlsx") {
			opts.format = exporter.FormatXLSX
		}
	}
	if opts.format != "" && opts.format != exporter.FormatCSV && opts.format != exporter.FormatXLSX {
		return opts, fmt.Errorf("unknown export format %q", opts.format)
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logCfg := cfg.Logging
	logCfg.Level = opts.logLevel
	logger := infrastructure.NewLogger(logCfg, stderr)

	validator := validation.NewFileValidator(logger)
	info, err := validator.ValidateCustomerFile(opts.input)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	if opts.export != "" {
		if err := validator.ValidateOutputFile(opts.export); err != nil {
			return fmt.Errorf("export: %w", err)
		}
	}

	f, err := os.Open(opts.input)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer f.Close()
	// Local files are not bound by the upload limit
	if info.Size() >= cfg.Dashboard.MaxUploadBytes {
		cfg.Dashboard.MaxUploadBytes = info.Size() + 1
	}

	bar := progressbar.NewOptions64(info.Size(),
		progressbar.OptionSetWriter(stderr),
		progressbar.OptionSetDescription("reading "+filepath.Base(opts.input)),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetVisibility(!opts.quiet),
		progressbar.OptionClearOnFinish(),
	)
	body := progressbar.NewReader(f, bar)

	svc := services.NewDashboardService(cfg.Dashboard, logger)
	sess, err := svc.CreateSession(ctx)
	if err != nil {
		return err
	}

	out := report{}
	out.Parse, err = svc.Ingest(ctx, sess.ID, services.Upload{
		Filename: filepath.Base(opts.input),
		Body:     &body,
	})
	if err != nil {
		return fmt.Errorf("load %s: %w", opts.input, err)
	}
	bar.Finish()

	filters := domain.FilterState{
		Contract:        opts.contract,
		InternetService: opts.internet,
		Search:          opts.search,
	}
	if !filters.IsZero() {
		if _, err := svc.SetFilters(ctx, sess.ID, filters); err != nil {
			return err
		}
	}
	if opts.page > 1 {
		if _, err := svc.Navigate(ctx, sess.ID, dataprocessing.ActionGoTo, opts.page); err != nil {
			return err
		}
	}

	out.Snapshot, err = svc.Snapshot(ctx, sess.ID)
	if err != nil {
		return err
	}

	if opts.export != "" {
		file, err := svc.Export(ctx, sess.ID, opts.format)
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.export, file.Body, 0o644); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		file.Filename = opts.export
		out.Export = &file
		logger.InfoContext(ctx, "export written",
			slog.String("path", opts.export),
			slog.Int("rows", file.Rows))
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
