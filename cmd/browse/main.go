package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rulehub/rulehub-backend/internal/apiclient"
	"github.com/rulehub/rulehub-backend/internal/browse"
	"github.com/rulehub/rulehub-backend/internal/domain"
	"github.com/rulehub/rulehub-backend/internal/tui"
	pkglogger "github.com/rulehub/rulehub-backend/pkg/logger"
)

type options struct {
	api      string
	search   string
	category string
	sort     string
	limit    int
	debounce time.Duration
	timeout  time.Duration
	logFile  string
	plain    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:          "browse",
		Short:        "Browse the rulehub catalog in the terminal",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.api, "api", envOr("RULEHUB_API", "http://localhost:8082"), "API base URL")
	f.StringVar(&opts.search, "search", "", "initial search text")
	f.StringVar(&opts.category, "category", domain.CategoryAll, "initial category slug")
	f.StringVar(&opts.sort, "sort", string(domain.DefaultSort), "newest | most-copied | top-voted")
	f.IntVar(&opts.limit, "limit", 0, "page size (default: server page size)")
	f.DurationVar(&opts.debounce, "debounce", browse.DefaultDebounce, "remote search delay after the last keystroke")
	f.DurationVar(&opts.timeout, "timeout", browse.DefaultRequestTimeout, "per-request timeout")
	f.StringVar(&opts.logFile, "log-file", "", "write logs to this file (default: discarded in interactive mode)")
	f.BoolVar(&opts.plain, "plain", false, "print the first page and exit")
	return cmd
}

func run(ctx context.Context, opts *options, out io.Writer) error {
	logger, closeLog, err := newLogger(opts)
	if err != nil {
		return err
	}
	defer closeLog()

	client := apiclient.New(opts.api, apiclient.WithTimeout(opts.timeout))

	params := browse.Filters{
		Search:   opts.search,
		Category: opts.category,
		Sort:     domain.ParseSortKey(opts.sort),
		Page:     1,
	}.Query()

	initCtx, cancel := context.WithTimeout(ctx, opts.timeout)
	initial, err := client.Browse(initCtx, params)
	cancel()
	if err != nil {
		return fmt.Errorf("load initial page: %w", err)
	}

	if opts.plain {
		return printPlain(out, initial)
	}

	pageSize := opts.limit
	if pageSize <= 0 {
		pageSize = initial.Pagination.Limit
	}

	history := browse.NewHistory(params)
	bridge := tui.NewBridge()

	var trigger *browse.ScrollTrigger
	coord := browse.NewCoordinator(client, history, bridge, browse.Options{
		Debounce:       opts.debounce,
		PageSize:       pageSize,
		RequestTimeout: opts.timeout,
		Logger:         logger,
		LoadMoreDone:   func() { trigger.Rearm() },
	})
	defer coord.Close()
	trigger = browse.NewScrollTrigger(coord.OnScrollNearBottom)
	history.Listen(coord.OnURLChange)

	model := tui.New(tui.Config{
		Controller: coord,
		Trigger:    trigger,
		Bridge:     bridge,
		History:    history,
		Engager:    client,
		Timeout:    opts.timeout,
	})

	coord.Initialize(browse.InitialData{
		Items:      initial.Items,
		Pagination: initial.Pagination,
		Categories: initial.Categories,
	}, params)

	logger.Info().Str("api", opts.api).Str("query", params.Encode()).Msg("browse started")

	_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

func printPlain(out io.Writer, initial *domain.BrowseResponse) error {
	p := initial.Pagination
	fmt.Fprintf(out, "page %d/%d (%d rules)\n", p.Page, p.TotalPages, p.Total)
	for _, it := range initial.Items {
		if _, err := fmt.Fprintf(out, "%-32s %s (copies %d, +%d/-%d)\n",
			it.Slug, it.Title, it.CopyCount, it.Upvotes, it.Downvotes); err != nil {
			return err
		}
	}
	return nil
}

// newLogger points the shared logger away from stdout, which belongs to the UI.
// Without --log-file, interactive mode discards logs and plain mode writes to stderr.
func newLogger(opts *options) (*zerolog.Logger, func(), error) {
	switch {
	case opts.logFile != "":
		f, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		pkglogger.SetOutput(f)
		return pkglogger.GetLogger(), func() { _ = f.Close() }, nil
	case opts.plain:
		pkglogger.SetOutput(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
		return pkglogger.GetLogger(), func() {}, nil
	default:
		pkglogger.SetOutput(io.Discard)
		return pkglogger.GetLogger(), func() {}, nil
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
