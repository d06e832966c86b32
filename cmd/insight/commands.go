package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"siteinsight/internal/config"
	"siteinsight/internal/db"
	"siteinsight/internal/logger"
	"siteinsight/internal/report"
)

// openFunc opens the database for a command. Tests replace it.
type openFunc func(dsn string, log *zap.Logger) (*gorm.DB, error)

type app struct {
	out  io.Writer
	cfg  *config.Config
	dsn  string
	open openFunc
}

// openReadOnly opens an existing database without migrating it. A
// missing SQLite file is an error rather than a fresh empty database.
func openReadOnly(dsn string, log *zap.Logger) (*gorm.DB, error) {
	if !db.IsPostgres(dsn) {
		path := db.SQLitePath(dsn)
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("database file not found: %s", path)
		}
	}
	return db.Open(dsn, log)
}

func newRootCmd(out io.Writer) *cobra.Command {
	return newRootCmdWith(out, openReadOnly)
}

func newRootCmdWith(out io.Writer, open openFunc) *cobra.Command {
	a := &app{out: out, cfg: config.Load(), open: open}

	root := &cobra.Command{
		Use:          "insight",
		Short:        "Site analytics reports by A/B variant",
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&a.dsn, "db", a.cfg.DatabaseURL,
		"database location: SQLite path or postgres:// URL (default from APP_DATABASE_URL or RF_SITE_DB)")

	root.AddCommand(
		a.summaryCmd(),
		a.eventsCmd(),
		a.eventsDetailedCmd(),
		a.eventsLikeCmd(),
		a.pageviewsCmd(),
		a.conversionCmd(),
		a.recentCmd(),
	)
	return root
}

// run opens the store, runs one report and prints it.
func (a *app) run(cmd *cobra.Command, req report.Request) error {
	lg, err := logger.New(a.cfg.Environment)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer func() { _ = lg.Sync() }()
	// stdout carries the report; keep stderr for problems only.
	lg = lg.WithOptions(zap.IncreaseLevel(zap.WarnLevel))

	gdb, err := a.open(a.dsn, lg)
	if err != nil {
		return err
	}
	if sqlDB, err := gdb.DB(); err == nil {
		defer sqlDB.Close()
	}

	engine := report.NewEngine(db.NewStore(gdb), lg.Named("report"))
	rep, err := engine.Run(cmd.Context(), req)
	if err != nil {
		return err
	}
	return rep.Render(a.out)
}

func (a *app) summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show events and pageviews grouped by variant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, report.Request{Kind: report.KindSummary})
		},
	}
}

func (a *app) eventsCmd() *cobra.Command {
	var event string
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show event counts by variant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, report.Request{Kind: report.KindEvents, Event: event})
		},
	}
	cmd.Flags().StringVar(&event, "event", "", "event name, e.g. click_buy-now_hero")
	_ = cmd.MarkFlagRequired("event")
	return cmd
}

func (a *app) eventsDetailedCmd() *cobra.Command {
	var event string
	cmd := &cobra.Command{
		Use:   "events-detailed",
		Short: "Show total + unique sessions by variant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, report.Request{Kind: report.KindEventsDetailed, Event: event})
		},
	}
	cmd.Flags().StringVar(&event, "event", "", "event name, e.g. click_buy-now_hero")
	_ = cmd.MarkFlagRequired("event")
	return cmd
}

func (a *app) eventsLikeCmd() *cobra.Command {
	var pattern string
	cmd := &cobra.Command{
		Use:   "events-like",
		Short: "Show event counts for a SQL LIKE pattern",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, report.Request{Kind: report.KindEventsLike, Pattern: pattern})
		},
	}
	cmd.Flags().StringVar(&pattern, "pattern", "", "SQL LIKE pattern, e.g. 'click_buy-now_%'")
	_ = cmd.MarkFlagRequired("pattern")
	return cmd
}

func (a *app) pageviewsCmd() *cobra.Command {
	var page string
	cmd := &cobra.Command{
		Use:   "pageviews",
		Short: "Show pageview counts by variant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, report.Request{Kind: report.KindPageviews, Page: page})
		},
	}
	cmd.Flags().StringVar(&page, "page", "", "page path, e.g. / or /product")
	_ = cmd.MarkFlagRequired("page")
	return cmd
}

func (a *app) conversionCmd() *cobra.Command {
	var event, page string
	cmd := &cobra.Command{
		Use:   "conversion",
		Short: "Show conversion (events/pageviews) by variant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, report.Request{Kind: report.KindConversion, Event: event, Page: page})
		},
	}
	cmd.Flags().StringVar(&event, "event", "", "event name, e.g. click_buy-now_hero")
	cmd.Flags().StringVar(&page, "page", "", "page path, e.g. /")
	_ = cmd.MarkFlagRequired("event")
	_ = cmd.MarkFlagRequired("page")
	return cmd
}

func (a *app) recentCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Show recent events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, report.Request{Kind: report.KindRecent, Limit: limit})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", a.cfg.RecentLimit, "how many events to show")
	return cmd
}
