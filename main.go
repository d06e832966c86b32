package main

import (
	"log"

	"github.com/fasthttp/router"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"siteinsight/internal/config"
	"siteinsight/internal/db"
	"siteinsight/internal/http/handlers"
	appmw "siteinsight/internal/http/middleware"
	"siteinsight/internal/logger"
	"siteinsight/internal/report"
	ui "siteinsight/web"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	lg, err := logger.New(cfg.Environment)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	sqlDB, err := db.Open(cfg.DatabaseURL, lg)
	if err != nil {
		lg.Fatal("failed to connect database", zap.Error(err))
	}
	if err := db.Migrate(sqlDB); err != nil {
		lg.Fatal("failed to migrate database", zap.Error(err))
	}

	db.StartRetentionWorker(sqlDB, cfg.RetentionDays, lg.Named("retention"))

	if err := db.EnsureBootstrapAdmin(sqlDB, cfg); err != nil {
		lg.Fatal("failed to ensure bootstrap admin", zap.Error(err))
	}

	handlers.InitPrometheusMetrics()

	store := db.NewStore(sqlDB)
	engine := report.NewEngine(store, lg.Named("report"))
	adminAuth := appmw.AdminAuth(sqlDB, lg)

	r := router.New()

	// Global middleware chain: request logger, then session cookies, then router
	handler := handlers.RequestLogger(lg.Named("http"))(appmw.Session(cfg)(r.Handler))

	r.GET("/healthz", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	})

	r.ServeFS("/static/{filepath:*}", ui.StaticFS())

	r.POST("/api/track", handlers.TrackHandler(store, lg))
	r.POST("/api/pageview", handlers.PageViewHandler(store, lg))
	r.POST("/api/assignment", handlers.AssignmentHandler(store, lg))

	for _, kind := range report.Kinds {
		r.GET("/reports/"+string(kind), adminAuth(handlers.ReportHandler(engine, kind, cfg.RecentLimit, lg)))
	}
	r.GET("/metrics", adminAuth(handlers.MetricsHandler(prometheus.DefaultGatherer)))

	lg.Info("siteinsight listening", zap.String("addr", cfg.ListenAddr))
	if err := fasthttp.ListenAndServe(cfg.ListenAddr, handler); err != nil {
		lg.Fatal("server error", zap.Error(err))
	}
}
