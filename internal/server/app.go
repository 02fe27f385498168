package server

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/joseph-ayodele/coa-verifier/internal/catalog"
	"github.com/joseph-ayodele/coa-verifier/internal/common"
	"github.com/joseph-ayodele/coa-verifier/internal/export"
	"github.com/joseph-ayodele/coa-verifier/internal/extract"
	"github.com/joseph-ayodele/coa-verifier/internal/intake"
	"github.com/joseph-ayodele/coa-verifier/internal/ocr"
	"github.com/joseph-ayodele/coa-verifier/internal/pipeline"
	"github.com/joseph-ayodele/coa-verifier/internal/reconcile"
	"github.com/joseph-ayodele/coa-verifier/internal/refstore"
	"github.com/joseph-ayodele/coa-verifier/internal/repository"
	"github.com/joseph-ayodele/coa-verifier/internal/rules"
	"github.com/joseph-ayodele/coa-verifier/internal/validate"
)

// App holds the wired components shared by the daemon and the CLIs.
type App struct {
	DB        *repository.DB
	Store     *refstore.SQLStore
	Catalog   catalog.Lookuper // nil when no catalog is configured
	Processor *pipeline.Processor
	Intake    *intake.Service
	Certs     repository.CertificateRepository
	Export    *export.Service
	Rules     rules.Rules

	redis *redis.Client
}

// NewApp connects to the database, redis and the catalog, then builds the pipeline. reg may be
// nil, in which case no metrics are recorded.
func NewApp(ctx context.Context, cfg *common.Config, reg prometheus.Registerer, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r, err := rules.Load(cfg.Pipeline.RulesFile)
	if err != nil {
		return nil, err
	}

	db, err := ConnectDB(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	app := &App{DB: db, Rules: r}

	var verifyCatalog reconcile.Catalog
	if cfg.Catalog.BaseURL != "" {
		rdb, err := catalog.NewRedisClient(ctx, cfg.Cache.Addr, cfg.Cache.Password, cfg.Cache.DB, logger)
		if err != nil {
			logger.Warn("catalog cache disabled", "error", err)
		}
		app.redis = rdb
		app.Catalog = catalog.NewCachedCatalog(
			catalog.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.Timeout, logger), rdb, cfg.Cache.TTL, logger)
		verifyCatalog = app.Catalog
	} else {
		logger.Info("remote catalog disabled")
	}

	var metrics *pipeline.Metrics
	if reg != nil {
		metrics = pipeline.NewMetrics(reg)
	}

	v, err := validate.New(r, logger)
	if err != nil {
		app.Close(logger)
		return nil, err
	}
	app.Store = refstore.NewSQLStore(db.Driver, logger)
	app.Processor = pipeline.NewProcessor(logger,
		ocr.NewExtractor(OCRConfig(cfg.OCR), logger),
		v,
		extract.NewParser(r, logger),
		reconcile.NewEngine(app.Store, verifyCatalog, r, logger),
		metrics,
	)
	app.Certs = repository.NewCertificateRepository(db.Driver, logger)
	app.Intake = intake.NewService(app.Processor, app.Store, app.Certs, r, logger)
	app.Export = export.NewService(app.Certs, logger)
	return app, nil
}

// OCRConfig maps environment configuration onto the text recovery settings.
func OCRConfig(c common.OCRConfig) ocr.Config {
	return ocr.Config{
		Pdftotext:     c.Pdftotext,
		Pdftoppm:      c.Pdftoppm,
		Tesseract:     c.Tesseract,
		TesseractLang: c.TesseractLng,
		DPI:           c.DPI,
		EnableRaster:  c.EnableRaster,
		MinChars:      c.MinChars,

		CommandTimeout: c.CommandTimeout,
	}
}

func (a *App) Close(logger *slog.Logger) {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logger.Warn("redis close failed", "error", err)
		}
	}
	if a.DB != nil {
		a.DB.Close(logger)
	}
}
