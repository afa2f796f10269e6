package main

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"estatecatalog/server/config"
	"estatecatalog/server/internal/catalog"
	"estatecatalog/server/internal/database"
	"estatecatalog/server/internal/inventory"
	"estatecatalog/server/internal/media"
	"estatecatalog/server/internal/processor"
	"estatecatalog/server/internal/projection"
	"estatecatalog/server/internal/queue"
	"estatecatalog/server/internal/scheduler"
	"estatecatalog/server/internal/search"
)

// app holds every long-lived component of the server.
type app struct {
	cfg    *config.Config
	logger *logrus.Logger

	db         *database.Database
	catalog    *catalog.Catalog
	queue      *queue.RefreshQueue
	catchUp    *scheduler.CatchUp
	processor  *processor.RefreshProcessor
	refresher  *catalog.Refresher
	inventory  *inventory.Repository
	engine     *search.Engine
	serializer *projection.Serializer
}

func newApp(cfg *config.Config, logger *logrus.Logger) (*app, error) {
	logger.WithField("path", cfg.DatabasePath).Info("Opening database")
	db, err := database.NewDatabase(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	logger.Info("Running database migrations...")
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, err
	}

	mode, err := catalog.ParseMode(cfg.Refresh.DefaultMode)
	if err != nil {
		db.Close()
		return nil, err
	}

	bucket, err := media.NewBucket(cfg.Media.BaseURL)
	if err != nil {
		db.Close()
		return nil, err
	}

	defaultLocale := "en"
	if len(cfg.Locales) > 0 {
		defaultLocale = cfg.Locales[0]
	}

	cat := catalog.New(db.GetDB(), logger)
	q := queue.NewRefreshQueue(cfg.Refresh.QueueSize, logger)
	catchUp := scheduler.NewCatchUp(cat, cfg.Refresh.Timeout, logger)
	refresher := catalog.NewRefresher(cat, q, catchUp, catalog.RefresherOptions{
		Timeout:     cfg.Refresh.Timeout,
		DefaultMode: mode,
	}, logger)

	return &app{
		cfg:        cfg,
		logger:     logger,
		db:         db,
		catalog:    cat,
		queue:      q,
		catchUp:    catchUp,
		processor:  processor.NewRefreshProcessor(cat, q, catchUp, cfg, logger),
		refresher:  refresher,
		inventory:  inventory.NewRepository(db.GetDB(), refresher, logger),
		engine:     search.NewEngine(cat, logger),
		serializer: projection.NewSerializer(media.NewResolver(bucket, logger), defaultLocale, logger),
	}, nil
}

// startBackground starts the refresh workers and the catch-up sweep.
func (a *app) startBackground() error {
	a.processor.Start()
	if err := a.catchUp.Start(a.cfg.Refresh.CatchUpSpec); err != nil {
		a.processor.Stop()
		return fmt.Errorf("invalid catch-up schedule %q: %w", a.cfg.Refresh.CatchUpSpec, err)
	}
	return nil
}

// close stops the background work and closes the database.
func (a *app) close(background bool) {
	if background {
		a.catchUp.Stop()
		a.processor.Stop()
	}
	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Warn("Failed to close database")
	}
}
