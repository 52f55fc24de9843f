package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/the-books-must-balance/internal/classifier"
	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/config"
	"github.com/Veraticus/the-books-must-balance/internal/engine"
	"github.com/Veraticus/the-books-must-balance/internal/storage"
	"github.com/spf13/viper"
)

// session holds what a command needs to work with the books.
type session struct {
	store      *storage.SQLiteStorage
	reconciler *engine.Reconciler
	config     config.Config
}

func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		slog.Warn("Failed to close database", "error", err)
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return config.Config{}, common.NewUserError("invalid configuration", err)
	}
	return cfg, nil
}

// initStorage opens and migrates the configured database.
func initStorage(ctx context.Context, cfg config.Config) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// modelStore returns where the classifier model lives: a directory when
// model.dir is set, the database otherwise.
func modelStore(cfg config.Config, store *storage.SQLiteStorage) (classifier.BlobStore, error) {
	if cfg.Model.Dir == "" {
		return store, nil
	}
	return storage.NewFileBlobStore(cfg.Model.Dir)
}

type sessionOptions struct {
	onProgress func(done, total int)
	skipModel  bool // start untrained, e.g. to rebuild a model that no longer loads
}

// openSession loads configuration, storage and the classifier. A stored
// model is loaded when present; the matcher falls back to the heuristic
// scorer otherwise.
func openSession(ctx context.Context, opts sessionOptions) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	store, err := initStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	blobs, err := modelStore(cfg, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	clf := classifier.NewWithConfig(blobs, nil, cfg.Classifier())
	if !opts.skipModel {
		loaded, err := clf.LoadIfExists(ctx)
		if err != nil {
			_ = store.Close()
			if errors.Is(err, common.ErrFeatureSchemaMismatch) {
				return nil, common.NewUserError("stored model was trained on different features; run 'balance train' to rebuild it", err)
			}
			return nil, err
		}
		slog.Debug("Classifier ready", "loaded", loaded, "state", clf.State())
	}

	reconciler := engine.NewWithConfig(store, clf, engine.Config{
		OnProgress: opts.onProgress,
		Scoring:    cfg.Scoring,
	})
	return &session{store: store, reconciler: reconciler, config: cfg}, nil
}
