package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"profiledeck/internal/collection"
	"profiledeck/internal/index"
	"profiledeck/internal/trash"
)

// openManager builds a collection manager from cfg. The returned func
// releases the manager and any cache it opened.
func openManager(watch bool) (*collection.Manager, func(), error) {
	root, err := cfg.ResolvedRoot()
	if err != nil {
		return nil, nil, err
	}

	var idx *index.Index
	if cfg.Cache.Enabled {
		path := cfg.Cache.Path
		if path == "" {
			path, err = index.DefaultPath()
		}
		if err == nil {
			idx, err = index.Open(path)
		}
		if err != nil {
			logger.Warn("Decode cache unavailable", zap.Error(err))
			idx = nil
		}
	}

	var bin trash.Trasher
	if b, err := trash.New(cfg.Trash.Dir); err != nil {
		logger.Warn("Trash unavailable, deletion disabled", zap.Error(err))
	} else {
		bin = b
	}

	m, err := collection.New(collection.Options{
		Root:     root,
		Trash:    bin,
		Index:    idx,
		Locale:   cfg.View.Locale,
		Sort:     cfg.SortKey(),
		Workers:  cfg.Workers(),
		Watch:    watch,
		Debounce: cfg.DebounceDuration(),
	})
	if err != nil {
		if idx != nil {
			idx.Close()
		}
		return nil, nil, err
	}
	logger.Debug("Collection manager ready",
		zap.String("root", root),
		zap.Bool("watch", watch),
		zap.Bool("cache", idx != nil))

	return m, func() {
		m.Close()
		if idx != nil {
			if err := idx.Close(); err != nil {
				logger.Warn("Failed to close decode cache", zap.Error(err))
			}
		}
	}, nil
}

// loadCollection opens a manager without a watcher and runs one scan.
func loadCollection(ctx context.Context) (*collection.Manager, func(), error) {
	m, closeFn, err := openManager(false)
	if err != nil {
		return nil, nil, err
	}
	if err := m.Reload(ctx); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("scan %s: %w", m.Root(), err)
	}
	return m, closeFn, nil
}
