package collection

import (
	"context"
	"os"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"profiledeck/internal/logging"
	"profiledeck/internal/profile"
	"profiledeck/internal/scanner"
)

type scanResult struct {
	records  []profile.Record
	warnings []scanner.Warning
	skipped  int
	err      error
}

// scan enumerates the root and decodes every candidate. Per-file failures
// are logged and counted; only a failure to open the root is an error.
func (m *Manager) scan(ctx context.Context) scanResult {
	log := logging.Get(logging.CategoryCollection)
	start := time.Now()

	sc, err := scanner.Open(m.root)
	if err != nil {
		log.Warn("scan failed: %v", err)
		return scanResult{err: err}
	}
	paths := slices.Collect(sc.Files(ctx))
	if err := ctx.Err(); err != nil {
		return scanResult{err: err}
	}

	decoded := make([]*profile.Record, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, err := m.load(path)
			if err != nil {
				logging.Decode("skipping %s: %v", path, err)
				return nil
			}
			decoded[i] = &rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return scanResult{err: err}
	}

	var (
		ok      []profile.Record
		skipped int
	)
	for _, r := range decoded {
		if r == nil {
			skipped++
			continue
		}
		ok = append(ok, *r)
	}
	records := dedupe(ok)

	if m.index != nil {
		if _, err := m.index.Prune(paths); err != nil {
			logging.Get(logging.CategoryIndex).Warn("prune: %v", err)
		}
	}

	log.Info("scanned %s: %d records, %d skipped, %d warnings in %s",
		m.root, len(records), skipped, len(sc.Warnings()), time.Since(start))
	return scanResult{records: records, warnings: sc.Warnings(), skipped: skipped}
}

// load decodes path, going through the cache when one is configured. Cache
// failures fall back to a plain decode.
func (m *Manager) load(path string) (profile.Record, error) {
	if m.index == nil {
		return m.decode(path)
	}
	ilog := logging.Get(logging.CategoryIndex)

	info, err := os.Stat(path)
	if err != nil {
		return profile.Record{}, err
	}
	rec, hit, err := m.index.Lookup(path, info.ModTime(), info.Size())
	switch {
	case err != nil:
		ilog.Warn("lookup %s: %v", path, err)
	case hit:
		return rec, nil
	}

	rec, err = m.decode(path)
	if err != nil {
		return profile.Record{}, err
	}
	if err := m.index.Store(path, info.ModTime(), info.Size(), rec); err != nil {
		ilog.Warn("store %s: %v", path, err)
	}
	return rec, nil
}

// dedupe collapses records sharing a UUID. The last one discovered wins and
// takes the slot of the first.
func dedupe(records []profile.Record) []profile.Record {
	out := make([]profile.Record, 0, len(records))
	pos := make(map[string]int, len(records))
	for _, r := range records {
		if i, ok := pos[r.UUID]; ok {
			logging.Get(logging.CategoryCollection).Warn("duplicate UUID %s: %s replaces %s",
				r.UUID, r.SourcePath, out[i].SourcePath)
			out[i] = r
			continue
		}
		pos[r.UUID] = len(out)
		out = append(out, r)
	}
	return out
}
