package dictionary

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/japaniel/yomidict/pkg/archive"
	"github.com/japaniel/yomidict/pkg/db"
	"github.com/japaniel/yomidict/pkg/ingest"
)

// importState names the phase an import is in, for logging.
type importState string

const (
	stateCheckingDuplicate importState = "checking-duplicate"
	stateExtracting        importState = "extracting"
	stateCounting          importState = "counting"
	stateImporting         importState = "importing"
	stateFinalizing        importState = "finalizing"
	stateDone              importState = "done"
)

// Importer drives one dictionary archive through extraction, the sizing
// pass, the concurrent import pass and finalization.
type Importer struct {
	DB        *sql.DB
	Extractor *archive.Extractor
	Logger    *zap.Logger

	// BatchSize is the number of words committed per transaction within one
	// shard task.
	BatchSize int
	// Workers bounds the number of shard tasks running at once, for both
	// the counting and the importing pass.
	Workers int

	// OnProgress receives the completion percentage in [0,1] after each
	// committed batch. The sequence is non-decreasing and never repeats a
	// value; it ends at exactly 1.0 on success.
	OnProgress func(pct float64)
	// OnComplete is invoked exactly once, after the word count is
	// finalized, on success only.
	OnComplete func()
}

// NewImporter creates an Importer with the default batch size and worker count.
func NewImporter(conn *sql.DB, extractor *archive.Extractor, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{
		DB:        conn,
		Extractor: extractor,
		Logger:    logger,
		BatchSize: 100,
		Workers:   4,
	}
}

// Import runs the whole pipeline for one archive. Any failure aborts the
// import and leaves at most an orphaned dictionary row (word count 0) plus
// already-committed batches behind; the startup sweep removes both. When one
// shard task fails its siblings abandon their uncommitted batch and stop at
// the next record boundary.
func (im *Importer) Import(ctx context.Context, archivePath string) error {
	log := im.Logger.With(zap.String("archive", filepath.Base(archivePath)))

	// The index document is readable straight out of the zip, so the
	// duplicate check runs before anything is extracted or persisted.
	log.Debug("import state", zap.String("state", string(stateCheckingDuplicate)))
	indexData, err := archive.ReadIndex(archivePath)
	if err != nil {
		if errors.Is(err, archive.ErrIndexNotFound) {
			return fmt.Errorf("%w: %s", ErrMissingIndex, archivePath)
		}
		return fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	meta, err := DecodeMetadata(indexData)
	if err != nil {
		return err
	}
	if _, err := db.FindDictionary(im.DB, meta.Title, meta.Revision); err == nil {
		return fmt.Errorf("%w: %q revision %q", ErrDuplicateDictionary, meta.Title, meta.Revision)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("check existing dictionary: %w", err)
	}

	log.Debug("import state", zap.String("state", string(stateExtracting)))
	dir, err := im.Extractor.ExtractToCache(archivePath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	shards, err := shardFiles(dir)
	if err != nil {
		return err
	}

	// The dictionary row goes in before any words so readers can see the
	// import in flight. Word count 0 marks it incomplete; a crash from here
	// on leaves an orphan for the sweeper.
	dict := db.Dictionary{
		ID:          uuid.NewString(),
		Title:       meta.Title,
		Revision:    meta.Revision,
		Description: meta.Description,
	}
	if err := db.InsertDictionary(im.DB, dict); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	log.Info("importing dictionary",
		zap.String("title", dict.Title),
		zap.String("revision", dict.Revision),
		zap.Int("shards", len(shards)))

	log.Debug("import state", zap.String("state", string(stateCounting)))
	total, err := im.countWords(ctx, shards)
	if err != nil {
		return fmt.Errorf("count words: %w", err)
	}

	log.Debug("import state", zap.String("state", string(stateImporting)), zap.Int("total", total))
	prog := NewProgress(total, im.OnProgress)
	if err := im.importShards(ctx, shards, dict.ID, prog); err != nil {
		return err
	}

	log.Debug("import state", zap.String("state", string(stateFinalizing)))
	saved := prog.Saved()
	if err := db.UpdateDictionaryWordCount(im.DB, dict.ID, saved); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	log.Info("dictionary imported",
		zap.String("state", string(stateDone)),
		zap.String("title", dict.Title),
		zap.Int("words", saved))
	if im.OnComplete != nil {
		im.OnComplete()
	}
	return nil
}

// shardFiles lists the extracted directory, drops the index document and
// returns the remaining files — the shards.
func shardFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	var shards []string
	indexSeen := false
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if archive.IsIndexFile(entry.Name()) {
			indexSeen = true
			continue
		}
		shards = append(shards, filepath.Join(dir, entry.Name()))
	}
	if !indexSeen {
		return nil, fmt.Errorf("%w: %s", ErrMissingIndex, dir)
	}
	return shards, nil
}

// countWords runs the sizing pass over every shard concurrently and sums the
// results. The total is needed up front: percentage cannot be reported
// without a denominator, and the format carries no header count.
func (im *Importer) countWords(ctx context.Context, shards []string) (int, error) {
	var total int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(im.Workers)
	for _, shard := range shards {
		shard := shard
		g.Go(func() error {
			n, err := CountWords(gctx, shard)
			if err != nil {
				return err
			}
			atomic.AddInt64(&total, int64(n))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return int(total), nil
}

// importShards runs one task per shard, each scanning and persisting its
// file independently. The first failure cancels the group context and wins.
func (im *Importer) importShards(ctx context.Context, shards []string, dictionaryID string, prog *Progress) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(im.Workers)
	for _, shard := range shards {
		shard := shard
		g.Go(func() error {
			if err := im.importShard(gctx, shard, dictionaryID, prog); err != nil {
				return fmt.Errorf("%w: shard %s: %w", ErrPersistence, filepath.Base(shard), err)
			}
			return nil
		})
	}
	return g.Wait()
}

// importShard streams one shard through a batch persister. Commits happen
// every BatchSize words plus a final remainder commit; the progress counter
// is bumped only for committed batches, so the reported percentage never
// includes words that could still be rolled back.
func (im *Importer) importShard(ctx context.Context, path, dictionaryID string, prog *Progress) error {
	bp := ingest.NewBatchPersister(im.DB, im.BatchSize)
	bp.OnFlush = func(n int) { prog.Add(n) }

	err := ScanShard(ctx, path, func(e Entry) error {
		word := db.Word{
			ID:           uuid.NewString(),
			WordOriginal: e.OriginalWord,
			Reading:      e.Reading,
			Definitions:  e.Definitions,
			DictionaryID: dictionaryID,
		}
		return bp.Submit(ctx, func(ctx context.Context, tx *sql.Tx) error {
			return db.InsertWord(tx, word)
		})
	})
	if err != nil {
		return err
	}
	return bp.Close(ctx)
}
