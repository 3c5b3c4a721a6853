package dictionary

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/japaniel/yomidict/pkg/archive"
	"github.com/japaniel/yomidict/pkg/db"
)

// Sweeper removes the leftovers of imports that never finished: extracted
// archive contents in the cache and dictionaries stuck at word count 0,
// together with any words already committed for them. It runs once at
// process start, before any import or read traffic.
type Sweeper struct {
	DB        *sql.DB
	Extractor *archive.Extractor
	Logger    *zap.Logger
}

func NewSweeper(conn *sql.DB, extractor *archive.Extractor, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{DB: conn, Extractor: extractor, Logger: logger}
}

// Sweep clears the extraction cache and deletes orphaned dictionaries. Words
// and their dictionary rows go in one transaction, words first, so a word is
// never left pointing at a deleted dictionary. Running Sweep again with no
// import in between removes nothing.
func (s *Sweeper) Sweep(ctx context.Context) error {
	removed, err := s.Extractor.ClearCache()
	if err != nil {
		return fmt.Errorf("clear extraction cache: %w", err)
	}
	if removed > 0 {
		s.Logger.Info("cleared extraction cache", zap.Int("entries", removed))
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sweep tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // ignored if committed
	}()

	ids, err := db.OrphanedDictionaryIDs(tx)
	if err != nil {
		return fmt.Errorf("find orphaned dictionaries: %w", err)
	}
	if len(ids) == 0 {
		return tx.Commit()
	}

	words, err := db.DeleteWordsByDictionaries(tx, ids)
	if err != nil {
		return fmt.Errorf("sweep orphaned words: %w", err)
	}
	if _, err := db.DeleteDictionaries(tx, ids); err != nil {
		return fmt.Errorf("sweep orphaned dictionaries: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sweep: %w", err)
	}

	s.Logger.Info("swept orphaned dictionaries",
		zap.Int("dictionaries", len(ids)),
		zap.Int64("words", words))
	return nil
}
