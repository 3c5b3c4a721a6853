// Package ingest provides batched transactional persistence for shard
// import tasks.
package ingest

import (
	"context"
	"database/sql"
	"fmt"
)

// WriteFunc is a callback that performs database writes inside a transaction.
type WriteFunc func(ctx context.Context, tx *sql.Tx) error

// BatchPersister buffers write operations and commits them in fixed-size
// batches, one transaction per batch. It is synchronous and owned by a
// single shard task: batches never span shards, so a failure mid-import
// loses at most one uncommitted batch from the shard in flight.
type BatchPersister struct {
	db  *sql.DB
	buf []WriteFunc
	cap int

	// OnFlush is invoked after every committed batch with the number of
	// writes it carried, and exactly once more from Close with the final
	// remainder, which may be zero.
	OnFlush func(n int)

	closed bool
}

// NewBatchPersister creates a persister that commits every batchSize writes.
func NewBatchPersister(db *sql.DB, batchSize int) *BatchPersister {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &BatchPersister{
		db:  db,
		buf: make([]WriteFunc, 0, batchSize),
		cap: batchSize,
	}
}

// Submit enqueues a write. When the buffer reaches the batch size the whole
// batch is committed before Submit returns; a commit failure propagates and
// the batch is rolled back.
func (bp *BatchPersister) Submit(ctx context.Context, w WriteFunc) error {
	if bp.closed {
		return ErrPersisterClosed
	}
	bp.buf = append(bp.buf, w)
	if len(bp.buf) >= bp.cap {
		return bp.flush(ctx)
	}
	return nil
}

// Close commits any buffered remainder and reports it via OnFlush, even when
// the remainder is zero. The persister accepts no submissions afterwards.
func (bp *BatchPersister) Close(ctx context.Context) error {
	if bp.closed {
		return ErrPersisterClosed
	}
	bp.closed = true
	n := len(bp.buf)
	if n > 0 {
		if err := bp.executeBatch(ctx, bp.buf); err != nil {
			return err
		}
		bp.buf = nil
	}
	if bp.OnFlush != nil {
		bp.OnFlush(n)
	}
	return nil
}

func (bp *BatchPersister) flush(ctx context.Context) error {
	if len(bp.buf) == 0 {
		return nil
	}
	if err := bp.executeBatch(ctx, bp.buf); err != nil {
		return err
	}
	n := len(bp.buf)
	bp.buf = make([]WriteFunc, 0, bp.cap)
	if bp.OnFlush != nil {
		bp.OnFlush(n)
	}
	return nil
}

func (bp *BatchPersister) executeBatch(ctx context.Context, batch []WriteFunc) error {
	// If no DB is configured (e.g. testing without DB), just run callbacks with nil tx
	if bp.db == nil {
		for _, w := range batch {
			if err := w(ctx, nil); err != nil {
				return err
			}
		}
		return nil
	}

	tx, err := bp.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // ignored if committed
	}()

	for _, w := range batch {
		if err := w(ctx, tx); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch (%d items): %w", len(batch), err)
	}
	return nil
}

// ErrPersisterClosed is returned if a Submit or Close is attempted after Close.
var ErrPersisterClosed = &PersisterError{"batch persister closed"}

// PersisterError provides a simple typed error for persister operations.
type PersisterError struct{ msg string }

func (e *PersisterError) Error() string { return e.msg }
