package batch

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"codeberg.org/snonux/dsxlate/internal/checkpoint"
	"codeberg.org/snonux/dsxlate/internal/dataset"
	"codeberg.org/snonux/dsxlate/internal/logger"
	"codeberg.org/snonux/dsxlate/internal/translation"
)

// Summary describes the outcome of a run
type Summary struct {
	Planned      int // batches in the range
	Processed    int // batches translated and written
	Skipped      int // batches with an existing checkpoint
	Records      int // records translated
	Placeholders int // fields replaced by an error placeholder
}

// Runner translates batches and writes their checkpoints
type Runner struct {
	translator *translation.RecordTranslator
	store      checkpoint.Store
}

// NewRunner creates a runner writing checkpoints to store
func NewRunner(translator *translation.RecordTranslator, store checkpoint.Store) *Runner {
	return &Runner{
		translator: translator,
		store:      store,
	}
}

// Run translates the records of [start, end) batch by batch. end is clamped
// to the dataset length. Batches are processed strictly in order; the first
// error stops the run and leaves the failing batch without a checkpoint.
func (r *Runner) Run(ctx context.Context, provider dataset.Provider, start, end, size int) (Summary, error) {
	var summary Summary
	log := logger.FromContext(ctx).WithField(logger.FieldComponent, "batch")

	if size < 1 {
		return summary, fmt.Errorf("%w: %d", ErrInvalidBatchSize, size)
	}

	length, err := provider.Len(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to get dataset length: %w", err)
	}
	if start > length {
		return summary, fmt.Errorf("%w: start index %d outside dataset of %d records", ErrInvalidRange, start, length)
	}
	end = min(end, length)

	ranges, err := Plan(start, end, size)
	if err != nil {
		return summary, err
	}
	summary.Planned = len(ranges)

	if err := r.store.Ensure(ctx); err != nil {
		return summary, err
	}

	log.WithFields(logger.Fields{
		logger.FieldBatchStart: start,
		logger.FieldBatchEnd:   end,
		logger.FieldCount:      len(ranges),
		logger.FieldPath:       r.store.Location(),
	}).Info("Starting batch run")

	for _, rng := range ranges {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		name := rng.Name()
		batchLog := log.WithFields(logger.Fields{
			logger.FieldBatchStart: rng.Start,
			logger.FieldBatchEnd:   rng.End,
			logger.FieldCheckpoint: name,
		})

		exists, err := r.store.Exists(ctx, name)
		if err != nil {
			return summary, err
		}
		if exists {
			batchLog.Info("Checkpoint exists, skipping batch")
			summary.Skipped++
			continue
		}

		before := r.translator.FieldTranslator().Stats().Placeholders
		started := time.Now()

		n, err := r.runBatch(ctx, provider, rng)
		if err != nil {
			batchLog.WithError(err).Error("Batch failed")
			return summary, err
		}

		placeholders := r.translator.FieldTranslator().Stats().Placeholders - before
		summary.Processed++
		summary.Records += n
		summary.Placeholders += int(placeholders)

		batchLog.WithFields(logger.Fields{
			logger.FieldCount:      n,
			logger.FieldDurationMs: time.Since(started).Milliseconds(),
			"placeholders":         placeholders,
		}).Info("Saved checkpoint")
	}

	return summary, nil
}

// runBatch translates one range and writes its checkpoint
func (r *Runner) runBatch(ctx context.Context, provider dataset.Provider, rng checkpoint.Range) (int, error) {
	records, err := provider.Select(ctx, rng.Start, rng.End)
	if err != nil {
		return 0, fmt.Errorf("failed to select batch %s: %w", rng, err)
	}

	var buf bytes.Buffer
	for i, rec := range records {
		translated, err := r.translator.TranslateRecord(ctx, rec)
		if err != nil {
			return 0, fmt.Errorf("batch %s, record %d: %w", rng, rng.Start+i, err)
		}
		line, err := translated.Line()
		if err != nil {
			return 0, fmt.Errorf("batch %s, record %d: %w", rng, rng.Start+i, err)
		}
		buf.Write(line)
	}

	if err := r.store.Write(ctx, rng.Name(), buf.Bytes()); err != nil {
		return 0, err
	}
	return len(records), nil
}
