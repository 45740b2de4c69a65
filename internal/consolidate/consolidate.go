// Package consolidate merges the checkpoints of a run into one JSON Lines
// file ordered by batch start index.
package consolidate

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"codeberg.org/snonux/dsxlate/internal/checkpoint"
	"codeberg.org/snonux/dsxlate/internal/logger"
)

var (
	// ErrNoCheckpoints is returned when the store holds no checkpoints
	ErrNoCheckpoints = errors.New("no checkpoint files found")
	// ErrEmptyArtifact is returned when the checkpoints hold no lines
	ErrEmptyArtifact = errors.New("consolidated file is empty")
)

// Result describes a written artifact
type Result struct {
	Path    string
	Batches int
	Lines   int
}

// Consolidate concatenates every checkpoint of store, in ascending start
// order, into outputPath. The output is rebuilt from scratch on every call
// and replaced atomically.
func Consolidate(ctx context.Context, store checkpoint.Store, outputPath string) (Result, error) {
	log := logger.FromContext(ctx).WithFields(logger.Fields{
		logger.FieldComponent: "consolidate",
		logger.FieldPath:      outputPath,
	})

	entries, err := checkpoint.List(ctx, store)
	if err != nil {
		return Result{}, err
	}
	if len(entries) == 0 {
		log.Warnf("No checkpoint files found in %s", store.Location())
		return Result{}, ErrNoCheckpoints
	}

	log.WithField(logger.FieldCount, len(entries)).Info("Consolidating checkpoint files")

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return Result{}, fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(outputPath), "."+filepath.Base(outputPath)+".*.tmp")
	if err != nil {
		return Result{}, fmt.Errorf("failed to create output file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	w := bufio.NewWriter(tmp)
	lines := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			_ = tmp.Close()
			return Result{}, err
		}
		n, err := appendCheckpoint(ctx, store, entry.Name, w)
		if err != nil {
			_ = tmp.Close()
			return Result{}, err
		}
		lines += n
	}

	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		return Result{}, fmt.Errorf("failed to write output file: %w", err)
	}
	if err := tmp.Chmod(0644); err != nil {
		_ = tmp.Close()
		return Result{}, fmt.Errorf("failed to set output file mode: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return Result{}, fmt.Errorf("failed to sync output file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Result{}, fmt.Errorf("failed to close output file: %w", err)
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		return Result{}, fmt.Errorf("failed to move output file into place: %w", err)
	}

	if lines == 0 {
		log.Warn("Consolidation resulted in an empty file")
		return Result{Path: outputPath, Batches: len(entries)}, ErrEmptyArtifact
	}

	log.WithField(logger.FieldCount, lines).Infof("Consolidated %d records into %s", lines, outputPath)
	return Result{Path: outputPath, Batches: len(entries), Lines: lines}, nil
}

// appendCheckpoint copies the lines of one checkpoint to w, terminating an
// unterminated last line
func appendCheckpoint(ctx context.Context, store checkpoint.Store, name string, w *bufio.Writer) (int, error) {
	rc, err := store.Open(ctx, name)
	if err != nil {
		return 0, err
	}
	defer func() { _ = rc.Close() }()

	r := bufio.NewReader(rc)
	lines := 0
	for {
		line, err := r.ReadBytes('\n')
		if len(line) > 0 {
			if _, werr := w.Write(line); werr != nil {
				return lines, fmt.Errorf("failed to write output file: %w", werr)
			}
			if line[len(line)-1] != '\n' {
				if werr := w.WriteByte('\n'); werr != nil {
					return lines, fmt.Errorf("failed to write output file: %w", werr)
				}
			}
			lines++
		}
		if err == io.EOF {
			return lines, nil
		}
		if err != nil {
			return lines, fmt.Errorf("failed to read checkpoint %s: %w", name, err)
		}
	}
}
