package batch

import (
	"errors"
	"fmt"

	"codeberg.org/snonux/dsxlate/internal/checkpoint"
)

var (
	// ErrInvalidBatchSize is returned for batch sizes below one
	ErrInvalidBatchSize = errors.New("batch size must be at least 1")
	// ErrInvalidRange is returned when start and end do not form a range
	// inside the dataset
	ErrInvalidRange = errors.New("invalid index range")
)

// Plan splits [start, end) into contiguous ranges of at most size records.
// The last range may be narrower.
func Plan(start, end, size int) ([]checkpoint.Range, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBatchSize, size)
	}
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: [%d, %d)", ErrInvalidRange, start, end)
	}

	ranges := make([]checkpoint.Range, 0, (end-start+size-1)/size)
	for s := start; s < end; s += size {
		ranges = append(ranges, checkpoint.Range{Start: s, End: min(s+size, end)})
	}
	return ranges, nil
}

// EndIndex returns the exclusive end of a run over a dataset of length
// records starting at start. A positive numSamples caps the run.
func EndIndex(length, start, numSamples int) (int, error) {
	if start < 0 || start > length {
		return 0, fmt.Errorf("%w: start index %d outside dataset of %d records", ErrInvalidRange, start, length)
	}
	if numSamples > 0 {
		return min(start+numSamples, length), nil
	}
	return length, nil
}
