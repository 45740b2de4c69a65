package dataset

import (
	"context"
	"fmt"
	"os"
	"sync"

	"codeberg.org/snonux/dsxlate/internal/record"
)

// JSONLProvider serves records from a JSON Lines file. The file is read
// once, on first access.
type JSONLProvider struct {
	path string

	once    sync.Once
	records []*record.Record
	err     error
}

// NewJSONLProvider creates a provider for the file at path
func NewJSONLProvider(path string) (*JSONLProvider, error) {
	if path == "" {
		return nil, fmt.Errorf("jsonl dataset requires a path")
	}
	return &JSONLProvider{path: path}, nil
}

func (p *JSONLProvider) load() error {
	p.once.Do(func() {
		f, err := os.Open(p.path)
		if err != nil {
			p.err = fmt.Errorf("failed to open dataset: %w", err)
			return
		}
		defer func() { _ = f.Close() }()

		p.records, err = record.ReadLines(f)
		if err != nil {
			p.err = fmt.Errorf("failed to read dataset %s: %w", p.path, err)
		}
	})
	return p.err
}

// Len returns the number of records in the file
func (p *JSONLProvider) Len(ctx context.Context) (int, error) {
	if err := p.load(); err != nil {
		return 0, err
	}
	return len(p.records), nil
}

// Select returns the records of [start, end)
func (p *JSONLProvider) Select(ctx context.Context, start, end int) ([]*record.Record, error) {
	if err := p.load(); err != nil {
		return nil, err
	}
	if err := checkRange(start, end, len(p.records)); err != nil {
		return nil, err
	}

	out := make([]*record.Record, 0, end-start)
	for _, rec := range p.records[start:end] {
		out = append(out, rec.Clone())
	}
	return out, nil
}
