package dataset

import (
	"context"
	"fmt"
	"time"

	"codeberg.org/snonux/dsxlate/internal/record"
)

// Provider gives ordered, index-based access to an immutable dataset
type Provider interface {
	// Len returns the number of records
	Len(ctx context.Context) (int, error)
	// Select returns the records of the half-open range [start, end) in
	// dataset order
	Select(ctx context.Context, start, end int) ([]*record.Record, error)
}

// Provider names
const (
	ProviderHub    = "hub"
	ProviderJSONL  = "jsonl"
	ProviderSQLite = "sqlite"
)

// Config selects and configures a provider
type Config struct {
	Provider string
	Name     string // Hub dataset id, e.g. TheFinAI/Fino1_Reasoning_Path_FinQA
	Config   string // Hub dataset config
	Split    string // Hub dataset split
	Path     string // JSONL file or SQLite database
	Table    string // SQLite table
	Token    string // optional Hub token for gated datasets
	BaseURL  string // datasets-server override
	Timeout  time.Duration
}

// New creates the provider selected by cfg.Provider
func New(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case ProviderHub, "":
		return NewHubProvider(HubConfig{
			Dataset: cfg.Name,
			Config:  cfg.Config,
			Split:   cfg.Split,
			Token:   cfg.Token,
			BaseURL: cfg.BaseURL,
			Timeout: cfg.Timeout,
		})
	case ProviderJSONL:
		return NewJSONLProvider(cfg.Path)
	case ProviderSQLite:
		return NewSQLiteProvider(cfg.Path, cfg.Table)
	default:
		return nil, fmt.Errorf("unsupported dataset provider: %s", cfg.Provider)
	}
}

func checkRange(start, end, length int) error {
	if start < 0 || end < start || end > length {
		return fmt.Errorf("range [%d, %d) out of bounds for %d records", start, end, length)
	}
	return nil
}
