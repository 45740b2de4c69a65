package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"codeberg.org/snonux/dsxlate/internal/record"
)

const (
	// DefaultDatasetsServerURL is the public Hugging Face datasets-server
	DefaultDatasetsServerURL = "https://datasets-server.huggingface.co"
	// hubPageSize is the largest page the /rows endpoint serves
	hubPageSize = 100
)

// HubConfig configures access to a Hugging Face dataset
type HubConfig struct {
	Dataset string
	Config  string // default "default"
	Split   string // default "train"
	Token   string
	BaseURL string
	Timeout time.Duration
}

// HubProvider reads rows of a Hugging Face dataset split through the
// datasets-server API
type HubProvider struct {
	client  *resty.Client
	dataset string
	config  string
	split   string

	length int
}

type hubErrorResponse struct {
	Error string `json:"error"`
}

type hubSizeResponse struct {
	Size struct {
		Splits []struct {
			Dataset string `json:"dataset"`
			Config  string `json:"config"`
			Split   string `json:"split"`
			NumRows int    `json:"num_rows"`
		} `json:"splits"`
	} `json:"size"`
}

type hubRowsResponse struct {
	Rows []struct {
		RowIdx int             `json:"row_idx"`
		Row    json.RawMessage `json:"row"`
	} `json:"rows"`
	NumRowsTotal int `json:"num_rows_total"`
}

// NewHubProvider creates a provider for a Hub dataset split
func NewHubProvider(cfg HubConfig) (*HubProvider, error) {
	if cfg.Dataset == "" {
		return nil, fmt.Errorf("hub dataset requires a dataset name")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultDatasetsServerURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(3).
		SetRetryWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			code := r.StatusCode()
			return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
		})
	if cfg.Token != "" {
		client.SetAuthToken(cfg.Token)
	}

	p := &HubProvider{
		client:  client,
		dataset: cfg.Dataset,
		config:  cfg.Config,
		split:   cfg.Split,
		length:  -1,
	}
	if p.config == "" {
		p.config = "default"
	}
	if p.split == "" {
		p.split = "train"
	}
	return p, nil
}

// Len returns the number of rows of the split
func (p *HubProvider) Len(ctx context.Context) (int, error) {
	if p.length >= 0 {
		return p.length, nil
	}

	var resp hubSizeResponse
	var apiErr hubErrorResponse
	httpResp, err := p.client.R().
		SetContext(ctx).
		SetQueryParam("dataset", p.dataset).
		SetResult(&resp).
		SetError(&apiErr).
		Get("/size")
	if err != nil {
		return 0, fmt.Errorf("failed to fetch dataset size: %w", err)
	}
	if httpResp.IsError() {
		return 0, hubError("size", httpResp.StatusCode(), apiErr.Error)
	}

	for _, s := range resp.Size.Splits {
		if s.Config == p.config && s.Split == p.split {
			p.length = s.NumRows
			return p.length, nil
		}
	}
	return 0, fmt.Errorf("split %s/%s not found in dataset %s", p.config, p.split, p.dataset)
}

// Select fetches the rows of [start, end) page by page
func (p *HubProvider) Select(ctx context.Context, start, end int) ([]*record.Record, error) {
	if start < 0 || end < start {
		return nil, fmt.Errorf("invalid range [%d, %d)", start, end)
	}

	out := make([]*record.Record, 0, end-start)
	for offset := start; offset < end; offset += hubPageSize {
		length := min(hubPageSize, end-offset)

		rows, err := p.fetchRows(ctx, offset, length)
		if err != nil {
			return nil, err
		}
		if len(rows) != length {
			return nil, fmt.Errorf("range [%d, %d) out of bounds: got %d rows at offset %d", start, end, len(rows), offset)
		}
		out = append(out, rows...)
	}
	return out, nil
}

func (p *HubProvider) fetchRows(ctx context.Context, offset, length int) ([]*record.Record, error) {
	var resp hubRowsResponse
	var apiErr hubErrorResponse
	httpResp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"dataset": p.dataset,
			"config":  p.config,
			"split":   p.split,
			"offset":  strconv.Itoa(offset),
			"length":  strconv.Itoa(length),
		}).
		SetResult(&resp).
		SetError(&apiErr).
		Get("/rows")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rows: %w", err)
	}
	if httpResp.IsError() {
		return nil, hubError("rows", httpResp.StatusCode(), apiErr.Error)
	}

	records := make([]*record.Record, 0, len(resp.Rows))
	for i, row := range resp.Rows {
		if row.RowIdx != offset+i {
			return nil, fmt.Errorf("unexpected row index %d, want %d", row.RowIdx, offset+i)
		}
		rec, err := record.Parse(row.Row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row.RowIdx, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func hubError(endpoint string, status int, msg string) error {
	if msg != "" {
		return fmt.Errorf("datasets-server %s error (status %d): %s", endpoint, status, msg)
	}
	return fmt.Errorf("datasets-server %s error: status %d", endpoint, status)
}
