package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"codeberg.org/snonux/dsxlate/internal/record"
)

// MockEngine is a scripted translation engine. Errors are consumed in order,
// one per call; once exhausted, calls succeed.
type MockEngine struct {
	// Errors is returned call by call before any success
	Errors []error
	// AlwaysErr, when set, is returned on every call
	AlwaysErr error
	// Reply builds the successful answer; default is "translated:" plus the
	// text after the last blank line of the prompt's original section
	Reply func(prompt string) string

	mu    sync.Mutex
	Calls []string
}

// Generate records the call and returns the scripted result
func (m *MockEngine) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, prompt)

	if m.AlwaysErr != nil {
		return "", m.AlwaysErr
	}
	if len(m.Errors) > 0 {
		err := m.Errors[0]
		m.Errors = m.Errors[1:]
		if err != nil {
			return "", err
		}
	}

	if m.Reply != nil {
		return m.Reply(prompt), nil
	}
	return "translated:" + ExtractOriginal(prompt), nil
}

// CallCount returns the number of Generate calls
func (m *MockEngine) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// ExtractOriginal pulls the original text out of a translation prompt
func ExtractOriginal(prompt string) string {
	const marker = "Text:\n"
	start := strings.Index(prompt, marker)
	if start < 0 {
		return prompt
	}
	rest := prompt[start+len(marker):]
	if end := strings.LastIndex(rest, "\n\nTranslated "); end >= 0 {
		return rest[:end]
	}
	return rest
}

// MemoryDataset is an in-memory dataset provider
type MemoryDataset struct {
	Records []*record.Record

	mu      sync.Mutex
	Selects [][2]int
}

// Len returns the number of records
func (d *MemoryDataset) Len(ctx context.Context) (int, error) {
	return len(d.Records), nil
}

// Select returns the records of [start, end)
func (d *MemoryDataset) Select(ctx context.Context, start, end int) ([]*record.Record, error) {
	d.mu.Lock()
	d.Selects = append(d.Selects, [2]int{start, end})
	d.mu.Unlock()

	if start < 0 || end > len(d.Records) || start > end {
		return nil, fmt.Errorf("range [%d, %d) out of bounds for %d records", start, end, len(d.Records))
	}
	out := make([]*record.Record, end-start)
	copy(out, d.Records[start:end])
	return out, nil
}

// SelectCount returns the number of Select calls
func (d *MemoryDataset) SelectCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Selects)
}
