package checkpoint

import (
	"errors"
	"testing"
)

func TestName(t *testing.T) {
	tests := []struct {
		start, end int
		want       string
	}{
		{0, 100, "batch_0-99.jsonl"},
		{200, 250, "batch_200-249.jsonl"},
		{4000, 4100, "batch_4000-4099.jsonl"},
		{7, 8, "batch_7-7.jsonl"},
	}

	for _, tt := range tests {
		if got := Name(tt.start, tt.end); got != tt.want {
			t.Errorf("Name(%d, %d) = %s, want %s", tt.start, tt.end, got, tt.want)
		}
		if got := (Range{Start: tt.start, End: tt.end}).Name(); got != tt.want {
			t.Errorf("Range.Name() = %s, want %s", got, tt.want)
		}
	}
}

func TestParseName(t *testing.T) {
	tests := []struct {
		name      string
		want      Range
		wantOK    bool
		wantError bool
	}{
		{"batch_0-99.jsonl", Range{0, 100}, true, false},
		{"batch_4000-4099.jsonl", Range{4000, 4100}, true, false},
		{"batch_7-7.jsonl", Range{7, 8}, true, false},
		{"README.md", Range{}, false, false},
		{"final.jsonl", Range{}, false, false},
		{".batch_0-99.jsonl.123.tmp", Range{}, false, false},
		{"batch_0-99.json", Range{}, false, false},
		{"batch_abc-99.jsonl", Range{}, true, true},
		{"batch_0_99.jsonl", Range{}, true, true},
		{"batch_-1-99.jsonl", Range{}, true, true},
		{"batch_100-99.jsonl", Range{}, true, true},
		{"batch_.jsonl", Range{}, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := ParseName(tt.name)
			if ok != tt.wantOK {
				t.Errorf("ok = %v, want %v", ok, tt.wantOK)
			}
			if tt.wantError {
				if !errors.Is(err, ErrMalformedName) {
					t.Errorf("Expected ErrMalformedName, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSort_Numeric(t *testing.T) {
	names := []string{
		"batch_4000-4099.jsonl",
		"notes.txt",
		"batch_100-199.jsonl",
		"batch_0-99.jsonl",
	}

	entries, err := Sort(names)
	if err != nil {
		t.Fatalf("Sort failed: %v", err)
	}

	want := []string{"batch_0-99.jsonl", "batch_100-199.jsonl", "batch_4000-4099.jsonl"}
	if len(entries) != len(want) {
		t.Fatalf("Expected %d entries, got %d", len(want), len(entries))
	}
	for i, e := range entries {
		if e.Name != want[i] {
			t.Errorf("entries[%d] = %s, want %s", i, e.Name, want[i])
		}
	}
}

func TestSort_MalformedIsFatal(t *testing.T) {
	_, err := Sort([]string{"batch_0-99.jsonl", "batch_x-y.jsonl"})
	if !errors.Is(err, ErrMalformedName) {
		t.Errorf("Expected ErrMalformedName, got %v", err)
	}
}
