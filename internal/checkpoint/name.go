package checkpoint

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	namePrefix = "batch_"
	nameSuffix = ".jsonl"
)

// ErrMalformedName is returned for files that look like checkpoints but
// whose index range cannot be parsed
var ErrMalformedName = errors.New("malformed checkpoint name")

var namePattern = regexp.MustCompile(`^batch_(\d+)-(\d+)\.jsonl$`)

// Range is the half-open index range [Start, End) of one batch
type Range struct {
	Start int
	End   int
}

// Len returns the number of records in the range
func (r Range) Len() int {
	return r.End - r.Start
}

// Name returns the checkpoint file name, batch_{start}-{end-1}.jsonl
func (r Range) Name() string {
	return Name(r.Start, r.End)
}

func (r Range) String() string {
	return fmt.Sprintf("[%d, %d)", r.Start, r.End)
}

// Name returns the checkpoint file name for the half-open range [start, end)
func Name(start, end int) string {
	return fmt.Sprintf("%s%d-%d%s", namePrefix, start, end-1, nameSuffix)
}

// ParseName extracts the range from a checkpoint file name. ok is false for
// names that are not checkpoints at all. Names carrying the checkpoint prefix
// and suffix that do not parse return ErrMalformedName.
func ParseName(name string) (r Range, ok bool, err error) {
	if !strings.HasPrefix(name, namePrefix) || !strings.HasSuffix(name, nameSuffix) {
		return Range{}, false, nil
	}

	m := namePattern.FindStringSubmatch(name)
	if m == nil {
		return Range{}, true, fmt.Errorf("%w: %s", ErrMalformedName, name)
	}

	start, err := strconv.Atoi(m[1])
	if err != nil {
		return Range{}, true, fmt.Errorf("%w: %s: %v", ErrMalformedName, name, err)
	}
	last, err := strconv.Atoi(m[2])
	if err != nil {
		return Range{}, true, fmt.Errorf("%w: %s: %v", ErrMalformedName, name, err)
	}
	if last < start {
		return Range{}, true, fmt.Errorf("%w: %s: end before start", ErrMalformedName, name)
	}

	return Range{Start: start, End: last + 1}, true, nil
}

// Entry is a checkpoint found in a store
type Entry struct {
	Name  string
	Range Range
}

// Sort parses names and returns the checkpoints among them ordered by start
// index. Non-checkpoint names are dropped.
func Sort(names []string) ([]Entry, error) {
	var entries []Entry
	for _, name := range names {
		r, ok, err := ParseName(name)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		entries = append(entries, Entry{Name: name, Range: r})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Range.Start != entries[j].Range.Start {
			return entries[i].Range.Start < entries[j].Range.Start
		}
		return entries[i].Range.End < entries[j].Range.End
	})
	return entries, nil
}
