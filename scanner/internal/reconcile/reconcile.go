package reconcile

import (
	"errors"
	"fmt"
	"slices"
	"unicode/utf8"

	"github.com/samber/lo"

	"github.com/xmppscan/xmppscan/pkg/types"
	"github.com/xmppscan/xmppscan/scanner/internal/feeds"
)

var (
	// ErrNoTargets means the merged target list is empty, which points at a
	// configuration problem upstream rather than at the feeds themselves.
	ErrNoTargets = errors.New("reconcile: the list of servers to check is empty")

	// ErrReservedIdentifier is returned when a feed lists a field name as a
	// server address.
	ErrReservedIdentifier = errors.New("reconcile: field name used as server address")
)

// reserved are field names that can never be server addresses.
var reserved = []string{types.FieldDescription, types.FieldHomepage}

// Merge folds the records of every feed into one metadata map per server.
//
// When several feeds supply the same field for a server, the longer value
// wins and ties keep the value seen first. This favours descriptive text
// over truncated duplicates; it is a heuristic, not a check that the values
// agree. Records are processed in slice order.
func Merge(records []feeds.Record) (map[string]map[string]string, error) {
	out := make(map[string]map[string]string)
	for _, rec := range records {
		if slices.Contains(reserved, rec.ID) {
			return nil, fmt.Errorf("%w: %q in feed %q", ErrReservedIdentifier, rec.ID, rec.Source)
		}
		merged, ok := out[rec.ID]
		if !ok {
			merged = make(map[string]string, len(rec.Fields))
			out[rec.ID] = merged
		}
		for field, value := range rec.Fields {
			if value == "" {
				continue
			}
			prev, ok := merged[field]
			if !ok || utf8.RuneCountInString(prev) < utf8.RuneCountInString(value) {
				merged[field] = value
			}
		}
	}
	return out, nil
}

// Targets returns the sorted union of the servers named by the feeds and the
// static list. It fails with ErrNoTargets when the union is empty.
func Targets(metadata map[string]map[string]string, static []string) ([]string, error) {
	all := append(lo.Keys(metadata), static...)
	all = lo.Filter(lo.Uniq(all), func(id string, _ int) bool { return id != "" })
	if len(all) == 0 {
		return nil, ErrNoTargets
	}
	for _, id := range all {
		if slices.Contains(reserved, id) {
			return nil, fmt.Errorf("%w: %q", ErrReservedIdentifier, id)
		}
	}
	slices.Sort(all)
	return all, nil
}
