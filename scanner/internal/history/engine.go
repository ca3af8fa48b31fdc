package history

import (
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/xmppscan/xmppscan/pkg/types"
)

// Update folds the current scan into prior and returns the new record set,
// sorted by ID. prior == nil means no history exists at all (first run).
//
// Neither current nor prior is modified, and the result shares no memory
// with them. Servers that appear only in prior are dropped.
func Update(current []*types.EndpointRecord, prior *Snapshot, now time.Time, window time.Duration) []*types.EndpointRecord {
	cutoff := now.Add(-window)
	out := make([]*types.EndpointRecord, 0, len(current))
	seen := make(map[string]struct{}, len(current))

	for _, cur := range current {
		rec := cur.Clone()
		seen[rec.ID] = struct{}{}

		var old *types.EndpointRecord
		if prior != nil {
			old, _ = prior.Get(rec.ID)
		}

		switch {
		case old == nil:
			rec.History = types.Series{}.Set(now, rec.Available)
			if rec.Available {
				rec.OfflineSince = nil
			} else {
				rec.OfflineSince = timePtr(now)
			}

		case rec.Available:
			rec.OfflineSince = nil
			rec.History = old.History.Clone().Set(now, true)

		default:
			if old.OfflineSince != nil {
				rec.OfflineSince = timePtr(*old.OfflineSince)
			} else {
				rec.OfflineSince = timePtr(now)
			}
			rec.History = old.History.Clone().Set(now, false)
			carryForward(rec, old)
		}

		rec.History = rec.History.PruneOlderThan(cutoff)
		rec.TimesQueriedOnline = rec.History.CountOnline()
		rec.TimesQueriedTotal = rec.History.Len()
		out = append(out, rec)
	}

	if prior != nil {
		var dropped int
		for _, old := range prior.Endpoints {
			if _, ok := seen[old.ID]; !ok {
				dropped++
			}
		}
		if dropped > 0 {
			slog.Debug("history: dropping servers no longer targeted", "count", dropped)
		}
	}

	slices.SortFunc(out, func(a, b *types.EndpointRecord) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// carryForward fills what an unreachable server could not report from its
// last known record. Availability is never carried.
func carryForward(rec, old *types.EndpointRecord) {
	if len(rec.AvailableServices) == 0 && len(rec.UnavailableServices) == 0 {
		rec.AvailableServices = old.AvailableServices.Clone()
		rec.UnavailableServices = old.UnavailableServices.Clone()
	}
	if rec.Implementation == nil && old.Implementation != nil {
		impl := *old.Implementation
		rec.Implementation = &impl
	}
	if rec.IPv6Ready == nil && old.IPv6Ready != nil {
		v := *old.IPv6Ready
		rec.IPv6Ready = &v
	}
	if len(rec.Metadata) == 0 && len(old.Metadata) > 0 {
		rec.Metadata = make(map[string]string, len(old.Metadata))
		for k, v := range old.Metadata {
			rec.Metadata[k] = v
		}
	}
}

func timePtr(t time.Time) *time.Time { return &t }
