// Package rank orders servers for a report view.
//
// Ordering is a chain of stable sorts: the first pass orders by identifier,
// and each later pass re-sorts by a coarser criterion so that the final
// order is "last criterion first, earlier criteria as tie-breakers". Since
// identifiers are unique the result does not depend on input order.
package rank

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/xmppscan/xmppscan/pkg/types"
)

// KeyKind selects a ranking.
type KeyKind int

const (
	ByIdentifier KeyKind = iota
	ByOfflineRecency
	ByReliability
	ByService
)

// Key is a ranking criterion. Service is only meaningful with ByService.
type Key struct {
	Kind    KeyKind
	Service types.ServiceKind
}

// Slug names the view built from k: "" for the identifier view, otherwise
// the suffix appended to the report prefix (without the leading underscore).
func (k Key) Slug() string {
	switch k.Kind {
	case ByOfflineRecency:
		return "by_uptime"
	case ByReliability:
		return "by_times_online"
	case ByService:
		return "by_" + k.Service.Slug()
	default:
		return ""
	}
}

// String returns the form accepted by ParseKey.
func (k Key) String() string {
	switch k.Kind {
	case ByOfflineRecency:
		return "offline-recency"
	case ByReliability:
		return "reliability"
	case ByService:
		return "service:" + k.Service.String()
	default:
		return "identifier"
	}
}

// ParseKey parses "identifier", "offline-recency", "reliability" or
// "service:category/type".
func ParseKey(s string) (Key, error) {
	switch s {
	case "", "identifier":
		return Key{Kind: ByIdentifier}, nil
	case "offline-recency":
		return Key{Kind: ByOfflineRecency}, nil
	case "reliability":
		return Key{Kind: ByReliability}, nil
	}
	if rest, ok := strings.CutPrefix(s, "service:"); ok {
		kind, err := types.ParseServiceKind(rest)
		if err != nil {
			return Key{}, fmt.Errorf("rank: %w", err)
		}
		return Key{Kind: ByService, Service: kind}, nil
	}
	return Key{}, fmt.Errorf("rank: unknown key %q", s)
}

type pass func(a, b *types.EndpointRecord) int

// Rank returns the IDs of records in the order selected by key.
func Rank(records []*types.EndpointRecord, key Key) []string {
	sorted := slices.Clone(records)
	for _, p := range passes(key) {
		slices.SortStableFunc(sorted, p)
	}
	ids := make([]string, len(sorted))
	for i, r := range sorted {
		ids[i] = r.ID
	}
	return ids
}

func passes(key Key) []pass {
	ps := []pass{byID}
	switch key.Kind {
	case ByOfflineRecency:
		ps = append(ps, byTimesOnlineDesc, byOfflineSinceDesc)
	case ByReliability:
		ps = append(ps, byReliabilityDesc)
	case ByService:
		kind := key.Service
		ps = append(ps,
			func(a, b *types.EndpointRecord) int {
				return cmp.Compare(b.UnavailableServices.Count(kind), a.UnavailableServices.Count(kind))
			},
			func(a, b *types.EndpointRecord) int {
				return cmp.Compare(b.AvailableServices.Count(kind), a.AvailableServices.Count(kind))
			},
		)
	}
	return ps
}

func byID(a, b *types.EndpointRecord) int { return strings.Compare(a.ID, b.ID) }

func byTimesOnlineDesc(a, b *types.EndpointRecord) int {
	return cmp.Compare(b.TimesQueriedOnline, a.TimesQueriedOnline)
}

// byOfflineSinceDesc puts the most recent outage first. Online servers
// (nil) rank ahead of every offline one.
func byOfflineSinceDesc(a, b *types.EndpointRecord) int {
	switch {
	case a.OfflineSince == nil && b.OfflineSince == nil:
		return 0
	case a.OfflineSince == nil:
		return -1
	case b.OfflineSince == nil:
		return 1
	}
	return b.OfflineSince.Compare(*a.OfflineSince)
}

// byReliabilityDesc compares online/total without division so equal ratios
// tie exactly. Servers never queried go last.
func byReliabilityDesc(a, b *types.EndpointRecord) int {
	aq, bq := a.TimesQueriedTotal > 0, b.TimesQueriedTotal > 0
	switch {
	case !aq && !bq:
		return 0
	case !aq:
		return 1
	case !bq:
		return -1
	}
	// a/at vs b/bt  <=>  a*bt vs b*at
	return cmp.Compare(b.TimesQueriedOnline*a.TimesQueriedTotal, a.TimesQueriedOnline*b.TimesQueriedTotal)
}
