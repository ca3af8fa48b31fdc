package types

import (
	"maps"
	"time"
)

// Metadata field names supplied by the server list feeds.
const (
	FieldDescription = "description"
	FieldHomepage    = "homepage"
	FieldLatitude    = "latitude"
	FieldLongitude   = "longitude"
	FieldCity        = "city"
	FieldCountry     = "country"
)

// Implementation names the server software reported by the endpoint.
type Implementation struct {
	Name    string
	Version string
}

// EndpointRecord is everything known about one XMPP server in a run.
type EndpointRecord struct {
	// ID is the server address. It is unique within a run.
	ID string

	// Available is the result of the current scan.
	Available bool

	AvailableServices   Services
	UnavailableServices Services

	// Metadata holds descriptive fields from the feeds. Nil when no feed
	// listed the server.
	Metadata map[string]string

	Implementation *Implementation

	// IPv6Ready is set only when the discoverer checked IPv6.
	IPv6Ready *bool

	// Uptime is the server-reported uptime, when the discoverer obtained one.
	Uptime *time.Duration

	// OfflineSince is nil while the server is online.
	OfflineSince *time.Time

	History            Series
	TimesQueriedOnline int
	TimesQueriedTotal  int
}

// Offline reports whether the record is marked offline.
func (r *EndpointRecord) Offline() bool {
	return r.OfflineSince != nil
}

// Reliability returns TimesQueriedOnline/TimesQueriedTotal. ok is false when
// the server has never been queried.
func (r *EndpointRecord) Reliability() (ratio float64, ok bool) {
	if r.TimesQueriedTotal <= 0 {
		return 0, false
	}
	return float64(r.TimesQueriedOnline) / float64(r.TimesQueriedTotal), true
}

// Percent returns the integer-truncated reliability percentage.
func (r *EndpointRecord) Percent() int {
	if r.TimesQueriedTotal <= 0 {
		return 0
	}
	return 100 * r.TimesQueriedOnline / r.TimesQueriedTotal
}

// Meta returns a metadata field, or "" when absent.
func (r *EndpointRecord) Meta(field string) string {
	return r.Metadata[field]
}

// HasMeta reports whether a non-empty metadata field is present.
func (r *EndpointRecord) HasMeta(field string) bool {
	return r.Metadata[field] != ""
}

// Clone returns a deep copy of r.
func (r *EndpointRecord) Clone() *EndpointRecord {
	out := *r
	out.AvailableServices = r.AvailableServices.Clone()
	out.UnavailableServices = r.UnavailableServices.Clone()
	out.Metadata = maps.Clone(r.Metadata)
	out.History = r.History.Clone()
	if r.Implementation != nil {
		impl := *r.Implementation
		out.Implementation = &impl
	}
	if r.IPv6Ready != nil {
		v := *r.IPv6Ready
		out.IPv6Ready = &v
	}
	if r.Uptime != nil {
		v := *r.Uptime
		out.Uptime = &v
	}
	if r.OfflineSince != nil {
		v := *r.OfflineSince
		out.OfflineSince = &v
	}
	return &out
}

// Meets reports whether the record passes a minimum-reliability filter.
// A threshold of zero or less admits everything; otherwise the reliability
// must be strictly greater than min, and a never-queried record fails.
func (r *EndpointRecord) Meets(min float64) bool {
	if min <= 0 {
		return true
	}
	ratio, ok := r.Reliability()
	return ok && ratio > min
}
