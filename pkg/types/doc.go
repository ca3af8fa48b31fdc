// Package types defines the shared data model of the scanner: one
// EndpointRecord per XMPP server, its two service buckets (available and
// unavailable components keyed by ServiceKind), optional feed metadata and
// the availability history maintained across runs.
//
// The history fields (OfflineSince, History, TimesQueriedOnline,
// TimesQueriedTotal) are owned by the history package; discovery and feed
// code never set them.
package types
