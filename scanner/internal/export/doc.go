// Package export publishes the machine-readable server list: an XML (or
// JSON) document with one entry per server that passes the export
// reliability filter, and an optional SQLite database holding the full
// record set for ad-hoc queries.
package export
