// Package reconcile merges the server descriptions gathered from several
// independent feeds into one canonical metadata map per server, and builds
// the list of servers the run covers.
//
// Merge is pure and deterministic for a given record order. Targets is the
// only place a run can fail for lack of servers: an empty list aborts the
// run before any state is touched.
package reconcile
