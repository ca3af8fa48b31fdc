// Package history maintains the longitudinal availability record of every
// scanned server.
//
// engine.go provides the pure Update function that folds one scan into the
// previous snapshot: it extends each server's sample series, tracks the
// instant a server went offline, prunes samples outside the retention window
// and recomputes the online/total counters from what remains. Update takes
// now explicitly so tests control the clock.
//
// store.go persists snapshots to a single file. The encoding is CBOR with
// deterministic options, so saving the same records twice produces the same
// bytes. A missing or undecodable snapshot is never fatal: the run proceeds
// as a first run.
package history
