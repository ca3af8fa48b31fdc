// Package render writes the static HTML report views.
//
// Every view is the same table of servers in a different order: by name, by
// each displayed service column, by offline recency and by reliability.
// Row cells do not depend on the ordering, so they are rendered once per run
// into a Rows memo (BuildRows) and shared read-only by all views, which
// RenderAll writes in parallel. A failed view is reported in its ViewResult
// and never stops the others.
//
// Files are written through a temporary sibling and renamed into place. With
// compression enabled a .gz companion is written next to each view.
package render
