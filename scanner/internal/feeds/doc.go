// Package feeds parses the public server list documents that name the
// servers to scan and describe them (homepage, description, location).
//
// Each supported format has its own Parser, built by New(config.Feed):
// xml (xmpp.org services.xml layout, read with xmlquery), html (tables with
// data-jid rows, read with goquery) and json. Parsers only decode; merging
// duplicate entries across feeds is the reconcile package's job.
//
// ReadTargets reads the optional static server list file.
package feeds
