// Package discovery reads the output of the external discoverer, the process
// that walks each server's service discovery tree, and turns it into the
// per-run EndpointRecords the rest of the pipeline works on.
package discovery

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/xmppscan/xmppscan/pkg/types"
)

// Component is one discovered component as written by the discoverer.
type Component struct {
	JID  string `json:"jid"`
	Node string `json:"node,omitempty"`
}

// Version is the server software reported through jabber:iq:version.
type Version struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Result is the discoverer's verdict for one server.
type Result struct {
	Available           bool                              `json:"available"`
	AvailableServices   map[types.ServiceKind][]Component `json:"available_services"`
	UnavailableServices map[types.ServiceKind][]Component `json:"unavailable_services"`
	Version             *Version                          `json:"version,omitempty"`
	IPv6Ready           *bool                             `json:"ipv6_ready,omitempty"`
	// Uptime is the server uptime in seconds, when it answered a last
	// activity query.
	Uptime *int64 `json:"uptime,omitempty"`
}

// Load reads the discoverer's JSON output: an object keyed by server address.
func Load(path string) (map[string]Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("discovery: read %q: %w", path, err)
	}
	var out map[string]Result
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("discovery: decode %q: %w", path, err)
	}
	return out, nil
}

// Assemble builds one record per target. A target the discoverer has no
// result for is recorded as unavailable with no services. Results for
// servers outside the target list are ignored. metadata is attached as-is
// (copied) when present.
func Assemble(targets []string, results map[string]Result, metadata map[string]map[string]string) []*types.EndpointRecord {
	out := make([]*types.EndpointRecord, 0, len(targets))
	for _, id := range targets {
		rec := &types.EndpointRecord{
			ID:                  id,
			AvailableServices:   types.Services{},
			UnavailableServices: types.Services{},
		}
		if res, ok := results[id]; ok {
			rec.Available = res.Available
			fill(rec.AvailableServices, id, res.AvailableServices, true)
			fill(rec.UnavailableServices, id, res.UnavailableServices, false)
			if res.Version != nil && res.Version.Name != "" {
				rec.Implementation = &types.Implementation{Name: res.Version.Name, Version: res.Version.Version}
			}
			if res.IPv6Ready != nil {
				v := *res.IPv6Ready
				rec.IPv6Ready = &v
			}
			if res.Uptime != nil && *res.Uptime >= 0 {
				d := time.Duration(*res.Uptime) * time.Second
				rec.Uptime = &d
			}
		} else {
			slog.Debug("discovery: no result for target, marking unavailable", "endpoint", id)
		}
		if md, ok := metadata[id]; ok && len(md) > 0 {
			rec.Metadata = make(map[string]string, len(md))
			for k, v := range md {
				rec.Metadata[k] = v
			}
		}
		out = append(out, rec)
	}

	if extra := len(results) - countKnown(targets, results); extra > 0 {
		slog.Debug("discovery: ignoring results for servers outside the target list", "count", extra)
	}
	return out
}

// fill copies discovered components into dst, stamping their availability
// from the bucket they came from. Components without an address are dropped.
func fill(dst types.Services, server string, src map[types.ServiceKind][]Component, available bool) {
	for kind, comps := range src {
		for _, c := range comps {
			if c.JID == "" {
				slog.Warn("discovery: dropping component without address",
					"endpoint", server, "kind", kind.String())
				continue
			}
			dst.Add(kind, types.Component{ID: c.JID, Node: c.Node, Available: available})
		}
	}
}

func countKnown(targets []string, results map[string]Result) int {
	var n int
	for _, id := range targets {
		if _, ok := results[id]; ok {
			n++
		}
	}
	return n
}
