package export

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/xmppscan/xmppscan/pkg/types"
	"github.com/xmppscan/xmppscan/scanner/internal/fileutil"
)

// Supported document formats.
const (
	FormatXML  = "xml"
	FormatJSON = "json"
)

// Build assembles the document for the records passing minReliability,
// sorted by JID.
func Build(records []*types.EndpointRecord, minReliability float64, generatedAt time.Time) *Document {
	kept := lo.Filter(records, func(r *types.EndpointRecord, _ int) bool {
		return r.Meets(minReliability)
	})
	slices.SortFunc(kept, func(a, b *types.EndpointRecord) int { return strings.Compare(a.ID, b.ID) })

	return &Document{
		GeneratedAt: generatedAt.UTC().Format(time.RFC3339),
		Servers:     lo.Map(kept, func(r *types.EndpointRecord, _ int) Server { return toServer(r) }),
	}
}

func toServer(r *types.EndpointRecord) Server {
	s := Server{
		JID:                 r.ID,
		Available:           r.Available,
		TimesOnline:         r.TimesQueriedOnline,
		TimesQueried:        r.TimesQueriedTotal,
		IPv6Ready:           r.IPv6Ready,
		AvailableServices:   toServices(r.AvailableServices),
		UnavailableServices: toServices(r.UnavailableServices),
	}
	if r.OfflineSince != nil {
		s.OfflineSince = r.OfflineSince.UTC().Format(time.RFC3339)
	}
	if r.Implementation != nil {
		s.Implementation = &Implementation{Name: r.Implementation.Name, Version: r.Implementation.Version}
	}
	names := lo.Keys(r.Metadata)
	slices.Sort(names)
	for _, n := range names {
		s.About = append(s.About, Field{Name: n, Value: r.Metadata[n]})
	}
	return s
}

func toServices(svcs types.Services) []Service {
	out := []Service{}
	for _, kind := range svcs.Kinds() {
		out = append(out, Service{
			Category: kind.Category,
			Type:     kind.Type,
			Components: lo.Map(svcs.Sorted(kind), func(c types.Component, _ int) Component {
				return Component{JID: c.ID, Node: c.Node}
			}),
		})
	}
	return out
}

// Encode serialises doc in format ("" means xml).
func Encode(doc *Document, format string) ([]byte, error) {
	switch format {
	case "", FormatXML:
		var buf bytes.Buffer
		buf.WriteString(xml.Header)
		enc := xml.NewEncoder(&buf)
		enc.Indent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("export: encode xml: %w", err)
		}
		buf.WriteByte('\n')
		return buf.Bytes(), nil
	case FormatJSON:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("export: encode json: %w", err)
		}
		return append(data, '\n'), nil
	default:
		return nil, fmt.Errorf("export: unknown format %q", format)
	}
}

// Write encodes doc and publishes it at path, with a gzip companion when
// compress is set.
func Write(path, format string, doc *Document, compress bool) error {
	data, err := Encode(doc, format)
	if err != nil {
		return err
	}
	if err := fileutil.Publish(path, data, compress); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}
