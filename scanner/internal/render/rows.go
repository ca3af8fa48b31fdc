package render

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/xmppscan/xmppscan/pkg/types"
)

// Rows holds the rendered cells of every server row for one run. It is
// built once, read concurrently by the views and dropped when the run ends.
type Rows struct {
	cells map[string]template.HTML
}

// Len returns the number of rows held.
func (r *Rows) Len() int { return len(r.cells) }

func (r *Rows) get(id string) (template.HTML, bool) {
	if r == nil {
		return "", false
	}
	c, ok := r.cells[id]
	return c, ok
}

type implCell struct {
	Icon     string
	Title    string
	Homepage string
}

type serviceCell struct {
	Slug        string
	Present     bool
	State       string // "available" or "unavailable"
	Icon        string
	Available   []string
	Unavailable []string
}

type rowData struct {
	ID          string
	Display     string
	Homepage    string
	Impl        implCell
	Location    *location
	IPv6        bool
	Description string
	Services    []serviceCell
	Uptime      string
	Reliability string
}

// BuildRows renders the cells of every record.
func (r *Renderer) BuildRows(records []*types.EndpointRecord) (*Rows, error) {
	rows := &Rows{cells: make(map[string]template.HTML, len(records))}
	var buf bytes.Buffer
	for _, rec := range records {
		buf.Reset()
		if err := r.tmpl.ExecuteTemplate(&buf, "cells", r.rowData(rec)); err != nil {
			return nil, fmt.Errorf("render: row %q: %w", rec.ID, err)
		}
		// Produced by the escaping template above.
		rows.cells[rec.ID] = template.HTML(buf.String())
	}
	return rows, nil
}

func (r *Renderer) rowData(rec *types.EndpointRecord) rowData {
	d := rowData{
		ID:          rec.ID,
		Display:     shrink(rec.ID, r.opts.ShrinkNamesTo),
		Homepage:    rec.Meta(types.FieldHomepage),
		Location:    locate(rec),
		IPv6:        rec.IPv6Ready != nil && *rec.IPv6Ready,
		Description: rec.Meta(types.FieldDescription),
		Reliability: formatReliability(rec),
	}

	info := r.opts.Software.Resolve(rec.Implementation)
	d.Impl = implCell{Icon: r.opts.Assets.implementationIcon(info.Name), Homepage: info.Homepage}
	if rec.Implementation != nil {
		d.Impl.Title = rec.Implementation.Name + " - " + rec.Implementation.Version
	}

	for _, kind := range r.opts.Columns {
		cell := serviceCell{Slug: kind.Slug()}
		avail, unavail := rec.AvailableServices.Has(kind), rec.UnavailableServices.Has(kind)
		if avail || unavail {
			cell.Present = true
			cell.State = "unavailable"
			if avail {
				cell.State = "available"
			}
			cell.Icon = r.opts.Assets.serviceIcon(kind, avail)
			cell.Available = labels(rec.AvailableServices.Sorted(kind))
			cell.Unavailable = labels(rec.UnavailableServices.Sorted(kind))
		}
		d.Services = append(d.Services, cell)
	}

	switch {
	case rec.OfflineSince != nil:
		d.Uptime = formatOfflineSince(*rec.OfflineSince)
	case rec.Uptime != nil:
		d.Uptime = formatUptime(*rec.Uptime)
	}
	return d
}

func labels(comps []types.Component) []string {
	out := make([]string, len(comps))
	for i, c := range comps {
		out[i] = c.Label()
	}
	return out
}
