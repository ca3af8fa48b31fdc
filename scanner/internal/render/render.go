package render

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xmppscan/xmppscan/pkg/types"
	"github.com/xmppscan/xmppscan/scanner/internal/fileutil"
	"github.com/xmppscan/xmppscan/scanner/internal/rank"
	"github.com/xmppscan/xmppscan/scanner/internal/software"
)

// DefaultHeaderEvery is the number of data rows between repeated headers.
const DefaultHeaderEvery = 10

// parallelViews bounds the number of views rendered at once.
const parallelViews = 4

//go:embed templates/*.tmpl
var templateFS embed.FS

// Options configures a Renderer.
type Options struct {
	Dir            string
	Prefix         string
	Columns        []types.ServiceKind
	HeaderEvery    int
	MinReliability float64 // 0 disables the filter
	ShrinkNamesTo  int
	Compress       bool
	Assets         AssetSet
	Software       *software.Table
	Version        string
}

// ViewResult is the outcome of rendering one view.
type ViewResult struct {
	Key  rank.Key
	Path string
	Err  error
}

// Renderer writes report views.
type Renderer struct {
	opts Options
	tmpl *template.Template
}

// New returns a Renderer for opts.
func New(opts Options) (*Renderer, error) {
	if opts.Prefix == "" {
		return nil, fmt.Errorf("render: empty file prefix")
	}
	if opts.HeaderEvery <= 0 {
		opts.HeaderEvery = DefaultHeaderEvery
	}
	if opts.Software == nil {
		opts.Software = software.Default()
	}
	if opts.Assets == nil {
		opts.Assets = AssetSet{}
	}
	tmpl, err := template.ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("render: parse templates: %w", err)
	}
	return &Renderer{opts: opts, tmpl: tmpl}, nil
}

// Views returns the views produced for columns: by identifier, one per
// column, by offline recency and by reliability.
func Views(columns []types.ServiceKind) []rank.Key {
	keys := make([]rank.Key, 0, len(columns)+3)
	keys = append(keys, rank.Key{Kind: rank.ByIdentifier})
	for _, c := range columns {
		keys = append(keys, rank.Key{Kind: rank.ByService, Service: c})
	}
	return append(keys,
		rank.Key{Kind: rank.ByOfflineRecency},
		rank.Key{Kind: rank.ByReliability},
	)
}

// Views returns the views this renderer produces.
func (r *Renderer) Views() []rank.Key { return Views(r.opts.Columns) }

// FileName returns the base name of the view file for key.
func (r *Renderer) FileName(key rank.Key) string {
	if slug := key.Slug(); slug != "" {
		return r.opts.Prefix + "_" + slug + ".html"
	}
	return r.opts.Prefix + ".html"
}

// Path returns the location of the view file for key.
func (r *Renderer) Path(key rank.Key) string {
	return filepath.Join(r.opts.Dir, r.FileName(key))
}

type headerCell struct {
	Class       string
	Href        string
	Title       string
	Description string
	Sorted      bool
	Column      bool // a service column
}

type line struct {
	Header bool
	Class  string
	Cells  template.HTML
}

type pageData struct {
	SortCSS   template.CSS
	Header    []headerCell
	Lines     []line
	Generated string
	Version   string
}

// Render writes the view for key and returns its path. rows must hold every
// record; a nil rows is built on the spot.
func (r *Renderer) Render(key rank.Key, records []*types.EndpointRecord, rows *Rows, generatedAt time.Time) (string, error) {
	path := r.Path(key)
	data, err := r.page(key, records, rows, generatedAt)
	if err != nil {
		return path, err
	}
	if err := fileutil.Publish(path, data, r.opts.Compress); err != nil {
		return path, fmt.Errorf("render: %w", err)
	}
	slog.Debug("render: view written", "view", key.String(), "path", path, "compressed", r.opts.Compress)
	return path, nil
}

func (r *Renderer) page(key rank.Key, records []*types.EndpointRecord, rows *Rows, generatedAt time.Time) ([]byte, error) {
	if rows == nil {
		var err error
		if rows, err = r.BuildRows(records); err != nil {
			return nil, err
		}
	}

	byID := make(map[string]*types.EndpointRecord, len(records))
	kept := make([]*types.EndpointRecord, 0, len(records))
	for _, rec := range records {
		if rec.Meets(r.opts.MinReliability) {
			kept = append(kept, rec)
			byID[rec.ID] = rec
		}
	}
	order := rank.Rank(kept, key)

	every := r.opts.HeaderEvery
	lines := make([]line, 0, len(order)+len(order)/every+2)
	for i, id := range order {
		if i%every == 0 {
			lines = append(lines, line{Header: true})
		}
		cells, ok := rows.get(id)
		if !ok {
			return nil, fmt.Errorf("render: no row for %q", id)
		}
		class := "even"
		if i%2 == 1 {
			class = "odd"
		}
		if byID[id].Offline() {
			class = "offline " + class
		}
		lines = append(lines, line{Class: class, Cells: cells})
	}
	lines = append(lines, line{Header: true})

	pd := pageData{
		SortCSS:   sortCSS(sortClass(key)),
		Header:    r.header(key),
		Lines:     lines,
		Generated: generatedAt.UTC().Format("02-January-2006 15:04") + " UTC",
		Version:   r.opts.Version,
	}
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "page", pd); err != nil {
		return nil, fmt.Errorf("render: view %s: %w", key, err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) header(current rank.Key) []headerCell {
	sorted := sortClass(current)
	cells := make([]headerCell, 0, len(r.opts.Columns)+3)
	add := func(key rank.Key, class, title, desc string, column bool) {
		cells = append(cells, headerCell{
			Class:       class,
			Href:        r.FileName(key),
			Title:       title,
			Description: desc,
			Sorted:      class == sorted,
			Column:      column,
		})
	}

	add(rank.Key{Kind: rank.ByIdentifier}, "server", "Server", "", false)
	for _, kind := range r.opts.Columns {
		title, desc := ColumnTitle(kind)
		add(rank.Key{Kind: rank.ByService, Service: kind}, kind.Slug(), title, desc, true)
	}
	add(rank.Key{Kind: rank.ByOfflineRecency}, "uptime", "Uptime", "", false)
	add(rank.Key{Kind: rank.ByReliability}, "times_online", "% Uptime", "", false)
	return cells
}

// sortClass is the CSS class of the column a view is ordered by.
func sortClass(key rank.Key) string {
	switch key.Kind {
	case rank.ByOfflineRecency:
		return "uptime"
	case rank.ByReliability:
		return "times_online"
	case rank.ByService:
		return key.Service.Slug()
	default:
		return "server"
	}
}

func sortCSS(class string) template.CSS {
	var b strings.Builder
	fmt.Fprintf(&b, "tr.table_header th.%s { background: #cfcfcf; }\n", class)
	fmt.Fprintf(&b, "tr.table_header th.%s a { font-weight: bolder; color: #00f; }\n", class)
	fmt.Fprintf(&b, "tr.odd td.%s { background: #dce5ef; }\n", class)
	fmt.Fprintf(&b, "tr.even td.%s { background: #efefef; }\n", class)
	fmt.Fprintf(&b, "tr.offline td.%s { font-style: italic; background: #ffd4d4; }", class)
	// Column slugs come from the validated configuration.
	return template.CSS(b.String())
}

// RenderAll writes every view in parallel. Failures are reported per view;
// one failing view never stops the others. Views not yet started when ctx
// is cancelled report ctx.Err().
func (r *Renderer) RenderAll(ctx context.Context, records []*types.EndpointRecord, rows *Rows, generatedAt time.Time) []ViewResult {
	keys := r.Views()
	results := make([]ViewResult, len(keys))

	if rows == nil {
		var err error
		if rows, err = r.BuildRows(records); err != nil {
			for i, key := range keys {
				results[i] = ViewResult{Key: key, Path: r.Path(key), Err: err}
			}
			return results
		}
	}

	var g errgroup.Group
	g.SetLimit(parallelViews)
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			results[i].Key = key
			if err := ctx.Err(); err != nil {
				results[i].Path, results[i].Err = r.Path(key), err
				return nil
			}
			results[i].Path, results[i].Err = r.Render(key, records, rows, generatedAt)
			if results[i].Err != nil {
				slog.Error("render: view failed", "view", key.String(), "path", results[i].Path, "err", results[i].Err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
