package feeds

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xmppscan/xmppscan/scanner/internal/config"
)

// Record is one server entry as listed by one feed: the server address plus
// the named text fields the feed supplied for it.
type Record struct {
	Source string
	ID     string
	Fields map[string]string
}

// Parser decodes one feed document into records, in document order.
type Parser interface {
	Parse(r io.Reader) ([]Record, error)
}

// New returns the Parser for the feed's format.
func New(src config.Feed) (Parser, error) {
	switch src.Format {
	case "xml", "":
		return &xmlParser{source: src.ID}, nil
	case "html":
		return &htmlParser{source: src.ID}, nil
	case "json":
		return &jsonParser{source: src.ID}, nil
	default:
		return nil, fmt.Errorf("feeds: unsupported format %q", src.Format)
	}
}

// ReadFile parses the local copy of src.
func ReadFile(src config.Feed) ([]Record, error) {
	p, err := New(src)
	if err != nil {
		return nil, fmt.Errorf("feed %q: %w", src.ID, err)
	}
	f, err := os.Open(src.Path)
	if err != nil {
		return nil, fmt.Errorf("feed %q: open: %w", src.ID, err)
	}
	defer f.Close()

	recs, err := p.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("feed %q: %w", src.ID, err)
	}
	return recs, nil
}

// ReadAll parses every feed in order. The first failure aborts: a feed that
// cannot be read means the target list would silently shrink.
func ReadAll(srcs []config.Feed) ([]Record, error) {
	var out []Record
	for _, src := range srcs {
		recs, err := ReadFile(src)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}

// newRecord builds a Record, dropping empty fields.
func newRecord(source, id string) Record {
	return Record{Source: source, ID: strings.TrimSpace(id), Fields: make(map[string]string)}
}

func (r Record) set(field, value string) {
	field = strings.TrimSpace(field)
	value = strings.TrimSpace(value)
	if field == "" || value == "" {
		return
	}
	r.Fields[field] = value
}
