package feeds

import (
	"encoding/json"
	"fmt"
	"io"
)

// jsonParser reads a JSON array of flat objects keyed by "jid":
//
//	[{"jid": "example.org", "description": "...", "country": "DE"}]
//
// Non-string values are ignored.
type jsonParser struct {
	source string
}

func (p *jsonParser) Parse(r io.Reader) ([]Record, error) {
	var entries []map[string]any
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}

	out := make([]Record, 0, len(entries))
	for _, e := range entries {
		jid, _ := e["jid"].(string)
		rec := newRecord(p.source, jid)
		if rec.ID == "" {
			continue
		}
		for k, v := range e {
			if k == "jid" {
				continue
			}
			if s, ok := v.(string); ok {
				rec.set(k, s)
			}
		}
		out = append(out, rec)
	}
	return out, nil
}
