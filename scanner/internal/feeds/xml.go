package feeds

import (
	"fmt"
	"io"
	"os"

	"github.com/antchfx/xmlquery"
)

// xmlParser reads the xmpp.org services.xml layout:
//
//	<query>
//	  <item jid="example.org">
//	    <description>...</description>
//	    <homepage>...</homepage>
//	  </item>
//	</query>
type xmlParser struct {
	source string
}

func (p *xmlParser) Parse(r io.Reader) ([]Record, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse xml: %w", err)
	}
	items, err := xmlquery.QueryAll(doc, "//item[@jid]")
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}

	out := make([]Record, 0, len(items))
	for _, item := range items {
		rec := newRecord(p.source, item.SelectAttr("jid"))
		if rec.ID == "" {
			continue
		}
		for c := item.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != xmlquery.ElementNode {
				continue
			}
			rec.set(c.Data, c.InnerText())
		}
		out = append(out, rec)
	}
	return out, nil
}

// ReadTargets reads a static server list (the same <item jid="..."/> layout
// as the xml feeds) and returns the addresses in document order.
func ReadTargets(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("targets: open: %w", err)
	}
	defer f.Close()

	recs, err := (&xmlParser{source: path}).Parse(f)
	if err != nil {
		return nil, fmt.Errorf("targets %q: %w", path, err)
	}
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ID)
	}
	return out, nil
}
