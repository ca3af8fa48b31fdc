package feeds

import (
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"

	"github.com/xmppscan/xmppscan/pkg/types"
)

// htmlParser reads server lists published as HTML tables. Each server is a
// row carrying its address in data-jid; cells with a data-field attribute
// become fields:
//
//	<tr data-jid="example.org">
//	  <td data-field="description">Public server</td>
//	  <td data-field="country">DE</td>
//	</tr>
//
// A homepage cell may hold a link; its href is used in that case. Other
// cells always contribute their text.
type htmlParser struct {
	source string
}

func (p *htmlParser) Parse(r io.Reader) ([]Record, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var out []Record
	doc.Find("tr[data-jid]").Each(func(_ int, row *goquery.Selection) {
		jid, _ := row.Attr("data-jid")
		rec := newRecord(p.source, jid)
		if rec.ID == "" {
			return
		}
		row.Find("td[data-field]").Each(func(_ int, cell *goquery.Selection) {
			field, _ := cell.Attr("data-field")
			if field == types.FieldHomepage {
				if href, ok := cell.Find("a[href]").First().Attr("href"); ok {
					rec.set(field, href)
					return
				}
			}
			rec.set(field, cell.Text())
		})
		out = append(out, rec)
	})
	return out, nil
}
