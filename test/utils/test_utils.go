// test/utils/test_utils.go

// Package utils holds HTML fixtures and record helpers shared by the
// integration tests. Builders return plain strings and assertions
// return errors, which keeps the helpers free of testing.T plumbing.
package utils

import (
	"fmt"
	"html"
	"strings"

	"github.com/AkaashThawani/karyakarta-agent-sub000/pkg/types"
)

// GridItem is one card in a product grid fixture.
type GridItem struct {
	Name  string
	Price string
}

// DefaultGridItems returns cards whose combined text clears the default
// minimum record length, so grid fixtures pass validation without
// loosening the extraction config.
func DefaultGridItems() []GridItem {
	return []GridItem{
		{Name: "Meridian Desk Lamp", Price: "$1,299.00"},
		{Name: "Nimbus Air Purifier", Price: "$549.00"},
		{Name: "Orchard Bookshelf", Price: "$249.00"},
		{Name: "Pinnacle Office Chair", Price: "$899.00"},
	}
}

// ProductGridPage renders items the way rendered storefront grids tend
// to look: anonymous row divs holding one classed span per field.
func ProductGridPage(items []GridItem) string {
	var b strings.Builder
	b.WriteString("<html><head></head><body>\n")
	for _, item := range items {
		fmt.Fprintf(&b, "<div><span class=\"item-name\">%s</span><span class=\"item-price\">%s</span></div>\n",
			html.EscapeString(item.Name), html.EscapeString(item.Price))
	}
	b.WriteString("</body></html>")
	return b.String()
}

// CatalogHeaders matches CatalogRows column for column. Lowercased they
// become the field names table extraction produces.
func CatalogHeaders() []string {
	return []string{"Product", "Price", "Availability"}
}

// CatalogRows returns product table rows for pipeline tests. Every row
// stays above the validator's minimum text length.
func CatalogRows() [][]string {
	return [][]string{
		{"Meridian Desk Lamp", "$1,299.00", "In stock"},
		{"Nimbus Air Purifier", "$549.00", "In stock"},
		{"Orchard Bookshelf", "$249.00", "Backordered"},
		{"Pinnacle Office Chair", "$899.00", "In stock"},
		{"Quarry Side Table", "$189.00", "In stock"},
		{"Rosewood Picture Frame", "$59.00", "Sold out"},
	}
}

// TablePage renders rows under a header table.
func TablePage(headers []string, rows [][]string) string {
	var b strings.Builder
	b.WriteString("<html><head></head><body><table><thead><tr>")
	for _, h := range headers {
		fmt.Fprintf(&b, "<th>%s</th>", html.EscapeString(h))
	}
	b.WriteString("</tr></thead><tbody>\n")
	for _, row := range rows {
		b.WriteString("<tr>")
		for _, cell := range row {
			fmt.Fprintf(&b, "<td>%s</td>", html.EscapeString(cell))
		}
		b.WriteString("</tr>\n")
	}
	b.WriteString("</tbody></table></body></html>")
	return b.String()
}

// MixedContentPage returns a page with one of everything a sweep
// surfaces: table rows, list items, links, headings, and head metadata.
func MixedContentPage() string {
	return `<html><head>
<title>Quarterly Storefront Digest</title>
<meta name="description" content="tables, lists, and links on one page">
</head><body>
<h1>Storefront Digest</h1>
<table><thead><tr><th>Product</th><th>Price</th></tr></thead><tbody>
<tr><td>Meridian Desk Lamp</td><td>$1,299.00</td></tr>
<tr><td>Nimbus Air Purifier</td><td>$549.00</td></tr>
<tr><td>Orchard Bookshelf</td><td>$249.00</td></tr>
</tbody></table>
<h2>Editor Notes</h2>
<p>Lighting sales carried the quarter once again.</p>
<ul><li>restock the lamp aisle</li><li>retire the frame line</li></ul>
<a href="/catalog">full catalog</a>
<a href="/contact">contact the buyer desk</a>
</body></html>`
}

// FieldValues collects one field across records, skipping records that
// do not carry it.
func FieldValues(records []types.Record, field string) []string {
	var values []string
	for i := range records {
		if v := records[i].Get(field); v != "" {
			values = append(values, v)
		}
	}
	return values
}

// AssertFieldValue checks one field of one record.
func AssertFieldValue(rec types.Record, field, want string) error {
	if got := rec.Get(field); got != want {
		return fmt.Errorf("field %s = %q, want %q", field, got, want)
	}
	return nil
}

// AssertFieldsPresent checks that every named field carries a value.
func AssertFieldsPresent(rec types.Record, fields ...string) error {
	for _, field := range fields {
		if rec.Get(field) == "" {
			return fmt.Errorf("field %s is empty (record carries %v)", field, rec.FieldNames())
		}
	}
	return nil
}
