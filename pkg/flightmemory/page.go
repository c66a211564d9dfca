// Package flightmemory turns saved flightmemory.com flight list pages into
// flight legs. Fetching the pages is left to an external browser driver.
package flightmemory

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DetailBaseURL prefixes the relative flight detail links.
const DetailBaseURL = "https://www.flightmemory.com/signin/"

// SubTableSep joins the strings of a nested table into one cell.
const SubTableSep = "||"

// RawRow is one scraped table row before any interpretation.
type RawRow struct {
	Cells     []string
	DetailURL string
}

var errNoFlightTable = errors.New("flight table not found")

// ParsePage extracts the flight rows of one saved page.
func ParsePage(r io.Reader) ([]RawRow, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}
	doc := goquery.NewDocumentFromNode(root)

	tables := doc.Find(".container").First().ChildrenFiltered("table")
	if tables.Length() < 2 {
		return nil, errNoFlightTable
	}
	tbl := tables.Eq(1)

	// Flatten nested tables, outermost first, into "a||b||c" text.
	tbl.Find("table").Each(func(_ int, sub *goquery.Selection) {
		if sub.ParentsUntilSelection(tbl).Filter("table").Length() > 0 {
			return
		}
		text := strings.Join(strippedStrings(sub.Nodes[0]), SubTableSep)
		sub.ReplaceWithNodes(&html.Node{Type: html.TextNode, Data: text})
	})

	var rows []RawRow
	tbl.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		tds := tr.ChildrenFiltered("td")
		if tds.Length() == 0 {
			return
		}
		row := RawRow{}
		tds.Each(func(_ int, td *goquery.Selection) {
			row.Cells = append(row.Cells, cellText(td.Nodes[0]))
		})
		row.DetailURL = detailURL(tds.Last())
		rows = append(rows, row)
	})
	return rows, nil
}

// detailURL takes the first option whose value points at the edit page and
// falls back to the second option of the cell.
func detailURL(td *goquery.Selection) string {
	opt := td.Find(`option[value*="edit"]`).First()
	if opt.Length() == 0 {
		opt = td.Find("option").Eq(1)
	}
	if v, ok := opt.Attr("value"); ok && v != "" {
		return DetailBaseURL + v
	}
	return ""
}

// ReadPages parses every *.html file in dir in file name order.
func ReadPages(dir string) ([]RawRow, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.html"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no .html pages in %s", dir)
	}
	sort.Strings(paths)

	var all []RawRow
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, err
		}
		rows, err := ParsePage(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		all = append(all, rows...)
	}
	return all, nil
}

func strippedStrings(n *html.Node) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if s := strings.TrimSpace(n.Data); s != "" {
				out = append(out, s)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

// cellText is the cell's text with line breaks as spaces and whitespace
// collapsed. Option labels are skipped.
func cellText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			b.WriteString(n.Data)
			return
		case n.Type == html.ElementNode && n.DataAtom == atom.Br:
			b.WriteString(" ")
			return
		case n.Type == html.ElementNode && (n.DataAtom == atom.Select || n.DataAtom == atom.Script):
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
