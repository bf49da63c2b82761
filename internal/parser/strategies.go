package parser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/anishesg/internship-discord-bot/internal/util"
)

// link is one labeled hyperlink found inside a table cell.
type link struct {
	label string
	href  string
}

// cell is one table cell: decorated text stripped to plain text, plus every
// link the cell carried.
type cell struct {
	text  string
	links []link
}

// row is an ordered sequence of cells extracted from one table row.
type row struct {
	cells []cell
}

// rowStrategy extracts rows from a section body. Strategies are tried in
// sequence; the first one to produce rows wins for that section.
type rowStrategy interface {
	name() string
	extractRows(section string) []row
}

var (
	mdLinkFindRegex   = regexp.MustCompile(`\[([^\]]*)\]\(([^)\s]+)\)`)
	htmlLinkFindRegex = regexp.MustCompile(`(?is)<a[^>]*href="([^"]+)"[^>]*>(.*?)</a>`)
	imgAltRegex       = regexp.MustCompile(`(?i)<img[^>]*alt="([^"]*)"`)
)

// pipeTableStrategy handles plain markdown tables: one row per line, cells
// delimited by pipes.
type pipeTableStrategy struct{}

func (pipeTableStrategy) name() string { return "pipe-table" }

func (pipeTableStrategy) extractRows(section string) []row {
	var rows []row
	for _, line := range strings.Split(section, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "|") {
			continue
		}
		raw := splitPipeCells(trimmed)
		if len(raw) < 2 || isSeparatorRow(raw) || isHeaderRow(raw) {
			continue
		}
		r := row{}
		for _, rc := range raw {
			r.cells = append(r.cells, parseCell(rc))
		}
		rows = append(rows, r)
	}
	return rows
}

// splitPipeCells splits a pipe-delimited line into raw cell strings,
// dropping the empty leading/trailing segments from the border pipes.
func splitPipeCells(line string) []string {
	parts := strings.Split(line, "|")
	if len(parts) > 0 && strings.TrimSpace(parts[0]) == "" {
		parts = parts[1:]
	}
	if len(parts) > 0 && strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

func isSeparatorRow(cells []string) bool {
	for _, c := range cells {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if strings.Trim(c, "-: ") != "" {
			return false
		}
	}
	return true
}

func isHeaderRow(cells []string) bool {
	if len(cells) == 0 {
		return false
	}
	first := strings.ToLower(strings.TrimSpace(cells[0]))
	return first == "company" || first == "name"
}

// parseCell extracts links (markdown and inline HTML anchors) from a raw
// cell and strips the remaining markup down to plain text.
func parseCell(raw string) cell {
	c := cell{}
	for _, m := range mdLinkFindRegex.FindAllStringSubmatch(raw, -1) {
		c.links = append(c.links, link{label: strings.TrimSpace(m[1]), href: m[2]})
	}
	for _, m := range htmlLinkFindRegex.FindAllStringSubmatch(raw, -1) {
		label := util.CleanCell(m[2])
		if label == "" {
			// Image-only anchors label themselves through the img alt text.
			if alt := imgAltRegex.FindStringSubmatch(m[2]); alt != nil {
				label = strings.TrimSpace(alt[1])
			}
		}
		c.links = append(c.links, link{label: label, href: m[1]})
	}
	c.text = util.CleanCell(raw)
	return c
}

// htmlTableStrategy handles sections whose tables are raw HTML, including
// cells with embedded collapsible <details> blocks.
type htmlTableStrategy struct{}

func (htmlTableStrategy) name() string { return "html-table" }

func (htmlTableStrategy) extractRows(section string) []row {
	if !strings.Contains(section, "<tr") {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(section))
	if err != nil {
		return nil
	}

	var rows []row
	doc.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() == 0 {
			return // header row (th cells) or empty
		}
		r := row{}
		cells.Each(func(_ int, td *goquery.Selection) {
			c := cell{}
			// Drop collapsible details so cell text stays one line.
			td.Find("details").Remove()
			td.Find("a").Each(func(_ int, a *goquery.Selection) {
				href, ok := a.Attr("href")
				if !ok {
					return
				}
				label := util.CollapseWhitespace(a.Text())
				if label == "" {
					if alt, ok := a.Find("img").Attr("alt"); ok {
						label = strings.TrimSpace(alt)
					}
				}
				c.links = append(c.links, link{label: label, href: href})
			})
			c.text = util.CollapseWhitespace(td.Text())
			r.cells = append(r.cells, c)
		})
		rows = append(rows, r)
	})
	return rows
}
