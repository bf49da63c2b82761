package parser

import (
	"log/slog"
	"strings"

	"github.com/anishesg/internship-discord-bot/internal/models"
	"github.com/anishesg/internship-discord-bot/internal/util"
	"github.com/anishesg/internship-discord-bot/internal/validator"
)

// closedMarkers flag a row as closed/unavailable when found in the company,
// role, or application cell.
var closedMarkers = []string{"🔒", "(closed)", "[closed]"}

// continuationMarker means "same company as the previous row".
const continuationMarker = "↳"

// Parser converts the raw source document into listings grouped by category
// section. Extraction is best-effort: malformed rows are skipped, never
// fatal to the rest of the parse.
type Parser struct {
	strategies []rowStrategy
	validate   *validator.Validator
}

func New() *Parser {
	return &Parser{
		strategies: []rowStrategy{pipeTableStrategy{}, htmlTableStrategy{}},
		validate:   validator.New(),
	}
}

// Parse extracts listings from the document in document order. Missing
// sections are logged and skipped.
func (p *Parser) Parse(document string) []models.Listing {
	var listings []models.Listing
	seen := make(map[string]struct{})

	for _, section := range splitSections(document) {
		rows := p.extractRows(section.body)
		if len(rows) == 0 {
			slog.Warn("No rows found in section", "category", section.category)
			continue
		}

		lastCompany := ""
		for _, r := range rows {
			listing, ok := p.parseRow(r, section.category, &lastCompany)
			if !ok {
				continue
			}
			if _, dup := seen[listing.ID]; dup {
				continue
			}
			seen[listing.ID] = struct{}{}
			listings = append(listings, listing)
		}
	}

	for _, c := range models.Categories() {
		if !sectionPresent(document, c) {
			slog.Warn("Category section not found in document", "category", c)
		}
	}
	return listings
}

// extractRows tries each row strategy in order and keeps the first one that
// yields anything. The source has used both plain markdown tables and HTML
// tables with collapsible detail cells.
func (p *Parser) extractRows(section string) []row {
	for _, strat := range p.strategies {
		if rows := strat.extractRows(section); len(rows) > 0 {
			return rows
		}
	}
	return nil
}

// parseRow turns one table row into a Listing. Returns ok=false for rows
// that are structurally short, closed, or missing a usable apply URL.
func (p *Parser) parseRow(r row, category models.Category, lastCompany *string) (models.Listing, bool) {
	if len(r.cells) < 5 {
		return models.Listing{}, false
	}

	company := r.cells[0].text
	role := r.cells[1].text
	location := r.cells[2].text
	applyCell := r.cells[3]
	age := r.cells[4].text

	// Continuation rows inherit the previous row's company.
	if company == "" || strings.HasPrefix(company, continuationMarker) {
		company = *lastCompany
	} else {
		*lastCompany = company
	}

	if isClosed(company) || isClosed(role) || isClosed(applyCell.text) {
		return models.Listing{}, false
	}

	applyURL, ok := pickApplyURL(applyCell)
	if !ok {
		return models.Listing{}, false
	}

	listing := models.Listing{
		ID:        models.ListingID(company, role, location),
		Company:   company,
		Role:      role,
		Location:  location,
		ApplyURL:  applyURL,
		PostedAge: age,
		Category:  category,
	}
	if err := p.validate.ValidateStruct(listing); err != nil {
		slog.Debug("Skipping row that failed validation", "company", company, "role", role, "error", err)
		return models.Listing{}, false
	}
	return listing, true
}

// pickApplyURL chooses the primary application link from the apply cell,
// preferring an explicit "Apply" label and falling back to a "Simplify"
// link. Rows without a usable URL are discarded by the caller.
func pickApplyURL(c cell) (string, bool) {
	var fallback string
	for _, l := range c.links {
		label := strings.ToLower(l.label)
		if strings.Contains(label, "apply") {
			return normalizeLink(l.href)
		}
		if fallback == "" && (strings.Contains(label, "simplify") || strings.Contains(l.href, "simplify.jobs")) {
			fallback = l.href
		}
	}
	if fallback != "" {
		return normalizeLink(fallback)
	}
	return "", false
}

func normalizeLink(href string) (string, bool) {
	normalized, err := util.NormalizeApplyURL(href)
	if err != nil {
		return "", false
	}
	return normalized, true
}

func isClosed(s string) bool {
	lower := strings.ToLower(s)
	for _, marker := range closedMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// section is the span of document text belonging to one category header.
type section struct {
	category models.Category
	body     string
}

// splitSections locates each known category section by header match and
// returns the text up to the next header of the same or higher level.
func splitSections(document string) []section {
	lines := strings.Split(document, "\n")
	var sections []section

	for i := 0; i < len(lines); i++ {
		if !isHeaderLine(lines[i]) {
			continue
		}
		category, ok := models.CategoryByHeader(lines[i])
		if !ok {
			continue
		}
		end := len(lines)
		for j := i + 1; j < len(lines); j++ {
			if isHeaderLine(lines[j]) {
				end = j
				break
			}
		}
		sections = append(sections, section{
			category: category,
			body:     strings.Join(lines[i+1:end], "\n"),
		})
		i = end - 1
	}
	return sections
}

func isHeaderLine(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "#")
}

func sectionPresent(document string, c models.Category) bool {
	for _, line := range strings.Split(document, "\n") {
		if !isHeaderLine(line) {
			continue
		}
		if got, ok := models.CategoryByHeader(line); ok && got == c {
			return true
		}
	}
	return false
}
