package models

import (
	"regexp"
	"strings"
)

// Category is the closed set of listing sections tracked from the source
// document. The string values double as API query parameters.
type Category string

const (
	CategorySoftwareEngineering Category = "software-engineering"
	CategoryProductManagement   Category = "product-management"
	CategoryDataScienceAI       Category = "data-science-ai"
	CategoryQuantitativeFinance Category = "quantitative-finance"
	CategoryHardwareEngineering Category = "hardware-engineering"
)

// categoryInfo maps a category to its header pattern in the source document
// plus the presentation attributes used when announcing listings.
type categoryInfo struct {
	Category      Category
	HeaderPattern string // lowercase substring matched against section headers
	Emoji         string
	Color         int
}

var categoryTable = []categoryInfo{
	{CategorySoftwareEngineering, "software engineering", "💻", 5793266},
	{CategoryProductManagement, "product management", "📊", 15844367},
	{CategoryDataScienceAI, "data science", "🤖", 10181046},
	{CategoryQuantitativeFinance, "quantitative finance", "📈", 5763719},
	{CategoryHardwareEngineering, "hardware engineering", "🔧", 15548997},
}

// Categories returns all known categories in document order.
func Categories() []Category {
	out := make([]Category, 0, len(categoryTable))
	for _, info := range categoryTable {
		out = append(out, info.Category)
	}
	return out
}

// CategoryByHeader resolves a section header line to a category.
func CategoryByHeader(header string) (Category, bool) {
	lower := strings.ToLower(header)
	for _, info := range categoryTable {
		if strings.Contains(lower, info.HeaderPattern) {
			return info.Category, true
		}
	}
	return "", false
}

// ParseCategory resolves a category query value (e.g. "software-engineering").
func ParseCategory(s string) (Category, bool) {
	for _, info := range categoryTable {
		if string(info.Category) == strings.ToLower(strings.TrimSpace(s)) {
			return info.Category, true
		}
	}
	return "", false
}

func (c Category) info() categoryInfo {
	for _, info := range categoryTable {
		if info.Category == c {
			return info
		}
	}
	return categoryInfo{Category: c, Emoji: "📋", Color: 3092790}
}

func (c Category) Emoji() string { return c.info().Emoji }
func (c Category) Color() int    { return c.info().Color }

// Listing is one internship posting parsed from the source document. It is
// reconstructed on every poll; only its ID is persisted.
type Listing struct {
	ID        string   `firestore:"-" validate:"required"`
	Company   string   `firestore:"company" validate:"required"`
	Role      string   `firestore:"role" validate:"required"`
	Location  string   `firestore:"location"`
	ApplyURL  string   `firestore:"applyURL" validate:"required,url"`
	PostedAge string   `firestore:"postedAge"`
	Category  Category `firestore:"category" validate:"required"`
}

var nonSlugChar = regexp.MustCompile(`[^a-z0-9-]`)

// ListingID derives the stable identity for a listing from its semantic
// fields. Pure: identical (company, role, location) triples always produce
// the same id. Distinct postings that normalize to the same triple collapse
// into one id.
func ListingID(company, role, location string) string {
	joined := strings.ToLower(company + "-" + role + "-" + location)
	return nonSlugChar.ReplaceAllString(joined, "-")
}
