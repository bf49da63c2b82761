package util

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	htmlTagRegex    = regexp.MustCompile(`<[^>]+>`)
	mdLinkRegex     = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// CleanCell strips markup and decoration from a table cell, collapsing all
// whitespace runs to single spaces. Markdown links keep their label text.
func CleanCell(s string) string {
	s = mdLinkRegex.ReplaceAllString(s, "$1")
	s = htmlTagRegex.ReplaceAllString(s, " ")
	s = strings.NewReplacer("**", "", "__", "", "`", "", "*", "").Replace(s)
	return CollapseWhitespace(s)
}

// CollapseWhitespace trims and squeezes whitespace runs to single spaces.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}

// SafeAtoi parses an integer, returning 0 on any failure.
func SafeAtoi(s string) int {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return i
}
