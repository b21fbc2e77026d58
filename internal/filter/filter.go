// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package filter decides keyword relevance for an article.
package filter

import (
	"strings"

	"github.com/pdiddy/paper-crawler/pkg/types"
)

// Match returns the keywords that occur in text, compared
// case-insensitively as substrings. The result follows the order of
// keywords, lists each keyword at most once (case-insensitive duplicates
// keep their first spelling), holds keywords without surrounding
// whitespace and is never nil.
func Match(text string, keywords []string) []string {
	hay := strings.ToLower(text)
	matched := []string{}
	seen := make(map[string]bool, len(keywords))

	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		needle := strings.ToLower(kw)
		if needle == "" || seen[needle] {
			continue
		}
		seen[needle] = true
		if strings.Contains(hay, needle) {
			matched = append(matched, kw)
		}
	}
	return matched
}

// SearchText joins the title and every abstract section into the text
// that keywords are matched against.
func SearchText(title string, abstract types.ArticleAbstract) string {
	parts := make([]string, 0, len(abstract.Sections)+1)
	parts = append(parts, title)
	for _, s := range abstract.Sections {
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, " ")
}

// Apply matches keywords against an article's title and abstract. An
// article is relevant when at least one keyword matched.
func Apply(title string, abstract types.ArticleAbstract, keywords []string) ([]string, bool) {
	matched := Match(SearchText(title, abstract), keywords)
	return matched, len(matched) > 0
}
