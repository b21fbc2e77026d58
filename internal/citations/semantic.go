// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citations

import (
	"context"
	"net/url"
	"strings"

	"github.com/pdiddy/paper-crawler/internal/doi"
	"github.com/pdiddy/paper-crawler/internal/httputil"
	"github.com/pdiddy/paper-crawler/pkg/types"
)

// Semantic Scholar endpoints. Declared as vars so tests can substitute an
// httptest server.
var (
	semanticPaperBase  = "https://api.semanticscholar.org/graph/v1/paper/"
	semanticSearchBase = "https://api.semanticscholar.org/graph/v1/paper/search"
)

const semanticFields = "citationCount"

// SemanticScholarDOI looks a paper up by DOI.
type SemanticScholarDOI struct {
	Fetcher httputil.Fetcher
}

// Name returns the source identifier.
func (s *SemanticScholarDOI) Name() string { return "semantic_scholar" }

// Count returns the citationCount of the paper with m's DOI.
func (s *SemanticScholarDOI) Count(ctx context.Context, m types.ArticleMetadata) (int, bool, error) {
	d := doi.Normalize(m.DOI)
	if d == "" {
		return 0, false, nil
	}

	body, err := s.Fetcher.Fetch(ctx, semanticPaperBase+"DOI:"+escapeDOI(d), url.Values{"fields": {semanticFields}})
	if err != nil {
		return 0, false, err
	}

	var p semanticPaper
	if err := decode("semantic scholar", m.ID, body, &p); err != nil {
		return 0, false, err
	}
	if p.CitationCount == nil {
		return 0, false, nil
	}
	return *p.CitationCount, true, nil
}

// SemanticScholarTitle searches by title and the first author's last
// name, taking the top hit.
type SemanticScholarTitle struct {
	Fetcher httputil.Fetcher
}

// Name returns the source identifier.
func (s *SemanticScholarTitle) Name() string { return "title_search" }

// Count returns the citationCount of the best title match.
func (s *SemanticScholarTitle) Count(ctx context.Context, m types.ArticleMetadata) (int, bool, error) {
	q := titleQuery(m)
	if q == "" {
		return 0, false, nil
	}

	params := url.Values{
		"query":  {q},
		"fields": {semanticFields},
		"limit":  {"1"},
	}
	body, err := s.Fetcher.Fetch(ctx, semanticSearchBase, params)
	if err != nil {
		return 0, false, err
	}

	var sr semanticResponse
	if err := decode("semantic scholar search", m.ID, body, &sr); err != nil {
		return 0, false, err
	}
	if len(sr.Data) == 0 || sr.Data[0].CitationCount == nil {
		return 0, false, nil
	}
	return *sr.Data[0].CitationCount, true, nil
}

// titleQuery combines the title with the first author's family name.
func titleQuery(m types.ArticleMetadata) string {
	title := strings.TrimSpace(m.Title)
	if title == "" {
		return ""
	}
	if len(m.Authors) == 0 {
		return title
	}
	if last := familyName(m.Authors[0]); last != "" {
		return title + " " + last
	}
	return title
}

// familyName extracts the family name from a PubMed author string
// ("Smith JA") or a display name ("Jane Smith").
func familyName(author string) string {
	parts := strings.Fields(author)
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	last := parts[len(parts)-1]
	if isInitials(last) {
		return strings.Join(parts[:len(parts)-1], " ")
	}
	return last
}

func isInitials(s string) bool {
	if len(s) > 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

type semanticResponse struct {
	Total int             `json:"total"`
	Data  []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID       string `json:"paperId"`
	CitationCount *int   `json:"citationCount"`
}
