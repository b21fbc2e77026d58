// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citations

import (
	"context"

	"github.com/pdiddy/paper-crawler/internal/doi"
	"github.com/pdiddy/paper-crawler/internal/httputil"
	"github.com/pdiddy/paper-crawler/pkg/types"
)

// openAlexWorksBase is the OpenAlex single-work endpoint. Declared as a
// var so tests can substitute an httptest server.
var openAlexWorksBase = "https://api.openalex.org/works/"

// OpenAlex reads cited_by_count from the OpenAlex work addressed by DOI.
type OpenAlex struct {
	Fetcher httputil.Fetcher
}

// Name returns the source identifier.
func (o *OpenAlex) Name() string { return "openalex" }

// Count returns cited_by_count for m's DOI.
func (o *OpenAlex) Count(ctx context.Context, m types.ArticleMetadata) (int, bool, error) {
	d := doi.Normalize(m.DOI)
	if d == "" {
		return 0, false, nil
	}

	body, err := o.Fetcher.Fetch(ctx, openAlexWorksBase+"doi:"+escapeDOI(d), nil)
	if err != nil {
		return 0, false, err
	}

	var w openAlexWork
	if err := decode("openalex", m.ID, body, &w); err != nil {
		return 0, false, err
	}
	if w.CitedByCount == nil {
		return 0, false, nil
	}
	return *w.CitedByCount, true, nil
}

type openAlexWork struct {
	ID           string `json:"id"`
	DOI          string `json:"doi"`
	CitedByCount *int   `json:"cited_by_count"`
}
