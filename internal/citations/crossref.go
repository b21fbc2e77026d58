// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citations

import (
	"context"

	"github.com/pdiddy/paper-crawler/internal/doi"
	"github.com/pdiddy/paper-crawler/internal/httputil"
	"github.com/pdiddy/paper-crawler/pkg/types"
)

// crossrefAPIBase is the CrossRef works endpoint. Declared as a var so
// tests can substitute an httptest server.
var crossrefAPIBase = "https://api.crossref.org/works/"

// Crossref reads is-referenced-by-count from the CrossRef work record.
type Crossref struct {
	Fetcher httputil.Fetcher
}

// Name returns the source identifier.
func (c *Crossref) Name() string { return "crossref" }

// Count returns the number of works referencing m's DOI.
func (c *Crossref) Count(ctx context.Context, m types.ArticleMetadata) (int, bool, error) {
	d := doi.Normalize(m.DOI)
	if d == "" {
		return 0, false, nil
	}

	body, err := c.Fetcher.Fetch(ctx, crossrefAPIBase+escapeDOI(d), nil)
	if err != nil {
		return 0, false, err
	}

	var cr crossrefResponse
	if err := decode("crossref", m.ID, body, &cr); err != nil {
		return 0, false, err
	}
	if cr.Message.ReferencedBy == nil {
		return 0, false, nil
	}
	return *cr.Message.ReferencedBy, true, nil
}

type crossrefResponse struct {
	Status  string       `json:"status"`
	Message crossrefWork `json:"message"`
}

type crossrefWork struct {
	DOI          string `json:"DOI"`
	ReferencedBy *int   `json:"is-referenced-by-count"`
}
