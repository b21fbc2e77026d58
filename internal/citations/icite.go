// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citations

import (
	"context"
	"strings"

	"github.com/pdiddy/paper-crawler/internal/httputil"
	"github.com/pdiddy/paper-crawler/pkg/types"
)

// iciteAPIBase is the NIH iCite publication endpoint. Declared as a var
// so tests can substitute an httptest server.
var iciteAPIBase = "https://icite.od.nih.gov/api/pubs/"

// ICite reads citation_count from NIH iCite by PMID.
type ICite struct {
	Fetcher httputil.Fetcher
}

// Name returns the source identifier.
func (i *ICite) Name() string { return "icite" }

// Count returns the iCite citation count for m's PMID. iCite answers
// either with the record itself or wrapped in a "data" object.
func (i *ICite) Count(ctx context.Context, m types.ArticleMetadata) (int, bool, error) {
	pmid := strings.TrimSpace(m.ID)
	if pmid == "" {
		return 0, false, nil
	}

	body, err := i.Fetcher.Fetch(ctx, iciteAPIBase+pmid, nil)
	if err != nil {
		return 0, false, err
	}

	var r iciteResponse
	if err := decode("icite", pmid, body, &r); err != nil {
		return 0, false, err
	}
	switch {
	case r.CitationCount != nil:
		return *r.CitationCount, true, nil
	case r.Data != nil && r.Data.CitationCount != nil:
		return *r.Data.CitationCount, true, nil
	}
	return 0, false, nil
}

type iciteRecord struct {
	CitationCount *int `json:"citation_count"`
}

type iciteResponse struct {
	iciteRecord
	Data *iciteRecord `json:"data"`
}
