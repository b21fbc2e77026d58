// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package citations looks up citation counts for assembled articles from a
// chain of public services, stopping at the first that answers.
package citations

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-crawler/internal/httputil"
	"github.com/pdiddy/paper-crawler/internal/observability"
	"github.com/pdiddy/paper-crawler/pkg/types"
)

// SourceNone marks an article no service could count.
const SourceNone = "none"

// Source is one citation service.
type Source interface {
	// Name identifies the service in results, logs and metrics.
	Name() string

	// Count returns the citation count of m. ok is false when the
	// service has nothing for this article (for example no DOI).
	Count(ctx context.Context, m types.ArticleMetadata) (count int, ok bool, err error)
}

// DefaultSources returns the lookup chain: Semantic Scholar by DOI,
// Crossref, OpenAlex, iCite by PMID, then Semantic Scholar title search.
// s2 is used for Semantic Scholar requests and may carry an API key
// header; f serves everything else.
func DefaultSources(f, s2 httputil.Fetcher) []Source {
	return []Source{
		&SemanticScholarDOI{Fetcher: s2},
		&Crossref{Fetcher: f},
		&OpenAlex{Fetcher: f},
		&ICite{Fetcher: f},
		&SemanticScholarTitle{Fetcher: s2},
	}
}

// Enricher runs the source chain for every article.
type Enricher struct {
	Sources []Source
	Log     zerolog.Logger
	Metrics *observability.Metrics
}

// Lookup tries each source in order. Errors and misses fall through to
// the next source; when none answers the result is {0, "none"}. Only
// cancellation of ctx is returned as an error.
func (e *Enricher) Lookup(ctx context.Context, m types.ArticleMetadata) (types.CitationInfo, error) {
	for _, src := range e.Sources {
		count, ok, err := src.Count(ctx, m)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return types.CitationInfo{}, ctxErr
		}
		if err != nil {
			e.Log.Debug().Err(err).Str("source", src.Name()).Str("pmid", m.ID).Msg("citation source failed")
			continue
		}
		if ok {
			e.count(src.Name())
			return types.CitationInfo{Count: count, Source: src.Name()}, nil
		}
	}
	e.count(SourceNone)
	return types.CitationInfo{Count: 0, Source: SourceNone}, nil
}

// Enrich looks up every id that has metadata, in order. Ids without
// metadata get no entry.
func (e *Enricher) Enrich(ctx context.Context, ids []string, meta map[string]types.ArticleMetadata) (map[string]types.CitationInfo, error) {
	out := make(map[string]types.CitationInfo, len(ids))
	for i, id := range ids {
		m, ok := meta[id]
		if !ok {
			continue
		}
		info, err := e.Lookup(ctx, m)
		if err != nil {
			return nil, err
		}
		out[id] = info
		if (i+1)%25 == 0 {
			e.Log.Info().Int("done", i+1).Int("total", len(ids)).Msg("citation lookups")
		}
	}
	return out, nil
}

func (e *Enricher) count(source string) {
	if e.Metrics == nil {
		return
	}
	e.Metrics.CitationLookups.WithLabelValues(source).Inc()
}

// decode unmarshals a JSON body into v, reporting failures as ParseErrors.
func decode(op, id string, body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return &types.ParseError{Op: op, ID: id, Cause: fmt.Errorf("parsing response: %w", err)}
	}
	return nil
}

// escapeDOI escapes each segment of d for use in a URL path, keeping the
// separating slashes. SICI-style DOIs carry characters such as '#', '?',
// '<' and '>'.
func escapeDOI(d string) string {
	segs := strings.Split(d, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return strings.Join(segs, "/")
}
