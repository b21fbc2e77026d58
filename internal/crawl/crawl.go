// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package crawl runs the crawl pipeline: search, metadata, abstracts,
// optional citation lookups, then assembly into a result envelope.
package crawl

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-crawler/internal/assemble"
	"github.com/pdiddy/paper-crawler/internal/observability"
	"github.com/pdiddy/paper-crawler/internal/pubmed"
	"github.com/pdiddy/paper-crawler/pkg/types"
)

// Stage names used in wrapped errors and log fields.
const (
	StageSearch    = "search"
	StageMetadata  = "metadata"
	StageAbstracts = "abstracts"
	StageCitations = "citations"
)

// Searcher finds article ids for a query.
type Searcher interface {
	Search(ctx context.Context, q types.SearchQuery, maxArticles int) (pubmed.SearchResult, error)
}

// MetadataFetcher retrieves summaries for a list of ids.
type MetadataFetcher interface {
	FetchMetadata(ctx context.Context, ids []string) (map[string]types.ArticleMetadata, error)
}

// AbstractFetcher retrieves abstracts for a list of ids.
type AbstractFetcher interface {
	FetchAbstracts(ctx context.Context, ids []string) (map[string]types.ArticleAbstract, error)
}

// CitationLookup attaches citation counts to articles with metadata.
type CitationLookup interface {
	Enrich(ctx context.Context, ids []string, meta map[string]types.ArticleMetadata) (map[string]types.CitationInfo, error)
}

// Options selects what a run crawls.
type Options struct {
	Query types.SearchQuery

	// MaxArticles caps the run; negative means every match.
	MaxArticles int

	Keywords []string
}

// Crawler wires the stages together. Citations may be nil.
type Crawler struct {
	Search    Searcher
	Metadata  MetadataFetcher
	Abstracts AbstractFetcher
	Citations CitationLookup
	Log       zerolog.Logger
	Metrics   *observability.Metrics
}

// Run executes the stages in order. A stage failure aborts the run and is
// returned wrapped with the stage name. A search with no hits is a
// successful run with no articles.
func (c *Crawler) Run(ctx context.Context, opts Options) (types.ResultEnvelope, error) {
	start := time.Now()
	log := c.Log.With().Str("journal", opts.Query.Journal).Logger()

	res, err := c.Search.Search(ctx, opts.Query, opts.MaxArticles)
	if err != nil {
		return types.ResultEnvelope{}, stageErr(StageSearch, err)
	}
	log.Info().Int("total_found", res.TotalFound).Int("ids", len(res.IDs)).Msg("search complete")

	in := assemble.Inputs{
		Query:       opts.Query,
		Term:        res.Term,
		IDs:         res.IDs,
		TotalFound:  res.TotalFound,
		Keywords:    opts.Keywords,
		MaxArticles: opts.MaxArticles,
	}

	if len(res.IDs) > 0 {
		in.Metadata, err = c.Metadata.FetchMetadata(ctx, res.IDs)
		if err != nil {
			log.Error().Int("ids", len(res.IDs)).Msg("aborting after search")
			return types.ResultEnvelope{}, stageErr(StageMetadata, err)
		}
		log.Info().Int("records", len(in.Metadata)).Int("requested", len(res.IDs)).Msg("metadata complete")

		in.Abstracts, err = c.Abstracts.FetchAbstracts(ctx, res.IDs)
		if err != nil {
			log.Error().Int("ids", len(res.IDs)).Int("metadata", len(in.Metadata)).Msg("aborting after metadata")
			return types.ResultEnvelope{}, stageErr(StageAbstracts, err)
		}
		log.Info().Int("records", len(in.Abstracts)).Int("requested", len(res.IDs)).Msg("abstracts complete")

		if c.Citations != nil {
			in.Citations, err = c.Citations.Enrich(ctx, res.IDs, in.Metadata)
			if err != nil {
				log.Error().Int("ids", len(res.IDs)).Int("metadata", len(in.Metadata)).
					Int("abstracts", len(in.Abstracts)).Msg("aborting after abstracts")
				return types.ResultEnvelope{}, stageErr(StageCitations, err)
			}
			log.Info().Int("records", len(in.Citations)).Msg("citations complete")
		}
	}

	env := assemble.Assemble(in)
	if c.Metrics != nil {
		c.Metrics.ArticlesTotal.Add(float64(len(env.Articles)))
		c.Metrics.RelevantArticles.Add(float64(env.RelevantCount))
	}

	log.Info().
		Int("articles", len(env.Articles)).
		Int("relevant", env.RelevantCount).
		Dur("elapsed", time.Since(start)).
		Msg("crawl complete")
	return env, nil
}

func stageErr(stage string, err error) error {
	return fmt.Errorf("%s stage: %w", stage, err)
}
