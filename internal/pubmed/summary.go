// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubmed

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/pdiddy/paper-crawler/internal/doi"
	"github.com/pdiddy/paper-crawler/pkg/types"
)

// FetchMetadata retrieves summary records for ids in batches of
// Config.BatchSize. Ids without a usable record are left out of the
// result; only a network failure that survives the retries is returned
// as an error.
func (c *Client) FetchMetadata(ctx context.Context, ids []string) (map[string]types.ArticleMetadata, error) {
	log := c.stageLog(StageMetadata)
	out := make(map[string]types.ArticleMetadata, len(ids))
	batches := chunk(ids, c.cfg.BatchSize)

	for i, batch := range batches {
		params := c.params(url.Values{
			"id":      {strings.Join(batch, ",")},
			"version": {"1.0"},
			"retmode": {"xml"},
		})
		body, err := c.fetcher.Fetch(ctx, c.endpoint("esummary.fcgi"), params)
		if err != nil {
			return nil, fmt.Errorf("esummary batch %d/%d: %w", i+1, len(batches), err)
		}

		records, recErrs, err := parseSummaries(body)
		if err != nil {
			log.Warn().Err(err).Int("batch", i+1).Int("ids", len(batch)).Msg("unreadable summary batch")
			c.metrics.ParseFailure(StageMetadata)
			c.metrics.SoftMiss(StageMetadata, len(batch))
			continue
		}
		for _, re := range recErrs {
			log.Warn().Err(re).Msg("skipping summary record")
			c.metrics.ParseFailure(StageMetadata)
		}

		wanted := make(map[string]bool, len(batch))
		for _, id := range batch {
			wanted[id] = true
		}
		got := make(map[string]types.ArticleMetadata, len(records))
		for _, m := range records {
			if wanted[m.ID] {
				got[m.ID] = m
				out[m.ID] = m
			}
		}

		miss := missing(batch, got)
		if len(miss) > 0 {
			log.Debug().Strs("ids", miss).Msg("no summary returned")
			c.metrics.SoftMiss(StageMetadata, len(miss))
		}
		log.Info().
			Int("batch", i+1).
			Int("batches", len(batches)).
			Int("records", len(got)).
			Msg("fetched summaries")
	}

	return out, nil
}

// parseSummaries decodes an esummary body. Records without an Id are
// reported individually; an undecodable body is a batch-level error.
func parseSummaries(body []byte) ([]types.ArticleMetadata, []error, error) {
	var res eSummaryResult
	if err := xml.Unmarshal(body, &res); err != nil {
		return nil, nil, &types.ParseError{Op: "esummary", Cause: err}
	}

	var recErrs []error
	for _, e := range res.Errors {
		if e = strings.TrimSpace(e); e != "" {
			recErrs = append(recErrs, &types.ParseError{Op: "esummary", Cause: errors.New(e)})
		}
	}

	records := make([]types.ArticleMetadata, 0, len(res.DocSums))
	for _, ds := range res.DocSums {
		id := strings.TrimSpace(ds.ID)
		if id == "" {
			recErrs = append(recErrs, &types.ParseError{Op: "esummary", Cause: errors.New("DocSum without Id")})
			continue
		}
		records = append(records, toMetadata(id, ds))
	}
	return records, recErrs, nil
}

func toMetadata(id string, ds docSum) types.ArticleMetadata {
	pubTypes := ds.list("PubTypeList")
	first := ""
	if len(pubTypes) > 0 {
		first = pubTypes[0]
	}

	journal := ds.str("FullJournalName")
	if journal == "" {
		journal = ds.str("Source")
	}

	d := doi.Normalize(ds.str("DOI"))
	if d == "" {
		d = doi.Extract(ds.str("ELocationID"))
	}

	return types.ArticleMetadata{
		ID:               id,
		Title:            collapse(ds.str("Title")),
		Authors:          ds.list("AuthorList"),
		PublicationType:  first,
		PublicationTypes: pubTypes,
		PublicationDate:  ds.str("PubDate"),
		Journal:          journal,
		DOI:              d,
		URL:              fmt.Sprintf(pubmedArticleURL, id),
	}
}
