// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubmed

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/pdiddy/paper-crawler/pkg/types"
)

// FetchAbstracts retrieves abstracts for ids in batches of
// Config.AbstractBatchSize. Ids the XML batch leaves without an abstract
// are retried one at a time in text mode. Articles still without an
// abstract are left out of the result.
func (c *Client) FetchAbstracts(ctx context.Context, ids []string) (map[string]types.ArticleAbstract, error) {
	log := c.stageLog(StageAbstracts)
	out := make(map[string]types.ArticleAbstract, len(ids))
	batches := chunk(ids, c.cfg.AbstractBatchSize)

	for i, batch := range batches {
		params := c.params(url.Values{
			"id":      {strings.Join(batch, ",")},
			"rettype": {"abstract"},
			"retmode": {"xml"},
		})
		body, err := c.fetcher.Fetch(ctx, c.endpoint("efetch.fcgi"), params)
		if err != nil {
			return nil, fmt.Errorf("efetch batch %d/%d: %w", i+1, len(batches), err)
		}

		got := make(map[string]types.ArticleAbstract, len(batch))
		abstracts, recErrs, err := parseAbstracts(body)
		if err != nil {
			log.Warn().Err(err).Int("batch", i+1).Int("ids", len(batch)).Msg("unreadable abstract batch")
			c.metrics.ParseFailure(StageAbstracts)
		}
		for _, re := range recErrs {
			log.Warn().Err(re).Msg("skipping article")
			c.metrics.ParseFailure(StageAbstracts)
		}

		wanted := make(map[string]bool, len(batch))
		for _, id := range batch {
			wanted[id] = true
		}
		for _, a := range abstracts {
			if wanted[a.ID] {
				got[a.ID] = a
			}
		}

		for _, id := range missing(batch, got) {
			a, ok, err := c.fetchTextAbstract(ctx, id)
			if err != nil {
				if ctx.Err() != nil {
					return nil, fmt.Errorf("efetch text %s: %w", id, ctx.Err())
				}
				log.Warn().Err(err).Str("id", id).Msg("text abstract fallback failed")
				continue
			}
			if ok {
				got[id] = a
			}
		}

		for id, a := range got {
			out[id] = a
		}
		miss := missing(batch, got)
		if len(miss) > 0 {
			log.Debug().Strs("ids", miss).Msg("no abstract available")
			c.metrics.SoftMiss(StageAbstracts, len(miss))
		}
		log.Info().
			Int("batch", i+1).
			Int("batches", len(batches)).
			Int("abstracts", len(got)).
			Msg("fetched abstracts")
	}

	return out, nil
}

// parseAbstracts decodes an efetch body. Articles without an abstract,
// or whose sections are all blank, produce nothing.
func parseAbstracts(body []byte) ([]types.ArticleAbstract, []error, error) {
	var set pubmedArticleSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil, nil, &types.ParseError{Op: "efetch", Cause: err}
	}

	var recErrs []error
	out := make([]types.ArticleAbstract, 0, len(set.Articles))
	for _, art := range set.Articles {
		id := strings.TrimSpace(art.PMID)
		if id == "" {
			recErrs = append(recErrs, &types.ParseError{Op: "efetch", Cause: errors.New("PubmedArticle without PMID")})
			continue
		}
		if art.Abstract == nil {
			continue
		}

		var sections []types.AbstractSection
		for _, t := range art.Abstract.Texts {
			if t.Text == "" {
				continue
			}
			sections = append(sections, types.AbstractSection{Label: t.Label, Text: t.Text})
		}
		if len(sections) == 0 {
			continue
		}
		out = append(out, types.ArticleAbstract{ID: id, Sections: sections})
	}
	return out, recErrs, nil
}

// fetchTextAbstract asks efetch for the plain-text rendering of one article
// and keeps the abstract as a single unlabelled section.
func (c *Client) fetchTextAbstract(ctx context.Context, id string) (types.ArticleAbstract, bool, error) {
	params := c.params(url.Values{
		"id":      {id},
		"rettype": {"abstract"},
		"retmode": {"text"},
	})
	body, err := c.fetcher.Fetch(ctx, c.endpoint("efetch.fcgi"), params)
	if err != nil {
		return types.ArticleAbstract{}, false, err
	}
	text := abstractFromText(string(body))
	if text == "" {
		return types.ArticleAbstract{}, false, nil
	}
	return types.ArticleAbstract{ID: id, Sections: []types.AbstractSection{{Text: text}}}, true, nil
}

// textAbstractEnds mark the first block after the abstract in efetch text
// output. "\n\n20" catches a trailing publication date line.
var textAbstractEnds = []string{"\n\nMeSH", "\n\nPMID", "\n\nCopyright", "\n\nAuthor", "\n\n20"}

// abstractFromText returns the text following the first "Abstract" heading,
// cut at the next trailing block and folded onto one line.
func abstractFromText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	_, rest, ok := strings.Cut(s, "Abstract")
	if !ok {
		return ""
	}
	rest = strings.TrimSpace(rest)
	for _, end := range textAbstractEnds {
		if before, _, found := strings.Cut(rest, end); found {
			rest = before
		}
	}
	return strings.Join(strings.Fields(rest), " ")
}
