// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubmed

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/paper-crawler/pkg/types"
)

// SearchResult is the outcome of the search stage.
type SearchResult struct {
	// Term is the literal E-utilities search term.
	Term string

	// IDs are the matching PMIDs in the order PubMed returned them, without duplicates.
	IDs []string

	// TotalFound is the remote match count, which may exceed len(IDs).
	TotalFound int
}

// Search runs esearch for q, newest first, and pages until maxArticles
// ids are collected (negative means no limit), a page comes back short,
// or the remote count is reached.
func (c *Client) Search(ctx context.Context, q types.SearchQuery, maxArticles int) (SearchResult, error) {
	log := c.stageLog(StageSearch)
	term := BuildTerm(q)
	res := SearchResult{Term: term, IDs: []string{}}

	log.Info().Str("term", term).Msg("searching PubMed")

	if maxArticles == 0 {
		page, err := c.esearch(ctx, term, 0, 0)
		if err != nil {
			return SearchResult{}, err
		}
		res.TotalFound = page.Count
		return res, nil
	}

	seen := make(map[string]bool)
	retstart := 0
	for {
		want := c.cfg.BatchSize
		if maxArticles > 0 {
			remaining := maxArticles - len(res.IDs)
			if remaining <= 0 {
				break
			}
			if remaining < want {
				want = remaining
			}
		}
		if retstart+want > MaxRetrievable {
			want = MaxRetrievable - retstart
		}
		if want <= 0 {
			log.Warn().
				Int("total_found", res.TotalFound).
				Int("limit", MaxRetrievable).
				Msg("PubMed serves at most 10000 records per term; narrow the year range to see the rest")
			break
		}

		page, err := c.esearch(ctx, term, retstart, want)
		if err != nil {
			return SearchResult{}, err
		}
		if retstart == 0 {
			res.TotalFound = page.Count
			log.Info().Int("total_found", page.Count).Msg("search matched")
		}

		for _, id := range page.IDList {
			id = strings.TrimSpace(id)
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			res.IDs = append(res.IDs, id)
			if maxArticles > 0 && len(res.IDs) >= maxArticles {
				break
			}
		}

		retstart += len(page.IDList)
		log.Debug().Int("retstart", retstart).Int("collected", len(res.IDs)).Msg("search page")

		if len(page.IDList) < want || retstart >= page.Count {
			break
		}
	}

	return res, nil
}

// esearch fetches one page of ids.
func (c *Client) esearch(ctx context.Context, term string, retstart, retmax int) (eSearchResult, error) {
	params := c.params(url.Values{
		"term":     {term},
		"retmode":  {"xml"},
		"sort":     {"pub_date"},
		"retstart": {strconv.Itoa(retstart)},
		"retmax":   {strconv.Itoa(retmax)},
	})

	body, err := c.fetcher.Fetch(ctx, c.endpoint("esearch.fcgi"), params)
	if err != nil {
		return eSearchResult{}, fmt.Errorf("esearch: %w", err)
	}

	var page eSearchResult
	if err := xml.Unmarshal(body, &page); err != nil {
		return eSearchResult{}, &types.ParseError{Op: "esearch", Cause: err}
	}
	if msg := strings.TrimSpace(page.Error); msg != "" {
		return eSearchResult{}, &types.ParseError{Op: "esearch", Cause: errors.New(msg)}
	}
	if page.ErrorList != nil {
		warnLog := c.stageLog(StageSearch)
		warnLog.Warn().
			Strs("phrase_not_found", page.ErrorList.PhraseNotFound).
			Strs("field_not_found", page.ErrorList.FieldNotFound).
			Msg("PubMed could not interpret part of the term")
	}
	return page, nil
}
