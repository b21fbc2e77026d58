// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package assemble joins search ids, metadata, abstracts and keyword
// verdicts into the result envelope.
package assemble

import (
	"github.com/pdiddy/paper-crawler/internal/filter"
	"github.com/pdiddy/paper-crawler/pkg/types"
)

// Inputs is everything the assembler needs from the earlier stages.
type Inputs struct {
	Query      types.SearchQuery
	Term       string
	IDs        []string
	TotalFound int

	Metadata  map[string]types.ArticleMetadata
	Abstracts map[string]types.ArticleAbstract

	// Citations is optional; a nil map leaves every record without citation info.
	Citations map[string]types.CitationInfo

	Keywords []string

	// MaxArticles caps the number of records; negative means no limit.
	MaxArticles int
}

// Assemble builds one record per search id, in search order. Ids with
// missing metadata or abstracts still get a record with HasMetadata or
// HasAbstract cleared; relevance never removes a record.
func Assemble(in Inputs) types.ResultEnvelope {
	ids := in.IDs
	if in.MaxArticles >= 0 && len(ids) > in.MaxArticles {
		ids = ids[:in.MaxArticles]
	}

	env := types.ResultEnvelope{
		Query:        in.Query,
		SearchTerm:   in.Term,
		TotalFound:   in.TotalFound,
		KeywordsUsed: append([]string{}, in.Keywords...),
		Articles:     make([]types.ArticleRecord, 0, len(ids)),
	}

	for _, id := range ids {
		rec := buildRecord(id, in)
		if rec.IsRelevant {
			env.RelevantCount++
		}
		env.Articles = append(env.Articles, rec)
	}
	return env
}

func buildRecord(id string, in Inputs) types.ArticleRecord {
	meta, hasMeta := in.Metadata[id]
	abs, hasAbs := in.Abstracts[id]

	rec := types.ArticleRecord{
		ID:               id,
		Authors:          []string{},
		PublicationTypes: []string{},
		AbstractSections: []types.AbstractSection{},
		HasMetadata:      hasMeta,
		HasAbstract:      hasAbs,
	}

	if hasMeta {
		rec.Title = meta.Title
		if meta.Authors != nil {
			rec.Authors = meta.Authors
		}
		rec.PublicationType = meta.PublicationType
		if meta.PublicationTypes != nil {
			rec.PublicationTypes = meta.PublicationTypes
		}
		rec.PublicationDate = meta.PublicationDate
		rec.Journal = meta.Journal
		rec.DOI = meta.DOI
		rec.URL = meta.URL
	}
	if hasAbs {
		rec.Abstract = abs.Text()
		if abs.Sections != nil {
			rec.AbstractSections = abs.Sections
		}
	}

	rec.MatchedKeywords, rec.IsRelevant = filter.Apply(rec.Title, abs, in.Keywords)

	if in.Citations != nil {
		if ci, ok := in.Citations[id]; ok {
			c := ci
			rec.Citations = &c
		}
	}
	return rec
}
