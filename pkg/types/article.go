// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the paper-crawler pipeline:
// the search query, per-article metadata and abstracts, assembled article
// records, the result envelope written at the end of a run, and the
// configuration structs consumed by each stage.
package types

import "strings"

// SearchQuery describes what the search stage asks PubMed for. It is built
// once from configuration and flags and never modified afterwards.
type SearchQuery struct {
	// Journal is matched exactly against the [Journal] field.
	Journal string `json:"journal" yaml:"journal"`

	// FromYear and ToYear bound the publication date range, inclusive, at
	// year granularity. A far-future ToYear (e.g. "3000") leaves the range open.
	FromYear string `json:"fromYear" yaml:"from_year"`
	ToYear   string `json:"toYear" yaml:"to_year"`

	// ResearchOnly excludes reviews, editorials, letters, and comments.
	ResearchOnly bool `json:"researchOnly" yaml:"research_only"`
}

// ArticleMetadata holds the summary record of one article.
type ArticleMetadata struct {
	// ID is the PubMed identifier (PMID).
	ID string `json:"id" yaml:"id"`

	// Title is the article title with internal whitespace collapsed.
	Title string `json:"title" yaml:"title"`

	// Authors lists author names in the order PubMed declares them.
	Authors []string `json:"authors" yaml:"authors"`

	// PublicationType is the first publication type PubMed lists.
	PublicationType string `json:"publicationType" yaml:"publication_type"`

	// PublicationTypes is the full ordered list of publication types.
	PublicationTypes []string `json:"publicationTypes" yaml:"publication_types"`

	// PublicationDate is the date string as given by PubMed (e.g. "2020 Jan 15").
	PublicationDate string `json:"publicationDate" yaml:"publication_date"`

	// Journal is the full journal name.
	Journal string `json:"journal" yaml:"journal"`

	// DOI is the bare DOI, without a "doi:" prefix.
	DOI string `json:"doi" yaml:"doi"`

	// URL links to the PubMed landing page.
	URL string `json:"url" yaml:"url"`
}

// AbstractSection is one labelled part of a structured abstract. Unstructured
// abstracts produce a single section with an empty label.
type AbstractSection struct {
	Label string `json:"label" yaml:"label"`
	Text  string `json:"text" yaml:"text"`
}

// ArticleAbstract holds the parsed abstract of one article.
type ArticleAbstract struct {
	ID       string            `json:"id" yaml:"id"`
	Sections []AbstractSection `json:"sections" yaml:"sections"`
}

// Text joins the sections into a single string. Labelled sections are
// rendered as "LABEL: text".
func (a ArticleAbstract) Text() string {
	parts := make([]string, 0, len(a.Sections))
	for _, s := range a.Sections {
		if s.Text == "" {
			continue
		}
		if s.Label != "" {
			parts = append(parts, s.Label+": "+s.Text)
		} else {
			parts = append(parts, s.Text)
		}
	}
	return strings.Join(parts, " ")
}

// CitationInfo records how often an article has been cited and which
// service answered.
type CitationInfo struct {
	Count  int    `json:"count" yaml:"count"`
	Source string `json:"source" yaml:"source"`
}

// ArticleRecord joins metadata, abstract, and the keyword verdict for one
// article. The assembler creates it once; nothing mutates it afterwards.
type ArticleRecord struct {
	ID               string   `json:"id" yaml:"id"`
	Title            string   `json:"title" yaml:"title"`
	Authors          []string `json:"authors" yaml:"authors"`
	PublicationType  string   `json:"publicationType" yaml:"publication_type"`
	PublicationTypes []string `json:"publicationTypes" yaml:"publication_types"`
	PublicationDate  string   `json:"publicationDate" yaml:"publication_date"`
	Journal          string   `json:"journal" yaml:"journal"`
	DOI              string   `json:"doi" yaml:"doi"`
	URL              string   `json:"url" yaml:"url"`

	// Abstract is the joined abstract text; AbstractSections keeps the structure.
	Abstract         string            `json:"abstract" yaml:"abstract"`
	AbstractSections []AbstractSection `json:"abstractSections" yaml:"abstract_sections"`

	MatchedKeywords []string `json:"matchedKeywords" yaml:"matched_keywords"`
	IsRelevant      bool     `json:"isRelevant" yaml:"is_relevant"`

	// HasMetadata and HasAbstract mark soft misses so that records with
	// missing data stay auditable.
	HasMetadata bool `json:"hasMetadata" yaml:"has_metadata"`
	HasAbstract bool `json:"hasAbstract" yaml:"has_abstract"`

	Citations *CitationInfo `json:"citations,omitempty" yaml:"citations,omitempty"`
}

// ResultEnvelope is the report produced at the end of a run.
type ResultEnvelope struct {
	Query         SearchQuery     `json:"query" yaml:"query"`
	SearchTerm    string          `json:"searchTerm" yaml:"search_term"`
	TotalFound    int             `json:"totalFound" yaml:"total_found"`
	KeywordsUsed  []string        `json:"keywordsUsed" yaml:"keywords_used"`
	RelevantCount int             `json:"relevantCount" yaml:"relevant_count"`
	Articles      []ArticleRecord `json:"articles" yaml:"articles"`
}

// Relevant returns the records flagged as relevant, in envelope order.
func (e ResultEnvelope) Relevant() []ArticleRecord {
	var out []ArticleRecord
	for _, a := range e.Articles {
		if a.IsRelevant {
			out = append(out, a)
		}
	}
	return out
}
