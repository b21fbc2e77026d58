// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubmed

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-crawler/internal/observability"
)

// fakeFetcher records every call and answers through respond.
type fakeFetcher struct {
	endpoints []string
	params    []url.Values
	respond   func(script string, params url.Values) ([]byte, error)
}

func (f *fakeFetcher) Fetch(_ context.Context, endpoint string, params url.Values) ([]byte, error) {
	f.endpoints = append(f.endpoints, endpoint)
	f.params = append(f.params, params)
	return f.respond(path.Base(endpoint), params)
}

func newTestClient(f *fakeFetcher, batch, abstractBatch int, m *observability.Metrics) *Client {
	return New(f, Config{
		BaseURL:           "http://eutils.test/entrez/eutils",
		BatchSize:         batch,
		AbstractBatchSize: abstractBatch,
	}, zerolog.Nop(), m)
}

type summaryFixture struct {
	ID      string
	Title   string
	PubDate string
	Authors []string
	Types   []string
	DOI     string
}

func docSumXML(s summaryFixture) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<DocSum><Id>%s</Id>", s.ID)
	fmt.Fprintf(&b, `<Item Name="PubDate" Type="Date">%s</Item>`, s.PubDate)
	b.WriteString(`<Item Name="AuthorList" Type="List">`)
	for _, a := range s.Authors {
		fmt.Fprintf(&b, `<Item Name="Author" Type="String">%s</Item>`, a)
	}
	b.WriteString(`</Item>`)
	fmt.Fprintf(&b, `<Item Name="Title" Type="String">%s</Item>`, s.Title)
	b.WriteString(`<Item Name="PubTypeList" Type="List">`)
	for _, t := range s.Types {
		fmt.Fprintf(&b, `<Item Name="PubType" Type="String">%s</Item>`, t)
	}
	b.WriteString(`</Item>`)
	b.WriteString(`<Item Name="FullJournalName" Type="String">Radiology. Artificial intelligence</Item>`)
	if s.DOI != "" {
		fmt.Fprintf(&b, `<Item Name="ELocationID" Type="String">doi: %s</Item>`, s.DOI)
	}
	b.WriteString("</DocSum>")
	return b.String()
}

func summaryXML(docs ...summaryFixture) []byte {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" ?>`)
	b.WriteString(`<!DOCTYPE eSummaryResult PUBLIC "-//NLM//DTD esummary v1 20041029//EN" "https://eutils.ncbi.nlm.nih.gov/eutils/dtd/20041029/esummary-v1.dtd">`)
	b.WriteString("<eSummaryResult>")
	for _, d := range docs {
		b.WriteString(docSumXML(d))
	}
	b.WriteString("</eSummaryResult>")
	return []byte(b.String())
}

// articleXML renders a PubmedArticle. sections alternate label, text;
// a nil slice produces an article without an Abstract element.
func articleXML(pmid string, sections ...string) string {
	var b strings.Builder
	b.WriteString("<PubmedArticle><MedlineCitation Status=\"MEDLINE\" Owner=\"NLM\">")
	fmt.Fprintf(&b, `<PMID Version="1">%s</PMID><Article PubModel="Print"><ArticleTitle>T</ArticleTitle>`, pmid)
	if sections != nil {
		b.WriteString("<Abstract>")
		for i := 0; i+1 < len(sections); i += 2 {
			if sections[i] == "" {
				fmt.Fprintf(&b, "<AbstractText>%s</AbstractText>", sections[i+1])
			} else {
				fmt.Fprintf(&b, `<AbstractText Label="%s" NlmCategory="BACKGROUND">%s</AbstractText>`, sections[i], sections[i+1])
			}
		}
		b.WriteString("</Abstract>")
	}
	b.WriteString("</Article></MedlineCitation></PubmedArticle>")
	return b.String()
}

func articleSetXML(articles ...string) []byte {
	return []byte(`<?xml version="1.0" ?><PubmedArticleSet>` + strings.Join(articles, "") + `</PubmedArticleSet>`)
}
