// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubmed

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-crawler/internal/observability"
	"github.com/pdiddy/paper-crawler/pkg/types"
)

func TestFetchAbstracts_StructuredSections(t *testing.T) {
	f := &fakeFetcher{respond: func(string, url.Values) ([]byte, error) {
		return articleSetXML(articleXML("1",
			" Purpose ", "To evaluate a <i>transformer</i> model.",
			"RESULTS", "AUC was 0.9<sup>a</sup>\n   overall.",
		)), nil
	}}
	c := newTestClient(f, 100, 10, nil)

	got, err := c.FetchAbstracts(context.Background(), []string{"1"})
	require.NoError(t, err)
	require.Contains(t, got, "1")

	assert.Equal(t, []types.AbstractSection{
		{Label: "Purpose", Text: "To evaluate a transformer model."},
		{Label: "RESULTS", Text: "AUC was 0.9a overall."},
	}, got["1"].Sections)

	p := f.params[0]
	assert.Equal(t, "abstract", p.Get("rettype"))
	assert.Equal(t, "xml", p.Get("retmode"))
	assert.True(t, strings.HasSuffix(f.endpoints[0], "/efetch.fcgi"))
}

func TestFetchAbstracts_UnlabelledAbstract(t *testing.T) {
	f := &fakeFetcher{respond: func(string, url.Values) ([]byte, error) {
		return articleSetXML(articleXML("2", "", "Plain abstract text.")), nil
	}}
	c := newTestClient(f, 100, 10, nil)

	got, err := c.FetchAbstracts(context.Background(), []string{"2"})
	require.NoError(t, err)
	assert.Equal(t, []types.AbstractSection{{Label: "", Text: "Plain abstract text."}}, got["2"].Sections)
	assert.Equal(t, "Plain abstract text.", got["2"].Text())
}

func TestFetchAbstracts_MissingAndBlankAbstractsAreSoftMisses(t *testing.T) {
	m := observability.NewMetrics("test")
	f := &fakeFetcher{respond: func(_ string, p url.Values) ([]byte, error) {
		if p.Get("retmode") == "text" {
			return []byte("1. Radiology. 2020 Jan;1(1).\n\nNo abstract available.\n\nPMID: " + p.Get("id")), nil
		}
		return articleSetXML(
			articleXML("1", "", "Has text."),
			articleXML("2"),
			articleXML("3", "BACKGROUND", "   "),
		), nil
	}}
	c := newTestClient(f, 100, 10, m)

	got, err := c.FetchAbstracts(context.Background(), []string{"1", "2", "3", "4"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Contains(t, got, "1")
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SoftMisses.WithLabelValues(StageAbstracts)))

	// One batch request, then one text request per id left without an abstract.
	require.Len(t, f.params, 4)
	for i, id := range []string{"2", "3", "4"} {
		assert.Equal(t, id, f.params[i+1].Get("id"))
		assert.Equal(t, "text", f.params[i+1].Get("retmode"))
	}
}

func TestFetchAbstracts_ArticleWithoutPMIDSkipped(t *testing.T) {
	m := observability.NewMetrics("test")
	f := &fakeFetcher{respond: func(string, url.Values) ([]byte, error) {
		return articleSetXML(
			"<PubmedArticle><MedlineCitation><Article><Abstract><AbstractText>Orphan</AbstractText></Abstract></Article></MedlineCitation></PubmedArticle>",
			articleXML("5", "", "Kept."),
		), nil
	}}
	c := newTestClient(f, 100, 10, m)

	got, err := c.FetchAbstracts(context.Background(), []string{"5"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ParseErrors.WithLabelValues(StageAbstracts)))
}

func TestFetchAbstracts_BatchesByAbstractBatchSize(t *testing.T) {
	f := &fakeFetcher{respond: func(_ string, p url.Values) ([]byte, error) {
		var arts []string
		for _, id := range strings.Split(p.Get("id"), ",") {
			arts = append(arts, articleXML(id, "", "Text for "+id))
		}
		return articleSetXML(arts...), nil
	}}
	c := newTestClient(f, 100, 10, nil)

	ids := makeIDs(23)
	got, err := c.FetchAbstracts(context.Background(), ids)
	require.NoError(t, err)
	assert.Len(t, f.params, 3)
	assert.Len(t, got, 23)
	assert.Len(t, strings.Split(f.params[2].Get("id"), ","), 3)
}

func TestFetchAbstracts_TruncatedBodyIsBatchMiss(t *testing.T) {
	m := observability.NewMetrics("test")
	f := &fakeFetcher{respond: func(_ string, p url.Values) ([]byte, error) {
		if p.Get("retmode") == "text" {
			return nil, nil
		}
		return []byte(`<PubmedArticleSet><PubmedArticle><MedlineCitation><PMID>1</PMID>`), nil
	}}
	c := newTestClient(f, 100, 10, m)

	got, err := c.FetchAbstracts(context.Background(), []string{"1"})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ParseErrors.WithLabelValues(StageAbstracts)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SoftMisses.WithLabelValues(StageAbstracts)))
}

const textRecord = `1. Radiol Artif Intell. 2020 Mar;2(2):e190043.

Transformers for chest CT.

Smith JA(1), Lee K(1).

Author information:
(1)Department of Radiology.

Abstract
PURPOSE: To evaluate a transformer model
on chest CT.
RESULTS: AUC was 0.91.

Copyright 2020 RSNA.

DOI: 10.1148/ryai.2020190043
PMID: 7`

func TestFetchAbstracts_TextFallback(t *testing.T) {
	m := observability.NewMetrics("test")
	f := &fakeFetcher{respond: func(_ string, p url.Values) ([]byte, error) {
		if p.Get("retmode") == "text" {
			return []byte(textRecord), nil
		}
		return articleSetXML(articleXML("6", "", "From XML."), articleXML("7")), nil
	}}
	c := newTestClient(f, 100, 10, m)

	got, err := c.FetchAbstracts(context.Background(), []string{"6", "7"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "From XML.", got["6"].Text())
	assert.Equal(t, []types.AbstractSection{{
		Text: "PURPOSE: To evaluate a transformer model on chest CT. RESULTS: AUC was 0.91.",
	}}, got["7"].Sections)
	assert.Equal(t, "7", got["7"].ID)

	require.Len(t, f.params, 2)
	assert.Equal(t, "7", f.params[1].Get("id"))
	assert.Equal(t, "abstract", f.params[1].Get("rettype"))
	assert.Equal(t, "pubmed", f.params[1].Get("db"))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SoftMisses.WithLabelValues(StageAbstracts)))
}

func TestFetchAbstracts_TextFallbackFailureIsSoftMiss(t *testing.T) {
	m := observability.NewMetrics("test")
	f := &fakeFetcher{respond: func(_ string, p url.Values) ([]byte, error) {
		if p.Get("retmode") == "text" {
			return nil, &types.NetworkError{Op: "efetch", Attempts: 1, Cause: errors.New("connection reset")}
		}
		return articleSetXML(articleXML("8")), nil
	}}
	c := newTestClient(f, 100, 10, m)

	got, err := c.FetchAbstracts(context.Background(), []string{"8"})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SoftMisses.WithLabelValues(StageAbstracts)))
}

func TestFetchAbstracts_TextFallbackStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := &fakeFetcher{respond: func(_ string, p url.Values) ([]byte, error) {
		if p.Get("retmode") == "text" {
			cancel()
			return nil, context.Canceled
		}
		return articleSetXML(articleXML("8"), articleXML("9")), nil
	}}
	c := newTestClient(f, 100, 10, nil)

	_, err := c.FetchAbstracts(ctx, []string{"8", "9"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, f.params, 2)
}

func TestAbstractFromText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"full record", textRecord, "PURPOSE: To evaluate a transformer model on chest CT. RESULTS: AUC was 0.91."},
		{"no heading", "1. Radiology. 2020.\n\nPMID: 3", ""},
		{"author block after", "Abstract\nBody.\n\nAuthor information: x", "Body."},
		{"crlf", "Abstract\r\nShort text.\r\n\r\nMeSH terms", "Short text."},
		{"date block", "Abstract\nBody.\n\n2020 Jan 5", "Body."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, abstractFromText(tt.in))
		})
	}
}
