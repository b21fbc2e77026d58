// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package crawl

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-crawler/internal/httputil"
	"github.com/pdiddy/paper-crawler/internal/observability"
	"github.com/pdiddy/paper-crawler/internal/pubmed"
	"github.com/pdiddy/paper-crawler/pkg/types"
)

var radiology = types.SearchQuery{Journal: "Radiology", FromYear: "2020", ToYear: "2020", ResearchOnly: true}

// --- fakes ---

type fakeSearch struct {
	res   pubmed.SearchResult
	err   error
	calls int
}

func (f *fakeSearch) Search(context.Context, types.SearchQuery, int) (pubmed.SearchResult, error) {
	f.calls++
	return f.res, f.err
}

type fakeMetadata struct {
	meta  map[string]types.ArticleMetadata
	err   error
	calls int
}

func (f *fakeMetadata) FetchMetadata(context.Context, []string) (map[string]types.ArticleMetadata, error) {
	f.calls++
	return f.meta, f.err
}

type fakeAbstracts struct {
	abs   map[string]types.ArticleAbstract
	err   error
	calls int
}

func (f *fakeAbstracts) FetchAbstracts(context.Context, []string) (map[string]types.ArticleAbstract, error) {
	f.calls++
	return f.abs, f.err
}

type fakeCitations struct {
	info  map[string]types.CitationInfo
	err   error
	calls int
}

func (f *fakeCitations) Enrich(context.Context, []string, map[string]types.ArticleMetadata) (map[string]types.CitationInfo, error) {
	f.calls++
	return f.info, f.err
}

func radiologyStages() (*fakeSearch, *fakeMetadata, *fakeAbstracts) {
	return &fakeSearch{res: pubmed.SearchResult{Term: "term", IDs: []string{"1", "2", "3"}, TotalFound: 3}},
		&fakeMetadata{meta: map[string]types.ArticleMetadata{
			"1": {ID: "1", Title: "Transformers in radiology", Authors: []string{"Smith JA"}, PublicationTypes: []string{}},
			"2": {ID: "2", Title: "Bone age", Authors: []string{}, PublicationTypes: []string{}},
		}},
		&fakeAbstracts{abs: map[string]types.ArticleAbstract{
			"1": {ID: "1", Sections: []types.AbstractSection{{Text: "we use a transformer model"}}},
		}}
}

// --- tests ---

func TestRun_RadiologyScenario(t *testing.T) {
	s, md, ab := radiologyStages()
	m := observability.NewMetrics("test")
	c := &Crawler{Search: s, Metadata: md, Abstracts: ab, Log: zerolog.Nop(), Metrics: m}

	env, err := c.Run(context.Background(), Options{Query: radiology, MaxArticles: -1, Keywords: []string{"transformer"}})
	require.NoError(t, err)

	require.Len(t, env.Articles, 3)
	assert.Equal(t, 1, env.RelevantCount)
	assert.Equal(t, 3, env.TotalFound)
	assert.Equal(t, "term", env.SearchTerm)
	assert.Equal(t, []string{"transformer"}, env.KeywordsUsed)

	first, second, third := env.Articles[0], env.Articles[1], env.Articles[2]
	assert.True(t, first.IsRelevant)
	assert.True(t, first.HasMetadata)
	assert.True(t, first.HasAbstract)
	assert.Equal(t, []string{"transformer"}, first.MatchedKeywords)

	assert.True(t, second.HasMetadata)
	assert.False(t, second.HasAbstract)
	assert.False(t, second.IsRelevant)

	assert.Equal(t, "3", third.ID)
	assert.False(t, third.HasMetadata)
	assert.False(t, third.HasAbstract)
	assert.Empty(t, third.MatchedKeywords)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.ArticlesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RelevantArticles))
}

func TestRun_ZeroHits(t *testing.T) {
	s := &fakeSearch{res: pubmed.SearchResult{Term: "term", IDs: []string{}}}
	md := &fakeMetadata{}
	ab := &fakeAbstracts{}
	cit := &fakeCitations{}
	c := &Crawler{Search: s, Metadata: md, Abstracts: ab, Citations: cit, Log: zerolog.Nop()}

	env, err := c.Run(context.Background(), Options{Query: radiology, MaxArticles: -1})
	require.NoError(t, err)
	assert.NotNil(t, env.Articles)
	assert.Empty(t, env.Articles)
	assert.Zero(t, env.RelevantCount)
	assert.Zero(t, md.calls)
	assert.Zero(t, ab.calls)
	assert.Zero(t, cit.calls)
}

func TestRun_StageFailuresAbort(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		stage string
		setup func(*fakeSearch, *fakeMetadata, *fakeAbstracts, *fakeCitations)
		after func(t *testing.T, s *fakeSearch, md *fakeMetadata, ab *fakeAbstracts, cit *fakeCitations)
	}{
		{
			stage: StageSearch,
			setup: func(s *fakeSearch, _ *fakeMetadata, _ *fakeAbstracts, _ *fakeCitations) { s.err = boom },
			after: func(t *testing.T, _ *fakeSearch, md *fakeMetadata, _ *fakeAbstracts, _ *fakeCitations) {
				assert.Zero(t, md.calls)
			},
		},
		{
			stage: StageMetadata,
			setup: func(_ *fakeSearch, md *fakeMetadata, _ *fakeAbstracts, _ *fakeCitations) { md.err = boom },
			after: func(t *testing.T, _ *fakeSearch, _ *fakeMetadata, ab *fakeAbstracts, _ *fakeCitations) {
				assert.Zero(t, ab.calls)
			},
		},
		{
			stage: StageAbstracts,
			setup: func(_ *fakeSearch, _ *fakeMetadata, ab *fakeAbstracts, _ *fakeCitations) { ab.err = boom },
			after: func(t *testing.T, _ *fakeSearch, _ *fakeMetadata, _ *fakeAbstracts, cit *fakeCitations) {
				assert.Zero(t, cit.calls)
			},
		},
		{
			stage: StageCitations,
			setup: func(_ *fakeSearch, _ *fakeMetadata, _ *fakeAbstracts, cit *fakeCitations) { cit.err = boom },
			after: func(t *testing.T, _ *fakeSearch, _ *fakeMetadata, _ *fakeAbstracts, cit *fakeCitations) {
				assert.Equal(t, 1, cit.calls)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.stage, func(t *testing.T) {
			s, md, ab := radiologyStages()
			cit := &fakeCitations{}
			tt.setup(s, md, ab, cit)

			m := observability.NewMetrics("test")
			c := &Crawler{Search: s, Metadata: md, Abstracts: ab, Citations: cit, Log: zerolog.Nop(), Metrics: m}
			env, err := c.Run(context.Background(), Options{Query: radiology, MaxArticles: -1})

			require.Error(t, err)
			assert.ErrorIs(t, err, boom)
			assert.True(t, strings.HasPrefix(err.Error(), tt.stage+" stage: "), err.Error())
			assert.Nil(t, env.Articles)
			assert.Zero(t, testutil.ToFloat64(m.ArticlesTotal))
			tt.after(t, s, md, ab, cit)
		})
	}
}

func TestRun_NetworkErrorKeepsType(t *testing.T) {
	s, md, ab := radiologyStages()
	md.err = &types.NetworkError{Op: "esummary", Attempts: 6, Cause: errors.New("502")}
	c := &Crawler{Search: s, Metadata: md, Abstracts: ab, Log: zerolog.Nop()}

	_, err := c.Run(context.Background(), Options{Query: radiology, MaxArticles: -1})
	assert.ErrorIs(t, err, types.ErrNetwork)
	var ne *types.NetworkError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, 6, ne.Attempts)
}

func TestRun_AttachesCitations(t *testing.T) {
	s, md, ab := radiologyStages()
	cit := &fakeCitations{info: map[string]types.CitationInfo{
		"1": {Count: 12, Source: "crossref"},
		"2": {Count: 0, Source: "none"},
	}}
	c := &Crawler{Search: s, Metadata: md, Abstracts: ab, Citations: cit, Log: zerolog.Nop()}

	env, err := c.Run(context.Background(), Options{Query: radiology, MaxArticles: -1, Keywords: []string{"transformer"}})
	require.NoError(t, err)
	require.NotNil(t, env.Articles[0].Citations)
	assert.Equal(t, 12, env.Articles[0].Citations.Count)
	assert.Equal(t, "none", env.Articles[1].Citations.Source)
	assert.Nil(t, env.Articles[2].Citations)
}

func TestRun_WithoutCitationsLeavesRecordsBare(t *testing.T) {
	s, md, ab := radiologyStages()
	c := &Crawler{Search: s, Metadata: md, Abstracts: ab, Log: zerolog.Nop()}

	env, err := c.Run(context.Background(), Options{Query: radiology, MaxArticles: -1})
	require.NoError(t, err)
	for _, a := range env.Articles {
		assert.Nil(t, a.Citations)
	}
}

// --- end to end against a fake E-utilities server ---

func eutilsServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("db") != "pubmed" {
			http.Error(w, "db required", http.StatusBadRequest)
			return
		}
		switch path.Base(r.URL.Path) {
		case "esearch.fcgi":
			all := []string{"1", "2", "3"}
			start, _ := strconv.Atoi(q.Get("retstart"))
			n, _ := strconv.Atoi(q.Get("retmax"))
			end := min(start+n, len(all))
			var b strings.Builder
			fmt.Fprintf(&b, "<eSearchResult><Count>%d</Count><IdList>", len(all))
			for _, id := range all[min(start, end):end] {
				fmt.Fprintf(&b, "<Id>%s</Id>", id)
			}
			b.WriteString("</IdList></eSearchResult>")
			fmt.Fprint(w, b.String())
		case "esummary.fcgi":
			var b strings.Builder
			b.WriteString("<eSummaryResult>")
			for _, id := range strings.Split(q.Get("id"), ",") {
				title := map[string]string{"1": "Transformers in radiology", "2": "Bone age"}[id]
				if title == "" {
					continue
				}
				fmt.Fprintf(&b, `<DocSum><Id>%s</Id><Item Name="PubDate" Type="Date">2020 Jan</Item>`+
					`<Item Name="AuthorList" Type="List"><Item Name="Author" Type="String">Smith JA</Item></Item>`+
					`<Item Name="Title" Type="String">%s</Item>`+
					`<Item Name="PubTypeList" Type="List"><Item Name="PubType" Type="String">Journal Article</Item></Item>`+
					`<Item Name="FullJournalName" Type="String">Radiology. Artificial intelligence</Item></DocSum>`, id, title)
			}
			b.WriteString("</eSummaryResult>")
			fmt.Fprint(w, b.String())
		case "efetch.fcgi":
			if q.Get("retmode") == "text" {
				fmt.Fprintf(w, "1. Radiology. 2020 Jan.\n\nPMID: %s", q.Get("id"))
				return
			}
			var b strings.Builder
			b.WriteString("<PubmedArticleSet>")
			for _, id := range strings.Split(q.Get("id"), ",") {
				if id != "1" {
					continue
				}
				b.WriteString(`<PubmedArticle><MedlineCitation><PMID Version="1">1</PMID><Article>` +
					`<Abstract><AbstractText Label="PURPOSE">To evaluate a <i>transformer</i>.</AbstractText></Abstract>` +
					`</Article></MedlineCitation></PubmedArticle>`)
			}
			b.WriteString("</PubmedArticleSet>")
			fmt.Fprint(w, b.String())
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestRun_EndToEnd(t *testing.T) {
	ts := eutilsServer(t)
	defer ts.Close()

	m := observability.NewMetrics("test")
	hc := httputil.NewClient(httputil.ClientConfig{
		Policy: httputil.Policy{MaxRetries: 1, BaseWait: time.Millisecond, Timeout: 2 * time.Second},
	}, zerolog.Nop(), m)
	pm := pubmed.New(hc, pubmed.Config{BaseURL: ts.URL + "/entrez/eutils", BatchSize: 2, AbstractBatchSize: 2}, zerolog.Nop(), m)

	c := &Crawler{Search: pm, Metadata: pm, Abstracts: pm, Log: zerolog.Nop(), Metrics: m}
	env, err := c.Run(context.Background(), Options{Query: radiology, MaxArticles: -1, Keywords: []string{"transformer"}})
	require.NoError(t, err)

	require.Len(t, env.Articles, 3)
	assert.Equal(t, []string{"1", "2", "3"}, []string{env.Articles[0].ID, env.Articles[1].ID, env.Articles[2].ID})
	assert.Equal(t, 1, env.RelevantCount)
	assert.True(t, env.Articles[0].IsRelevant)
	assert.Equal(t, "PURPOSE: To evaluate a transformer.", env.Articles[0].Abstract)
	assert.Equal(t, "Radiology. Artificial intelligence", env.Articles[0].Journal)
	assert.True(t, env.Articles[1].HasMetadata)
	assert.False(t, env.Articles[1].HasAbstract)
	assert.False(t, env.Articles[2].HasMetadata)
	assert.Contains(t, env.SearchTerm, `"Radiology"[Journal] AND 2020:2020[pdat]`)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SoftMisses.WithLabelValues(pubmed.StageMetadata)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SoftMisses.WithLabelValues(pubmed.StageAbstracts)))
}
