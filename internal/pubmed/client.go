// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pubmed implements the search, metadata and abstract stages on
// top of the NCBI E-utilities (esearch, esummary, efetch).
package pubmed

import (
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-crawler/internal/httputil"
	"github.com/pdiddy/paper-crawler/internal/observability"
)

// eutilsBase is the public E-utilities root. Declared as a var so tests
// can substitute an httptest server.
var eutilsBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// pubmedArticleURL is the landing page template for a PMID.
const pubmedArticleURL = "https://pubmed.ncbi.nlm.nih.gov/%s/"

// MaxRetrievable is the most records esearch will page through for one term.
const MaxRetrievable = 10000

const (
	defaultBatchSize         = 100
	defaultAbstractBatchSize = 10
)

// Stage names used in logs and metrics.
const (
	StageSearch    = "search"
	StageMetadata  = "metadata"
	StageAbstracts = "abstracts"
)

// Config holds E-utilities settings.
type Config struct {
	// BaseURL overrides the E-utilities root. Empty uses the public endpoint.
	BaseURL string

	// APIKey, Tool and Email are sent with every request when set.
	APIKey string
	Tool   string
	Email  string

	// BatchSize is the esearch page size and the esummary batch size.
	BatchSize int

	// AbstractBatchSize is the efetch batch size.
	AbstractBatchSize int
}

// Client runs the E-utilities stages through a Fetcher.
type Client struct {
	fetcher httputil.Fetcher
	cfg     Config
	log     zerolog.Logger
	metrics *observability.Metrics
}

// New creates a Client. metrics may be nil.
func New(f httputil.Fetcher, cfg Config, log zerolog.Logger, metrics *observability.Metrics) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = eutilsBase
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.AbstractBatchSize <= 0 {
		cfg.AbstractBatchSize = defaultAbstractBatchSize
	}
	return &Client{fetcher: f, cfg: cfg, log: log, metrics: metrics}
}

func (c *Client) endpoint(script string) string {
	return c.cfg.BaseURL + "/" + script
}

// params returns the common request parameters merged with extra.
func (c *Client) params(extra url.Values) url.Values {
	v := url.Values{}
	v.Set("db", "pubmed")
	if c.cfg.APIKey != "" {
		v.Set("api_key", c.cfg.APIKey)
	}
	if c.cfg.Tool != "" {
		v.Set("tool", c.cfg.Tool)
	}
	if c.cfg.Email != "" {
		v.Set("email", c.cfg.Email)
	}
	for k, vs := range extra {
		v[k] = vs
	}
	return v
}

// stageLog returns the client logger tagged with a stage name.
func (c *Client) stageLog(stage string) zerolog.Logger {
	return observability.WithStage(c.log, stage)
}

// chunk splits ids into consecutive batches of at most n.
func chunk(ids []string, n int) [][]string {
	if n <= 0 {
		n = 1
	}
	var out [][]string
	for start := 0; start < len(ids); start += n {
		end := start + n
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[start:end])
	}
	return out
}

// missing returns the ids of batch that are not keys of got.
func missing[T any](batch []string, got map[string]T) []string {
	var out []string
	for _, id := range batch {
		if _, ok := got[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
