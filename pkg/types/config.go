package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout bounds a single request attempt.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paper-crawler/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// MaxRetries is the number of retries after the first attempt (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries" validate:"gte=0,lte=20"`

	// BaseWait is the first backoff interval; it doubles on each retry (default 1s).
	BaseWait time.Duration `json:"base_wait" yaml:"base_wait" mapstructure:"base_wait" validate:"gte=0"`

	// Delay is the minimum spacing between consecutive requests (default 340ms,
	// which keeps an unauthenticated client under three requests per second).
	Delay time.Duration `json:"delay" yaml:"delay" mapstructure:"delay" validate:"gte=0"`
}

// PubMedConfig holds settings for the E-utilities stages.
type PubMedConfig struct {
	// BaseURL is the E-utilities root. Empty means the public NCBI endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url" validate:"omitempty,url"`

	// APIKey raises the NCBI rate limit to ten requests per second.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Tool and Email identify the caller to NCBI.
	Tool  string `json:"tool,omitempty" yaml:"tool,omitempty" mapstructure:"tool"`
	Email string `json:"email,omitempty" yaml:"email,omitempty" mapstructure:"email" validate:"omitempty,email"`

	// BatchSize is the page size for esearch and the batch size for esummary (default 100).
	BatchSize int `json:"batch_size" yaml:"batch_size" mapstructure:"batch_size" validate:"gt=0,lte=10000"`

	// AbstractBatchSize is the batch size for efetch (default 10).
	AbstractBatchSize int `json:"abstract_batch_size" yaml:"abstract_batch_size" mapstructure:"abstract_batch_size" validate:"gt=0,lte=10000"`
}

// CitationConfig holds settings for the optional citation enrichment stage.
type CitationConfig struct {
	// Enabled turns citation lookups on (default false).
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// SemanticScholarAPIKey is an optional API key for higher rate limits.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty" mapstructure:"semantic_scholar_api_key"`

	// Delay is the minimum spacing between citation requests (default 1s).
	Delay time.Duration `json:"delay" yaml:"delay" mapstructure:"delay" validate:"gte=0"`
}

// OutputConfig controls what a run writes.
type OutputConfig struct {
	// Path is the JSON report location.
	Path string `json:"path" yaml:"path" mapstructure:"path" validate:"required"`

	// CSLPath, when set, receives a CSL-YAML export of the relevant articles.
	CSLPath string `json:"csl_path,omitempty" yaml:"csl_path,omitempty" mapstructure:"csl_path"`

	// ArchivePath, when set, records the run in a SQLite database.
	ArchivePath string `json:"archive_path,omitempty" yaml:"archive_path,omitempty" mapstructure:"archive_path"`

	// MetricsFile, when set, receives the run metrics in Prometheus text format.
	MetricsFile string `json:"metrics_file,omitempty" yaml:"metrics_file,omitempty" mapstructure:"metrics_file"`

	// SummaryCount is how many relevant articles the console summary shows (default 5).
	SummaryCount int `json:"summary_count" yaml:"summary_count" mapstructure:"summary_count" validate:"gte=0"`
}

// LoggingConfig selects log level and format.
type LoggingConfig struct {
	// Level is the minimum level (debug, info, warn, error).
	Level string `json:"level" yaml:"level" mapstructure:"level" validate:"omitempty,oneof=trace debug info warn warning error"`

	// Format is "console" or "json".
	Format string `json:"format" yaml:"format" mapstructure:"format" validate:"omitempty,oneof=console json"`
}

// CrawlConfig groups everything a crawl run needs.
type CrawlConfig struct {
	Journal      string `json:"journal" yaml:"journal" mapstructure:"journal" validate:"required"`
	FromYear     string `json:"from_year" yaml:"from_year" mapstructure:"from_year" validate:"required,year"`
	ToYear       string `json:"to_year" yaml:"to_year" mapstructure:"to_year" validate:"required,year"`
	ResearchOnly bool   `json:"research_only" yaml:"research_only" mapstructure:"research_only"`

	// MaxArticles caps the number of articles; negative means unbounded.
	MaxArticles int `json:"max_articles" yaml:"max_articles" mapstructure:"max_articles"`

	// Keywords are matched case-insensitively against title and abstract.
	Keywords []string `json:"keywords" yaml:"keywords" mapstructure:"keywords" validate:"dive,required"`

	HTTP      HTTPConfig     `json:"http" yaml:"http" mapstructure:"http"`
	PubMed    PubMedConfig   `json:"pubmed" yaml:"pubmed" mapstructure:"pubmed"`
	Citations CitationConfig `json:"citations" yaml:"citations" mapstructure:"citations"`
	Output    OutputConfig   `json:"output" yaml:"output" mapstructure:"output"`
	Logging   LoggingConfig  `json:"logging" yaml:"logging" mapstructure:"logging"`
}

// Query returns the search query described by the configuration.
func (c CrawlConfig) Query() SearchQuery {
	return SearchQuery{
		Journal:      c.Journal,
		FromYear:     c.FromYear,
		ToYear:       c.ToYear,
		ResearchOnly: c.ResearchOnly,
	}
}
