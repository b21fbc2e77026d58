// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config assembles a CrawlConfig from defaults, an optional YAML
// file, the environment, secret files and command-line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-crawler/internal/secrets"
	"github.com/pdiddy/paper-crawler/pkg/types"
)

// EnvPrefix namespaces environment overrides, e.g. PAPER_CRAWLER_JOURNAL
// or PAPER_CRAWLER_PUBMED_BATCH_SIZE.
const EnvPrefix = "PAPER_CRAWLER"

// Name is the config file base name searched for when --config is unset.
const Name = "paper-crawler"

// DefaultKeywords are the language-model terms matched when no keywords
// are configured.
var DefaultKeywords = []string{
	"language model", "llm", "gpt", "bert", "transformer",
	"nlp", "natural language processing", "chatgpt", "claude", "prompt",
	"llama", "mistral", "gemini", "text-to-text", "text generation", "text embedding",
	"foundation model", "generative ai", "generative model",
}

// Viper keys. Nested keys follow the mapstructure tags in pkg/types.
const (
	KeyJournal       = "journal"
	KeyFromYear      = "from_year"
	KeyToYear        = "to_year"
	KeyResearchOnly  = "research_only"
	KeyMaxArticles   = "max_articles"
	KeyKeywords      = "keywords"
	KeyTimeout       = "http.timeout"
	KeyUserAgent     = "http.user_agent"
	KeyMaxRetries    = "http.max_retries"
	KeyBaseWait      = "http.base_wait"
	KeyDelay         = "http.delay"
	KeyBaseURL       = "pubmed.base_url"
	KeyAPIKey        = "pubmed.api_key"
	KeyTool          = "pubmed.tool"
	KeyEmail         = "pubmed.email"
	KeyBatchSize     = "pubmed.batch_size"
	KeyAbstractBatch = "pubmed.abstract_batch_size"
	KeyCitations     = "citations.enabled"
	KeyS2APIKey      = "citations.semantic_scholar_api_key"
	KeyCitationDelay = "citations.delay"
	KeyOutput        = "output.path"
	KeyCSL           = "output.csl_path"
	KeyArchive       = "output.archive_path"
	KeyMetricsFile   = "output.metrics_file"
	KeySummaryCount  = "output.summary_count"
	KeyLogLevel      = "logging.level"
	KeyLogFormat     = "logging.format"
)

// SetDefaults registers every default value on v. Registering a default
// for each key also lets AutomaticEnv resolve nested keys during Unmarshal.
func SetDefaults(v *viper.Viper, version string) {
	v.SetDefault(KeyJournal, "Radiol Artif Intell")
	v.SetDefault(KeyFromYear, "2019")
	v.SetDefault(KeyToYear, "3000")
	v.SetDefault(KeyResearchOnly, true)
	v.SetDefault(KeyMaxArticles, -1)
	v.SetDefault(KeyKeywords, DefaultKeywords)

	v.SetDefault(KeyTimeout, 30*time.Second)
	v.SetDefault(KeyUserAgent, "paper-crawler/"+version)
	v.SetDefault(KeyMaxRetries, 5)
	v.SetDefault(KeyBaseWait, time.Second)
	v.SetDefault(KeyDelay, 340*time.Millisecond)

	v.SetDefault(KeyBaseURL, "")
	v.SetDefault(KeyAPIKey, "")
	v.SetDefault(KeyTool, "paper-crawler")
	v.SetDefault(KeyEmail, "")
	v.SetDefault(KeyBatchSize, 100)
	v.SetDefault(KeyAbstractBatch, 10)

	v.SetDefault(KeyCitations, false)
	v.SetDefault(KeyS2APIKey, "")
	v.SetDefault(KeyCitationDelay, time.Second)

	v.SetDefault(KeyOutput, "outputs/radiol_ai_lang_model_papers.json")
	v.SetDefault(KeyCSL, "")
	v.SetDefault(KeyArchive, "")
	v.SetDefault(KeyMetricsFile, "")
	v.SetDefault(KeySummaryCount, 5)

	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
}

// BindEnv turns on PAPER_CRAWLER_* overrides for v.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// LoadDotEnv loads KEY=value pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// secretKeys maps secret file names to the config keys they fill.
var secretKeys = map[string]string{
	secrets.NCBIAPIKey:            KeyAPIKey,
	secrets.NCBIEmail:             KeyEmail,
	secrets.SemanticScholarAPIKey: KeyS2APIKey,
}

// ApplySecrets fills credential keys that no other source has set.
// It returns the config keys it filled.
func ApplySecrets(v *viper.Viper, s map[string]string) []string {
	var applied []string
	for name, key := range secretKeys {
		val, ok := s[name]
		if !ok || v.GetString(key) != "" {
			continue
		}
		v.Set(key, val)
		applied = append(applied, key)
	}
	return applied
}

// Load decodes v into a CrawlConfig and validates it.
func Load(v *viper.Viper) (types.CrawlConfig, error) {
	var cfg types.CrawlConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return types.CrawlConfig{}, &types.ConfigurationError{Message: err.Error()}
	}
	cfg.Keywords = cleanKeywords(cfg.Keywords)

	if err := Validate(cfg); err != nil {
		return types.CrawlConfig{}, err
	}
	return cfg, nil
}

// yearPattern is a plain four-digit year, the form PubMed's [pdat] range takes.
var yearPattern = regexp.MustCompile(`^[0-9]{4}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	if err := val.RegisterValidation("year", func(fl validator.FieldLevel) bool {
		return yearPattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	// Report fields by their config key rather than the Go field name.
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return val
}

// Validate checks field constraints and the year range. The first failure
// is returned as a *types.ConfigurationError.
func Validate(cfg types.CrawlConfig) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &types.ConfigurationError{
				Field:   fieldPath(fe.Namespace()),
				Message: describe(fe),
			}
		}
		return &types.ConfigurationError{Message: err.Error()}
	}

	from, err := strconv.Atoi(cfg.FromYear)
	if err != nil {
		return &types.ConfigurationError{Field: KeyFromYear, Message: "must be a four-digit year"}
	}
	to, err := strconv.Atoi(cfg.ToYear)
	if err != nil {
		return &types.ConfigurationError{Field: KeyToYear, Message: "must be a four-digit year"}
	}
	if from > to {
		return &types.ConfigurationError{
			Field:   KeyFromYear,
			Message: fmt.Sprintf("from year %s is after to year %s", cfg.FromYear, cfg.ToYear),
		}
	}
	return nil
}

// fieldPath drops the root struct name from a validator namespace:
// "CrawlConfig.pubmed.batch_size" becomes "pubmed.batch_size".
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "len":
		return fmt.Sprintf("must be %s characters long", fe.Param())
	case "year":
		return "must be a four-digit year"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "url":
		return "must be a URL"
	case "email":
		return "must be an email address"
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}

// cleanKeywords trims keywords and drops blanks, so a trailing comma in
// --keywords or the environment does not fail validation.
func cleanKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	for _, k := range in {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}
