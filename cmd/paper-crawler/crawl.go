// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-crawler/internal/archive"
	"github.com/pdiddy/paper-crawler/internal/citations"
	"github.com/pdiddy/paper-crawler/internal/config"
	"github.com/pdiddy/paper-crawler/internal/crawl"
	"github.com/pdiddy/paper-crawler/internal/httputil"
	"github.com/pdiddy/paper-crawler/internal/observability"
	"github.com/pdiddy/paper-crawler/internal/pubmed"
	"github.com/pdiddy/paper-crawler/internal/report"
	"github.com/pdiddy/paper-crawler/pkg/types"
)

const metricsNamespace = "paper_crawler"

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Search a journal on PubMed and write the keyword report",
	Long: `Crawl searches PubMed for articles published by a journal in a year
range, fetches their summaries and abstracts, and flags each article whose
title or abstract contains one of the keywords. Reviews, editorials,
letters and comments are excluded unless --include-all-types is set.

Every article found is written to the JSON report; keyword matches only
set isRelevant. With --citations, citation counts are looked up from
Semantic Scholar, Crossref, OpenAlex and NIH iCite.`,
	RunE: runCrawl,
}

func init() {
	f := crawlCmd.Flags()
	f.String("journal", "", "journal title abbreviation (default \"Radiol Artif Intell\")")
	f.String("from-year", "", "first publication year (default 2019)")
	f.String("to-year", "", "last publication year (default 3000)")
	f.Int("max-articles", -1, "maximum number of articles, -1 for all")
	f.StringP("output", "o", "", "JSON report path (default outputs/radiol_ai_lang_model_papers.json)")
	f.Bool("include-all-types", false, "keep reviews, editorials, letters and comments")
	f.StringSlice("keywords", nil, "keywords to match (comma-separated, replaces the defaults)")
	f.Bool("citations", false, "look up citation counts")
	f.String("csl", "", "also write relevant articles as CSL-YAML to this path")
	f.String("archive", "", "record the run in this SQLite database")
	f.String("metrics-file", "", "write run metrics in Prometheus text format to this path")
	f.Int("summary", 5, "number of relevant articles to print")

	for key, flag := range map[string]string{
		config.KeyJournal:      "journal",
		config.KeyFromYear:     "from-year",
		config.KeyToYear:       "to-year",
		config.KeyMaxArticles:  "max-articles",
		config.KeyOutput:       "output",
		config.KeyKeywords:     "keywords",
		config.KeyCitations:    "citations",
		config.KeyCSL:          "csl",
		config.KeyArchive:      "archive",
		config.KeyMetricsFile:  "metrics-file",
		config.KeySummaryCount: "summary",
	} {
		if err := viper.BindPFlag(key, f.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, args []string) error {
	if all, _ := cmd.Flags().GetBool("include-all-types"); all {
		viper.Set(config.KeyResearchOnly, false)
	}

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics(metricsNamespace)
	crawler := newCrawler(cfg, logger, metrics)

	env, runErr := crawler.Run(ctx, crawl.Options{
		Query:       cfg.Query(),
		MaxArticles: cfg.MaxArticles,
		Keywords:    cfg.Keywords,
	})
	if runErr != nil {
		writeMetrics(cfg, metrics)
		return runErr
	}

	if err := report.WriteJSON(cfg.Output.Path, env); err != nil {
		return err
	}
	logger.Info().Str("path", cfg.Output.Path).Int("articles", len(env.Articles)).Msg("report saved")

	if cfg.Output.CSLPath != "" {
		if err := report.WriteCSLFile(cfg.Output.CSLPath, env); err != nil {
			return err
		}
		logger.Info().Str("path", cfg.Output.CSLPath).Int("items", env.RelevantCount).Msg("bibliography saved")
	}

	if cfg.Output.ArchivePath != "" {
		if err := archiveRun(ctx, cfg.Output.ArchivePath, env); err != nil {
			return err
		}
	}

	report.FormatSummary(cmd.OutOrStdout(), env, cfg.Output.SummaryCount)
	writeMetrics(cfg, metrics)
	return nil
}

// newCrawler builds the stage clients from cfg. E-utilities and the
// citation services each get their own pacer.
func newCrawler(cfg types.CrawlConfig, log zerolog.Logger, metrics *observability.Metrics) *crawl.Crawler {
	policy := httputil.Policy{
		MaxRetries: cfg.HTTP.MaxRetries,
		BaseWait:   cfg.HTTP.BaseWait,
		Timeout:    cfg.HTTP.Timeout,
	}

	eutils := httputil.NewClient(httputil.ClientConfig{
		Policy:    policy,
		Delay:     cfg.HTTP.Delay,
		UserAgent: cfg.HTTP.UserAgent,
	}, log, metrics)

	pm := pubmed.New(eutils, pubmed.Config{
		BaseURL:           cfg.PubMed.BaseURL,
		APIKey:            cfg.PubMed.APIKey,
		Tool:              cfg.PubMed.Tool,
		Email:             cfg.PubMed.Email,
		BatchSize:         cfg.PubMed.BatchSize,
		AbstractBatchSize: cfg.PubMed.AbstractBatchSize,
	}, log, metrics)

	c := &crawl.Crawler{
		Search:    pm,
		Metadata:  pm,
		Abstracts: pm,
		Log:       log,
		Metrics:   metrics,
	}

	if cfg.Citations.Enabled {
		cc := httputil.NewClient(httputil.ClientConfig{
			Policy:    policy,
			Delay:     cfg.Citations.Delay,
			UserAgent: cfg.HTTP.UserAgent,
		}, log, metrics)

		var s2 httputil.Fetcher = cc
		if key := cfg.Citations.SemanticScholarAPIKey; key != "" {
			s2 = cc.WithHeader("x-api-key", key)
		}
		c.Citations = &citations.Enricher{
			Sources: citations.DefaultSources(cc, s2),
			Log:     observability.WithStage(log, crawl.StageCitations),
			Metrics: metrics,
		}
	}
	return c
}

func archiveRun(ctx context.Context, path string, env types.ResultEnvelope) error {
	store, err := archive.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := store.SaveRun(ctx, env)
	if err != nil {
		return err
	}
	logger.Info().Str("path", path).Str("run", id).Msg("run archived")
	return nil
}

// writeMetrics saves the metrics textfile when configured. Failures are
// logged and do not change the exit status.
func writeMetrics(cfg types.CrawlConfig, metrics *observability.Metrics) {
	if cfg.Output.MetricsFile == "" {
		return
	}
	if err := metrics.WriteTextfile(cfg.Output.MetricsFile); err != nil {
		logger.Warn().Err(err).Str("path", cfg.Output.MetricsFile).Msg("could not write metrics")
	}
}
