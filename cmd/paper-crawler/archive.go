// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-crawler/internal/archive"
	"github.com/pdiddy/paper-crawler/internal/config"
	"github.com/pdiddy/paper-crawler/pkg/types"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Inspect runs recorded with crawl --archive",
	Long: `Archive reads the SQLite database written by crawl --archive. Use
subcommands to list past runs or the articles they produced.`,
}

// --- runs subcommand ---

var archiveRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List archived runs, newest first",
	RunE:  runArchiveRuns,
}

func runArchiveRuns(cmd *cobra.Command, args []string) error {
	store, err := openArchive(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return encodeJSON(out, runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs archived.")
		return nil
	}

	fmt.Fprintf(out, "%-36s  %-20s  %-24s  %-9s  %8s  %8s\n",
		"Run", "Started", "Journal", "Years", "Found", "Relevant")
	fmt.Fprintln(out, strings.Repeat("-", 116))
	for _, r := range runs {
		fmt.Fprintf(out, "%-36s  %-20s  %s  %-9s  %8d  %8d\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			fit(r.Journal, 24), r.FromYear+"-"+r.ToYear, r.TotalFound, r.RelevantCount)
	}
	fmt.Fprintf(out, "\n%d runs\n", len(runs))
	return nil
}

// --- articles subcommand ---

var archiveArticlesCmd = &cobra.Command{
	Use:   "articles",
	Short: "List archived articles",
	Long: `Articles lists stored articles across all runs, or one run with --run.
--relevant keeps keyword matches only and --query filters by a substring
of the title or abstract.`,
	RunE: runArchiveArticles,
}

func runArchiveArticles(cmd *cobra.Command, args []string) error {
	store, err := openArchive(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	f := archive.ArticleFilter{}
	f.RunID, _ = cmd.Flags().GetString("run")
	f.RelevantOnly, _ = cmd.Flags().GetBool("relevant")
	f.Query, _ = cmd.Flags().GetString("query")
	f.Limit, _ = cmd.Flags().GetInt("limit")

	articles, err := store.ListArticles(cmd.Context(), f)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return encodeJSON(out, articles)
	}
	formatArticles(out, articles)
	return nil
}

func formatArticles(out io.Writer, articles []archive.Article) {
	if len(articles) == 0 {
		fmt.Fprintln(out, "No articles found.")
		return
	}

	fmt.Fprintf(out, "%-10s  %-60s  %-12s  %-3s  %s\n", "PMID", "Title", "Date", "Rel", "Keywords")
	fmt.Fprintln(out, strings.Repeat("-", 110))
	for _, a := range articles {
		rel := ""
		if a.IsRelevant {
			rel = "yes"
		}
		fmt.Fprintf(out, "%-10s  %s  %s  %-3s  %s\n",
			a.PMID, fit(a.Title, 60), fit(a.PublicationDate, 12), rel, strings.Join(a.MatchedKeywords, ", "))
	}
	fmt.Fprintf(out, "\n%d articles\n", len(articles))
}

// fit truncates or pads s to exactly w display columns.
func fit(s string, w int) string {
	return runewidth.FillRight(runewidth.Truncate(s, w, "..."), w)
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func openArchive(cmd *cobra.Command) (*archive.Store, error) {
	path, _ := cmd.Flags().GetString("db")
	if path == "" {
		path = viper.GetString(config.KeyArchive)
	}
	if path == "" {
		return nil, &types.ConfigurationError{Field: config.KeyArchive, Message: "no archive database: pass --db or set output.archive_path"}
	}
	return archive.Open(path)
}

func init() {
	archiveCmd.PersistentFlags().String("db", "", "archive database (default: output.archive_path from config)")
	archiveCmd.PersistentFlags().Bool("json", false, "output as JSON")

	archiveArticlesCmd.Flags().String("run", "", "only articles from this run ID")
	archiveArticlesCmd.Flags().Bool("relevant", false, "only keyword matches")
	archiveArticlesCmd.Flags().String("query", "", "substring to match in title or abstract")
	archiveArticlesCmd.Flags().Int("limit", 0, "maximum number of articles (0 for all)")

	archiveCmd.AddCommand(archiveRunsCmd)
	archiveCmd.AddCommand(archiveArticlesCmd)
	rootCmd.AddCommand(archiveCmd)
}
