// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/pdiddy/paper-crawler/pkg/types"
)

// snippetLength is the abstract length shown per article in the summary.
const snippetLength = 150

// FormatSummary prints the first n relevant articles of env followed by a
// table of run counts.
func FormatSummary(w io.Writer, env types.ResultEnvelope, n int) {
	relevant := env.Relevant()

	if n > 0 && len(relevant) > 0 {
		shown := min(n, len(relevant))
		fmt.Fprintf(w, "First %d relevant articles:\n\n", shown)
		for _, a := range relevant[:shown] {
			formatArticle(w, a)
		}
	} else if len(relevant) == 0 {
		fmt.Fprintln(w, "No relevant articles found.")
		fmt.Fprintln(w)
	}

	formatCounts(w, env)
}

func formatArticle(w io.Writer, a types.ArticleRecord) {
	fmt.Fprintf(w, "- Title: %s\n", orNA(a.Title))
	if a.Abstract != "" {
		fmt.Fprintf(w, "  Abstract: %s\n", snippet(a.Abstract, snippetLength))
	} else {
		fmt.Fprintln(w, "  Abstract: N/A")
	}
	fmt.Fprintf(w, "  PMID: %s\n", a.ID)
	fmt.Fprintf(w, "  DOI: %s\n", orNA(a.DOI))
	fmt.Fprintf(w, "  URL: %s\n", orNA(a.URL))
	fmt.Fprintf(w, "  Date: %s\n", orNA(a.PublicationDate))
	if a.Citations != nil {
		fmt.Fprintf(w, "  Citations: %d (%s)\n", a.Citations.Count, a.Citations.Source)
	}
	fmt.Fprintf(w, "  Keywords: %s\n", strings.Join(a.MatchedKeywords, ", "))
	fmt.Fprintf(w, "  Authors: %s\n", orNA(strings.Join(a.Authors, ", ")))
	fmt.Fprintln(w)
}

func formatCounts(w io.Writer, env types.ResultEnvelope) {
	missingMeta, missingAbs := 0, 0
	for _, a := range env.Articles {
		if !a.HasMetadata {
			missingMeta++
		}
		if !a.HasAbstract {
			missingAbs++
		}
	}

	rows := [][2]string{
		{"Journal", env.Query.Journal},
		{"Years", env.Query.FromYear + "-" + env.Query.ToYear},
		{"Total found", fmt.Sprint(env.TotalFound)},
		{"Articles", fmt.Sprint(len(env.Articles))},
		{"Relevant", fmt.Sprint(env.RelevantCount)},
		{"Missing metadata", fmt.Sprint(missingMeta)},
		{"Missing abstract", fmt.Sprint(missingAbs)},
	}

	width := 0
	for _, r := range rows {
		width = max(width, runewidth.StringWidth(r[0]))
	}
	valueWidth := 0
	for _, r := range rows {
		valueWidth = max(valueWidth, runewidth.StringWidth(r[1]))
	}

	fmt.Fprintln(w, strings.Repeat("-", width+valueWidth+3))
	for _, r := range rows {
		fmt.Fprintf(w, "%s : %s\n", runewidth.FillRight(r[0], width), r[1])
	}
	fmt.Fprintln(w, strings.Repeat("-", width+valueWidth+3))
}

// snippet truncates s to at most n display columns, marking the cut.
func snippet(s string, n int) string {
	if runewidth.StringWidth(s) <= n {
		return s
	}
	return runewidth.Truncate(s, n, "...")
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
