// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Run is one stored crawl run.
type Run struct {
	ID            string    `json:"id"`
	StartedAt     time.Time `json:"startedAt"`
	Journal       string    `json:"journal"`
	FromYear      string    `json:"fromYear"`
	ToYear        string    `json:"toYear"`
	ResearchOnly  bool      `json:"researchOnly"`
	SearchTerm    string    `json:"searchTerm"`
	TotalFound    int       `json:"totalFound"`
	RelevantCount int       `json:"relevantCount"`
}

// Article is one stored article row.
type Article struct {
	RunID           string   `json:"runId"`
	Position        int      `json:"position"`
	PMID            string   `json:"pmid"`
	Title           string   `json:"title"`
	Authors         []string `json:"authors"`
	Journal         string   `json:"journal"`
	PublicationDate string   `json:"publicationDate"`
	DOI             string   `json:"doi"`
	Abstract        string   `json:"abstract"`
	MatchedKeywords []string `json:"matchedKeywords"`
	IsRelevant      bool     `json:"isRelevant"`
	CitationCount   *int     `json:"citationCount,omitempty"`
}

// ArticleFilter narrows ListArticles.
type ArticleFilter struct {
	// RunID restricts results to one run. Empty means all runs.
	RunID string

	// RelevantOnly keeps only keyword-matched articles.
	RelevantOnly bool

	// Query is a case-insensitive substring matched against title and
	// abstract.
	Query string

	// Limit caps the number of rows. Zero means no limit.
	Limit int
}

// ListRuns returns stored runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, journal, from_year, to_year, research_only,
			search_term, total_found, relevant_count
		 FROM runs ORDER BY started_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r       Run
			started string
		)
		if err := rows.Scan(&r.ID, &started, &r.Journal, &r.FromYear, &r.ToYear,
			&r.ResearchOnly, &r.SearchTerm, &r.TotalFound, &r.RelevantCount); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ListArticles returns stored articles matching f, ordered by run and
// position.
func (s *Store) ListArticles(ctx context.Context, f ArticleFilter) ([]Article, error) {
	var (
		qb   strings.Builder
		args []any
	)

	qb.WriteString(
		`SELECT a.run_id, a.position, a.pmid, a.title, a.authors, a.journal,
			a.publication_date, a.doi, a.abstract, a.matched_keywords,
			a.is_relevant, a.citation_count
		FROM articles a
		JOIN runs r ON r.id = a.run_id
		WHERE 1=1`)

	if f.RunID != "" {
		qb.WriteString(` AND a.run_id = ?`)
		args = append(args, f.RunID)
	}
	if f.RelevantOnly {
		qb.WriteString(` AND a.is_relevant = 1`)
	}
	if f.Query != "" {
		qb.WriteString(` AND (a.title LIKE ? ESCAPE '\' OR a.abstract LIKE ? ESCAPE '\')`)
		pattern := "%" + escapeLike(f.Query) + "%"
		args = append(args, pattern, pattern)
	}

	qb.WriteString(` ORDER BY r.started_at DESC, a.run_id, a.position`)
	if f.Limit > 0 {
		qb.WriteString(` LIMIT ?`)
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying articles: %w", err)
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		var (
			a            Article
			title        sql.NullString
			authorsJSON  sql.NullString
			journal      sql.NullString
			date         sql.NullString
			doi          sql.NullString
			abstract     sql.NullString
			keywordsJSON sql.NullString
			citations    sql.NullInt64
		)
		if err := rows.Scan(&a.RunID, &a.Position, &a.PMID, &title, &authorsJSON,
			&journal, &date, &doi, &abstract, &keywordsJSON,
			&a.IsRelevant, &citations); err != nil {
			return nil, fmt.Errorf("scanning article: %w", err)
		}

		a.Title = title.String
		a.Journal = journal.String
		a.PublicationDate = date.String
		a.DOI = doi.String
		a.Abstract = abstract.String
		if authorsJSON.Valid {
			json.Unmarshal([]byte(authorsJSON.String), &a.Authors)
		}
		if keywordsJSON.Valid {
			json.Unmarshal([]byte(keywordsJSON.String), &a.MatchedKeywords)
		}
		if citations.Valid {
			n := int(citations.Int64)
			a.CitationCount = &n
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// escapeLike escapes LIKE wildcards so the query matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
