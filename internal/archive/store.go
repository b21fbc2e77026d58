// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package archive keeps a SQLite history of crawl runs and the articles
// each run produced.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/paper-crawler/pkg/types"
)

// Store manages the archive database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the archive database at path and creates the
// schema if it does not exist.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating archive directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			journal TEXT NOT NULL,
			from_year TEXT NOT NULL,
			to_year TEXT NOT NULL,
			research_only INTEGER NOT NULL,
			search_term TEXT NOT NULL,
			total_found INTEGER NOT NULL,
			relevant_count INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS articles (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			pmid TEXT NOT NULL,
			title TEXT,
			authors TEXT,
			journal TEXT,
			publication_date TEXT,
			doi TEXT,
			abstract TEXT,
			matched_keywords TEXT,
			is_relevant INTEGER NOT NULL,
			citation_count INTEGER,
			PRIMARY KEY (run_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_pmid ON articles(pmid)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_relevant ON articles(run_id, is_relevant)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveRun stores env as a new run and returns its generated ID. The run
// and all its articles are written in one transaction.
func (s *Store) SaveRun(ctx context.Context, env types.ResultEnvelope) (string, error) {
	id := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, journal, from_year, to_year, research_only,
			search_term, total_found, relevant_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, s.now().UTC().Format(time.RFC3339Nano),
		env.Query.Journal, env.Query.FromYear, env.Query.ToYear, env.Query.ResearchOnly,
		env.SearchTerm, env.TotalFound, env.RelevantCount,
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO articles (run_id, position, pmid, title, authors, journal,
			publication_date, doi, abstract, matched_keywords, is_relevant, citation_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, a := range env.Articles {
		authorsJSON, _ := json.Marshal(a.Authors)
		keywordsJSON, _ := json.Marshal(a.MatchedKeywords)
		var citations sql.NullInt64
		if a.Citations != nil {
			citations = sql.NullInt64{Int64: int64(a.Citations.Count), Valid: true}
		}
		_, err := stmt.ExecContext(ctx,
			id, i, a.ID, a.Title, string(authorsJSON), a.Journal,
			a.PublicationDate, a.DOI, a.Abstract, string(keywordsJSON),
			a.IsRelevant, citations,
		)
		if err != nil {
			return "", fmt.Errorf("inserting article %s: %w", a.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run: %w", err)
	}
	return id, nil
}
