package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-crawler/pkg/types"
)

// CSLItem represents a bibliographic entry in CSL (Citation Style Language)
// format. The field names and structure follow the CSL-JSON/CSL-YAML schema
// so that output is consumable by Pandoc and reference managers.
type CSLItem struct {
	ID             string    `yaml:"id"`
	Type           string    `yaml:"type"`
	Title          string    `yaml:"title"`
	Author         []CSLName `yaml:"author,omitempty"`
	ContainerTitle string    `yaml:"container-title,omitempty"`
	Abstract       string    `yaml:"abstract,omitempty"`
	Issued         *CSLDate  `yaml:"issued,omitempty"`
	DOI            string    `yaml:"DOI,omitempty"`
	PMID           string    `yaml:"PMID,omitempty"`
	URL            string    `yaml:"URL,omitempty"`
}

// CSLName represents a person's name in CSL format.
type CSLName struct {
	Family  string `yaml:"family,omitempty"`
	Given   string `yaml:"given,omitempty"`
	Literal string `yaml:"literal,omitempty"`
}

// CSLDate represents a date in CSL format using date-parts.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts"`
}

// WriteCSL writes the relevant articles of env as a CSL-YAML list to w.
func WriteCSL(w io.Writer, env types.ResultEnvelope) error {
	relevant := env.Relevant()
	items := make([]CSLItem, len(relevant))
	for i, a := range relevant {
		items[i] = toCSLItem(a)
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(items)
}

// WriteCSLFile writes the CSL-YAML export to path, creating parent directories.
func WriteCSLFile(path string, env types.ResultEnvelope) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating CSL directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating CSL file: %w", err)
	}
	if err := WriteCSL(f, env); err != nil {
		f.Close()
		return fmt.Errorf("writing CSL: %w", err)
	}
	return f.Close()
}

// toCSLItem converts an ArticleRecord to a CSLItem.
func toCSLItem(a types.ArticleRecord) CSLItem {
	item := CSLItem{
		ID:             "pmid" + a.ID,
		Type:           "article-journal",
		Title:          a.Title,
		ContainerTitle: a.Journal,
		Abstract:       a.Abstract,
		DOI:            a.DOI,
		PMID:           a.ID,
		URL:            a.URL,
	}

	for _, name := range a.Authors {
		item.Author = append(item.Author, parseAuthorName(name))
	}

	if parts := dateParts(a.PublicationDate); parts != nil {
		item.Issued = &CSLDate{DateParts: [][]int{parts}}
	}
	return item
}

var months = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

var yearPattern = regexp.MustCompile(`^\d{4}$`)

// dateParts converts a PubMed date ("2020 Jan 15", "2021 Mar", "2019")
// into CSL date-parts. Unknown forms keep whatever leading parts parse.
func dateParts(s string) []int {
	fields := strings.Fields(s)
	if len(fields) == 0 || !yearPattern.MatchString(fields[0]) {
		return nil
	}
	year, _ := strconv.Atoi(fields[0])
	parts := []int{year}

	if len(fields) < 2 {
		return parts
	}
	m, ok := months[strings.ToLower(fields[1][:min(3, len(fields[1]))])]
	if !ok {
		return parts
	}
	parts = append(parts, m)

	if len(fields) >= 3 {
		if d, err := strconv.Atoi(fields[2]); err == nil && d >= 1 && d <= 31 {
			parts = append(parts, d)
		}
	}
	return parts
}

// parseAuthorName splits a PubMed author string ("Smith JA") into CSL
// family/given parts. The trailing token is treated as initials.
// Single-token names use the literal field.
func parseAuthorName(name string) CSLName {
	name = strings.TrimSpace(name)
	if name == "" {
		return CSLName{}
	}
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return CSLName{Literal: name}
	}
	return CSLName{
		Family: name[:idx],
		Given:  name[idx+1:],
	}
}
