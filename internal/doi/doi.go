// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package doi normalizes Digital Object Identifiers as they appear in
// PubMed summaries and citation services.
package doi

import (
	"regexp"
	"strings"
)

// doiPattern matches bare DOIs: "10.1148/ryai.2020190043".
var doiPattern = regexp.MustCompile(`^10\.\d{4,9}/[^\s]+$`)

// embeddedPattern finds a DOI inside free text such as an ELocationID
// ("pii: e190043. doi: 10.1148/ryai.2020190043").
var embeddedPattern = regexp.MustCompile(`10\.\d{4,9}/[^\s]+`)

// prefixes are stripped case-insensitively, longest first.
var prefixes = []string{
	"https://dx.doi.org/",
	"http://dx.doi.org/",
	"https://doi.org/",
	"http://doi.org/",
	"doi.org/",
	"doi:",
}

// Normalize strips resolver and "doi:" prefixes and surrounding
// whitespace. It returns "" when what remains is not a DOI.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	for _, p := range prefixes {
		if len(s) >= len(p) && strings.EqualFold(s[:len(p)], p) {
			s = strings.TrimSpace(s[len(p):])
			break
		}
	}
	s = strings.TrimRight(s, ".;,")
	if !Valid(s) {
		return ""
	}
	return s
}

// Valid reports whether s is a bare DOI.
func Valid(s string) bool {
	return doiPattern.MatchString(s)
}

// Extract returns the first DOI found anywhere in s, or "".
func Extract(s string) string {
	m := embeddedPattern.FindString(s)
	return strings.TrimRight(m, ".;,")
}
