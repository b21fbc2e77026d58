// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubmed

import (
	"fmt"
	"strings"

	"github.com/pdiddy/paper-crawler/pkg/types"
)

// ExcludedTypes are the publication types a research-only query drops.
var ExcludedTypes = []string{"Review", "Editorial", "Letter", "Comment"}

// BuildTerm renders a SearchQuery as an E-utilities search term:
//
//	"<journal>"[Journal] AND <from>:<to>[pdat]
//
// followed, for research-only queries, by a clause that keeps journal
// articles and drops the ExcludedTypes.
func BuildTerm(q types.SearchQuery) string {
	var b strings.Builder
	fmt.Fprintf(&b, `"%s"[Journal] AND %s:%s[pdat]`, q.Journal, q.FromYear, q.ToYear)

	if q.ResearchOnly {
		b.WriteString(` AND ("Journal Article"[Publication Type]`)
		for _, t := range ExcludedTypes {
			fmt.Fprintf(&b, ` NOT "%s"[Publication Type]`, t)
		}
		b.WriteString(")")
	}
	return b.String()
}
