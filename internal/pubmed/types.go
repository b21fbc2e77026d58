// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubmed

import (
	"encoding/xml"
	"strings"
)

// eSearchResult is the esearch.fcgi response.
type eSearchResult struct {
	XMLName   xml.Name   `xml:"eSearchResult"`
	Count     int        `xml:"Count"`
	RetMax    int        `xml:"RetMax"`
	RetStart  int        `xml:"RetStart"`
	IDList    []string   `xml:"IdList>Id"`
	Error     string     `xml:"ERROR"`
	ErrorList *errorList `xml:"ErrorList"`
}

type errorList struct {
	PhraseNotFound []string `xml:"PhraseNotFound"`
	FieldNotFound  []string `xml:"FieldNotFound"`
}

// eSummaryResult is the version 1.0 esummary.fcgi response.
type eSummaryResult struct {
	XMLName xml.Name `xml:"eSummaryResult"`
	DocSums []docSum `xml:"DocSum"`
	Errors  []string `xml:"ERROR"`
}

// docSum is one summary record: an Id and a tree of named Items.
type docSum struct {
	ID    string        `xml:"Id"`
	Items []summaryItem `xml:"Item"`
}

// summaryItem is a named value. List-typed items nest further Items.
type summaryItem struct {
	Name  string        `xml:"Name,attr"`
	Type  string        `xml:"Type,attr"`
	Value string        `xml:",chardata"`
	Items []summaryItem `xml:"Item"`
}

// item returns the first top-level item with the given name.
func (d docSum) item(name string) (summaryItem, bool) {
	for _, it := range d.Items {
		if it.Name == name {
			return it, true
		}
	}
	return summaryItem{}, false
}

// str returns the trimmed value of a top-level item, or "".
func (d docSum) str(name string) string {
	it, ok := d.item(name)
	if !ok {
		return ""
	}
	return strings.TrimSpace(it.Value)
}

// list returns the trimmed, non-empty values nested under a List item.
func (d docSum) list(name string) []string {
	out := []string{}
	it, ok := d.item(name)
	if !ok {
		return out
	}
	for _, child := range it.Items {
		if v := strings.TrimSpace(child.Value); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// pubmedArticleSet is the efetch.fcgi response.
type pubmedArticleSet struct {
	XMLName  xml.Name        `xml:"PubmedArticleSet"`
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	PMID     string    `xml:"MedlineCitation>PMID"`
	Abstract *abstract `xml:"MedlineCitation>Article>Abstract"`
}

type abstract struct {
	Texts []abstractText `xml:"AbstractText"`
}

// abstractText is one section of an abstract. Inline markup such as <i>
// or <sup> is flattened into Text.
type abstractText struct {
	Label string
	Text  string
}

// UnmarshalXML collects the character data of the element and all of
// its descendants.
func (a *abstractText) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		if attr.Name.Local == "Label" {
			a.Label = strings.TrimSpace(attr.Value)
		}
	}

	var b strings.Builder
	depth := 0
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				a.Text = collapse(b.String())
				return nil
			}
			depth--
		case xml.CharData:
			b.Write(t)
		}
	}
}

// collapse trims s and squeezes internal whitespace runs to single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
