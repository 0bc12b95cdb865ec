// Package retrieve answers queries against a fully built repository
// graph: it locates anchor nodes from free-text signals and extracts a
// bounded, connectivity-relevant subgraph around them. All operations
// are read-only; the graph is never mutated by retrieval.
package retrieve

import (
	"sort"
	"strings"

	"github.com/zheng/repograph/internal/graph"
)

// DefaultSimilarityThreshold is the fuzzy-match cutoff on the 0-100
// Levenshtein ratio scale.
const DefaultSimilarityThreshold = 70

// defaultStopWords are removed from natural-language queries before
// term matching.
var defaultStopWords = []string{
	"the", "a", "an", "and", "or", "but", "in", "on", "at", "to",
	"for", "of", "with", "by", "is", "are", "was", "were", "be",
	"been", "being", "have", "has", "had", "do", "does", "did",
	"will", "would", "could", "should", "may", "might", "must",
	"can", "this", "that", "these", "those", "it", "its", "as",
	"from", "into", "about", "not", "no", "what", "which", "who",
	"when", "where", "why", "how", "all", "any", "some",
}

// queryMatchFraction is the minimum share of query terms that must
// appear in a node's text for a query match.
const queryMatchFraction = 0.30

// Locator matches free-text signals against graph nodes.
type Locator struct {
	threshold int
	stopWords map[string]struct{}
}

// NewLocator creates a locator. A non-positive threshold selects the
// default; nil stopWords selects the default list.
func NewLocator(threshold int, stopWords []string) *Locator {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	if stopWords == nil {
		stopWords = defaultStopWords
	}
	set := make(map[string]struct{}, len(stopWords))
	for _, w := range stopWords {
		set[strings.ToLower(w)] = struct{}{}
	}
	return &Locator{threshold: threshold, stopWords: set}
}

// LocateAnchors returns the union of node ids matched by entity names,
// keywords, and natural-language queries, sorted by id. With no inputs
// the anchor set is empty; callers wanting the whole graph should not
// go through anchor-based retrieval.
func (l *Locator) LocateAnchors(g *graph.Graph, entities, keywords, queries []string) []string {
	anchors := make(map[string]struct{})

	for _, name := range entities {
		l.matchEntity(g, name, anchors)
	}
	for _, kw := range keywords {
		l.matchKeyword(g, kw, anchors)
	}
	for _, q := range queries {
		l.matchQuery(g, q, anchors)
	}

	out := make([]string, 0, len(anchors))
	for id := range anchors {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// matchEntity matches a named entity: literal substring of the id or
// file path, or fuzzy similarity against the display name above the
// threshold.
func (l *Locator) matchEntity(g *graph.Graph, name string, anchors map[string]struct{}) {
	if name == "" {
		return
	}
	lower := strings.ToLower(name)
	for _, e := range g.Entities() {
		if strings.Contains(e.ID, name) {
			anchors[e.ID] = struct{}{}
			continue
		}
		if e.Name != "" && ratio(lower, strings.ToLower(e.Name)) > l.threshold {
			anchors[e.ID] = struct{}{}
			continue
		}
		if e.FilePath != "" && strings.Contains(e.FilePath, name) {
			anchors[e.ID] = struct{}{}
		}
	}
}

// matchKeyword matches a keyword case-insensitively against content
// preview, doc text and id.
func (l *Locator) matchKeyword(g *graph.Graph, keyword string, anchors map[string]struct{}) {
	if keyword == "" {
		return
	}
	kw := strings.ToLower(keyword)
	for _, e := range g.Entities() {
		if strings.Contains(strings.ToLower(e.ContentPreview), kw) ||
			strings.Contains(strings.ToLower(e.Doc), kw) ||
			strings.Contains(strings.ToLower(e.ID), kw) {
			anchors[e.ID] = struct{}{}
		}
	}
}

// matchQuery extracts content terms from a natural-language query and
// matches nodes where at least 30% of the terms occur. An empty term
// list matches nothing.
func (l *Locator) matchQuery(g *graph.Graph, query string, anchors map[string]struct{}) {
	terms := l.extractTerms(query)
	if len(terms) == 0 {
		return
	}
	needed := float64(len(terms)) * queryMatchFraction

	for _, e := range g.Entities() {
		blob := strings.ToLower(e.ContentPreview + " " + e.Doc + " " + e.Name + " " + e.ID)
		hits := 0
		for _, term := range terms {
			if strings.Contains(blob, term) {
				hits++
			}
		}
		if float64(hits) >= needed {
			anchors[e.ID] = struct{}{}
		}
	}
}

// extractTerms lowercases the query, strips stop words and discards
// tokens of length <= 2.
func (l *Locator) extractTerms(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !isWordRune(r)
	})
	var terms []string
	for _, f := range fields {
		if len(f) <= 2 {
			continue
		}
		if _, stop := l.stopWords[f]; stop {
			continue
		}
		terms = append(terms, f)
	}
	return terms
}

func isWordRune(r rune) bool {
	return r == '_' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}

// ratio is the normalized Levenshtein similarity between two strings,
// scaled 0-100. Identical strings score 100; an empty string against a
// non-empty one scores 0.
func ratio(a, b string) int {
	if a == b {
		return 100
	}
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 100
	}
	dist := levenshtein(ra, rb)
	return (longest - dist) * 100 / longest
}

// levenshtein computes edit distance with a rolling single-row table.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	row := make([]int, len(b)+1)
	for j := range row {
		row[j] = j
	}
	for i := 1; i <= len(a); i++ {
		prev := row[0]
		row[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur := row[j]
			row[j] = min3(row[j]+1, row[j-1]+1, prev+cost)
			prev = cur
		}
	}
	return row[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
