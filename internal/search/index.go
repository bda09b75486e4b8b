// Package search provides a small, deterministic, concurrency-safe in-memory
// index used to rank directory people against free-text queries (the chat
// @mention picker and the approver search box).
//
// The index is immutable once built and safe for concurrent use. Tokens are
// Unicode words, so addresses split on punctuation, and ties rank by ID.
//
// Scoring is Jaccard similarity between the query token set Q and a
// document token set D, where a query token also counts as a hit when it is
// a prefix of some document token: score = hits / |Q ∪ D|.
package search

import (
	"cmp"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"
)

// Document is one indexed entity. Fields are concatenated for tokenization;
// ID is returned in results.
type Document struct {
	ID     string
	Fields []string
}

// Result is a ranked document ID with its similarity score.
type Result struct {
	ID    string
	Score float64
}

// Index is the minimal interface implemented by all search indices.
type Index interface {
	TopK(query string, k int) []Result
	Len() int
}

// Option tunes NewIndex.
type Option func(*config)

type config struct {
	stopwords      map[string]struct{}
	minPrefixRunes int
}

func defaultConfig() config { return config{minPrefixRunes: 2} }

// WithStopwords drops the given words from documents and queries.
func WithStopwords(words []string) Option {
	return func(c *config) {
		m := make(map[string]struct{}, len(words))
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				m[w] = struct{}{}
			}
		}
		if len(m) > 0 {
			c.stopwords = m
		}
	}
}

// WithPrefixMatch sets the minimum query token length for prefix hits.
// Zero disables prefix matching.
func WithPrefixMatch(minRunes int) Option {
	return func(c *config) {
		if minRunes >= 0 {
			c.minPrefixRunes = minRunes
		}
	}
}

type doc struct {
	id     string
	tokens map[string]struct{}
}

type index struct {
	cfg  config
	docs []doc
}

// NewIndex builds an Index over docs. Documents without an ID or without any
// token are skipped; later duplicates of an ID are ignored.
func NewIndex(docs []Document, opts ...Option) Index {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	out := make([]doc, 0, len(docs))
	seen := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		id := strings.TrimSpace(d.ID)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		toks := tokenize(strings.Join(d.Fields, " "), cfg.stopwords)
		if len(toks) == 0 {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, doc{id: id, tokens: toks})
	}
	return &index{cfg: cfg, docs: out}
}

// Len returns the number of indexed documents.
func (i *index) Len() int { return len(i.docs) }

// TopK returns up to k best-matching documents. A non-positive k means 10.
func (i *index) TopK(q string, k int) []Result {
	if len(i.docs) == 0 || strings.TrimSpace(q) == "" {
		return nil
	}
	if k <= 0 {
		k = 10
	}
	qTokens := tokenize(q, i.cfg.stopwords)
	if len(qTokens) == 0 {
		return nil
	}

	buf := make([]Result, 0, min(k*4, len(i.docs)))
	for _, d := range i.docs {
		hits, exact := i.hits(qTokens, d.tokens)
		if hits == 0 {
			continue
		}
		union := float64(len(qTokens) + len(d.tokens) - exact)
		if union <= 0 {
			continue
		}
		buf = append(buf, Result{ID: d.id, Score: float64(hits) / union})
	}
	if len(buf) == 0 {
		return nil
	}

	slices.SortFunc(buf, func(a, b Result) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return buf[:min(k, len(buf))]
}

// hits counts query tokens found in d, exactly or as a prefix, and reports
// how many of them were exact (those shrink the union).
func (i *index) hits(q, d map[string]struct{}) (hits, exact int) {
	for t := range q {
		if _, ok := d[t]; ok {
			hits++
			exact++
			continue
		}
		if i.cfg.minPrefixRunes == 0 || utf8.RuneCountInString(t) < i.cfg.minPrefixRunes {
			continue
		}
		for dt := range d {
			if strings.HasPrefix(dt, t) {
				hits++
				break
			}
		}
	}
	return hits, exact
}

var wordRE = regexp.MustCompile(`\p{L}+\p{N}*|\p{N}+`)

func tokenize(s string, stop map[string]struct{}) map[string]struct{} {
	words := wordRE.FindAllString(strings.ToLower(s), -1)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if stop != nil {
			if _, skip := stop[w]; skip {
				continue
			}
		}
		out[w] = struct{}{}
	}
	return out
}
