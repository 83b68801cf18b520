package semantic

import "strings"

// normalizedQuery is the cached result of running a raw query string through the
// stemmer: its original text plus the per-word stems used to widen a full-text search
// to morphological variants.
type normalizedQuery struct {
	Original string
	Terms    []string
	Stems    []string
}

// QueryExpander ties the Stemmer, FuzzyMatcher and an LRU cache of normalized queries
// together. Its StemmedPrefixQuery feeds the Dispatcher's aggregation step as the
// lowest-ranked signal, widening recall to morphological variants; FuzzyExpand is not
// called by the Dispatcher.
type QueryExpander struct {
	stemmer *Stemmer
	fuzzy   *FuzzyMatcher
	cache   *LRUCache
}

// NewQueryExpander builds an expander over stemmer and fuzzy, caching up to cacheSize
// normalized queries.
func NewQueryExpander(stemmer *Stemmer, fuzzy *FuzzyMatcher, cacheSize int) *QueryExpander {
	return &QueryExpander{
		stemmer: stemmer,
		fuzzy:   fuzzy,
		cache:   NewLRUCache(cacheSize),
	}
}

// Normalize splits query into words and stems each one, caching the result so repeated
// searches for the same query skip re-stemming.
func (q *QueryExpander) Normalize(query string) *normalizedQuery {
	if nq, ok := q.cache.Get(query); ok {
		return nq
	}

	terms := strings.Fields(query)
	nq := &normalizedQuery{
		Original: query,
		Terms:    terms,
		Stems:    q.stemmer.StemAll(terms),
	}
	q.cache.Set(query, nq)
	return nq
}

// StemmedQuery returns query with every word replaced by its stem, joined back with
// spaces. When stemming is disabled or changes nothing, it returns query unchanged so
// callers can skip issuing a redundant second search.
func (q *QueryExpander) StemmedQuery(query string) string {
	nq := q.Normalize(query)
	stemmed := strings.Join(nq.Stems, " ")
	if strings.EqualFold(stemmed, query) {
		return query
	}
	return stemmed
}

// StemmedPrefixQuery is StemmedQuery rewritten for an FTS5 MATCH clause: every stem is
// suffixed with '*' so a stored whole word (e.g. "authenticate") still matches its
// shorter stem ("authent*"), which FTS5's default tokenizer would otherwise treat as a
// distinct, non-matching token from an exact-word search.
func (q *QueryExpander) StemmedPrefixQuery(query string) string {
	nq := q.Normalize(query)
	if len(nq.Stems) == 0 {
		return query
	}
	terms := make([]string, len(nq.Stems))
	for i, stem := range nq.Stems {
		terms[i] = stem + "*"
	}
	prefixed := strings.Join(terms, " ")
	if strings.EqualFold(strings.Join(nq.Stems, " "), query) {
		return query
	}
	return prefixed
}

// FuzzyExpand widens query to near-spellings found in candidates (e.g. known symbol
// names already surfaced by an exact search), used to boost results whose term is a
// typo or minor variant of the query rather than an exact or prefix match.
func (q *QueryExpander) FuzzyExpand(query string, candidates []string) []FuzzyMatch {
	if !q.fuzzy.IsEnabled() {
		return nil
	}
	return q.fuzzy.FindMatches(query, candidates)
}
