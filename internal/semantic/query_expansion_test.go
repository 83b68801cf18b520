package semantic

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeStemsEachTerm(t *testing.T) {
	stemmer := NewStemmer(true, "porter2", 3, nil)
	fuzzy := NewFuzzyMatcher(true, 0.8, "jaro-winkler")
	qe := NewQueryExpander(stemmer, fuzzy, 10)

	nq := qe.Normalize("authenticating users")
	require.Equal(t, []string{"authenticating", "users"}, nq.Terms)
	require.Equal(t, stemmer.StemAll([]string{"authenticating", "users"}), nq.Stems)
}

func TestNormalizeCachesResult(t *testing.T) {
	stemmer := NewStemmer(true, "porter2", 3, nil)
	fuzzy := NewFuzzyMatcher(false, 0.8, "jaro-winkler")
	qe := NewQueryExpander(stemmer, fuzzy, 10)

	first := qe.Normalize("running")
	second := qe.Normalize("running")
	require.Same(t, first, second)
}

func TestStemmedQueryReturnsOriginalWhenUnchanged(t *testing.T) {
	stemmer := NewStemmer(false, "porter2", 3, nil)
	fuzzy := NewFuzzyMatcher(false, 0.8, "jaro-winkler")
	qe := NewQueryExpander(stemmer, fuzzy, 10)

	require.Equal(t, "running", qe.StemmedQuery("running"))
}

func TestStemmedQueryWidensToStemForm(t *testing.T) {
	stemmer := NewStemmer(true, "porter2", 3, nil)
	fuzzy := NewFuzzyMatcher(false, 0.8, "jaro-winkler")
	qe := NewQueryExpander(stemmer, fuzzy, 10)

	require.NotEqual(t, "authenticate", qe.StemmedQuery("authenticate"))
}

func TestStemmedPrefixQueryAddsWildcardPerTerm(t *testing.T) {
	stemmer := NewStemmer(true, "porter2", 3, nil)
	fuzzy := NewFuzzyMatcher(false, 0.8, "jaro-winkler")
	qe := NewQueryExpander(stemmer, fuzzy, 10)

	prefixQuery := qe.StemmedPrefixQuery("authenticating")
	require.Equal(t, stemmer.Stem("authenticating")+"*", prefixQuery)
}

func TestFuzzyExpandNoopWhenDisabled(t *testing.T) {
	stemmer := NewStemmer(true, "porter2", 3, nil)
	fuzzy := NewFuzzyMatcher(false, 0.8, "jaro-winkler")
	qe := NewQueryExpander(stemmer, fuzzy, 10)

	require.Empty(t, qe.FuzzyExpand("Run", []string{"Runner", "Runnable"}))
}

func TestFuzzyExpandFindsNearSpellings(t *testing.T) {
	stemmer := NewStemmer(false, "porter2", 3, nil)
	fuzzy := NewFuzzyMatcher(true, 0.8, "jaro-winkler")
	qe := NewQueryExpander(stemmer, fuzzy, 10)

	matches := qe.FuzzyExpand("Dispatcher", []string{"Dispacther", "Unrelated"})
	require.NotEmpty(t, matches)
	require.Equal(t, "Dispacther", matches[0].Term)
}
