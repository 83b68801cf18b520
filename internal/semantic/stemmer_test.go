package semantic

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStemDisabledReturnsOriginal(t *testing.T) {
	s := NewStemmer(false, "porter2", 3, nil)
	require.Equal(t, "authenticating", s.Stem("authenticating"))
}

func TestStemGroupsVariantsToSameStem(t *testing.T) {
	s := NewStemmer(true, "porter2", 3, nil)
	require.Equal(t, s.Stem("authenticate"), s.Stem("authenticating"))
}

func TestStemRespectsExclusions(t *testing.T) {
	s := NewStemmer(true, "porter2", 3, nil)
	s.AddExclusion("processing")
	require.Equal(t, "processing", s.Stem("processing"))
	require.True(t, s.IsExcluded("processing"))

	s.RemoveExclusion("processing")
	require.False(t, s.IsExcluded("processing"))
}

func TestStemRespectsMinLength(t *testing.T) {
	s := NewStemmer(true, "porter2", 10, nil)
	require.Equal(t, "run", s.Stem("run"))
}

func TestStemAndGroup(t *testing.T) {
	s := NewStemmer(true, "porter2", 3, nil)
	groups := s.StemAndGroup([]string{"authenticate", "authenticating", "search"})
	stem := s.Stem("authenticate")
	require.ElementsMatch(t, []string{"authenticate", "authenticating"}, groups[stem])
}

func TestGetVariationsFiltersByStem(t *testing.T) {
	s := NewStemmer(true, "porter2", 3, nil)
	variations := s.GetVariations("authenticate", []string{"authenticating", "search", "authenticated"})
	require.ElementsMatch(t, []string{"authenticating", "authenticated"}, variations)
}

func TestValidateConfigRejectsBadMinLengthAndAlgorithm(t *testing.T) {
	s := NewStemmer(true, "porter2", -1, nil)
	require.Error(t, s.SetMinLength(-1))

	s2 := NewStemmer(true, "made-up", 3, nil)
	require.Error(t, s2.ValidateConfig())
}
