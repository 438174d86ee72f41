package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeywords(t *testing.T) {
	kw := Keywords("Implement the User API for the frontend")
	require.True(t, kw["implement"])
	require.True(t, kw["user"])
	require.True(t, kw["frontend"])
	require.False(t, kw["the"])
	require.False(t, kw["for"])
}

func TestJaccardWords(t *testing.T) {
	sim := JaccardWords("Implement User API", "Test User API")
	require.InDelta(t, 0.5, sim, 1e-9) // shared {user, api} of union {implement, user, api, test}
}

func TestSharesTechnicalTerm(t *testing.T) {
	require.True(t, SharesTechnicalTerm("Build the backend auth flow", "Backend login page"))
	require.False(t, SharesTechnicalTerm("Write release notes", "Plan offsite"))
}

func TestPhase(t *testing.T) {
	require.Equal(t, 1.0, Phase("Design DB schema"))
	require.Equal(t, 2.0, Phase("Implement User API"))
	require.Equal(t, 3.0, Phase("Test User API"))
	require.Equal(t, 4.0, Phase("Deploy to Production"))
	require.Equal(t, 2.5, Phase("Quarterly budget review"))
}
