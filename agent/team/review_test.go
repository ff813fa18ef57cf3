package team

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rayhaanfarooq/squire/agent"
	"github.com/rayhaanfarooq/squire/store"
)

const reviewText = `Reviewed PR #42 covering the JWT authentication flow and Redis caching layer.
Excellent error handling across the new endpoints and the unit test coverage is thorough.
One concern is that the rate limiting config is hardcoded and should be moved into settings.
Great progress this sprint, pleased with the teamwork.`

func TestAnalyzeReviewExtractsInsights(t *testing.T) {
	now := time.Date(2026, 8, 20, 9, 30, 0, 0, time.UTC)
	analysis := analyzeReview(store.TeamReview{ID: 7, Body: reviewText, TeamMember: "jordan", CreatedAt: now})

	assert.Equal(t, int64(7), analysis.ReviewID)
	assert.Equal(t, "jordan", analysis.TeamMember)
	assert.Equal(t, "2026-08-20T09:30:00Z", analysis.CreatedAt)
	assert.Equal(t, agent.StatusCompleted, analysis.Status)
	assert.Equal(t, len(reviewText), analysis.TextLength)
	assert.Equal(t, 4, analysis.LineCount)

	assert.Equal(t, "positive", analysis.Sentiment)
	assert.Equal(t, SentimentScores{Positive: 3, Negative: 2, Neutral: 2}, analysis.SentimentScores)

	assert.Equal(t, []string{"teamwork"}, analysis.Topics)
	assert.Equal(t, []string{"42"}, analysis.PRNumbers)
	assert.Empty(t, analysis.TicketNumbers)
	assert.Equal(t, []string{"JWT", "Redis", "unit test", "authentication", "rate limiting", "caching"}, analysis.Technologies)
	assert.Equal(t, []string{"error handling", "testing", "security"}, analysis.QualityAspects)

	assert.Equal(t, []string{
		"error handling across the new endpoints and the unit test coverage is thorough",
		"progress this sprint, pleased with the teamwork",
	}, analysis.Strengths)
	assert.Equal(t, []string{
		"is that the rate limiting config is hardcoded and should be moved into settings",
		"moved into settings",
	}, analysis.Concerns)
	assert.Equal(t, []string{"be moved into settings"}, analysis.ActionItems)
	require.Len(t, analysis.KeyPoints, 3)

	assert.Equal(t, Review{
		Sentiment:             "positive",
		TopicsIdentified:      1,
		KeyPointsCount:        3,
		TechnologiesMentioned: 6,
		StrengthsCount:        2,
		ConcernsCount:         2,
	}, analysis.Review)

	assert.Equal(t, analysis.Summary, analysis.SummaryParagraph)
	assert.Contains(t, analysis.SummaryParagraph, "This team review focuses on PR #42")
	assert.Contains(t, analysis.SummaryParagraph, "positive and constructive tone")
	assert.Contains(t, analysis.SummaryParagraph, "JWT, Redis, unit test, authentication, rate limiting")
	assert.Contains(t, analysis.SummaryParagraph, "error handling, testing, security")
	assert.Contains(t, analysis.SummaryParagraph, "1 specific recommendation for")
}

func TestSentimentLeansOnKeywordCounts(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"positive outweighs", "The new dashboard is excellent and the team is happy.", "positive"},
		{"negative outweighs", "We hit a problem and another bug in the broker.", "negative"},
		{"tie stays neutral", "Status update with steady progress notes.", "neutral"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis := analyzeReview(store.TeamReview{Body: tt.text})
			assert.Equal(t, tt.want, analysis.Sentiment)
		})
	}
}

func TestKeyPointsKeepLongSentencesOnly(t *testing.T) {
	long := "This sentence easily clears the fifty character floor for key points"
	text := strings.Join([]string{"Short note!", long + " one.", long + " two.", long + " three.", long + " four."}, " ")

	points := keyPoints(text)
	require.Len(t, points, 3)
	assert.Equal(t, long+" one", points[0])
}
