package manager

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const (
	prSection = `{
		"agent": "pr", "status": "completed", "repo": "acme/widgets",
		"analyses": [
			{"pr_number": 7, "title": "Add spool retention sweep",
			 "url": "https://github.com/acme/widgets/pull/7",
			 "summary": "PR #7: Add spool retention sweep",
			 "metrics": {"files_changed": 3, "additions": 180, "deletions": 40},
			 "review": {"complexity": "high", "risk_level": "low"}},
			{"pr_number": 9, "title": "Rework watcher shutdown",
			 "url": "https://github.com/acme/widgets/pull/9",
			 "summary": "PR #9: Rework watcher shutdown",
			 "metrics": {"files_changed": 22, "additions": 600, "deletions": 500},
			 "review": {"complexity": "high", "risk_level": "high"}}
		],
		"count": 2
	}`

	meetingSection = `{
		"agent": "meeting", "status": "completed", "documents_analyzed": 2,
		"analyses": [
			{"doc_url": "https://docs.google.com/document/d/standup/edit", "status": "completed",
			 "action_items": ["document the sweep defaults", "wire the report endpoint"],
			 "decisions": ["keep per-watcher cursors"],
			 "attendees": ["amara", "casey", "jordan"],
			 "summary": "Weekly sync notes."},
			{"doc_url": "https://docs.google.com/document/d/missing/edit", "status": "error",
			 "error": "HTTP 404: document may not be publicly accessible"}
		]
	}`
)

func TestSynthesizeAggregatesInsights(t *testing.T) {
	report := Synthesize(gjson.Parse(prSection), gjson.Parse(meetingSection))

	assert.Equal(t, PRInsights{
		TotalPRs:            2,
		TotalFilesChanged:   25,
		TotalAdditions:      780,
		TotalDeletions:      540,
		HighComplexityCount: 2,
		HighRiskCount:       1,
	}, report.PRInsights)

	assert.Equal(t, MeetingInsights{
		DocumentsAnalyzed: 2,
		TotalActionItems:  2,
		TotalDecisions:    1,
		TotalAttendees:    3,
	}, report.MeetingInsights)

	assert.Equal(t, []string{
		"High complexity PRs detected (2) - ensure adequate code review time",
		"High risk PRs detected (1) - prioritize thorough testing",
		"Meeting identified 2 action items - ensure follow-up and assignment",
		"PR activity and meeting action items are aligned - continue coordinated development efforts",
	}, report.Recommendations)

	assert.Equal(t, []string{"document the sweep defaults", "wire the report endpoint"}, report.ActionItems)

	require.Len(t, report.DetailedPRSummaries, 2)
	sweep := report.DetailedPRSummaries[0]
	assert.Equal(t, int64(7), sweep.PRNumber)
	assert.Equal(t, "Add spool retention sweep", sweep.Title)
	assert.Equal(t, "https://github.com/acme/widgets/pull/7", sweep.URL)
	assert.Equal(t, "high", sweep.Complexity)
	assert.Equal(t, "low", sweep.RiskLevel)
	assert.JSONEq(t, `{"files_changed": 3, "additions": 180, "deletions": 40}`, string(sweep.Metrics))

	require.Len(t, report.DetailedMeetingSummaries, 1)
	standup := report.DetailedMeetingSummaries[0]
	assert.Equal(t, "https://docs.google.com/document/d/standup/edit", standup.DocURL)
	assert.Equal(t, []string{"keep per-watcher cursors"}, standup.Decisions)
	assert.Equal(t, []string{"amara", "casey", "jordan"}, standup.Attendees)
}

func TestSynthesizeWithMissingSections(t *testing.T) {
	report := Synthesize(gjson.Result{}, gjson.Result{})

	assert.Equal(t, PRInsights{}, report.PRInsights)
	assert.Equal(t, MeetingInsights{}, report.MeetingInsights)
	assert.Equal(t, []string{"All systems operational - no immediate concerns identified"}, report.Recommendations)
	assert.NotNil(t, report.ActionItems)
	assert.Empty(t, report.ActionItems)
	assert.Empty(t, report.DetailedPRSummaries)
	assert.Empty(t, report.DetailedMeetingSummaries)
	assert.Contains(t, report.ExecutiveSummary, "PRs Analyzed: 0")
}

func TestSynthesizeClipsSummaries(t *testing.T) {
	long := strings.Repeat("x", 400)
	section := gjson.Parse(`{"status": "completed", "analyses": [{"pr_number": 1, "summary": "` + long + `"}]}`)

	report := Synthesize(section, gjson.Result{})
	require.Len(t, report.DetailedPRSummaries, 1)
	assert.Len(t, report.DetailedPRSummaries[0].Summary, 300)
	assert.JSONEq(t, `{}`, string(report.DetailedPRSummaries[0].Metrics))
}

func TestExecutiveSummaryLayout(t *testing.T) {
	report := Synthesize(gjson.Parse(prSection), gjson.Parse(meetingSection))

	summary := report.ExecutiveSummary
	assert.True(t, strings.HasPrefix(summary, "\nEXECUTIVE SUMMARY\n=================\n"))
	assert.Contains(t, summary, "- PRs Analyzed: 2")
	assert.Contains(t, summary, "- Net Code Changes: +780 / -540 lines")
	assert.Contains(t, summary, "- Documents Analyzed: 2")
	assert.Contains(t, summary, "- Attendees Tracked: 3")
	assert.Contains(t, summary, "- High risk PRs detected (1) - prioritize thorough testing")
	assert.Contains(t, summary, "Next Steps:")
}
