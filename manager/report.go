package manager

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// Report is the synthesized view over one round of producer analyses.
type Report struct {
	ExecutiveSummary         string           `json:"executive_summary"`
	PRInsights               PRInsights       `json:"pr_insights"`
	MeetingInsights          MeetingInsights  `json:"meeting_insights"`
	Recommendations          []string         `json:"recommendations"`
	ActionItems              []string         `json:"action_items"`
	DetailedPRSummaries      []PRSummary      `json:"detailed_pr_summaries"`
	DetailedMeetingSummaries []MeetingSummary `json:"detailed_meeting_summaries"`
}

// PRInsights aggregates change metrics across all analyzed pull requests.
type PRInsights struct {
	TotalPRs            int `json:"total_prs"`
	TotalFilesChanged   int `json:"total_files_changed"`
	TotalAdditions      int `json:"total_additions"`
	TotalDeletions      int `json:"total_deletions"`
	HighComplexityCount int `json:"high_complexity_count"`
	HighRiskCount       int `json:"high_risk_count"`
}

// MeetingInsights aggregates across analyzed meeting documents.
// DocumentsAnalyzed counts every entry; the totals only count documents
// that analyzed cleanly.
type MeetingInsights struct {
	DocumentsAnalyzed int `json:"documents_analyzed"`
	TotalActionItems  int `json:"total_action_items"`
	TotalDecisions    int `json:"total_decisions"`
	TotalAttendees    int `json:"total_attendees"`
}

type PRSummary struct {
	PRNumber   int64           `json:"pr_number"`
	Title      string          `json:"title"`
	URL        string          `json:"url"`
	Summary    string          `json:"summary"`
	Complexity string          `json:"complexity"`
	RiskLevel  string          `json:"risk_level"`
	Metrics    json.RawMessage `json:"metrics"`
}

type MeetingSummary struct {
	DocURL      string   `json:"doc_url"`
	ActionItems []string `json:"action_items"`
	Decisions   []string `json:"decisions"`
	Attendees   []string `json:"attendees"`
	Summary     string   `json:"summary"`
}

// Synthesize distills the pr_analysis and meeting_analysis sections of a
// join payload into a Report. Missing or malformed sections contribute
// zeros rather than failing, so a report is always produced.
func Synthesize(prAnalysis, meetingAnalysis gjson.Result) Report {
	prResults := prAnalysis.Get("analyses").Array()
	meetingResults := meetingAnalysis.Get("analyses").Array()

	pr := PRInsights{TotalPRs: len(prResults)}
	for _, a := range prResults {
		pr.TotalFilesChanged += int(a.Get("metrics.files_changed").Int())
		pr.TotalAdditions += int(a.Get("metrics.additions").Int())
		pr.TotalDeletions += int(a.Get("metrics.deletions").Int())
		if a.Get("review.complexity").String() == "high" {
			pr.HighComplexityCount++
		}
		if a.Get("review.risk_level").String() == "high" {
			pr.HighRiskCount++
		}
	}

	meetings := MeetingInsights{DocumentsAnalyzed: len(meetingResults)}
	for _, a := range meetingResults {
		if a.Get("status").String() != "completed" {
			continue
		}
		meetings.TotalActionItems += len(a.Get("action_items").Array())
		meetings.TotalDecisions += len(a.Get("decisions").Array())
		meetings.TotalAttendees += len(a.Get("attendees").Array())
	}

	report := Report{
		PRInsights:               pr,
		MeetingInsights:          meetings,
		Recommendations:          []string{},
		ActionItems:              []string{},
		DetailedPRSummaries:      []PRSummary{},
		DetailedMeetingSummaries: []MeetingSummary{},
	}

	for _, a := range prResults {
		report.DetailedPRSummaries = append(report.DetailedPRSummaries, PRSummary{
			PRNumber:   a.Get("pr_number").Int(),
			Title:      a.Get("title").String(),
			URL:        a.Get("url").String(),
			Summary:    clip(a.Get("summary").String(), 300),
			Complexity: a.Get("review.complexity").String(),
			RiskLevel:  a.Get("review.risk_level").String(),
			Metrics:    rawObject(a.Get("metrics")),
		})
	}

	for _, a := range meetingResults {
		if a.Get("status").String() != "completed" {
			continue
		}
		items := stringsOf(a.Get("action_items"))
		report.DetailedMeetingSummaries = append(report.DetailedMeetingSummaries, MeetingSummary{
			DocURL:      a.Get("doc_url").String(),
			ActionItems: items,
			Decisions:   stringsOf(a.Get("decisions")),
			Attendees:   stringsOf(a.Get("attendees")),
			Summary:     clip(a.Get("summary").String(), 300),
		})
		report.ActionItems = append(report.ActionItems, items...)
	}

	if pr.HighComplexityCount > 0 {
		report.Recommendations = append(report.Recommendations, fmt.Sprintf(
			"High complexity PRs detected (%d) - ensure adequate code review time", pr.HighComplexityCount,
		))
	}
	if pr.HighRiskCount > 0 {
		report.Recommendations = append(report.Recommendations, fmt.Sprintf(
			"High risk PRs detected (%d) - prioritize thorough testing", pr.HighRiskCount,
		))
	}
	if meetings.TotalActionItems > 0 {
		report.Recommendations = append(report.Recommendations, fmt.Sprintf(
			"Meeting identified %d action items - ensure follow-up and assignment", meetings.TotalActionItems,
		))
	}
	if pr.TotalPRs > 0 && meetings.TotalActionItems > 0 {
		report.Recommendations = append(report.Recommendations,
			"PR activity and meeting action items are aligned - continue coordinated development efforts",
		)
	}
	if len(report.Recommendations) == 0 {
		report.Recommendations = append(report.Recommendations,
			"All systems operational - no immediate concerns identified",
		)
	}

	report.ExecutiveSummary = executiveSummary(pr, meetings, report.Recommendations)
	return report
}

const summaryTemplate = `
EXECUTIVE SUMMARY
=================

Code Review Status:
- PRs Analyzed: %d
- Files Changed: %d
- Net Code Changes: +%d / -%d lines
- High Complexity PRs: %d
- High Risk PRs: %d

Meeting Activity Status:
- Documents Analyzed: %d
- Action Items Identified: %d
- Decisions Documented: %d
- Attendees Tracked: %d

Key Recommendations:
%s

Next Steps:
- Review PR summaries for critical changes requiring attention
- Follow up on meeting action items to ensure completion
- Monitor high-risk PRs through deployment process
`

func executiveSummary(pr PRInsights, meetings MeetingInsights, recommendations []string) string {
	bullets := make([]string, len(recommendations))
	for i, rec := range recommendations {
		bullets[i] = "- " + rec
	}
	return fmt.Sprintf(summaryTemplate,
		pr.TotalPRs, pr.TotalFilesChanged, pr.TotalAdditions, pr.TotalDeletions,
		pr.HighComplexityCount, pr.HighRiskCount,
		meetings.DocumentsAnalyzed, meetings.TotalActionItems,
		meetings.TotalDecisions, meetings.TotalAttendees,
		strings.Join(bullets, "\n"),
	)
}

func stringsOf(v gjson.Result) []string {
	items := v.Array()
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.String())
	}
	return out
}

func rawObject(v gjson.Result) json.RawMessage {
	if !v.Exists() {
		return json.RawMessage(`{}`)
	}
	return json.RawMessage(v.Raw)
}

func clip(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
