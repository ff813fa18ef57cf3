package meeting

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rayhaanfarooq/squire/agent"
)

// Analysis is the per-document result. Section extraction is regex
// driven and tuned for the loose structure of exported meeting notes,
// so counts are best-effort rather than exact.
type Analysis struct {
	DocURL           string       `json:"doc_url"`
	Status           agent.Status `json:"status"`
	ContentLength    int          `json:"content_length"`
	LineCount        int          `json:"line_count"`
	ActionItems      []string     `json:"action_items"`
	Decisions        []string     `json:"decisions"`
	Attendees        []string     `json:"attendees"`
	Topics           []string     `json:"topics"`
	Projects         []string     `json:"projects"`
	Problems         []string     `json:"problems"`
	Solutions        []string     `json:"solutions"`
	Deadlines        []string     `json:"deadlines"`
	Metrics          []string     `json:"metrics"`
	Summary          string       `json:"summary"`
	SummaryParagraph string       `json:"summary_paragraph"`
	Review           Review       `json:"review"`
}

// Review grades how actionable the captured notes are.
type Review struct {
	Completeness     string   `json:"completeness"`
	ActionItemsCount int      `json:"action_items_count"`
	DecisionsCount   int      `json:"decisions_count"`
	AttendeesCount   int      `json:"attendees_count"`
	Recommendations  []string `json:"recommendations"`
}

// Line-oriented patterns run against lowercased content, sentence-oriented
// ones against the original text.
var (
	docIDPattern = regexp.MustCompile(`/document/d/([a-zA-Z0-9_-]+)`)

	actionPatterns = compileAll(`(?im)`,
		`action\s*items?[:\-]?\s*(.+)$`,
		`actions?[:\-]?\s*(.+)$`,
		`todos?[:\-]?\s*(.+)$`,
		`next\s+steps?[:\-]?\s*(.+)$`,
	)
	decisionPatterns = compileAll(`(?im)`,
		`decisions?[:\-]?\s*(.+)$`,
		`decided[:\-]?\s*(.+)$`,
		`agreed[:\-]?\s*(.+)$`,
	)
	attendeePatterns = compileAll(`(?im)`,
		`attendees?[:\-]?\s*(.+)$`,
		`participants?[:\-]?\s*(.+)$`,
		`present[:\-]?\s*(.+)$`,
	)
	accomplishmentPatterns = compileAll(`(?im)`,
		`completed[:\-]?\s*(.+)$`,
		`finished[:\-]?\s*(.+)$`,
		`accomplished[:\-]?\s*(.+)$`,
		`delivered[:\-]?\s*(.+)$`,
		`solved[:\-]?\s*(.+)$`,
	)
	activityPatterns = compileAll(`(?im)`,
		`discussed[:\-]?\s*(.+)$`,
		`reviewed[:\-]?\s*(.+)$`,
		`presented[:\-]?\s*(.+)$`,
		`demonstrated[:\-]?\s*(.+)$`,
		`worked on[:\-]?\s*(.+)$`,
	)
	problemPatterns = compileAll(`(?i)`,
		`(?:problem|issue|blocker|challenge|difficulty)\s+(?:is|with|that)\s+([^.]+?)(?:\.|$)`,
		`(?:facing|encountering|experiencing)\s+([^.]+?)(?:\.|$)`,
	)
	solutionPatterns = compileAll(`(?i)`,
		`(?:solution|approach|fix|resolve|address)\s+(?:is|was|will be|to)\s+([^.]+?)(?:\.|$)`,
		`(?:decided\s+to|agreed\s+to|plan\s+to)\s+([^.]+?)(?:\.|$)`,
	)

	projectPattern  = regexp.MustCompile(`(?i)(?:project|module|feature|component)\s+(?:called\s+)?["']?([A-Za-z][a-zA-Z0-9\s]+)["']?`)
	deadlinePattern = regexp.MustCompile(`(?i)(?:deadline|due\s+date|by|target|eta|timeline)[:\-]?\s*([^.]+?)(?:\.|$)`)
	metricPattern   = regexp.MustCompile(`(?i)\d+\s*(?:percent|%|hours|days|weeks|people|members|items|tasks|prs|issues)`)

	topicKeywords = []string{
		"project", "deadline", "budget", "team", "review", "next steps",
		"discussion", "proposal", "feedback", "update", "status", "milestone",
	}
)

func compileAll(flags string, exprs ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(exprs))
	for i, expr := range exprs {
		compiled[i] = regexp.MustCompile(flags + expr)
	}
	return compiled
}

type minutes struct {
	lines           int
	actionItems     []string
	decisions       []string
	attendees       []string
	topics          []string
	accomplishments []string
	activities      []string
	projects        []string
	problems        []string
	solutions       []string
	deadlines       []string
	metrics         []string
}

func analyzeMinutes(docURL, content string) Analysis {
	lower := strings.ToLower(content)

	m := minutes{
		lines:           countLines(content),
		actionItems:     matchLines(actionPatterns, lower, 3),
		decisions:       matchLines(decisionPatterns, lower, 3),
		attendees:       matchAttendees(lower),
		topics:          matchTopics(lower),
		accomplishments: matchLines(accomplishmentPatterns, lower, 3),
		activities:      matchLines(activityPatterns, lower, 3),
		projects:        matchGroups(projectPattern, content),
		problems:        matchClipped(problemPatterns, content, 150, 10),
		solutions:       matchClipped(solutionPatterns, content, 150, 10),
		deadlines:       matchGroups(deadlinePattern, content),
		metrics:         metricPattern.FindAllString(content, -1),
	}

	para := paragraph(m)
	return Analysis{
		DocURL:           docURL,
		Status:           agent.StatusCompleted,
		ContentLength:    len(content),
		LineCount:        m.lines,
		ActionItems:      first(m.actionItems, 10),
		Decisions:        first(m.decisions, 10),
		Attendees:        first(m.attendees, 10),
		Topics:           first(m.topics, 10),
		Projects:         first(m.projects, 5),
		Problems:         first(m.problems, 5),
		Solutions:        first(m.solutions, 5),
		Deadlines:        first(m.deadlines, 5),
		Metrics:          first(m.metrics, 5),
		Summary:          para + breakdown(len(content), m),
		SummaryParagraph: para,
		Review:           assess(m),
	}
}

func countLines(content string) int {
	n := 0
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

func matchLines(patterns []*regexp.Regexp, text string, minLen int) []string {
	var out []string
	for _, p := range patterns {
		for _, match := range p.FindAllStringSubmatch(text, -1) {
			if item := strings.TrimSpace(match[1]); len(item) > minLen {
				out = append(out, item)
			}
		}
	}
	return out
}

func matchClipped(patterns []*regexp.Regexp, text string, max, minLen int) []string {
	var out []string
	for _, p := range patterns {
		for _, match := range p.FindAllStringSubmatch(text, -1) {
			if item := clip(strings.TrimSpace(match[1]), max); len(item) > minLen {
				out = append(out, item)
			}
		}
	}
	return out
}

func matchGroups(pattern *regexp.Regexp, text string) []string {
	var out []string
	for _, match := range pattern.FindAllStringSubmatch(text, -1) {
		if item := strings.TrimSpace(match[1]); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func matchAttendees(text string) []string {
	var out []string
	for _, p := range attendeePatterns {
		for _, match := range p.FindAllStringSubmatch(text, -1) {
			names := strings.FieldsFunc(match[1], func(r rune) bool { return r == ',' || r == ';' })
			for _, name := range names {
				if name = strings.TrimSpace(name); name != "" {
					out = append(out, name)
				}
			}
		}
	}
	return out
}

func matchTopics(text string) []string {
	var out []string
	for _, phrase := range topicKeywords {
		if strings.Contains(text, phrase) {
			out = append(out, phrase)
		}
	}
	return out
}

func assess(m minutes) Review {
	completeness := "low"
	switch {
	case len(m.actionItems) > 0 && len(m.decisions) > 0:
		completeness = "high"
	case len(m.actionItems) > 0 || len(m.decisions) > 0:
		completeness = "medium"
	}

	var recommendations []string
	if len(m.actionItems) == 0 {
		recommendations = append(recommendations, "No action items identified - consider documenting next steps")
	}
	if len(m.decisions) == 0 {
		recommendations = append(recommendations, "No decisions identified - consider documenting key decisions")
	}
	if m.lines < 50 {
		recommendations = append(recommendations, "Meeting notes seem brief - ensure all important points are captured")
	}
	if len(recommendations) == 0 {
		recommendations = append(recommendations, "Meeting notes are well-structured")
	}

	return Review{
		Completeness:     completeness,
		ActionItemsCount: len(m.actionItems),
		DecisionsCount:   len(m.decisions),
		AttendeesCount:   len(m.attendees),
		Recommendations:  recommendations,
	}
}

// paragraph narrates the extracted sections as running prose for report
// consumers that surface a single display string.
func paragraph(m minutes) string {
	parts := []string{fmt.Sprintf(
		"This meeting document contains %d lines of detailed notes covering comprehensive team discussion and decision-making.", m.lines,
	)}

	if len(m.attendees) > 0 {
		suffix := ""
		if len(m.attendees) > 4 {
			suffix = " and others"
		}
		parts = append(parts, fmt.Sprintf(
			"The meeting involved %s%s, representing key stakeholders and team members.",
			strings.Join(first(m.attendees, 4), ", "), suffix,
		))
	}
	if len(m.topics) > 0 {
		parts = append(parts, fmt.Sprintf(
			"Discussion centered on %s, indicating a focused agenda addressing multiple aspects of project development.",
			strings.Join(first(m.topics, 5), ", "),
		))
	}
	if len(m.projects) > 0 {
		parts = append(parts, fmt.Sprintf(
			"Specific focus was given to %s, demonstrating targeted attention to key deliverables.",
			strings.Join(first(m.projects, 3), ", "),
		))
	}
	if len(m.accomplishments) == 1 {
		parts = append(parts, fmt.Sprintf(
			"A significant accomplishment was achieved during the meeting: %s.", clip(m.accomplishments[0], 250),
		))
	} else if len(m.accomplishments) > 1 {
		parts = append(parts, fmt.Sprintf(
			"The team documented several accomplishments including: %s.",
			strings.Join(clipAll(first(m.accomplishments, 2), 120), "; "),
		))
	}
	if len(m.activities) > 0 {
		parts = append(parts, fmt.Sprintf(
			"Detailed review and discussion occurred on: %s, ensuring thorough examination of key work items.",
			strings.Join(clipAll(first(m.activities, 2), 120), "; "),
		))
	}
	if len(m.problems) == 1 {
		parts = append(parts, fmt.Sprintf("A specific problem was identified: %s.", clip(m.problems[0], 200)))
	} else if len(m.problems) > 1 && len(m.solutions) > 0 {
		parts = append(parts, fmt.Sprintf(
			"Several challenges were discussed, including %s, with corresponding solutions being evaluated.",
			clip(m.problems[0], 150),
		))
	}
	if len(m.solutions) > 0 {
		parts = append(parts, fmt.Sprintf(
			"The team agreed on solutions and approaches: %s.",
			strings.Join(clipAll(first(m.solutions, 2), 120), "; "),
		))
	}
	if len(m.decisions) == 1 {
		parts = append(parts, fmt.Sprintf(
			"A critical decision was made: %s, which will guide future development efforts.", clip(m.decisions[0], 250),
		))
	} else if len(m.decisions) > 1 {
		parts = append(parts, fmt.Sprintf(
			"The meeting resulted in %d key decisions, with the primary decision being: %s, establishing direction for the team.",
			len(m.decisions), clip(m.decisions[0], 200),
		))
	}
	if len(m.actionItems) == 1 {
		parts = append(parts, fmt.Sprintf(
			"One concrete action item was established: %s, ensuring clear next steps.", clip(m.actionItems[0], 250),
		))
	} else if len(m.actionItems) > 1 {
		parts = append(parts, fmt.Sprintf(
			"Moving forward, %d specific action items were defined, with priority given to: %s, demonstrating a structured approach to follow-up.",
			len(m.actionItems), clip(m.actionItems[0], 200),
		))
	}
	if len(m.metrics) > 0 {
		parts = append(parts, fmt.Sprintf(
			"Quantifiable metrics and timelines were established: %s, providing measurable targets.",
			strings.Join(first(m.metrics, 3), ", "),
		))
	}
	if len(m.deadlines) > 0 {
		parts = append(parts, fmt.Sprintf(
			"Specific timelines were discussed: %s, ensuring alignment on delivery expectations.",
			strings.Join(clipAll(first(m.deadlines, 2), 100), "; "),
		))
	}
	if len(m.actionItems) == 0 && len(m.decisions) == 0 && len(m.accomplishments) == 0 {
		parts = append(parts, "The meeting primarily focused on detailed discussion, status updates, and collaborative problem-solving.")
	}

	return strings.Join(parts, " ")
}

func breakdown(contentLen int, m minutes) string {
	var sb strings.Builder
	sb.WriteString("\n\nDetailed Breakdown:\n")
	fmt.Fprintf(&sb, "Document Length: %d characters, %d lines\n", contentLen, m.lines)
	if len(m.topics) > 0 {
		fmt.Fprintf(&sb, "Key Topics: %s\n", strings.Join(first(m.topics, 5), ", "))
	}
	if len(m.actionItems) > 0 {
		fmt.Fprintf(&sb, "\nAction Items (%d):\n", len(m.actionItems))
		for i, item := range first(m.actionItems, 10) {
			fmt.Fprintf(&sb, "  %d. %s\n", i+1, trunc(item, 100))
		}
	}
	if len(m.decisions) > 0 {
		fmt.Fprintf(&sb, "\nDecisions (%d):\n", len(m.decisions))
		for i, decision := range first(m.decisions, 10) {
			fmt.Fprintf(&sb, "  %d. %s\n", i+1, trunc(decision, 100))
		}
	}
	if len(m.attendees) > 0 {
		fmt.Fprintf(&sb, "\nAttendees: %s\n", strings.Join(first(m.attendees, 10), ", "))
	}
	return sb.String()
}

func first(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func clip(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func trunc(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}

func clipAll(items []string, n int) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = clip(item, n)
	}
	return out
}
