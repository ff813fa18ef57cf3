package team

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rayhaanfarooq/squire/agent"
	"github.com/rayhaanfarooq/squire/store"
)

// Analysis is the distilled form of one team review. Extraction is
// keyword and regex driven, so scores count substring hits rather than
// parsed sentences.
type Analysis struct {
	ReviewID         int64           `json:"review_id"`
	TeamMember       string          `json:"team_member"`
	CreatedAt        string          `json:"created_at"`
	Status           agent.Status    `json:"status"`
	TextLength       int             `json:"text_length"`
	LineCount        int             `json:"line_count"`
	Sentiment        string          `json:"sentiment"`
	SentimentScores  SentimentScores `json:"sentiment_scores"`
	Topics           []string        `json:"topics"`
	PRNumbers        []string        `json:"pr_numbers"`
	TicketNumbers    []string        `json:"ticket_numbers"`
	Technologies     []string        `json:"technologies"`
	QualityAspects   []string        `json:"quality_aspects"`
	Strengths        []string        `json:"strengths"`
	Concerns         []string        `json:"concerns"`
	ActionItems      []string        `json:"action_items"`
	KeyPoints        []string        `json:"key_points"`
	Summary          string          `json:"summary"`
	SummaryParagraph string          `json:"summary_paragraph"`
	Review           Review          `json:"review"`
}

type SentimentScores struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Neutral  int `json:"neutral"`
}

// Review counts what the analysis surfaced.
type Review struct {
	Sentiment             string `json:"sentiment"`
	TopicsIdentified      int    `json:"topics_identified"`
	KeyPointsCount        int    `json:"key_points_count"`
	TechnologiesMentioned int    `json:"technologies_mentioned"`
	StrengthsCount        int    `json:"strengths_count"`
	ConcernsCount         int    `json:"concerns_count"`
}

var (
	positiveWords = []string{
		"great", "excellent", "good", "well", "improved", "success",
		"happy", "satisfied", "pleased", "solid", "impressive", "outstanding",
	}
	negativeWords = []string{
		"issue", "problem", "concern", "difficult", "challenge", "struggle",
		"frustrated", "worried", "error", "bug", "broken",
	}
	neutralWords = []string{
		"update", "status", "progress", "note", "information", "reviewed", "checked",
	}

	techKeywords = []string{
		"JWT", "Redis", "Docker", "Kubernetes", "React", "Python", "JavaScript", "TypeScript",
		"FastAPI", "Django", "Flask", "PostgreSQL", "MongoDB", "Git", "GitHub", "CI/CD",
		"API", "REST", "GraphQL", "AWS", "Azure", "GCP", "Jenkins",
		"unit test", "integration test", "pytest", "jest", "SQL", "NoSQL", "authentication",
		"authorization", "rate limiting", "caching", "microservices", "lambda", "serverless",
	}

	qualityChecks = []qualityCheck{
		{"error handling", []string{"error handling", "exception", "try/catch", "error management"}},
		{"testing", []string{"test", "unit test", "integration test", "coverage", "pytest", "jest"}},
		{"documentation", []string{"documentation", "doc", "readme", "api doc", "comment"}},
		{"code quality", []string{"refactor", "clean code", "best practice", "code review", "type hint"}},
		{"performance", []string{"performance", "optimization", "speed", "efficiency", "latency"}},
		{"security", []string{"security", "vulnerability", "encryption", "authentication", "authorization"}},
	}

	topicKeywords = []string{
		"collaboration", "communication", "deadline", "quality", "process",
		"teamwork", "feedback", "improvement", "blocker", "achievement",
		"code review", "pr review", "technical review", "architecture", "implementation",
	}

	prNumberPattern     = regexp.MustCompile(`(?i)PR\s*#?\s*(\d+)`)
	ticketNumberPattern = regexp.MustCompile(`(?i)(?:ticket|issue|task)\s*#?\s*(\d+)`)
	sentenceBoundary    = regexp.MustCompile(`[.!?]+`)

	strengthPatterns = compileAll(`(?i)`,
		`(?:solid|good|excellent|great|impressive|well done|strong)\s+([^.]+?)(?:\.|$)`,
		`(?:properly|correctly|effectively)\s+([^.]+?)(?:\.|$)`,
		`(?:clean|clear|comprehensive|thorough)\s+([^.]+?)(?:\.|$)`,
	)
	concernPatterns = compileAll(`(?i)`,
		`(?:concern|issue|problem|forgot|missed|missing|needs?\s+(?:to\s+)?(?:be|improve|fix))\s+([^.]+?)(?:\.|$)`,
		`(?:could\s+(?:be|use)|should\s+(?:be|use)|would\s+(?:be|benefit))\s+([^.]+?)(?:\.|$)`,
	)
	actionPatterns = compileAll(`(?i)`,
		`(?:should|needs?\s+to|must)\s+([^.]+?)(?:\.|$)`,
		`(?:recommend|suggest|consider)\s+([^.]+?)(?:\.|$)`,
	)
)

type qualityCheck struct {
	aspect   string
	keywords []string
}

func compileAll(flags string, exprs ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(exprs))
	for i, expr := range exprs {
		compiled[i] = regexp.MustCompile(flags + expr)
	}
	return compiled
}

type insights struct {
	lines        int
	sentiment    string
	scores       SentimentScores
	topics       []string
	prNumbers    []string
	tickets      []string
	technologies []string
	aspects      []string
	strengths    []string
	concerns     []string
	actions      []string
	keyPoints    []string
}

func analyzeReview(review store.TeamReview) Analysis {
	text := review.Body
	lower := strings.ToLower(text)

	in := insights{
		lines: countLines(text),
		scores: SentimentScores{
			Positive: countAny(lower, positiveWords),
			Negative: countAny(lower, negativeWords),
			Neutral:  countAny(lower, neutralWords),
		},
		topics:       matchTopics(lower),
		prNumbers:    matchGroups(prNumberPattern, text),
		tickets:      matchGroups(ticketNumberPattern, text),
		technologies: matchTechnologies(lower),
		aspects:      matchQualityAspects(lower),
		strengths:    matchClipped(strengthPatterns, text, 100, 10),
		concerns:     matchClipped(concernPatterns, text, 100, 10),
		actions:      matchClipped(actionPatterns, text, 100, 10),
		keyPoints:    keyPoints(text),
	}

	in.sentiment = "neutral"
	switch {
	case in.scores.Positive > in.scores.Negative:
		in.sentiment = "positive"
	case in.scores.Negative > in.scores.Positive:
		in.sentiment = "negative"
	}

	para := paragraph(in)
	return Analysis{
		ReviewID:         review.ID,
		TeamMember:       review.TeamMember,
		CreatedAt:        review.CreatedAt.Format(time.RFC3339),
		Status:           agent.StatusCompleted,
		TextLength:       len(text),
		LineCount:        in.lines,
		Sentiment:        in.sentiment,
		SentimentScores:  in.scores,
		Topics:           in.topics,
		PRNumbers:        in.prNumbers,
		TicketNumbers:    in.tickets,
		Technologies:     in.technologies,
		QualityAspects:   in.aspects,
		Strengths:        first(in.strengths, 5),
		Concerns:         first(in.concerns, 5),
		ActionItems:      first(in.actions, 5),
		KeyPoints:        in.keyPoints,
		Summary:          para,
		SummaryParagraph: para,
		Review: Review{
			Sentiment:             in.sentiment,
			TopicsIdentified:      len(in.topics),
			KeyPointsCount:        len(in.keyPoints),
			TechnologiesMentioned: len(in.technologies),
			StrengthsCount:        len(in.strengths),
			ConcernsCount:         len(in.concerns),
		},
	}
}

func paragraph(in insights) string {
	var parts []string
	if len(in.prNumbers) > 0 {
		parts = append(parts, fmt.Sprintf(
			"This team review focuses on PR #%s and provides comprehensive technical feedback.", in.prNumbers[0],
		))
	} else {
		parts = append(parts, "This team review provides detailed technical feedback on code and implementation work.")
	}

	switch in.sentiment {
	case "positive":
		parts = append(parts, "The review maintains a positive and constructive tone throughout, highlighting both strengths and areas for improvement.")
	case "negative":
		parts = append(parts, "The review identifies several concerns that require attention, while maintaining a constructive approach to addressing issues.")
	default:
		parts = append(parts, "The review provides a balanced, objective assessment of the work completed.")
	}

	if len(in.technologies) > 0 {
		parts = append(parts, fmt.Sprintf(
			"Technical implementation involves %s, demonstrating engagement with modern development practices.",
			strings.Join(first(in.technologies, 5), ", "),
		))
	}
	if len(in.aspects) > 0 {
		parts = append(parts, fmt.Sprintf(
			"The review specifically addresses %s, indicating a thorough code quality assessment.",
			strings.Join(first(in.aspects, 3), ", "),
		))
	}
	if len(in.strengths) == 1 {
		parts = append(parts, fmt.Sprintf("A notable strength identified is: %s.", in.strengths[0]))
	} else if len(in.strengths) > 1 {
		parts = append(parts, fmt.Sprintf(
			"Key strengths highlighted include: %s.",
			strings.Join(clipAll(first(in.strengths, 2), 80), "; "),
		))
	}
	if len(in.concerns) == 1 {
		parts = append(parts, fmt.Sprintf("The review notes a specific area for improvement: %s.", in.concerns[0]))
	} else if len(in.concerns) > 1 {
		parts = append(parts, fmt.Sprintf(
			"Areas requiring attention include: %s.",
			strings.Join(clipAll(first(in.concerns, 2), 80), "; "),
		))
	}
	if n := len(in.actions); n > 0 {
		noun := "recommendations"
		if n == 1 {
			noun = "recommendation"
		}
		parts = append(parts, fmt.Sprintf("The reviewer provides %d specific %s for enhancing the implementation.", n, noun))
	}

	return strings.Join(parts, " ")
}

func keyPoints(text string) []string {
	var points []string
	for _, sentence := range sentenceBoundary.Split(text, -1) {
		if sentence = strings.TrimSpace(sentence); len(sentence) > 50 {
			points = append(points, sentence)
		}
	}
	return first(points, 3)
}

func countLines(text string) int {
	n := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

func countAny(text string, words []string) int {
	n := 0
	for _, word := range words {
		n += strings.Count(text, word)
	}
	return n
}

func matchTopics(lower string) []string {
	var out []string
	for _, topic := range topicKeywords {
		if strings.Contains(lower, topic) {
			out = append(out, topic)
		}
	}
	return out
}

func matchTechnologies(lower string) []string {
	var out []string
	for _, tech := range techKeywords {
		if strings.Contains(lower, strings.ToLower(tech)) {
			out = append(out, tech)
		}
	}
	return out
}

func matchQualityAspects(lower string) []string {
	var out []string
	for _, check := range qualityChecks {
		for _, keyword := range check.keywords {
			if strings.Contains(lower, keyword) {
				out = append(out, check.aspect)
				break
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

func clipAll(items []string, n int) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = clip(item, n)
	}
	return out
}
