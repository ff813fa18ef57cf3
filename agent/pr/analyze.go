package pr

import (
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/rayhaanfarooq/squire/agent"
)

// Result is the done payload this producer publishes.
type Result struct {
	Agent    string       `json:"agent"`
	Status   agent.Status `json:"status"`
	Repo     string       `json:"repo"`
	Analyses []Analysis   `json:"analyses"`
	Count    int          `json:"count"`
	Summary  string       `json:"summary,omitempty"`
	Message  string       `json:"message,omitempty"`
}

// Analysis describes a single pull request.
type Analysis struct {
	PRNumber  int     `json:"pr_number"`
	Title     string  `json:"title"`
	Author    string  `json:"author"`
	URL       string  `json:"url"`
	State     string  `json:"state"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
	MergedAt  string  `json:"merged_at"`
	Metrics   Metrics `json:"metrics"`
	Summary   string  `json:"summary"`
	Review    Review  `json:"review"`
}

// Metrics aggregates the change counters of a pull request.
type Metrics struct {
	FilesChanged int            `json:"files_changed"`
	Additions    int            `json:"additions"`
	Deletions    int            `json:"deletions"`
	NetChange    int            `json:"net_change"`
	FileTypes    map[string]int `json:"file_types"`
}

// Review is a heuristic assessment of size and blast radius.
type Review struct {
	Complexity      string   `json:"complexity"`
	RiskLevel       string   `json:"risk_level"`
	Recommendations []string `json:"recommendations"`
}

func analyze(detail pullRequest, files []pullFile) Analysis {
	return Analysis{
		PRNumber:  detail.Number,
		Title:     detail.Title,
		Author:    detail.User.Login,
		URL:       detail.HTMLURL,
		State:     detail.State,
		CreatedAt: detail.CreatedAt,
		UpdatedAt: detail.UpdatedAt,
		MergedAt:  detail.MergedAt,
		Metrics:   measure(detail, files),
		Summary:   summarize(detail, files),
		Review:    review(detail, files),
	}
}

func measure(detail pullRequest, files []pullFile) Metrics {
	types := make(map[string]int)
	for _, f := range files {
		ext := strings.TrimPrefix(path.Ext(f.Filename), ".")
		if ext == "" {
			ext = "other"
		}
		types[ext]++
	}
	return Metrics{
		FilesChanged: len(files),
		Additions:    detail.Additions,
		Deletions:    detail.Deletions,
		NetChange:    detail.Additions - detail.Deletions,
		FileTypes:    types,
	}
}

// keyFiles returns the five most heavily changed files.
func keyFiles(files []pullFile) []pullFile {
	ranked := slices.Clone(files)
	slices.SortFunc(ranked, func(x, y pullFile) int {
		return (y.Additions + y.Deletions) - (x.Additions + x.Deletions)
	})
	if len(ranked) > 5 {
		ranked = ranked[:5]
	}
	return ranked
}

func summarize(detail pullRequest, files []pullFile) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "PR #%d: %s\n", detail.Number, detail.Title)
	fmt.Fprintf(&sb, "Author: %s\n", detail.User.Login)
	fmt.Fprintf(&sb, "Status: %s\n", detail.State)
	fmt.Fprintf(&sb, "Files changed: %d\n", len(files))
	fmt.Fprintf(&sb, "Additions: +%d, Deletions: -%d", detail.Additions, detail.Deletions)

	if ranked := keyFiles(files); len(ranked) > 0 {
		names := make([]string, len(ranked))
		for i, f := range ranked {
			names[i] = fmt.Sprintf("%s (+%d/-%d)", f.Filename, f.Additions, f.Deletions)
		}
		fmt.Fprintf(&sb, "\nKey files modified: %s", strings.Join(names, ", "))
	}
	if body := strings.TrimSpace(detail.Body); body != "" {
		if len(body) > 300 {
			body = body[:300]
		}
		fmt.Fprintf(&sb, "\nDescription: %s", body)
	}
	return sb.String()
}

func review(detail pullRequest, files []pullFile) Review {
	total := detail.Additions + detail.Deletions

	complexity := "low"
	switch {
	case total > 500:
		complexity = "high"
	case total > 100:
		complexity = "medium"
	}

	risk := "low"
	switch {
	case len(files) > 20:
		risk = "high"
	case len(files) > 5:
		risk = "medium"
	}

	var recommendations []string
	if total > 1000 {
		recommendations = append(recommendations, "Large PR - consider breaking into smaller changes")
	}
	if len(files) > 15 {
		recommendations = append(recommendations, "Many files changed - ensure thorough testing")
	}
	if len(recommendations) == 0 {
		recommendations = append(recommendations, "PR looks manageable")
	}

	return Review{Complexity: complexity, RiskLevel: risk, Recommendations: recommendations}
}
