package pr

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"

	json "github.com/goccy/go-json"
)

// pullRequest is the subset of the GitHub pull request resource the
// analyzer reads. Timestamps stay as RFC 3339 strings, which also makes
// them sortable without parsing.
type pullRequest struct {
	Number    int    `json:"number"`
	Title     string `json:"title"`
	State     string `json:"state"`
	Body      string `json:"body"`
	HTMLURL   string `json:"html_url"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
	MergedAt  string `json:"merged_at"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	User      struct {
		Login string `json:"login"`
	} `json:"user"`
}

type pullFile struct {
	Filename  string `json:"filename"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

// recentMerged returns up to limit merged pull requests, most recently
// merged first. GitHub has no merged-state filter, so this over-fetches a
// page of closed pull requests by update time and drops the unmerged ones.
func (a *analyzer) recentMerged(ctx context.Context, limit int) ([]pullRequest, error) {
	query := url.Values{
		"state":     {"closed"},
		"per_page":  {fmt.Sprintf("%d", max(limit, 10))},
		"sort":      {"updated"},
		"direction": {"desc"},
	}

	var closed []pullRequest
	if err := a.get(ctx, fmt.Sprintf("/repos/%s/%s/pulls", a.owner, a.repo), query, &closed); err != nil {
		return nil, err
	}

	merged := slices.DeleteFunc(closed, func(p pullRequest) bool { return p.MergedAt == "" })
	slices.SortFunc(merged, func(x, y pullRequest) int {
		return strings.Compare(y.MergedAt, x.MergedAt)
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

// details fetches the full pull request, which carries the change
// counters the list endpoint omits, along with its changed files.
func (a *analyzer) details(ctx context.Context, number int) (pullRequest, []pullFile, error) {
	var detail pullRequest
	if err := a.get(ctx, fmt.Sprintf("/repos/%s/%s/pulls/%d", a.owner, a.repo, number), nil, &detail); err != nil {
		return pullRequest{}, nil, err
	}

	var files []pullFile
	if err := a.get(ctx, fmt.Sprintf("/repos/%s/%s/pulls/%d/files", a.owner, a.repo, number), nil, &files); err != nil {
		return pullRequest{}, nil, err
	}
	return detail, files, nil
}

func (a *analyzer) get(ctx context.Context, path string, query url.Values, out any) error {
	target := a.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "Squire-PR-Agent")
	if a.token != "" {
		req.Header.Set("Authorization", "token "+a.token)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("github responded %s for %s", resp.Status, path)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
