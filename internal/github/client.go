// Package github fetches the repository metadata the summarizer works
// from: README content, star count and latest release tag.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"

	"github.com/helvet/keyhub/internal/config"
)

// ErrInvalidRepoURL means the URL is not an https://github.com/owner/repo link.
var ErrInvalidRepoURL = errors.New("Invalid GitHub repository URL")

var repoURLPattern = regexp.MustCompile(`^https://github\.com/([^/]+)/([^/]+)(/|$)`)

// ParseRepoURL extracts owner and repository name from a GitHub URL.
func ParseRepoURL(url string) (owner, repo string, err error) {
	m := repoURLPattern.FindStringSubmatch(url)
	if m == nil {
		return "", "", ErrInvalidRepoURL
	}
	return m[1], m[2], nil
}

// RepoInfo is everything the summarizer needs about a repository.
// Readme is empty when no README could be fetched; LatestVersion is
// empty when the repository has no releases.
type RepoInfo struct {
	Owner         string
	Repo          string
	Stars         int64
	LatestVersion string
	Readme        string
}

type Client struct {
	apiBase string
	rawBase string
	token   string
	http    *http.Client
}

func NewClient(cfg config.GitHubConfig) *Client {
	return &Client{
		apiBase: cfg.APIBaseURL,
		rawBase: cfg.RawBaseURL,
		token:   cfg.Token,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

// FetchRepoInfo gathers metadata for the repository behind url. Star
// count and release lookups are best effort; only an unparseable URL is
// an error.
func (c *Client) FetchRepoInfo(ctx context.Context, url string) (*RepoInfo, error) {
	owner, repo, err := ParseRepoURL(url)
	if err != nil {
		return nil, err
	}

	info := &RepoInfo{Owner: owner, Repo: repo}
	info.Stars, _ = c.fetchStars(ctx, owner, repo)
	info.LatestVersion, _ = c.fetchLatestVersion(ctx, owner, repo)
	info.Readme = c.fetchReadme(ctx, owner, repo)
	return info, nil
}

func (c *Client) fetchStars(ctx context.Context, owner, repo string) (int64, error) {
	var meta struct {
		StargazersCount int64 `json:"stargazers_count"`
	}
	err := c.getJSON(ctx, fmt.Sprintf("%s/repos/%s/%s", c.apiBase, owner, repo), &meta)
	if err != nil {
		return 0, err
	}
	return meta.StargazersCount, nil
}

func (c *Client) fetchLatestVersion(ctx context.Context, owner, repo string) (string, error) {
	var release struct {
		TagName string `json:"tag_name"`
	}
	err := c.getJSON(ctx, fmt.Sprintf("%s/repos/%s/%s/releases/latest", c.apiBase, owner, repo), &release)
	if err != nil {
		return "", err
	}
	return release.TagName, nil
}

// fetchReadme tries the main branch first, then master.
func (c *Client) fetchReadme(ctx context.Context, owner, repo string) string {
	for _, branch := range []string{"main", "master"} {
		url := fmt.Sprintf("%s/%s/%s/%s/README.md", c.rawBase, owner, repo, branch)
		body, err := c.getRaw(ctx, url)
		if err == nil && body != "" {
			return body
		}
	}
	return ""
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	body, err := c.getRaw(ctx, url)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(body), out)
}

func (c *Client) getRaw(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
