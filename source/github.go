package source

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
)

// GitHub reads one file from a repository branch through the GitHub
// contents API. The version token is the SHA of the latest commit
// touching the path; a conditional fetch lists that commit first and
// skips the download when the SHA is unchanged.
type GitHub struct {
	client  *retryablehttp.Client
	baseURL string
	token   string
	owner   string
	repo    string
	branch  string
	path    string
}

var _ Source = (*GitHub)(nil)

type GitHubConfig struct {
	Owner  string
	Repo   string
	Branch string
	Path   string

	// Token is optional; sent as a bearer token when set. Required for
	// private repositories and for a sane rate limit.
	Token string

	// BaseURL is optional; defaults to https://api.github.com. Point it
	// at a GitHub Enterprise API root or a test server.
	BaseURL string

	// Client is optional; the default retries transient failures and
	// logs nothing.
	Client *retryablehttp.Client
}

func NewGitHub(cfg GitHubConfig) (*GitHub, error) {
	if cfg.Owner == "" || cfg.Repo == "" || cfg.Branch == "" || cfg.Path == "" {
		return nil, errors.New("source: github: owner, repo, branch and path are required")
	}
	client := cfg.Client
	if client == nil {
		client = retryablehttp.NewClient()
		client.Logger = nil
	}
	base := cfg.BaseURL
	if base == "" {
		base = "https://api.github.com"
	}
	return &GitHub{
		client:  client,
		baseURL: strings.TrimSuffix(base, "/"),
		token:   cfg.Token,
		owner:   cfg.Owner,
		repo:    cfg.Repo,
		branch:  cfg.Branch,
		path:    cfg.Path,
	}, nil
}

func (g *GitHub) Fetch(ctx context.Context) (string, []byte, error) {
	sha, err := g.lastCommit(ctx)
	if err != nil {
		return "", nil, err
	}
	content, err := g.content(ctx)
	if err != nil {
		return "", nil, err
	}
	return sha, content, nil
}

func (g *GitHub) FetchIfNewer(ctx context.Context, version string) (string, []byte, bool, error) {
	sha, err := g.lastCommit(ctx)
	if err != nil {
		return "", nil, false, err
	}
	if sha == version {
		return "", nil, false, nil
	}
	// The file may change again between the commit lookup and the
	// download; the next cycle just observes a newer commit and refetches.
	content, err := g.content(ctx)
	if err != nil {
		return "", nil, false, err
	}
	return sha, content, true, nil
}

func (g *GitHub) lastCommit(ctx context.Context) (string, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/commits?per_page=1&sha=%s&path=%s",
		g.baseURL, g.owner, g.repo, url.QueryEscape(g.branch), url.QueryEscape(g.path))
	body, err := g.get(ctx, u)
	if err != nil {
		return "", err
	}
	var commits []struct {
		SHA string `json:"sha"`
	}
	if err := json.Unmarshal(body, &commits); err != nil {
		return "", fmt.Errorf("source: github: decode commits: %w", err)
	}
	if len(commits) == 0 {
		return "", fmt.Errorf("source: github: no commits for %s on %s", g.path, g.branch)
	}
	return commits[0].SHA, nil
}

func (g *GitHub) content(ctx context.Context) ([]byte, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/contents/%s?ref=%s",
		g.baseURL, g.owner, g.repo, g.path, url.QueryEscape(g.branch))
	body, err := g.get(ctx, u)
	if err != nil {
		return nil, err
	}
	var file struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	if err := json.Unmarshal(body, &file); err != nil {
		return nil, fmt.Errorf("source: github: decode content: %w", err)
	}
	if file.Encoding != "base64" {
		return nil, fmt.Errorf("source: github: unexpected content encoding %q", file.Encoding)
	}
	// The API wraps base64 at 60 columns.
	raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(file.Content, "\n", ""))
	if err != nil {
		return nil, fmt.Errorf("source: github: decode base64: %w", err)
	}
	return raw, nil
}

func (g *GitHub) get(ctx context.Context, u string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("source: github: %s: unexpected status %s", u, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func (g *GitHub) String() string {
	return fmt.Sprintf("github:%s/%s@%s/%s", g.owner, g.repo, g.branch, g.path)
}
