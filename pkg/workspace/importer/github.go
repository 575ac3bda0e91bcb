package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultGitHubAPI is the public GitHub REST endpoint.
const DefaultGitHubAPI = "https://api.github.com"

// GitHubSource lists a repository through the GitHub contents API.
type GitHubSource struct {
	Owner  string
	Repo   string
	Branch string
	// Token is sent as a bearer token when set.
	Token string
	// BaseURL overrides DefaultGitHubAPI.
	BaseURL string
	Client  *http.Client
}

// ParseRepo splits "owner/repo" or a github.com URL into owner and repo.
func ParseRepo(s string) (owner, repo string, err error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ".git")
	if u, perr := url.Parse(s); perr == nil && u.Host != "" {
		s = strings.TrimPrefix(u.Path, "/")
	}
	parts := strings.Split(strings.Trim(s, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository %q, want owner/repo", s)
	}
	return parts[0], parts[1], nil
}

func (g *GitHubSource) Name() string {
	if g.Branch == "" {
		return g.Owner + "/" + g.Repo
	}
	return g.Owner + "/" + g.Repo + "@" + g.Branch
}

func (g *GitHubSource) client() *http.Client {
	if g.Client != nil {
		return g.Client
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func (g *GitHubSource) base() string {
	if g.BaseURL == "" {
		return DefaultGitHubAPI
	}
	return strings.TrimRight(g.BaseURL, "/")
}

// contentItem is the subset of the contents API response we use.
type contentItem struct {
	Type        string `json:"type"`
	Path        string `json:"path"`
	Size        int64  `json:"size"`
	DownloadURL string `json:"download_url"`
}

// List walks the repository breadth-first, one request per directory.
func (g *GitHubSource) List(ctx context.Context) ([]Entry, error) {
	var out []Entry
	queue := []string{""}
	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]

		items, err := g.listDir(ctx, dir)
		if err != nil {
			return out, err
		}
		for _, it := range items {
			switch it.Type {
			case "dir":
				out = append(out, Entry{Path: it.Path, Kind: KindDir})
				queue = append(queue, it.Path)
			case "file":
				out = append(out, Entry{Path: it.Path, Kind: KindFile, Size: it.Size, DownloadURL: it.DownloadURL})
			}
			// symlinks and submodules are not imported
		}
	}
	return out, nil
}

func (g *GitHubSource) listDir(ctx context.Context, dir string) ([]contentItem, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/contents/%s", g.base(),
		url.PathEscape(g.Owner), url.PathEscape(g.Repo), escapePath(dir))
	if g.Branch != "" {
		u += "?ref=" + url.QueryEscape(g.Branch)
	}

	body, err := g.get(ctx, u, "application/vnd.github+json")
	if err != nil {
		return nil, err
	}

	var items []contentItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("decoding listing of %q: %w", dir, err)
	}
	return items, nil
}

func escapePath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

func (g *GitHubSource) Fetch(ctx context.Context, e Entry) ([]byte, error) {
	if e.Kind != KindFile {
		return nil, ErrNotFile
	}
	if e.DownloadURL == "" {
		return nil, fmt.Errorf("%s: no download url", e.Path)
	}
	return g.get(ctx, e.DownloadURL, "")
}

func (g *GitHubSource) get(ctx context.Context, u, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if g.Token != "" {
		req.Header.Set("Authorization", "Bearer "+g.Token)
	}

	resp, err := g.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("GET %s: %s: %s", u, resp.Status, strings.TrimSpace(string(msg)))
	}
	return io.ReadAll(resp.Body)
}
