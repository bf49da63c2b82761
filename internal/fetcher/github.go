package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/anishesg/internship-discord-bot/internal/config"
	"github.com/anishesg/internship-discord-bot/internal/util"
)

// FetchError reports a failed document retrieval (network failure or
// non-2xx status). Callers skip the poll cycle and retry on the next trigger.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: status code %d", e.URL, e.StatusCode)
}

func (e *FetchError) Unwrap() error { return e.Err }

// GitHub retrieves the raw source document for an (owner, repo, branch, path)
// locator from the raw-content host.
type GitHub struct {
	httpClient   *http.Client
	baseURL      string
	owner        string
	repo         string
	branch       string
	path         string
	allowedHosts []string
	maxRetries   int
}

func New(cfg *config.Config) *GitHub {
	return &GitHub{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		baseURL:      cfg.SourceBaseURL,
		owner:        cfg.SourceOwner,
		repo:         cfg.SourceRepo,
		branch:       cfg.SourceBranch,
		path:         cfg.SourcePath,
		allowedHosts: cfg.AllowedHosts,
		maxRetries:   3,
	}
}

// Fetch returns the raw document text, retrying transient failures with
// exponential backoff. The wait is bounded by the HTTP client timeout per
// attempt plus the backoff schedule, so a stuck fetch cannot wedge a caller.
func (g *GitHub) Fetch(ctx context.Context) (string, error) {
	rawURL := fmt.Sprintf("%s/%s/%s/%s/%s", g.baseURL, g.owner, g.repo, g.branch, g.path)

	var body string
	err := util.RetryWithBackoff(ctx, g.maxRetries, time.Second, func(attempt int) error {
		text, err := g.fetchOnce(ctx, rawURL)
		if err != nil {
			return err
		}
		body = text
		return nil
	})
	if err != nil {
		return "", err
	}
	return body, nil
}

func (g *GitHub) fetchOnce(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", &FetchError{URL: rawURL, Err: err}
	}
	if !g.hostAllowed(parsed.Hostname()) {
		return "", &FetchError{URL: rawURL, Err: fmt.Errorf("host %s is not in allowlist", parsed.Hostname())}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &FetchError{URL: rawURL, Err: err}
	}

	res, err := g.httpClient.Do(req)
	if err != nil {
		return "", &FetchError{URL: rawURL, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", &FetchError{URL: rawURL, StatusCode: res.StatusCode}
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return "", &FetchError{URL: rawURL, Err: err}
	}
	return string(data), nil
}

func (g *GitHub) hostAllowed(host string) bool {
	for _, h := range g.allowedHosts {
		if host == h {
			return true
		}
	}
	return false
}
