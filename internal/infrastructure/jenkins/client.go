package jenkins

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/dreschagin/jenkins-collector/internal/domain/entity"
	"github.com/dreschagin/jenkins-collector/internal/domain/valueobject"
	"github.com/dreschagin/jenkins-collector/pkg/logger"
)

const (
	viewsTreeQuery  = "views[name,url,jobs[name,fullName,url,_class]]"
	buildsTreeQuery = "builds[number,timestamp,duration,result,url]"
)

// ClientConfig holds configuration for the Jenkins API client.
type ClientConfig struct {
	BaseURL        string
	Username       string
	APIToken       string
	RequestTimeout time.Duration
	RateLimit      float64 // requests per second; <= 0 disables limiting
	RateBurst      int
}

// Client reads the view/job/build hierarchy over the Jenkins JSON API.
// One bounded-timeout request at a time per call; a shared rate limiter
// keeps the collector polite towards the CI server.
type Client struct {
	baseURL  string
	username string
	apiToken string
	client   *http.Client
	limiter  *rate.Limiter
	logger   *logger.Logger
}

// NewClient creates a new Jenkins API client.
func NewClient(cfg ClientConfig, log *logger.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("jenkins base URL is required")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst < 1 {
		burst = 1
	}

	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		username: cfg.Username,
		apiToken: cfg.APIToken,
		client:   &http.Client{Timeout: cfg.RequestTimeout},
		limiter:  rate.NewLimiter(limit, burst),
		logger:   log,
	}, nil
}

// ListViews returns all views with their nested job summaries. When the
// tree query fails it falls back to the plain API, and when the server
// exposes no views but has root-level jobs, a single synthetic "All"
// view is returned holding them.
func (c *Client) ListViews(ctx context.Context) ([]entity.View, error) {
	var root rootResponse
	err := c.getJSON(ctx, "/api/json?tree="+url.QueryEscape(viewsTreeQuery), &root)
	if err != nil {
		c.logger.Warn("View tree query failed, trying plain API", "error", err.Error())
		root = rootResponse{}
		if err := c.getJSON(ctx, "/api/json", &root); err != nil {
			return nil, fmt.Errorf("fetch views: %w", err)
		}
	}

	views := make([]entity.View, 0, len(root.Views))
	for _, view := range root.Views {
		views = append(views, entity.View{
			Name: view.Name,
			Jobs: mapJobs(view.Jobs),
		})
	}

	if len(views) == 0 && len(root.Jobs) > 0 {
		c.logger.Info("No views found, using root-level jobs")
		views = append(views, entity.View{
			Name: "All",
			Jobs: mapJobs(root.Jobs),
		})
	}

	return views, nil
}

// ListBuilds returns the summary build list of a job: numbers, timestamps,
// durations and results, without the action payload.
func (c *Client) ListBuilds(ctx context.Context, jobPath string) ([]entity.Build, error) {
	endpoint := jobURLPath(jobPath) + "/api/json?tree=" + url.QueryEscape(buildsTreeQuery)

	var list buildListResponse
	if err := c.getJSON(ctx, endpoint, &list); err != nil {
		return nil, fmt.Errorf("fetch builds for %s: %w", jobPath, err)
	}

	builds := make([]entity.Build, 0, len(list.Builds))
	for _, raw := range list.Builds {
		builds = append(builds, mapBuild(raw))
	}

	return builds, nil
}

// BuildDetail returns the full detail of one build, including the action
// list that carries trigger causes.
func (c *Client) BuildDetail(ctx context.Context, jobPath string, number int) (entity.Build, error) {
	endpoint := jobURLPath(jobPath) + "/" + strconv.Itoa(number) + "/api/json"

	var raw buildResponse
	if err := c.getJSON(ctx, endpoint, &raw); err != nil {
		return entity.Build{}, fmt.Errorf("fetch build %s#%d: %w", jobPath, number, err)
	}

	return mapBuild(raw), nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(c.username, c.apiToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("jenkins returned %d for %s", resp.StatusCode, endpoint)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", endpoint, err)
	}

	return nil
}

func mapJobs(raw []jobResponse) []entity.Job {
	jobs := make([]entity.Job, 0, len(raw))
	for _, job := range raw {
		jobs = append(jobs, entity.Job{
			Name:     job.Name,
			FullName: job.FullName,
			Class:    job.Class,
		})
	}
	return jobs
}

func mapBuild(raw buildResponse) entity.Build {
	actions := make([]entity.BuildAction, 0, len(raw.Actions))
	for _, action := range raw.Actions {
		actions = append(actions, entity.BuildAction{Causes: action.Causes})
	}

	return entity.Build{
		Number:    raw.Number,
		Timestamp: raw.Timestamp,
		Duration:  raw.Duration,
		Result:    valueobject.ParseBuildResult(raw.Result),
		URL:       raw.URL,
		Actions:   actions,
	}
}

// jobURLPath converts a fully-qualified job name into the Jenkins URL
// path, escaping each segment. Folder nesting turns "team/app" into
// "/job/team/job/app".
func jobURLPath(fullName string) string {
	segments := strings.Split(fullName, "/")

	var path strings.Builder
	for _, segment := range segments {
		path.WriteString("/job/")
		path.WriteString(url.PathEscape(segment))
	}

	return path.String()
}
