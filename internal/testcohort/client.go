package testcohort

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/okian/riskprofiler/internal/domain/model"
)

// Client talks to the risk profiler HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for baseURL with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// StatusError is returned for unexpected response codes.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Status, e.Body)
}

func (c *Client) do(ctx context.Context, method, path string, body any, want []int, out any, headers ...string) error {
	var rd io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	ok := false
	for _, s := range want {
		ok = ok || resp.StatusCode == s
	}
	if !ok {
		return &StatusError{Status: resp.StatusCode, Body: string(bytes.TrimSpace(raw))}
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, []int{http.StatusOK}, nil)
}

// PutCohort uploads a cohort.
func (c *Client) PutCohort(ctx context.Context, cohort *model.Cohort) (model.CohortInfo, error) {
	var info model.CohortInfo
	err := c.do(ctx, http.MethodPost, "/cohorts", cohort, []int{http.StatusCreated}, &info)
	return info, err
}

// Summary fetches the cohort summary.
func (c *Client) Summary(ctx context.Context, cohortID, scheme string) (model.Summary, error) {
	var sum model.Summary
	err := c.do(ctx, http.MethodGet, "/cohorts/"+url.PathEscape(cohortID)+"/summary"+schemeQuery(scheme), nil, []int{http.StatusOK}, &sum)
	return sum, err
}

// SubmitJob queues a background analysis.
func (c *Client) SubmitJob(ctx context.Context, cohortID, scheme, idempotencyKey string) (model.Job, error) {
	var job model.Job
	body := map[string]string{"cohort_id": cohortID, "scheme": scheme}
	var headers []string
	if idempotencyKey != "" {
		headers = []string{"Idempotency-Key", idempotencyKey}
	}
	err := c.do(ctx, http.MethodPost, "/jobs", body, []int{http.StatusAccepted, http.StatusOK}, &job, headers...)
	return job, err
}

// Job fetches a job.
func (c *Client) Job(ctx context.Context, id string) (model.Job, error) {
	var job model.Job
	err := c.do(ctx, http.MethodGet, "/jobs/"+url.PathEscape(id), nil, []int{http.StatusOK}, &job)
	return job, err
}

// defaultPoll is used when WaitJob is given a non-positive interval.
const defaultPoll = 250 * time.Millisecond

// WaitJob polls a job until it finishes or ctx ends.
func (c *Client) WaitJob(ctx context.Context, id string, every time.Duration) (model.Job, error) {
	if every <= 0 {
		every = defaultPoll
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		job, err := c.Job(ctx, id)
		if err != nil {
			return model.Job{}, err
		}
		if job.Done() {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

func schemeQuery(scheme string) string {
	if scheme == "" {
		return ""
	}
	return "?scheme=" + url.QueryEscape(scheme)
}
