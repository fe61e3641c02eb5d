package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/classroomai/gateway/pkg/httpclient"
)

// HTTPDataClient is the concrete DataClient wired to the upstream
// classroom/submission/grade REST service, built on httpclient.Client
// for retry/backoff and guarded by a CircuitBreaker.
type HTTPDataClient struct {
	baseURL string
	client  *httpclient.Client
	breaker *CircuitBreaker
	timeout time.Duration
}

func NewHTTPDataClient(baseURL string, timeout time.Duration) *HTTPDataClient {
	return &HTTPDataClient{
		baseURL: baseURL,
		client: httpclient.New(
			httpclient.WithMaxRetries(2),
			httpclient.WithRetryStrategy(func(int) httpclient.RetryStrategy { return httpclient.ConservativeRetry }),
		),
		breaker: NewCircuitBreaker(5, 60*time.Second),
		timeout: timeout,
	}
}

func (c *HTTPDataClient) get(ctx context.Context, path string, out any) error {
	if err := c.breaker.Allow(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		c.breaker.RecordFailure()
		return fmt.Errorf("external: build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.breaker.RecordFailure()
		return fmt.Errorf("external: call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		c.breaker.RecordFailure()
		return fmt.Errorf("external: %s returned status %d", path, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("external: %s returned status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.breaker.RecordFailure()
		return fmt.Errorf("external: decode %s response: %w", path, err)
	}
	c.breaker.RecordSuccess()
	return nil
}

func (c *HTTPDataClient) ListClasses(ctx context.Context, teacherID string) ([]ClassSummary, error) {
	var out []ClassSummary
	err := c.get(ctx, fmt.Sprintf("/teachers/%s/classes", teacherID), &out)
	return out, err
}

func (c *HTTPDataClient) GetClassDetail(ctx context.Context, teacherID, classID string) (ClassSummary, error) {
	var out ClassSummary
	err := c.get(ctx, fmt.Sprintf("/teachers/%s/classes/%s", teacherID, classID), &out)
	return out, err
}

func (c *HTTPDataClient) GetAssignmentSubmissions(ctx context.Context, teacherID, assignmentID string) ([]Submission, error) {
	var out []Submission
	err := c.get(ctx, fmt.Sprintf("/teachers/%s/assignments/%s/submissions", teacherID, assignmentID), &out)
	return out, err
}

func (c *HTTPDataClient) GetStudentGrades(ctx context.Context, teacherID, studentID string) ([]Grade, error) {
	var out []Grade
	err := c.get(ctx, fmt.Sprintf("/teachers/%s/students/%s/grades", teacherID, studentID), &out)
	return out, err
}

func (c *HTTPDataClient) ResolveEntity(ctx context.Context, teacherID, query string) (map[string]any, error) {
	var out map[string]any
	err := c.get(ctx, fmt.Sprintf("/teachers/%s/resolve?q=%s", teacherID, query), &out)
	return out, err
}
