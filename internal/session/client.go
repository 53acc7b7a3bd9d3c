package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/examly/examly-backend/internal/model"
	"github.com/google/uuid"
)

// HTTPClient talks to the exam API on behalf of a session. The token and
// base URL are injected so nothing is read from ambient state.
type HTTPClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchExam loads the student view of an exam.
func (c *HTTPClient) FetchExam(ctx context.Context, examID uuid.UUID) (*model.StudentExamView, error) {
	var exam model.StudentExamView
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/exams/%s", examID), nil, &exam); err != nil {
		return nil, err
	}
	return &exam, nil
}

// Submit sends the answer set and returns the grading result.
func (c *HTTPClient) Submit(ctx context.Context, examID uuid.UUID, req *model.SubmitExamRequest) (*model.SubmitResult, error) {
	var result model.SubmitResult
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/exams/%s/submit", examID), req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Report forwards one integrity violation.
func (c *HTTPClient) Report(ctx context.Context, examID uuid.UUID, req *model.ReportViolationRequest) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/exams/%s/violations", examID), req, nil)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("%s %s: status %d: %w", method, path, res.StatusCode, err)
	}
	if !envelope.Success {
		return fmt.Errorf("%s %s: %s", method, path, envelope.Error)
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}
	return nil
}
