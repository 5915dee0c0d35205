package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"ai-quiz-service/internal/auth"
	"ai-quiz-service/internal/domain"
)

var ErrServiceUnavailable = errors.New("quiz backend unavailable")

// APIError is a non-2xx reply from the backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return e.Message
}

// HTTPClient talks to the quiz backend: question generation plus the
// dashboard endpoints that persist snapshots and results.
type HTTPClient struct {
	baseURL      string
	httpClient   *http.Client
	tokens       auth.TokenSource
	flushTimeout time.Duration
	logger       *log.Logger

	flushes sync.WaitGroup
}

// Options configures an HTTPClient.
type Options struct {
	HTTPClient   *http.Client
	FlushTimeout time.Duration
	Logger       *log.Logger
}

func NewHTTPClient(baseURL string, tokens auth.TokenSource, opts Options) *HTTPClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8080"
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.FlushTimeout <= 0 {
		opts.FlushTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &HTTPClient{
		baseURL:      baseURL,
		httpClient:   opts.HTTPClient,
		tokens:       tokens,
		flushTimeout: opts.FlushTimeout,
		logger:       opts.Logger,
	}
}

// quizID accepts identifiers encoded as JSON strings or numbers.
type quizID string

func (q *quizID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*q = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*q = quizID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("quiz_id must be a string or number: %w", err)
	}
	*q = quizID(n.String())
	return nil
}

type savedResponse struct {
	QuizID quizID `json:"quiz_id"`
}

type resumeResponse struct {
	QuizID quizID `json:"quiz_id"`
	domain.Snapshot
}

type questionsResponse struct {
	Questions domain.QuestionSet `json:"questions"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// Generate requests a question set from the backend's generation endpoint.
func (c *HTTPClient) Generate(ctx context.Context, req domain.GenerationRequest) (domain.QuestionSet, error) {
	var payload questionsResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/generate-questions", "", req, &payload); err != nil {
		return nil, err
	}
	return payload.Questions, nil
}

// SaveSnapshot upserts an ongoing quiz and returns the server-assigned id.
func (c *HTTPClient) SaveSnapshot(ctx context.Context, snap domain.Snapshot) (string, error) {
	token, err := c.token(ctx)
	if err != nil {
		return "", err
	}
	var payload savedResponse
	if err := c.doJSON(ctx, http.MethodPost, "/dashboard/save-state", token, snap, &payload); err != nil {
		return "", err
	}
	if payload.QuizID == "" {
		return "", errors.New("save-state response has no quiz_id")
	}
	return string(payload.QuizID), nil
}

// LoadSnapshot fetches an ongoing quiz. A 404 maps to domain.ErrSnapshotNotFound.
func (c *HTTPClient) LoadSnapshot(ctx context.Context, id string) (domain.Snapshot, error) {
	token, err := c.token(ctx)
	if err != nil {
		return domain.Snapshot{}, err
	}
	var payload resumeResponse
	if err := c.doJSON(ctx, http.MethodGet, "/dashboard/resume/"+url.PathEscape(id), token, nil, &payload); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return domain.Snapshot{}, fmt.Errorf("%w: %s", domain.ErrSnapshotNotFound, apiErr.Message)
		}
		return domain.Snapshot{}, err
	}
	snap := payload.Snapshot
	snap.SessionID = string(payload.QuizID)
	if snap.SessionID == "" {
		snap.SessionID = id
	}
	return snap, nil
}

// SaveResult records a finished quiz.
func (c *HTTPClient) SaveResult(ctx context.Context, result domain.Result) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodPost, "/dashboard/save-quiz", token, result, nil)
}

// FlushSnapshot saves a snapshot in the background without blocking the caller.
func (c *HTTPClient) FlushSnapshot(snap domain.Snapshot) {
	c.flushes.Add(1)
	go func() {
		defer c.flushes.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.flushTimeout)
		defer cancel()
		if _, err := c.SaveSnapshot(ctx, snap); err != nil && !errors.Is(err, domain.ErrUnauthenticated) {
			c.logger.Printf("flush snapshot failed: %v", err)
		}
	}()
}

// Drain waits for pending flushes or until ctx is done.
func (c *HTTPClient) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.flushes.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *HTTPClient) token(ctx context.Context) (string, error) {
	if c.tokens == nil {
		return "", domain.ErrUnauthenticated
	}
	return c.tokens.Token(ctx)
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path, token string, requestBody any, responseBody any) error {
	fullURL := c.baseURL + path
	if token != "" {
		query := url.Values{}
		query.Set("token", token)
		fullURL += "?" + query.Encode()
	}

	var body io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return err
	}
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		apiErr := &APIError{StatusCode: response.StatusCode}
		var payload errorResponse
		if err := json.NewDecoder(response.Body).Decode(&payload); err == nil {
			apiErr.Message = strings.TrimSpace(payload.Error)
			if apiErr.Message == "" {
				apiErr.Message = strings.TrimSpace(payload.Detail)
			}
		}
		if apiErr.Message == "" {
			apiErr.Message = response.Status
		}
		switch response.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %s", domain.ErrUnauthenticated, apiErr.Message)
		case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
			return fmt.Errorf("%w: %w", ErrServiceUnavailable, apiErr)
		}
		return apiErr
	}

	if responseBody == nil {
		return nil
	}
	return json.NewDecoder(response.Body).Decode(responseBody)
}
