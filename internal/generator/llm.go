package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"ai-quiz-service/internal/domain"
)

const defaultBaseURL = "https://openrouter.ai/api/v1"

// ErrNotConfigured is returned when the LLM generator has no API key.
var ErrNotConfigured = errors.New("question generation is not configured")

// HTTPDoer abstracts the HTTP client used to reach the model.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// LLM generates questions through an OpenAI-compatible chat completions API.
type LLM struct {
	APIKey  string
	BaseURL string
	Model   string
	Client  HTTPDoer
	Logger  *log.Logger
}

// NewLLM constructs an LLM generator. An empty base URL uses OpenRouter.
func NewLLM(apiKey, baseURL, model string, client HTTPDoer, logger *log.Logger) *LLM {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = log.Default()
	}
	return &LLM{
		APIKey:  strings.TrimSpace(apiKey),
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		Client:  client,
		Logger:  logger,
	}
}

// Available reports whether an API key is configured.
func (g *LLM) Available() bool {
	return g.APIKey != ""
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type questionsPayload struct {
	Questions domain.QuestionSet `json:"questions"`
}

const systemPrompt = `You create high-quality multiple-choice questions. Always follow the requested structure and constraints.
Respond with ONLY valid JSON (no markdown, no code fences) in this format:
{"questions": [{"question": "...", "options": ["...", "...", "...", "..."], "answers": ["..."], "explanation": "..."}]}`

func userPrompt(req domain.GenerationRequest) string {
	return fmt.Sprintf(`Generate %d multiple-choice question objects for topic: '%s'.
Difficulty: %s.

Constraints:
- Each question must have exactly 4 options.
- Some questions should have multiple correct answers (2-3); others may have exactly one.
- Include a concise 1-2 sentence explanation for the correct answer(s).
- Keep content educational and appropriate.
- If multiple answers are correct, ensure 'answers' includes ALL correct options exactly as in 'options'.`,
		req.NumberQuestions, req.Topic, req.Difficulty)
}

// Generate asks the model for questions and sanitizes its reply.
func (g *LLM) Generate(ctx context.Context, req domain.GenerationRequest) (domain.QuestionSet, error) {
	if !g.Available() {
		return nil, ErrNotConfigured
	}
	req, err := req.Normalize()
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(chatRequest{
		Model:       g.Model,
		Temperature: 0.4,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(req)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("model request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("model returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var chat chatResponse
	if err := json.Unmarshal(body, &chat); err != nil {
		return nil, fmt.Errorf("parse model response: %w", err)
	}
	if chat.Error != nil {
		return nil, fmt.Errorf("model error: %s", chat.Error.Message)
	}
	if len(chat.Choices) == 0 {
		return nil, errors.New("empty response from model")
	}

	var parsed questionsPayload
	if err := json.Unmarshal([]byte(cleanJSONContent(chat.Choices[0].Message.Content)), &parsed); err != nil {
		return nil, fmt.Errorf("model returned invalid JSON: %w", err)
	}
	return Sanitize(parsed.Questions, req.NumberQuestions, g.Logger)
}

func cleanJSONContent(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
