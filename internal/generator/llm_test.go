package generator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ai-quiz-service/internal/domain"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func chatReply(content string) string {
	payload, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{{"message": map[string]string{"content": content}}},
	})
	return string(payload)
}

func TestLLMGenerate(t *testing.T) {
	var captured chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected auth header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		content := "```json\n" + `{"questions":[
			{"question":"Q1","options":["a","b","c","d"],"answers":["a","b"],"explanation":"a and b"},
			{"question":"Q2","options":["a","b","c","d"],"answers":["x"],"explanation":"bad"},
			{"question":"Q3","options":["a","b","c","d"],"answers":["c"],"explanation":"c"}
		]}` + "\n```"
		_, _ = w.Write([]byte(chatReply(content)))
	}))
	defer server.Close()

	gen := NewLLM("secret", server.URL, "test-model", server.Client(), quietLogger())
	questions, err := gen.Generate(context.Background(), domain.GenerationRequest{Topic: " Go ", NumberQuestions: 2, Difficulty: "Hard"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(questions) != 1 || questions[0].Text != "Q1" || !questions[0].MultiSelect() {
		t.Fatalf("expected truncation to 2 then drop of invalid, got %+v", questions)
	}
	if captured.Model != "test-model" || len(captured.Messages) != 2 {
		t.Fatalf("unexpected request %+v", captured)
	}
	if !strings.Contains(captured.Messages[1].Content, "topic: 'Go'") || !strings.Contains(captured.Messages[1].Content, "Difficulty: hard") {
		t.Fatalf("prompt missing normalized request: %s", captured.Messages[1].Content)
	}
}

func TestLLMGenerateErrors(t *testing.T) {
	if _, err := NewLLM("", "", "m", nil, quietLogger()).Generate(context.Background(), domain.GenerationRequest{}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}

	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{name: "status", status: http.StatusTooManyRequests, body: "rate limited", want: "status 429"},
		{name: "api error", status: http.StatusOK, body: `{"error":{"message":"quota"}}`, want: "model error: quota"},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`, want: "empty response"},
		{name: "bad json", status: http.StatusOK, body: chatReply("not json"), want: "invalid JSON"},
		{name: "nothing valid", status: http.StatusOK, body: chatReply(`{"questions":[]}`), want: ErrNoValidQuestions.Error()},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			gen := NewLLM("key", server.URL, "m", server.Client(), quietLogger())
			_, err := gen.Generate(context.Background(), domain.GenerationRequest{Topic: "t", NumberQuestions: 1, Difficulty: "easy"})
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCleanJSONContent(t *testing.T) {
	cases := map[string]string{
		"```json\n{}\n```": "{}",
		"```{}```":         "{}",
		"  {}  ":           "{}",
	}
	for in, want := range cases {
		if got := cleanJSONContent(in); got != want {
			t.Fatalf("cleanJSONContent(%q) = %q, want %q", in, got, want)
		}
	}
}
