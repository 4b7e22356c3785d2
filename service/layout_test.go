package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/AnTengye/brdlayout/config"
	"github.com/sashabaranov/go-openai"
)

func testOpenAIConfig() *config.OpenAIConfig {
	return &config.OpenAIConfig{
		APIKey:      "sk-test",
		ChatModel:   "gpt-4o",
		Temperature: 0.7,
		ImageModel:  "dall-e-3",
		ImageSize:   "1024x1024",
	}
}

func TestSplitLayouts(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"three segments", "A---B---C", []string{"A", "B", "C"}},
		{"whitespace trimmed", "  A \n---\n B  ---C\n", []string{"A", "B", "C"}},
		{"no delimiter", "only one layout", []string{"only one layout"}},
		{"trailing delimiter kept", "A---", []string{"A", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SplitLayouts(tt.raw); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitLayouts(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestLayoutGeneratorRequest(t *testing.T) {
	fake := &fakeCompleter{content: "A---B---C"}
	gen := NewLayoutGenerator(fake, testOpenAIConfig())

	segments := gen.Generate(context.Background(), "Need a sales dashboard")

	if !reflect.DeepEqual(segments, []string{"A", "B", "C"}) {
		t.Errorf("Unexpected segments %q", segments)
	}
	if fake.calls != 1 {
		t.Errorf("Expected a single completion call, got %d", fake.calls)
	}

	req := fake.lastReq
	if req.Model != "gpt-4o" {
		t.Errorf("Expected model gpt-4o, got %s", req.Model)
	}
	if req.Temperature != 0.7 {
		t.Errorf("Expected temperature 0.7, got %v", req.Temperature)
	}
	if req.Stream {
		t.Error("Expected non-streaming request")
	}
	if len(req.Messages) != 2 {
		t.Fatalf("Expected system and user messages, got %d", len(req.Messages))
	}
	if req.Messages[0].Role != openai.ChatMessageRoleSystem || req.Messages[0].Content != LayoutSystemPrompt {
		t.Errorf("Unexpected system message %+v", req.Messages[0])
	}
	if req.Messages[1].Content != "Requirement document:\nNeed a sales dashboard" {
		t.Errorf("Unexpected user message %q", req.Messages[1].Content)
	}
}

func TestLayoutSystemPromptShape(t *testing.T) {
	for _, want := range []string{"3 unique layout plans", "Exactly 5 to 6 visuals", "KPI card", "Cluster Bar Chart", "4. Prompt:", "'---'"} {
		if !strings.Contains(LayoutSystemPrompt, want) {
			t.Errorf("Expected system prompt to mention %q", want)
		}
	}
}

func TestLayoutGeneratorFailure(t *testing.T) {
	gen := NewLayoutGenerator(&fakeCompleter{err: errQuota}, testOpenAIConfig())

	segments := gen.Generate(context.Background(), "text")

	if len(segments) != 1 {
		t.Fatalf("Expected one segment, got %d", len(segments))
	}
	if !strings.HasPrefix(segments[0], "Error:") {
		t.Errorf("Expected Error: prefix, got %q", segments[0])
	}
	if !strings.Contains(segments[0], "quota exceeded") {
		t.Errorf("Expected failure detail, got %q", segments[0])
	}
}

func TestLayoutGeneratorNoChoices(t *testing.T) {
	gen := NewLayoutGenerator(&emptyCompleter{}, testOpenAIConfig())

	segments := gen.Generate(context.Background(), "text")
	if len(segments) != 1 || !strings.HasPrefix(segments[0], "Error:") {
		t.Errorf("Expected single error segment, got %q", segments)
	}
}

type emptyCompleter struct{}

func (emptyCompleter) CreateChatCompletion(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return openai.ChatCompletionResponse{}, nil
}

func TestLayoutGeneratorOverHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("Expected /v1/chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("Expected bearer token, got %q", r.Header.Get("Authorization"))
		}

		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if req.Model != "gpt-4o" {
			t.Errorf("Expected gpt-4o, got %s", req.Model)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4o",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": "Objective: a\nPrompt: one --- Objective: b\nPrompt: two"},
				"finish_reason": "stop",
			}},
		})
	}))
	defer server.Close()

	cfg := testOpenAIConfig()
	cfg.BaseURL = server.URL + "/v1"
	gen := NewLayoutGenerator(NewOpenAIClient(cfg), cfg)

	segments := gen.Generate(context.Background(), "brd")
	if len(segments) != 2 {
		t.Fatalf("Expected 2 segments, got %q", segments)
	}
	if ExtractPrompt(segments[1]) != "two" {
		t.Errorf("Expected prompt 'two', got %q", ExtractPrompt(segments[1]))
	}
}

func TestLayoutGeneratorRequestTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	cfg := testOpenAIConfig()
	cfg.BaseURL = server.URL + "/v1"
	cfg.Timeout = 50 * time.Millisecond
	gen := NewLayoutGenerator(NewOpenAIClient(cfg), cfg)

	start := time.Now()
	segments := gen.Generate(context.Background(), "brd")
	if len(segments) != 1 || !strings.HasPrefix(segments[0], "Error:") {
		t.Fatalf("Expected a single Error: segment, got %q", segments)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Expected the configured timeout to cut the request short, took %v", elapsed)
	}
}

func TestLayoutGeneratorHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	cfg := testOpenAIConfig()
	cfg.BaseURL = server.URL + "/v1"
	gen := NewLayoutGenerator(NewOpenAIClient(cfg), cfg)

	segments := gen.Generate(context.Background(), "brd")
	if len(segments) != 1 || !strings.HasPrefix(segments[0], "Error:") {
		t.Fatalf("Expected single error segment, got %q", segments)
	}
	if !strings.Contains(segments[0], "Incorrect API key") {
		t.Errorf("Expected API message in segment, got %q", segments[0])
	}
}
