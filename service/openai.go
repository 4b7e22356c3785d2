package service

import (
	"context"
	"net/http"

	"github.com/AnTengye/brdlayout/config"
	"github.com/sashabaranov/go-openai"
)

// ChatCompleter is the text-completion capability used by LayoutGenerator.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ImageCreator is the image-generation capability used by ImageRenderer.
type ImageCreator interface {
	CreateImage(ctx context.Context, req openai.ImageRequest) (openai.ImageResponse, error)
}

// NewOpenAIClient builds the shared API client once at startup. The same client
// serves both completions and image generation.
func NewOpenAIClient(cfg *config.OpenAIConfig) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return openai.NewClientWithConfig(clientCfg)
}
