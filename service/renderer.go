package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/AnTengye/brdlayout/config"
	"github.com/AnTengye/brdlayout/model"
	"github.com/AnTengye/brdlayout/pkg/logger"
	"github.com/sashabaranov/go-openai"
)

// StyleSuffix is appended to every extracted prompt before it is rendered.
const StyleSuffix = " | Full-screen Power BI report layout, visuals titled in Times New Roman font. Reports must be clean, professional, with clear alignment."

var errNoImage = errors.New("image response contained no data")

// ImageRenderer produces one mockup per prompt through the image model.
type ImageRenderer struct {
	client ImageCreator
	model  string
	size   string
}

func NewImageRenderer(client ImageCreator, cfg *config.OpenAIConfig) *ImageRenderer {
	return &ImageRenderer{
		client: client,
		model:  cfg.ImageModel,
		size:   cfg.ImageSize,
	}
}

// Render issues a single image request. Failures are reported in the result, not as an error.
func (r *ImageRenderer) Render(ctx context.Context, prompt string) model.RenderResult {
	url, err := r.generate(ctx, prompt)
	if err != nil {
		logger.Warn(ctx, "image generation failed", "model", r.model, "error", err)
		return model.RenderFailed(fmt.Sprintf("Image generation failed: %v", err))
	}
	return model.RenderSucceeded(url)
}

func (r *ImageRenderer) generate(ctx context.Context, prompt string) (string, error) {
	resp, err := r.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          r.model,
		N:              1,
		Size:           r.size,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", errNoImage
	}
	return resp.Data[0].URL, nil
}
