package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ImageFetcher downloads rendered mockups so they can be offered as files.
type ImageFetcher struct {
	httpClient *http.Client
}

func NewImageFetcher(timeout time.Duration) *ImageFetcher {
	return &ImageFetcher{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch returns the body of url. Non-2xx responses are errors.
func (f *ImageFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return data, nil
}
