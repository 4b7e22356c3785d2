package model

import (
	"fmt"
	"time"
)

// Job tracks one uploaded document through the layout pipeline.
type Job struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Format    Format    `json:"format"`
	Status    string    `json:"status"` // pending, processing, completed, failed
	Layouts   []Layout  `json:"layouts,omitempty"`
	ErrorMsg  string    `json:"error_msg,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Job status constants
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Layout is one dashboard proposal and what became of its mockup.
type Layout struct {
	Index         int          `json:"index"`
	Segment       string       `json:"segment"`
	Prompt        string       `json:"prompt"`
	Render        RenderResult `json:"render"`
	FileName      string       `json:"file_name"`
	ImageObject   string       `json:"-"`
	ImageURL      string       `json:"image_url,omitempty"`
	DownloadError string       `json:"download_error,omitempty"`
}

// HasImage reports whether the mockup bytes were stored and can be downloaded.
func (l Layout) HasImage() bool {
	return l.ImageObject != ""
}

// LayoutFileName is the download name offered for the n-th (1-based) layout mockup.
func LayoutFileName(n int) string {
	return fmt.Sprintf("powerbi_layout_%d.png", n)
}

// RenderResult is the outcome of one image generation call.
type RenderResult struct {
	OK     bool   `json:"ok"`
	URL    string `json:"url,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func RenderSucceeded(url string) RenderResult {
	return RenderResult{OK: true, URL: url}
}

func RenderFailed(reason string) RenderResult {
	return RenderResult{Reason: reason}
}

// Message returns the image location on success and the failure reason otherwise.
func (r RenderResult) Message() string {
	if r.OK {
		return r.URL
	}
	return r.Reason
}
