package service

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/AnTengye/brdlayout/model"
	"github.com/AnTengye/brdlayout/pkg/logger"
	"golang.org/x/sync/errgroup"
)

type TextExtractor interface {
	Extract(r io.Reader, filename string) (string, error)
}

type LayoutSource interface {
	Generate(ctx context.Context, text string) []string
}

type Renderer interface {
	Render(ctx context.Context, prompt string) model.RenderResult
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// MockupStore keeps fetched mockup bytes and hands out download links.
type MockupStore interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	GetPresignedURL(ctx context.Context, objectName, downloadName string) (string, error)
	RemoveObject(ctx context.Context, objectName string) error
}

// Pipeline turns one uploaded document into rendered layout mockups.
type Pipeline struct {
	extractor   TextExtractor
	layouts     LayoutSource
	renderer    Renderer
	fetcher     Fetcher
	mockups     MockupStore
	store       *JobStore
	concurrency int
}

func NewPipeline(extractor TextExtractor, layouts LayoutSource, renderer Renderer, fetcher Fetcher, mockups MockupStore, store *JobStore, concurrency int) *Pipeline {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pipeline{
		extractor:   extractor,
		layouts:     layouts,
		renderer:    renderer,
		fetcher:     fetcher,
		mockups:     mockups,
		store:       store,
		concurrency: concurrency,
	}
}

// Run processes the job's document and records every step in the store.
// Only extraction failures abort the run; they are also returned.
func (p *Pipeline) Run(ctx context.Context, job *model.Job, content io.Reader) error {
	ctx = logger.WithJob(ctx, job.ID)
	p.store.UpdateStatus(job.ID, model.StatusProcessing, "")

	logger.Info(ctx, "extracting text", "filename", job.Filename, "format", job.Format)
	text, err := p.extractor.Extract(content, job.Filename)
	if err != nil {
		logger.Error(ctx, "text extraction failed", "error", err)
		p.store.UpdateStatus(job.ID, model.StatusFailed, err.Error())
		return fmt.Errorf("extract %s: %w", job.Filename, err)
	}
	logger.Debug(ctx, "text extracted", "chars", len(text))

	segments := p.layouts.Generate(ctx, text)

	layouts := make([]model.Layout, len(segments))
	for i, seg := range segments {
		layouts[i] = model.Layout{
			Index:    i + 1,
			Segment:  seg,
			FileName: model.LayoutFileName(i + 1),
		}
	}
	p.store.SetLayouts(job.ID, layouts)

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for _, l := range layouts {
		g.Go(func() error {
			p.store.UpdateLayout(job.ID, p.renderLayout(ctx, job.ID, l))
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		p.store.UpdateStatus(job.ID, model.StatusFailed, err.Error())
		return err
	}

	p.store.UpdateStatus(job.ID, model.StatusCompleted, "")
	logger.Info(ctx, "job completed", "layouts", len(layouts))
	return nil
}

func (p *Pipeline) renderLayout(ctx context.Context, jobID string, l model.Layout) model.Layout {
	l.Prompt = ExtractPrompt(l.Segment) + StyleSuffix

	// Deleted or evicted jobs get no further image calls.
	if !p.store.Has(jobID) {
		logger.Info(ctx, "job gone, skipping layout", "layout", l.Index)
		return l
	}

	logger.Info(ctx, "rendering layout", "layout", l.Index)
	l.Render = p.renderer.Render(ctx, l.Prompt)
	logger.Debug(ctx, "layout rendered", "layout", l.Index, "ok", l.Render.OK, "result", l.Render.Message())
	if !l.Render.OK {
		return l
	}

	data, err := p.fetcher.Fetch(ctx, l.Render.URL)
	if err != nil {
		logger.Warn(ctx, "mockup download failed", "layout", l.Index, "error", err)
		l.DownloadError = fmt.Sprintf("Download error: %v", err)
		return l
	}

	object := MockupObjectName(jobID, l.FileName)
	if err := p.mockups.UploadFile(ctx, object, bytes.NewReader(data), int64(len(data)), "image/png"); err != nil {
		logger.Warn(ctx, "mockup upload failed", "layout", l.Index, "error", err)
		l.DownloadError = fmt.Sprintf("Download error: %v", err)
		return l
	}

	// Removal drops the job from the store before clearing its prefix, so a job
	// still registered here has its object covered by any later cleanup. One
	// that is gone may have been cleaned up before the upload landed.
	if !p.store.Has(jobID) {
		logger.Info(ctx, "job gone during upload, removing mockup", "layout", l.Index)
		if err := p.mockups.RemoveObject(context.WithoutCancel(ctx), object); err != nil {
			logger.Warn(ctx, "failed to remove orphaned mockup", "object", object, "error", err)
		}
		return l
	}
	l.ImageObject = object

	link, err := p.mockups.GetPresignedURL(ctx, object, l.FileName)
	if err != nil {
		logger.Warn(ctx, "presign failed", "layout", l.Index, "error", err)
		return l
	}
	l.ImageURL = link
	return l
}
