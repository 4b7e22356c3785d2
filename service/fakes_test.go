package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sashabaranov/go-openai"
)

type fakeCompleter struct {
	content string
	err     error
	calls   int
	lastReq openai.ChatCompletionRequest
}

func (f *fakeCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: f.content}},
		},
	}, nil
}

// fakeImages answers each prompt through fn so tests can fail selected layouts.
type fakeImages struct {
	fn func(prompt string) (string, error)

	mu      sync.Mutex
	prompts []string
}

func (f *fakeImages) CreateImage(_ context.Context, req openai.ImageRequest) (openai.ImageResponse, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, req.Prompt)
	f.mu.Unlock()

	url, err := f.fn(req.Prompt)
	if err != nil {
		return openai.ImageResponse{}, err
	}
	return openai.ImageResponse{Data: []openai.ImageResponseDataInner{{URL: url}}}, nil
}

type fakeMockups struct {
	mu         sync.Mutex
	objects    map[string][]byte
	removed    []string
	uploadErr  error
	presignErr error
	afterPut   func(objectName string) // runs once the object is written
}

func newFakeMockups() *fakeMockups {
	return &fakeMockups{objects: make(map[string][]byte)}
}

func (f *fakeMockups) UploadFile(_ context.Context, objectName string, reader io.Reader, _ int64, _ string) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.objects[objectName] = data
	f.mu.Unlock()

	if f.afterPut != nil {
		f.afterPut(objectName)
	}
	return nil
}

func (f *fakeMockups) RemoveObject(_ context.Context, objectName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, objectName)
	f.removed = append(f.removed, objectName)
	return nil
}

func (f *fakeMockups) GetPresignedURL(_ context.Context, objectName, downloadName string) (string, error) {
	if f.presignErr != nil {
		return "", f.presignErr
	}
	return fmt.Sprintf("http://minio.test/%s?name=%s", objectName, downloadName), nil
}

var errQuota = errors.New("quota exceeded")
