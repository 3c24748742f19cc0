// Package ai is the HTTP client for the assistant backend. It speaks the
// chat-completions wire format and keeps a short per-conversation history
// so follow-up questions have context. Every call is a single attempt:
// failures surface as upstream errors for the caller to report, never
// retried here.
package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/poinbot/poinbot/internal/domain"
)

// Config controls the assistant client.
type Config struct {
	BaseURL       string        // API root, e.g. https://api.groq.com/openai/v1
	APIKey        string        // bearer token
	ChatModel     string        // chat-completions model name
	ImageModel    string        // image-generations model name
	VideoModel    string        // video-jobs model name
	SystemPrompt  string        // prepended to every conversation
	HistoryLimit  int           // messages kept per conversation (default: 20)
	MaxConcurrent int           // in-flight request cap (default: 4)
	Timeout       time.Duration // per text/image request (default: 30s)
	VideoTimeout  time.Duration // total budget for a video job (default: 3m)
	PollInterval  time.Duration // video job poll cadence (default: 3s)
}

// DefaultConfig returns safe client defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:       "https://api.groq.com/openai/v1",
		ChatModel:     "llama-3.1-70b-versatile",
		ImageModel:    "flux-schnell",
		VideoModel:    "video-gen-1",
		SystemPrompt:  "You are a friendly assistant inside a points-and-tasks chat bot. Keep answers short.",
		HistoryLimit:  20,
		MaxConcurrent: 4,
		Timeout:       30 * time.Second,
		VideoTimeout:  3 * time.Minute,
		PollInterval:  3 * time.Second,
	}
}

// Client implements domain.Assistant over an OpenAI-compatible API.
type Client struct {
	cfg  Config
	http *http.Client
	sem  chan struct{} // concurrency semaphore

	mu      sync.Mutex
	history map[string][]message // conversation id → recent turns
}

// New creates an assistant client.
func New(cfg Config) *Client {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 20
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.VideoTimeout <= 0 {
		cfg.VideoTimeout = 3 * time.Minute
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 3 * time.Second
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		sem:     make(chan struct{}, cfg.MaxConcurrent),
		history: make(map[string][]message),
	}
}

// ─── Wire Types ─────────────────────────────────────────────────────────────

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type imageRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	ResponseFormat string `json:"response_format"`
}

type imageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

type videoRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type videoJob struct {
	ID     string `json:"id"`
	Status string `json:"status"` // queued | processing | completed | failed
	URL    string `json:"url"`
	Error  string `json:"error"`
}

// ─── Assistant ──────────────────────────────────────────────────────────────

// Chat sends the prompt with the conversation's recent history and records
// both sides of the exchange on success.
func (c *Client) Chat(ctx context.Context, conversationID, prompt string) (string, error) {
	if err := c.acquire(ctx); err != nil {
		return "", err
	}
	defer c.release()

	msgs := []message{{Role: "system", Content: c.cfg.SystemPrompt}}
	msgs = append(msgs, c.snapshot(conversationID)...)
	msgs = append(msgs, message{Role: "user", Content: prompt})

	var out chatResponse
	err := c.post(ctx, "/chat/completions", chatRequest{
		Model:       c.cfg.ChatModel,
		Messages:    msgs,
		Temperature: 0.7,
		MaxTokens:   1024,
	}, &out)
	if err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("chat: empty choices: %w", domain.ErrUpstream)
	}
	reply := out.Choices[0].Message.Content

	c.remember(conversationID,
		message{Role: "user", Content: prompt},
		message{Role: "assistant", Content: reply})
	return reply, nil
}

// GenerateImage returns the decoded image bytes for the prompt.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (string, []byte, error) {
	if err := c.acquire(ctx); err != nil {
		return "", nil, err
	}
	defer c.release()

	var out imageResponse
	err := c.post(ctx, "/images/generations", imageRequest{
		Model:          c.cfg.ImageModel,
		Prompt:         prompt,
		N:              1,
		ResponseFormat: "b64_json",
	}, &out)
	if err != nil {
		return "", nil, err
	}
	if len(out.Data) == 0 {
		return "", nil, fmt.Errorf("image: empty data: %w", domain.ErrUpstream)
	}
	raw, err := base64.StdEncoding.DecodeString(out.Data[0].B64JSON)
	if err != nil {
		return "", nil, fmt.Errorf("image: decode payload: %w", domain.ErrUpstream)
	}
	return "image/png", raw, nil
}

// GenerateVideo submits a generation job and polls it until the job
// completes, fails, or the video budget runs out.
func (c *Client) GenerateVideo(ctx context.Context, prompt string) (string, error) {
	if err := c.acquire(ctx); err != nil {
		return "", err
	}
	defer c.release()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.VideoTimeout)
	defer cancel()

	var job videoJob
	if err := c.post(ctx, "/videos/generations", videoRequest{
		Model:  c.cfg.VideoModel,
		Prompt: prompt,
	}, &job); err != nil {
		return "", err
	}

	for {
		switch job.Status {
		case "completed":
			if job.URL == "" {
				return "", fmt.Errorf("video job %s: completed without url: %w", job.ID, domain.ErrUpstream)
			}
			return job.URL, nil
		case "failed":
			return "", fmt.Errorf("video job %s: %s: %w", job.ID, job.Error, domain.ErrUpstream)
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("video job %s: %v: %w", job.ID, ctx.Err(), domain.ErrUpstream)
		case <-time.After(c.cfg.PollInterval):
		}
		if err := c.get(ctx, "/videos/generations/"+job.ID, &job); err != nil {
			return "", err
		}
	}
}

// Reset drops the conversation history for one conversation.
func (c *Client) Reset(conversationID string) {
	c.mu.Lock()
	delete(c.history, conversationID)
	c.mu.Unlock()
	log.Printf("[ai] conversation %s reset", conversationID)
}

// ─── History ────────────────────────────────────────────────────────────────

func (c *Client) snapshot(conversationID string) []message {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := c.history[conversationID]
	out := make([]message, len(h))
	copy(out, h)
	return out
}

func (c *Client) remember(conversationID string, msgs ...message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := append(c.history[conversationID], msgs...)
	if over := len(h) - c.cfg.HistoryLimit; over > 0 {
		h = h[over:]
	}
	c.history[conversationID] = h
}

// ─── Transport ──────────────────────────────────────────────────────────────

// acquire takes a concurrency slot, or reports an upstream error when the
// caller's context ends first.
func (c *Client) acquire(ctx context.Context) error {
	select {
	case c.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("assistant busy: %v: %w", ctx.Err(), domain.ErrUpstream)
	}
}

func (c *Client) release() { <-c.sem }

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %v: %w", req.Method, req.URL.Path, err, domain.ErrUpstream)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%s %s: status %d: %s: %w",
			req.Method, req.URL.Path, resp.StatusCode, string(raw), domain.ErrUpstream)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", req.Method, req.URL.Path, domain.ErrUpstream)
	}
	return nil
}
