// Package client is a thin REST client for the grounded-chat API, used by
// gchatctl.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/grounded-chat/internal/core/domain"
	"github.com/kirillkom/grounded-chat/internal/infrastructure/resilience"
)

// APIError is a non-2xx answer carrying the server's error message.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL string, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		executor:   opts.ResilienceExecutor,
	}
}

type ChatRequest struct {
	Message         string `json:"message"`
	ThreadID        string `json:"thread_id,omitempty"`
	DocumentID      string `json:"document_id,omitempty"`
	EnableWebSearch bool   `json:"enable_web_search"`
}

type SearchRequest struct {
	Query     string   `json:"query"`
	MinScore  *float64 `json:"min_score,omitempty"`
	MaxChunks *int     `json:"max_chunks,omitempty"`
}

type SearchResponse struct {
	Items   []domain.EvidenceItem `json:"items"`
	Context string                `json:"context"`
	Sources []string              `json:"sources"`
	Status  domain.EvidenceStatus `json:"status"`
}

func (c *Client) Chat(ctx context.Context, req ChatRequest) (*domain.ChatResponse, error) {
	var out domain.ChatResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/chat", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	var out SearchResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/search", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Upload(ctx context.Context, filename string, body io.Reader) (*domain.Document, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, body); err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	// Uploads are not retried: ingestion is not idempotent.
	var out domain.Document
	err = c.send(ctx, http.MethodPost, "/v1/documents", mw.FormDataContentType(), buf.Bytes(), &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	var out struct {
		Documents []domain.Document `json:"documents"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/documents", nil, &out); err != nil {
		return nil, err
	}
	return out.Documents, nil
}

func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/v1/documents/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ListThreads(ctx context.Context, skip, limit int) (*domain.ThreadPage, error) {
	var out domain.ThreadPage
	if err := c.doJSON(ctx, http.MethodGet, "/v1/threads"+pageQuery(skip, limit), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ThreadMessages(ctx context.Context, id string, skip, limit int) (*domain.MessagePage, error) {
	var out domain.MessagePage
	path := "/v1/threads/" + url.PathEscape(id) + "/messages" + pageQuery(skip, limit)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RenameThread(ctx context.Context, id, title string) (*domain.Thread, error) {
	var out domain.Thread
	err := c.doJSON(ctx, http.MethodPatch, "/v1/threads/"+url.PathEscape(id), map[string]string{"title": title}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteThread(ctx context.Context, id string) (int, error) {
	var out struct {
		DeletedMessages int `json:"deleted_messages"`
	}
	if err := c.doJSON(ctx, http.MethodDelete, "/v1/threads/"+url.PathEscape(id), nil, &out); err != nil {
		return 0, err
	}
	return out.DeletedMessages, nil
}

func pageQuery(skip, limit int) string {
	q := url.Values{}
	if skip > 0 {
		q.Set("skip", strconv.Itoa(skip))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any) error {
	var body []byte
	contentType := ""
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = raw
		contentType = "application/json"
	}
	_, err := resilience.Do(ctx, c.executor, resilience.OpAPIRequest, func(callCtx context.Context) (struct{}, error) {
		return struct{}{}, c.send(callCtx, method, path, contentType, body, out)
	}, classifyAPIError)
	return err
}

func (c *Client) send(ctx context.Context, method, path, contentType string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &payload) != nil || payload.Error == "" {
			payload.Error = strings.TrimSpace(string(raw))
		}
		return &APIError{StatusCode: resp.StatusCode, Message: payload.Error}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func classifyAPIError(err error) resilience.ErrorClassification {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		retry := resilience.IsRetryableHTTPStatus(apiErr.StatusCode)
		return resilience.ErrorClassification{Retryable: retry, RecordFailure: retry}
	}
	return resilience.ClassifyHTTP(err)
}
