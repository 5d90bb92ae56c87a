package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/kart-io/sentinel-rag/pkg/utils/httpclient"
	"github.com/kart-io/sentinel-rag/pkg/utils/json"
)

// envelope mirrors the server's response structure with the payload left undecoded.
type envelope struct {
	Code      int             `json:"code"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	RequestID string          `json:"request_id"`
}

// APIError is a non-zero code returned by the service.
type APIError struct {
	Status    int
	Code      int
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("%s (code %d, http %d, request %s)", e.Message, e.Code, e.Status, e.RequestID)
	}
	return fmt.Sprintf("%s (code %d, http %d)", e.Message, e.Code, e.Status)
}

// Client talks to the RAG HTTP API.
type Client struct {
	baseURL string
	http    *httpclient.Client
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, timeout time.Duration, retries int) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpclient.NewClient(timeout, retries, httpclient.WithHeader("User-Agent", "ragctl")),
	}
}

// IngestText sends a document as JSON.
func (c *Client) IngestText(ctx context.Context, name, content, sourceURL string) (any, error) {
	body := map[string]any{"document_name": name, "content": content}
	if sourceURL != "" {
		body["source_url"] = sourceURL
	}
	req, err := httpclient.NewJSONRequest(ctx, http.MethodPost, c.baseURL+"/api/v1/ingest", body)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

// IngestFile uploads r as a multipart text file.
func (c *Client) IngestFile(ctx context.Context, filename string, r io.Reader, sourceURL string) (any, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if sourceURL != "" {
		if err := w.WriteField("source_url", sourceURL); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/ingest-file", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

// Search queries the service. topK <= 0 leaves the server default.
func (c *Client) Search(ctx context.Context, query string, topK int, useLLM bool) (any, error) {
	body := map[string]any{"query": query, "use_llm": useLLM}
	if topK > 0 {
		body["top_k"] = topK
	}
	req, err := httpclient.NewJSONRequest(ctx, http.MethodPost, c.baseURL+"/api/v1/search", body)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

// Get fetches a read-only endpoint such as /health or /api/v1/statistics.
func (c *Client) Get(ctx context.Context, path string) (any, error) {
	req, err := httpclient.NewJSONRequest(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (any, error) {
	resp, err := c.http.DoRequest(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("unexpected response (http %d): %w", resp.StatusCode, err)
	}
	if env.Code != 0 || resp.StatusCode >= http.StatusBadRequest {
		return nil, &APIError{Status: resp.StatusCode, Code: env.Code, Message: env.Message, RequestID: env.RequestID}
	}

	var data any
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("failed to decode data: %w", err)
		}
	}
	return data, nil
}
