package rulestore

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPBackend talks to a remote content-addressed file store over a small
// JSON API: GET returns content plus sha, PUT is conditioned on the sha the
// caller read and answers 409 when it is stale.
type HTTPBackend struct {
	BaseURL    string
	Token      string // bearer token for the file store, optional
	HTTPClient *http.Client
}

// NewHTTPBackend creates a backend client with a bounded request timeout.
// Rule store calls sit on the approval path, so a hung remote must fail
// fast and surface as a retryable upstream error.
func NewHTTPBackend(baseURL, token string) *HTTPBackend {
	return &HTTPBackend{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type fileResponse struct {
	Content string `json:"content"` // base64
	SHA     string `json:"sha"`
}

type filePutRequest struct {
	Content string `json:"content"` // base64
	SHA     string `json:"sha,omitempty"`
}

type fileListResponse struct {
	Paths []string `json:"paths"`
}

func (b *HTTPBackend) Get(ctx context.Context, path string) ([]byte, string, error) {
	resp, err := b.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, "", ErrNotFound
	default:
		return nil, "", unexpectedStatus(resp)
	}

	var body fileResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, "", fmt.Errorf("rulestore: decode file response: %w", err)
	}

	content, err := base64.StdEncoding.DecodeString(body.Content)
	if err != nil {
		return nil, "", fmt.Errorf("rulestore: decode file content: %w", err)
	}

	return content, body.SHA, nil
}

func (b *HTTPBackend) Put(ctx context.Context, path string, content []byte, sha string) (string, error) {
	payload, err := json.Marshal(filePutRequest{
		Content: base64.StdEncoding.EncodeToString(content),
		SHA:     sha,
	})
	if err != nil {
		return "", err
	}

	resp, err := b.do(ctx, http.MethodPut, path, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusConflict:
		return "", ErrStaleVersion
	case http.StatusNotFound:
		return "", ErrNotFound
	default:
		return "", unexpectedStatus(resp)
	}

	var body fileResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("rulestore: decode put response: %w", err)
	}
	return body.SHA, nil
}

func (b *HTTPBackend) List(ctx context.Context) ([]string, error) {
	resp, err := b.do(ctx, http.MethodGet, "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, unexpectedStatus(resp)
	}

	var body fileListResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("rulestore: decode list response: %w", err)
	}
	return body.Paths, nil
}

func (b *HTTPBackend) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	endpoint := b.BaseURL + "/v1/files"
	if path != "" {
		endpoint += "/" + url.PathEscape(path)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("rulestore: create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if b.Token != "" {
		req.Header.Set("Authorization", "Bearer "+b.Token)
	}

	resp, err := b.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rulestore: %s %s: %w", method, endpoint, err)
	}
	return resp, nil
}

func unexpectedStatus(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	return fmt.Errorf("rulestore: unexpected status %d from %s: %s",
		resp.StatusCode, resp.Request.URL.Path, strings.TrimSpace(string(snippet)))
}
