package editor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/starford/inkpact/internal/apperr"
	"github.com/starford/inkpact/internal/contentservice"
	"github.com/starford/inkpact/internal/models"
)

// Backend is where the editor loads collections from and saves them to.
type Backend interface {
	// FetchCollection returns the raw collection document, or apperr.ErrNotFound.
	FetchCollection(ctx context.Context, kind models.Kind) ([]byte, error)
	// SaveCollection replaces the whole collection with doc.
	SaveCollection(ctx context.Context, kind models.Kind, doc any) (*contentservice.SaveResult, error)
	// SaveMarkdown writes a markdown file.
	SaveMarkdown(ctx context.Context, name, content string) error
	// ReadMarkdown returns the content of a markdown file.
	ReadMarkdown(ctx context.Context, name string) (string, error)
}

// LocalBackend talks to a content service in the same process.
type LocalBackend struct {
	svc *contentservice.Service
}

// NewLocalBackend wraps svc.
func NewLocalBackend(svc *contentservice.Service) *LocalBackend {
	return &LocalBackend{svc: svc}
}

func (b *LocalBackend) FetchCollection(ctx context.Context, kind models.Kind) ([]byte, error) {
	return b.svc.ReadCollection(ctx, kind)
}

func (b *LocalBackend) SaveCollection(ctx context.Context, kind models.Kind, doc any) (*contentservice.SaveResult, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", kind.Plural(), err)
	}
	return b.svc.ReplaceCollection(ctx, kind, body)
}

func (b *LocalBackend) SaveMarkdown(ctx context.Context, name, content string) error {
	_, err := b.svc.SaveMarkdown(ctx, name, content)
	return err
}

func (b *LocalBackend) ReadMarkdown(ctx context.Context, name string) (string, error) {
	md, err := b.svc.ReadMarkdown(ctx, name)
	if err != nil {
		return "", err
	}
	return md.Content, nil
}

// HTTPBackend talks to a running dashboard server.
type HTTPBackend struct {
	baseURL string
	client  *http.Client
	now     func() time.Time
}

// NewHTTPBackend creates a backend for the server at baseURL.
func NewHTTPBackend(baseURL string, client *http.Client) *HTTPBackend {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		now:     time.Now,
	}
}

// FetchCollection fetches data/<plural>.json with a cache-busting query.
func (b *HTTPBackend) FetchCollection(ctx context.Context, kind models.Kind) ([]byte, error) {
	target := b.baseURL + "/data/" + kind.FileName() + "?t=" + strconv.FormatInt(b.now().UnixMilli(), 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", kind.Plural(), err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", kind.Plural(), err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, apperr.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: HTTP %d", kind.Plural(), resp.StatusCode)
	}
	return data, nil
}

// SaveCollection posts the envelope to /save-<plural>.
func (b *HTTPBackend) SaveCollection(ctx context.Context, kind models.Kind, doc any) (*contentservice.SaveResult, error) {
	var out map[string]any
	if err := b.post(ctx, "/save-"+kind.Plural(), doc, apperr.ErrMalformedCollection, &out); err != nil {
		return nil, err
	}
	res := &contentservice.SaveResult{Kind: kind, Path: kind.FileName()}
	if ts, ok := out["timestamp"].(string); ok {
		res.Timestamp = ts
	}
	if n, ok := out[kind.Plural()+"Count"].(float64); ok {
		res.Count = int(n)
	}
	return res, nil
}

// SaveMarkdown posts to /save-markdown.
func (b *HTTPBackend) SaveMarkdown(ctx context.Context, name, content string) error {
	body := map[string]string{"filename": name, "content": content}
	return b.post(ctx, "/save-markdown", body, apperr.ErrInvalidFilename, nil)
}

// ReadMarkdown fetches /get-markdown/<name>.
func (b *HTTPBackend) ReadMarkdown(ctx context.Context, name string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/get-markdown/"+url.PathEscape(name), nil)
	if err != nil {
		return "", err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("get markdown %s: %w", name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var out struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("get markdown %s: decode response: %w", name, err)
	}
	if resp.StatusCode != http.StatusOK || !out.Success {
		return "", fmt.Errorf("get markdown %s: HTTP %d: %s: %w", name, resp.StatusCode, out.Message, statusSentinel(resp.StatusCode, apperr.ErrInvalidFilename))
	}
	return out.Content, nil
}

// post sends v as JSON. A 400 response wraps badRequest.
func (b *HTTPBackend) post(ctx context.Context, path string, v any, badRequest error, out any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var env struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	_ = json.Unmarshal(raw, &env)

	if resp.StatusCode >= 300 || !env.Success {
		return fmt.Errorf("post %s: HTTP %d: %s: %w", path, resp.StatusCode, env.Message, statusSentinel(resp.StatusCode, badRequest))
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("post %s: decode response: %w", path, err)
		}
	}
	return nil
}

func statusSentinel(status int, badRequest error) error {
	switch status {
	case http.StatusBadRequest:
		return badRequest
	case http.StatusNotFound:
		return apperr.ErrNotFound
	case http.StatusRequestEntityTooLarge:
		return apperr.ErrPayloadTooLarge
	case http.StatusUnsupportedMediaType:
		return apperr.ErrUnsupportedMediaType
	}
	return apperr.ErrPersistence
}
