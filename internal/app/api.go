package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Client is the typed surface over the document-assistant API. It owns the
// per-call timeout budgets; everything else about the request lifecycle is
// the Gateway's job.
type Client struct {
	gw  *Gateway
	cfg Config
}

func NewClient(cfg Config, logger *Logger) *Client {
	return &Client{
		gw:  NewGateway(cfg.APIBaseURL, logger),
		cfg: cfg,
	}
}

func (c *Client) BaseURL() string { return c.gw.BaseURL() }

type HealthStatus struct {
	Status           string            `json:"status"`
	DocumentsCount   int               `json:"documents_count"`
	TotalDocuments   int               `json:"total_documents"`
	CollectionExists bool              `json:"collection_exists"`
	Components       map[string]string `json:"components,omitempty"`
}

// DocumentCount folds the two field names the API has used for the same
// value.
func (s *HealthStatus) DocumentCount() int {
	if s.DocumentsCount != 0 {
		return s.DocumentsCount
	}
	return s.TotalDocuments
}

func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	data, err := c.gw.Call(ctx, http.MethodGet, "/health", nil, "", c.cfg.HealthTimeout())
	if err != nil {
		return nil, err
	}
	var status HealthStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, &NetworkError{Err: fmt.Errorf("invalid health response: %w", err)}
	}
	return &status, nil
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

type chatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

// Chat sends one message. sessionID is omitted from the request body
// entirely when empty; the server assigns one on the first exchange and
// returns it either way.
func (c *Client) Chat(ctx context.Context, message, sessionID string) (string, string, error) {
	payload, err := json.Marshal(chatRequest{Message: message, SessionID: sessionID})
	if err != nil {
		return "", "", err
	}
	data, err := c.gw.Call(ctx, http.MethodPost, "/chat", bytes.NewReader(payload), "application/json", c.cfg.ChatTimeout())
	if err != nil {
		return "", "", err
	}
	var resp chatResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", "", &NetworkError{Err: fmt.Errorf("invalid chat response: %w", err)}
	}
	return resp.Response, resp.SessionID, nil
}

type UploadResult struct {
	Message        string   `json:"message"`
	FilesProcessed []string `json:"files_processed"`
	TotalDocuments int      `json:"total_documents"`
	// JobID is set when the server processes the upload asynchronously; the
	// caller then follows progress through an UploadTracker. When empty the
	// result above is already final.
	JobID string `json:"job_id,omitempty"`
}

// Upload submits documents as one multipart request. Only PDF files are
// accepted by the service.
func (c *Client) Upload(ctx context.Context, paths []string) (*UploadResult, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no files to upload")
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, path := range paths {
		if !strings.EqualFold(filepath.Ext(path), ".pdf") {
			return nil, fmt.Errorf("%s: only PDF files are supported", filepath.Base(path))
		}
		if err := appendFilePart(writer, path); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	data, err := c.gw.Call(ctx, http.MethodPost, "/upload", &buf, writer.FormDataContentType(), c.cfg.UploadTimeout())
	if err != nil {
		return nil, err
	}
	var result UploadResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, &NetworkError{Err: fmt.Errorf("invalid upload response: %w", err)}
	}
	return &result, nil
}

func appendFilePart(writer *multipart.Writer, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	part, err := writer.CreateFormFile("files", filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(part, file)
	return err
}

// UploadStatus fetches the current snapshot of an ingestion job. No budget
// beyond the client-level bound; the poll interval provides the cadence.
func (c *Client) UploadStatus(ctx context.Context, jobID string) (*JobSnapshot, error) {
	data, err := c.gw.Call(ctx, http.MethodGet, "/upload/status/"+jobID, nil, "", 0)
	if err != nil {
		return nil, err
	}
	var snap JobSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, &NetworkError{Err: fmt.Errorf("invalid job status response: %w", err)}
	}
	return &snap, nil
}

// ClearDocuments removes every document from the remote collection.
func (c *Client) ClearDocuments(ctx context.Context) error {
	_, err := c.gw.Call(ctx, http.MethodDelete, "/documents", nil, "", c.cfg.UploadTimeout())
	return err
}
