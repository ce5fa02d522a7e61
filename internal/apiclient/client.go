// Package apiclient talks to the document API over HTTP.
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"docvault/internal/model"
)

var ErrEmptyID = errors.New("document id is required")

// StatusError is returned for any non-2xx answer from the API.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api returned %d: %s (%s)", e.StatusCode, e.Message, e.Code)
	}
	return fmt.Sprintf("api returned %d", e.StatusCode)
}

// Download is a raw file body plus the content type the server reported.
// The caller must close Body.
type Download struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// Client communicates with the document API rooted at BaseURL (e.g. http://localhost:8080/api).
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New creates a client whose transport is traced with OpenTelemetry.
// Timeouts are left to the transport: a zero timeout means none.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// List returns the full collection.
func (c *Client) List(ctx context.Context) ([]model.Document, error) {
	return c.getDocuments(ctx, c.BaseURL+"/documents")
}

// Search returns the documents matching query, as filtered by the server.
func (c *Client) Search(ctx context.Context, query string) ([]model.Document, error) {
	q := url.Values{}
	q.Set("query", query)
	return c.getDocuments(ctx, c.BaseURL+"/documents/search?"+q.Encode())
}

// Upload posts a multipart form with the fields file, name and description.
// The body is streamed through a pipe so large files are not buffered.
func (c *Client) Upload(ctx context.Context, in model.UploadInput) (*model.Document, error) {
	if in.Content == nil {
		return nil, errors.New("upload content is nil")
	}

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeUploadForm(writer, in))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/documents/upload", pr)
	if err != nil {
		pr.Close()
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("failed to connect to document api: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	// The created document is informative only; an empty or odd body still means success.
	var w wireDocument
	if err := json.NewDecoder(resp.Body).Decode(&w); err != nil {
		return &model.Document{Name: in.Name, FileName: in.FileName}, nil
	}
	doc := w.normalize()
	return &doc, nil
}

func writeUploadForm(writer *multipart.Writer, in model.UploadInput) error {
	part, err := writer.CreatePart(filePartHeader(in.FileName, in.ContentType))
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, in.Content); err != nil {
		return fmt.Errorf("failed to write file data: %w", err)
	}
	if err := writer.WriteField("name", in.Name); err != nil {
		return err
	}
	if err := writer.WriteField("description", in.Description); err != nil {
		return err
	}
	return writer.Close()
}

// Download fetches the raw bytes of a document.
func (c *Client) Download(ctx context.Context, id string) (*Download, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/documents/download/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to document api: %w", err)
	}
	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}
	return &Download{Body: resp.Body, ContentType: ct, Size: resp.ContentLength}, nil
}

// Delete removes a document; any 2xx answer is a success.
func (c *Client) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyID
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.BaseURL+"/documents/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to document api: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return checkStatus(resp)
}

func (c *Client) getDocuments(ctx context.Context, u string) ([]model.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to document api: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var docs []wireDocument
	if err := json.NewDecoder(resp.Body).Decode(&docs); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return normalizeAll(docs), nil
}

// checkStatus maps non-2xx responses to *StatusError, reading the API error envelope when present.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	se := &StatusError{StatusCode: resp.StatusCode}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&envelope); err == nil {
		se.Code = envelope.Error.Code
		se.Message = envelope.Error.Message
	}
	return se
}
