package apiclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docvault/internal/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	return New(server.URL+"/api/", 5*time.Second)
}

func TestNew(t *testing.T) {
	c := New("http://localhost:8080/api/", time.Second)

	assert.Equal(t, "http://localhost:8080/api", c.BaseURL)
	assert.Equal(t, time.Second, c.HTTPClient.Timeout)
	assert.NotNil(t, c.HTTPClient.Transport)
}

func TestClient_List(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/documents", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[
			{"id": 7, "name": "Contract", "fileName": "c.pdf", "fileType": "application/pdf", "fileSize": 1024, "uploadDate": "2026-03-01T10:00:00.123"},
			{"id": "b1e6", "name": "Notes", "fileName": "n.txt", "fileType": null, "fileSize": null, "uploadDate": "2026-03-02T08:00:00Z"},
			{"id": 9, "name": "Broken", "fileSize": -5}
		]`)
	})

	docs, err := c.List(context.Background())

	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, model.Document{
		ID:         "7",
		Name:       "Contract",
		FileName:   "c.pdf",
		FileType:   "application/pdf",
		FileSize:   1024,
		UploadDate: time.Date(2026, 3, 1, 10, 0, 0, 123000000, time.UTC),
	}, docs[0])
	assert.Equal(t, "b1e6", docs[1].ID)
	assert.Equal(t, "", docs[1].FileType)
	assert.Equal(t, int64(0), docs[1].FileSize)
	assert.Equal(t, time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC), docs[1].UploadDate)
	assert.Equal(t, int64(0), docs[2].FileSize)
	assert.True(t, docs[2].UploadDate.IsZero())
}

func TestClient_List_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"request_id":"r1","error":{"code":"INTERNAL_ERROR","message":"internal server error"}}`)
	})

	_, err := c.List(context.Background())

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	assert.Equal(t, "INTERNAL_ERROR", se.Code)
	assert.Contains(t, se.Error(), "500")
}

func TestClient_List_BadJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"not":"an array"}`)
	})

	_, err := c.List(context.Background())

	assert.ErrorContains(t, err, "failed to parse response")
}

func TestClient_Search(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/documents/search", r.URL.Path)
		assert.Equal(t, "tax & fees", r.URL.Query().Get("query"))
		io.WriteString(w, `[{"id":"1","name":"tax & fees 2025"}]`)
	})

	docs, err := c.Search(context.Background(), "tax & fees")

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "tax & fees 2025", docs[0].Name)
}

func TestClient_Upload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/documents/upload", r.URL.Path)
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "Report", r.FormValue("name"))
		assert.Equal(t, "Q1 numbers", r.FormValue("description"))

		f, fh, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		body, _ := io.ReadAll(f)
		assert.Equal(t, "report.csv", fh.Filename)
		assert.Equal(t, "text/csv", fh.Header.Get("Content-Type"))
		assert.Equal(t, "a,b\n1,2\n", string(body))

		json.NewEncoder(w).Encode(map[string]any{"id": 42, "name": "Report", "fileName": "report.csv", "fileSize": len(body)})
	})

	doc, err := c.Upload(context.Background(), model.UploadInput{
		Name:        "Report",
		Description: "Q1 numbers",
		FileName:    "report.csv",
		ContentType: "text/csv",
		Size:        8,
		Content:     strings.NewReader("a,b\n1,2\n"),
	})

	require.NoError(t, err)
	assert.Equal(t, "42", doc.ID)
	assert.Equal(t, int64(8), doc.FileSize)
}

func TestClient_Upload_Rejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := c.Upload(context.Background(), model.UploadInput{Name: "x", FileName: "x", Content: strings.NewReader("x")})

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
}

func TestClient_Upload_NilContent(t *testing.T) {
	c := New("http://127.0.0.1:1", time.Second)

	_, err := c.Upload(context.Background(), model.UploadInput{Name: "x"})

	assert.Error(t, err)
}

func TestClient_Download(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/documents/download/abc", r.URL.Path)
		w.Header().Set("Content-Type", "application/pdf")
		io.WriteString(w, "%PDF-1.7")
	})

	dl, err := c.Download(context.Background(), "abc")
	require.NoError(t, err)
	defer dl.Body.Close()

	body, _ := io.ReadAll(dl.Body)
	assert.Equal(t, "%PDF-1.7", string(body))
	assert.Equal(t, "application/pdf", dl.ContentType)
}

func TestClient_Download_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.Download(context.Background(), "missing")

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.StatusCode)

	_, err = c.Download(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyID)
}

func TestClient_Delete(t *testing.T) {
	var called bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/documents/17", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, c.Delete(context.Background(), "17"))
	assert.True(t, called)
	assert.ErrorIs(t, c.Delete(context.Background(), ""), ErrEmptyID)
}

func TestClient_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	base := server.URL
	server.Close()

	_, err := New(base, time.Second).List(context.Background())

	assert.ErrorContains(t, err, "failed to connect to document api")
}
