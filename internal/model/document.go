package model

import (
	"io"
	"time"
)

// Document is a stored file plus its metadata.
// StoragePath is only known to the API server and never leaves it.
type Document struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	FileName    string    `json:"fileName"`
	FileType    string    `json:"fileType,omitempty"`
	FileSize    int64     `json:"fileSize"`
	UploadDate  time.Time `json:"uploadDate"`
	StoragePath string    `json:"-"`
}

// UploadInput is the payload of a document upload, shared by the API client and the API service.
// Size is -1 when unknown.
type UploadInput struct {
	Name        string
	Description string
	FileName    string
	ContentType string
	Size        int64
	Content     io.Reader
}
