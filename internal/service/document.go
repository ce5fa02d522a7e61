package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"docvault/internal/model"
	"docvault/internal/repository"
	"docvault/internal/storage"
)

var (
	ErrIDRequired   = errors.New("id is required")
	ErrNotFound     = errors.New("document not found")
	ErrReaderNil    = errors.New("reader is nil")
	ErrNameRequired = errors.New("name is required")
)

// octetStream is what browsers send when they do not know the type; it triggers sniffing.
const octetStream = "application/octet-stream"

// sniffLen matches the read limit of mimetype.
const sniffLen = 3072

// DocumentService defines the use cases for handling documents.
type DocumentService interface {
	// Upload stores the content, then its metadata row. The object is removed again if the row cannot be saved.
	Upload(ctx context.Context, in model.UploadInput) (*model.Document, error)

	// List returns every document, newest first.
	List(ctx context.Context) ([]model.Document, error)

	// Search returns documents whose name contains query, ignoring case. A blank query lists all.
	Search(ctx context.Context, query string) ([]model.Document, error)

	// Get returns a single document by its ID.
	Get(ctx context.Context, id string) (*model.Document, error)

	// Open returns the document and a stream of its bytes. The caller closes the stream.
	Open(ctx context.Context, id string) (io.ReadCloser, *model.Document, error)

	// Delete removes a document by ID from both storage and repository.
	Delete(ctx context.Context, id string) error
}

type documentService struct {
	store storage.Storage
	repo  repository.DocumentRepository
	now   func() time.Time
}

// Option configures the document service.
type Option func(*documentService)

// WithClock overrides the upload timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *documentService) { s.now = now }
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(store storage.Storage, repo repository.DocumentRepository, opts ...Option) DocumentService {
	s := &documentService{store: store, repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *documentService) Upload(ctx context.Context, in model.UploadInput) (*model.Document, error) {
	if in.Content == nil {
		return nil, ErrReaderNil
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	fileName := path.Base(strings.ReplaceAll(strings.TrimSpace(in.FileName), `\`, "/"))
	if fileName == "." || fileName == "/" {
		fileName = "upload"
	}

	r := in.Content
	contentType := strings.TrimSpace(in.ContentType)
	if contentType == "" || contentType == octetStream {
		var err error
		contentType, r, err = sniff(r)
		if err != nil {
			return nil, fmt.Errorf("read upload: %w", err)
		}
	}

	size := in.Size
	if size < 0 {
		size = -1
	}

	key := "documents/" + uuid.New().String() + strings.ToLower(path.Ext(fileName))
	objInfo, err := s.store.Put(ctx, key, r, storage.PutObjectOptions{
		Size:        size,
		ContentType: contentType,
		Metadata: map[string]string{
			"original-filename": url.PathEscape(fileName),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	doc := &model.Document{
		ID:          uuid.New().String(),
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		FileName:    fileName,
		FileType:    contentType,
		FileSize:    objInfo.Size,
		StoragePath: objInfo.Key,
		UploadDate:  s.now().UTC(),
	}
	stored, err := s.repo.Create(ctx, doc)
	if err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}
	return stored, nil
}

// sniff detects the media type from the first bytes and returns a reader that still yields all of them.
func sniff(r io.Reader) (string, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, err
	}
	head = head[:n]
	mt := mimetype.Detect(head)
	ct, _, _ := strings.Cut(mt.String(), ";")
	return strings.TrimSpace(ct), io.MultiReader(bytes.NewReader(head), r), nil
}

func (s *documentService) List(ctx context.Context) ([]model.Document, error) {
	return s.repo.ListAll(ctx)
}

func (s *documentService) Search(ctx context.Context, query string) ([]model.Document, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.repo.ListAll(ctx)
	}
	return s.repo.SearchByName(ctx, query)
}

// Get returns a document by ID. IDs that are not UUIDs cannot exist and report ErrNotFound.
func (s *documentService) Get(ctx context.Context, id string) (*model.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

func (s *documentService) Open(ctx context.Context, id string) (io.ReadCloser, *model.Document, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, info, err := s.store.Get(ctx, doc.StoragePath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, nil, fmt.Errorf("%w: content missing for %s", ErrNotFound, id)
		}
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}
	if doc.FileType == "" {
		doc.FileType = info.ContentType
	}
	return rc, doc, nil
}

// Delete removes the stored object first; the row is kept when that fails so the object is not orphaned.
func (s *documentService) Delete(ctx context.Context, id string) error {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, doc.StoragePath); err != nil {
		return fmt.Errorf("delete storage: %w", err)
	}
	return s.repo.Delete(ctx, id)
}
