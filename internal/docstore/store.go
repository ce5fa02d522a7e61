// Package docstore keeps the session's view of the document collection consistent with the API.
//
// The collection is only ever replaced by a server response: uploads and deletes are followed by a
// full reload instead of local patching. Fetches carry sequence numbers and a response older than the
// last applied one is dropped, so a slow request can not overwrite a newer result.
package docstore

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"docvault/internal/apiclient"
	"docvault/internal/model"
	"docvault/internal/stats"
)

// DeletePrompt is the question put to the Confirmer before a document is removed.
const DeletePrompt = "Are you sure you want to delete this document?"

// API is the subset of the document API the store depends on.
type API interface {
	List(ctx context.Context) ([]model.Document, error)
	Search(ctx context.Context, query string) ([]model.Document, error)
	Upload(ctx context.Context, in model.UploadInput) (*model.Document, error)
	Download(ctx context.Context, id string) (*apiclient.Download, error)
	Delete(ctx context.Context, id string) error
}

var _ API = (*apiclient.Client)(nil)

// View is a consistent copy of the store state: Stats is always derived from Documents.
type View struct {
	Documents []model.Document `json:"documents"`
	Stats     stats.Statistics `json:"stats"`
	Query     string           `json:"query"`
	Loaded    bool             `json:"loaded"`
	Notice    Notice           `json:"notice"`
}

// Store is the single source of truth the views render from. It is safe for concurrent use.
type Store struct {
	api     API
	logger  *zap.Logger
	metrics *Metrics
	now     func() time.Time

	mu      sync.Mutex
	docs    []model.Document
	stats   stats.Statistics
	query   string
	loaded  bool
	issued  uint64
	applied uint64
	notice  Notice
}

// Option configures a Store.
type Option func(*Store)

func WithLogger(l *zap.Logger) Option { return func(s *Store) { s.logger = l } }

func WithMetrics(m *Metrics) Option { return func(s *Store) { s.metrics = m } }

// WithClock replaces time.Now, for statistics and notice expiry.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// New creates an empty store; call LoadAll to populate it.
func New(api API, opts ...Option) *Store {
	s := &Store{
		api:    api,
		logger: zap.NewNop(),
		now:    time.Now,
		docs:   []model.Document{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.stats = stats.Aggregate(s.docs, s.now())
	return s
}

// LoadAll replaces the collection with the full server-side set.
// On failure the collection is left as it was.
func (s *Store) LoadAll(ctx context.Context) error {
	s.beginAction()
	return s.fetch(ctx, "")
}

// Search replaces the collection with the server-filtered subset matching query.
// An empty or whitespace-only query is a full reload.
func (s *Store) Search(ctx context.Context, query string) error {
	s.beginAction()
	return s.fetch(ctx, strings.TrimSpace(query))
}

// Upload validates the draft, sends it, and on success clears the draft and reloads the collection.
// A failed upload keeps the draft untouched for a retry.
//
// A failing reload after a successful upload does not fail the upload; it shows up as the
// FetchFailed notice instead.
func (s *Store) Upload(ctx context.Context, draft *Draft) error {
	s.beginAction()
	if err := draft.Validate(); err != nil {
		s.metrics.observe("upload", "invalid")
		s.setError(err)
		return err
	}

	body, err := draft.File.Open()
	if err != nil {
		return s.failUpload(draft, err)
	}
	_, err = s.api.Upload(ctx, model.UploadInput{
		Name:        strings.TrimSpace(draft.Name),
		Description: draft.Description,
		FileName:    draft.File.Name,
		ContentType: draft.File.ContentType,
		Size:        draft.File.Size,
		Content:     body,
	})
	_ = body.Close()
	if err != nil {
		return s.failUpload(draft, err)
	}

	s.logger.Info("document uploaded",
		zap.String("name", draft.Name),
		zap.String("file_name", draft.File.Name),
	)
	s.metrics.observe("upload", "success")
	*draft = Draft{}
	s.setSuccess("Document uploaded successfully!")
	_ = s.fetch(ctx, "")
	return nil
}

func (s *Store) failUpload(draft *Draft, cause error) error {
	err := wrap(ErrUploadFailed, cause)
	s.logger.Warn("document upload failed", zap.String("name", draft.Name), zap.Error(cause))
	s.metrics.observe("upload", "failure")
	s.setError(err)
	return err
}

// Remove asks confirm before deleting id. It reports whether the delete was issued and succeeded;
// a declined confirmation is not an error and changes nothing.
func (s *Store) Remove(ctx context.Context, id string, confirm Confirmer) (bool, error) {
	s.beginAction()
	if confirm == nil || !confirm.Confirm(DeletePrompt) {
		s.metrics.observe("delete", "declined")
		return false, nil
	}

	if err := s.api.Delete(ctx, id); err != nil {
		err = wrap(ErrDeleteFailed, err)
		s.logger.Warn("document delete failed", zap.String("id", id), zap.Error(err))
		s.metrics.observe("delete", "failure")
		s.setError(err)
		return false, err
	}

	s.logger.Info("document deleted", zap.String("id", id))
	s.metrics.observe("delete", "success")
	s.setSuccess("Document deleted successfully!")
	_ = s.fetch(ctx, "")
	return true, nil
}

// Download streams the raw content of id into saver under fileName. The collection is not touched.
func (s *Store) Download(ctx context.Context, id, fileName string, saver Saver) error {
	s.beginAction()
	if saver == nil {
		return s.failDownload(id, errNoSaver)
	}
	if fileName == "" {
		fileName = id
	}

	dl, err := s.api.Download(ctx, id)
	if err != nil {
		return s.failDownload(id, err)
	}
	defer dl.Body.Close()

	if err := saver.Save(fileName, dl.ContentType, dl.Body); err != nil {
		return s.failDownload(id, err)
	}
	s.metrics.observe("download", "success")
	return nil
}

func (s *Store) failDownload(id string, cause error) error {
	err := wrap(ErrDownloadFailed, cause)
	s.logger.Warn("document download failed", zap.String("id", id), zap.Error(cause))
	s.metrics.observe("download", "failure")
	s.setError(err)
	return err
}

// Snapshot returns a copy of the current state. Expired success notices are omitted.
func (s *Store) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := make([]model.Document, len(s.docs))
	copy(docs, s.docs)
	fileTypes := make(map[string]int, len(s.stats.FileTypes))
	for k, v := range s.stats.FileTypes {
		fileTypes[k] = v
	}
	st := s.stats
	st.FileTypes = fileTypes

	v := View{Documents: docs, Stats: st, Query: s.query, Loaded: s.loaded}
	if s.notice.visible(s.now()) {
		v.Notice = s.notice
	}
	return v
}

// fetch issues a List (empty query) or Search and applies the result unless a newer one already landed.
func (s *Store) fetch(ctx context.Context, query string) error {
	op, sentinel := "fetch", ErrFetchFailed
	if query != "" {
		op, sentinel = "search", ErrSearchFailed
	}

	s.mu.Lock()
	s.issued++
	seq := s.issued
	s.mu.Unlock()

	var (
		docs []model.Document
		err  error
	)
	if query == "" {
		docs, err = s.api.List(ctx)
	} else {
		docs, err = s.api.Search(ctx, query)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		err = wrap(sentinel, err)
		s.logger.Warn("document fetch failed", zap.String("op", op), zap.String("query", query), zap.Error(err))
		s.metrics.observe(op, "failure")
		if seq > s.applied {
			s.notice = Notice{Kind: NoticeError, Message: Message(err)}
		}
		return err
	}
	if seq <= s.applied {
		s.logger.Debug("discarding stale response",
			zap.String("op", op),
			zap.Uint64("seq", seq),
			zap.Uint64("applied", s.applied),
		)
		s.metrics.observe(op, "stale")
		return nil
	}

	if docs == nil {
		docs = []model.Document{}
	}
	s.docs = docs
	s.stats = stats.Aggregate(docs, s.now())
	s.query = query
	s.loaded = true
	s.applied = seq
	s.metrics.observe(op, "success")
	return nil
}

// beginAction dismisses whatever notice the previous operation left.
func (s *Store) beginAction() {
	s.mu.Lock()
	s.notice = Notice{}
	s.mu.Unlock()
}

func (s *Store) setError(err error) {
	s.mu.Lock()
	s.notice = Notice{Kind: NoticeError, Message: Message(err)}
	s.mu.Unlock()
}

func (s *Store) setSuccess(msg string) {
	s.mu.Lock()
	s.notice = Notice{Kind: NoticeSuccess, Message: msg, ExpiresAt: s.now().Add(SuccessTTL)}
	s.mu.Unlock()
}
