package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docvault/internal/apiclient"
	"docvault/internal/auth"
	"docvault/internal/config"
	"docvault/internal/docstore"
	"docvault/internal/docstore/mocks"
	"docvault/internal/model"
)

const testSessionPath = "/home/tester/.config/docvault/documentVaultUser.json"

type fakePrompter struct {
	username, password string
	confirm            bool
	err                error
	credentialCalls    int
	confirmPrompts     []string
}

func (f *fakePrompter) Credentials(username, password *string) error {
	f.credentialCalls++
	if f.err != nil {
		return f.err
	}
	*username, *password = f.username, f.password
	return nil
}

func (f *fakePrompter) Confirm(title string) (bool, error) {
	f.confirmPrompts = append(f.confirmPrompts, title)
	return f.confirm, f.err
}

type harness struct {
	fs       afero.Fs
	api      *mocks.MockAPI
	prompter *fakePrompter
	deps     *Deps
	apiURLs  []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		fs:       afero.NewMemMapFs(),
		api:      new(mocks.MockAPI),
		prompter: &fakePrompter{},
	}
	h.deps = &Deps{
		Fs:          h.fs,
		SessionPath: testSessionPath,
		Config: &config.AppConfig{
			Web: config.WebConfig{APIBaseURL: "http://vault.test/api"},
		},
		Verifier: auth.DefaultCredentials(),
		Prompter: h.prompter,
		Logger:   log.New(io.Discard),
		NewAPI: func(baseURL string) docstore.API {
			h.apiURLs = append(h.apiURLs, baseURL)
			return h.api
		},
	}
	t.Cleanup(func() { h.api.AssertExpectations(t) })
	return h
}

func (h *harness) run(args ...string) (string, error) {
	var out bytes.Buffer
	root := NewRootCommand(h.deps)
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (h *harness) loggedIn(t *testing.T) {
	t.Helper()
	data, err := json.Marshal(auth.Session{Username: "admin", Email: "admin@documentvault.com", LoginTime: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(h.fs, testSessionPath, data, 0o600))
}

func (h *harness) sessionExists(t *testing.T) bool {
	t.Helper()
	ok, err := afero.Exists(h.fs, testSessionPath)
	require.NoError(t, err)
	return ok
}

func sampleDocs() []model.Document {
	now := time.Now().UTC()
	return []model.Document{
		{ID: "1", Name: "Contract", FileName: "contract.pdf", FileType: "application/pdf", FileSize: 1024, UploadDate: now.Add(-time.Hour)},
		{ID: "2", Name: "Invoice", FileName: "invoice.pdf", FileType: "application/pdf", FileSize: 2048, UploadDate: now.Add(-2 * time.Hour)},
		{ID: "3", Name: "Notes", FileName: "notes", UploadDate: now.Add(-30 * 24 * time.Hour)},
	}
}

func TestLogin_WithFlags(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("login", "-u", "admin", "-p", "admin123")

	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as admin (admin@documentvault.com)")
	data, err := afero.ReadFile(h.fs, testSessionPath)
	require.NoError(t, err)
	var s auth.Session
	require.NoError(t, json.Unmarshal(data, &s))
	assert.Equal(t, "admin", s.Username)
	assert.Zero(t, h.prompter.credentialCalls)
}

func TestLogin_Prompts(t *testing.T) {
	h := newHarness(t)
	h.prompter.username, h.prompter.password = "admin", "admin123"

	_, err := h.run("login")

	require.NoError(t, err)
	assert.Equal(t, 1, h.prompter.credentialCalls)
	assert.True(t, h.sessionExists(t))
}

func TestLogin_PromptAborted(t *testing.T) {
	h := newHarness(t)
	h.prompter.err = errors.New("user aborted")

	_, err := h.run("login")

	assert.ErrorContains(t, err, "user aborted")
	assert.False(t, h.sessionExists(t))
}

func TestLogin_InvalidCredentials(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("login", "-u", "admin", "-p", "wrong")

	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	assert.False(t, h.sessionExists(t))
}

func TestLogin_AlreadyLoggedIn(t *testing.T) {
	h := newHarness(t)
	h.loggedIn(t)

	out, err := h.run("login", "-u", "admin", "-p", "admin123")

	require.NoError(t, err)
	assert.Contains(t, out, "Already logged in as admin")
}

func TestWhoami(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("whoami")
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	h.loggedIn(t)
	out, err := h.run("whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "User:      admin")
	assert.Contains(t, out, "Email:     admin@documentvault.com")
}

func TestCorruptSessionIsRemoved(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, afero.WriteFile(h.fs, testSessionPath, []byte("{oops"), 0o600))

	_, err := h.run("whoami")

	assert.ErrorIs(t, err, ErrNotLoggedIn)
	assert.False(t, h.sessionExists(t))
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	h.loggedIn(t)

	out, err := h.run("logout")

	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")
	assert.False(t, h.sessionExists(t))

	out, err = h.run("logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in")
}

func TestDocumentCommands_RequireLogin(t *testing.T) {
	for _, args := range [][]string{
		{"list"}, {"search", "x"}, {"stats"}, {"upload", "/tmp/a.txt", "-n", "A"}, {"rm", "1", "-y"}, {"get", "1"},
	} {
		h := newHarness(t)
		_, err := h.run(args...)
		assert.ErrorIs(t, err, ErrNotLoggedIn, args[0])
		assert.Empty(t, h.apiURLs, "no API client is built without a session")
	}
}

func TestList(t *testing.T) {
	h := newHarness(t)
	h.loggedIn(t)
	h.api.On("List", mock.Anything).Return(sampleDocs(), nil).Once()

	out, err := h.run("list", "--api-url", "http://other.test/api")

	require.NoError(t, err)
	assert.Equal(t, []string{"http://other.test/api"}, h.apiURLs)
	for _, want := range []string{"Contract", "invoice.pdf", "pdf", "1.0 KiB", "2.0 KiB", "0 B"} {
		assert.Contains(t, out, want)
	}
}

func TestList_JSON(t *testing.T) {
	h := newHarness(t)
	h.loggedIn(t)
	h.api.On("List", mock.Anything).Return(sampleDocs(), nil).Once()

	out, err := h.run("list", "--json")

	require.NoError(t, err)
	var docs []model.Document
	require.NoError(t, json.Unmarshal([]byte(out), &docs))
	assert.Len(t, docs, 3)
	assert.Equal(t, "Contract", docs[0].Name)
}

func TestList_Empty(t *testing.T) {
	h := newHarness(t)
	h.loggedIn(t)
	h.api.On("List", mock.Anything).Return([]model.Document{}, nil).Once()

	out, err := h.run("ls")

	require.NoError(t, err)
	assert.Contains(t, out, "No documents found")
}

func TestList_Failure(t *testing.T) {
	h := newHarness(t)
	h.loggedIn(t)
	h.api.On("List", mock.Anything).Return(nil, &apiclient.StatusError{StatusCode: 500}).Once()

	_, err := h.run("list")

	require.Error(t, err)
	assert.Equal(t, "Failed to fetch documents", err.Error())
	assert.ErrorIs(t, err, docstore.ErrFetchFailed)
	var se *apiclient.StatusError
	assert.ErrorAs(t, err, &se)
}

func TestSearch(t *testing.T) {
	h := newHarness(t)
	h.loggedIn(t)
	h.api.On("Search", mock.Anything, "contract").Return(sampleDocs()[:1], nil).Once()

	out, err := h.run("search", "  contract ")

	require.NoError(t, err)
	assert.Contains(t, out, "Contract")
	assert.NotContains(t, out, "Invoice")
}

func TestSearch_NoQueryListsAll(t *testing.T) {
	h := newHarness(t)
	h.loggedIn(t)
	h.api.On("List", mock.Anything).Return(sampleDocs(), nil).Once()

	out, err := h.run("search")

	require.NoError(t, err)
	assert.Contains(t, out, "Notes")
}

func TestStats(t *testing.T) {
	h := newHarness(t)
	h.loggedIn(t)
	h.api.On("List", mock.Anything).Return(sampleDocs(), nil).Once()

	out, err := h.run("stats")

	require.NoError(t, err)
	for _, want := range []string{"Total Documents", "3.0 KiB", "66.7%", "33.3%", "Unknown", "RECENT"} {
		assert.Contains(t, out, want)
	}
}

func TestStats_JSON(t *testing.T) {
	h := newHarness(t)
	h.loggedIn(t)
	h.api.On("List", mock.Anything).Return(sampleDocs(), nil).Once()

	out, err := h.run("stats", "--json")

	require.NoError(t, err)
	var got struct {
		Stats struct {
			TotalDocuments int            `json:"totalDocuments"`
			TotalSize      int64          `json:"totalSize"`
			RecentUploads  int            `json:"recentUploads"`
			FileTypes      map[string]int `json:"fileTypes"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 3, got.Stats.TotalDocuments)
	assert.Equal(t, int64(3072), got.Stats.TotalSize)
	assert.Equal(t, 2, got.Stats.RecentUploads)
	assert.Equal(t, map[string]int{"application/pdf": 2, "Unknown": 1}, got.Stats.FileTypes)
}

func TestUpload(t *testing.T) {
	h := newHarness(t)
	h.loggedIn(t)
	content := []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<<>>\nendobj\n")
	require.NoError(t, afero.WriteFile(h.fs, "/work/report.pdf", content, 0o644))

	var sent []byte
	h.api.On("Upload", mock.Anything, mock.MatchedBy(func(in model.UploadInput) bool {
		return in.Name == "Report" &&
			in.Description == "Q3" &&
			in.FileName == "report.pdf" &&
			in.ContentType == "application/pdf" &&
			in.Size == int64(len(content))
	})).Run(func(args mock.Arguments) {
		sent, _ = io.ReadAll(args.Get(1).(model.UploadInput).Content)
	}).Return(&model.Document{ID: "9"}, nil).Once()
	h.api.On("List", mock.Anything).Return(sampleDocs(), nil).Once()

	out, err := h.run("upload", "/work/report.pdf", "--name", "Report", "-d", "Q3")

	require.NoError(t, err)
	assert.Contains(t, out, "Document uploaded successfully!")
	assert.Equal(t, content, sent)
}

func TestUpload_ExplicitType(t *testing.T) {
	h := newHarness(t)
	h.loggedIn(t)
	require.NoError(t, afero.WriteFile(h.fs, "/work/data.bin", []byte("a,b\n"), 0o644))
	h.api.On("Upload", mock.Anything, mock.MatchedBy(func(in model.UploadInput) bool {
		return in.ContentType == "text/csv"
	})).Return(&model.Document{}, nil).Once()
	h.api.On("List", mock.Anything).Return(sampleDocs(), nil).Once()

	_, err := h.run("upload", "/work/data.bin", "-n", "Data", "--type", "text/csv")

	require.NoError(t, err)
}

func TestUpload_Validation(t *testing.T) {
	h := newHarness(t)
	h.loggedIn(t)
	require.NoError(t, afero.WriteFile(h.fs, "/work/a.txt", []byte("a"), 0o644))

	_, err := h.run("upload", "/work/a.txt")
	assert.ErrorIs(t, err, docstore.ErrValidationFailed)
	assert.EqualError(t, err, "Please provide both file and name")

	_, err = h.run("upload", "/work/missing.txt", "-n", "Missing")
	assert.ErrorIs(t, err, docstore.ErrValidationFailed)

	h.api.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestUpload_Directory(t *testing.T) {
	h := newHarness(t)
	h.loggedIn(t)
	require.NoError(t, h.fs.MkdirAll("/work/dir", 0o755))

	_, err := h.run("upload", "/work/dir", "-n", "Dir")

	assert.ErrorContains(t, err, "is a directory")
}

func TestRemove_Declined(t *testing.T) {
	h := newHarness(t)
	h.loggedIn(t)
	h.prompter.confirm = false

	out, err := h.run("rm", "2")

	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled")
	assert.Equal(t, []string{docstore.DeletePrompt}, h.prompter.confirmPrompts)
	h.api.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestRemove_Confirmed(t *testing.T) {
	h := newHarness(t)
	h.loggedIn(t)
	h.prompter.confirm = true
	h.api.On("Delete", mock.Anything, "2").Return(nil).Once()
	h.api.On("List", mock.Anything).Return(sampleDocs()[:1], nil).Once()

	out, err := h.run("rm", "2")

	require.NoError(t, err)
	assert.Contains(t, out, "Document deleted successfully!")
}

func TestRemove_Yes(t *testing.T) {
	h := newHarness(t)
	h.loggedIn(t)
	h.api.On("Delete", mock.Anything, "2").Return(nil).Once()
	h.api.On("List", mock.Anything).Return(sampleDocs()[:1], nil).Once()

	_, err := h.run("rm", "2", "--yes")

	require.NoError(t, err)
	assert.Empty(t, h.prompter.confirmPrompts)
}

func TestRemove_PromptError(t *testing.T) {
	h := newHarness(t)
	h.loggedIn(t)
	h.prompter.err = errors.New("no tty")

	_, err := h.run("rm", "2")

	assert.ErrorContains(t, err, "no tty")
	h.api.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestRemove_Failure(t *testing.T) {
	h := newHarness(t)
	h.loggedIn(t)
	h.api.On("Delete", mock.Anything, "2").Return(&apiclient.StatusError{StatusCode: 404}).Once()

	_, err := h.run("rm", "2", "-y")

	assert.ErrorIs(t, err, docstore.ErrDeleteFailed)
	assert.EqualError(t, err, "Failed to delete document")
}

func TestGet(t *testing.T) {
	h := newHarness(t)
	h.loggedIn(t)
	h.api.On("List", mock.Anything).Return(sampleDocs(), nil).Once()
	h.api.On("Download", mock.Anything, "1").Return(&apiclient.Download{
		Body:        io.NopCloser(strings.NewReader("%PDF contract")),
		ContentType: "application/pdf",
	}, nil).Once()

	out, err := h.run("get", "1")

	require.NoError(t, err)
	assert.Contains(t, out, "Saved contract.pdf (13 B)")
	data, err := afero.ReadFile(h.fs, "contract.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF contract", string(data))
}

func TestGet_Output(t *testing.T) {
	h := newHarness(t)
	h.loggedIn(t)
	h.api.On("Download", mock.Anything, "1").Return(&apiclient.Download{
		Body: io.NopCloser(strings.NewReader("bytes")),
	}, nil).Once()

	_, err := h.run("get", "1", "-o", "/tmp/out.bin")

	require.NoError(t, err)
	data, err := afero.ReadFile(h.fs, "/tmp/out.bin")
	require.NoError(t, err)
	assert.Equal(t, "bytes", string(data))
}

func TestGet_InterruptedKeepsExistingFile(t *testing.T) {
	h := newHarness(t)
	h.loggedIn(t)
	require.NoError(t, afero.WriteFile(h.fs, "out.pdf", []byte("signed original"), 0o644))
	h.api.On("Download", mock.Anything, "1").Return(&apiclient.Download{
		Body: io.NopCloser(io.MultiReader(
			strings.NewReader("par"),
			iotest.ErrReader(errors.New("connection reset")),
		)),
		ContentType: "application/pdf",
	}, nil).Once()

	_, err := h.run("get", "1", "-o", "out.pdf")

	assert.ErrorIs(t, err, docstore.ErrDownloadFailed)
	data, err := afero.ReadFile(h.fs, "out.pdf")
	require.NoError(t, err)
	assert.Equal(t, "signed original", string(data))
	leftovers, err := afero.Glob(h.fs, ".vaultctl-*")
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestGet_ReplacesExistingFile(t *testing.T) {
	h := newHarness(t)
	h.loggedIn(t)
	require.NoError(t, afero.WriteFile(h.fs, "/tmp/out.bin", []byte("old"), 0o644))
	h.api.On("Download", mock.Anything, "1").Return(&apiclient.Download{
		Body: io.NopCloser(strings.NewReader("new bytes")),
	}, nil).Once()

	_, err := h.run("get", "1", "-o", "/tmp/out.bin")

	require.NoError(t, err)
	data, err := afero.ReadFile(h.fs, "/tmp/out.bin")
	require.NoError(t, err)
	assert.Equal(t, "new bytes", string(data))
}

func TestGet_Failure(t *testing.T) {
	h := newHarness(t)
	h.loggedIn(t)
	h.api.On("Download", mock.Anything, "7").Return(nil, &apiclient.StatusError{StatusCode: 404}).Once()

	_, err := h.run("get", "7", "-o", "/tmp/x")

	assert.ErrorIs(t, err, docstore.ErrDownloadFailed)
	exists, _ := afero.Exists(h.fs, "/tmp/x")
	assert.False(t, exists)
}
