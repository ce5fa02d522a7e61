// Package cli implements vaultctl, the terminal client of the document vault.
package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"docvault/internal/auth"
	"docvault/internal/config"
	"docvault/internal/docstore"
)

// ErrNotLoggedIn is returned by every command that needs a session when there is none.
var ErrNotLoggedIn = errors.New("not logged in, run `vaultctl login` first")

// Deps is everything the commands need from the outside world.
type Deps struct {
	Fs          afero.Fs
	SessionPath string
	Config      *config.AppConfig
	Verifier    auth.Verifier
	Prompter    Prompter
	Logger      *log.Logger
	// NewAPI builds the document API client for a base URL.
	NewAPI func(baseURL string) docstore.API
}

// DefaultSessionPath is <XDG config home>/docvault/documentVaultUser.json.
func DefaultSessionPath() string {
	return filepath.Join(xdg.ConfigHome, "docvault", auth.SessionKey+".json")
}

// NewLogger logs to w at info level, or at debug level with caller and timestamps when DEBUG=1.
func NewLogger(w io.Writer) *log.Logger {
	if os.Getenv("DEBUG") == "1" {
		l := log.NewWithOptions(w, log.Options{
			ReportCaller:    true,
			ReportTimestamp: true,
			Prefix:          "vaultctl",
		})
		l.SetLevel(log.DebugLevel)
		return l
	}
	l := log.New(w)
	l.SetLevel(log.InfoLevel)
	return l
}

type app struct {
	deps   *Deps
	apiURL string
}

// NewRootCommand returns the root command with all subcommands attached.
func NewRootCommand(d *Deps) *cobra.Command {
	a := &app{deps: d}

	cobra.EnableCommandSorting = false
	root := &cobra.Command{
		Use:   "vaultctl",
		Short: "Document Vault from the terminal.",
		Long: `vaultctl lists, searches, uploads, downloads and deletes documents stored in the
Document Vault, and shows the same statistics as the web dashboard.

Log in first with "vaultctl login"; the session is kept in ` + d.SessionPath + `.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&a.apiURL, "api-url", d.Config.Web.APIBaseURL, "document API base URL")

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newListCmd(a),
		newSearchCmd(a),
		newStatsCmd(a),
		newUploadCmd(a),
		newRemoveCmd(a),
		newGetCmd(a),
	)
	return root
}

func (a *app) gate(delay time.Duration) *auth.Gate {
	g := auth.NewGate(a.deps.Verifier, auth.NewFilePersistence(a.deps.Fs, a.deps.SessionPath), auth.WithDelay(delay))
	if err := g.RestoreErr(); err != nil {
		a.deps.Logger.Warn("discarded saved session", "path", a.deps.SessionPath, "err", err)
	}
	return g
}

// session returns the saved session or ErrNotLoggedIn.
func (a *app) session() (auth.Session, error) {
	s, ok := a.gate(0).Session()
	if !ok {
		return auth.Session{}, ErrNotLoggedIn
	}
	return s, nil
}

// store checks for a session and returns a store over the configured API.
func (a *app) store() (*docstore.Store, error) {
	if _, err := a.session(); err != nil {
		return nil, err
	}
	return docstore.New(a.deps.NewAPI(a.apiURL)), nil
}

// storeError shows the user-facing message of a store failure and keeps the cause for errors.Is.
type storeError struct{ err error }

func (e storeError) Error() string { return docstore.Message(e.err) }

func (e storeError) Unwrap() error { return e.err }

func (a *app) fail(err error) error {
	a.deps.Logger.Debug("request failed", "err", err)
	return storeError{err: err}
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
