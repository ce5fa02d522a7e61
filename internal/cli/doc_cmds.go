package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"docvault/internal/docstore"
	"docvault/internal/stats"
)

func newListCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all documents",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}
			if err := store.LoadAll(contextOf(cmd)); err != nil {
				return a.fail(err)
			}
			return writeDocuments(cmd.OutOrStdout(), store.Snapshot(), asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newSearchCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search documents by name",
		Long: `Search documents by name. An empty query lists every document.

Examples:
  vaultctl search contract
  vaultctl search "annual report"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			if err := store.Search(contextOf(cmd), query); err != nil {
				return a.fail(err)
			}
			return writeDocuments(cmd.OutOrStdout(), store.Snapshot(), asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func writeDocuments(w io.Writer, v docstore.View, asJSON bool) error {
	if asJSON {
		return printJSON(w, v.Documents)
	}
	printDocuments(w, v.Documents)
	return nil
}

func newStatsCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show document statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}
			if err := store.LoadAll(contextOf(cmd)); err != nil {
				return a.fail(err)
			}
			v := store.Snapshot()
			recent := stats.Recent(v.Documents, stats.DashboardRecent)
			if asJSON {
				return printJSON(cmd.OutOrStdout(), struct {
					Stats        stats.Statistics  `json:"stats"`
					Distribution []stats.TypeShare `json:"distribution"`
				}{v.Stats, stats.Distribution(v.Stats)})
			}
			printStats(cmd.OutOrStdout(), v.Stats, recent)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

type uploadFlags struct {
	Name        string
	Description string
	ContentType string
}

func newUploadCmd(a *app) *cobra.Command {
	flags := &uploadFlags{}
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a document",
		Long: `Upload a file as a new document. The content type is detected from the file
unless --type is given.

Examples:
  vaultctl upload ./contract.pdf --name "Contract" --description "Signed copy"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runUpload(cmd, args[0], flags)
		},
	}
	cmd.Flags().StringVarP(&flags.Name, "name", "n", "", "document name (required)")
	cmd.Flags().StringVarP(&flags.Description, "description", "d", "", "document description")
	cmd.Flags().StringVar(&flags.ContentType, "type", "", "content type, detected when empty")
	return cmd
}

func (a *app) runUpload(cmd *cobra.Command, path string, flags *uploadFlags) error {
	store, err := a.store()
	if err != nil {
		return err
	}

	draft := &docstore.Draft{Name: flags.Name, Description: flags.Description}
	info, err := a.deps.Fs.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Left without a file so the store reports the validation failure.
	case err != nil:
		return err
	case info.IsDir():
		return fmt.Errorf("%s is a directory", path)
	default:
		ct := flags.ContentType
		if ct == "" {
			if ct, err = detectType(a.deps.Fs, path); err != nil {
				return err
			}
		}
		draft.File = &docstore.File{
			Name:        filepath.Base(path),
			ContentType: ct,
			Size:        info.Size(),
			Open: func() (io.ReadCloser, error) {
				return a.deps.Fs.Open(path)
			},
		}
		a.deps.Logger.Debug("uploading", "file", path, "type", ct, "size", humanize.IBytes(uint64(info.Size())))
	}

	if err := store.Upload(contextOf(cmd), draft); err != nil {
		return a.fail(err)
	}
	printSuccess(cmd.OutOrStdout(), "Document uploaded successfully!")
	return nil
}

func detectType(fs afero.Fs, path string) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return "", fmt.Errorf("failed to detect content type: %w", err)
	}
	return mt.String(), nil
}

func newRemoveCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a document",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}

			var promptErr error
			confirm := docstore.ConfirmFunc(func(prompt string) bool {
				if yes {
					return true
				}
				ok, err := a.deps.Prompter.Confirm(prompt)
				promptErr = err
				return ok
			})

			removed, err := store.Remove(contextOf(cmd), args[0], confirm)
			if promptErr != nil {
				return fmt.Errorf("failed to read confirmation: %w", promptErr)
			}
			if err != nil {
				return a.fail(err)
			}
			if !removed {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
				return nil
			}
			printSuccess(cmd.OutOrStdout(), "Document deleted successfully!")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newGetCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:     "get <id>",
		Aliases: []string{"download"},
		Short:   "Download a document",
		Long: `Download a document into the current directory under its original file name,
or to the path given with --output.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}
			id := args[0]

			fileName := ""
			if output == "" {
				// The original file name is only known from the listing.
				if err := store.LoadAll(contextOf(cmd)); err != nil {
					return a.fail(err)
				}
				for _, d := range store.Snapshot().Documents {
					if d.ID == id {
						fileName = d.FileName
						break
					}
				}
			}

			var written int64
			target := output
			saver := docstore.SaverFunc(func(name, _ string, r io.Reader) error {
				if target == "" {
					target = filepath.Base(name)
				}
				n, err := writeFileAtomic(a.deps.Fs, target, r)
				written = n
				return err
			})

			start := time.Now()
			if err := store.Download(contextOf(cmd), id, fileName, saver); err != nil {
				return a.fail(err)
			}
			a.deps.Logger.Debug("download finished", "id", id, "took", time.Since(start))
			printSuccess(cmd.OutOrStdout(), fmt.Sprintf("Saved %s (%s)", target, size(written)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this path")
	return cmd
}

// writeFileAtomic streams r into a temporary file next to target and renames it over target once
// complete, so a failed transfer leaves any existing file untouched.
func writeFileAtomic(fs afero.Fs, target string, r io.Reader) (int64, error) {
	tmp, err := afero.TempFile(fs, filepath.Dir(target), ".vaultctl-*")
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = fs.Chmod(tmp.Name(), 0o644)
	}
	if err == nil {
		err = fs.Rename(tmp.Name(), target)
	}
	if err != nil {
		_ = fs.Remove(tmp.Name())
		return 0, err
	}
	return n, nil
}
