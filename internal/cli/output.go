package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"docvault/internal/model"
	"docvault/internal/stats"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#90EE90")).Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6495ED")).Bold(true)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func size(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	return humanize.IBytes(uint64(n))
}

func day(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}

func printDocuments(w io.Writer, docs []model.Document) {
	if len(docs) == 0 {
		fmt.Fprintln(w, "No documents found")
		return
	}
	t := newTable("ID", "NAME", "FILE", "TYPE", "SIZE", "UPLOADED")
	for _, d := range docs {
		t.Row(d.ID, d.Name, d.FileName, stats.TypeLabel(d.FileType), size(d.FileSize), day(d.UploadDate))
	}
	fmt.Fprintln(w, t.String())
}

func printStats(w io.Writer, s stats.Statistics, recent []model.Document) {
	summary := newTable().
		Row(labelStyle.Render("Total Documents"), humanize.Comma(int64(s.TotalDocuments))).
		Row(labelStyle.Render("Storage Used"), size(s.TotalSize)).
		Row(labelStyle.Render("Recent Uploads (7 days)"), strconv.Itoa(s.RecentUploads)).
		Row(labelStyle.Render("File Types"), strconv.Itoa(len(s.FileTypes)))
	fmt.Fprintln(w, summary.String())

	dist := stats.Distribution(s)
	if len(dist) > 0 {
		t := newTable("TYPE", "FILES", "SHARE")
		for _, ts := range dist {
			t.Row(ts.Label, strconv.Itoa(ts.Count), fmt.Sprintf("%.1f%%", ts.Percentage))
		}
		fmt.Fprintln(w, t.String())
	}

	if len(recent) > 0 {
		t := newTable("RECENT", "FILE", "SIZE", "UPLOADED")
		for _, d := range recent {
			t.Row(d.Name, d.FileName, size(d.FileSize), humanize.Time(d.UploadDate))
		}
		fmt.Fprintln(w, t.String())
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSuccess(w io.Writer, msg string) {
	fmt.Fprintln(w, successStyle.Render(msg))
}
