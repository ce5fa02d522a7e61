// Package stats derives dashboard statistics from a document collection snapshot.
// Every function here is pure: the same snapshot and the same "now" give the same result.
package stats

import (
	"math"
	"sort"
	"strings"
	"time"

	"docvault/internal/model"
)

// RecentWindow is how far back an upload still counts as recent.
const RecentWindow = 7 * 24 * time.Hour

// DashboardRecent is how many documents a dashboard lists under Recent Documents.
const DashboardRecent = 5

// UnknownType labels documents without a file type.
const UnknownType = "Unknown"

// Statistics summarizes one collection snapshot.
// TotalDocuments always equals the sum of FileTypes counts.
type Statistics struct {
	TotalDocuments int            `json:"totalDocuments"`
	TotalSize      int64          `json:"totalSize"`
	RecentUploads  int            `json:"recentUploads"`
	FileTypes      map[string]int `json:"fileTypes"`
}

// TypeShare is one row of the file type distribution.
type TypeShare struct {
	Type       string  `json:"type"`
	Label      string  `json:"label"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Aggregate computes statistics for docs as seen at now.
func Aggregate(docs []model.Document, now time.Time) Statistics {
	s := Statistics{
		TotalDocuments: len(docs),
		FileTypes:      make(map[string]int),
	}
	cutoff := now.Add(-RecentWindow)
	for _, d := range docs {
		if d.FileSize > 0 {
			s.TotalSize += d.FileSize
		}
		if d.UploadDate.After(cutoff) {
			s.RecentUploads++
		}
		s.FileTypes[typeKey(d.FileType)]++
	}
	return s
}

// Distribution turns the FileTypes histogram into display rows ordered by count, then label.
// Percentages are rounded to one decimal place and are 0 for an empty collection.
func Distribution(s Statistics) []TypeShare {
	out := make([]TypeShare, 0, len(s.FileTypes))
	for typ, count := range s.FileTypes {
		out = append(out, TypeShare{
			Type:       typ,
			Label:      TypeLabel(typ),
			Count:      count,
			Percentage: percentage(count, s.TotalDocuments),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].Label != out[j].Label {
			return out[i].Label < out[j].Label
		}
		return out[i].Type < out[j].Type
	})
	return out
}

// TypeLabel returns the subtype of a MIME string ("pdf" for "application/pdf"),
// or the raw string when it has no subtype.
func TypeLabel(fileType string) string {
	if fileType == "" {
		return UnknownType
	}
	if _, sub, ok := strings.Cut(fileType, "/"); ok && sub != "" {
		if i := strings.IndexByte(sub, '/'); i >= 0 {
			sub = sub[:i]
		}
		return sub
	}
	return fileType
}

// Recent returns up to n documents, newest upload first. docs is not modified.
func Recent(docs []model.Document, n int) []model.Document {
	if n <= 0 || len(docs) == 0 {
		return []model.Document{}
	}
	sorted := make([]model.Document, len(docs))
	copy(sorted, docs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UploadDate.After(sorted[j].UploadDate)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func typeKey(fileType string) string {
	if strings.TrimSpace(fileType) == "" {
		return UnknownType
	}
	return fileType
}

func percentage(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(count)*1000/float64(total)) / 10
}
