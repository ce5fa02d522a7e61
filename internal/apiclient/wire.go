package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"docvault/internal/model"
)

// wireDocument is the document shape as the API may send it: any field can be absent or null,
// and ids may be numbers or strings.
type wireDocument struct {
	ID          flexibleID `json:"id"`
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	FileName    *string    `json:"fileName"`
	FileType    *string    `json:"fileType"`
	FileSize    *int64     `json:"fileSize"`
	UploadDate  flexTime   `json:"uploadDate"`
}

// normalize applies the defaulting rules once, so nothing downstream sees a missing field.
func (w wireDocument) normalize() model.Document {
	d := model.Document{
		ID:          string(w.ID),
		Name:        deref(w.Name),
		Description: deref(w.Description),
		FileName:    deref(w.FileName),
		FileType:    strings.TrimSpace(deref(w.FileType)),
		UploadDate:  time.Time(w.UploadDate),
	}
	if w.FileSize != nil && *w.FileSize > 0 {
		d.FileSize = *w.FileSize
	}
	return d
}

func normalizeAll(in []wireDocument) []model.Document {
	out := make([]model.Document, 0, len(in))
	for _, w := range in {
		out = append(out, w.normalize())
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

type flexibleID string

func (f *flexibleID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("document id: %w", err)
	}
	*f = flexibleID(n.String())
	return nil
}

// zone-less layouts are what a Java LocalDateTime serializes to; they are read as UTC.
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

type flexTime time.Time

func (t *flexTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil || s == "" {
		// null, numbers and garbage all leave the zero time
		*t = flexTime(time.Time{})
		return nil
	}
	if v, err := time.Parse(time.RFC3339Nano, s); err == nil {
		*t = flexTime(v)
		return nil
	}
	for _, layout := range localLayouts {
		if v, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			*t = flexTime(v)
			return nil
		}
	}
	*t = flexTime(time.Time{})
	return nil
}
