package docstore

import (
	"io"
	"strings"
)

// File is a file picked for upload. Open may be called more than once, so a failed
// upload can be retried from the same draft.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// Draft is upload form data that has not been submitted yet.
type Draft struct {
	Name        string
	Description string
	File        *File
}

// Validate reports ErrValidationFailed unless both a name and a file are present.
func (d *Draft) Validate() error {
	if d == nil || strings.TrimSpace(d.Name) == "" || d.File == nil || d.File.Open == nil {
		return ErrValidationFailed
	}
	return nil
}

// Confirmer is the yes/no gate in front of a destructive call.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// Saver hands downloaded content to wherever files end up (a browser response, a local file).
type Saver interface {
	Save(fileName, contentType string, r io.Reader) error
}

// SaverFunc adapts a function to Saver.
type SaverFunc func(fileName, contentType string, r io.Reader) error

func (f SaverFunc) Save(fileName, contentType string, r io.Reader) error {
	return f(fileName, contentType, r)
}
