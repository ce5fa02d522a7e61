package cli

import (
	"errors"
	"strings"

	"github.com/charmbracelet/huh"
)

// Prompter asks the user for input.
type Prompter interface {
	Credentials(username, password *string) error
	Confirm(title string) (bool, error)
}

// HuhPrompter prompts with huh forms on the terminal.
type HuhPrompter struct{}

func (HuhPrompter) Credentials(username, password *string) error {
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Username").
			Value(username).
			Validate(required("username")),
		huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(password).
			Validate(required("password")),
	))
	return form.Run()
}

func (HuhPrompter) Confirm(title string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Affirmative("Delete").
		Negative("Cancel").
		Value(&ok).
		Run()
	return ok, err
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New(field + " is required")
		}
		return nil
	}
}
