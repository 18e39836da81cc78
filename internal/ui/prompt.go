package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
)

var errInputRequired = errors.New("input required")

// Option is one choice of a Select prompt.
type Option struct {
	Label string
	Value string
}

// Prompter asks questions with huh forms. An aborted form is reported as
// an error wrapping context.Canceled.
type Prompter struct {
	ctx        context.Context
	accessible bool
}

// NewPrompter returns a Prompter whose forms stop when ctx is done.
// Accessible mode replaces the TUI with plain line-based prompts.
func NewPrompter(ctx context.Context, accessible bool) *Prompter {
	return &Prompter{ctx: ctx, accessible: accessible}
}

func (p *Prompter) run(fields ...huh.Field) error {
	form := huh.NewForm(huh.NewGroup(fields...)).WithAccessible(p.accessible)
	return mapAbort(form.RunWithContext(p.ctx))
}

// Input asks for a line of free text.
func (p *Prompter) Input(title, description string) (string, error) {
	var v string
	err := p.run(huh.NewInput().
		Title(title).
		Description(description).
		Value(&v))
	return v, err
}

// RequiredInput asks for a line of text that may not be blank.
func (p *Prompter) RequiredInput(title, description string) (string, error) {
	var v string
	err := p.run(huh.NewInput().
		Title(title).
		Description(description).
		Value(&v).
		Validate(required))
	return strings.TrimSpace(v), err
}

// Password asks for a secret without echoing it.
func (p *Prompter) Password(title string) (string, error) {
	var v string
	err := p.run(huh.NewInput().
		Title(title).
		EchoMode(huh.EchoModePassword).
		Value(&v).
		Validate(required))
	return v, err
}

// Confirm asks a yes/no question. No is the default.
func (p *Prompter) Confirm(title, description string) (bool, error) {
	var v bool
	err := p.run(huh.NewConfirm().
		Title(title).
		Description(description).
		Affirmative("Yes").
		Negative("No").
		Value(&v))
	return v, err
}

// Select asks for one of options and returns its value.
func (p *Prompter) Select(title string, options ...Option) (string, error) {
	if len(options) == 0 {
		return "", fmt.Errorf("select %q has no options", title)
	}
	opts := make([]huh.Option[string], len(options))
	for i, o := range options {
		opts[i] = huh.NewOption(o.Label, o.Value)
	}

	v := options[0].Value
	err := p.run(huh.NewSelect[string]().
		Title(title).
		Options(opts...).
		Value(&v))
	return v, err
}

func required(s string) error {
	if strings.TrimSpace(s) == "" {
		return errInputRequired
	}
	return nil
}

func mapAbort(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, huh.ErrUserAborted), errors.Is(err, huh.ErrTimeout):
		return fmt.Errorf("%w: %w", context.Canceled, err)
	default:
		return err
	}
}
