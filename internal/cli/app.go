package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/picklr-io/serp2snow/internal/config"
	"github.com/picklr-io/serp2snow/internal/credentials"
	"github.com/picklr-io/serp2snow/internal/logging"
	"github.com/picklr-io/serp2snow/internal/provider"
	"github.com/picklr-io/serp2snow/internal/state"
	"github.com/picklr-io/serp2snow/internal/ui"
)

// prompter is everything the commands ask the operator.
type prompter interface {
	Input(title, description string) (string, error)
	RequiredInput(title, description string) (string, error)
	Password(title string) (string, error)
	Confirm(title, description string) (bool, error)
	Select(title string, options ...ui.Option) (string, error)
}

// newPrompter is replaced in tests.
var newPrompter = func(ctx context.Context, accessible bool) prompter {
	return ui.NewPrompter(ctx, accessible)
}

// app holds what every command needs. It is built once per invocation by
// loadApp.
type app struct {
	cfg    *config.Config
	creds  *credentials.Store
	out    *ui.Printer
	w      io.Writer
	prompt prompter
}

var current *app

func loadApp(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	logging.Init(level)

	if cfg.Store.Path == "" {
		return fmt.Errorf("store.path must be set")
	}

	current = &app{
		cfg:    cfg,
		creds:  credentials.NewStore(state.NewConfigFile(cfg.Store.Path)),
		out:    ui.NewPrinter(cmd.OutOrStdout()),
		w:      cmd.OutOrStdout(),
		prompt: newPrompter(cmd.Context(), accessible),
	}
	logging.Debug("settings loaded", "store_backend", cfg.Store.Backend, "store_path", cfg.Store.Path)
	return nil
}

func (a *app) store() (state.Store, error) {
	return state.NewStore(&a.cfg.Store)
}

func (a *app) registry() *provider.Registry {
	return provider.NewRegistry(a.creds, a.cfg)
}

func (a *app) println(s string) {
	fmt.Fprintln(a.w, s)
}
