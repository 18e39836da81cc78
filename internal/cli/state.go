package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/picklr-io/serp2snow/internal/engine"
	"github.com/picklr-io/serp2snow/internal/ir"
	"github.com/picklr-io/serp2snow/internal/state"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect or clear setup progress",
	Long: `Commands for inspecting and clearing the saved setup progress. Clearing
progress never deletes cloud resources.`,
}

var stateShowJSON bool

var stateShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the last completed step and the resources created so far",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStateShow(cmd.Context(), current, stateShowJSON)
	},
}

var stateClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget setup progress (does not delete resources)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStateClear(cmd.Context(), current)
	},
}

func init() {
	stateShowCmd.Flags().BoolVar(&stateShowJSON, "json", false, "print the saved record as JSON with secrets redacted")

	stateCmd.AddCommand(stateShowCmd)
	stateCmd.AddCommand(stateClearCmd)
}

func runStateShow(ctx context.Context, a *app, asJSON bool) error {
	store, err := a.store()
	if err != nil {
		return err
	}
	s, err := store.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to read setup progress: %w", err)
	}
	if s == nil {
		a.out.Activity("No setup progress is saved")
		return nil
	}

	if asJSON {
		data, err := json.MarshalIndent(redact(s), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode setup progress: %w", err)
		}
		a.println(string(data))
		return nil
	}

	status := "in progress"
	if s.Stage.Terminal() {
		status = "complete"
	}
	a.println(fmt.Sprintf("Last completed step: %s (%s)", s.Stage, status))
	if s.RunID != "" {
		a.println("Run: " + s.RunID)
	}
	if s.Database != "" {
		a.println(fmt.Sprintf("Snowflake location: %s.%s", s.Database, s.Schema))
	}

	ledger := s.Ledger()
	if len(ledger) == 0 {
		a.println("\nNo resources created yet.")
		return nil
	}
	a.println("\nCreated resources:")
	for _, r := range ledger {
		a.println("  " + r.String())
	}
	a.println(fmt.Sprintf("\nTotal: %d resource(s)", len(ledger)))
	return nil
}

// redact returns a copy of s without the upload user's secret key.
func redact(s *ir.ProvisioningState) *ir.ProvisioningState {
	c := s.Clone()
	if c.SerpWowIAMUser != nil && c.SerpWowIAMUser.SecretAccessKey != "" {
		c.SerpWowIAMUser.SecretAccessKey = strings.Repeat("*", 8)
	}
	return c
}

func runStateClear(ctx context.Context, a *app) error {
	store, err := a.store()
	if err != nil {
		return err
	}
	if locker, ok := store.(state.Locker); ok {
		if err := locker.Lock(ctx); err != nil {
			return err
		}
		defer locker.Unlock(ctx)
	}

	eng := engine.NewEngine(engine.Options{
		Store:    store,
		Prompter: a.prompt,
		Reporter: a.out,
	})
	_, err = eng.Reset(ctx)
	return err
}
