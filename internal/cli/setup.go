package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/picklr-io/serp2snow/internal/credentials"
	"github.com/picklr-io/serp2snow/internal/engine"
	"github.com/picklr-io/serp2snow/internal/logging"
	"github.com/picklr-io/serp2snow/internal/provider"
	"github.com/picklr-io/serp2snow/internal/state"
)

var setupDryRun bool

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Set up the SerpWow to Snowflake integration",
	Long: `Creates the S3 bucket, IAM resources, SerpWow destination and Snowflake
objects of the integration, one step at a time. When an earlier setup did
not finish, you can continue from its last completed step.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetup(cmd, current, setupDryRun)
	},
}

func init() {
	setupCmd.Flags().BoolVar(&setupDryRun, "dry-run", false, "run against in-memory clouds; nothing is created and progress is not saved")
}

func runSetup(cmd *cobra.Command, a *app, dryRun bool) error {
	ctx := cmd.Context()

	var (
		store state.Store
		reg   *provider.Registry
	)
	if dryRun {
		a.out.Warn("Dry run: no cloud resources are created and progress is not saved")
		store = state.NewMemoryStore()
		reg = provider.NewDryRunRegistry()
	} else {
		s, err := a.store()
		if err != nil {
			return err
		}
		store = s
		reg = a.registry()
	}
	defer func() {
		if err := reg.Close(); err != nil {
			logging.Warn("failed to close warehouse connection", "error", err)
		}
	}()

	if locker, ok := store.(state.Locker); ok {
		if err := locker.Lock(ctx); err != nil {
			return err
		}
		defer func() {
			if err := locker.Unlock(ctx); err != nil {
				logging.Warn("failed to release store lock", "error", err)
			}
		}()
	}

	clouds, err := reg.Clouds(ctx)
	if err != nil {
		if errors.Is(err, credentials.ErrMissing) {
			a.out.Error("Missing credentials:\n%v", err)
			a.out.Warn("Save credentials with \"serp2snow credentials set\" then try again")
			return nil
		}
		return fmt.Errorf("failed to connect to providers: %w", err)
	}

	eng := engine.NewEngine(engine.Options{
		Store:        store,
		ObjectStore:  clouds.Objects,
		Identity:     clouds.Identity,
		Warehouse:    clouds.Warehouse,
		Destinations: clouds.Destinations,
		Prompter:     a.prompt,
		Reporter:     a.out,
		Names:        a.cfg.Names,
		AccountID:    clouds.AccountID,
		Propagation:  a.cfg.Propagation,
	})

	err = eng.Start(ctx)
	var failed *engine.SetupFailedError
	if errors.As(err, &failed) {
		// The operator has already been told what to do.
		return nil
	}
	return err
}
