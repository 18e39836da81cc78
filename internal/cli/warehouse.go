package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/picklr-io/serp2snow/internal/provider"
	"github.com/picklr-io/serp2snow/providers/snowflake"
)

var warehouseCmd = &cobra.Command{
	Use:   "warehouse",
	Short: "Work with the Snowflake objects of a finished setup",
}

var warehouseViewDryRun bool

var warehouseViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Create the view that flattens SERP results into one row per result",
	Long: `Creates a secure view next to the results table that unions organic
results, ads, shopping results and other SERP features into one row per
result. The table must have been created by setup first.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWarehouseView(cmd.Context(), current, warehouseViewDryRun)
	},
}

func init() {
	warehouseViewCmd.Flags().BoolVar(&warehouseViewDryRun, "dry-run", false, "run against an in-memory warehouse")

	warehouseCmd.AddCommand(warehouseViewCmd)
}

func runWarehouseView(ctx context.Context, a *app, dryRun bool) error {
	store, err := a.store()
	if err != nil {
		return err
	}
	s, err := store.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to read setup progress: %w", err)
	}
	if s == nil || s.Table == nil || s.Database == "" || s.Schema == "" {
		a.out.Error("The results table has not been created yet")
		a.out.Warn("Run \"serp2snow setup\" until the table is created then try again")
		return nil
	}

	reg := a.registry()
	if dryRun {
		reg = provider.NewDryRunRegistry()
	}
	defer reg.Close()

	wh, err := reg.Warehouse(ctx)
	if err != nil {
		return err
	}

	name := snowflake.QualifiedName(s.Database, s.Schema, a.cfg.Names.View)
	a.out.Activity("Creating Snowflake view %s", name)
	if err := wh.CreateView(ctx, name, s.Table.Name); err != nil {
		a.out.Error("Failed to create view %s", name)
		a.out.Warn("%v", err)
		return nil
	}
	a.out.Success("View %s created", name)
	return nil
}
