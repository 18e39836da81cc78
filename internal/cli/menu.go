package cli

import (
	"github.com/spf13/cobra"

	"github.com/picklr-io/serp2snow/internal/ui"
)

const (
	menuUpdateCredentials = "update-credentials"
	menuTestCredentials   = "test-credentials"
	menuSetup             = "setup"
	menuCreateView        = "create-view"
	menuShowProgress      = "show-progress"
	menuClearProgress     = "clear-progress"
	menuClearCredentials  = "clear-credentials"
	menuExit              = "exit"
)

var menuOptions = []ui.Option{
	{Label: "Update credentials", Value: menuUpdateCredentials},
	{Label: "Test credentials", Value: menuTestCredentials},
	{Label: "Setup SerpWow to Snowflake integration", Value: menuSetup},
	{Label: "Create flattened SERP view", Value: menuCreateView},
	{Label: "Show setup progress", Value: menuShowProgress},
	{Label: "Clear setup progress", Value: menuClearProgress},
	{Label: "Clear saved credentials", Value: menuClearCredentials},
	{Label: "Exit tool", Value: menuExit},
}

func runMenu(cmd *cobra.Command, args []string) error {
	a := current
	ctx := cmd.Context()

	a.println("This tool will help set up a data ingestion pipeline between SerpWow Batches and Snowflake")

	set, err := a.creds.Get(ctx)
	if err != nil {
		return err
	}
	if _, err := set.RequireSnowflake(); err != nil {
		a.out.Warn("Credentials not found...")
		if err := runCredentialsSet(ctx, a, targetAll); err != nil {
			return err
		}
	}

	for {
		set, err := a.creds.Get(ctx)
		if err != nil {
			return err
		}
		a.println(credentialsBox(set))

		choice, err := a.prompt.Select("Choose an option below", menuOptions...)
		if err != nil {
			return err
		}

		switch choice {
		case menuExit:
			a.println("Goodbye!")
			return nil
		case menuUpdateCredentials:
			err = runCredentialsSet(ctx, a, "")
		case menuTestCredentials:
			err = runCredentialsTest(ctx, a, "")
		case menuSetup:
			err = runSetup(cmd, a, false)
		case menuCreateView:
			err = runWarehouseView(ctx, a, false)
		case menuShowProgress:
			err = runStateShow(ctx, a, false)
		case menuClearProgress:
			err = runStateClear(ctx, a)
		case menuClearCredentials:
			err = runCredentialsClear(ctx, a, false)
		}
		if err != nil {
			return err
		}
	}
}
