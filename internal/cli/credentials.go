package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/picklr-io/serp2snow/internal/credentials"
	"github.com/picklr-io/serp2snow/internal/provider"
	"github.com/picklr-io/serp2snow/internal/ui"
	awsprovider "github.com/picklr-io/serp2snow/providers/aws"
)

const (
	targetAll       = "all"
	targetAWS       = "aws"
	targetSnowflake = "snowflake"
	targetSerpWow   = "serpwow"
)

var targetOptions = []ui.Option{
	{Label: "All", Value: targetAll},
	{Label: "AWS", Value: targetAWS},
	{Label: "SerpWow", Value: targetSerpWow},
	{Label: "Snowflake", Value: targetSnowflake},
}

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Manage saved credentials",
}

var credentialsSetCmd = &cobra.Command{
	Use:       "set [all|aws|snowflake|serpwow]",
	Short:     "Prompt for and save credentials",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{targetAll, targetAWS, targetSnowflake, targetSerpWow},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCredentialsSet(cmd.Context(), current, firstArg(args))
	},
}

var credentialsTestCmd = &cobra.Command{
	Use:       "test [all|aws|snowflake|serpwow]",
	Short:     "Check that saved credentials work",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{targetAll, targetAWS, targetSnowflake, targetSerpWow},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCredentialsTest(cmd.Context(), current, firstArg(args))
	},
}

var credentialsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show saved credentials without secrets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCredentialsShow(cmd.Context(), current)
	},
}

var credentialsClearYes bool

var credentialsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget all saved credentials",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCredentialsClear(cmd.Context(), current, credentialsClearYes)
	},
}

func init() {
	credentialsClearCmd.Flags().BoolVarP(&credentialsClearYes, "yes", "y", false, "do not ask for confirmation")

	credentialsCmd.AddCommand(credentialsSetCmd)
	credentialsCmd.AddCommand(credentialsTestCmd)
	credentialsCmd.AddCommand(credentialsShowCmd)
	credentialsCmd.AddCommand(credentialsClearCmd)
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return strings.ToLower(args[0])
}

func (a *app) chooseTarget(title, target string) (string, error) {
	if target != "" {
		return target, nil
	}
	return a.prompt.Select(title, targetOptions...)
}

func runCredentialsSet(ctx context.Context, a *app, target string) error {
	target, err := a.chooseTarget("Which credentials to update:", target)
	if err != nil {
		return err
	}

	switch target {
	case targetAll:
		for _, set := range []func(context.Context) error{a.setAWS, a.setSerpWow, a.setSnowflake} {
			if err := set(ctx); err != nil {
				return err
			}
		}
		return nil
	case targetAWS:
		return a.setAWS(ctx)
	case targetSnowflake:
		return a.setSnowflake(ctx)
	case targetSerpWow:
		return a.setSerpWow(ctx)
	default:
		return fmt.Errorf("unknown credentials %q", target)
	}
}

func (a *app) setAWS(ctx context.Context) error {
	id, err := a.prompt.RequiredInput("Enter the AWS access key id:", "")
	if err != nil {
		return err
	}
	secret, err := a.prompt.Password("Enter the AWS secret access key:")
	if err != nil {
		return err
	}
	region, err := a.prompt.Input("Enter the AWS region:", "Leave empty for "+a.cfg.AWS.Region)
	if err != nil {
		return err
	}
	account, err := a.prompt.Input("Enter the AWS account id:", "Leave empty to look it up from the credentials")
	if err != nil {
		return err
	}

	if err := a.creds.SaveAWS(ctx, credentials.AWS{
		AccessKeyID:     id,
		SecretAccessKey: secret,
		Region:          strings.TrimSpace(region),
		AccountID:       strings.TrimSpace(account),
	}); err != nil {
		return err
	}
	a.out.Success("AWS credentials saved")
	return nil
}

func (a *app) setSnowflake(ctx context.Context) error {
	method, err := a.prompt.Select("Which authentication method for Snowflake:",
		ui.Option{Label: "Password", Value: credentials.AuthPassword},
		ui.Option{Label: "Key Pair", Value: credentials.AuthKeyPair},
	)
	if err != nil {
		return err
	}

	c := credentials.Snowflake{AuthMethod: method}
	if c.Account, err = a.prompt.RequiredInput("Enter your Snowflake account identifier:", ""); err != nil {
		return err
	}
	if c.Username, err = a.prompt.RequiredInput("Enter the Snowflake login user:", ""); err != nil {
		return err
	}
	if method == credentials.AuthKeyPair {
		c.PrivateKeyPath, err = a.prompt.RequiredInput("Enter the path of the PKCS#8 private key file:", "")
	} else {
		c.Password, err = a.prompt.Password("Enter the user password:")
	}
	if err != nil {
		return err
	}
	if c.Role, err = a.prompt.Input("Enter the Snowflake role:", "Leave empty for the user's default role"); err != nil {
		return err
	}
	if c.Warehouse, err = a.prompt.Input("Enter the Snowflake warehouse:", "Leave empty for the user's default warehouse"); err != nil {
		return err
	}
	c.Role = strings.TrimSpace(c.Role)
	c.Warehouse = strings.TrimSpace(c.Warehouse)

	if err := a.creds.SaveSnowflake(ctx, c); err != nil {
		return err
	}
	a.out.Success("Snowflake credentials saved")
	return nil
}

func (a *app) setSerpWow(ctx context.Context) error {
	key, err := a.prompt.Password("Enter the SerpWow API key:")
	if err != nil {
		return err
	}
	if err := a.creds.SaveSerpWow(ctx, credentials.SerpWow{APIKey: key}); err != nil {
		return err
	}
	a.out.Success("SerpWow credentials saved")
	return nil
}

// credentialCheck verifies one provider's credentials with a cheap call.
type credentialCheck struct {
	label string
	run   func(ctx context.Context, reg *provider.Registry) error
}

var credentialChecks = map[string]credentialCheck{
	targetAWS: {"AWS", func(ctx context.Context, reg *provider.Registry) error {
		p, err := reg.AWS(ctx)
		if err != nil {
			return err
		}
		_, err = p.CallerIdentity(ctx)
		return err
	}},
	targetSerpWow: {"SerpWow", func(ctx context.Context, reg *provider.Registry) error {
		c, err := reg.SerpWow(ctx)
		if err != nil {
			return err
		}
		_, err = c.GetAccount(ctx)
		return err
	}},
	targetSnowflake: {"Snowflake", func(ctx context.Context, reg *provider.Registry) error {
		w, err := reg.Warehouse(ctx)
		if err != nil {
			return err
		}
		return w.Ping(ctx)
	}},
}

func runCredentialsTest(ctx context.Context, a *app, target string) error {
	target, err := a.chooseTarget("Which credentials to test:", target)
	if err != nil {
		return err
	}

	var targets []string
	switch target {
	case targetAll:
		targets = []string{targetAWS, targetSerpWow, targetSnowflake}
	case targetAWS, targetSerpWow, targetSnowflake:
		targets = []string{target}
	default:
		return fmt.Errorf("invalid credential test option: %s", target)
	}

	reg := a.registry()
	defer reg.Close()

	fields := make([]ui.Field, 0, len(targets))
	for _, t := range targets {
		check := credentialChecks[t]
		a.out.Activity("Checking %s credentials", check.label)
		err := check.run(ctx, reg)
		if err != nil {
			a.out.Error("%s: %v", check.label, err)
		}
		fields = append(fields, ui.Field{Label: check.label, Value: ui.Status(err)})
	}

	a.println(ui.Box("Results", fields...))
	return nil
}

func runCredentialsShow(ctx context.Context, a *app) error {
	set, err := a.creds.Get(ctx)
	if err != nil {
		return err
	}
	a.println(credentialsBox(set))
	return nil
}

func credentialsBox(set *credentials.Set) string {
	var (
		awsCreds = set.AWS
		sf       = set.Snowflake
		sw       = set.SerpWow
	)
	if awsCreds == nil {
		awsCreds = &credentials.AWS{}
	}
	if sf == nil {
		sf = &credentials.Snowflake{}
	}
	if sw == nil {
		sw = &credentials.SerpWow{}
	}

	region := awsCreds.Region
	if region == "" && awsCreds.AccessKeyID != "" {
		region = awsprovider.DefaultRegion
	}

	return ui.Box("Saved Credentials",
		ui.Field{Label: "AWS access key id", Value: mask(awsCreds.AccessKeyID)},
		ui.Field{Label: "AWS region", Value: region},
		ui.Field{Label: "AWS account", Value: awsCreds.AccountID},
		ui.Field{Label: "SerpWow API key", Value: mask(sw.APIKey)},
		ui.Field{Label: "Snowflake auth method", Value: sf.AuthMethod},
		ui.Field{Label: "Snowflake account", Value: sf.Account},
		ui.Field{Label: "Snowflake username", Value: sf.Username},
	)
}

// mask hides all but the last four characters of a secret.
func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}

func runCredentialsClear(ctx context.Context, a *app, yes bool) error {
	if !yes {
		ok, err := a.prompt.Confirm("Clear saved credentials?", "Setup progress is kept.")
		if err != nil {
			return err
		}
		if !ok {
			a.out.Activity("Credentials were kept")
			return nil
		}
	}
	if err := a.creds.Clear(ctx); err != nil {
		return err
	}
	a.out.Success("Credentials cleared")
	return nil
}
