package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/picklr-io/serp2snow/internal/ir"
	awsprovider "github.com/picklr-io/serp2snow/providers/aws"
	"github.com/picklr-io/serp2snow/providers/serpwow"
	"github.com/picklr-io/serp2snow/providers/snowflake"
)

// step performs the one external side effect that follows stage s.Stage and
// returns the state recording it.
type step func(e *Engine, ctx context.Context, s *ir.ProvisioningState) (*ir.ProvisioningState, error)

var steps = [ir.StageCount]step{
	ir.StageInitialInput:              (*Engine).createBucket,
	ir.StageBucketCreated:             (*Engine).createUploadUser,
	ir.StageSerpWowUserCreated:        (*Engine).createWritePolicy,
	ir.StageSerpWowPolicyCreated:      (*Engine).attachWritePolicy,
	ir.StageSerpWowPolicyAttached:     (*Engine).createAccessKey,
	ir.StageSerpWowUserKeyCreated:     (*Engine).createReadPolicy,
	ir.StageSnowflakePolicyCreated:    (*Engine).createRole,
	ir.StageSnowflakeRoleCreated:      (*Engine).attachReadPolicy,
	ir.StageSnowflakePolicyAttached:   (*Engine).createDestination,
	ir.StageDestinationCreated:        (*Engine).createStorageIntegration,
	ir.StageStorageIntegrationCreated: (*Engine).updateRoleTrust,
	ir.StageSnowflakeRoleUpdated:      (*Engine).createTable,
	ir.StageTableCreated:              (*Engine).createStage,
	ir.StageStageCreated:              (*Engine).createPipe,
	ir.StagePipeCreated:               (*Engine).createEventNotification,
	ir.StageEventNotificationCreated:  (*Engine).complete,
}

// successor copies s and moves the copy to the stage after s.Stage.
func successor(s *ir.ProvisioningState) *ir.ProvisioningState {
	next := s.Clone()
	next.Stage, _ = s.Stage.Next()
	return next
}

// requireFields fails with an integrity error when an earlier stage's output
// is missing from s.
func requireFields(s *ir.ProvisioningState, fields ...string) error {
	for _, f := range fields {
		var ok bool
		switch f {
		case "bucket":
			ok = s.Bucket != nil && s.Bucket.Name != ""
		case "serpWowIamUser":
			ok = s.SerpWowIAMUser != nil && s.SerpWowIAMUser.Name != ""
		case "accessKey":
			ok = s.SerpWowIAMUser != nil && s.SerpWowIAMUser.AccessKeyID != ""
		case "serpWowAccessPolicy":
			ok = s.SerpWowAccessPolicy != nil && s.SerpWowAccessPolicy.ARN != ""
		case "snowflakeAccessPolicy":
			ok = s.SnowflakeAccessPolicy != nil && s.SnowflakeAccessPolicy.ARN != ""
		case "snowflakeRole":
			ok = s.SnowflakeRole != nil && s.SnowflakeRole.Name != ""
		case "storageIntegration":
			ok = s.StorageIntegration != nil && s.StorageIntegration.Name != ""
		case "table":
			ok = s.Table != nil && s.Table.Name != "" && s.Database != "" && s.Schema != ""
		case "warehouseStage":
			ok = s.WarehouseStage != nil && s.WarehouseStage.Name != ""
		case "pipe":
			ok = s.Pipe != nil && s.Pipe.NotificationChannel != ""
		default:
			return integrityErrorf("unknown state field %s", f)
		}
		if !ok {
			return integrityErrorf("state at %s is missing %s", s.Stage, f)
		}
	}
	return nil
}

func (e *Engine) createBucket(ctx context.Context, s *ir.ProvisioningState) (*ir.ProvisioningState, error) {
	if s.Bucket == nil || strings.TrimSpace(s.Bucket.Name) == "" {
		return nil, &ValidationError{Field: "bucket name", Message: "A bucket name is required"}
	}
	name := s.Bucket.Name

	e.out.Activity("Creating S3 bucket %q", name)
	bucket, err := e.objects.CreateBucket(ctx, name)
	if err != nil {
		return nil, providerErr(s.Stage, "create bucket", err)
	}
	if bucket.Name == "" {
		bucket.Name = name
	}

	next := successor(s)
	next.Bucket = bucket
	return next.WithResource(ir.ResourceRecord{Source: ir.SourceAWS, Type: ir.TypeBucket, ID: bucket.Name}), nil
}

func (e *Engine) createUploadUser(ctx context.Context, s *ir.ProvisioningState) (*ir.ProvisioningState, error) {
	if err := requireFields(s, "bucket"); err != nil {
		return nil, err
	}

	e.out.Activity("Creating IAM user %q for SerpWow uploads", e.names.UploadUser)
	user, err := e.identity.CreateUser(ctx, e.names.UploadUser)
	if err != nil {
		return nil, providerErr(s.Stage, "create IAM user", err)
	}

	next := successor(s)
	next.SerpWowIAMUser = user
	return next.WithResource(ir.ResourceRecord{Source: ir.SourceAWS, Type: ir.TypeIAMUser, ID: user.Name}), nil
}

func (e *Engine) createWritePolicy(ctx context.Context, s *ir.ProvisioningState) (*ir.ProvisioningState, error) {
	if err := requireFields(s, "bucket", "serpWowIamUser"); err != nil {
		return nil, err
	}
	bucket := s.Bucket.Name

	e.out.Activity("Creating IAM policy %q", e.names.WritePolicy)
	policy, err := e.identity.CreatePolicy(ctx, e.names.WritePolicy,
		fmt.Sprintf("Allow writing objects to S3 bucket %s.", bucket),
		awsprovider.WriterPolicy(bucket).String())
	if err != nil {
		return nil, providerErr(s.Stage, "create IAM policy", err)
	}

	next := successor(s)
	next.SerpWowAccessPolicy = policy
	return next.WithResource(ir.ResourceRecord{Source: ir.SourceAWS, Type: ir.TypeIAMPolicy, ID: policy.ARN}), nil
}

func (e *Engine) attachWritePolicy(ctx context.Context, s *ir.ProvisioningState) (*ir.ProvisioningState, error) {
	if err := requireFields(s, "serpWowIamUser", "serpWowAccessPolicy"); err != nil {
		return nil, err
	}

	e.out.Activity("Attaching policy %q to user %q", s.SerpWowAccessPolicy.Name, s.SerpWowIAMUser.Name)
	if err := e.identity.AttachPolicyToUser(ctx, s.SerpWowAccessPolicy.ARN, s.SerpWowIAMUser.Name); err != nil {
		return nil, providerErr(s.Stage, "attach IAM policy to user", err)
	}
	return successor(s), nil
}

// createAccessKey does not wait for the key to propagate. The first call
// that uses it, creating the destination, retries instead.
func (e *Engine) createAccessKey(ctx context.Context, s *ir.ProvisioningState) (*ir.ProvisioningState, error) {
	if err := requireFields(s, "serpWowIamUser"); err != nil {
		return nil, err
	}

	e.out.Activity("Creating access key for user %q", s.SerpWowIAMUser.Name)
	key, err := e.identity.CreateAccessKey(ctx, s.SerpWowIAMUser.Name)
	if err != nil {
		return nil, providerErr(s.Stage, "create access key", err)
	}

	next := successor(s)
	next.SerpWowIAMUser.AccessKeyID = key.AccessKeyID
	next.SerpWowIAMUser.SecretAccessKey = key.SecretAccessKey
	return next, nil
}

func (e *Engine) createReadPolicy(ctx context.Context, s *ir.ProvisioningState) (*ir.ProvisioningState, error) {
	if err := requireFields(s, "bucket"); err != nil {
		return nil, err
	}
	bucket := s.Bucket.Name

	e.out.Activity("Creating IAM policy %q", e.names.ReadPolicy)
	policy, err := e.identity.CreatePolicy(ctx, e.names.ReadPolicy,
		fmt.Sprintf("Allow to list and read objects from S3 bucket %s.", bucket),
		awsprovider.ReaderPolicy(bucket).String())
	if err != nil {
		return nil, providerErr(s.Stage, "create IAM policy", err)
	}

	next := successor(s)
	next.SnowflakeAccessPolicy = policy
	return next.WithResource(ir.ResourceRecord{Source: ir.SourceAWS, Type: ir.TypeIAMPolicy, ID: policy.ARN}), nil
}

func (e *Engine) createRole(ctx context.Context, s *ir.ProvisioningState) (*ir.ProvisioningState, error) {
	if e.accountID == "" {
		return nil, &ValidationError{Field: "AWS account id", Message: "Save AWS credentials with an account id then try again"}
	}

	e.out.Activity("Creating IAM role %q", e.names.SnowflakeRole)
	role, err := e.identity.CreateRole(ctx, e.names.SnowflakeRole, awsprovider.PlaceholderTrustPolicy(e.accountID).String())
	if err != nil {
		return nil, providerErr(s.Stage, "create IAM role", err)
	}

	next := successor(s)
	next.SnowflakeRole = role
	return next.WithResource(ir.ResourceRecord{Source: ir.SourceAWS, Type: ir.TypeIAMRole, ID: role.Name}), nil
}

func (e *Engine) attachReadPolicy(ctx context.Context, s *ir.ProvisioningState) (*ir.ProvisioningState, error) {
	if err := requireFields(s, "snowflakeAccessPolicy", "snowflakeRole"); err != nil {
		return nil, err
	}

	e.out.Activity("Attaching policy %q to role %q", s.SnowflakeAccessPolicy.Name, s.SnowflakeRole.Name)
	if err := e.identity.AttachPolicyToRole(ctx, s.SnowflakeAccessPolicy.ARN, s.SnowflakeRole.Name); err != nil {
		return nil, providerErr(s.Stage, "attach IAM policy to role", err)
	}
	return successor(s), nil
}

func (e *Engine) createDestination(ctx context.Context, s *ir.ProvisioningState) (*ir.ProvisioningState, error) {
	if err := requireFields(s, "bucket", "accessKey"); err != nil {
		return nil, err
	}

	opts := serpwow.DestinationOptions{
		Name:            e.names.Destination,
		BucketName:      s.Bucket.Name,
		AccessKeyID:     s.SerpWowIAMUser.AccessKeyID,
		SecretAccessKey: s.SerpWowIAMUser.SecretAccessKey,
	}

	e.out.Activity("Creating SerpWow destination %q", opts.Name)
	var dest *ir.Destination
	err := RetryWithBackoff(ctx, e.propagation, func() error {
		d, err := e.destinations.CreateDestination(ctx, opts)
		if err != nil {
			return err
		}
		dest = d
		return nil
	}, invalidAccessKey)
	if err != nil {
		return nil, providerErr(s.Stage, "create destination", err)
	}

	next := successor(s)
	next.Destination = dest
	return next.WithResource(ir.ResourceRecord{Source: ir.SourceSerpWow, Type: ir.TypeDestination, ID: dest.ID}), nil
}

func (e *Engine) createStorageIntegration(ctx context.Context, s *ir.ProvisioningState) (*ir.ProvisioningState, error) {
	if err := requireFields(s, "bucket", "snowflakeRole"); err != nil {
		return nil, err
	}

	e.out.Activity("Creating Snowflake storage integration %q", e.names.StorageIntegration)
	integration, err := e.warehouse.CreateStorageIntegration(ctx, e.names.StorageIntegration, s.Bucket.Name, s.SnowflakeRole.ARN)
	if err != nil {
		return nil, providerErr(s.Stage, "create storage integration", err)
	}

	next := successor(s)
	next.StorageIntegration = integration
	return next.WithResource(ir.ResourceRecord{Source: ir.SourceSnowflake, Type: ir.TypeStorageIntegration, ID: integration.Name}), nil
}

func (e *Engine) updateRoleTrust(ctx context.Context, s *ir.ProvisioningState) (*ir.ProvisioningState, error) {
	if err := requireFields(s, "snowflakeRole", "storageIntegration"); err != nil {
		return nil, err
	}
	si := s.StorageIntegration

	e.out.Activity("Allowing Snowflake to assume role %q", s.SnowflakeRole.Name)
	doc := awsprovider.StorageIntegrationTrustPolicy(si.AWSUserARN, si.AWSExternalID).String()
	if err := e.identity.UpdateRoleTrustPolicy(ctx, s.SnowflakeRole.Name, doc); err != nil {
		return nil, providerErr(s.Stage, "update role trust policy", err)
	}
	return successor(s), nil
}

func (e *Engine) createTable(ctx context.Context, s *ir.ProvisioningState) (*ir.ProvisioningState, error) {
	database, err := e.askIdentifier("Enter the Snowflake database where results will be loaded:", "database")
	if err != nil {
		return nil, err
	}
	schema, err := e.askIdentifier("Enter the Snowflake schema where results will be loaded:", "schema")
	if err != nil {
		return nil, err
	}

	name := snowflake.QualifiedName(database, schema, e.names.Table)
	e.out.Activity("Creating Snowflake table %s", name)
	table, err := e.warehouse.CreateTable(ctx, name)
	if err != nil {
		return nil, providerErr(s.Stage, "create table", err)
	}

	next := successor(s)
	next.Database = database
	next.Schema = schema
	next.Table = table
	return next.WithResource(ir.ResourceRecord{Source: ir.SourceSnowflake, Type: ir.TypeTable, ID: table.Name}), nil
}

func (e *Engine) askIdentifier(title, field string) (string, error) {
	v, err := e.prompt.Input(title, "")
	if err != nil {
		return "", err
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", &ValidationError{Field: field, Message: fmt.Sprintf("A %s name is required", field)}
	}
	if !snowflake.ValidIdentifier(v) {
		return "", &ValidationError{Field: field, Message: fmt.Sprintf("%q is not a valid %s name", v, field)}
	}
	return v, nil
}

func (e *Engine) createStage(ctx context.Context, s *ir.ProvisioningState) (*ir.ProvisioningState, error) {
	if err := requireFields(s, "bucket", "storageIntegration", "table"); err != nil {
		return nil, err
	}

	name := snowflake.QualifiedName(s.Database, s.Schema, e.names.WarehouseStage)
	e.out.Activity("Creating Snowflake stage %s", name)
	stage, err := e.warehouse.CreateStage(ctx, name, s.Bucket.Name, s.StorageIntegration.Name)
	if err != nil {
		return nil, providerErr(s.Stage, "create stage", err)
	}

	next := successor(s)
	next.WarehouseStage = stage
	return next.WithResource(ir.ResourceRecord{Source: ir.SourceSnowflake, Type: ir.TypeStage, ID: stage.Name}), nil
}

func (e *Engine) createPipe(ctx context.Context, s *ir.ProvisioningState) (*ir.ProvisioningState, error) {
	if err := requireFields(s, "table", "warehouseStage"); err != nil {
		return nil, err
	}

	name := snowflake.QualifiedName(s.Database, s.Schema, e.names.Pipe)
	e.out.Activity("Creating Snowflake pipe %s", name)
	pipe, err := e.warehouse.CreatePipe(ctx, name, s.Table.Name, s.WarehouseStage.Name)
	if err != nil {
		return nil, providerErr(s.Stage, "create pipe", err)
	}

	next := successor(s)
	next.Pipe = pipe
	return next.WithResource(ir.ResourceRecord{Source: ir.SourceSnowflake, Type: ir.TypePipe, ID: pipe.Name}), nil
}

func (e *Engine) createEventNotification(ctx context.Context, s *ir.ProvisioningState) (*ir.ProvisioningState, error) {
	if err := requireFields(s, "bucket", "pipe"); err != nil {
		return nil, err
	}

	e.out.Activity("Creating event notification on bucket %q", s.Bucket.Name)
	if err := e.objects.CreateEventNotification(ctx, s.Bucket.Name, s.Pipe.NotificationChannel); err != nil {
		return nil, providerErr(s.Stage, "create event notification", err)
	}
	return successor(s), nil
}

func (e *Engine) complete(_ context.Context, s *ir.ProvisioningState) (*ir.ProvisioningState, error) {
	e.out.Success("Setup completed successfully")
	e.out.Activity("Created resources:\n%s", strings.TrimSuffix(ir.FormatLedger(s.Ledger()), "\n"))
	return s, nil
}
