package engine

import (
	"context"

	"github.com/picklr-io/serp2snow/internal/ir"
	"github.com/picklr-io/serp2snow/providers/serpwow"
)

// ObjectStore creates the results bucket and routes its events.
type ObjectStore interface {
	CreateBucket(ctx context.Context, name string) (*ir.Bucket, error)
	CreateEventNotification(ctx context.Context, bucketName, queueARN string) error
}

// Identity manages the IAM principals of the pipeline.
type Identity interface {
	CreateUser(ctx context.Context, name string) (*ir.IAMUser, error)
	CreatePolicy(ctx context.Context, name, description, document string) (*ir.IAMPolicy, error)
	CreateRole(ctx context.Context, name, trustDocument string) (*ir.IAMRole, error)
	AttachPolicyToUser(ctx context.Context, policyARN, userName string) error
	AttachPolicyToRole(ctx context.Context, policyARN, roleName string) error
	CreateAccessKey(ctx context.Context, userName string) (*ir.AccessKey, error)
	UpdateRoleTrustPolicy(ctx context.Context, roleName, document string) error
}

// Warehouse creates the Snowflake objects of the ingestion path.
type Warehouse interface {
	CreateStorageIntegration(ctx context.Context, name, bucketName, roleARN string) (*ir.StorageIntegration, error)
	CreateTable(ctx context.Context, name string) (*ir.Table, error)
	CreateStage(ctx context.Context, name, bucketName, integration string) (*ir.WarehouseStage, error)
	CreatePipe(ctx context.Context, name, table, stage string) (*ir.Pipe, error)
}

// Destinations registers where SerpWow delivers results.
type Destinations interface {
	CreateDestination(ctx context.Context, opts serpwow.DestinationOptions) (*ir.Destination, error)
}

// Prompter asks the operator for input. An operator abort is reported as an
// error wrapping context.Canceled.
type Prompter interface {
	Input(title, description string) (string, error)
	Confirm(title, description string) (bool, error)
}

// Reporter shows progress to the operator.
type Reporter interface {
	Activity(format string, args ...any)
	Success(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}
