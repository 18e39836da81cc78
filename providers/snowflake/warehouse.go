package snowflake

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/picklr-io/serp2snow/internal/ir"
)

const (
	propIAMUserARN  = "STORAGE_AWS_IAM_USER_ARN"
	propExternalID  = "STORAGE_AWS_EXTERNAL_ID"
	colNotification = "notification_channel"
)

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

// ValidIdentifier reports whether name can be used unquoted as a database or
// schema name.
func ValidIdentifier(name string) bool {
	return identifierRe.MatchString(name)
}

// QualifiedName joins database, schema and object name.
func QualifiedName(database, schema, name string) string {
	return strings.Join([]string{database, schema, name}, ".")
}

// CreateStorageIntegration creates an S3 storage integration that assumes
// roleARN, then reads back the IAM user and external id Snowflake will use.
func (c *Client) CreateStorageIntegration(ctx context.Context, name, bucketName, roleARN string) (*ir.StorageIntegration, error) {
	stmt, err := render(createIntegrationTmpl, statementArgs{Name: name, Bucket: bucketName, RoleARN: roleARN})
	if err != nil {
		return nil, err
	}
	if _, err := c.Execute(ctx, stmt); err != nil {
		return nil, fmt.Errorf("failed to create storage integration %s: %w", name, err)
	}

	rows, err := c.Execute(ctx, "DESC INTEGRATION "+name)
	if err != nil {
		return nil, incomplete(ir.TypeStorageIntegration, name,
			fmt.Errorf("failed to describe storage integration %s: %w", name, err))
	}

	integration := &ir.StorageIntegration{Name: name}
	for _, row := range rows {
		switch row["property"] {
		case propIAMUserARN:
			integration.AWSUserARN = row["property_value"]
		case propExternalID:
			integration.AWSExternalID = row["property_value"]
		}
	}
	if integration.AWSUserARN == "" || integration.AWSExternalID == "" {
		return nil, incomplete(ir.TypeStorageIntegration, name,
			fmt.Errorf("storage integration %s did not report %s and %s", name, propIAMUserARN, propExternalID))
	}
	return integration, nil
}

func (c *Client) CreateTable(ctx context.Context, name string) (*ir.Table, error) {
	stmt, err := render(createTableTmpl, statementArgs{Name: name})
	if err != nil {
		return nil, err
	}
	if _, err := c.Execute(ctx, stmt); err != nil {
		return nil, fmt.Errorf("failed to create table %s: %w", name, err)
	}
	return &ir.Table{Name: name}, nil
}

// CreateStage creates an external JSON stage over the bucket.
func (c *Client) CreateStage(ctx context.Context, name, bucketName, integration string) (*ir.WarehouseStage, error) {
	stmt, err := render(createStageTmpl, statementArgs{Name: name, Bucket: bucketName, Integration: integration})
	if err != nil {
		return nil, err
	}
	if _, err := c.Execute(ctx, stmt); err != nil {
		return nil, fmt.Errorf("failed to create stage %s: %w", name, err)
	}
	return &ir.WarehouseStage{Name: name}, nil
}

// CreatePipe creates an auto-ingest pipe copying from stage into table and
// returns the queue ARN that bucket notifications must target.
func (c *Client) CreatePipe(ctx context.Context, name, table, stage string) (*ir.Pipe, error) {
	stmt, err := render(createPipeTmpl, statementArgs{Name: name, Table: table, Stage: stage})
	if err != nil {
		return nil, err
	}
	if _, err := c.Execute(ctx, stmt); err != nil {
		return nil, fmt.Errorf("failed to create pipe %s: %w", name, err)
	}

	rows, err := c.Execute(ctx, "DESCRIBE PIPE "+name)
	if err != nil {
		return nil, incomplete(ir.TypePipe, name, fmt.Errorf("failed to describe pipe %s: %w", name, err))
	}
	if len(rows) == 0 || rows[0][colNotification] == "" {
		return nil, incomplete(ir.TypePipe, name, fmt.Errorf("pipe %s did not report a notification channel", name))
	}
	return &ir.Pipe{Name: name, NotificationChannel: rows[0][colNotification]}, nil
}

// incomplete marks an object that exists in Snowflake although the step
// creating it failed.
func incomplete(typ, name string, err error) error {
	return &ir.IncompleteCreateError{
		Resource: ir.ResourceRecord{Source: ir.SourceSnowflake, Type: typ, ID: name},
		Err:      err,
	}
}

// CreateView creates the secure view that flattens SERP features of table
// into one row per result.
func (c *Client) CreateView(ctx context.Context, name, table string) error {
	stmt, err := render(createViewTmpl, statementArgs{Name: name, Table: table})
	if err != nil {
		return err
	}
	if _, err := c.Execute(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create view %s: %w", name, err)
	}
	return nil
}
