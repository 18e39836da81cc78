package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"

	"github.com/picklr-io/serp2snow/internal/ir"
	"github.com/picklr-io/serp2snow/providers/serpwow"
	"github.com/picklr-io/serp2snow/providers/snowflake"
)

func awsError(code string) error {
	return providerErr(ir.StageInitialInput, "op", &smithy.GenericAPIError{Code: code, Message: code})
}

func sqlError(state string) error {
	return &snowflake.QueryError{State: state, Err: errors.New("sql failed")}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		stage ir.Stage
		err   error
		want  string
	}{
		{"invalid bucket name", ir.StageInitialInput, awsError("InvalidBucketName"), "Try again with a valid bucket name"},
		{"bucket taken", ir.StageInitialInput, awsError("BucketAlreadyExists"), "Either delete the existing bucket or choose a unique name then try again"},
		{"bucket owned", ir.StageInitialInput, awsError("BucketAlreadyOwnedByYou"), "Either delete the existing bucket or choose a unique name then try again"},
		{"user exists", ir.StageBucketCreated, awsError("EntityAlreadyExists"), "Delete the IAM user from AWS then try again"},
		{"write policy exists", ir.StageSerpWowUserCreated, awsError("EntityAlreadyExists"), "Delete the IAM policy from AWS then try again"},
		{"read policy exists", ir.StageSerpWowUserKeyCreated, awsError("EntityAlreadyExists"), "Delete the IAM policy from AWS then try again"},
		{"role exists", ir.StageSnowflakePolicyCreated, awsError("EntityAlreadyExistsException"), "Delete the IAM role from AWS then try again"},
		{"aws access denied", ir.StageSnowflakeRoleCreated, awsError("AccessDenied"), MsgAWSPermissions},
		{"access denied outside aws", ir.StageDestinationCreated, awsError("AccessDenied"), MsgGeneric},
		{"key not propagated", ir.StageSnowflakePolicyAttached, &serpwow.APIError{StatusCode: 400, Message: "Invalid access key supplied"}, "The new AWS access key has not propagated yet; wait a few minutes then try again"},
		{"integration exists", ir.StageDestinationCreated, sqlError("42710"), "Drop the storage integration from Snowflake then try again"},
		{"table exists", ir.StageSnowflakeRoleUpdated, fmt.Errorf("wrapped: %w", sqlError("42710")), "Drop the table from Snowflake then try again"},
		{"stage exists", ir.StageTableCreated, sqlError("42710"), "Drop the stage from Snowflake then try again"},
		{"pipe exists", ir.StageStageCreated, sqlError("42710"), "Drop the pipe from Snowflake then try again"},
		{"missing schema", ir.StageTableCreated, sqlError("02000"), "Verify the database and schema exist and the Snowflake role can use them then try again"},
		{"unrelated sql state", ir.StageStageCreated, sqlError("42601"), MsgGeneric},
		{"validation", ir.StageSnowflakeRoleUpdated, &ValidationError{Field: "schema", Message: "A schema name is required"}, "A schema name is required"},
		{"cancelled", ir.StageSnowflakeRoleUpdated, fmt.Errorf("prompt: %w", context.Canceled), MsgCancelled},
		{"unknown", ir.StagePipeCreated, errors.New("boom"), MsgGeneric},
		{"nil", ir.StagePipeCreated, nil, MsgGeneric},
		{"invalid stage", ir.Stage(42), errors.New("boom"), MsgGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.stage, tt.err))
		})
	}
}

func TestClassify_RuleOnlyAppliesToItsStage(t *testing.T) {
	assert.Equal(t, MsgGeneric, Classify(ir.StagePipeCreated, sqlError("42710")))
	assert.Equal(t, MsgAWSPermissions, Classify(ir.StageBucketCreated, awsError("AccessDenied")))
}
