package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/picklr-io/serp2snow/internal/ir"
	awsprovider "github.com/picklr-io/serp2snow/providers/aws"
)

// Remediation messages shown when a stage fails.
const (
	MsgGeneric        = "Verify permissions and input values then try again"
	MsgAWSPermissions = "Verify permissions for AWS credentials then try again"
	MsgCancelled      = "Setup was cancelled; run setup again to resume"
)

type matcher func(err error) bool

type rule struct {
	match   matcher
	message string
}

func awsCode(codes ...string) matcher {
	return func(err error) bool {
		code := awsprovider.ErrorCode(err)
		for _, c := range codes {
			if code == c {
				return true
			}
		}
		return false
	}
}

type sqlStater interface {
	SQLState() string
}

func sqlState(state string) matcher {
	return func(err error) bool {
		var se sqlStater
		return errors.As(err, &se) && se.SQLState() == state
	}
}

func messageContains(substrings ...string) matcher {
	return func(err error) bool {
		msg := strings.ToLower(err.Error())
		for _, s := range substrings {
			if strings.Contains(msg, s) {
				return true
			}
		}
		return false
	}
}

var (
	entityExists     = awsCode("EntityAlreadyExists")
	invalidAccessKey = messageContains("invalid access key", "invalidaccesskeyid", "access key id you provided does not exist")
	objectExists     = sqlState("42710")
	objectMissing    = sqlState("02000")
	missingNamespace = rule{objectMissing, "Verify the database and schema exist and the Snowflake role can use them then try again"}
)

var rules = [ir.StageCount][]rule{
	ir.StageInitialInput: {
		{awsCode("InvalidBucketName"), "Try again with a valid bucket name"},
		{awsCode("BucketAlreadyExists", "BucketAlreadyOwnedByYou"), "Either delete the existing bucket or choose a unique name then try again"},
	},
	ir.StageBucketCreated: {
		{entityExists, "Delete the IAM user from AWS then try again"},
	},
	ir.StageSerpWowUserCreated: {
		{entityExists, "Delete the IAM policy from AWS then try again"},
	},
	ir.StageSerpWowUserKeyCreated: {
		{entityExists, "Delete the IAM policy from AWS then try again"},
	},
	ir.StageSnowflakePolicyCreated: {
		{entityExists, "Delete the IAM role from AWS then try again"},
	},
	ir.StageSnowflakePolicyAttached: {
		{invalidAccessKey, "The new AWS access key has not propagated yet; wait a few minutes then try again"},
	},
	ir.StageDestinationCreated: {
		{objectExists, "Drop the storage integration from Snowflake then try again"},
	},
	ir.StageSnowflakeRoleUpdated: {
		missingNamespace,
		{objectExists, "Drop the table from Snowflake then try again"},
	},
	ir.StageTableCreated: {
		missingNamespace,
		{objectExists, "Drop the stage from Snowflake then try again"},
	},
	ir.StageStageCreated: {
		missingNamespace,
		{objectExists, "Drop the pipe from Snowflake then try again"},
	},
}

// awsStages call AWS, so an AccessDenied there is about the AWS credentials.
var awsStages = [ir.StageCount]bool{
	ir.StageInitialInput:              true,
	ir.StageBucketCreated:             true,
	ir.StageSerpWowUserCreated:        true,
	ir.StageSerpWowPolicyCreated:      true,
	ir.StageSerpWowPolicyAttached:     true,
	ir.StageSerpWowUserKeyCreated:     true,
	ir.StageSnowflakePolicyCreated:    true,
	ir.StageSnowflakeRoleCreated:      true,
	ir.StageStorageIntegrationCreated: true,
	ir.StagePipeCreated:               true,
}

// Classify turns the failure of the step for stage into a remediation
// message for the operator. It never returns an empty string.
func Classify(stage ir.Stage, err error) string {
	if err == nil {
		return MsgGeneric
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	if errors.Is(err, context.Canceled) {
		return MsgCancelled
	}
	if !stage.Valid() {
		return MsgGeneric
	}

	for _, r := range rules[stage] {
		if r.match(err) {
			return r.message
		}
	}

	if awsStages[stage] && awsprovider.ErrorCode(err) == "AccessDenied" {
		return MsgAWSPermissions
	}
	return MsgGeneric
}
