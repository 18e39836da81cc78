package aws

import (
	"encoding/json"
	"fmt"
)

const policyVersion = "2012-10-17"

// PolicyDocument is an IAM policy or trust policy.
type PolicyDocument struct {
	Version   string      `json:"Version"`
	Statement []Statement `json:"Statement"`
}

type Statement struct {
	Effect    string                       `json:"Effect"`
	Action    any                          `json:"Action"`
	Resource  string                       `json:"Resource,omitempty"`
	Principal map[string]string            `json:"Principal,omitempty"`
	Condition map[string]map[string]string `json:"Condition,omitempty"`
}

func (d PolicyDocument) String() string {
	out, err := json.Marshal(d)
	if err != nil {
		// Every field is a string, slice of strings or map of strings.
		panic(fmt.Sprintf("aws: policy document is not serializable: %v", err))
	}
	return string(out)
}

// WriterPolicy lets the upload user put and delete result objects.
func WriterPolicy(bucketName string) PolicyDocument {
	return PolicyDocument{
		Version: policyVersion,
		Statement: []Statement{
			{
				Effect:   "Allow",
				Action:   []string{"s3:PutObject", "s3:DeleteObject"},
				Resource: objectsARN(bucketName),
			},
		},
	}
}

// ReaderPolicy lets Snowflake list the bucket and read result objects.
func ReaderPolicy(bucketName string) PolicyDocument {
	return PolicyDocument{
		Version: policyVersion,
		Statement: []Statement{
			{
				Effect:   "Allow",
				Action:   []string{"s3:GetObject", "s3:GetObjectVersion"},
				Resource: objectsARN(bucketName),
			},
			{
				Effect:   "Allow",
				Action:   []string{"s3:ListBucket", "s3:GetBucketLocation"},
				Resource: bucketARN(bucketName),
			},
		},
	}
}

// PlaceholderTrustPolicy lets only the owning account assume the role. It is
// replaced once Snowflake has told us which principal it assumes the role as.
func PlaceholderTrustPolicy(accountID string) PolicyDocument {
	return PolicyDocument{
		Version: policyVersion,
		Statement: []Statement{
			{
				Effect:    "Allow",
				Action:    "sts:AssumeRole",
				Principal: map[string]string{"AWS": accountID},
			},
		},
	}
}

// StorageIntegrationTrustPolicy lets the Snowflake storage integration user
// assume the role with its external id.
func StorageIntegrationTrustPolicy(userARN, externalID string) PolicyDocument {
	return PolicyDocument{
		Version: policyVersion,
		Statement: []Statement{
			{
				Effect:    "Allow",
				Action:    "sts:AssumeRole",
				Principal: map[string]string{"AWS": userARN},
				Condition: map[string]map[string]string{
					"StringEquals": {"sts:ExternalId": externalID},
				},
			},
		},
	}
}

func bucketARN(bucketName string) string {
	return "arn:aws:s3:::" + bucketName
}

func objectsARN(bucketName string) string {
	return bucketARN(bucketName) + "/*"
}
