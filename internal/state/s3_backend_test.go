package state

import (
	"errors"
	"testing"

	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/picklr-io/serp2snow/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewS3BackendRequiresBucket(t *testing.T) {
	_, err := newS3Backend(&config.StoreConfig{Backend: "s3"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket")
}

func TestNewS3BackendDefaults(t *testing.T) {
	b, err := newS3Backend(&config.StoreConfig{Backend: "s3", Bucket: "my-bucket"})
	// May fail on AWS config load in CI without a usable environment.
	if err != nil {
		t.Skipf("Skipping S3 store test (no AWS config): %v", err)
	}
	assert.Equal(t, "my-bucket", b.bucket)
	assert.Equal(t, "serp2snow/state.json", b.key)
	assert.Equal(t, "us-east-1", b.region)
	assert.Nil(t, b.dbClient)
}

func TestNewS3BackendCustomConfig(t *testing.T) {
	b, err := newS3Backend(&config.StoreConfig{
		Backend:       "s3",
		Bucket:        "custom-bucket",
		Key:           "teams/data/state.json",
		Region:        "eu-west-1",
		DynamoDBTable: "serp2snow-locks",
		Profile:       "staging",
	})
	if err != nil {
		t.Skipf("Skipping S3 store test (no AWS config): %v", err)
	}
	assert.Equal(t, "custom-bucket", b.bucket)
	assert.Equal(t, "teams/data/state.json", b.key)
	assert.Equal(t, "eu-west-1", b.region)
	assert.Equal(t, "serp2snow-locks", b.dynamoDBTable)
	assert.NotNil(t, b.dbClient)
}

func TestIsNoSuchKey(t *testing.T) {
	assert.True(t, isNoSuchKey(&s3types.NoSuchKey{}))
	assert.True(t, isNoSuchKey(&smithy.GenericAPIError{Code: "NotFound"}))
	assert.False(t, isNoSuchKey(&smithy.GenericAPIError{Code: "AccessDenied"}))
	assert.False(t, isNoSuchKey(errors.New("boom")))
}
