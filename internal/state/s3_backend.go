package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/picklr-io/serp2snow/internal/config"
	"github.com/picklr-io/serp2snow/internal/ir"
)

// s3Backend keeps the state record as a JSON object in S3, with optional
// DynamoDB locking for installations that share one remote slot.
type s3Backend struct {
	bucket        string
	key           string
	region        string
	dynamoDBTable string
	profile       string

	s3Client *s3.Client
	dbClient *dynamodb.Client
	lockID   string
}

func newS3Backend(cfg *config.StoreConfig) (*s3Backend, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 store requires 'bucket' configuration")
	}

	b := &s3Backend{
		bucket:        cfg.Bucket,
		key:           cfg.Key,
		region:        cfg.Region,
		dynamoDBTable: cfg.DynamoDBTable,
		profile:       cfg.Profile,
	}
	if b.key == "" {
		b.key = config.AppName + "/state.json"
	}
	if b.region == "" {
		b.region = "us-east-1"
	}

	if err := b.initClients(); err != nil {
		return nil, fmt.Errorf("failed to initialize S3 store: %w", err)
	}
	return b, nil
}

func (b *s3Backend) initClients() error {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(b.region)}
	if b.profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(b.profile))
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return fmt.Errorf("unable to load AWS config: %w", err)
	}

	b.s3Client = s3.NewFromConfig(cfg)
	if b.dynamoDBTable != "" {
		b.dbClient = dynamodb.NewFromConfig(cfg)
	}
	return nil
}

func (b *s3Backend) Get(ctx context.Context) (*ir.ProvisioningState, error) {
	result, err := b.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read setup progress from s3://%s/%s: %w", b.bucket, b.key, err)
	}
	defer result.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(result.Body); err != nil {
		return nil, fmt.Errorf("failed to read S3 object body: %w", err)
	}

	content, err := Decrypt(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt remote setup progress: %w", err)
	}

	var st ir.ProvisioningState
	if err := json.Unmarshal(content, &st); err != nil {
		return nil, fmt.Errorf("failed to parse remote setup progress: %w", err)
	}
	return &st, nil
}

func (b *s3Backend) Set(ctx context.Context, state *ir.ProvisioningState) error {
	if state == nil {
		return fmt.Errorf("refusing to persist nil state")
	}
	content, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode setup progress: %w", err)
	}
	content, err = Encrypt(content)
	if err != nil {
		return fmt.Errorf("failed to encrypt setup progress: %w", err)
	}

	_, err = b.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(b.key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to write setup progress to s3://%s/%s: %w", b.bucket, b.key, err)
	}
	return nil
}

func (b *s3Backend) Clear(ctx context.Context) error {
	_, err := b.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key),
	})
	if err != nil && !isNoSuchKey(err) {
		return fmt.Errorf("failed to clear setup progress at s3://%s/%s: %w", b.bucket, b.key, err)
	}
	return nil
}

func (b *s3Backend) Lock(ctx context.Context) error {
	if b.dbClient == nil {
		return nil
	}

	b.lockID = fmt.Sprintf("%s-%d-%d", config.AppName, os.Getpid(), time.Now().UnixNano())

	_, err := b.dbClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(b.dynamoDBTable),
		Item: map[string]dbtypes.AttributeValue{
			"LockID":  &dbtypes.AttributeValueMemberS{Value: b.key},
			"Info":    &dbtypes.AttributeValueMemberS{Value: b.lockID},
			"Created": &dbtypes.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
		ConditionExpression: aws.String("attribute_not_exists(LockID)"),
	})
	if err != nil {
		var ccf *dbtypes.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("%w. If this is an error, manually delete the item with LockID=%q from DynamoDB table %q",
				ErrLocked, b.key, b.dynamoDBTable)
		}
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	return nil
}

// Unlock deletes the lock item only while it still carries this run's id.
func (b *s3Backend) Unlock(ctx context.Context) error {
	if b.dbClient == nil || b.lockID == "" {
		return nil
	}

	_, err := b.dbClient.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(b.dynamoDBTable),
		Key: map[string]dbtypes.AttributeValue{
			"LockID": &dbtypes.AttributeValueMemberS{Value: b.key},
		},
		ConditionExpression: aws.String("Info = :info"),
		ExpressionAttributeValues: map[string]dbtypes.AttributeValue{
			":info": &dbtypes.AttributeValueMemberS{Value: b.lockID},
		},
	})
	b.lockID = ""
	if err != nil {
		var ccf *dbtypes.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil
		}
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

func isNoSuchKey(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
