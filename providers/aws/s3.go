package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/arn"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/picklr-io/serp2snow/internal/ir"
)

const (
	notificationID     = "notify-snowflake-auto-ingest-pipe"
	notificationSuffix = ".json"
)

// CreateBucket creates the results bucket in the provider's region.
func (p *Provider) CreateBucket(ctx context.Context, name string) (*ir.Bucket, error) {
	input := &s3.CreateBucketInput{
		Bucket: aws.String(name),
	}
	// us-east-1 rejects an explicit location constraint.
	if p.region != "" && p.region != DefaultRegion {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(p.region),
		}
	}

	out, err := p.s3Client.CreateBucket(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to create bucket %s: %w", name, err)
	}

	return &ir.Bucket{
		Name:     name,
		Location: aws.ToString(out.Location),
	}, nil
}

// CreateEventNotification routes "object created" events for JSON result
// files to the queue behind a Snowflake auto-ingest pipe.
func (p *Provider) CreateEventNotification(ctx context.Context, bucketName, queueARN string) error {
	if _, err := arn.Parse(queueARN); err != nil {
		return fmt.Errorf("invalid notification queue ARN %q: %w", queueARN, err)
	}

	_, err := p.s3Client.PutBucketNotificationConfiguration(ctx, &s3.PutBucketNotificationConfigurationInput{
		Bucket: aws.String(bucketName),
		NotificationConfiguration: &types.NotificationConfiguration{
			QueueConfigurations: []types.QueueConfiguration{
				{
					Id:       aws.String(notificationID),
					Events:   []types.Event{"s3:ObjectCreated:*"},
					QueueArn: aws.String(queueARN),
					Filter: &types.NotificationConfigurationFilter{
						Key: &types.S3KeyFilter{
							FilterRules: []types.FilterRule{
								{Name: types.FilterRuleNameSuffix, Value: aws.String(notificationSuffix)},
							},
						},
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create event notification on bucket %s: %w", bucketName, err)
	}
	return nil
}
