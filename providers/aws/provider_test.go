package aws

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	createInput *s3.CreateBucketInput
	notifyInput *s3.PutBucketNotificationConfigurationInput
	err         error
}

func (f *fakeS3) CreateBucket(_ context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.createInput = in
	if f.err != nil {
		return nil, f.err
	}
	return &s3.CreateBucketOutput{Location: aws.String("/" + aws.ToString(in.Bucket))}, nil
}

func (f *fakeS3) PutBucketNotificationConfiguration(_ context.Context, in *s3.PutBucketNotificationConfigurationInput, _ ...func(*s3.Options)) (*s3.PutBucketNotificationConfigurationOutput, error) {
	f.notifyInput = in
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutBucketNotificationConfigurationOutput{}, nil
}

type fakeIAM struct {
	calls []string
	err   error
	trust string
}

func (f *fakeIAM) CreateUser(_ context.Context, in *iam.CreateUserInput, _ ...func(*iam.Options)) (*iam.CreateUserOutput, error) {
	f.calls = append(f.calls, "CreateUser")
	if f.err != nil {
		return nil, f.err
	}
	return &iam.CreateUserOutput{User: &iamtypes.User{UserName: in.UserName}}, nil
}

func (f *fakeIAM) CreatePolicy(_ context.Context, in *iam.CreatePolicyInput, _ ...func(*iam.Options)) (*iam.CreatePolicyOutput, error) {
	f.calls = append(f.calls, "CreatePolicy")
	if f.err != nil {
		return nil, f.err
	}
	return &iam.CreatePolicyOutput{Policy: &iamtypes.Policy{
		PolicyName: in.PolicyName,
		Arn:        aws.String("arn:aws:iam::123456789012:policy/" + aws.ToString(in.PolicyName)),
	}}, nil
}

func (f *fakeIAM) CreateRole(_ context.Context, in *iam.CreateRoleInput, _ ...func(*iam.Options)) (*iam.CreateRoleOutput, error) {
	f.calls = append(f.calls, "CreateRole")
	f.trust = aws.ToString(in.AssumeRolePolicyDocument)
	if f.err != nil {
		return nil, f.err
	}
	return &iam.CreateRoleOutput{Role: &iamtypes.Role{
		RoleName: in.RoleName,
		Arn:      aws.String("arn:aws:iam::123456789012:role/" + aws.ToString(in.RoleName)),
	}}, nil
}

func (f *fakeIAM) AttachUserPolicy(_ context.Context, _ *iam.AttachUserPolicyInput, _ ...func(*iam.Options)) (*iam.AttachUserPolicyOutput, error) {
	f.calls = append(f.calls, "AttachUserPolicy")
	return &iam.AttachUserPolicyOutput{}, f.err
}

func (f *fakeIAM) AttachRolePolicy(_ context.Context, _ *iam.AttachRolePolicyInput, _ ...func(*iam.Options)) (*iam.AttachRolePolicyOutput, error) {
	f.calls = append(f.calls, "AttachRolePolicy")
	return &iam.AttachRolePolicyOutput{}, f.err
}

func (f *fakeIAM) CreateAccessKey(_ context.Context, in *iam.CreateAccessKeyInput, _ ...func(*iam.Options)) (*iam.CreateAccessKeyOutput, error) {
	f.calls = append(f.calls, "CreateAccessKey")
	if f.err != nil {
		return nil, f.err
	}
	return &iam.CreateAccessKeyOutput{AccessKey: &iamtypes.AccessKey{
		UserName:        in.UserName,
		AccessKeyId:     aws.String("AKIATEST"),
		SecretAccessKey: aws.String("secret"),
	}}, nil
}

func (f *fakeIAM) UpdateAssumeRolePolicy(_ context.Context, in *iam.UpdateAssumeRolePolicyInput, _ ...func(*iam.Options)) (*iam.UpdateAssumeRolePolicyOutput, error) {
	f.calls = append(f.calls, "UpdateAssumeRolePolicy")
	f.trust = aws.ToString(in.PolicyDocument)
	return &iam.UpdateAssumeRolePolicyOutput{}, f.err
}

type fakeSTS struct{}

func (fakeSTS) GetCallerIdentity(_ context.Context, _ *sts.GetCallerIdentityInput, _ ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	return &sts.GetCallerIdentityOutput{
		Account: aws.String("123456789012"),
		Arn:     aws.String("arn:aws:iam::123456789012:user/admin"),
	}, nil
}

func newTestProvider(region string) (*Provider, *fakeS3, *fakeIAM) {
	s3c := &fakeS3{}
	iamc := &fakeIAM{}
	return &Provider{region: region, s3Client: s3c, iamClient: iamc, stsClient: fakeSTS{}}, s3c, iamc
}

func TestNew_RequiresKeys(t *testing.T) {
	_, err := New(context.Background(), Options{AccessKeyID: "AKIA"})
	assert.Error(t, err)
}

func TestCreateBucket(t *testing.T) {
	ctx := context.Background()

	p, s3c, _ := newTestProvider(DefaultRegion)
	bucket, err := p.CreateBucket(ctx, "results")
	require.NoError(t, err)
	assert.Equal(t, "results", bucket.Name)
	assert.Equal(t, "/results", bucket.Location)
	assert.Nil(t, s3c.createInput.CreateBucketConfiguration)

	p, s3c, _ = newTestProvider("eu-west-1")
	_, err = p.CreateBucket(ctx, "results")
	require.NoError(t, err)
	require.NotNil(t, s3c.createInput.CreateBucketConfiguration)
	assert.Equal(t, types.BucketLocationConstraint("eu-west-1"), s3c.createInput.CreateBucketConfiguration.LocationConstraint)
}

func TestCreateBucket_WrapsAPIError(t *testing.T) {
	p, s3c, _ := newTestProvider(DefaultRegion)
	s3c.err = &smithy.GenericAPIError{Code: "BucketAlreadyExists", Message: "taken"}

	_, err := p.CreateBucket(context.Background(), "results")
	require.Error(t, err)
	assert.Equal(t, "BucketAlreadyExists", ErrorCode(err))
}

func TestCreateEventNotification(t *testing.T) {
	p, s3c, _ := newTestProvider(DefaultRegion)
	queue := "arn:aws:sqs:us-east-1:123456789012:sf-snowpipe-queue"

	require.NoError(t, p.CreateEventNotification(context.Background(), "results", queue))

	cfg := s3c.notifyInput.NotificationConfiguration
	require.Len(t, cfg.QueueConfigurations, 1)
	qc := cfg.QueueConfigurations[0]
	assert.Equal(t, notificationID, aws.ToString(qc.Id))
	assert.Equal(t, queue, aws.ToString(qc.QueueArn))
	assert.Equal(t, []types.Event{"s3:ObjectCreated:*"}, qc.Events)
	require.Len(t, qc.Filter.Key.FilterRules, 1)
	assert.Equal(t, ".json", aws.ToString(qc.Filter.Key.FilterRules[0].Value))
}

func TestCreateEventNotification_InvalidARN(t *testing.T) {
	p, s3c, _ := newTestProvider(DefaultRegion)

	err := p.CreateEventNotification(context.Background(), "results", "not-an-arn")
	require.Error(t, err)
	assert.Nil(t, s3c.notifyInput)
}

func TestIdentityCalls(t *testing.T) {
	ctx := context.Background()
	p, _, iamc := newTestProvider(DefaultRegion)

	user, err := p.CreateUser(ctx, "upload_user")
	require.NoError(t, err)
	assert.Equal(t, "upload_user", user.Name)

	policy, err := p.CreatePolicy(ctx, "write", "Allow writing.", WriterPolicy("results").String())
	require.NoError(t, err)
	assert.Equal(t, "arn:aws:iam::123456789012:policy/write", policy.ARN)

	require.NoError(t, p.AttachPolicyToUser(ctx, policy.ARN, user.Name))

	key, err := p.CreateAccessKey(ctx, user.Name)
	require.NoError(t, err)
	assert.Equal(t, "AKIATEST", key.AccessKeyID)

	role, err := p.CreateRole(ctx, "external", PlaceholderTrustPolicy("123456789012").String())
	require.NoError(t, err)
	assert.Equal(t, "external", role.Name)
	assert.Contains(t, iamc.trust, `"AWS":"123456789012"`)

	require.NoError(t, p.AttachPolicyToRole(ctx, policy.ARN, role.Name))
	require.NoError(t, p.UpdateRoleTrustPolicy(ctx, role.Name, StorageIntegrationTrustPolicy("arn:aws:iam::999:user/sf", "EXT").String()))
	assert.Contains(t, iamc.trust, `"sts:ExternalId":"EXT"`)

	assert.Equal(t, []string{
		"CreateUser", "CreatePolicy", "AttachUserPolicy", "CreateAccessKey",
		"CreateRole", "AttachRolePolicy", "UpdateAssumeRolePolicy",
	}, iamc.calls)
}

func TestCallerIdentity(t *testing.T) {
	p, _, _ := newTestProvider(DefaultRegion)
	id, err := p.CallerIdentity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "123456789012", id.Account)
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"plain", errors.New("boom"), ""},
		{"trimmed", &smithy.GenericAPIError{Code: "EntityAlreadyExistsException"}, "EntityAlreadyExists"},
		{"bare", &smithy.GenericAPIError{Code: "EntityAlreadyExists"}, "EntityAlreadyExists"},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied"}, "AccessDenied"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorCode(tt.err))
		})
	}
}

func TestPolicyDocuments(t *testing.T) {
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(ReaderPolicy("results").String()), &doc))
	assert.Equal(t, "2012-10-17", doc["Version"])

	stmts := doc["Statement"].([]any)
	require.Len(t, stmts, 2)
	assert.Equal(t, "arn:aws:s3:::results/*", stmts[0].(map[string]any)["Resource"])
	assert.Equal(t, "arn:aws:s3:::results", stmts[1].(map[string]any)["Resource"])

	assert.Equal(t,
		`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Action":["s3:PutObject","s3:DeleteObject"],"Resource":"arn:aws:s3:::results/*"}]}`,
		WriterPolicy("results").String())
	assert.Equal(t,
		`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Action":"sts:AssumeRole","Principal":{"AWS":"arn:aws:iam::1:user/sf"},"Condition":{"StringEquals":{"sts:ExternalId":"EXT"}}}]}`,
		StorageIntegrationTrustPolicy("arn:aws:iam::1:user/sf", "EXT").String())
}
