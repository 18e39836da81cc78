package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"

	"github.com/picklr-io/serp2snow/internal/ir"
)

func (p *Provider) CreateUser(ctx context.Context, name string) (*ir.IAMUser, error) {
	out, err := p.iamClient.CreateUser(ctx, &iam.CreateUserInput{
		UserName: aws.String(name),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create IAM user %s: %w", name, err)
	}

	user := &ir.IAMUser{Name: name}
	if out.User != nil && out.User.UserName != nil {
		user.Name = *out.User.UserName
	}
	return user, nil
}

func (p *Provider) CreatePolicy(ctx context.Context, name, description, document string) (*ir.IAMPolicy, error) {
	out, err := p.iamClient.CreatePolicy(ctx, &iam.CreatePolicyInput{
		PolicyName:     aws.String(name),
		PolicyDocument: aws.String(document),
		Description:    aws.String(description),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create IAM policy %s: %w", name, err)
	}
	if out.Policy == nil {
		return nil, fmt.Errorf("create IAM policy %s returned no policy", name)
	}

	return &ir.IAMPolicy{
		Name: aws.ToString(out.Policy.PolicyName),
		ARN:  aws.ToString(out.Policy.Arn),
	}, nil
}

// CreateRole creates a role. IAM roles are eventually consistent; callers
// must not assume the role is usable immediately.
func (p *Provider) CreateRole(ctx context.Context, name, trustDocument string) (*ir.IAMRole, error) {
	out, err := p.iamClient.CreateRole(ctx, &iam.CreateRoleInput{
		RoleName:                 aws.String(name),
		AssumeRolePolicyDocument: aws.String(trustDocument),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create IAM role %s: %w", name, err)
	}
	if out.Role == nil {
		return nil, fmt.Errorf("create IAM role %s returned no role", name)
	}

	return &ir.IAMRole{
		Name: aws.ToString(out.Role.RoleName),
		ARN:  aws.ToString(out.Role.Arn),
	}, nil
}

func (p *Provider) AttachPolicyToUser(ctx context.Context, policyARN, userName string) error {
	_, err := p.iamClient.AttachUserPolicy(ctx, &iam.AttachUserPolicyInput{
		PolicyArn: aws.String(policyARN),
		UserName:  aws.String(userName),
	})
	if err != nil {
		return fmt.Errorf("failed to attach policy %s to user %s: %w", policyARN, userName, err)
	}
	return nil
}

func (p *Provider) AttachPolicyToRole(ctx context.Context, policyARN, roleName string) error {
	_, err := p.iamClient.AttachRolePolicy(ctx, &iam.AttachRolePolicyInput{
		PolicyArn: aws.String(policyARN),
		RoleName:  aws.String(roleName),
	})
	if err != nil {
		return fmt.Errorf("failed to attach policy %s to role %s: %w", policyARN, roleName, err)
	}
	return nil
}

func (p *Provider) CreateAccessKey(ctx context.Context, userName string) (*ir.AccessKey, error) {
	out, err := p.iamClient.CreateAccessKey(ctx, &iam.CreateAccessKeyInput{
		UserName: aws.String(userName),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create access key for %s: %w", userName, err)
	}
	if out.AccessKey == nil {
		return nil, fmt.Errorf("create access key for %s returned no key", userName)
	}

	return &ir.AccessKey{
		AccessKeyID:     aws.ToString(out.AccessKey.AccessKeyId),
		SecretAccessKey: aws.ToString(out.AccessKey.SecretAccessKey),
	}, nil
}

func (p *Provider) UpdateRoleTrustPolicy(ctx context.Context, roleName, document string) error {
	_, err := p.iamClient.UpdateAssumeRolePolicy(ctx, &iam.UpdateAssumeRolePolicyInput{
		RoleName:       aws.String(roleName),
		PolicyDocument: aws.String(document),
	})
	if err != nil {
		return fmt.Errorf("failed to update trust policy of role %s: %w", roleName, err)
	}
	return nil
}
