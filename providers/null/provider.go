// Package null is an in-memory stand-in for every cloud the setup touches.
// It backs "setup --dry-run" and tests. Creating a resource twice fails the
// way the real service would.
package null

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/smithy-go"

	"github.com/picklr-io/serp2snow/internal/ir"
	awsprovider "github.com/picklr-io/serp2snow/providers/aws"
	"github.com/picklr-io/serp2snow/providers/serpwow"
	"github.com/picklr-io/serp2snow/providers/snowflake"
)

const (
	accountID = "123456789012"
	region    = "us-east-1"
)

// Provider records every call. It is safe for concurrent use.
type Provider struct {
	mu       sync.Mutex
	calls    []string
	failures map[string][]error
	created  map[string]bool
	seq      int
}

func New() *Provider {
	return &Provider{
		failures: make(map[string][]error),
		created:  make(map[string]bool),
	}
}

// FailNext makes the next len(errs) calls of op return errs in order.
func (p *Provider) FailNext(op string, errs ...error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[op] = append(p.failures[op], errs...)
}

// Calls returns the operations invoked so far, in order.
func (p *Provider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

// begin records op and returns an injected failure, if any.
func (p *Provider) begin(op string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, op)
	if queue := p.failures[op]; len(queue) > 0 {
		p.failures[op] = queue[1:]
		return queue[0]
	}
	return nil
}

// create marks key as existing, failing with exists when it already does.
func (p *Provider) create(key string, exists error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.created[key] {
		return exists
	}
	p.created[key] = true
	return nil
}

func (p *Provider) nextID(prefix string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	return fmt.Sprintf("%s%06d", prefix, p.seq)
}

func awsErr(code, format string, args ...any) error {
	return &smithy.GenericAPIError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func sqlErr(state, format string, args ...any) error {
	return &snowflake.QueryError{State: state, Err: fmt.Errorf(format, args...)}
}

func iamARN(kind, name string) string {
	return fmt.Sprintf("arn:aws:iam::%s:%s/%s", accountID, kind, name)
}

func (p *Provider) CreateBucket(_ context.Context, name string) (*ir.Bucket, error) {
	if err := p.begin("CreateBucket"); err != nil {
		return nil, err
	}
	if err := p.create("bucket/"+name, awsErr("BucketAlreadyOwnedByYou", "bucket %s already exists", name)); err != nil {
		return nil, err
	}
	return &ir.Bucket{Name: name, Location: "/" + name}, nil
}

func (p *Provider) CreateEventNotification(_ context.Context, bucketName, queueARN string) error {
	if err := p.begin("CreateEventNotification"); err != nil {
		return err
	}
	if !p.exists("bucket/" + bucketName) {
		return awsErr("NoSuchBucket", "bucket %s does not exist", bucketName)
	}
	if queueARN == "" {
		return awsErr("InvalidArgument", "queue ARN is required")
	}
	return nil
}

func (p *Provider) exists(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.created[key]
}

func (p *Provider) CreateUser(_ context.Context, name string) (*ir.IAMUser, error) {
	if err := p.begin("CreateUser"); err != nil {
		return nil, err
	}
	if err := p.create("user/"+name, awsErr("EntityAlreadyExists", "User with name %s already exists.", name)); err != nil {
		return nil, err
	}
	return &ir.IAMUser{Name: name}, nil
}

func (p *Provider) CreatePolicy(_ context.Context, name, _, _ string) (*ir.IAMPolicy, error) {
	if err := p.begin("CreatePolicy"); err != nil {
		return nil, err
	}
	if err := p.create("policy/"+name, awsErr("EntityAlreadyExists", "A policy called %s already exists.", name)); err != nil {
		return nil, err
	}
	return &ir.IAMPolicy{Name: name, ARN: iamARN("policy", name)}, nil
}

func (p *Provider) CreateRole(_ context.Context, name, _ string) (*ir.IAMRole, error) {
	if err := p.begin("CreateRole"); err != nil {
		return nil, err
	}
	if err := p.create("role/"+name, awsErr("EntityAlreadyExists", "Role with name %s already exists.", name)); err != nil {
		return nil, err
	}
	return &ir.IAMRole{Name: name, ARN: iamARN("role", name)}, nil
}

func (p *Provider) AttachPolicyToUser(_ context.Context, _, userName string) error {
	if err := p.begin("AttachPolicyToUser"); err != nil {
		return err
	}
	if !p.exists("user/" + userName) {
		return awsErr("NoSuchEntity", "user %s cannot be found", userName)
	}
	return nil
}

func (p *Provider) AttachPolicyToRole(_ context.Context, _, roleName string) error {
	if err := p.begin("AttachPolicyToRole"); err != nil {
		return err
	}
	if !p.exists("role/" + roleName) {
		return awsErr("NoSuchEntity", "role %s cannot be found", roleName)
	}
	return nil
}

func (p *Provider) CreateAccessKey(_ context.Context, userName string) (*ir.AccessKey, error) {
	if err := p.begin("CreateAccessKey"); err != nil {
		return nil, err
	}
	return &ir.AccessKey{
		AccessKeyID:     p.nextID("AKIANULL"),
		SecretAccessKey: "null-secret-for-" + userName,
	}, nil
}

func (p *Provider) UpdateRoleTrustPolicy(_ context.Context, roleName, _ string) error {
	if err := p.begin("UpdateRoleTrustPolicy"); err != nil {
		return err
	}
	if !p.exists("role/" + roleName) {
		return awsErr("NoSuchEntity", "role %s cannot be found", roleName)
	}
	return nil
}

// CallerIdentity reports a fixed account.
func (p *Provider) CallerIdentity(_ context.Context) (*awsprovider.Identity, error) {
	if err := p.begin("CallerIdentity"); err != nil {
		return nil, err
	}
	return &awsprovider.Identity{Account: accountID, ARN: iamARN("user", "null")}, nil
}

func (p *Provider) CreateDestination(_ context.Context, opts serpwow.DestinationOptions) (*ir.Destination, error) {
	if err := p.begin("CreateDestination"); err != nil {
		return nil, err
	}
	if opts.AccessKeyID == "" {
		return nil, &serpwow.APIError{StatusCode: 400, Message: "Invalid access key supplied"}
	}
	return &ir.Destination{Name: opts.Name, ID: p.nextID("DEST")}, nil
}

func (p *Provider) CreateStorageIntegration(_ context.Context, name, _, _ string) (*ir.StorageIntegration, error) {
	if err := p.begin("CreateStorageIntegration"); err != nil {
		return nil, err
	}
	if err := p.create("integration/"+name, sqlErr("42710", "Integration '%s' already exists.", name)); err != nil {
		return nil, err
	}
	return &ir.StorageIntegration{
		Name:          name,
		AWSUserARN:    iamARN("user", "snowflake-null"),
		AWSExternalID: "NULL_SFCRole=" + name,
	}, nil
}

func (p *Provider) CreateTable(_ context.Context, name string) (*ir.Table, error) {
	if err := p.begin("CreateTable"); err != nil {
		return nil, err
	}
	if err := p.create("table/"+name, sqlErr("42710", "Object '%s' already exists.", name)); err != nil {
		return nil, err
	}
	return &ir.Table{Name: name}, nil
}

func (p *Provider) CreateStage(_ context.Context, name, _, _ string) (*ir.WarehouseStage, error) {
	if err := p.begin("CreateStage"); err != nil {
		return nil, err
	}
	if err := p.create("stage/"+name, sqlErr("42710", "Object '%s' already exists.", name)); err != nil {
		return nil, err
	}
	return &ir.WarehouseStage{Name: name}, nil
}

func (p *Provider) CreatePipe(_ context.Context, name, _, _ string) (*ir.Pipe, error) {
	if err := p.begin("CreatePipe"); err != nil {
		return nil, err
	}
	if err := p.create("pipe/"+name, sqlErr("42710", "Object '%s' already exists.", name)); err != nil {
		return nil, err
	}
	return &ir.Pipe{
		Name:                name,
		NotificationChannel: fmt.Sprintf("arn:aws:sqs:%s:%s:sf-snowpipe-null", region, accountID),
	}, nil
}

func (p *Provider) CreateView(_ context.Context, name, _ string) error {
	if err := p.begin("CreateView"); err != nil {
		return err
	}
	return p.create("view/"+name, sqlErr("42710", "Object '%s' already exists.", name))
}

func (p *Provider) Ping(_ context.Context) error {
	return p.begin("Ping")
}

func (p *Provider) Close() error {
	return nil
}
