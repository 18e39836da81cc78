// Package provider builds the cloud clients a setup run talks to from the
// stored credentials.
package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/picklr-io/serp2snow/internal/config"
	"github.com/picklr-io/serp2snow/internal/credentials"
	"github.com/picklr-io/serp2snow/internal/engine"
	"github.com/picklr-io/serp2snow/internal/logging"
	awsprovider "github.com/picklr-io/serp2snow/providers/aws"
	"github.com/picklr-io/serp2snow/providers/null"
	"github.com/picklr-io/serp2snow/providers/serpwow"
	"github.com/picklr-io/serp2snow/providers/snowflake"
)

// Warehouse is the Snowflake side of the pipeline plus the connection
// housekeeping the CLI needs.
type Warehouse interface {
	engine.Warehouse
	CreateView(ctx context.Context, name, table string) error
	Ping(ctx context.Context) error
	Close() error
}

// Clouds is everything a setup run needs to create resources.
type Clouds struct {
	Objects      engine.ObjectStore
	Identity     engine.Identity
	Warehouse    Warehouse
	Destinations engine.Destinations
	AccountID    string
}

// Registry lazily builds and caches one client per cloud.
type Registry struct {
	creds credentials.Provider
	cfg   *config.Config

	mu        sync.Mutex
	dryRun    *null.Provider
	aws       *awsprovider.Provider
	warehouse Warehouse
	serpWow   *serpwow.Client
}

func NewRegistry(creds credentials.Provider, cfg *config.Config) *Registry {
	return &Registry{creds: creds, cfg: cfg}
}

// NewDryRunRegistry returns a Registry whose clouds are all the in-memory
// null provider. No credentials are read.
func NewDryRunRegistry() *Registry {
	p := null.New()
	return &Registry{dryRun: p, warehouse: p}
}

// DryRun reports whether the registry is backed by the null provider.
func (r *Registry) DryRun() bool {
	return r.dryRun != nil
}

func (r *Registry) credentialSet(ctx context.Context) (*credentials.Set, error) {
	if r.creds == nil {
		return nil, fmt.Errorf("no credential store configured: %w", credentials.ErrMissing)
	}
	return r.creds.Get(ctx)
}

// AWS returns the AWS client.
func (r *Registry) AWS(ctx context.Context) (*awsprovider.Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.aws != nil {
		return r.aws, nil
	}
	set, err := r.credentialSet(ctx)
	if err != nil {
		return nil, err
	}
	c, err := set.RequireAWS()
	if err != nil {
		return nil, err
	}

	region := c.Region
	if region == "" && r.cfg != nil {
		region = r.cfg.AWS.Region
	}
	p, err := awsprovider.New(ctx, awsprovider.Options{
		AccessKeyID:     c.AccessKeyID,
		SecretAccessKey: c.SecretAccessKey,
		Region:          region,
	})
	if err != nil {
		return nil, err
	}
	r.aws = p
	return p, nil
}

// Warehouse returns the Snowflake client.
func (r *Registry) Warehouse(ctx context.Context) (Warehouse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.warehouse != nil {
		return r.warehouse, nil
	}
	set, err := r.credentialSet(ctx)
	if err != nil {
		return nil, err
	}
	c, err := set.RequireSnowflake()
	if err != nil {
		return nil, err
	}

	client, err := snowflake.New(snowflake.Options{
		Account:        c.Account,
		Username:       c.Username,
		AuthMethod:     c.AuthMethod,
		Password:       c.Password,
		PrivateKeyPath: c.PrivateKeyPath,
		Role:           c.Role,
		Warehouse:      c.Warehouse,
	})
	if err != nil {
		return nil, err
	}
	r.warehouse = client
	return client, nil
}

// SerpWow returns the SerpWow API client.
func (r *Registry) SerpWow(ctx context.Context) (*serpwow.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.serpWow != nil {
		return r.serpWow, nil
	}
	set, err := r.credentialSet(ctx)
	if err != nil {
		return nil, err
	}
	c, err := set.RequireSerpWow()
	if err != nil {
		return nil, err
	}

	var baseURL string
	if r.cfg != nil {
		baseURL = r.cfg.SerpWow.BaseURL
	}
	r.serpWow = serpwow.NewClient(baseURL, c.APIKey)
	return r.serpWow, nil
}

// Clouds builds every client a setup run needs. Missing credentials for
// any provider are reported together. The AWS account id comes from the
// stored credentials, or from STS when none was saved.
func (r *Registry) Clouds(ctx context.Context) (*Clouds, error) {
	if r.dryRun != nil {
		id, err := r.dryRun.CallerIdentity(ctx)
		if err != nil {
			return nil, err
		}
		return &Clouds{
			Objects:      r.dryRun,
			Identity:     r.dryRun,
			Warehouse:    r.dryRun,
			Destinations: r.dryRun,
			AccountID:    id.Account,
		}, nil
	}

	awsClient, awsErr := r.AWS(ctx)
	wh, whErr := r.Warehouse(ctx)
	sw, swErr := r.SerpWow(ctx)
	if err := errors.Join(awsErr, whErr, swErr); err != nil {
		return nil, err
	}

	accountID, err := r.accountID(ctx, awsClient)
	if err != nil {
		return nil, err
	}

	return &Clouds{
		Objects:      awsClient,
		Identity:     awsClient,
		Warehouse:    wh,
		Destinations: sw,
		AccountID:    accountID,
	}, nil
}

func (r *Registry) accountID(ctx context.Context, p *awsprovider.Provider) (string, error) {
	set, err := r.credentialSet(ctx)
	if err != nil {
		return "", err
	}
	if set.AWS != nil && set.AWS.AccountID != "" {
		return set.AWS.AccountID, nil
	}

	logging.Debug("looking up AWS account id")
	id, err := p.CallerIdentity(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to determine AWS account id: %w", err)
	}
	return id.Account, nil
}

// Close releases the warehouse connection pool, if one was opened.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.warehouse == nil {
		return nil
	}
	err := r.warehouse.Close()
	r.warehouse = nil
	return err
}
