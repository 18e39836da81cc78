// Package credentials stores the per-provider credentials serp2snow needs,
// in the same local configuration file that holds setup progress.
package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/picklr-io/serp2snow/internal/state"
)

// Snowflake authentication methods.
const (
	AuthPassword = "PASSWORD"
	AuthKeyPair  = "KEY_PAIR"
)

const (
	rootKey      = "credentials"
	awsKey       = rootKey + ".aws"
	snowflakeKey = rootKey + ".snowflake"
	serpWowKey   = rootKey + ".serpWow"
)

// ErrMissing is returned when a provider has no usable credentials.
var ErrMissing = errors.New("credentials not set")

type AWS struct {
	AccessKeyID     string `json:"accessKeyId"`
	SecretAccessKey string `json:"secretAccessKey"`
	Region          string `json:"region,omitempty"`
	AccountID       string `json:"account,omitempty"`
}

type Snowflake struct {
	AuthMethod     string `json:"authMethod"`
	Account        string `json:"account"`
	Username       string `json:"username"`
	Password       string `json:"password,omitempty"`
	PrivateKeyPath string `json:"privateKeyPath,omitempty"`
	Role           string `json:"role,omitempty"`
	Warehouse      string `json:"warehouse,omitempty"`
}

type SerpWow struct {
	APIKey string `json:"apiKey"`
}

// Set is everything stored for all providers. Missing providers are nil.
type Set struct {
	AWS       *AWS       `json:"aws,omitempty"`
	Snowflake *Snowflake `json:"snowflake,omitempty"`
	SerpWow   *SerpWow   `json:"serpWow,omitempty"`
}

// Provider returns cached credentials. The provisioning core only reads.
type Provider interface {
	Get(ctx context.Context) (*Set, error)
}

// Store is the file-backed Provider that can also update credentials.
type Store struct {
	file *state.ConfigFile
}

func NewStore(file *state.ConfigFile) *Store {
	return &Store{file: file}
}

func (s *Store) Get(ctx context.Context) (*Set, error) {
	var set Set
	if _, err := s.file.Get(rootKey, &set); err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	return &set, nil
}

func (s *Store) SaveAWS(ctx context.Context, c AWS) error {
	if c.AccessKeyID == "" || c.SecretAccessKey == "" {
		return fmt.Errorf("aws: access key id and secret access key are required")
	}
	return s.save(awsKey, c)
}

func (s *Store) SaveSnowflake(ctx context.Context, c Snowflake) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return s.save(snowflakeKey, c)
}

func (s *Store) SaveSerpWow(ctx context.Context, c SerpWow) error {
	if c.APIKey == "" {
		return fmt.Errorf("serpwow: api key is required")
	}
	return s.save(serpWowKey, c)
}

// Clear forgets all stored credentials.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.file.Delete(rootKey); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

func (s *Store) save(key string, v any) error {
	if err := s.file.Set(key, v); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

// Validate checks that the fields the chosen auth method needs are set.
func (c Snowflake) Validate() error {
	if c.Account == "" || c.Username == "" {
		return fmt.Errorf("snowflake: account and username are required")
	}
	switch c.AuthMethod {
	case AuthPassword:
		if c.Password == "" {
			return fmt.Errorf("snowflake: password is required for %s auth", AuthPassword)
		}
	case AuthKeyPair:
		if c.PrivateKeyPath == "" {
			return fmt.Errorf("snowflake: private key path is required for %s auth", AuthKeyPair)
		}
	default:
		return fmt.Errorf("snowflake: unsupported authentication method %q", c.AuthMethod)
	}
	return nil
}

// RequireAWS returns the AWS credentials or ErrMissing.
func (s *Set) RequireAWS() (*AWS, error) {
	if s == nil || s.AWS == nil || s.AWS.AccessKeyID == "" {
		return nil, fmt.Errorf("aws: %w", ErrMissing)
	}
	return s.AWS, nil
}

// RequireSnowflake returns the Snowflake credentials or ErrMissing.
func (s *Set) RequireSnowflake() (*Snowflake, error) {
	if s == nil || s.Snowflake == nil || s.Snowflake.Account == "" || s.Snowflake.Username == "" {
		return nil, fmt.Errorf("snowflake: %w", ErrMissing)
	}
	return s.Snowflake, nil
}

// RequireSerpWow returns the SerpWow credentials or ErrMissing.
func (s *Set) RequireSerpWow() (*SerpWow, error) {
	if s == nil || s.SerpWow == nil || s.SerpWow.APIKey == "" {
		return nil, fmt.Errorf("serpwow: %w", ErrMissing)
	}
	return s.SerpWow, nil
}
