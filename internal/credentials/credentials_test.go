package credentials

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/picklr-io/serp2snow/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(state.NewConfigFile(filepath.Join(t.TempDir(), "store.json")))
}

func TestStore_SaveAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	set, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, set.AWS)
	_, err = set.RequireAWS()
	assert.ErrorIs(t, err, ErrMissing)

	require.NoError(t, s.SaveAWS(ctx, AWS{AccessKeyID: "AKIA", SecretAccessKey: "secret", AccountID: "123456789012"}))
	require.NoError(t, s.SaveSerpWow(ctx, SerpWow{APIKey: "api-key"}))
	require.NoError(t, s.SaveSnowflake(ctx, Snowflake{
		AuthMethod: AuthPassword,
		Account:    "xy12345.eu-west-1",
		Username:   "loader",
		Password:   "pw",
	}))

	set, err = s.Get(ctx)
	require.NoError(t, err)

	aws, err := set.RequireAWS()
	require.NoError(t, err)
	assert.Equal(t, "123456789012", aws.AccountID)

	sw, err := set.RequireSerpWow()
	require.NoError(t, err)
	assert.Equal(t, "api-key", sw.APIKey)

	sf, err := set.RequireSnowflake()
	require.NoError(t, err)
	assert.Equal(t, "loader", sf.Username)
}

func TestStore_ClearKeepsSetupProgress(t *testing.T) {
	file := state.NewConfigFile(filepath.Join(t.TempDir(), "store.json"))
	s := NewStore(file)
	ctx := context.Background()

	require.NoError(t, file.Set("setupProgress.lastState", map[string]string{"stage": "BUCKET_CREATED"}))
	require.NoError(t, s.SaveSerpWow(ctx, SerpWow{APIKey: "api-key"}))
	require.NoError(t, s.Clear(ctx))

	set, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, set.SerpWow)

	var progress map[string]string
	found, err := file.Get("setupProgress.lastState", &progress)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestStore_SaveValidates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	assert.Error(t, s.SaveAWS(ctx, AWS{AccessKeyID: "AKIA"}))
	assert.Error(t, s.SaveSerpWow(ctx, SerpWow{}))
}

func TestSnowflake_Validate(t *testing.T) {
	tests := []struct {
		name    string
		creds   Snowflake
		wantErr string
	}{
		{
			name:  "password",
			creds: Snowflake{AuthMethod: AuthPassword, Account: "a", Username: "u", Password: "p"},
		},
		{
			name:  "key pair",
			creds: Snowflake{AuthMethod: AuthKeyPair, Account: "a", Username: "u", PrivateKeyPath: "/k.p8"},
		},
		{
			name:    "missing account",
			creds:   Snowflake{AuthMethod: AuthPassword, Username: "u", Password: "p"},
			wantErr: "account and username",
		},
		{
			name:    "missing password",
			creds:   Snowflake{AuthMethod: AuthPassword, Account: "a", Username: "u"},
			wantErr: "password is required",
		},
		{
			name:    "missing key path",
			creds:   Snowflake{AuthMethod: AuthKeyPair, Account: "a", Username: "u"},
			wantErr: "private key path",
		},
		{
			name:    "unknown method",
			creds:   Snowflake{AuthMethod: "OAUTH", Account: "a", Username: "u"},
			wantErr: "unsupported authentication method",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.creds.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
