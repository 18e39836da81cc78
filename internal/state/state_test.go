package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/picklr-io/serp2snow/internal/config"
	"github.com/picklr-io/serp2snow/internal/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleState() *ir.ProvisioningState {
	return &ir.ProvisioningState{
		Stage: ir.StageStorageIntegrationCreated,
		RunID: "5f1c2a8e-7c55-4a4b-9d0e-2f0d7f3a9b11",
		Bucket: &ir.Bucket{
			Name:     "sw-results",
			Location: "/sw-results",
		},
		SerpWowIAMUser: &ir.IAMUser{
			Name:            "valueserp_results_upload_user",
			AccessKeyID:     "AKIAEXAMPLE",
			SecretAccessKey: "secret",
		},
		SerpWowAccessPolicy:   &ir.IAMPolicy{Name: "valueserp_results_write_to_s3", ARN: "arn:aws:iam::123456789012:policy/valueserp_results_write_to_s3"},
		SnowflakeAccessPolicy: &ir.IAMPolicy{Name: "valueserp_results_snowflake_access", ARN: "arn:aws:iam::123456789012:policy/valueserp_results_snowflake_access"},
		SnowflakeRole:         &ir.IAMRole{Name: "valueserp_integration_snowflake_external", ARN: "arn:aws:iam::123456789012:role/valueserp_integration_snowflake_external"},
		Destination:           &ir.Destination{Name: "SNOWFLAKE_S3_INTEGRATION", ID: "dst_123"},
		StorageIntegration: &ir.StorageIntegration{
			Name:          "SERPWOW_RESULTS_S3",
			AWSUserARN:    "arn:aws:iam::999999999999:user/sf",
			AWSExternalID: "ABC_SFCRole=1",
		},
		CreatedResources: []ir.ResourceRecord{
			{Source: ir.SourceAWS, Type: "S3 Bucket", ID: "sw-results"},
			{Source: ir.SourceSerpWow, Type: "Destination", ID: "dst_123"},
		},
	}
}

func TestLocalStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "store.json")
	store := NewLocalStore(NewConfigFile(path))
	ctx := context.Background()

	// 1. Empty store
	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	// 2. Write and read back
	want := sampleState()
	require.NoError(t, store.Set(ctx, want))

	got, err = store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// 3. Full overwrite, not merge
	smaller := &ir.ProvisioningState{
		Stage:            ir.StageBucketCreated,
		Bucket:           &ir.Bucket{Name: "other"},
		CreatedResources: []ir.ResourceRecord{},
	}
	require.NoError(t, store.Set(ctx, smaller))
	got, err = store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, smaller, got)
	assert.Nil(t, got.SnowflakeRole)

	// 4. Clear
	require.NoError(t, store.Clear(ctx))
	got, err = store.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLocalStore_ClearKeepsOtherNamespaces(t *testing.T) {
	file := NewConfigFile(filepath.Join(t.TempDir(), "store.json"))
	store := NewLocalStore(file)
	ctx := context.Background()

	require.NoError(t, file.Set("credentials.serpWow", map[string]string{"apiKey": "k"}))
	require.NoError(t, store.Set(ctx, sampleState()))
	require.NoError(t, store.Clear(ctx))

	var creds map[string]string
	found, err := file.Get("credentials.serpWow", &creds)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "k", creds["apiKey"])
}

func TestLocalStore_UnknownStageIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	content := `{"setupProgress":{"lastState":{"stage":"BUCKET_DELETED","createdResources":[]}}}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	_, err := NewLocalStore(NewConfigFile(path)).Get(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ir.ErrUnknownStage)
}

func TestLocalStore_Encrypted(t *testing.T) {
	t.Setenv(EncryptionKeyEnvVar, "passphrase")
	path := filepath.Join(t.TempDir(), "store.json")
	store := NewLocalStore(NewConfigFile(path))
	ctx := context.Background()

	want := sampleState()
	require.NoError(t, store.Set(ctx, want))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, IsEncrypted(raw))
	assert.NotContains(t, string(raw), "AKIAEXAMPLE")

	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLocalStore_Lock(t *testing.T) {
	store := NewLocalStore(NewConfigFile(filepath.Join(t.TempDir(), "store.json")))
	ctx := context.Background()

	require.NoError(t, store.Lock(ctx))
	err := store.Lock(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, store.Unlock(ctx))
	require.NoError(t, store.Lock(ctx))
	require.NoError(t, store.Unlock(ctx))
	require.NoError(t, store.Unlock(ctx))
}

func TestLocalStore_LockStaysFreshWhileHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	first := NewLocalStore(NewConfigFile(path))
	first.lockRefresh = 10 * time.Millisecond
	ctx := context.Background()

	require.NoError(t, first.Lock(ctx))
	defer first.Unlock(ctx)

	old := time.Now().Add(-staleLockAge - time.Minute)
	require.NoError(t, os.Chtimes(path+".lock", old, old))

	require.Eventually(t, func() bool {
		info, err := os.Stat(path + ".lock")
		return err == nil && time.Since(info.ModTime()) < time.Minute
	}, 2*time.Second, 10*time.Millisecond)

	second := NewLocalStore(NewConfigFile(path))
	err := second.Lock(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLocked)
}

func TestLocalStore_StaleLockIsTakenOver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, os.WriteFile(path+".lock", []byte("pid=1\ntoken=abandoned\n"), 0600))
	old := time.Now().Add(-staleLockAge - time.Minute)
	require.NoError(t, os.Chtimes(path+".lock", old, old))

	store := NewLocalStore(NewConfigFile(path))
	ctx := context.Background()
	require.NoError(t, store.Lock(ctx))
	require.NoError(t, store.Unlock(ctx))

	_, err := os.Stat(path + ".lock")
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStore_UnlockLeavesOtherRunsLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	store := NewLocalStore(NewConfigFile(path))
	ctx := context.Background()

	require.NoError(t, store.Lock(ctx))
	// Another run replaced the lock file.
	require.NoError(t, os.WriteFile(path+".lock", []byte("pid=1\ntoken=other-run\n"), 0600))

	require.NoError(t, store.Unlock(ctx))

	data, err := os.ReadFile(path + ".lock")
	require.NoError(t, err)
	assert.Contains(t, string(data), "token=other-run")
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Nil(t, store.Raw())

	want := sampleState()
	require.NoError(t, store.Set(ctx, want))

	// Mutating the caller's copy must not leak into the store.
	want.Bucket.Name = "mutated"
	got, err = store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sw-results", got.Bucket.Name)

	require.NoError(t, store.Clear(ctx))
	got, err = store.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestConfigFile_NamespacedKeys(t *testing.T) {
	file := NewConfigFile(filepath.Join(t.TempDir(), "store.json"))

	var out string
	found, err := file.Get("a.b.c", &out)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, file.Set("a.b.c", "value"))
	require.NoError(t, file.Set("a.d", "other"))

	found, err = file.Get("a.b.c", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "value", out)

	require.NoError(t, file.Delete("a.b"))
	found, err = file.Get("a.b.c", &out)
	require.NoError(t, err)
	assert.False(t, found)

	found, err = file.Get("a.d", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "other", out)

	require.NoError(t, file.Delete("missing.key"))
}

func TestNewStore(t *testing.T) {
	_, err := NewStore(nil)
	require.Error(t, err)

	s, err := NewStore(&config.StoreConfig{Backend: "local", Path: filepath.Join(t.TempDir(), "store.json")})
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, s)

	s, err = NewStore(&config.StoreConfig{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = NewStore(&config.StoreConfig{Backend: "local"})
	require.Error(t, err)

	_, err = NewStore(&config.StoreConfig{Backend: "redis"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store backend")
}
