package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStage_Order(t *testing.T) {
	expected := []string{
		"INITIAL_INPUT",
		"BUCKET_CREATED",
		"SERPWOW_USER_CREATED",
		"SERPWOW_POLICY_CREATED",
		"SERPWOW_POLICY_ATTACHED",
		"SERPWOW_USER_KEY_CREATED",
		"SNOWFLAKE_POLICY_CREATED",
		"SNOWFLAKE_ROLE_CREATED",
		"SNOWFLAKE_POLICY_ATTACHED",
		"DESTINATION_CREATED",
		"STORAGE_INTEGRATION_CREATED",
		"SNOWFLAKE_ROLE_UPDATED",
		"TABLE_CREATED",
		"STAGE_CREATED",
		"PIPE_CREATED",
		"EVENT_NOTIFICATION_CREATED",
	}
	require.Len(t, expected, int(StageCount))

	s := StageInitialInput
	for i, name := range expected {
		assert.Equal(t, name, s.String())
		next, ok := s.Next()
		if i == len(expected)-1 {
			assert.False(t, ok)
			assert.True(t, s.Terminal())
			break
		}
		require.True(t, ok)
		s = next
	}
}

func TestParseStage(t *testing.T) {
	s, err := ParseStage("PIPE_CREATED")
	require.NoError(t, err)
	assert.Equal(t, StagePipeCreated, s)

	_, err = ParseStage("BUCKET_DELETED")
	assert.ErrorIs(t, err, ErrUnknownStage)
}

func TestStage_JSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Stage Stage `json:"stage"`
	}{StageTableCreated})
	require.NoError(t, err)
	assert.JSONEq(t, `{"stage":"TABLE_CREATED"}`, string(data))

	var out struct {
		Stage Stage `json:"stage"`
	}
	err = json.Unmarshal([]byte(`{"stage":"NOT_A_STAGE"}`), &out)
	assert.ErrorIs(t, err, ErrUnknownStage)

	_, err = json.Marshal(struct{ S Stage }{Stage(99)})
	assert.Error(t, err)
}

func TestWithResource_DoesNotMutate(t *testing.T) {
	base := &ProvisioningState{
		Stage:            StageInitialInput,
		Bucket:           &Bucket{Name: "sw-results"},
		CreatedResources: []ResourceRecord{},
	}

	next := base.WithResource(ResourceRecord{Source: SourceAWS, Type: "S3 Bucket", ID: "sw-results"})
	next.Bucket.Name = "changed"

	assert.Empty(t, base.CreatedResources)
	assert.Equal(t, "sw-results", base.Bucket.Name)
	assert.Len(t, next.Ledger(), 1)
}

func TestFormatLedger(t *testing.T) {
	records := []ResourceRecord{
		{Source: SourceAWS, Type: "S3 Bucket", ID: "sw-results"},
		{Source: SourceAWS, Type: "IAM User", ID: "valueserp_results_upload_user"},
	}
	assert.Equal(t,
		"AWS S3 Bucket sw-results\nAWS IAM User valueserp_results_upload_user\n",
		FormatLedger(records))
	assert.Equal(t, "", FormatLedger(nil))
}
