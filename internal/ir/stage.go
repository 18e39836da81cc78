package ir

import (
	"errors"
	"fmt"
)

// Stage names the last completed point of the provisioning sequence.
type Stage int

const (
	StageInitialInput Stage = iota
	StageBucketCreated
	StageSerpWowUserCreated
	StageSerpWowPolicyCreated
	StageSerpWowPolicyAttached
	StageSerpWowUserKeyCreated
	StageSnowflakePolicyCreated
	StageSnowflakeRoleCreated
	StageSnowflakePolicyAttached
	StageDestinationCreated
	StageStorageIntegrationCreated
	StageSnowflakeRoleUpdated
	StageTableCreated
	StageStageCreated
	StagePipeCreated
	StageEventNotificationCreated

	// StageCount is the number of defined stages. Tables indexed by Stage
	// are sized with it.
	StageCount
)

// ErrUnknownStage is returned when a persisted stage tag does not name a
// defined stage.
var ErrUnknownStage = errors.New("unknown provisioning stage")

var stageNames = [StageCount]string{
	StageInitialInput:              "INITIAL_INPUT",
	StageBucketCreated:             "BUCKET_CREATED",
	StageSerpWowUserCreated:        "SERPWOW_USER_CREATED",
	StageSerpWowPolicyCreated:      "SERPWOW_POLICY_CREATED",
	StageSerpWowPolicyAttached:     "SERPWOW_POLICY_ATTACHED",
	StageSerpWowUserKeyCreated:     "SERPWOW_USER_KEY_CREATED",
	StageSnowflakePolicyCreated:    "SNOWFLAKE_POLICY_CREATED",
	StageSnowflakeRoleCreated:      "SNOWFLAKE_ROLE_CREATED",
	StageSnowflakePolicyAttached:   "SNOWFLAKE_POLICY_ATTACHED",
	StageDestinationCreated:        "DESTINATION_CREATED",
	StageStorageIntegrationCreated: "STORAGE_INTEGRATION_CREATED",
	StageSnowflakeRoleUpdated:      "SNOWFLAKE_ROLE_UPDATED",
	StageTableCreated:              "TABLE_CREATED",
	StageStageCreated:              "STAGE_CREATED",
	StagePipeCreated:               "PIPE_CREATED",
	StageEventNotificationCreated:  "EVENT_NOTIFICATION_CREATED",
}

// Valid reports whether s is one of the defined stages.
func (s Stage) Valid() bool {
	return s >= 0 && s < StageCount
}

// Terminal reports whether s is the final, successful stage.
func (s Stage) Terminal() bool {
	return s == StageEventNotificationCreated
}

// Next returns the fixed successor of s. The terminal stage has none.
func (s Stage) Next() (Stage, bool) {
	if !s.Valid() || s.Terminal() {
		return s, false
	}
	return s + 1, true
}

func (s Stage) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s]
}

// ParseStage returns the stage with the given persisted name.
func ParseStage(name string) (Stage, error) {
	for i, n := range stageNames {
		if n == name {
			return Stage(i), nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrUnknownStage, name)
}

// MarshalText persists a stage by name so the stored record stays readable
// and independent of the enum ordering.
func (s Stage) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStage, int(s))
	}
	return []byte(stageNames[s]), nil
}

func (s *Stage) UnmarshalText(text []byte) error {
	parsed, err := ParseStage(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
